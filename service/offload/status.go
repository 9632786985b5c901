// Copyright 2025 DoRobot Labs
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package offload

// Status is the state of one offload session. Done and Failed are terminal.
type Status uint8

const (
	StatusIdle Status = iota + 1
	StatusProbing
	StatusUploading
	StatusNotifying
	StatusPolling
	StatusTriggered
	StatusDownloading
	StatusDone
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusProbing:
		return "probing"
	case StatusUploading:
		return "uploading"
	case StatusNotifying:
		return "notifying"
	case StatusPolling:
		return "polling"
	case StatusTriggered:
		return "triggered"
	case StatusDownloading:
		return "downloading"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	default:
		return "invalid"
	}
}
