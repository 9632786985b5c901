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

package node

import "fmt"

// Status is a representation of the node runtime's state machine status.
type Status uint8

// The following is an enumeration of all possible statuses the node runtime
// can have.
const (
	StatusStarting Status = iota + 1
	StatusConnecting
	StatusRunning
	StatusDraining
	StatusStopped
)

// String implements the Stringer interface.
func (s Status) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusConnecting:
		return "connecting"
	case StatusRunning:
		return "running"
	case StatusDraining:
		return "draining"
	case StatusStopped:
		return "stopped"
	default:
		return fmt.Sprintf("invalid status %d", s)
	}
}
