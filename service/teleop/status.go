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

package teleop

import "fmt"

// Status is a representation of the mapper's state machine status.
type Status uint8

// The following is an enumeration of all possible statuses the mapper can
// have. StatusEmergency is terminal; it can only be cleared by restarting
// the process.
const (
	StatusAwaitingFollower Status = iota + 1
	StatusEstablished
	StatusEmergency
)

// String implements the Stringer interface.
func (s Status) String() string {
	switch s {
	case StatusAwaitingFollower:
		return "awaiting_follower"
	case StatusEstablished:
		return "established"
	case StatusEmergency:
		return "emergency"
	default:
		return fmt.Sprintf("invalid status %d", s)
	}
}
