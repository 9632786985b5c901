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

package robot

import (
	"math"
)

// DefaultJointCount is the joint count of the standard six-axis cell.
const DefaultJointCount = 6

// DefaultLeaderSpec describes the standard leader bus: six joints reported
// in radians over a full revolution.
func DefaultLeaderSpec() BusSpec {

	joints := make([]JointSpec, DefaultJointCount)
	for i := range joints {
		joints[i] = JointSpec{
			ID:       i,
			Sign:     1,
			RangeMin: -math.Pi,
			RangeMax: math.Pi,
			Unit:     UnitRadians,
		}
	}

	return BusSpec{Name: "leader", Joints: joints}
}

// DefaultFollowerSpec describes the standard follower bus: six joints in
// integer milli-degrees over a full revolution.
func DefaultFollowerSpec() BusSpec {

	joints := make([]JointSpec, DefaultJointCount)
	for i := range joints {
		joints[i] = JointSpec{
			ID:       i,
			Sign:     1,
			RangeMin: -180000,
			RangeMax: 180000,
			Unit:     UnitMilliDegrees,
		}
	}

	return BusSpec{Name: "follower", Joints: joints}
}
