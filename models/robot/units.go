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
	"fmt"
	"math"
)

// Unit is the unit system a joint reading is expressed in. All joints of one
// bus share a single unit system; mixed-unit buses are rejected by validation.
type Unit uint8

const (
	UnitRadians Unit = iota + 1
	UnitDegrees
	UnitMilliDegrees
	UnitRange0To100
	UnitRawUnits
)

// String implements the Stringer interface.
func (u Unit) String() string {
	switch u {
	case UnitRadians:
		return "radians"
	case UnitDegrees:
		return "degrees"
	case UnitMilliDegrees:
		return "milli_degrees"
	case UnitRange0To100:
		return "range_0_100"
	case UnitRawUnits:
		return "raw_units"
	default:
		return fmt.Sprintf("invalid unit %d", u)
	}
}

// JointSpec describes one joint on a motor bus.
type JointSpec struct {
	ID           int     `json:"id" validate:"gte=0"`
	Sign         float64 `json:"sign" validate:"oneof=-1 1"`
	RangeMin     float64 `json:"range_min"`
	RangeMax     float64 `json:"range_max"`
	HomingOffset float64 `json:"homing_offset"`
	Unit         Unit    `json:"unit" validate:"required"`
}

// BusSpec describes a motor bus and the joints attached to it. A joint vector
// is only meaningful together with the bus it was read from.
type BusSpec struct {
	Name   string      `json:"name" validate:"required"`
	Joints []JointSpec `json:"joints" validate:"required,min=1,dive"`
}

// Unit returns the single unit system shared by all joints of the bus.
func (b BusSpec) Unit() Unit {
	if len(b.Joints) == 0 {
		return UnitRawUnits
	}
	return b.Joints[0].Unit
}

// Validate checks that the bus is well-formed. In particular, every joint of
// one bus must share the same unit system; the historical gripper blow-up came
// from a single joint declared in a different unit than the rest of its bus.
func (b BusSpec) Validate() error {
	if len(b.Joints) == 0 {
		return fmt.Errorf("bus %q has no joints: %w", b.Name, ErrConfigInvalid)
	}
	unit := b.Joints[0].Unit
	for _, joint := range b.Joints {
		if joint.Unit != unit {
			return fmt.Errorf("bus %q mixes units %s and %s on joint %d: %w",
				b.Name, unit, joint.Unit, joint.ID, ErrConfigInvalid)
		}
		if joint.Sign != 1 && joint.Sign != -1 {
			return fmt.Errorf("bus %q joint %d has invalid direction sign %f: %w",
				b.Name, joint.ID, joint.Sign, ErrConfigInvalid)
		}
	}
	return nil
}

// UnitScale returns the multiplicative factor converting a value in the from
// unit into the to unit. Range and raw units are bus-resolution dependent and
// have no universal scale; conversions between them are rejected.
func UnitScale(from Unit, to Unit) (float64, error) {
	if from == to {
		return 1, nil
	}
	fromDeg, ok := degreesPer(from)
	if !ok {
		return 0, fmt.Errorf("no universal scale from unit %s", from)
	}
	toDeg, ok := degreesPer(to)
	if !ok {
		return 0, fmt.Errorf("no universal scale to unit %s", to)
	}
	return fromDeg / toDeg, nil
}

// degreesPer returns how many degrees one unit of the given system represents.
func degreesPer(u Unit) (float64, bool) {
	switch u {
	case UnitRadians:
		return 180 / math.Pi, true
	case UnitDegrees:
		return 1, true
	case UnitMilliDegrees:
		return 0.001, true
	default:
		return 0, false
	}
}

// ConvertVector converts a joint vector between unit systems, applying the
// same scale to every element. The caller guarantees the vector came from a
// single-unit bus.
func ConvertVector(values []float64, from Unit, to Unit) ([]float64, error) {
	scale, err := UnitScale(from, to)
	if err != nil {
		return nil, fmt.Errorf("could not compute unit scale: %w", err)
	}
	converted := make([]float64, len(values))
	for i, v := range values {
		converted[i] = v * scale
	}
	return converted, nil
}
