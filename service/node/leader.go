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

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dorobot/teleop-capture/models/robot"
	"github.com/dorobot/teleop-capture/service/bus"
)

// LeaderRole reads the operator's arm and publishes its joint vector in the
// leader bus's declared unit. Drivers report positions as integer
// milli-degrees; the role converts them once per tick.
type LeaderRole struct {
	log   zerolog.Logger
	bus   robot.BusSpec
	arm   robot.Arm
	scale float64
}

// NewLeaderRole creates a leader role for the given arm and bus.
func NewLeaderRole(log zerolog.Logger, arm robot.Arm, spec robot.BusSpec) (*LeaderRole, error) {

	err := spec.Validate()
	if err != nil {
		return nil, fmt.Errorf("could not validate leader bus: %w", err)
	}

	scale, err := robot.UnitScale(robot.UnitMilliDegrees, spec.Unit())
	if err != nil {
		return nil, fmt.Errorf("could not derive leader unit scale: %w", err)
	}

	r := LeaderRole{
		log:   log.With().Str("bus", spec.Name).Logger(),
		bus:   spec,
		arm:   arm,
		scale: scale,
	}

	return &r, nil
}

// Name implements the Role interface.
func (r *LeaderRole) Name() string {
	return "leader"
}

// Start implements the Role interface.
func (r *LeaderRole) Start() error {
	err := r.arm.Open()
	if err != nil {
		return fmt.Errorf("could not open leader arm: %w", err)
	}
	return nil
}

// Tick implements the Role interface.
func (r *LeaderRole) Tick(pub *bus.Publisher) error {
	raw, err := r.arm.ReadPositions()
	if err != nil {
		return fmt.Errorf("could not read leader positions: %w", err)
	}
	values := make([]float32, len(raw))
	for i, position := range raw {
		values[i] = float32(float64(position) * r.scale)
	}
	pub.Publish(robot.TopicLeaderJoints, robot.VectorPayload("joint", values))
	return nil
}

// Input implements the Role interface. Leader nodes have no inputs.
func (r *LeaderRole) Input(robot.Envelope, *bus.Publisher) error {
	return nil
}

// Stop implements the Role interface.
func (r *LeaderRole) Stop() error {
	return r.arm.Close()
}
