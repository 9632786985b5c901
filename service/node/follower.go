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
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/dorobot/teleop-capture/models/robot"
	"github.com/dorobot/teleop-capture/service/bus"
	"github.com/dorobot/teleop-capture/service/teleop"
)

// FollowerRole actuates the follower arm and hosts the teleop mapper. It
// consumes leader joint vectors and injected action commands, actuates the
// resulting targets, and publishes both the follower's joint state and the
// actions it actually executed.
type FollowerRole struct {
	log    zerolog.Logger
	bus    robot.BusSpec
	arm    robot.Arm
	mapper *teleop.Mapper
}

// NewFollowerRole creates a follower role for the given arm, bus and
// mapper.
func NewFollowerRole(log zerolog.Logger, arm robot.Arm, spec robot.BusSpec, mapper *teleop.Mapper) (*FollowerRole, error) {

	err := spec.Validate()
	if err != nil {
		return nil, fmt.Errorf("could not validate follower bus: %w", err)
	}

	r := FollowerRole{
		log:    log.With().Str("bus", spec.Name).Logger(),
		bus:    spec,
		arm:    arm,
		mapper: mapper,
	}

	return &r, nil
}

// Name implements the Role interface.
func (r *FollowerRole) Name() string {
	return "follower"
}

// Start implements the Role interface. The first position reading anchors
// the mapping baseline.
func (r *FollowerRole) Start() error {
	err := r.arm.Open()
	if err != nil {
		return fmt.Errorf("could not open follower arm: %w", err)
	}
	positions, err := r.arm.ReadPositions()
	if err != nil {
		return fmt.Errorf("could not read follower baseline: %w", err)
	}
	err = r.mapper.ObserveFollower(positions)
	if err != nil {
		return fmt.Errorf("could not record follower baseline: %w", err)
	}
	return nil
}

// Tick implements the Role interface. Every tick refreshes the mapper's
// view of the follower and publishes the joint state for recording.
func (r *FollowerRole) Tick(pub *bus.Publisher) error {
	positions, err := r.arm.ReadPositions()
	if err != nil {
		return fmt.Errorf("could not read follower positions: %w", err)
	}

	err = r.mapper.ObserveFollower(positions)
	if err != nil && !errors.Is(err, robot.ErrEmergencyStop) {
		return fmt.Errorf("could not update follower reading: %w", err)
	}

	values := make([]float32, len(positions))
	for i, position := range positions {
		values[i] = float32(position)
	}
	pub.Publish(robot.TopicFollowerJoints, robot.VectorPayload("joint", values))
	return nil
}

// Input implements the Role interface. Leader joints go through the mapper;
// injected action commands are actuated directly.
func (r *FollowerRole) Input(envelope robot.Envelope, pub *bus.Publisher) error {
	switch envelope.Topic {

	case robot.TopicLeaderJoints:
		target, err := r.mapper.Map(envelope.Payload.Values)
		if errors.Is(err, robot.ErrBaselineNotEstablished) {
			return nil
		}
		if errors.Is(err, robot.ErrEmergencyStop) {
			// The mapper already logged the terminal event; the node keeps
			// publishing state so the operator sees the frozen arm.
			return nil
		}
		if err != nil {
			return fmt.Errorf("could not map leader input: %w", err)
		}
		return r.actuate(target, pub)

	case robot.TopicActionCommand:
		target := make([]int32, len(envelope.Payload.Values))
		for i, value := range envelope.Payload.Values {
			target[i] = int32(math.Round(float64(value)))
		}
		return r.actuate(target, pub)

	default:
		return nil
	}
}

func (r *FollowerRole) actuate(target []int32, pub *bus.Publisher) error {
	err := r.arm.WritePositions(target)
	if err != nil {
		return fmt.Errorf("could not write follower positions: %w", err)
	}
	values := make([]float32, len(target))
	for i, position := range target {
		values[i] = float32(position)
	}
	pub.Publish(robot.TopicActionCommand, robot.VectorPayload("action", values))
	return nil
}

// Stop implements the Role interface.
func (r *FollowerRole) Stop() error {
	return r.arm.Close()
}
