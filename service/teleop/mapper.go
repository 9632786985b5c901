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

// Package teleop maps leader arm motion onto follower target commands and
// monitors the deviation between commanded and actual follower positions.
// The mapping is relative: the leader and follower are independently
// calibrated, so only motion relative to a per-session baseline is
// transferred, never absolute pose.
package teleop

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dorobot/teleop-capture/models/robot"
)

// Mapper converts leader joint vectors into follower target vectors. It is
// owned by the follower node: the node feeds it the follower's positions and
// the leader's published joint stream, and actuates whatever the mapper
// emits.
type Mapper struct {
	log      zerolog.Logger
	cfg      Config
	leader   robot.BusSpec
	follower robot.BusSpec
	scale    float64

	mutex            sync.Mutex
	status           Status
	followerBaseline []float64
	leaderBaseline   []float64
	followerActual   []int32
	lastWarning      time.Time
}

// NewMapper creates a mapper between the given leader and follower buses.
func NewMapper(log zerolog.Logger, leader robot.BusSpec, follower robot.BusSpec, options ...Option) (*Mapper, error) {

	cfg := DefaultConfig
	for _, option := range options {
		option(&cfg)
	}

	err := leader.Validate()
	if err != nil {
		return nil, fmt.Errorf("could not validate leader bus: %w", err)
	}
	err = follower.Validate()
	if err != nil {
		return nil, fmt.Errorf("could not validate follower bus: %w", err)
	}
	if len(leader.Joints) != len(follower.Joints) {
		return nil, fmt.Errorf("leader has %d joints but follower has %d: %w",
			len(leader.Joints), len(follower.Joints), robot.ErrConfigInvalid)
	}

	scale, err := robot.UnitScale(leader.Unit(), follower.Unit())
	if err != nil {
		return nil, fmt.Errorf("could not derive unit scale: %w", err)
	}

	m := Mapper{
		log:      log.With().Str("component", "teleop_mapper").Logger(),
		cfg:      cfg,
		leader:   leader,
		follower: follower,
		scale:    scale,
		status:   StatusAwaitingFollower,
	}

	return &m, nil
}

// Status returns the mapper's current state machine status.
func (m *Mapper) Status() Status {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.status
}

// ObserveFollower records the latest follower position reading. The first
// observation doubles as the follower baseline the relative mapping is
// anchored to.
func (m *Mapper) ObserveFollower(actual []int32) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.status == StatusEmergency {
		return robot.ErrEmergencyStop
	}
	if len(actual) != len(m.follower.Joints) {
		return fmt.Errorf("follower reading has %d joints, expected %d",
			len(actual), len(m.follower.Joints))
	}

	if m.followerBaseline == nil {
		m.followerBaseline = make([]float64, len(actual))
		for i, value := range actual {
			m.followerBaseline[i] = float64(value)
		}
		m.log.Info().Ints32("baseline", actual).Msg("follower baseline recorded")
	}

	m.followerActual = append(m.followerActual[:0], actual...)

	return nil
}

// Map converts one leader joint vector into a follower target vector. It
// returns ErrBaselineNotEstablished until both baselines exist; the caller
// swallows that and waits for the next input. Once the deviation monitor
// trips the emergency threshold, every further call returns
// ErrEmergencyStop.
func (m *Mapper) Map(leader []float32) ([]int32, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.status == StatusEmergency {
		return nil, robot.ErrEmergencyStop
	}
	if m.followerBaseline == nil {
		return nil, robot.ErrBaselineNotEstablished
	}
	if len(leader) != len(m.leader.Joints) {
		return nil, fmt.Errorf("leader reading has %d joints, expected %d",
			len(leader), len(m.leader.Joints))
	}

	// The direction sign is applied before baseline subtraction so that the
	// baseline itself stays in the follower's reference frame.
	signed := make([]float64, len(leader))
	for i, value := range leader {
		signed[i] = m.leader.Joints[i].Sign * float64(value)
	}

	if m.leaderBaseline == nil {
		m.leaderBaseline = signed
		m.status = StatusEstablished
		m.log.Info().
			Floats32("leader", leader).
			Floats64("follower_baseline", m.followerBaseline).
			Msg("mapping baseline established")
	}

	target := make([]int32, len(signed))
	for i := range signed {
		value := m.followerBaseline[i] + (signed[i]-m.leaderBaseline[i])*m.scale
		value = math.Min(math.Max(value, m.follower.Joints[i].RangeMin), m.follower.Joints[i].RangeMax)
		target[i] = int32(math.Round(value))
	}

	err := m.checkDeviation(target)
	if err != nil {
		return nil, err
	}

	return target, nil
}

// checkDeviation compares the computed targets against the latest follower
// reading. Must be called with the mutex held.
func (m *Mapper) checkDeviation(target []int32) error {

	// Without a fresh reading there is nothing to compare against.
	if m.followerActual == nil {
		return nil
	}

	toDegrees, err := robot.UnitScale(m.follower.Unit(), robot.UnitDegrees)
	if err != nil {
		// Range or raw unit buses carry no universal angle; the monitor
		// cannot judge them and lets the command through.
		return nil
	}

	worst := 0.0
	joint := -1
	for i := range target {
		deviation := math.Abs(float64(target[i])-float64(m.followerActual[i])) * toDegrees
		if deviation > worst {
			worst = deviation
			joint = i
		}
	}

	if worst >= m.cfg.EmergencyThreshold {
		m.status = StatusEmergency
		m.log.Error().
			Int("joint", joint).
			Float64("deviation_degrees", worst).
			Int32("target", target[joint]).
			Int32("actual", m.followerActual[joint]).
			Msg("emergency stop: joint deviation exceeds limit, commands suppressed until restart")
		return robot.ErrEmergencyStop
	}

	if worst >= m.cfg.WarningThreshold && time.Since(m.lastWarning) >= m.cfg.WarningInterval {
		m.lastWarning = time.Now()
		m.log.Warn().
			Int("joint", joint).
			Float64("deviation_degrees", worst).
			Msg("joint deviation above warning threshold")
	}

	return nil
}
