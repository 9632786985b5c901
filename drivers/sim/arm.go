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

// Package sim provides hardware-free arm and camera drivers. They let a
// full capture graph run on a development machine, with the leader arm
// tracing a slow trajectory and the follower echoing what it is told.
package sim

import (
	"fmt"
	"math"
	"sync"
)

// motionAmplitude and motionPeriod shape the synthetic leader trajectory,
// in milli-degrees and ticks respectively.
const (
	motionAmplitude = 30000.0
	motionPeriod    = 300.0
)

// Arm is an in-memory motor bus. With motion enabled each read advances a
// sine trajectory; otherwise reads return the last written targets.
type Arm struct {
	mu        sync.Mutex
	open      bool
	motion    bool
	step      int
	positions []int32
}

// NewArm creates a simulated arm with the given joint count. A follower
// holds position until written; pass motion for a leader that moves on
// its own.
func NewArm(joints int, motion bool) *Arm {

	a := Arm{
		motion:    motion,
		positions: make([]int32, joints),
	}

	return &a
}

func (a *Arm) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.open {
		return fmt.Errorf("arm already open")
	}
	a.open = true

	return nil
}

func (a *Arm) ReadPositions() ([]int32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.open {
		return nil, fmt.Errorf("arm not open")
	}

	if a.motion {
		a.step++
		phase := 2 * math.Pi * float64(a.step) / motionPeriod
		for i := range a.positions {
			// Joints move out of phase so the trajectory exercises every
			// column of the dataset.
			a.positions[i] = int32(motionAmplitude * math.Sin(phase+float64(i)))
		}
	}

	out := make([]int32, len(a.positions))
	copy(out, a.positions)

	return out, nil
}

func (a *Arm) WritePositions(targets []int32) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.open {
		return fmt.Errorf("arm not open")
	}
	if len(targets) != len(a.positions) {
		return fmt.Errorf("joint count mismatch (%d != %d)", len(targets), len(a.positions))
	}

	copy(a.positions, targets)

	return nil
}

func (a *Arm) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.open = false

	return nil
}
