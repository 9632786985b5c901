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
	"time"
)

// Defaults shared across the suite.
const (
	// DefaultFPS is the dataflow timer rate; one tick every ~33 ms.
	DefaultFPS = 30

	// DefaultTick is the timer period corresponding to DefaultFPS.
	DefaultTick = 33 * time.Millisecond

	// DefaultMemoryLimitGB is the auto-stop threshold for process RSS.
	DefaultMemoryLimitGB = 19.0

	// MemoryCheckInterval is how many ticks pass between RSS samples; at 30
	// FPS this is roughly three seconds.
	MemoryCheckInterval = 100

	// DeviationWarning and DeviationEmergency are the teleop safety
	// thresholds, in degrees.
	DeviationWarning   = 30.0
	DeviationEmergency = 60.0

	// TrainingTimeout bounds one offload polling session.
	TrainingTimeout = 120 * time.Minute

	// StatusPollInterval is how often the offload orchestrator polls the
	// training service while the transaction is non-terminal.
	StatusPollInterval = 10 * time.Second

	// FramePattern is the printf pattern for per-frame PNG file names within
	// an episode's camera directory.
	FramePattern = "frame_%06d.png"
)

// Bus topics. Image topics are formed with ImageTopic.
const (
	TopicLeaderJoints   = "joint/leader"
	TopicFollowerJoints = "joint/follower"
	TopicActionCommand  = "action/command"
)

// ImageTopic returns the bus topic carrying frames of the named camera.
func ImageTopic(camera string) string {
	return "image/" + camera
}
