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

import (
	"time"

	"github.com/dorobot/teleop-capture/models/robot"
)

// Config is the configuration of the teleop mapper.
type Config struct {
	WarningThreshold   float64
	EmergencyThreshold float64
	WarningInterval    time.Duration
}

// DefaultConfig is the default configuration for the teleop mapper.
// Thresholds are expressed in degrees of joint deviation.
var DefaultConfig = Config{
	WarningThreshold:   robot.DeviationWarning,
	EmergencyThreshold: robot.DeviationEmergency,
	WarningInterval:    time.Second,
}

// Option is an option that can be given to the mapper's constructor to
// change its configuration.
type Option func(*Config)

// WithWarningThreshold sets the joint deviation, in degrees, above which
// the mapper logs a warning while still emitting the command.
func WithWarningThreshold(degrees float64) Option {
	return func(cfg *Config) {
		cfg.WarningThreshold = degrees
	}
}

// WithEmergencyThreshold sets the joint deviation, in degrees, above which
// the mapper stops emitting commands permanently.
func WithEmergencyThreshold(degrees float64) Option {
	return func(cfg *Config) {
		cfg.EmergencyThreshold = degrees
	}
}

// WithWarningInterval sets the minimum delay between two deviation warning
// log entries.
func WithWarningInterval(interval time.Duration) Option {
	return func(cfg *Config) {
		cfg.WarningInterval = interval
	}
}
