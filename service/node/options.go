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
	"time"

	"github.com/dorobot/teleop-capture/models/robot"
)

// Config is the configuration of the node runtime.
type Config struct {
	TickInterval   time.Duration
	StartupRetries int
	DrainBudget    time.Duration
	DegradedLimit  time.Duration
}

// DefaultConfig is the default configuration for the node runtime.
var DefaultConfig = Config{
	TickInterval:   robot.DefaultTick,
	StartupRetries: 3,
	DrainBudget:    2 * time.Second,
	DegradedLimit:  5 * time.Second,
}

// Option is an option that can be given to the runtime's constructor to
// change its configuration.
type Option func(*Config)

// WithTickInterval sets the period of the timer tick.
func WithTickInterval(interval time.Duration) Option {
	return func(cfg *Config) {
		cfg.TickInterval = interval
	}
}

// WithStartupRetries sets how many times a failing device open is retried
// before startup is abandoned.
func WithStartupRetries(retries int) Option {
	return func(cfg *Config) {
		cfg.StartupRetries = retries
	}
}

// WithDrainBudget sets how long draining may take before device release is
// abandoned.
func WithDrainBudget(budget time.Duration) Option {
	return func(cfg *Config) {
		cfg.DrainBudget = budget
	}
}

// WithDegradedLimit sets how long the runtime may stay degraded before the
// failure becomes fatal.
func WithDegradedLimit(limit time.Duration) Option {
	return func(cfg *Config) {
		cfg.DegradedLimit = limit
	}
}
