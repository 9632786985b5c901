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

package record

import (
	"time"

	"github.com/dorobot/teleop-capture/metrics/rcrowley"
	"github.com/dorobot/teleop-capture/models/robot"
)

// Config is the configuration of the record loop.
type Config struct {
	TickInterval  time.Duration
	SkipEncoding  bool
	MemoryLimitGB float64
	MemoryEvery   int
	MemoryProbe   func() (uint64, error)
	TimeMetrics   *rcrowley.Time
}

// DefaultConfig is the default configuration for the record loop.
var DefaultConfig = Config{
	TickInterval:  robot.DefaultTick,
	SkipEncoding:  false,
	MemoryLimitGB: robot.DefaultMemoryLimitGB,
	MemoryEvery:   robot.MemoryCheckInterval,
}

// Option is an option that can be given to the loop's constructor to change
// its configuration.
type Option func(*Config)

// WithTickInterval sets the loop's tick period.
func WithTickInterval(interval time.Duration) Option {
	return func(cfg *Config) {
		cfg.TickInterval = interval
	}
}

// WithSkipEncoding marks queued episodes to bypass video encoding, keeping
// the raw PNG frames.
func WithSkipEncoding(skip bool) Option {
	return func(cfg *Config) {
		cfg.SkipEncoding = skip
	}
}

// WithMemoryLimitGB sets the RSS threshold that auto-stops the session.
func WithMemoryLimitGB(limit float64) Option {
	return func(cfg *Config) {
		cfg.MemoryLimitGB = limit
	}
}

// WithMemoryEvery sets how many ticks pass between RSS samples.
func WithMemoryEvery(ticks int) Option {
	return func(cfg *Config) {
		cfg.MemoryEvery = ticks
	}
}

// WithMemoryProbe overrides how the process RSS is read.
func WithMemoryProbe(probe func() (uint64, error)) Option {
	return func(cfg *Config) {
		cfg.MemoryProbe = probe
	}
}

// WithTimeMetrics registers a duration collector for the tick handler.
func WithTimeMetrics(collector *rcrowley.Time) Option {
	return func(cfg *Config) {
		cfg.TimeMetrics = collector
	}
}
