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

package saver

import (
	"time"

	"github.com/dorobot/teleop-capture/metrics/rcrowley"
)

// Config is the configuration of the episode saver.
type Config struct {
	Workers       int
	QueueSize     int
	Attempts      int
	FlushFloor    time.Duration
	FlushPerImage time.Duration
	StopPoll      time.Duration
	TimeMetrics   *rcrowley.Time
	SizeMetrics   *rcrowley.Size
}

// DefaultConfig is the default configuration for the episode saver.
var DefaultConfig = Config{
	Workers:       1,
	QueueSize:     16,
	Attempts:      3,
	FlushFloor:    120 * time.Second,
	FlushPerImage: 500 * time.Millisecond,
	StopPoll:      500 * time.Millisecond,
}

// Option is an option that can be given to the saver's constructor to
// change its configuration.
type Option func(*Config)

// WithWorkers sets the number of concurrent save workers.
func WithWorkers(workers int) Option {
	return func(cfg *Config) {
		cfg.Workers = workers
	}
}

// WithQueueSize sets the capacity of the save queue.
func WithQueueSize(size int) Option {
	return func(cfg *Config) {
		cfg.QueueSize = size
	}
}

// WithAttempts sets how many times a failing save is attempted in total.
func WithAttempts(attempts int) Option {
	return func(cfg *Config) {
		cfg.Attempts = attempts
	}
}

// WithFlushFloor sets the minimum image flush wait, regardless of episode
// size.
func WithFlushFloor(floor time.Duration) Option {
	return func(cfg *Config) {
		cfg.FlushFloor = floor
	}
}

// WithFlushPerImage sets the per-image component of the flush wait.
func WithFlushPerImage(perImage time.Duration) Option {
	return func(cfg *Config) {
		cfg.FlushPerImage = perImage
	}
}

// WithStopPoll sets the interval at which Stop re-checks the pending work.
func WithStopPoll(poll time.Duration) Option {
	return func(cfg *Config) {
		cfg.StopPoll = poll
	}
}

// WithTimeMetrics registers a duration collector for save and encode
// operations.
func WithTimeMetrics(collector *rcrowley.Time) Option {
	return func(cfg *Config) {
		cfg.TimeMetrics = collector
	}
}

// WithSizeMetrics registers a byte-count collector for the columnar files.
func WithSizeMetrics(collector *rcrowley.Size) Option {
	return func(cfg *Config) {
		cfg.SizeMetrics = collector
	}
}
