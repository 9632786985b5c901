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

package offload

import (
	"time"

	"github.com/dorobot/teleop-capture/models/robot"
)

// DefaultConfig is the default configuration for an offload session.
var DefaultConfig = Config{
	PollInterval: robot.StatusPollInterval,
	Timeout:      robot.TrainingTimeout,
	SkipUpload:   false,
	DownloadOnly: false,
}

// Config is the configuration of an offload session.
type Config struct {
	PollInterval time.Duration
	Timeout      time.Duration
	SkipUpload   bool
	DownloadOnly bool
}

// Option is a session configuration option.
type Option func(*Config)

// WithPollInterval sets how often the transaction status is polled.
func WithPollInterval(interval time.Duration) Option {
	return func(cfg *Config) {
		cfg.PollInterval = interval
	}
}

// WithTimeout sets the deadline for the whole polling session.
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *Config) {
		cfg.Timeout = timeout
	}
}

// WithSkipUpload resumes a session after a completed upload; it starts at
// the training trigger.
func WithSkipUpload(skip bool) Option {
	return func(cfg *Config) {
		cfg.SkipUpload = skip
	}
}

// WithDownloadOnly resumes a session after completed training; it starts
// at the model download.
func WithDownloadOnly(only bool) Option {
	return func(cfg *Config) {
		cfg.DownloadOnly = only
	}
}
