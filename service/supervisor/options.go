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

package supervisor

import (
	"time"
)

// DefaultConfig is the default supervisor configuration.
var DefaultConfig = Config{
	NodeBinary: "teleop-node",
	SocketWait: 30 * time.Second,
	Settle:     5 * time.Second,
	StopGrace:  3 * time.Second,
	TermGrace:  2 * time.Second,
	KillGrace:  5 * time.Second,
}

// Config tunes the supervisor's startup and shutdown sequences. StopGrace
// is the device-release window after a graceful stop request; TermGrace
// and KillGrace bound the escalation from SIGTERM to SIGKILL.
type Config struct {
	NodeBinary string
	SocketWait time.Duration
	Settle     time.Duration
	StopGrace  time.Duration
	TermGrace  time.Duration
	KillGrace  time.Duration
}

// Option is a supervisor configuration option.
type Option func(*Config)

// WithNodeBinary sets the executable spawned for each graph node.
func WithNodeBinary(binary string) Option {
	return func(cfg *Config) {
		cfg.NodeBinary = binary
	}
}

// WithSocketWait sets how long startup waits for the bridge sockets.
func WithSocketWait(wait time.Duration) Option {
	return func(cfg *Config) {
		cfg.SocketWait = wait
	}
}

// WithSettle sets the delay between socket readiness and the permission
// re-check.
func WithSettle(settle time.Duration) Option {
	return func(cfg *Config) {
		cfg.Settle = settle
	}
}

// WithStopGrace sets the device-release window after a stop request.
func WithStopGrace(grace time.Duration) Option {
	return func(cfg *Config) {
		cfg.StopGrace = grace
	}
}

// WithTermGrace sets the wait between SIGTERM and escalation.
func WithTermGrace(grace time.Duration) Option {
	return func(cfg *Config) {
		cfg.TermGrace = grace
	}
}

// WithKillGrace sets the deadline after which nodes are killed outright.
func WithKillGrace(grace time.Duration) Option {
	return func(cfg *Config) {
		cfg.KillGrace = grace
	}
}
