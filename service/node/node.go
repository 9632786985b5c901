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

// Package node implements the runtime every dataflow node process runs: a
// state machine around a timer tick and an input stream, with a role
// plugged in for the device-specific work.
package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dorobot/teleop-capture/models/robot"
	"github.com/dorobot/teleop-capture/service/bus"
)

// communicationWindow is the window within which consecutive failures count
// towards degradation.
const communicationWindow = time.Second

// startupRetryDelay separates device open attempts.
const startupRetryDelay = 500 * time.Millisecond

// inputDrainTimeout is the per-message wait when draining pending inputs at
// the start of a tick.
const inputDrainTimeout = time.Millisecond

// Role is the device-specific behavior a node runtime hosts.
type Role interface {
	Name() string
	Start() error
	Tick(pub *bus.Publisher) error
	Input(envelope robot.Envelope, pub *bus.Publisher) error
	Stop() error
}

// Node drives one role through the runtime state machine. Run blocks until
// the node has fully stopped.
type Node struct {
	log  zerolog.Logger
	cfg  Config
	role Role
	sub  *bus.Subscriber
	pub  *bus.Publisher

	mutex  sync.Mutex
	status Status

	stop     chan struct{}
	stopOnce sync.Once

	failure       error
	errStreak     int
	firstErr      time.Time
	degradedSince time.Time
}

// NewNode creates a node runtime for the given role. The subscriber may be
// nil for roles without inputs.
func NewNode(log zerolog.Logger, role Role, sub *bus.Subscriber, pub *bus.Publisher, options ...Option) *Node {

	cfg := DefaultConfig
	for _, option := range options {
		option(&cfg)
	}

	n := Node{
		log:    log.With().Str("component", "node").Str("role", role.Name()).Logger(),
		cfg:    cfg,
		role:   role,
		sub:    sub,
		pub:    pub,
		status: StatusStarting,
		stop:   make(chan struct{}),
	}

	return &n
}

// Status returns the runtime's current state machine status.
func (n *Node) Status() Status {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return n.status
}

// Stop requests a graceful stop. It returns immediately; Run drains and
// returns once the node has stopped.
func (n *Node) Stop() {
	n.stopOnce.Do(func() {
		close(n.stop)
	})
}

// Run drives the state machine until the node stops. It returns the fatal
// failure that forced the stop, if any.
func (n *Node) Run(ctx context.Context) error {
	for {
		var err error
		switch n.Status() {
		case StatusStarting:
			err = n.start()
		case StatusConnecting:
			err = n.connect()
		case StatusRunning:
			err = n.process(ctx)
		case StatusDraining:
			err = n.drain()
		case StatusStopped:
			return n.failure
		}
		if err != nil {
			if n.failure == nil {
				n.failure = err
			}
			if n.Status() == StatusStopped {
				return n.failure
			}
			n.log.Error().Err(err).Msg("node failure, draining")
			n.setStatus(StatusDraining)
		}
	}
}

func (n *Node) setStatus(status Status) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.status = status
}

// start opens the role's devices, retrying a limited number of times.
func (n *Node) start() error {
	if n.Status() != StatusStarting {
		return fmt.Errorf("invalid status for starting node (%s)", n.Status())
	}

	var err error
	for attempt := 1; attempt <= n.cfg.StartupRetries; attempt++ {
		err = n.role.Start()
		if err == nil {
			n.setStatus(StatusConnecting)
			return nil
		}
		n.log.Warn().Err(err).Int("attempt", attempt).Msg("could not open devices")
		time.Sleep(startupRetryDelay)
	}

	return fmt.Errorf("could not start role after %d attempts: %w (%s)",
		n.cfg.StartupRetries, robot.ErrNodeStartup, err)
}

// connect settles the node into the graph. Publisher connections are dialed
// lazily on first publish, so there is nothing to wait for here.
func (n *Node) connect() error {
	if n.Status() != StatusConnecting {
		return fmt.Errorf("invalid status for connecting node (%s)", n.Status())
	}

	n.log.Info().Dur("tick", n.cfg.TickInterval).Msg("node entering graph")
	n.setStatus(StatusRunning)
	return nil
}

// process runs one tick cycle: drain pending inputs, run the role's tick
// handler, then sleep out the remainder of the period. A cycle that runs
// over its period only logs; the next tick proceeds immediately.
func (n *Node) process(ctx context.Context) error {
	if n.Status() != StatusRunning {
		return fmt.Errorf("invalid status for processing tick (%s)", n.Status())
	}

	select {
	case <-ctx.Done():
		n.setStatus(StatusDraining)
		return nil
	case <-n.stop:
		n.setStatus(StatusDraining)
		return nil
	default:
	}

	begin := time.Now()

	if n.sub != nil {
		for {
			envelope, err := n.sub.Receive(inputDrainTimeout)
			if err != nil {
				break
			}
			err = n.role.Input(envelope, n.pub)
			fatal := n.account(err)
			if fatal != nil {
				return fatal
			}
		}
	}

	err := n.role.Tick(n.pub)
	fatal := n.account(err)
	if fatal != nil {
		return fatal
	}

	elapsed := time.Since(begin)
	if elapsed > n.cfg.TickInterval {
		n.log.Warn().Dur("elapsed", elapsed).Dur("tick", n.cfg.TickInterval).
			Msg("tick handler overran its period")
		return nil
	}

	select {
	case <-time.After(n.cfg.TickInterval - elapsed):
	case <-ctx.Done():
		n.setStatus(StatusDraining)
	case <-n.stop:
		n.setStatus(StatusDraining)
	}

	return nil
}

// account folds one handler result into the communication failure tracking.
// Three consecutive failures within one second degrade the node; staying
// degraded past the limit is fatal.
func (n *Node) account(err error) error {
	if err == nil {
		n.errStreak = 0
		if !n.degradedSince.IsZero() {
			n.degradedSince = time.Time{}
			n.log.Info().Msg("node recovered from degraded state")
		}
		return nil
	}

	now := time.Now()
	if n.errStreak == 0 || now.Sub(n.firstErr) > communicationWindow {
		n.errStreak = 1
		n.firstErr = now
	} else {
		n.errStreak++
	}

	n.log.Warn().Err(err).Int("streak", n.errStreak).Msg("handler failure")

	if n.errStreak >= 3 && n.degradedSince.IsZero() {
		n.degradedSince = now
		n.log.Warn().Msg("node degraded after repeated failures")
	}

	if !n.degradedSince.IsZero() && now.Sub(n.degradedSince) > n.cfg.DegradedLimit {
		return fmt.Errorf("node degraded for more than %s: %w",
			n.cfg.DegradedLimit, robot.ErrNodeCommunication)
	}

	return nil
}

// drain releases the role's devices within the drain budget and closes the
// node's sockets.
func (n *Node) drain() error {
	if n.Status() != StatusDraining {
		return fmt.Errorf("invalid status for draining node (%s)", n.Status())
	}

	released := make(chan error, 1)
	go func() {
		released <- n.role.Stop()
	}()

	select {
	case err := <-released:
		if err != nil {
			n.log.Warn().Err(err).Msg("could not release devices cleanly")
		}
	case <-time.After(n.cfg.DrainBudget):
		n.log.Warn().Dur("budget", n.cfg.DrainBudget).Msg("device release exceeded drain budget")
	}

	if n.sub != nil {
		_ = n.sub.Close()
	}
	if n.pub != nil {
		_ = n.pub.Close()
	}

	n.log.Info().Msg("node stopped")
	n.setStatus(StatusStopped)
	return nil
}
