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
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorobot/teleop-capture/models/robot"
	"github.com/dorobot/teleop-capture/service/bus"
	"github.com/dorobot/teleop-capture/testing/mocks"
)

type testRole struct {
	StartFunc func() error
	TickFunc  func(pub *bus.Publisher) error
	InputFunc func(envelope robot.Envelope, pub *bus.Publisher) error
	StopFunc  func() error
}

func baselineRole() *testRole {
	return &testRole{
		StartFunc: func() error { return nil },
		TickFunc:  func(*bus.Publisher) error { return nil },
		InputFunc: func(robot.Envelope, *bus.Publisher) error { return nil },
		StopFunc:  func() error { return nil },
	}
}

func (r *testRole) Name() string { return "test" }
func (r *testRole) Start() error { return r.StartFunc() }
func (r *testRole) Tick(pub *bus.Publisher) error {
	return r.TickFunc(pub)
}
func (r *testRole) Input(envelope robot.Envelope, pub *bus.Publisher) error {
	return r.InputFunc(envelope, pub)
}
func (r *testRole) Stop() error { return r.StopFunc() }

func TestNode_Run(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		var ticks uint64
		role := baselineRole()
		role.TickFunc = func(*bus.Publisher) error {
			atomic.AddUint64(&ticks, 1)
			return nil
		}

		n := NewNode(mocks.NoopLogger, role, nil, nil, WithTickInterval(time.Millisecond))

		done := make(chan error, 1)
		go func() {
			done <- n.Run(context.Background())
		}()

		require.Eventually(t, func() bool {
			return atomic.LoadUint64(&ticks) >= 5
		}, time.Second, time.Millisecond)

		n.Stop()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("node did not stop")
		}
		assert.Equal(t, StatusStopped, n.Status())
	})

	t.Run("startup gives up after retries", func(t *testing.T) {
		t.Parallel()

		var attempts uint64
		role := baselineRole()
		role.StartFunc = func() error {
			atomic.AddUint64(&attempts, 1)
			return mocks.GenericError
		}

		n := NewNode(mocks.NoopLogger, role, nil, nil, WithStartupRetries(3))

		err := n.Run(context.Background())
		assert.ErrorIs(t, err, robot.ErrNodeStartup)
		assert.Equal(t, uint64(3), atomic.LoadUint64(&attempts))
		assert.Equal(t, StatusStopped, n.Status())
	})

	t.Run("persistent failures become fatal", func(t *testing.T) {
		t.Parallel()

		role := baselineRole()
		role.TickFunc = func(*bus.Publisher) error {
			return mocks.GenericError
		}

		n := NewNode(mocks.NoopLogger, role, nil, nil,
			WithTickInterval(time.Millisecond),
			WithDegradedLimit(50*time.Millisecond),
		)

		done := make(chan error, 1)
		go func() {
			done <- n.Run(context.Background())
		}()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, robot.ErrNodeCommunication)
		case <-time.After(5 * time.Second):
			t.Fatal("node did not fail")
		}
	})

	t.Run("context cancellation drains the node", func(t *testing.T) {
		t.Parallel()

		var stopped uint64
		role := baselineRole()
		role.StopFunc = func() error {
			atomic.AddUint64(&stopped, 1)
			return nil
		}

		ctx, cancel := context.WithCancel(context.Background())

		n := NewNode(mocks.NoopLogger, role, nil, nil, WithTickInterval(time.Millisecond))

		done := make(chan error, 1)
		go func() {
			done <- n.Run(ctx)
		}()

		time.Sleep(10 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("node did not stop")
		}
		assert.Equal(t, uint64(1), atomic.LoadUint64(&stopped))
	})
}
