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
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorobot/teleop-capture/models/robot"
	"github.com/dorobot/teleop-capture/service/bus"
	"github.com/dorobot/teleop-capture/service/teleop"
	"github.com/dorobot/teleop-capture/testing/mocks"
)

func testLink(t *testing.T, topic string) (*bus.Subscriber, *bus.Publisher) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "link.sock")
	sub, err := bus.NewSubscriber(mocks.NoopLogger, path)
	require.NoError(t, err)
	t.Cleanup(func() { sub.Close() })

	pub := bus.NewPublisher(mocks.NoopLogger, "test", bus.Wiring{topic: {path}})
	t.Cleanup(func() { pub.Close() })

	return sub, pub
}

func TestCameraRole(t *testing.T) {
	t.Parallel()

	sub, pub := testLink(t, robot.ImageTopic("top"))

	camera := mocks.BaselineCamera(t)
	role := NewCameraRole(mocks.NoopLogger, "top", camera)

	require.NoError(t, role.Start())
	require.NoError(t, role.Tick(pub))

	envelope, err := sub.Receive(time.Second)
	require.NoError(t, err)
	assert.Equal(t, robot.ImageTopic("top"), envelope.Topic)

	img, err := envelope.Payload.AsImage()
	require.NoError(t, err)
	assert.Equal(t, mocks.GenericImage("top"), img)

	require.NoError(t, role.Stop())
}

func TestLeaderRole(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		sub, pub := testLink(t, robot.TopicLeaderJoints)

		arm := mocks.BaselineArm(t)
		arm.ReadPositionsFunc = func() ([]int32, error) {
			// 90 degrees in milli-degrees.
			return []int32{90000}, nil
		}

		spec := robot.BusSpec{
			Name: "leader",
			Joints: []robot.JointSpec{
				{ID: 1, Sign: 1, RangeMin: -math.Pi, RangeMax: math.Pi, Unit: robot.UnitRadians},
			},
		}

		role, err := NewLeaderRole(mocks.NoopLogger, arm, spec)
		require.NoError(t, err)

		require.NoError(t, role.Start())
		require.NoError(t, role.Tick(pub))

		envelope, err := sub.Receive(time.Second)
		require.NoError(t, err)
		require.Len(t, envelope.Payload.Values, 1)
		assert.InDelta(t, math.Pi/2, float64(envelope.Payload.Values[0]), 0.001)
	})

	t.Run("handles read failure", func(t *testing.T) {
		t.Parallel()

		_, pub := testLink(t, robot.TopicLeaderJoints)

		arm := mocks.BaselineArm(t)
		arm.ReadPositionsFunc = func() ([]int32, error) {
			return nil, mocks.GenericError
		}

		spec := robot.BusSpec{
			Name: "leader",
			Joints: []robot.JointSpec{
				{ID: 1, Sign: 1, Unit: robot.UnitRadians},
			},
		}

		role, err := NewLeaderRole(mocks.NoopLogger, arm, spec)
		require.NoError(t, err)

		assert.Error(t, role.Tick(pub))
	})
}

func TestFollowerRole(t *testing.T) {
	leaderSpec := robot.BusSpec{
		Name: "leader",
		Joints: []robot.JointSpec{
			{ID: 1, Sign: 1, RangeMin: -math.Pi, RangeMax: math.Pi, Unit: robot.UnitRadians},
		},
	}
	followerSpec := robot.BusSpec{
		Name: "follower",
		Joints: []robot.JointSpec{
			{ID: 1, Sign: 1, RangeMin: -180000, RangeMax: 180000, Unit: robot.UnitMilliDegrees},
		},
	}

	t.Run("maps leader input to actuation", func(t *testing.T) {
		t.Parallel()

		sub, pub := testLink(t, robot.TopicActionCommand)

		var written []int32
		arm := mocks.BaselineArm(t)
		arm.ReadPositionsFunc = func() ([]int32, error) {
			return []int32{10000}, nil
		}
		arm.WritePositionsFunc = func(targets []int32) error {
			written = targets
			return nil
		}

		mapper, err := teleop.NewMapper(mocks.NoopLogger, leaderSpec, followerSpec)
		require.NoError(t, err)

		role, err := NewFollowerRole(mocks.NoopLogger, arm, followerSpec, mapper)
		require.NoError(t, err)
		require.NoError(t, role.Start())

		// First input anchors the baseline and actuates it unchanged.
		input := robot.Envelope{
			Topic:   robot.TopicLeaderJoints,
			Payload: robot.VectorPayload("joint", []float32{0.5}),
		}
		require.NoError(t, role.Input(input, pub))
		assert.Equal(t, []int32{10000}, written)

		envelope, err := sub.Receive(time.Second)
		require.NoError(t, err)
		assert.Equal(t, robot.TopicActionCommand, envelope.Topic)
		assert.Equal(t, []float32{10000}, envelope.Payload.Values)
	})

	t.Run("actuates injected action directly", func(t *testing.T) {
		t.Parallel()

		_, pub := testLink(t, robot.TopicActionCommand)

		var written []int32
		arm := mocks.BaselineArm(t)
		arm.ReadPositionsFunc = func() ([]int32, error) {
			return []int32{0}, nil
		}
		arm.WritePositionsFunc = func(targets []int32) error {
			written = targets
			return nil
		}

		mapper, err := teleop.NewMapper(mocks.NoopLogger, leaderSpec, followerSpec)
		require.NoError(t, err)

		role, err := NewFollowerRole(mocks.NoopLogger, arm, followerSpec, mapper)
		require.NoError(t, err)
		require.NoError(t, role.Start())

		input := robot.Envelope{
			Topic:   robot.TopicActionCommand,
			Payload: robot.VectorPayload("action", []float32{1234}),
		}
		require.NoError(t, role.Input(input, pub))
		assert.Equal(t, []int32{1234}, written)
	})

	t.Run("publishes joint state on tick", func(t *testing.T) {
		t.Parallel()

		sub, pub := testLink(t, robot.TopicFollowerJoints)

		arm := mocks.BaselineArm(t)
		arm.ReadPositionsFunc = func() ([]int32, error) {
			return []int32{42000}, nil
		}

		mapper, err := teleop.NewMapper(mocks.NoopLogger, leaderSpec, followerSpec)
		require.NoError(t, err)

		role, err := NewFollowerRole(mocks.NoopLogger, arm, followerSpec, mapper)
		require.NoError(t, err)
		require.NoError(t, role.Start())
		require.NoError(t, role.Tick(pub))

		envelope, err := sub.Receive(time.Second)
		require.NoError(t, err)
		assert.Equal(t, []float32{42000}, envelope.Payload.Values)
	})
}
