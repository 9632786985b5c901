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

package bus

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorobot/teleop-capture/models/robot"
	"github.com/dorobot/teleop-capture/testing/mocks"
)

func TestPublishSubscribe(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "follower.sock")
		sub, err := NewSubscriber(mocks.NoopLogger, path)
		require.NoError(t, err)
		defer sub.Close()

		pub := NewPublisher(mocks.NoopLogger, "leader", Wiring{
			robot.TopicLeaderJoints: {path},
		})
		defer pub.Close()

		pub.Publish(robot.TopicLeaderJoints, robot.VectorPayload("joint", []float32{1, 2, 3}))

		envelope, err := sub.Receive(time.Second)
		require.NoError(t, err)
		assert.Equal(t, "leader", envelope.Source)
		assert.Equal(t, robot.TopicLeaderJoints, envelope.Topic)
		assert.Equal(t, []float32{1, 2, 3}, envelope.Payload.Values)
	})

	t.Run("image payload survives transport", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "bridge.sock")
		sub, err := NewSubscriber(mocks.NoopLogger, path)
		require.NoError(t, err)
		defer sub.Close()

		pub := NewPublisher(mocks.NoopLogger, "camera_top", Wiring{
			robot.ImageTopic("top"): {path},
		})
		defer pub.Close()

		img := robot.Image{Camera: "top", Width: 4, Height: 2, Pixels: make([]byte, 4*2*3)}
		img.Pixels[0] = 0xAB
		pub.Publish(robot.ImageTopic("top"), robot.ImagePayload(img))

		envelope, err := sub.Receive(time.Second)
		require.NoError(t, err)
		got, err := envelope.Payload.AsImage()
		require.NoError(t, err)
		assert.Equal(t, img, got)
	})

	t.Run("receive times out without data", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "idle.sock")
		sub, err := NewSubscriber(mocks.NoopLogger, path)
		require.NoError(t, err)
		defer sub.Close()

		_, err = sub.Receive(20 * time.Millisecond)
		assert.ErrorIs(t, err, os.ErrDeadlineExceeded)
	})

	t.Run("publish to missing subscriber drops silently", func(t *testing.T) {
		t.Parallel()

		pub := NewPublisher(mocks.NoopLogger, "leader", Wiring{
			robot.TopicLeaderJoints: {filepath.Join(t.TempDir(), "absent.sock")},
		})
		defer pub.Close()

		// Must not panic or block.
		pub.Publish(robot.TopicLeaderJoints, robot.VectorPayload("joint", nil))
	})

	t.Run("slow subscriber keeps newest messages", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "slow.sock")
		sub, err := NewSubscriber(mocks.NoopLogger, path)
		require.NoError(t, err)
		defer sub.Close()

		pub := NewPublisher(mocks.NoopLogger, "leader", Wiring{
			robot.TopicLeaderJoints: {path},
		})
		defer pub.Close()

		for i := 0; i < subscriberBacklog*4; i++ {
			pub.Publish(robot.TopicLeaderJoints, robot.VectorPayload("joint", []float32{float32(i)}))
		}

		// Allow the consumer goroutine to drain the connection.
		time.Sleep(100 * time.Millisecond)

		var last float32 = -1
		for {
			envelope, err := sub.Receive(50 * time.Millisecond)
			if err != nil {
				break
			}
			require.Greater(t, envelope.Payload.Values[0], last)
			last = envelope.Payload.Values[0]
		}
		assert.Equal(t, float32(subscriberBacklog*4-1), last)
	})
}

func TestSubscriber_CloseRemovesSocketFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "node.sock")
	sub, err := NewSubscriber(mocks.NoopLogger, path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, sub.Close())

	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
