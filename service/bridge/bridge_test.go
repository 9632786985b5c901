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

package bridge

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorobot/teleop-capture/models/robot"
	"github.com/dorobot/teleop-capture/testing/mocks"
)

func testServer(t *testing.T) (*Server, *Client) {
	t.Helper()

	dir := t.TempDir()
	imagesPath := filepath.Join(dir, "images.sock")
	jointsPath := filepath.Join(dir, "joints.sock")

	server, err := NewServer(mocks.NoopLogger, imagesPath, jointsPath)
	require.NoError(t, err)
	t.Cleanup(func() { server.Close() })

	client := NewClient(mocks.NoopLogger, imagesPath, jointsPath)
	t.Cleanup(client.Disconnect)

	return server, client
}

func TestBridge_PullImage(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		server, client := testServer(t)

		img := mocks.GenericImage("top")
		server.Observe(robot.Envelope{
			Source:  "camera_top",
			Topic:   robot.ImageTopic("top"),
			Payload: robot.ImagePayload(img),
		})

		got, ok := client.PullImage("top")
		require.True(t, ok)
		assert.Equal(t, img, got)
	})

	t.Run("empty reply before first frame", func(t *testing.T) {
		t.Parallel()

		_, client := testServer(t)

		_, ok := client.PullImage("top")
		assert.False(t, ok)
	})
}

func TestBridge_PullVector(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		server, client := testServer(t)

		server.Observe(robot.Envelope{
			Source:  "follower",
			Topic:   robot.TopicFollowerJoints,
			Payload: robot.VectorPayload("joint", []float32{1, 2, 3}),
		})

		values, ok := client.PullVector(robot.TopicFollowerJoints)
		require.True(t, ok)
		assert.Equal(t, []float32{1, 2, 3}, values)
	})

	t.Run("latest value wins", func(t *testing.T) {
		t.Parallel()

		server, client := testServer(t)

		server.Observe(robot.Envelope{
			Topic:   robot.TopicFollowerJoints,
			Payload: robot.VectorPayload("joint", []float32{1}),
		})
		server.Observe(robot.Envelope{
			Topic:   robot.TopicFollowerJoints,
			Payload: robot.VectorPayload("joint", []float32{2}),
		})

		values, ok := client.PullVector(robot.TopicFollowerJoints)
		require.True(t, ok)
		assert.Equal(t, []float32{2}, values)
	})
}

func TestBridge_PushAction(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		server, client := testServer(t)

		require.True(t, client.PushAction([]float32{4, 5, 6}))

		select {
		case payload := <-server.Actions():
			assert.Equal(t, []float32{4, 5, 6}, payload.Values)
		case <-time.After(time.Second):
			t.Fatal("no action surfaced")
		}
	})

	t.Run("push on non-action topic is rejected", func(t *testing.T) {
		t.Parallel()

		server, client := testServer(t)

		reply, ok := client.exchange(&client.joints, client.jointsPath, Request{
			Topic:   robot.TopicFollowerJoints,
			Payload: robot.VectorPayload("joint", []float32{1}),
		})
		require.True(t, ok)
		assert.True(t, reply.Empty())

		select {
		case <-server.Actions():
			t.Fatal("rejected push must not surface")
		case <-time.After(50 * time.Millisecond):
		}
	})
}

func TestClient_SilentTimeout(t *testing.T) {
	t.Parallel()

	// No server: the client must fail quietly, not block or panic.
	client := NewClient(mocks.NoopLogger, "/nonexistent/images.sock", "/nonexistent/joints.sock")
	defer client.Disconnect()

	_, ok := client.PullImage("top")
	assert.False(t, ok)
	assert.False(t, client.PushAction([]float32{1}))
}

func TestServer_CloseRemovesSocketFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	imagesPath := filepath.Join(dir, "images.sock")
	jointsPath := filepath.Join(dir, "joints.sock")

	server, err := NewServer(mocks.NoopLogger, imagesPath, jointsPath)
	require.NoError(t, err)
	require.NoError(t, server.Close())

	assert.NoFileExists(t, imagesPath)
	assert.NoFileExists(t, jointsPath)
}
