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
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorobot/teleop-capture/dataset"
	"github.com/dorobot/teleop-capture/models/robot"
	"github.com/dorobot/teleop-capture/service/bridge"
	"github.com/dorobot/teleop-capture/service/imagewriter"
	"github.com/dorobot/teleop-capture/testing/mocks"
)

type queuerMock struct {
	sync.Mutex
	tasks []dataset.SaveTask
}

func (q *queuerMock) QueueSave(task dataset.SaveTask) error {
	q.Lock()
	defer q.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *queuerMock) queued() []dataset.SaveTask {
	q.Lock()
	defer q.Unlock()
	return append([]dataset.SaveTask(nil), q.tasks...)
}

type fixture struct {
	server *bridge.Server
	client *bridge.Client
	buffer *dataset.EpisodeBuffer
	layout dataset.Layout
	images *imagewriter.Pool
	saver  *queuerMock
}

func testFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	server, err := bridge.NewServer(mocks.NoopLogger,
		filepath.Join(dir, "images.sock"), filepath.Join(dir, "joints.sock"))
	require.NoError(t, err)
	t.Cleanup(func() { server.Close() })

	client := bridge.NewClient(mocks.NoopLogger,
		filepath.Join(dir, "images.sock"), filepath.Join(dir, "joints.sock"))
	t.Cleanup(client.Disconnect)

	f := fixture{
		server: server,
		client: client,
		buffer: dataset.NewEpisodeBuffer(0, mocks.GenericTask, robot.DefaultFPS),
		layout: dataset.NewLayout(dir),
		images: imagewriter.NewPool(mocks.NoopLogger, imagewriter.WithWorkers(1)),
		saver:  &queuerMock{},
	}
	t.Cleanup(f.images.Stop)

	return &f
}

// observe fills the bridge cache with a full observation.
func (f *fixture) observe(state []float32, action []float32) {
	for _, camera := range mocks.GenericCameras {
		f.server.Observe(robot.Envelope{
			Topic:   robot.ImageTopic(camera),
			Payload: robot.ImagePayload(mocks.GenericImage(camera)),
		})
	}
	f.server.Observe(robot.Envelope{
		Topic:   robot.TopicFollowerJoints,
		Payload: robot.VectorPayload("joint", state),
	})
	if action != nil {
		f.server.Observe(robot.Envelope{
			Topic:   robot.TopicActionCommand,
			Payload: robot.VectorPayload("action", action),
		})
	}
}

func (f *fixture) loop(t *testing.T, options ...Option) *Loop {
	t.Helper()

	options = append([]Option{WithTickInterval(time.Millisecond)}, options...)
	return NewLoop(mocks.NoopLogger, f.client, f.buffer, f.layout, f.images, f.saver,
		mocks.GenericCameras, options...)
}

func runLoop(t *testing.T, l *Loop) chan struct{} {
	t.Helper()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Run(context.Background())
	}()
	return done
}

func TestLoop_Record(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		f := testFixture(t)
		f.observe([]float32{1, 2}, []float32{3, 4})

		l := f.loop(t)
		done := runLoop(t, l)

		require.Eventually(t, func() bool {
			return f.buffer.Size() >= 3
		}, 5*time.Second, time.Millisecond)

		l.Command(CommandExit)
		<-done

		// The exit hands the in-progress episode to the saver; nothing
		// stays behind in the buffer.
		require.Len(t, f.saver.queued(), 1)
		task := f.saver.queued()[0]
		require.NotEmpty(t, task.Frames)
		assert.Equal(t, []float32{1, 2}, task.Frames[0].State)
		assert.Equal(t, []float32{3, 4}, task.Frames[0].Action)
		assert.Len(t, task.Frames[0].Images, len(mocks.GenericCameras))
		assert.Zero(t, f.buffer.Size())
	})

	t.Run("exit queues the in-progress episode", func(t *testing.T) {
		t.Parallel()

		f := testFixture(t)
		f.observe([]float32{1}, nil)

		l := f.loop(t)
		done := runLoop(t, l)

		require.Eventually(t, func() bool {
			return f.buffer.Size() >= 3
		}, 5*time.Second, time.Millisecond)

		l.Command(CommandExit)
		<-done

		require.Len(t, f.saver.queued(), 1)
		assert.NotEmpty(t, f.saver.queued()[0].Frames)
		assert.Zero(t, f.buffer.Size())
	})

	t.Run("cancellation queues the in-progress episode", func(t *testing.T) {
		t.Parallel()

		f := testFixture(t)
		l := f.loop(t)

		f.buffer.Append([]float32{1}, nil, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.NoError(t, l.Run(ctx))

		require.Len(t, f.saver.queued(), 1)
		assert.Zero(t, f.buffer.Size())
	})

	t.Run("missing camera skips ticks", func(t *testing.T) {
		t.Parallel()

		f := testFixture(t)

		// Only one of the two required cameras publishes.
		f.server.Observe(robot.Envelope{
			Topic:   robot.ImageTopic(mocks.GenericCameras[0]),
			Payload: robot.ImagePayload(mocks.GenericImage(mocks.GenericCameras[0])),
		})
		f.server.Observe(robot.Envelope{
			Topic:   robot.TopicFollowerJoints,
			Payload: robot.VectorPayload("joint", []float32{1}),
		})

		l := f.loop(t)
		done := runLoop(t, l)

		time.Sleep(100 * time.Millisecond)
		l.Command(CommandExit)
		<-done

		assert.Zero(t, f.buffer.Size())
		assert.Empty(t, f.saver.queued())
	})

	t.Run("save and next queues the episode", func(t *testing.T) {
		t.Parallel()

		f := testFixture(t)
		f.observe([]float32{1}, nil)

		l := f.loop(t, WithSkipEncoding(true))
		done := runLoop(t, l)

		require.Eventually(t, func() bool {
			return f.buffer.Size() >= 2
		}, 5*time.Second, time.Millisecond)

		l.Command(CommandSaveAndNext)

		require.Eventually(t, func() bool {
			return len(f.saver.queued()) == 1
		}, 5*time.Second, time.Millisecond)

		task := f.saver.queued()[0]
		assert.Equal(t, 0, task.EpisodeIndex)
		assert.True(t, task.SkipEncoding)
		assert.NotEmpty(t, task.Frames)
		assert.Equal(t, 1, f.buffer.Episode())

		l.Command(CommandExit)
		<-done
	})

	t.Run("abort discards the buffer", func(t *testing.T) {
		t.Parallel()

		f := testFixture(t)
		l := f.loop(t)

		f.buffer.Append([]float32{1}, nil, nil)
		f.buffer.Append([]float32{2}, nil, nil)

		exit := l.apply(CommandAbort)
		assert.False(t, exit)
		assert.Zero(t, f.buffer.Size())
		assert.Equal(t, 0, f.buffer.Episode())
		assert.Empty(t, f.saver.queued())
	})

	t.Run("empty episode is not queued", func(t *testing.T) {
		t.Parallel()

		f := testFixture(t)
		l := f.loop(t)

		exit := l.apply(CommandSaveAndNext)
		assert.False(t, exit)
		assert.Empty(t, f.saver.queued())
	})
}

func TestLoop_MemoryGuard(t *testing.T) {
	t.Parallel()

	f := testFixture(t)
	f.observe([]float32{1}, nil)

	l := f.loop(t,
		WithMemoryEvery(5),
		WithMemoryLimitGB(1),
		WithMemoryProbe(func() (uint64, error) {
			// Pretend the process ballooned past the limit.
			return 2 << 30, nil
		}),
	)
	done := runLoop(t, l)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("memory guard did not stop the loop")
	}

	// The guard stops the session but keeps the recorded frames.
	require.Len(t, f.saver.queued(), 1)
	assert.NotEmpty(t, f.saver.queued()[0].Frames)
}
