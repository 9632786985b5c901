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

package dataset

import (
	"fmt"
	"sync"

	"github.com/dorobot/teleop-capture/models/robot"
)

// EpisodeBuffer is the append-only container for one in-progress episode. It
// is exclusively owned by the record loop; the saver only ever receives a
// deep copy produced by Swap. Critical sections are one append or one swap,
// never IO.
type EpisodeBuffer struct {
	mutex   sync.Mutex
	episode int
	task    string
	fps     int
	frames  []robot.Frame
}

// NewEpisodeBuffer creates an empty buffer for the given episode index.
func NewEpisodeBuffer(episode int, task string, fps int) *EpisodeBuffer {
	b := EpisodeBuffer{
		episode: episode,
		task:    task,
		fps:     fps,
	}
	return &b
}

// Append adds one frame, assigning its dense frame index and the timestamp
// derived as index/fps.
func (b *EpisodeBuffer) Append(state []float32, action []float32, images map[string]robot.Image) robot.Frame {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	frame := robot.Frame{
		FrameIndex:   len(b.frames),
		EpisodeIndex: b.episode,
		Timestamp:    float64(len(b.frames)) / float64(b.fps),
		State:        state,
		Action:       action,
		Images:       images,
	}
	b.frames = append(b.frames, frame)
	return frame
}

// Size returns the number of appended frames.
func (b *EpisodeBuffer) Size() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.frames)
}

// Episode returns the episode index this buffer collects.
func (b *EpisodeBuffer) Episode() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.episode
}

// Task returns the task label.
func (b *EpisodeBuffer) Task() string {
	return b.task
}

// Swap atomically extracts the collected frames and resets the buffer for the
// next episode index. The recording goroutine never observes a partially
// drained buffer: under the lock the frames slice is taken wholesale and a
// fresh one installed.
func (b *EpisodeBuffer) Swap() SaveTask {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	task := SaveTask{
		EpisodeIndex: b.episode,
		Task:         b.task,
		FPS:          b.fps,
		Frames:       b.frames,
	}
	b.frames = nil
	b.episode++
	return task
}

// Discard drops the collected frames without advancing the episode index.
func (b *EpisodeBuffer) Discard() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	dropped := len(b.frames)
	b.frames = nil
	return dropped
}

// SaveTask is one episode handed to the async saver: the extracted frames
// plus the descriptor the save procedure needs.
type SaveTask struct {
	EpisodeIndex int
	Task         string
	FPS          int
	Frames       []robot.Frame
	SkipEncoding bool
}

// Clone returns a deep copy of the task; retries always work from the copy,
// never from a buffer mutated by a previous attempt.
func (t SaveTask) Clone() SaveTask {
	c := t
	c.Frames = make([]robot.Frame, len(t.Frames))
	for i, frame := range t.Frames {
		c.Frames[i] = frame.Clone()
	}
	return c
}

// Validate checks the episode schema: a zero-frame episode is rejected, and
// every frame must be densely indexed with timestamps stepping by 1/fps.
func (t SaveTask) Validate() error {
	if len(t.Frames) == 0 {
		return fmt.Errorf("episode %d has no frames: %w", t.EpisodeIndex, robot.ErrEpisodeValidation)
	}
	for i, frame := range t.Frames {
		if frame.FrameIndex != i {
			return fmt.Errorf("episode %d frame %d has index %d: %w",
				t.EpisodeIndex, i, frame.FrameIndex, robot.ErrEpisodeValidation)
		}
		if frame.EpisodeIndex != t.EpisodeIndex {
			return fmt.Errorf("episode %d contains frame of episode %d: %w",
				t.EpisodeIndex, frame.EpisodeIndex, robot.ErrEpisodeValidation)
		}
	}
	return nil
}

// Cameras returns the camera names present in the first frame; the schema is
// constant within one episode.
func (t SaveTask) Cameras() []string {
	if len(t.Frames) == 0 {
		return nil
	}
	cameras := make([]string, 0, len(t.Frames[0].Images))
	for name := range t.Frames[0].Images {
		cameras = append(cameras, name)
	}
	return cameras
}
