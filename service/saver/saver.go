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

// Package saver persists finished episodes off the recording thread: a
// fixed pool of workers consumes save tasks from a FIFO queue, waits out
// the image flush, writes the columnar file, encodes the videos and
// commits the metadata.
package saver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dorobot/teleop-capture/dataset"
	"github.com/dorobot/teleop-capture/models/robot"
	"github.com/dorobot/teleop-capture/service/imagewriter"
)

// retryInterval is the initial backoff delay between save attempts.
const retryInterval = 500 * time.Millisecond

// Saver owns the asynchronous save pipeline of one capture session.
type Saver struct {
	log     zerolog.Logger
	cfg     Config
	layout  dataset.Layout
	writer  *dataset.Writer
	meta    *dataset.Metadata
	images  *imagewriter.Pool
	encoder robot.VideoEncoder

	queue chan dataset.SaveTask

	mutex    sync.Mutex
	inflight map[int]struct{}

	abandon uint32
	wg      sync.WaitGroup
	once    sync.Once
}

// NewSaver creates an episode saver and starts its workers.
func NewSaver(
	log zerolog.Logger,
	layout dataset.Layout,
	writer *dataset.Writer,
	meta *dataset.Metadata,
	images *imagewriter.Pool,
	encoder robot.VideoEncoder,
	options ...Option,
) *Saver {

	cfg := DefaultConfig
	for _, option := range options {
		option(&cfg)
	}

	s := Saver{
		log:      log.With().Str("component", "episode_saver").Logger(),
		cfg:      cfg,
		layout:   layout,
		writer:   writer,
		meta:     meta,
		images:   images,
		encoder:  encoder,
		queue:    make(chan dataset.SaveTask, cfg.QueueSize),
		inflight: make(map[int]struct{}),
	}

	for i := 0; i < cfg.Workers; i++ {
		s.wg.Add(1)
		go s.work()
	}

	return &s
}

// QueueSave hands one episode over to the saver. The caller transfers
// ownership of a deep copy; the save runs at most once per task and
// exactly once on success.
func (s *Saver) QueueSave(task dataset.SaveTask) error {
	if atomic.LoadUint32(&s.abandon) != 0 {
		return fmt.Errorf("saver is stopping, episode %d rejected", task.EpisodeIndex)
	}

	s.mutex.Lock()
	s.inflight[task.EpisodeIndex] = struct{}{}
	s.mutex.Unlock()

	s.queue <- task
	s.log.Info().Int("episode", task.EpisodeIndex).Int("frames", len(task.Frames)).
		Msg("episode queued for saving")
	return nil
}

// Pending returns the number of episodes queued or being saved.
func (s *Saver) Pending() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.inflight)
}

// Stop shuts the saver down. With wait set, it blocks until the queue is
// empty and no save is in flight, polling the pending set at a fixed
// interval; without it, queued tasks are abandoned.
func (s *Saver) Stop(wait bool) {
	s.once.Do(func() {
		if wait {
			for s.Pending() > 0 {
				time.Sleep(s.cfg.StopPoll)
			}
		}
		atomic.StoreUint32(&s.abandon, 1)
		close(s.queue)
		s.wg.Wait()
	})
}

func (s *Saver) work() {
	defer s.wg.Done()
	for task := range s.queue {
		if atomic.LoadUint32(&s.abandon) != 0 {
			s.log.Warn().Int("episode", task.EpisodeIndex).Msg("abandoning queued episode")
			s.conclude(task.EpisodeIndex)
			continue
		}
		s.process(task)
	}
}

func (s *Saver) process(task dataset.SaveTask) {
	defer s.conclude(task.EpisodeIndex)

	if s.cfg.TimeMetrics != nil {
		done := s.cfg.TimeMetrics.Duration("episode_save")
		defer done()
	}

	// The queued task is kept pristine; every attempt works on its own deep
	// copy so a failed attempt cannot poison the next one.
	attempt := func() error {
		err := s.save(task.Clone())
		if errors.Is(err, robot.ErrEpisodeValidation) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = retryInterval
	policy.MaxElapsedTime = 0

	err := backoff.Retry(attempt, backoff.WithMaxRetries(policy, uint64(s.cfg.Attempts-1)))
	if err != nil {
		s.log.Error().Err(err).Int("episode", task.EpisodeIndex).
			Int("attempts", s.cfg.Attempts).Msg("episode save failed")
		return
	}

	s.log.Info().Int("episode", task.EpisodeIndex).Msg("episode saved")
}

func (s *Saver) conclude(episode int) {
	s.images.Forget(episode)
	s.mutex.Lock()
	delete(s.inflight, episode)
	s.mutex.Unlock()
}

func (s *Saver) save(task dataset.SaveTask) error {

	err := task.Validate()
	if err != nil {
		return fmt.Errorf("could not validate episode: %w", err)
	}

	cameras := task.Cameras()

	// The flush wait scales with the episode: big episodes legitimately
	// take longer than the floor.
	expected := len(task.Frames) * len(cameras)
	if expected > 0 {
		timeout := s.cfg.FlushFloor
		if scaled := time.Duration(expected) * s.cfg.FlushPerImage; scaled > timeout {
			timeout = scaled
		}
		err = s.images.WaitFlushed(task.EpisodeIndex, expected, timeout)
		if err != nil {
			return fmt.Errorf("could not flush episode images: %w", err)
		}
	}

	original, compressed, err := s.writer.Write(task)
	if err != nil {
		return fmt.Errorf("could not write columnar data: %w", err)
	}
	if s.cfg.SizeMetrics != nil {
		s.cfg.SizeMetrics.Bytes("columnar", original, compressed)
	}

	if !task.SkipEncoding {
		err = s.encode(task, cameras)
		if err != nil {
			return err
		}
	}

	err = s.verify(task, cameras)
	if err != nil {
		return err
	}

	err = s.meta.CommitEpisode(task)
	if err != nil {
		return fmt.Errorf("could not commit episode metadata: %w", err)
	}

	return nil
}

func (s *Saver) encode(task dataset.SaveTask, cameras []string) error {

	err := os.MkdirAll(s.layout.VideosDir(task.EpisodeIndex), 0o755)
	if err != nil {
		return fmt.Errorf("could not create video directory: %w", err)
	}

	// Cameras encode in parallel; the hardware encoder serializes its own
	// channels and the software fallback is per-process anyway.
	var group errgroup.Group
	for _, camera := range cameras {
		camera := camera
		group.Go(func() error {
			done := func() {}
			if s.cfg.TimeMetrics != nil {
				done = s.cfg.TimeMetrics.Duration("video_encode")
			}
			err := s.encoder.EncodeFrames(
				context.Background(),
				s.layout.CameraDir(task.EpisodeIndex, camera),
				s.layout.VideoPath(task.EpisodeIndex, camera),
				task.FPS,
			)
			done()
			if err != nil {
				return fmt.Errorf("could not encode camera %s: %w", camera, err)
			}
			return nil
		})
	}

	return group.Wait()
}

// verify checks that the files this episode was supposed to produce exist.
// Global file counts are deliberately not asserted: failed tasks of other
// episodes may legitimately have left gaps.
func (s *Saver) verify(task dataset.SaveTask, cameras []string) error {

	_, err := os.Stat(s.layout.ColumnarPath(task.EpisodeIndex))
	if err != nil {
		return fmt.Errorf("columnar file missing after save: %w", err)
	}

	if task.SkipEncoding {
		return nil
	}
	for _, camera := range cameras {
		_, err := os.Stat(s.layout.VideoPath(task.EpisodeIndex, camera))
		if err != nil {
			return fmt.Errorf("video file for camera %s missing after save: %w", camera, err)
		}
	}

	return nil
}
