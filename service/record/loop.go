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

// Package record runs the capture loop: every tick it pulls the latest
// observation and action through the bridge, appends one frame to the
// episode buffer and schedules the frame's images for writing. The loop
// never blocks on saving; a tick that cannot assemble a full observation
// is skipped, not stalled.
package record

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/dorobot/teleop-capture/dataset"
	"github.com/dorobot/teleop-capture/models/robot"
	"github.com/dorobot/teleop-capture/service/bridge"
	"github.com/dorobot/teleop-capture/service/imagewriter"
)

// Command is an operator-driven transition of the record loop.
type Command uint8

const (
	CommandSaveAndNext Command = iota + 1
	CommandExit
	CommandAbort
)

// String implements the Stringer interface.
func (c Command) String() string {
	switch c {
	case CommandSaveAndNext:
		return "save_and_next"
	case CommandExit:
		return "exit"
	case CommandAbort:
		return "abort"
	default:
		return fmt.Sprintf("invalid command %d", c)
	}
}

// Queuer is the slice of the episode saver the record loop consumes.
type Queuer interface {
	QueueSave(task dataset.SaveTask) error
}

// Loop is the record loop of one capture session.
type Loop struct {
	log     zerolog.Logger
	cfg     Config
	client  *bridge.Client
	buffer  *dataset.EpisodeBuffer
	layout  dataset.Layout
	images  *imagewriter.Pool
	saver   Queuer
	cameras []string

	commands chan Command
}

// NewLoop creates a record loop that assembles observations for the given
// required cameras.
func NewLoop(
	log zerolog.Logger,
	client *bridge.Client,
	buffer *dataset.EpisodeBuffer,
	layout dataset.Layout,
	images *imagewriter.Pool,
	saver Queuer,
	cameras []string,
	options ...Option,
) *Loop {

	cfg := DefaultConfig
	for _, option := range options {
		option(&cfg)
	}
	if cfg.MemoryProbe == nil {
		cfg.MemoryProbe = processRSS
	}

	l := Loop{
		log:      log.With().Str("component", "record_loop").Logger(),
		cfg:      cfg,
		client:   client,
		buffer:   buffer,
		layout:   layout,
		images:   images,
		saver:    saver,
		cameras:  cameras,
		commands: make(chan Command, 4),
	}

	return &l
}

// Command hands one operator command to the loop. It never blocks; with a
// full command backlog the command is dropped, which only happens when the
// loop is already exiting.
func (l *Loop) Command(cmd Command) {
	select {
	case l.commands <- cmd:
	default:
		l.log.Warn().Str("command", cmd.String()).Msg("command backlog full, dropped")
	}
}

// Run iterates until the operator exits, the memory guard trips or the
// context is cancelled. All exits converge on the same path: the loop
// stops appending and returns, leaving draining to the caller.
func (l *Loop) Run(ctx context.Context) error {

	ticker := time.NewTicker(l.cfg.TickInterval)
	defer ticker.Stop()

	ticks := 0
	for {
		select {

		case <-ctx.Done():
			l.log.Info().Msg("record loop cancelled")
			l.flush()
			return nil

		case cmd := <-l.commands:
			exit := l.apply(cmd)
			if exit {
				return nil
			}

		case <-ticker.C:
			ticks++
			l.tick()

			if l.cfg.MemoryEvery > 0 && ticks%l.cfg.MemoryEvery == 0 {
				exceeded := l.memoryExceeded()
				if exceeded {
					l.log.Warn().Msg("memory limit exceeded, stopping session to preserve queued episodes")
					l.flush()
					return nil
				}
			}
		}
	}
}

// apply executes one operator command and reports whether the loop should
// exit.
func (l *Loop) apply(cmd Command) bool {
	switch cmd {

	case CommandSaveAndNext:
		l.flush()
		return false

	case CommandAbort:
		dropped := l.buffer.Discard()
		l.log.Info().Int("frames", dropped).Msg("episode aborted")
		return false

	case CommandExit:
		l.log.Info().Msg("record loop exiting")
		l.flush()
		return true

	default:
		l.log.Warn().Str("command", cmd.String()).Msg("unknown command ignored")
		return false
	}
}

// flush hands the in-progress episode to the saver. Every way out of the
// loop goes through here, so frames recorded before an exit are never
// discarded; only an explicit abort drops them.
func (l *Loop) flush() {
	task := l.buffer.Swap()
	task.SkipEncoding = l.cfg.SkipEncoding
	if len(task.Frames) == 0 {
		l.log.Debug().Int("episode", task.EpisodeIndex).Msg("empty episode, nothing to save")
		return
	}
	err := l.saver.QueueSave(task)
	if err != nil {
		l.log.Error().Err(err).Int("episode", task.EpisodeIndex).Msg("could not queue episode")
	}
}

// tick assembles one frame. Missing cameras skip the tick; temporally
// misaligned frames are worse than lost ones.
func (l *Loop) tick() {

	if l.cfg.TimeMetrics != nil {
		done := l.cfg.TimeMetrics.Duration("record_tick")
		defer done()
	}

	images := make(map[string]robot.Image, len(l.cameras))
	for _, camera := range l.cameras {
		img, ok := l.client.PullImage(camera)
		if !ok {
			return
		}
		images[camera] = img
	}

	state, ok := l.client.PullVector(robot.TopicFollowerJoints)
	if !ok {
		return
	}

	// The action may legitimately lag the state right after start.
	action, _ := l.client.PullVector(robot.TopicActionCommand)

	frame := l.buffer.Append(state, action, images)

	for camera, img := range images {
		path := l.layout.FramePath(frame.EpisodeIndex, camera, frame.FrameIndex)
		l.images.Enqueue(frame.EpisodeIndex, img, path)
	}
}

func (l *Loop) memoryExceeded() bool {
	rss, err := l.cfg.MemoryProbe()
	if err != nil {
		l.log.Warn().Err(err).Msg("could not read process memory")
		return false
	}
	limit := uint64(l.cfg.MemoryLimitGB * float64(1<<30))
	if rss <= limit {
		return false
	}
	l.log.Warn().Uint64("rss", rss).Uint64("limit", limit).Msg("process memory above limit")
	return true
}

// processRSS reads the current process's resident set size.
func processRSS() (uint64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, fmt.Errorf("could not inspect process: %w", err)
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0, fmt.Errorf("could not read memory info: %w", err)
	}
	return info.RSS, nil
}
