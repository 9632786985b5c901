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

// Package encoder adapts the external video encoder. Episodes are stored
// as per-frame PNG files; this adapter turns one frame directory into one
// video file per camera. On NPU-equipped hosts the hardware codec is tried
// first; exhaustion of its encode channels falls back to software.
package encoder

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dorobot/teleop-capture/models/robot"
)

// exhaustionMarkers are the stderr fragments the hardware driver emits
// when all encode channels are taken.
var exhaustionMarkers = []string{
	"channel",
	"busy",
	"resource temporarily unavailable",
	"cannot allocate",
}

// FFmpeg invokes the ffmpeg binary to encode frame directories.
type FFmpeg struct {
	log zerolog.Logger
	cfg Config
}

// NewFFmpeg creates a video encoder adapter.
func NewFFmpeg(log zerolog.Logger, options ...Option) *FFmpeg {

	cfg := DefaultConfig
	for _, option := range options {
		option(&cfg)
	}

	f := FFmpeg{
		log: log.With().Str("component", "video_encoder").Logger(),
		cfg: cfg,
	}

	return &f
}

// EncodeFrames encodes the PNG frames of one directory into one video
// file. When the hardware path is enabled and its channels are exhausted,
// the encode is retried in software; failure of both paths is fatal for
// the episode.
func (f *FFmpeg) EncodeFrames(ctx context.Context, dir string, out string, fps int) error {

	if f.cfg.Hardware {
		stderr, err := f.run(ctx, dir, out, fps, f.cfg.HardwareCodec)
		if err == nil {
			return nil
		}
		if !channelExhausted(stderr) {
			return fmt.Errorf("could not encode with %s: %w (%s)",
				f.cfg.HardwareCodec, robot.ErrEncoder, err)
		}
		f.log.Warn().Str("codec", f.cfg.HardwareCodec).
			Msg("hardware encode channels exhausted, falling back to software")
	}

	stderr, err := f.run(ctx, dir, out, fps, f.cfg.SoftwareCodec)
	if err != nil {
		return fmt.Errorf("could not encode with %s: %w (%s: %s)",
			f.cfg.SoftwareCodec, robot.ErrEncoder, err, lastLine(stderr))
	}

	return nil
}

func (f *FFmpeg) run(ctx context.Context, dir string, out string, fps int, codec string) (string, error) {

	args := []string{
		"-y",
		"-framerate", strconv.Itoa(fps),
		"-i", filepath.Join(dir, robot.FramePattern),
		"-c:v", codec,
		"-pix_fmt", "yuv420p",
		out,
	}

	cmd := exec.CommandContext(ctx, f.cfg.Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	f.log.Debug().Str("codec", codec).Str("out", out).Msg("encoding episode video")

	err := cmd.Run()
	return stderr.String(), err
}

// channelExhausted reports whether the encoder output indicates that the
// hardware encode channels are taken rather than a real encode failure.
func channelExhausted(stderr string) bool {
	lowered := strings.ToLower(stderr)
	for _, marker := range exhaustionMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}
