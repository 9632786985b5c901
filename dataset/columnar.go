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
	"os"
	"path/filepath"

	"github.com/dorobot/teleop-capture/codec/zbor"
)

// Columns is the columnar representation of one episode: one list per
// feature, every list of identical length.
type Columns struct {
	EpisodeIndex int         `cbor:"episode_index"`
	Task         string      `cbor:"task"`
	FPS          int         `cbor:"fps"`
	FrameIndex   []int64     `cbor:"frame_index"`
	Timestamp    []float64   `cbor:"timestamp"`
	State        [][]float32 `cbor:"observation.state"`
	Action       [][]float32 `cbor:"action"`
}

// Columnize pivots a save task's frames into column arrays.
func Columnize(task SaveTask) Columns {
	cols := Columns{
		EpisodeIndex: task.EpisodeIndex,
		Task:         task.Task,
		FPS:          task.FPS,
		FrameIndex:   make([]int64, 0, len(task.Frames)),
		Timestamp:    make([]float64, 0, len(task.Frames)),
		State:        make([][]float32, 0, len(task.Frames)),
		Action:       make([][]float32, 0, len(task.Frames)),
	}
	for _, frame := range task.Frames {
		cols.FrameIndex = append(cols.FrameIndex, int64(frame.FrameIndex))
		cols.Timestamp = append(cols.Timestamp, frame.Timestamp)
		cols.State = append(cols.State, frame.State)
		cols.Action = append(cols.Action, frame.Action)
	}
	return cols
}

// Writer persists columnar episode files.
type Writer struct {
	layout Layout
	codec  *zbor.Codec
}

// NewWriter creates a writer for the given layout.
func NewWriter(layout Layout, codec *zbor.Codec) *Writer {
	w := Writer{
		layout: layout,
		codec:  codec,
	}
	return &w
}

// Write encodes the episode columns and writes them to the stable path
// derived from the episode index. The write goes through a temporary file and
// rename so a crashed save never leaves a truncated columnar file behind.
func (w *Writer) Write(task SaveTask) (int, int, error) {
	cols := Columnize(task)
	encoded, err := w.codec.Encode(cols)
	if err != nil {
		return 0, 0, fmt.Errorf("could not encode episode columns: %w", err)
	}
	compressed := w.codec.Compress(encoded)

	path := w.layout.ColumnarPath(task.EpisodeIndex)
	err = os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return 0, 0, fmt.Errorf("could not create data directory: %w", err)
	}
	tmp := path + ".tmp"
	err = os.WriteFile(tmp, compressed, 0o644)
	if err != nil {
		return 0, 0, fmt.Errorf("could not write columnar file: %w", err)
	}
	err = os.Rename(tmp, path)
	if err != nil {
		return 0, 0, fmt.Errorf("could not finalize columnar file: %w", err)
	}

	return len(encoded), len(compressed), nil
}

// Read loads the columnar file of one episode back into column arrays.
func (w *Writer) Read(episode int) (Columns, error) {
	compressed, err := os.ReadFile(w.layout.ColumnarPath(episode))
	if err != nil {
		return Columns{}, fmt.Errorf("could not read columnar file: %w", err)
	}
	var cols Columns
	err = w.codec.Unmarshal(compressed, &cols)
	if err != nil {
		return Columns{}, fmt.Errorf("could not decode episode columns: %w", err)
	}
	return cols, nil
}
