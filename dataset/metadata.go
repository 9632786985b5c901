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
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
)

// EpisodeStats carries per-dimension statistics of one episode's state
// column, written alongside its length for the training side.
type EpisodeStats struct {
	Min  []float32 `json:"min"`
	Max  []float32 `json:"max"`
	Mean []float32 `json:"mean"`
}

// EpisodeEntry is one line of meta/episodes.jsonl.
type EpisodeEntry struct {
	EpisodeIndex int          `json:"episode_index"`
	Task         string       `json:"task"`
	Length       int          `json:"length"`
	Stats        EpisodeStats `json:"stats"`
}

// Info is the dataset-level descriptor written to meta/info. Episodes may
// land out of order; TotalEpisodes counts successful saves and is never
// inferred from file counts.
type Info struct {
	RepoID        string   `json:"repo_id"`
	FPS           int      `json:"fps"`
	Cameras       []string `json:"cameras"`
	TotalEpisodes int      `json:"total_episodes"`
	TotalFrames   int      `json:"total_frames"`
}

// Metadata maintains the append-only dataset metadata across episodes.
type Metadata struct {
	mutex  sync.Mutex
	layout Layout
	info   Info
}

// NewMetadata creates the metadata store for a dataset. When the dataset
// directory already holds an info file, its totals are loaded so a new
// session continues at the next episode index instead of overwriting
// earlier episodes.
func NewMetadata(layout Layout, repoID string, fps int, cameras []string) (*Metadata, error) {

	info := Info{
		RepoID:  repoID,
		FPS:     fps,
		Cameras: cameras,
	}

	data, err := os.ReadFile(layout.InfoPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("could not read dataset info: %w", err)
	}
	if err == nil {
		var existing Info
		err = json.Unmarshal(data, &existing)
		if err != nil {
			return nil, fmt.Errorf("could not decode dataset info: %w", err)
		}
		if existing.RepoID != repoID {
			return nil, fmt.Errorf("dataset belongs to repository %q, not %q", existing.RepoID, repoID)
		}
		info.TotalEpisodes = existing.TotalEpisodes
		info.TotalFrames = existing.TotalFrames
	}

	m := Metadata{
		layout: layout,
		info:   info,
	}

	return &m, nil
}

// Info returns a copy of the current dataset descriptor.
func (m *Metadata) Info() Info {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.info
}

// CommitEpisode appends the episode entry to episodes.jsonl and rewrites the
// dataset info. Called by the saver after the episode's files exist.
func (m *Metadata) CommitEpisode(task SaveTask) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	entry := EpisodeEntry{
		EpisodeIndex: task.EpisodeIndex,
		Task:         task.Task,
		Length:       len(task.Frames),
		Stats:        statsOf(task),
	}

	file, err := os.OpenFile(m.layout.EpisodesPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("could not open episodes metadata: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	err = json.NewEncoder(writer).Encode(entry)
	if err != nil {
		return fmt.Errorf("could not append episode entry: %w", err)
	}
	err = writer.Flush()
	if err != nil {
		return fmt.Errorf("could not flush episode entry: %w", err)
	}

	m.info.TotalEpisodes++
	m.info.TotalFrames += entry.Length

	err = m.writeInfo()
	if err != nil {
		return fmt.Errorf("could not update dataset info: %w", err)
	}

	err = m.writeTask(task.Task)
	if err != nil {
		return fmt.Errorf("could not update task list: %w", err)
	}

	return nil
}

func (m *Metadata) writeInfo() error {
	data, err := json.MarshalIndent(m.info, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode dataset info: %w", err)
	}
	return os.WriteFile(m.layout.InfoPath(), data, 0o644)
}

func (m *Metadata) writeTask(task string) error {
	// The task list is a single label per session; rewriting is cheaper than
	// deduplicating an append-only file.
	return os.WriteFile(m.layout.TasksPath(), []byte(task+"\n"), 0o644)
}

func statsOf(task SaveTask) EpisodeStats {
	if len(task.Frames) == 0 || len(task.Frames[0].State) == 0 {
		return EpisodeStats{}
	}
	dims := len(task.Frames[0].State)
	stats := EpisodeStats{
		Min:  make([]float32, dims),
		Max:  make([]float32, dims),
		Mean: make([]float32, dims),
	}
	for d := 0; d < dims; d++ {
		stats.Min[d] = float32(math.Inf(1))
		stats.Max[d] = float32(math.Inf(-1))
	}
	for _, frame := range task.Frames {
		for d := 0; d < dims && d < len(frame.State); d++ {
			v := frame.State[d]
			if v < stats.Min[d] {
				stats.Min[d] = v
			}
			if v > stats.Max[d] {
				stats.Max[d] = v
			}
			stats.Mean[d] += v
		}
	}
	for d := 0; d < dims; d++ {
		stats.Mean[d] /= float32(len(task.Frames))
	}
	return stats
}
