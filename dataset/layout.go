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

	"github.com/dorobot/teleop-capture/models/robot"
)

// Layout derives every on-disk path of one dataset from its root directory.
//
//	<root>/
//	  data/<episode>.columnar
//	  images/episode_<N>/observation.images.<cam>/frame_<F>.png
//	  videos/episode_<N>/observation.images.<cam>.mp4
//	  meta/info, meta/tasks, meta/episodes.jsonl
//	  model/
type Layout struct {
	root string
}

// NewLayout creates a layout rooted at the given directory.
func NewLayout(root string) Layout {
	return Layout{root: root}
}

func (l Layout) Root() string {
	return l.root
}

func (l Layout) DataDir() string {
	return filepath.Join(l.root, "data")
}

func (l Layout) ColumnarPath(episode int) string {
	return filepath.Join(l.DataDir(), fmt.Sprintf("%06d.columnar", episode))
}

func (l Layout) ImagesDir(episode int) string {
	return filepath.Join(l.root, "images", fmt.Sprintf("episode_%d", episode))
}

func (l Layout) CameraDir(episode int, camera string) string {
	return filepath.Join(l.ImagesDir(episode), "observation.images."+camera)
}

func (l Layout) FramePath(episode int, camera string, frame int) string {
	return filepath.Join(l.CameraDir(episode, camera), fmt.Sprintf(robot.FramePattern, frame))
}

func (l Layout) VideosDir(episode int) string {
	return filepath.Join(l.root, "videos", fmt.Sprintf("episode_%d", episode))
}

func (l Layout) VideoPath(episode int, camera string) string {
	return filepath.Join(l.VideosDir(episode), "observation.images."+camera+".mp4")
}

func (l Layout) MetaDir() string {
	return filepath.Join(l.root, "meta")
}

func (l Layout) InfoPath() string {
	return filepath.Join(l.MetaDir(), "info")
}

func (l Layout) TasksPath() string {
	return filepath.Join(l.MetaDir(), "tasks")
}

func (l Layout) EpisodesPath() string {
	return filepath.Join(l.MetaDir(), "episodes.jsonl")
}

func (l Layout) ModelDir() string {
	return filepath.Join(l.root, "model")
}

// Prepare creates the directories every session needs.
func (l Layout) Prepare() error {
	for _, dir := range []string{l.DataDir(), l.MetaDir(), l.ModelDir()} {
		err := os.MkdirAll(dir, 0o755)
		if err != nil {
			return fmt.Errorf("could not create dataset directory: %w", err)
		}
	}
	return nil
}
