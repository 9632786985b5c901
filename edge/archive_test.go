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

package edge

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildArchive(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "videos", "top"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "episode_000000.parquet"), []byte("columns"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "videos", "top", "episode_000000.mp4"), []byte("video"), 0o644))

		archive, err := buildArchive(dir)
		require.NoError(t, err)
		defer os.Remove(archive)

		file, err := os.Open(archive)
		require.NoError(t, err)
		defer file.Close()

		contents := make(map[string]string)
		reader := tar.NewReader(file)
		for {
			header, err := reader.Next()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			if header.Typeflag == tar.TypeDir {
				contents[header.Name] = ""
				continue
			}
			data, err := io.ReadAll(reader)
			require.NoError(t, err)
			contents[header.Name] = string(data)
		}

		assert.Equal(t, "columns", contents["episode_000000.parquet"])
		assert.Equal(t, "video", contents["videos/top/episode_000000.mp4"])
		assert.Contains(t, contents, "videos/")
		assert.Contains(t, contents, "videos/top/")
	})

	t.Run("excluded directory is left out", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "images", "episode_0"), 0o755))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "videos"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "images", "episode_0", "frame_000000.png"), []byte("png"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "videos", "episode.mp4"), []byte("video"), 0o644))

		archive, err := buildArchive(dir, "images")
		require.NoError(t, err)
		defer os.Remove(archive)

		file, err := os.Open(archive)
		require.NoError(t, err)
		defer file.Close()

		var names []string
		reader := tar.NewReader(file)
		for {
			header, err := reader.Next()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			names = append(names, header.Name)
		}

		assert.Contains(t, names, "videos/episode.mp4")
		assert.NotContains(t, names, "images/")
		assert.NotContains(t, names, "images/episode_0/frame_000000.png")
	})

	t.Run("missing directory fails", func(t *testing.T) {
		t.Parallel()

		_, err := buildArchive(filepath.Join(t.TempDir(), "absent"))
		assert.Error(t, err)
	})
}

func TestShellQuote(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "'/srv/data'", shellQuote("/srv/data"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}
