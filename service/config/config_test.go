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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorobot/teleop-capture/models/robot"
	"github.com/dorobot/teleop-capture/testing/mocks"
)

// Environment-dependent tests cannot run in parallel with each other, so
// none of the tests in this file use t.Parallel.

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "device.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		path := writeConfig(t, `
# device configuration
REPO_ID=bench_test
SINGLE_TASK="pick and place" # quoted value keeps spaces
CLOUD=2
MEMORY_LIMIT_GB=8 # inline comment
EDGE_SERVER_HOST='192.168.1.9'
EDGE_SERVER_PASSWORD=hunter2#not-a-comment-when-quoted
`)

		cfg, err := Load(mocks.NoopLogger, path)
		require.NoError(t, err)

		assert.Equal(t, "bench_test", cfg.RepoID)
		assert.Equal(t, "pick and place", cfg.SingleTask)
		assert.Equal(t, 2, cfg.CloudMode)
		assert.Equal(t, 8.0, cfg.MemoryLimitGB)
		assert.Equal(t, "192.168.1.9", cfg.Edge.Host)
		assert.Equal(t, "hunter2", cfg.Edge.Password)
		assert.Equal(t, 22, cfg.Edge.Port)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := writeConfig(t, `
REPO_ID=from_file
SINGLE_TASK=task
`)
		t.Setenv("REPO_ID", "from_env")
		t.Setenv("MEMORY_LIMIT_GB", "4.5")

		cfg, err := Load(mocks.NoopLogger, path)
		require.NoError(t, err)

		assert.Equal(t, "from_env", cfg.RepoID)
		assert.Equal(t, 4.5, cfg.MemoryLimitGB)
	})

	t.Run("defaults apply without file", func(t *testing.T) {
		t.Setenv("REPO_ID", "demo")
		t.Setenv("SINGLE_TASK", "task")

		cfg, err := Load(mocks.NoopLogger, filepath.Join(t.TempDir(), "absent.conf"))
		require.NoError(t, err)

		assert.Equal(t, robot.DefaultMemoryLimitGB, cfg.MemoryLimitGB)
		assert.Equal(t, 0, cfg.CloudMode)
		assert.Equal(t, "/dev/video0", cfg.CameraTopPath)
	})

	t.Run("missing repo id is rejected", func(t *testing.T) {
		_, err := Load(mocks.NoopLogger, filepath.Join(t.TempDir(), "absent.conf"))
		assert.ErrorIs(t, err, robot.ErrConfigInvalid)
	})

	t.Run("offload mode out of range is rejected", func(t *testing.T) {
		t.Setenv("REPO_ID", "demo")
		t.Setenv("SINGLE_TASK", "task")
		t.Setenv("CLOUD", "7")

		_, err := Load(mocks.NoopLogger, filepath.Join(t.TempDir(), "absent.conf"))
		assert.ErrorIs(t, err, robot.ErrConfigInvalid)
	})

	t.Run("malformed number is rejected", func(t *testing.T) {
		t.Setenv("REPO_ID", "demo")
		t.Setenv("SINGLE_TASK", "task")
		t.Setenv("MEMORY_LIMIT_GB", "lots")

		_, err := Load(mocks.NoopLogger, filepath.Join(t.TempDir(), "absent.conf"))
		assert.Error(t, err)
	})
}

func TestRegenerate(t *testing.T) {
	t.Run("preserves non-hardware fields", func(t *testing.T) {
		path := writeConfig(t, `# generated by detection
REPO_ID=bench_test
EDGE_SERVER_PASSWORD="secret"
CAMERA_TOP_PATH=/dev/video0
ARM_LEADER_PORT=/dev/ttyUSB0
`)

		err := Regenerate(path, map[string]string{
			"CAMERA_TOP_PATH": "/dev/video4",
			"ARM_LEADER_PORT": "/dev/ttyUSB2",
		})
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		content := string(data)
		assert.Contains(t, content, `EDGE_SERVER_PASSWORD="secret"`)
		assert.Contains(t, content, "CAMERA_TOP_PATH=/dev/video4")
		assert.Contains(t, content, "ARM_LEADER_PORT=/dev/ttyUSB2")
		assert.Contains(t, content, "# generated by detection")
	})

	t.Run("adds missing hardware fields", func(t *testing.T) {
		path := writeConfig(t, "REPO_ID=bench_test\n")

		err := Regenerate(path, map[string]string{"CAMERA_WRIST_PATH": "/dev/video6"})
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "CAMERA_WRIST_PATH=/dev/video6")
	})

	t.Run("rejects non-hardware keys", func(t *testing.T) {
		path := writeConfig(t, "REPO_ID=bench_test\n")

		err := Regenerate(path, map[string]string{"EDGE_SERVER_PASSWORD": "oops"})
		assert.Error(t, err)
	})
}
