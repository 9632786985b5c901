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

package offload

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorobot/teleop-capture/edge"
	"github.com/dorobot/teleop-capture/models/robot"
	"github.com/dorobot/teleop-capture/testing/mocks"
)

type transportMock struct {
	sync.Mutex
	ProbeFunc     func(creds edge.Credentials) error
	UploadFunc    func(creds edge.Credentials, localDir string, remoteDir string, exclude ...string) error
	DownloadFunc  func(creds edge.Credentials, remoteDir string, localDir string) error
	DirExistsFunc func(creds edge.Credentials, path string) bool

	uploads   []string
	excludes  [][]string
	downloads []string
}

func baselineTransport(t *testing.T) *transportMock {
	t.Helper()

	m := transportMock{
		ProbeFunc: func(edge.Credentials) error { return nil },
		UploadFunc: func(creds edge.Credentials, localDir string, remoteDir string, exclude ...string) error {
			return nil
		},
		DownloadFunc: func(creds edge.Credentials, remoteDir string, localDir string) error {
			return nil
		},
		DirExistsFunc: func(edge.Credentials, string) bool { return false },
	}

	return &m
}

func (m *transportMock) Probe(creds edge.Credentials) error {
	return m.ProbeFunc(creds)
}

func (m *transportMock) Upload(creds edge.Credentials, localDir string, remoteDir string, exclude ...string) error {
	m.Lock()
	m.uploads = append(m.uploads, remoteDir)
	m.excludes = append(m.excludes, exclude)
	m.Unlock()
	return m.UploadFunc(creds, localDir, remoteDir, exclude...)
}

func (m *transportMock) Download(creds edge.Credentials, remoteDir string, localDir string) error {
	m.Lock()
	m.downloads = append(m.downloads, remoteDir)
	m.Unlock()
	return m.DownloadFunc(creds, remoteDir, localDir)
}

func (m *transportMock) DirExists(creds edge.Credentials, path string) bool {
	return m.DirExistsFunc(creds, path)
}

func testParams(mode int) Params {
	return Params{
		Mode:        mode,
		RepoID:      "bench_test",
		APIUsername: "operator",
		DataDir:     "/tmp/data/bench_test",
		ModelDir:    "/tmp/model",
		Remote:      edge.Credentials{Host: "192.168.1.9", User: "edge", Password: "pw"},
		RemotePath:  "/uploaded_data",
	}
}

func completedStatus() robot.TransactionStatus {
	return robot.TransactionStatus{
		Status:         robot.StatusCompleted,
		TransactionID:  "tx-0042",
		SSHHost:        "cloud.example.com",
		SSHUsername:    "trainer",
		SSHPort:        22,
		SSHPasswordB64: base64.StdEncoding.EncodeToString([]byte("cloudpw")),
		ModelPath:      "/srv/models/bench_test",
	}
}

func TestSession_Run(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		var notified []robot.UploadCompleteRequest
		var triggers int
		sequence := []string{
			robot.StatusUploading,
			robot.StatusReady,
			robot.StatusTraining,
		}
		polls := 0

		api := mocks.BaselineTrainingAPI(t)
		api.NotifyUploadCompleteFunc = func(ctx context.Context, req robot.UploadCompleteRequest) error {
			notified = append(notified, req)
			return nil
		}
		api.TriggerTrainingFunc = func(ctx context.Context, repoID string) (string, error) {
			triggers++
			return "tx-0042", nil
		}
		api.GetStatusFunc = func(ctx context.Context, repoID string) (robot.TransactionStatus, error) {
			if polls < len(sequence) {
				status := robot.TransactionStatus{Status: sequence[polls]}
				polls++
				return status, nil
			}
			return completedStatus(), nil
		}

		transport := baselineTransport(t)
		session := NewSession(mocks.NoopLogger, api, transport, testParams(ModeEdge),
			WithPollInterval(time.Millisecond))

		err := session.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, StatusDone, session.Status())
		assert.Equal(t, []string{"/uploaded_data/operator/bench_test"}, transport.uploads)
		require.Len(t, transport.excludes, 1)
		assert.Empty(t, transport.excludes[0])
		require.Len(t, notified, 1)
		assert.True(t, notified[0].Tar)
		assert.Equal(t, "/uploaded_data/operator/bench_test", notified[0].TarPath)
		assert.Equal(t, 1, triggers)
		assert.Equal(t, []string{"/srv/models/bench_test"}, transport.downloads)
	})

	t.Run("cloud encoded upload leaves raw frames behind", func(t *testing.T) {
		t.Parallel()

		api := mocks.BaselineTrainingAPI(t)
		api.GetStatusFunc = func(ctx context.Context, repoID string) (robot.TransactionStatus, error) {
			return completedStatus(), nil
		}

		transport := baselineTransport(t)
		session := NewSession(mocks.NoopLogger, api, transport, testParams(ModeCloudEncoded),
			WithPollInterval(time.Millisecond))

		require.NoError(t, session.Run(context.Background()))

		require.Len(t, transport.excludes, 1)
		assert.Equal(t, []string{"images"}, transport.excludes[0])
	})

	t.Run("local modes are a no-op", func(t *testing.T) {
		t.Parallel()

		for _, mode := range []int{ModeLocal, ModeLocalRaw} {
			api := mocks.BaselineTrainingAPI(t)
			api.GetStatusFunc = func(ctx context.Context, repoID string) (robot.TransactionStatus, error) {
				t.Fatal("local mode must not poll")
				return robot.TransactionStatus{}, nil
			}

			transport := baselineTransport(t)
			session := NewSession(mocks.NoopLogger, api, transport, testParams(mode))

			require.NoError(t, session.Run(context.Background()))
			assert.Equal(t, StatusDone, session.Status())
			assert.Empty(t, transport.uploads)
		}
	})

	t.Run("ready triggers training exactly once", func(t *testing.T) {
		t.Parallel()

		triggers := 0
		sequence := []string{
			robot.StatusReady,
			robot.StatusReady,
			robot.StatusReady,
			robot.StatusTraining,
		}
		polls := 0

		api := mocks.BaselineTrainingAPI(t)
		api.TriggerTrainingFunc = func(ctx context.Context, repoID string) (string, error) {
			triggers++
			return "tx-0042", nil
		}
		api.GetStatusFunc = func(ctx context.Context, repoID string) (robot.TransactionStatus, error) {
			if polls < len(sequence) {
				status := robot.TransactionStatus{Status: sequence[polls]}
				polls++
				return status, nil
			}
			return completedStatus(), nil
		}

		session := NewSession(mocks.NoopLogger, api, baselineTransport(t), testParams(ModeCloudRaw),
			WithPollInterval(time.Millisecond))

		require.NoError(t, session.Run(context.Background()))
		assert.Equal(t, 1, triggers)
	})

	t.Run("probe failure fails the session", func(t *testing.T) {
		t.Parallel()

		transport := baselineTransport(t)
		transport.ProbeFunc = func(edge.Credentials) error {
			return robot.ErrConnectionProbe
		}

		session := NewSession(mocks.NoopLogger, mocks.BaselineTrainingAPI(t), transport, testParams(ModeEdge))

		err := session.Run(context.Background())
		assert.ErrorIs(t, err, robot.ErrConnectionProbe)
		assert.Equal(t, StatusFailed, session.Status())
	})

	t.Run("failed transaction surfaces", func(t *testing.T) {
		t.Parallel()

		api := mocks.BaselineTrainingAPI(t)
		api.GetStatusFunc = func(ctx context.Context, repoID string) (robot.TransactionStatus, error) {
			return robot.TransactionStatus{Status: robot.StatusFailed, TransactionID: "tx-0042"}, nil
		}

		session := NewSession(mocks.NoopLogger, api, baselineTransport(t), testParams(ModeCloudRaw),
			WithPollInterval(time.Millisecond))

		err := session.Run(context.Background())
		assert.Error(t, err)
		assert.Equal(t, StatusFailed, session.Status())
	})

	t.Run("polling deadline expires", func(t *testing.T) {
		t.Parallel()

		api := mocks.BaselineTrainingAPI(t)
		api.GetStatusFunc = func(ctx context.Context, repoID string) (robot.TransactionStatus, error) {
			return robot.TransactionStatus{Status: robot.StatusTraining}, nil
		}

		session := NewSession(mocks.NoopLogger, api, baselineTransport(t), testParams(ModeCloudRaw),
			WithPollInterval(time.Millisecond),
			WithTimeout(20*time.Millisecond))

		err := session.Run(context.Background())
		assert.ErrorIs(t, err, robot.ErrTrainingTimeout)
	})

	t.Run("model directory fallback completes a lagging transaction", func(t *testing.T) {
		t.Parallel()

		lagging := completedStatus()
		lagging.Status = robot.StatusTraining

		api := mocks.BaselineTrainingAPI(t)
		api.GetStatusFunc = func(ctx context.Context, repoID string) (robot.TransactionStatus, error) {
			return lagging, nil
		}

		transport := baselineTransport(t)
		transport.DirExistsFunc = func(creds edge.Credentials, path string) bool {
			assert.Equal(t, "cloudpw", creds.Password)
			return path == "/srv/models/bench_test"
		}

		session := NewSession(mocks.NoopLogger, api, transport, testParams(ModeCloudRaw),
			WithPollInterval(time.Millisecond),
			WithSkipUpload(true))

		require.NoError(t, session.Run(context.Background()))
		assert.Equal(t, []string{"/srv/models/bench_test"}, transport.downloads)
	})

	t.Run("download only starts at the model retrieval", func(t *testing.T) {
		t.Parallel()

		api := mocks.BaselineTrainingAPI(t)
		api.GetStatusFunc = func(ctx context.Context, repoID string) (robot.TransactionStatus, error) {
			return completedStatus(), nil
		}
		api.TriggerTrainingFunc = func(ctx context.Context, repoID string) (string, error) {
			t.Fatal("download only must not trigger training")
			return "", nil
		}

		transport := baselineTransport(t)
		session := NewSession(mocks.NoopLogger, api, transport, testParams(ModeCloudEncoded),
			WithPollInterval(time.Millisecond),
			WithDownloadOnly(true))

		require.NoError(t, session.Run(context.Background()))
		assert.Empty(t, transport.uploads)
		assert.Equal(t, []string{"/srv/models/bench_test"}, transport.downloads)
	})
}
