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

package training

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorobot/teleop-capture/models/robot"
	"github.com/dorobot/teleop-capture/testing/mocks"
)

func TestClient_NotifyUploadComplete(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		var got robot.UploadCompleteRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/notify-upload-complete", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewClient(mocks.NoopLogger, server.URL, "operator", "secret")
		err := client.NotifyUploadComplete(context.Background(), robot.UploadCompleteRequest{
			RepoID:  "bench_test",
			Tar:     true,
			TarPath: "/srv/operator/bench_test/dataset.tar",
		})
		require.NoError(t, err)

		assert.Equal(t, "bench_test", got.RepoID)
		assert.Equal(t, "operator", got.APIUsername)
		assert.Equal(t, "secret", got.APIPassword)
		assert.True(t, got.Tar)
		assert.Equal(t, "/srv/operator/bench_test/dataset.tar", got.TarPath)
	})

	t.Run("server error surfaces", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		client := NewClient(mocks.NoopLogger, server.URL, "operator", "secret")
		err := client.NotifyUploadComplete(context.Background(), robot.UploadCompleteRequest{RepoID: "bench_test"})
		assert.Error(t, err)
	})
}

func TestClient_TriggerTraining(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/train/bench_test", r.URL.Path)

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "operator", body["api_username"])

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{"transaction_id": "tx-0042"})
		}))
		defer server.Close()

		client := NewClient(mocks.NoopLogger, server.URL, "operator", "secret")
		id, err := client.TriggerTraining(context.Background(), "bench_test")
		require.NoError(t, err)
		assert.Equal(t, "tx-0042", id)
	})

	t.Run("server error surfaces", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewClient(mocks.NoopLogger, server.URL, "operator", "secret")
		_, err := client.TriggerTraining(context.Background(), "bench_test")
		assert.Error(t, err)
	})
}

func TestClient_GetStatus(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/status/bench_test", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(robot.TransactionStatus{
				Status:        robot.StatusTraining,
				TransactionID: "tx-0042",
				ProgressPct:   40,
			})
		}))
		defer server.Close()

		client := NewClient(mocks.NoopLogger, server.URL, "operator", "secret")
		status, err := client.GetStatus(context.Background(), "bench_test")
		require.NoError(t, err)

		assert.Equal(t, robot.StatusTraining, status.Status)
		assert.Equal(t, "tx-0042", status.TransactionID)
		assert.Equal(t, 40, status.ProgressPct)
		assert.False(t, status.Terminal())
	})

	t.Run("unreachable service fails", func(t *testing.T) {
		t.Parallel()

		client := NewClient(mocks.NoopLogger, "http://127.0.0.1:1", "operator", "secret")
		_, err := client.GetStatus(context.Background(), "bench_test")
		assert.Error(t, err)
	})
}
