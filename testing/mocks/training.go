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

package mocks

import (
	"context"
	"testing"

	"github.com/dorobot/teleop-capture/models/robot"
)

type TrainingAPI struct {
	NotifyUploadCompleteFunc func(ctx context.Context, req robot.UploadCompleteRequest) error
	TriggerTrainingFunc      func(ctx context.Context, repoID string) (string, error)
	GetStatusFunc            func(ctx context.Context, repoID string) (robot.TransactionStatus, error)
}

func BaselineTrainingAPI(t *testing.T) *TrainingAPI {
	t.Helper()

	a := TrainingAPI{
		NotifyUploadCompleteFunc: func(ctx context.Context, req robot.UploadCompleteRequest) error {
			return nil
		},
		TriggerTrainingFunc: func(ctx context.Context, repoID string) (string, error) {
			return "tx-0001", nil
		},
		GetStatusFunc: func(ctx context.Context, repoID string) (robot.TransactionStatus, error) {
			return robot.TransactionStatus{Status: robot.StatusReady}, nil
		},
	}

	return &a
}

func (a *TrainingAPI) NotifyUploadComplete(ctx context.Context, req robot.UploadCompleteRequest) error {
	return a.NotifyUploadCompleteFunc(ctx, req)
}

func (a *TrainingAPI) TriggerTraining(ctx context.Context, repoID string) (string, error) {
	return a.TriggerTrainingFunc(ctx, repoID)
}

func (a *TrainingAPI) GetStatus(ctx context.Context, repoID string) (robot.TransactionStatus, error) {
	return a.GetStatusFunc(ctx, repoID)
}
