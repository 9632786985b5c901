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

package robot

import (
	"context"
)

// Arm is the capability set the runtime needs from a motor bus driver. The
// wire protocol behind it (serial register maps, CAN frames) is the driver's
// concern; positions are expressed in the bus's native integer resolution.
type Arm interface {
	Open() error
	ReadPositions() ([]int32, error)
	WritePositions(targets []int32) error
	Close() error
}

// Camera is the capability set the runtime needs from a camera driver.
type Camera interface {
	Open() error
	Capture() (Image, error)
	Close() error
}

// VideoEncoder turns a directory of PNG frames into one encoded video file.
type VideoEncoder interface {
	EncodeFrames(ctx context.Context, dir string, out string, fps int) error
}

// TrainingAPI is the slice of the remote training service the offload
// orchestrator consumes.
type TrainingAPI interface {
	NotifyUploadComplete(ctx context.Context, req UploadCompleteRequest) error
	TriggerTraining(ctx context.Context, repoID string) (string, error)
	GetStatus(ctx context.Context, repoID string) (TransactionStatus, error)
}

// UploadCompleteRequest notifies the training service that a dataset upload
// has finished and where to find it.
type UploadCompleteRequest struct {
	RepoID      string `json:"repo_id"`
	APIUsername string `json:"api_username"`
	APIPassword string `json:"api_password"`
	Tar         bool   `json:"tar"`
	TarPath     string `json:"tar_path,omitempty"`
}

// TransactionStatus is the training service's view of one offload
// transaction, as returned by the status endpoint.
type TransactionStatus struct {
	Status         string `json:"status"`
	TransactionID  string `json:"transaction_id,omitempty"`
	ProgressPct    int    `json:"progress_pct,omitempty"`
	SSHHost        string `json:"ssh_host,omitempty"`
	SSHUsername    string `json:"ssh_username,omitempty"`
	SSHPort        int    `json:"ssh_port,omitempty"`
	SSHPasswordB64 string `json:"ssh_password_b64,omitempty"`
	ModelPath      string `json:"model_path,omitempty"`
}

// Transaction states reported by the training service. COMPLETED and FAILED
// are terminal.
const (
	StatusUploading = "UPLOADING"
	StatusEncoding  = "ENCODING"
	StatusReady     = "READY"
	StatusTraining  = "TRAINING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Terminal reports whether the transaction has reached a terminal state.
func (t TransactionStatus) Terminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}
