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
	"errors"
)

var (
	// ErrConfigInvalid means the loaded configuration cannot describe a
	// runnable cell; there is no recovery, the message is instructional.
	ErrConfigInvalid = errors.New("configuration invalid")

	// ErrPermissionMissing means a device file lacks the required mode; the
	// surfaced message includes the command that fixes it.
	ErrPermissionMissing = errors.New("device permission missing")

	// ErrNodeStartup means a node could not open its device after retries.
	ErrNodeStartup = errors.New("node startup failure")

	// ErrNodeCommunication means a node saw three consecutive read/write
	// errors within one second.
	ErrNodeCommunication = errors.New("node communication failure")

	// ErrBaselineNotEstablished means the mapper has not yet seen a leader
	// sample; benign, expected once per session.
	ErrBaselineNotEstablished = errors.New("mapping baseline not established")

	// ErrEmergencyStop means the deviation monitor tripped; terminal for the
	// session, recorded data is preserved.
	ErrEmergencyStop = errors.New("emergency stop")

	// ErrEpisodeValidation means an episode buffer does not satisfy the
	// schema (empty, or column lengths disagree with size).
	ErrEpisodeValidation = errors.New("episode validation failed")

	// ErrImageFlushTimeout means the image writer did not confirm all frames
	// of an episode within the dynamic deadline.
	ErrImageFlushTimeout = errors.New("image flush timeout")

	// ErrEncoder means video encoding failed on both the hardware and the
	// software path.
	ErrEncoder = errors.New("video encoding failed")

	// ErrConnectionProbe means the quick connection test to the edge or
	// cloud did not succeed within its deadline.
	ErrConnectionProbe = errors.New("connection probe failed")

	// ErrUploadFailed means the dataset could not be transferred.
	ErrUploadFailed = errors.New("upload failed")

	// ErrTrainingTimeout means the polling session deadline elapsed without
	// a terminal transaction state.
	ErrTrainingTimeout = errors.New("training timeout")

	// ErrDownloadFailed means the model could not be retrieved.
	ErrDownloadFailed = errors.New("model download failed")
)
