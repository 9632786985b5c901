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
)

type VideoEncoder struct {
	EncodeFramesFunc func(ctx context.Context, dir string, out string, fps int) error
}

func BaselineVideoEncoder(t *testing.T) *VideoEncoder {
	t.Helper()

	e := VideoEncoder{
		EncodeFramesFunc: func(ctx context.Context, dir string, out string, fps int) error {
			return nil
		},
	}

	return &e
}

func (e *VideoEncoder) EncodeFrames(ctx context.Context, dir string, out string, fps int) error {
	return e.EncodeFramesFunc(ctx, dir, out, fps)
}
