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
	"testing"

	"github.com/dorobot/teleop-capture/models/robot"
)

type Camera struct {
	OpenFunc    func() error
	CaptureFunc func() (robot.Image, error)
	CloseFunc   func() error
}

func BaselineCamera(t *testing.T) *Camera {
	t.Helper()

	c := Camera{
		OpenFunc: func() error {
			return nil
		},
		CaptureFunc: func() (robot.Image, error) {
			return GenericImage("top"), nil
		},
		CloseFunc: func() error {
			return nil
		},
	}

	return &c
}

func (c *Camera) Open() error {
	return c.OpenFunc()
}

func (c *Camera) Capture() (robot.Image, error) {
	return c.CaptureFunc()
}

func (c *Camera) Close() error {
	return c.CloseFunc()
}
