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
)

type Arm struct {
	OpenFunc           func() error
	ReadPositionsFunc  func() ([]int32, error)
	WritePositionsFunc func(targets []int32) error
	CloseFunc          func() error
}

func BaselineArm(t *testing.T) *Arm {
	t.Helper()

	a := Arm{
		OpenFunc: func() error {
			return nil
		},
		ReadPositionsFunc: func() ([]int32, error) {
			return GenericPositions, nil
		},
		WritePositionsFunc: func(targets []int32) error {
			return nil
		},
		CloseFunc: func() error {
			return nil
		},
	}

	return &a
}

func (a *Arm) Open() error {
	return a.OpenFunc()
}

func (a *Arm) ReadPositions() ([]int32, error) {
	return a.ReadPositionsFunc()
}

func (a *Arm) WritePositions(targets []int32) error {
	return a.WritePositionsFunc(targets)
}

func (a *Arm) Close() error {
	return a.CloseFunc()
}
