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
	"errors"
	"io"

	"github.com/rs/zerolog"

	"github.com/dorobot/teleop-capture/models/robot"
)

// Global variables that can be used for testing. They are non-nil valid
// values for the types commonly needed to test capture components.
var (
	NoopLogger = zerolog.New(io.Discard)

	GenericError = errors.New("dummy error")

	GenericTask = "pick_place"

	GenericCameras = []string{"top", "wrist"}

	GenericPositions = []int32{1000, -2000, 3000, -4000, 5000, -6000}
)

// GenericImage returns a small valid RGB image for the given camera, with a
// deterministic pixel pattern.
func GenericImage(camera string) robot.Image {
	img := robot.Image{
		Camera: camera,
		Width:  4,
		Height: 3,
		Pixels: make([]byte, 4*3*3),
	}
	for i := range img.Pixels {
		img.Pixels[i] = byte(i * 7)
	}
	return img
}

// GenericFrame returns a valid frame with the given index, carrying images
// for the generic cameras.
func GenericFrame(index int) robot.Frame {
	images := make(map[string]robot.Image, len(GenericCameras))
	for _, camera := range GenericCameras {
		images[camera] = GenericImage(camera)
	}
	return robot.Frame{
		FrameIndex:   index,
		EpisodeIndex: 0,
		Timestamp:    float64(index) / 30,
		State:        []float32{float32(index), float32(index) * 2},
		Action:       []float32{float32(index) * 3, float32(index) * 4},
		Images:       images,
	}
}

// GenericBusSpec returns a valid motor bus specification with two joints in
// raw units.
func GenericBusSpec(name string) robot.BusSpec {
	return robot.BusSpec{
		Name: name,
		Joints: []robot.JointSpec{
			{ID: 1, Sign: 1, RangeMin: -4096, RangeMax: 4096, Unit: robot.UnitRawUnits},
			{ID: 2, Sign: -1, RangeMin: -4096, RangeMax: 4096, Unit: robot.UnitRawUnits},
		},
	}
}
