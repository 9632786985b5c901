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

package node

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dorobot/teleop-capture/models/robot"
	"github.com/dorobot/teleop-capture/service/bus"
)

// CameraRole captures frames from one camera and publishes them on the
// camera's image topic.
type CameraRole struct {
	log    zerolog.Logger
	name   string
	camera robot.Camera
}

// NewCameraRole creates a camera role for the named camera.
func NewCameraRole(log zerolog.Logger, name string, camera robot.Camera) *CameraRole {
	r := CameraRole{
		log:    log.With().Str("camera", name).Logger(),
		name:   name,
		camera: camera,
	}
	return &r
}

// Name implements the Role interface.
func (r *CameraRole) Name() string {
	return "camera_" + r.name
}

// Start implements the Role interface.
func (r *CameraRole) Start() error {
	err := r.camera.Open()
	if err != nil {
		return fmt.Errorf("could not open camera: %w", err)
	}
	return nil
}

// Tick implements the Role interface.
func (r *CameraRole) Tick(pub *bus.Publisher) error {
	img, err := r.camera.Capture()
	if err != nil {
		return fmt.Errorf("could not capture frame: %w", err)
	}
	pub.Publish(robot.ImageTopic(r.name), robot.ImagePayload(img))
	return nil
}

// Input implements the Role interface. Camera nodes have no inputs.
func (r *CameraRole) Input(robot.Envelope, *bus.Publisher) error {
	return nil
}

// Stop implements the Role interface.
func (r *CameraRole) Stop() error {
	return r.camera.Close()
}
