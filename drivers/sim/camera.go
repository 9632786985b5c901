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

package sim

import (
	"fmt"
	"sync"

	"github.com/dorobot/teleop-capture/models/robot"
)

// Camera synthesizes RGB frames with a moving gradient, so consecutive
// frames differ and the video encoder has real work to do.
type Camera struct {
	mu     sync.Mutex
	open   bool
	name   string
	width  int
	height int
	frame  int
}

// NewCamera creates a simulated camera producing frames of the given size.
func NewCamera(name string, width int, height int) *Camera {

	c := Camera{
		name:   name,
		width:  width,
		height: height,
	}

	return &c
}

func (c *Camera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open {
		return fmt.Errorf("camera already open")
	}
	c.open = true

	return nil
}

func (c *Camera) Capture() (robot.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return robot.Image{}, fmt.Errorf("camera not open")
	}

	c.frame++
	pixels := make([]byte, c.width*c.height*3)
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			i := (y*c.width + x) * 3
			pixels[i] = byte(x + c.frame)
			pixels[i+1] = byte(y + c.frame)
			pixels[i+2] = byte(c.frame)
		}
	}

	image := robot.Image{
		Camera: c.name,
		Width:  c.width,
		Height: c.height,
		Pixels: pixels,
	}

	return image, nil
}

func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.open = false

	return nil
}
