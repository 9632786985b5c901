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

// Image is one camera frame in H×W×3 uint8 layout.
type Image struct {
	Camera string
	Width  int
	Height int
	Pixels []byte
}

// Clone returns a deep copy of the image.
func (i Image) Clone() Image {
	pixels := make([]byte, len(i.Pixels))
	copy(pixels, i.Pixels)
	c := i
	c.Pixels = pixels
	return c
}

// Frame is one tick's sample: the follower observation, the camera images and
// the action that was sent to the follower for this tick. Frames are immutable
// once appended to an episode buffer.
type Frame struct {
	FrameIndex   int
	EpisodeIndex int
	Timestamp    float64
	State        []float32
	Action       []float32
	Images       map[string]Image
}

// Clone returns a deep copy of the frame.
func (f Frame) Clone() Frame {
	c := f
	c.State = append([]float32(nil), f.State...)
	c.Action = append([]float32(nil), f.Action...)
	c.Images = make(map[string]Image, len(f.Images))
	for name, img := range f.Images {
		c.Images[name] = img.Clone()
	}
	return c
}
