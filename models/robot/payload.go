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
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// PayloadKind discriminates the two payload shapes that travel on the bus.
type PayloadKind uint8

const (
	PayloadImage PayloadKind = iota + 1
	PayloadVector
)

// Payload is a tagged variant: every inter-node message is either an image
// frame or a named numeric vector.
type Payload struct {
	Kind   PayloadKind `msgpack:"kind"`
	Name   string      `msgpack:"name"`
	Width  int         `msgpack:"width,omitempty"`
	Height int         `msgpack:"height,omitempty"`
	Pixels []byte      `msgpack:"pixels,omitempty"`
	Values []float32   `msgpack:"values,omitempty"`
}

// ImagePayload wraps a camera frame for transport.
func ImagePayload(img Image) Payload {
	return Payload{
		Kind:   PayloadImage,
		Name:   img.Camera,
		Width:  img.Width,
		Height: img.Height,
		Pixels: img.Pixels,
	}
}

// VectorPayload wraps a named joint vector for transport.
func VectorPayload(name string, values []float32) Payload {
	return Payload{
		Kind:   PayloadVector,
		Name:   name,
		Values: values,
	}
}

// AsImage converts the payload back into an image.
func (p Payload) AsImage() (Image, error) {
	if p.Kind != PayloadImage {
		return Image{}, fmt.Errorf("payload %q is not an image", p.Name)
	}
	img := Image{
		Camera: p.Name,
		Width:  p.Width,
		Height: p.Height,
		Pixels: p.Pixels,
	}
	return img, nil
}

// Envelope is the wire format for one bus message.
type Envelope struct {
	Source  string  `msgpack:"source"`
	Topic   string  `msgpack:"topic"`
	Payload Payload `msgpack:"payload"`
}

// Encode serializes the envelope for transport.
func (e Envelope) Encode() ([]byte, error) {
	data, err := msgpack.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("could not encode envelope: %w", err)
	}
	return data, nil
}

// DecodeEnvelope deserializes one bus message.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var envelope Envelope
	err := msgpack.Unmarshal(data, &envelope)
	if err != nil {
		return Envelope{}, fmt.Errorf("could not decode envelope: %w", err)
	}
	return envelope, nil
}
