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

// Package bridge carries observations out of the dataflow graph and actions
// back into it, over two request/reply unix sockets: one for images, one for
// joint vectors. A pull request names a topic and the reply carries the
// latest cached payload for it, or an empty payload when nothing has been
// published yet. A push request carries an action payload the bridge
// re-injects into the graph.
package bridge

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/dorobot/teleop-capture/models/robot"
)

// maxRequestSize bounds one framed request or reply.
const maxRequestSize = 8 << 20

// Request is one request on a bridge socket. A request with a zero payload
// pulls the latest value of the topic; a request with a payload pushes that
// payload into the graph under the topic.
type Request struct {
	Topic   string        `msgpack:"topic"`
	Payload robot.Payload `msgpack:"payload"`
}

// Push reports whether the request carries a payload to inject.
func (r Request) Push() bool {
	return r.Payload.Kind != 0
}

// Reply is one reply on a bridge socket. An empty payload means the topic
// has no cached value yet.
type Reply struct {
	Topic   string        `msgpack:"topic"`
	Payload robot.Payload `msgpack:"payload"`
}

// Empty reports whether the reply carries no payload.
func (r Reply) Empty() bool {
	return r.Payload.Kind == 0
}

func writeFrame(w io.Writer, v interface{}) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("could not encode frame: %w", err)
	}
	if len(data) > maxRequestSize {
		return fmt.Errorf("frame of %d bytes exceeds maximum size", len(data))
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))
	_, err = w.Write(header[:])
	if err != nil {
		return fmt.Errorf("could not write frame header: %w", err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("could not write frame body: %w", err)
	}
	return nil
}

func readFrame(r io.Reader, v interface{}) error {
	var header [4]byte
	_, err := io.ReadFull(r, header[:])
	if err != nil {
		return err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > maxRequestSize {
		return fmt.Errorf("frame of %d bytes exceeds maximum size", size)
	}
	data := make([]byte, size)
	_, err = io.ReadFull(r, data)
	if err != nil {
		return fmt.Errorf("could not read frame body: %w", err)
	}
	err = msgpack.Unmarshal(data, v)
	if err != nil {
		return fmt.Errorf("could not decode frame: %w", err)
	}
	return nil
}
