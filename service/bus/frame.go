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

// Package bus implements the dataflow transport between node processes: each
// subscribing node binds one unix socket, publishers hold a static wiring
// table from topic to subscriber sockets. Messages are length-prefixed
// msgpack envelopes; delivery is lossy latest-wins, a stalled subscriber
// drops old messages rather than blocking the graph.
package bus

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dorobot/teleop-capture/models/robot"
)

// maxMessageSize bounds one envelope; a 1920x1080 RGB frame plus headers
// fits comfortably.
const maxMessageSize = 8 << 20

// writeMessage writes one length-prefixed envelope.
func writeMessage(w io.Writer, envelope robot.Envelope) error {
	data, err := envelope.Encode()
	if err != nil {
		return fmt.Errorf("could not encode message: %w", err)
	}
	if len(data) > maxMessageSize {
		return fmt.Errorf("message of %d bytes exceeds maximum size", len(data))
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))
	_, err = w.Write(header[:])
	if err != nil {
		return fmt.Errorf("could not write message header: %w", err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("could not write message body: %w", err)
	}
	return nil
}

// readMessage reads one length-prefixed envelope.
func readMessage(r io.Reader) (robot.Envelope, error) {
	var header [4]byte
	_, err := io.ReadFull(r, header[:])
	if err != nil {
		return robot.Envelope{}, err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > maxMessageSize {
		return robot.Envelope{}, fmt.Errorf("message of %d bytes exceeds maximum size", size)
	}
	data := make([]byte, size)
	_, err = io.ReadFull(r, data)
	if err != nil {
		return robot.Envelope{}, fmt.Errorf("could not read message body: %w", err)
	}
	return robot.DecodeEnvelope(data)
}
