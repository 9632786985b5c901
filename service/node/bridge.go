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
	"github.com/rs/zerolog"

	"github.com/dorobot/teleop-capture/models/robot"
	"github.com/dorobot/teleop-capture/service/bridge"
	"github.com/dorobot/teleop-capture/service/bus"
)

// BridgeRole connects the dataflow graph to the CLI side: every envelope it
// receives is cached in the bridge server, and actions pushed by the CLI
// are re-published into the graph.
type BridgeRole struct {
	log    zerolog.Logger
	server *bridge.Server
}

// NewBridgeRole creates a bridge role around an already bound bridge
// server.
func NewBridgeRole(log zerolog.Logger, server *bridge.Server) *BridgeRole {
	r := BridgeRole{
		log:    log,
		server: server,
	}
	return &r
}

// Name implements the Role interface.
func (r *BridgeRole) Name() string {
	return "bridge"
}

// Start implements the Role interface. The server's sockets are bound at
// construction time.
func (r *BridgeRole) Start() error {
	return nil
}

// Tick implements the Role interface. Pending injected actions are drained
// into the graph once per tick.
func (r *BridgeRole) Tick(pub *bus.Publisher) error {
	for {
		select {
		case payload := <-r.server.Actions():
			pub.Publish(robot.TopicActionCommand, payload)
		default:
			return nil
		}
	}
}

// Input implements the Role interface.
func (r *BridgeRole) Input(envelope robot.Envelope, _ *bus.Publisher) error {
	r.server.Observe(envelope)
	return nil
}

// Stop implements the Role interface.
func (r *BridgeRole) Stop() error {
	return r.server.Close()
}
