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
	"path/filepath"

	"github.com/dorobot/teleop-capture/models/robot"
	"github.com/dorobot/teleop-capture/service/bus"
)

// Node names within the graph. Camera nodes are named with CameraNode.
const (
	NodeLeader   = "leader"
	NodeFollower = "follower"
	NodeBridge   = "bridge"
)

// CameraNode returns the node name for the given camera.
func CameraNode(camera string) string {
	return "camera_" + camera
}

// Graph maps the fixed process graph of one capture cell onto socket
// files in a single directory. The supervisor and every spawned node
// derive the same paths and wiring from the directory alone, so the
// topology never travels over the wire.
type Graph struct {
	dir string
}

// NewGraph creates a graph rooted at the given socket directory.
func NewGraph(dir string) Graph {
	return Graph{dir: dir}
}

// Dir returns the socket directory the graph is rooted at.
func (g Graph) Dir() string {
	return g.dir
}

// Socket returns the bus input socket of the named node.
func (g Graph) Socket(name string) string {
	return filepath.Join(g.dir, name+".sock")
}

// ImagesSocket returns the bridge's image request socket.
func (g Graph) ImagesSocket() string {
	return filepath.Join(g.dir, "bridge_images.sock")
}

// JointsSocket returns the bridge's joint request socket.
func (g Graph) JointsSocket() string {
	return filepath.Join(g.dir, "bridge_joints.sock")
}

// Sockets returns every socket file of the graph, for cleanup and for the
// supervisor's readiness wait. Camera and leader nodes subscribe to
// nothing, so they own no socket.
func (g Graph) Sockets() []string {
	return []string{
		g.Socket(NodeFollower),
		g.Socket(NodeBridge),
		g.ImagesSocket(),
		g.JointsSocket(),
	}
}

// Wiring returns the publisher wiring of the named node. Every topic is
// delivered to the bridge for recording; leader joints additionally reach
// the follower, and bridge-injected actions reach only the follower so a
// republished action cannot loop back into the bridge twice.
func (g Graph) Wiring(name string, cameras []string) bus.Wiring {

	bridge := g.Socket(NodeBridge)
	follower := g.Socket(NodeFollower)

	switch name {

	case NodeLeader:
		return bus.Wiring{
			robot.TopicLeaderJoints: {follower, bridge},
		}

	case NodeFollower:
		return bus.Wiring{
			robot.TopicFollowerJoints: {bridge},
			robot.TopicActionCommand:  {bridge},
		}

	case NodeBridge:
		return bus.Wiring{
			robot.TopicActionCommand: {follower},
		}

	default:
		for _, camera := range cameras {
			if name == CameraNode(camera) {
				return bus.Wiring{
					robot.ImageTopic(camera): {bridge},
				}
			}
		}
		return bus.Wiring{}
	}
}
