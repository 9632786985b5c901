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

package bridge

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dorobot/teleop-capture/models/robot"
)

// exchangeDeadline bounds one request/reply round trip on the client.
const exchangeDeadline = 100 * time.Millisecond

// Client is the CLI-side end of the bridge. Pulls that time out return no
// value without logging: an idle graph is a normal condition for the
// record loop, which simply skips the tick.
type Client struct {
	log zerolog.Logger

	imagesPath string
	jointsPath string

	mutex  sync.Mutex
	images *net.UnixConn
	joints *net.UnixConn
}

// NewClient creates a bridge client for the two given socket paths. No
// connection is made until the first exchange.
func NewClient(log zerolog.Logger, imagesPath string, jointsPath string) *Client {
	c := Client{
		log:        log.With().Str("component", "bridge_client").Logger(),
		imagesPath: imagesPath,
		jointsPath: jointsPath,
	}
	return &c
}

// Connect dials both bridge sockets eagerly. It can be skipped; exchanges
// dial lazily.
func (c *Client) Connect() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.connection(&c.images, c.imagesPath)
	if err != nil {
		return fmt.Errorf("could not connect image socket: %w", err)
	}
	_, err = c.connection(&c.joints, c.jointsPath)
	if err != nil {
		return fmt.Errorf("could not connect joint socket: %w", err)
	}
	return nil
}

// Disconnect closes both connections, discarding any in-flight exchange.
func (c *Client) Disconnect() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.images != nil {
		c.images.Close()
		c.images = nil
	}
	if c.joints != nil {
		c.joints.Close()
		c.joints = nil
	}
}

// PullImage fetches the latest frame of the given camera. The second return
// value is false when the bridge has no frame yet or did not answer in
// time.
func (c *Client) PullImage(camera string) (robot.Image, bool) {
	reply, ok := c.exchange(&c.images, c.imagesPath, Request{Topic: robot.ImageTopic(camera)})
	if !ok || reply.Empty() {
		return robot.Image{}, false
	}
	img, err := reply.Payload.AsImage()
	if err != nil {
		c.log.Warn().Err(err).Str("camera", camera).Msg("bridge returned malformed image")
		return robot.Image{}, false
	}
	return img, true
}

// PullVector fetches the latest joint vector published on the given topic.
func (c *Client) PullVector(topic string) ([]float32, bool) {
	reply, ok := c.exchange(&c.joints, c.jointsPath, Request{Topic: topic})
	if !ok || reply.Empty() {
		return nil, false
	}
	return reply.Payload.Values, true
}

// PushAction injects an action vector into the graph through the bridge.
func (c *Client) PushAction(values []float32) bool {
	req := Request{
		Topic:   robot.TopicActionCommand,
		Payload: robot.VectorPayload("action", values),
	}
	_, ok := c.exchange(&c.joints, c.jointsPath, req)
	return ok
}

// exchange performs one request/reply round trip on the given socket. On
// any failure the connection is dropped so the next exchange starts clean;
// a late reply on a reused connection would desynchronize the protocol.
func (c *Client) exchange(conn **net.UnixConn, path string, req Request) (Reply, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	socket, err := c.connection(conn, path)
	if err != nil {
		return Reply{}, false
	}

	_ = socket.SetDeadline(time.Now().Add(exchangeDeadline))

	err = writeFrame(socket, req)
	if err != nil {
		c.drop(conn)
		return Reply{}, false
	}

	var reply Reply
	err = readFrame(socket, &reply)
	if err != nil {
		c.drop(conn)
		return Reply{}, false
	}

	return reply, true
}

// connection returns the cached connection for a socket, dialing it when
// needed. Must be called with the mutex held.
func (c *Client) connection(conn **net.UnixConn, path string) (*net.UnixConn, error) {
	if *conn != nil {
		return *conn, nil
	}
	addr := net.UnixAddr{Name: path, Net: "unix"}
	socket, err := net.DialUnix("unix", nil, &addr)
	if err != nil {
		return nil, err
	}
	*conn = socket
	return socket, nil
}

// drop discards a connection after a failed exchange. Must be called with
// the mutex held.
func (c *Client) drop(conn **net.UnixConn) {
	if *conn == nil {
		return
	}
	(*conn).Close()
	*conn = nil
}
