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

package bus

import (
	"net"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/dorobot/teleop-capture/models/robot"
)

// Wiring is the static graph table: for each topic, the subscriber socket
// paths the topic is delivered to.
type Wiring map[string][]string

// Publisher delivers a node's outputs to the subscribers wired to each
// topic. Connections are dialed lazily and redialed once per publish when
// broken; a subscriber that stays unreachable loses messages, by the bus's
// lossy latest-wins contract.
type Publisher struct {
	log    zerolog.Logger
	source string
	wiring Wiring

	mutex sync.Mutex
	conns map[string]*net.UnixConn
}

// NewPublisher creates a publisher for the given node and wiring table.
func NewPublisher(log zerolog.Logger, source string, wiring Wiring) *Publisher {
	p := Publisher{
		log:    log.With().Str("component", "bus_publisher").Str("source", source).Logger(),
		source: source,
		wiring: wiring,
		conns:  make(map[string]*net.UnixConn),
	}
	return &p
}

// Publish sends the payload on the given topic to every wired subscriber.
// Publish never blocks the node's event loop for more than the write
// deadline per destination.
func (p *Publisher) Publish(topic string, payload robot.Payload) {
	envelope := robot.Envelope{
		Source:  p.source,
		Topic:   topic,
		Payload: payload,
	}
	for _, path := range p.wiring[topic] {
		err := p.send(path, envelope)
		if err != nil {
			p.log.Debug().Err(err).Str("topic", topic).Str("destination", path).
				Msg("dropped message")
		}
	}
}

func (p *Publisher) send(path string, envelope robot.Envelope) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	conn, err := p.connection(path)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(100 * time.Millisecond))
	err = writeMessage(conn, envelope)
	if err != nil {
		// One redial covers the subscriber-restarted case.
		conn.Close()
		delete(p.conns, path)
		conn, err = p.connection(path)
		if err != nil {
			return err
		}
		_ = conn.SetWriteDeadline(time.Now().Add(100 * time.Millisecond))
		err = writeMessage(conn, envelope)
		if err != nil {
			conn.Close()
			delete(p.conns, path)
			return err
		}
	}
	return nil
}

func (p *Publisher) connection(path string) (*net.UnixConn, error) {
	conn, ok := p.conns[path]
	if ok {
		return conn, nil
	}
	addr := net.UnixAddr{Name: path, Net: "unix"}
	conn, err := net.DialUnix("unix", nil, &addr)
	if err != nil {
		return nil, err
	}
	p.conns[path] = conn
	return conn, nil
}

// Close releases all publisher connections.
func (p *Publisher) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	var merr *multierror.Error
	for path, conn := range p.conns {
		err := conn.Close()
		if err != nil {
			merr = multierror.Append(merr, err)
		}
		delete(p.conns, path)
	}
	return merr.ErrorOrNil()
}
