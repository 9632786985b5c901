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
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dorobot/teleop-capture/models/robot"
)

// subscriberBacklog bounds buffered messages per subscriber; on overflow the
// oldest message is dropped, never the newest.
const subscriberBacklog = 16

// Subscriber is one node's input socket. It accepts any number of publisher
// connections and funnels their envelopes into a single ordered stream.
type Subscriber struct {
	log      zerolog.Logger
	path     string
	listener *net.UnixListener
	messages chan robot.Envelope
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewSubscriber binds the subscriber socket, replacing any stale socket file
// left behind by a previous run.
func NewSubscriber(log zerolog.Logger, path string) (*Subscriber, error) {

	// A stale file from a crashed process would make the bind fail.
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("could not remove stale socket file: %w", err)
	}

	addr := net.UnixAddr{Name: path, Net: "unix"}
	listener, err := net.ListenUnix("unix", &addr)
	if err != nil {
		return nil, fmt.Errorf("could not bind subscriber socket: %w", err)
	}

	s := Subscriber{
		log:      log.With().Str("component", "bus_subscriber").Str("socket", path).Logger(),
		path:     path,
		listener: listener,
		messages: make(chan robot.Envelope, subscriberBacklog),
		done:     make(chan struct{}),
	}

	s.wg.Add(1)
	go s.accept()

	return &s, nil
}

func (s *Subscriber) accept() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.AcceptUnix()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.log.Warn().Err(err).Msg("could not accept publisher connection")
			continue
		}
		s.wg.Add(1)
		go s.consume(conn)
	}
}

func (s *Subscriber) consume(conn *net.UnixConn) {
	defer s.wg.Done()
	defer conn.Close()
	for {
		envelope, err := readMessage(conn)
		if err != nil {
			select {
			case <-s.done:
			default:
				s.log.Debug().Err(err).Msg("publisher connection closed")
			}
			return
		}
		select {
		case s.messages <- envelope:
		default:
			// Latest-wins: shed the oldest buffered message.
			select {
			case <-s.messages:
			default:
			}
			select {
			case s.messages <- envelope:
			default:
			}
		}
	}
}

// Receive returns the next envelope, or an os.ErrDeadlineExceeded-wrapped
// error when nothing arrives within the timeout.
func (s *Subscriber) Receive(timeout time.Duration) (robot.Envelope, error) {
	select {
	case envelope := <-s.messages:
		return envelope, nil
	case <-time.After(timeout):
		return robot.Envelope{}, os.ErrDeadlineExceeded
	case <-s.done:
		return robot.Envelope{}, net.ErrClosed
	}
}

// Path returns the socket file path.
func (s *Subscriber) Path() string {
	return s.path
}

// Close shuts the socket down and removes its file.
func (s *Subscriber) Close() error {
	var closeErr error
	s.once.Do(func() {
		close(s.done)
		closeErr = s.listener.Close()
		s.wg.Wait()
		_ = os.Remove(s.path)
	})
	return closeErr
}
