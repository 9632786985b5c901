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
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/dorobot/teleop-capture/models/robot"
)

// replyDeadline bounds the write of one reply; a client that stopped
// reading loses the exchange, not the server.
const replyDeadline = 100 * time.Millisecond

// actionBacklog bounds injected actions awaiting re-publication.
const actionBacklog = 16

// Server is the graph-side end of the bridge. The bridge node feeds it
// every envelope it receives; the server caches the latest payload per
// topic and answers pull requests from the CLI side. Pushed actions are
// surfaced on the Actions channel for the node to re-publish into the
// graph.
type Server struct {
	log zerolog.Logger

	imagesPath string
	jointsPath string
	listeners  []*net.UnixListener

	mutex sync.Mutex
	cache map[string]robot.Payload

	actions chan robot.Payload
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// NewServer binds the two bridge sockets, replacing stale socket files from
// a previous run.
func NewServer(log zerolog.Logger, imagesPath string, jointsPath string) (*Server, error) {

	s := Server{
		log:        log.With().Str("component", "bridge_server").Logger(),
		imagesPath: imagesPath,
		jointsPath: jointsPath,
		cache:      make(map[string]robot.Payload),
		actions:    make(chan robot.Payload, actionBacklog),
		done:       make(chan struct{}),
	}

	for _, path := range []string{imagesPath, jointsPath} {
		err := os.Remove(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("could not remove stale socket file: %w", err)
		}
		addr := net.UnixAddr{Name: path, Net: "unix"}
		listener, err := net.ListenUnix("unix", &addr)
		if err != nil {
			for _, open := range s.listeners {
				open.Close()
			}
			return nil, fmt.Errorf("could not bind bridge socket %s: %w", path, err)
		}
		s.listeners = append(s.listeners, listener)
		s.wg.Add(1)
		go s.accept(listener)
	}

	return &s, nil
}

// Observe caches the latest payload for a topic. The bridge node calls this
// for every envelope its subscriber delivers.
func (s *Server) Observe(envelope robot.Envelope) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.cache[envelope.Topic] = envelope.Payload
}

// Actions returns the stream of pushed action payloads awaiting
// re-publication into the graph.
func (s *Server) Actions() <-chan robot.Payload {
	return s.actions
}

// Close shuts both sockets down and removes their files.
func (s *Server) Close() error {
	var merr *multierror.Error
	s.once.Do(func() {
		close(s.done)
		for _, listener := range s.listeners {
			err := listener.Close()
			if err != nil {
				merr = multierror.Append(merr, err)
			}
		}
		s.wg.Wait()
		_ = os.Remove(s.imagesPath)
		_ = os.Remove(s.jointsPath)
	})
	return merr.ErrorOrNil()
}

func (s *Server) accept(listener *net.UnixListener) {
	defer s.wg.Done()
	for {
		conn, err := listener.AcceptUnix()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.log.Warn().Err(err).Msg("could not accept bridge connection")
			continue
		}
		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *Server) serve(conn *net.UnixConn) {
	defer s.wg.Done()
	defer conn.Close()
	for {
		var req Request
		err := readFrame(conn, &req)
		if err != nil {
			select {
			case <-s.done:
			default:
				s.log.Debug().Err(err).Msg("bridge connection closed")
			}
			return
		}

		if req.Push() {
			s.inject(req)
		}

		reply := Reply{Topic: req.Topic}
		if !req.Push() {
			s.mutex.Lock()
			payload, ok := s.cache[req.Topic]
			s.mutex.Unlock()
			if ok {
				reply.Payload = payload
			}
		}

		_ = conn.SetWriteDeadline(time.Now().Add(replyDeadline))
		err = writeFrame(conn, reply)
		if err != nil {
			s.log.Debug().Err(err).Str("topic", req.Topic).Msg("could not write bridge reply")
			return
		}
	}
}

// inject queues a pushed action for re-publication, shedding the oldest
// queued action on overflow.
func (s *Server) inject(req Request) {
	if !strings.HasPrefix(req.Topic, "action/") {
		s.log.Warn().Str("topic", req.Topic).Msg("rejected push on non-action topic")
		return
	}
	select {
	case s.actions <- req.Payload:
	default:
		select {
		case <-s.actions:
		default:
		}
		select {
		case s.actions <- req.Payload:
		default:
		}
	}
}
