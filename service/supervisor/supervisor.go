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

// Package supervisor owns the process lifecycle of one capture session:
// the permission gate, node spawning, socket readiness and the escalating
// shutdown sequence.
package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dorobot/teleop-capture/service/config"
	"github.com/dorobot/teleop-capture/service/node"
)

type child struct {
	name string
	cmd  *exec.Cmd
	done chan struct{}
}

// Supervisor spawns and tears down the node graph of a capture session.
type Supervisor struct {
	log   zerolog.Logger
	cfg   Config
	conf  *config.Config
	graph node.Graph

	children []*child
}

// NewSupervisor creates a supervisor for the given session configuration
// and socket graph.
func NewSupervisor(log zerolog.Logger, conf *config.Config, graph node.Graph, options ...Option) *Supervisor {

	cfg := DefaultConfig
	for _, option := range options {
		option(&cfg)
	}

	s := Supervisor{
		log:   log.With().Str("component", "supervisor").Logger(),
		cfg:   cfg,
		conf:  conf,
		graph: graph,
	}

	return &s
}

// Devices returns the device files the session depends on.
func (s *Supervisor) Devices() []string {
	return []string{
		s.conf.ArmLeaderPort,
		s.conf.ArmFollowerPort,
		s.conf.CameraTopPath,
		s.conf.CameraWristPath,
	}
}

// Setup brings the node graph up: permission gate, lingering process
// cleanup, spawn, socket readiness, settle and permission re-check.
func (s *Supervisor) Setup() error {

	err := CheckDevices(s.Devices())
	if err != nil {
		return err
	}

	killLingering(s.log, s.cfg.NodeBinary, s.cfg.StopGrace)
	removeFiles(s.graph.Sockets())

	names := []string{node.NodeBridge, node.NodeFollower, node.NodeLeader}
	for _, camera := range s.conf.Cameras() {
		names = append(names, node.CameraNode(camera))
	}
	for _, name := range names {
		err = s.spawn(name)
		if err != nil {
			s.Shutdown()
			return fmt.Errorf("could not spawn node %s: %w", name, err)
		}
	}

	ready := waitForFiles([]string{s.graph.ImagesSocket(), s.graph.JointsSocket()}, s.cfg.SocketWait)
	if !ready {
		s.Shutdown()
		return fmt.Errorf("bridge sockets not ready after %s", s.cfg.SocketWait)
	}

	// USB enumeration can still move device files around while the nodes
	// come up, so the gate runs once more after the graph settles.
	time.Sleep(s.cfg.Settle)
	err = CheckDevices(s.Devices())
	if err != nil {
		s.Shutdown()
		return err
	}

	s.log.Info().Int("nodes", len(s.children)).Msg("node graph running")

	return nil
}

func (s *Supervisor) spawn(name string) error {

	cmd := exec.Command(s.cfg.NodeBinary, "--node", name)
	cmd.Env = append(os.Environ(), s.conf.Env()...)
	cmd.Env = append(cmd.Env, "SOCKET_DIR="+s.graph.Dir())
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Start()
	if err != nil {
		return err
	}

	c := child{name: name, cmd: cmd, done: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		close(c.done)
	}()
	s.children = append(s.children, &c)

	s.log.Info().Str("node", name).Int("pid", cmd.Process.Pid).Msg("node spawned")

	return nil
}

// Shutdown tears the graph down: graceful stop request, device-release
// wait, SIGTERM, then SIGKILL for anything still alive. Socket files are
// removed last.
func (s *Supervisor) Shutdown() {

	s.signal(os.Interrupt)
	s.await(s.cfg.StopGrace)

	s.signal(syscall.SIGTERM)
	s.await(s.cfg.TermGrace)

	if !s.await(s.cfg.KillGrace) {
		s.signal(os.Kill)
		s.await(time.Second)
	}

	killLingering(s.log, s.cfg.NodeBinary, s.cfg.TermGrace)
	removeFiles(s.graph.Sockets())
	s.children = nil

	s.log.Info().Msg("node graph stopped")
}

func (s *Supervisor) signal(sig os.Signal) {
	for _, c := range s.children {
		select {
		case <-c.done:
		default:
			_ = c.cmd.Process.Signal(sig)
		}
	}
}

// await waits until every child exited or the timeout elapses; it reports
// whether all children are gone.
func (s *Supervisor) await(timeout time.Duration) bool {

	deadline := time.After(timeout)
	for _, c := range s.children {
		select {
		case <-c.done:
		case <-deadline:
			return false
		}
	}

	return true
}
