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

package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/dorobot/teleop-capture/drivers/sim"
	"github.com/dorobot/teleop-capture/models/robot"
	"github.com/dorobot/teleop-capture/service/bridge"
	"github.com/dorobot/teleop-capture/service/bus"
	"github.com/dorobot/teleop-capture/service/config"
	"github.com/dorobot/teleop-capture/service/node"
	"github.com/dorobot/teleop-capture/service/teleop"
)

const (
	success = 0
	failure = 1
)

func main() {
	os.Exit(run())
}

func run() int {

	// Signal catching for clean shutdown.
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	// Command line parameter initialization.
	var (
		flagConfig    string
		flagLevel     string
		flagNode      string
		flagSocketDir string
	)

	pflag.StringVarP(&flagConfig, "config", "c", "", "device configuration file")
	pflag.StringVarP(&flagLevel, "level", "l", "info", "log output level")
	pflag.StringVarP(&flagNode, "node", "n", "", "graph node to run (leader, follower, bridge, camera_<name>)")
	pflag.StringVarP(&flagSocketDir, "socket-dir", "s", os.Getenv("SOCKET_DIR"), "directory holding the graph's socket files")

	pflag.Parse()

	// Logger initialization.
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	log := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.DebugLevel)
	level, err := zerolog.ParseLevel(flagLevel)
	if err != nil {
		log.Error().Str("level", flagLevel).Err(err).Msg("could not parse log level")
		return failure
	}
	log = log.Level(level).With().Str("node", flagNode).Logger()

	if flagNode == "" {
		log.Error().Msg("no graph node specified")
		pflag.Usage()
		return failure
	}
	if flagSocketDir == "" {
		log.Error().Msg("no socket directory specified")
		pflag.Usage()
		return failure
	}

	cfg, err := config.Load(log, flagConfig)
	if err != nil {
		log.Error().Err(err).Msg("could not load configuration")
		return failure
	}

	graph := node.NewGraph(flagSocketDir)
	pub := bus.NewPublisher(log, flagNode, graph.Wiring(flagNode, cfg.Cameras()))

	// Only the follower and the bridge consume bus traffic; the other
	// nodes are pure publishers.
	var sub *bus.Subscriber
	if flagNode == node.NodeFollower || flagNode == node.NodeBridge {
		sub, err = bus.NewSubscriber(log, graph.Socket(flagNode))
		if err != nil {
			log.Error().Err(err).Msg("could not bind subscriber socket")
			return failure
		}
	}

	role, err := buildRole(log, cfg, graph, flagNode)
	if err != nil {
		log.Error().Err(err).Msg("could not build node role")
		return failure
	}

	n := node.NewNode(log, role, sub, pub)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-sig
		log.Info().Msg("node stopping")
		cancel()
		<-sig
		log.Warn().Msg("forcing exit")
		os.Exit(failure)
	}()

	err = n.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("node failed")
		return failure
	}

	log.Info().Msg("node done")

	return success
}

// buildRole assembles the role for the requested graph node. The drivers
// are the simulated ones; real serial and V4L2 drivers slot in behind the
// same interfaces.
func buildRole(log zerolog.Logger, cfg *config.Config, graph node.Graph, name string) (node.Role, error) {

	switch name {

	case node.NodeBridge:
		server, err := bridge.NewServer(log, graph.ImagesSocket(), graph.JointsSocket())
		if err != nil {
			return nil, err
		}
		return node.NewBridgeRole(log, server), nil

	case node.NodeLeader:
		log.Info().Str("port", cfg.ArmLeaderPort).Msg("opening leader arm")
		arm := sim.NewArm(robot.DefaultJointCount, true)
		return node.NewLeaderRole(log, arm, robot.DefaultLeaderSpec())

	case node.NodeFollower:
		log.Info().Str("port", cfg.ArmFollowerPort).Msg("opening follower arm")
		mapper, err := teleop.NewMapper(log, robot.DefaultLeaderSpec(), robot.DefaultFollowerSpec())
		if err != nil {
			return nil, err
		}
		arm := sim.NewArm(robot.DefaultJointCount, false)
		return node.NewFollowerRole(log, arm, robot.DefaultFollowerSpec(), mapper)

	default:
		camera := strings.TrimPrefix(name, "camera_")
		path := cfg.CameraTopPath
		if camera == "wrist" {
			path = cfg.CameraWristPath
		}
		log.Info().Str("path", path).Msg("opening camera")
		return node.NewCameraRole(log, camera, sim.NewCamera(camera, 640, 480)), nil
	}
}
