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
	"bufio"
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/dorobot/teleop-capture/api/training"
	"github.com/dorobot/teleop-capture/codec/zbor"
	"github.com/dorobot/teleop-capture/dataset"
	"github.com/dorobot/teleop-capture/edge"
	"github.com/dorobot/teleop-capture/metrics/output"
	"github.com/dorobot/teleop-capture/metrics/rcrowley"
	"github.com/dorobot/teleop-capture/models/robot"
	"github.com/dorobot/teleop-capture/service/bridge"
	"github.com/dorobot/teleop-capture/service/config"
	"github.com/dorobot/teleop-capture/service/encoder"
	"github.com/dorobot/teleop-capture/service/imagewriter"
	"github.com/dorobot/teleop-capture/service/node"
	"github.com/dorobot/teleop-capture/service/offload"
	"github.com/dorobot/teleop-capture/service/record"
	"github.com/dorobot/teleop-capture/service/saver"
	"github.com/dorobot/teleop-capture/service/supervisor"
)

// Exit codes of the capture suite. Wrapper scripts rely on them to react
// without parsing logs: 1 covers configuration and permission failures,
// 2 device and graph bring-up failures, 3 an offload failure with the
// recorded data intact on disk.
const (
	success        = 0
	failureConfig  = 1
	failureDevice  = 2
	failureOffload = 3
	interrupted    = 130
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
		flagConfig          string
		flagLevel           string
		flagMetrics         bool
		flagMetricsInterval time.Duration
		flagNodeBinary      string
		flagSocketDir       string
	)

	pflag.StringVarP(&flagConfig, "config", "c", "device.conf", "device configuration file")
	pflag.StringVarP(&flagLevel, "level", "l", "info", "log output level")
	pflag.BoolVarP(&flagMetrics, "metrics", "m", false, "enable metrics collection and output")
	pflag.DurationVar(&flagMetricsInterval, "metrics-interval", 5*time.Minute, "defines the interval of metrics output to log")
	pflag.StringVar(&flagNodeBinary, "node-binary", "teleop-node", "executable spawned for each graph node")
	pflag.StringVarP(&flagSocketDir, "socket-dir", "s", filepath.Join(os.TempDir(), "teleop-capture"), "directory holding the graph's socket files")

	pflag.Parse()

	// Logger initialization.
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	log := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.DebugLevel)
	level, err := zerolog.ParseLevel(flagLevel)
	if err != nil {
		log.Error().Str("level", flagLevel).Err(err).Msg("could not parse log level")
		return failureConfig
	}
	log = log.Level(level)

	cfg, err := config.Load(log, flagConfig)
	if err != nil {
		log.Error().Err(err).Msg("could not load configuration")
		return failureConfig
	}

	err = os.MkdirAll(flagSocketDir, 0o755)
	if err != nil {
		log.Error().Err(err).Msg("could not create socket directory")
		return failureDevice
	}
	graph := node.NewGraph(flagSocketDir)

	// The offload session is created up front so its quick connection
	// probe can fail before any hardware is touched.
	dataDir := filepath.Join(cfg.DataRoot, cfg.RepoID)
	session := offload.NewSession(log,
		training.NewClient(log, cfg.API.BaseURL, cfg.API.Username, cfg.API.Password),
		offload.NewSSHTransport(log),
		offload.Params{
			Mode:        cfg.CloudMode,
			RepoID:      cfg.RepoID,
			APIUsername: cfg.API.Username,
			DataDir:     dataDir,
			ModelDir:    filepath.Join(dataDir, "model"),
			Remote: edge.Credentials{
				Host:     cfg.Edge.Host,
				User:     cfg.Edge.User,
				Password: cfg.Edge.Password,
				Port:     cfg.Edge.Port,
			},
			RemotePath: cfg.Edge.Path,
		},
	)
	err = session.Probe()
	if err != nil {
		log.Error().Err(err).Msg("connection probe failed")
		return failureOffload
	}

	super := supervisor.NewSupervisor(log, cfg, graph, supervisor.WithNodeBinary(flagNodeBinary))
	err = super.Setup()
	if err != nil {
		log.Error().Err(err).Msg("could not bring node graph up")
		if errors.Is(err, robot.ErrPermissionMissing) {
			return failureConfig
		}
		return failureDevice
	}
	defer super.Shutdown()

	// Dataset plumbing: columnar writer, image writer pool, video encoder
	// and the async episode saver on top of them.
	layout := dataset.NewLayout(dataDir)
	err = layout.Prepare()
	if err != nil {
		log.Error().Err(err).Msg("could not prepare dataset directories")
		return failureDevice
	}
	writer := dataset.NewWriter(layout, zbor.NewCodec())
	meta, err := dataset.NewMetadata(layout, cfg.RepoID, robot.DefaultFPS, cfg.Cameras())
	if err != nil {
		log.Error().Err(err).Msg("could not load dataset metadata")
		return failureDevice
	}
	images := imagewriter.NewPool(log)
	enc := encoder.NewFFmpeg(log, encoder.WithHardware(cfg.NPU))

	mout := output.New(log, flagMetricsInterval)
	var saverOptions []saver.Option
	if flagMetrics {
		size := rcrowley.NewSize("dataset")
		elapsed := rcrowley.NewTime("save")
		mout.Register(size)
		mout.Register(elapsed)
		saverOptions = append(saverOptions,
			saver.WithSizeMetrics(size),
			saver.WithTimeMetrics(elapsed),
		)
		mout.Run()
	}

	sav := saver.NewSaver(log, layout, writer, meta, images, enc, saverOptions...)

	client := bridge.NewClient(log, graph.ImagesSocket(), graph.JointsSocket())
	err = client.Connect()
	if err != nil {
		log.Error().Err(err).Msg("could not connect to bridge")
		return failureDevice
	}
	defer client.Disconnect()

	// Local modes 0 and 3 encode video on this machine; the raw modes ship
	// frames as they are and let the remote side encode.
	skipEncoding := cfg.CloudMode != offload.ModeLocal && cfg.CloudMode != offload.ModeCloudEncoded

	buffer := dataset.NewEpisodeBuffer(meta.Info().TotalEpisodes, cfg.SingleTask, robot.DefaultFPS)
	loop := record.NewLoop(log, client, buffer, layout, images, sav, cfg.Cameras(),
		record.WithSkipEncoding(skipEncoding),
		record.WithMemoryLimitGB(cfg.MemoryLimitGB),
	)

	go readCommands(log, loop)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	failed := make(chan struct{})
	go func() {
		start := time.Now()
		log.Info().Time("start", start).Str("repo_id", cfg.RepoID).Msg("record loop starting")
		err := loop.Run(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("record loop failed")
			close(failed)
		} else {
			close(done)
		}
	}()

	wasInterrupted := false
	select {
	case <-sig:
		log.Info().Msg("capture session stopping")
		wasInterrupted = true
		loop.Command(record.CommandExit)
		cancel()
	case <-done:
		log.Info().Msg("record loop done")
	case <-failed:
		log.Warn().Msg("record loop aborted")
	}
	go func() {
		<-sig
		log.Warn().Msg("forcing exit")
		os.Exit(interrupted)
	}()

	// Everything recorded must land on disk before the graph comes down.
	sav.Stop(true)
	images.Stop()
	if flagMetrics {
		mout.Stop()
	}

	super.Shutdown()

	if wasInterrupted {
		return interrupted
	}

	err = session.Run(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("offload session failed")
		return failureOffload
	}

	return success
}

// readCommands maps operator keys to record loop commands: n saves and
// advances, e exits, a aborts the current episode, p acknowledges a reset.
func readCommands(log zerolog.Logger, loop *record.Loop) {

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "n":
			loop.Command(record.CommandSaveAndNext)
		case "e":
			loop.Command(record.CommandExit)
		case "a":
			loop.Command(record.CommandAbort)
		case "p":
			log.Info().Msg("proceeding to next episode")
		case "":
		default:
			log.Info().Msg("commands: n=save episode, e=exit, a=abort episode")
		}
	}
}
