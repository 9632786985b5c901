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
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/dorobot/teleop-capture/api/training"
	"github.com/dorobot/teleop-capture/edge"
	"github.com/dorobot/teleop-capture/service/config"
	"github.com/dorobot/teleop-capture/service/offload"
)

const (
	success = 0
	failure = 1
)

func main() {
	os.Exit(run())
}

// run executes one offload session outside a capture run, typically to
// resume a hand-off that was interrupted or that failed halfway.
func run() int {

	// Signal catching for clean shutdown.
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	// Command line parameter initialization.
	var (
		flagConfig       string
		flagDownloadOnly bool
		flagLevel        string
		flagModelDir     string
		flagSkipUpload   bool
		flagTimeout      time.Duration
	)

	pflag.StringVarP(&flagConfig, "config", "c", "device.conf", "device configuration file")
	pflag.BoolVar(&flagDownloadOnly, "download-only", false, "assume training completed, start at the model download")
	pflag.StringVarP(&flagLevel, "level", "l", "info", "log output level")
	pflag.StringVar(&flagModelDir, "model", "model", "local directory receiving the trained model")
	pflag.BoolVar(&flagSkipUpload, "skip-upload", false, "assume the remote already has the dataset, start at the training trigger")
	pflag.DurationVar(&flagTimeout, "timeout", 0, "polling session deadline, 0 for the default")

	pflag.Parse()

	// Logger initialization.
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	log := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.DebugLevel)
	level, err := zerolog.ParseLevel(flagLevel)
	if err != nil {
		log.Error().Str("level", flagLevel).Err(err).Msg("could not parse log level")
		return failure
	}
	log = log.Level(level)

	cfg, err := config.Load(log, flagConfig)
	if err != nil {
		log.Error().Err(err).Msg("could not load configuration")
		return failure
	}

	options := []offload.Option{
		offload.WithSkipUpload(flagSkipUpload),
		offload.WithDownloadOnly(flagDownloadOnly),
	}
	if flagTimeout > 0 {
		options = append(options, offload.WithTimeout(flagTimeout))
	}

	session := offload.NewSession(log,
		training.NewClient(log, cfg.API.BaseURL, cfg.API.Username, cfg.API.Password),
		offload.NewSSHTransport(log),
		offload.Params{
			Mode:        cfg.CloudMode,
			RepoID:      cfg.RepoID,
			APIUsername: cfg.API.Username,
			DataDir:     filepath.Join(cfg.DataRoot, cfg.RepoID),
			ModelDir:    flagModelDir,
			Remote: edge.Credentials{
				Host:     cfg.Edge.Host,
				User:     cfg.Edge.User,
				Password: cfg.Edge.Password,
				Port:     cfg.Edge.Port,
			},
			RemotePath: cfg.Edge.Path,
		},
		options...,
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-sig
		log.Info().Msg("offload session stopping")
		cancel()
		<-sig
		log.Warn().Msg("forcing exit")
		os.Exit(failure)
	}()

	err = session.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("offload session failed")
		return failure
	}

	log.Info().Msg("offload session done")

	return success
}
