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

// Package offload orchestrates the post-recording hand-off: upload the
// dataset, notify the training service, poll the transaction and retrieve
// the trained model. The mode is fixed for the whole session.
package offload

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"time"

	"github.com/rs/zerolog"

	"github.com/dorobot/teleop-capture/edge"
	"github.com/dorobot/teleop-capture/models/robot"
)

// Offload modes. Local modes never touch the network; remote modes differ
// in where the dataset goes and who encodes the video.
const (
	ModeLocal        = 0
	ModeCloudRaw     = 1
	ModeEdge         = 2
	ModeCloudEncoded = 3
	ModeLocalRaw     = 4
)

// Remote reports whether a mode uploads the dataset off the machine.
func Remote(mode int) bool {
	return mode == ModeCloudRaw || mode == ModeEdge || mode == ModeCloudEncoded
}

// Params binds a session to one recording: where the dataset sits, where
// the model goes and which remote server receives the upload.
type Params struct {
	Mode        int
	RepoID      string
	APIUsername string
	DataDir     string
	ModelDir    string
	Remote      edge.Credentials
	RemotePath  string
}

// Session runs one offload hand-off from upload to model retrieval.
type Session struct {
	log       zerolog.Logger
	cfg       Config
	api       robot.TrainingAPI
	transport Transport
	params    Params

	status    Status
	triggered bool
	last      robot.TransactionStatus
}

// NewSession creates an idle offload session.
func NewSession(log zerolog.Logger, api robot.TrainingAPI, transport Transport, params Params, options ...Option) *Session {

	cfg := DefaultConfig
	for _, option := range options {
		option(&cfg)
	}

	s := Session{
		log: log.With().
			Str("component", "offload").
			Int("mode", params.Mode).
			Str("repo_id", params.RepoID).
			Logger(),
		cfg:       cfg,
		api:       api,
		transport: transport,
		params:    params,
		status:    StatusIdle,
	}

	return &s
}

// Status returns the session's current state.
func (s *Session) Status() Status {
	return s.status
}

// Probe runs the quick connection test for remote modes. Local modes pass
// trivially. The supervisor calls this before declaring the cell ready so
// a dead link is reported before any episode is recorded.
func (s *Session) Probe() error {

	if !Remote(s.params.Mode) {
		return nil
	}

	err := s.transport.Probe(s.params.Remote)
	if err != nil {
		return err
	}

	s.log.Info().Str("host", s.params.Remote.Host).Msg("connection probe passed")

	return nil
}

// Run executes the session to a terminal state. Local modes return
// immediately; everything recorded is already on disk.
func (s *Session) Run(ctx context.Context) error {

	if !Remote(s.params.Mode) {
		s.status = StatusDone
		s.log.Info().Msg("local mode, nothing to offload")
		return nil
	}

	err := s.run(ctx)
	if err != nil {
		s.status = StatusFailed
		return err
	}

	s.status = StatusDone
	s.log.Info().Msg("offload session complete")

	return nil
}

func (s *Session) run(ctx context.Context) error {

	err := s.advance(StatusIdle, StatusProbing)
	if err != nil {
		return err
	}
	err = s.transport.Probe(s.params.Remote)
	if err != nil {
		return err
	}

	if s.cfg.DownloadOnly {
		s.status = StatusPolling
		return s.poll(ctx)
	}

	if s.cfg.SkipUpload {
		// The remote already holds the dataset; go straight to the
		// training trigger.
		s.status = StatusPolling
		err = s.trigger(ctx)
		if err != nil {
			return err
		}
		return s.poll(ctx)
	}

	err = s.upload(ctx)
	if err != nil {
		return err
	}

	s.status = StatusPolling
	return s.poll(ctx)
}

// remoteDir is user-scoped so many operators can share one server without
// repository collisions.
func (s *Session) remoteDir() string {
	return path.Join(s.params.RemotePath, s.params.APIUsername, s.params.RepoID)
}

func (s *Session) upload(ctx context.Context) error {

	err := s.advance(StatusProbing, StatusUploading)
	if err != nil {
		return err
	}

	// Mode 3 payloads are the encoded videos and columnar data; the raw
	// frames stay on this machine.
	var exclude []string
	if s.params.Mode == ModeCloudEncoded {
		exclude = append(exclude, "images")
	}

	start := time.Now()
	err = s.transport.Upload(s.params.Remote, s.params.DataDir, s.remoteDir(), exclude...)
	if err != nil {
		return err
	}
	s.log.Info().Dur("duration", time.Since(start)).Msg("dataset uploaded")

	err = s.advance(StatusUploading, StatusNotifying)
	if err != nil {
		return err
	}

	req := robot.UploadCompleteRequest{
		RepoID: s.params.RepoID,
	}
	if s.params.Mode == ModeEdge {
		req.Tar = true
		req.TarPath = s.remoteDir()
	}
	err = s.api.NotifyUploadComplete(ctx, req)
	if err != nil {
		return err
	}

	return nil
}

// trigger starts the training run. It fires at most once per polling
// session; a second READY observation must not start a second run.
func (s *Session) trigger(ctx context.Context) error {

	if s.triggered {
		return nil
	}

	id, err := s.api.TriggerTraining(ctx, s.params.RepoID)
	if err != nil {
		return err
	}
	s.triggered = true
	s.status = StatusTriggered

	s.log.Info().Str("transaction_id", id).Msg("training triggered")

	return nil
}

func (s *Session) poll(ctx context.Context) error {

	deadline := time.Now().Add(s.cfg.Timeout)
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		status, err := s.api.GetStatus(ctx, s.params.RepoID)
		if err != nil {
			// Transient API failures must not kill a session that may have
			// hours of training behind it.
			s.log.Warn().Err(err).Msg("could not poll transaction status")
		} else {
			s.last = status
			done, err := s.observe(ctx, status)
			if err != nil {
				return err
			}
			if done {
				return s.download()
			}
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: no terminal status after %s", robot.ErrTrainingTimeout, s.cfg.Timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// observe processes one status sample and reports whether the transaction
// is complete.
func (s *Session) observe(ctx context.Context, status robot.TransactionStatus) (bool, error) {

	s.log.Debug().
		Str("status", status.Status).
		Int("progress_pct", status.ProgressPct).
		Msg("transaction status polled")

	switch status.Status {

	case robot.StatusReady:
		err := s.trigger(ctx)
		if err != nil {
			return false, err
		}
		return false, nil

	case robot.StatusCompleted:
		return true, nil

	case robot.StatusFailed:
		return false, fmt.Errorf("training transaction failed: %s", status.TransactionID)

	default:
		// The status flag is known to lag behind the filesystem. Once
		// training has started, an existing model directory on the cloud
		// instance is the ground truth for completion.
		if s.triggered && s.fallbackComplete(status) {
			s.log.Info().Msg("model directory exists, treating transaction as complete")
			return true, nil
		}
		return false, nil
	}
}

func (s *Session) fallbackComplete(status robot.TransactionStatus) bool {

	creds, ok := cloudCredentials(status)
	if !ok || status.ModelPath == "" {
		return false
	}
	return s.transport.DirExists(creds, status.ModelPath)
}

func (s *Session) download() error {

	s.status = StatusDownloading

	creds, ok := cloudCredentials(s.last)
	if !ok {
		return fmt.Errorf("%w: status response carries no ssh credentials", robot.ErrDownloadFailed)
	}
	if s.last.ModelPath == "" {
		return fmt.Errorf("%w: status response carries no model path", robot.ErrDownloadFailed)
	}

	err := s.transport.Download(creds, s.last.ModelPath, s.params.ModelDir)
	if err != nil {
		return err
	}

	s.log.Info().Str("model_dir", s.params.ModelDir).Msg("model retrieved")

	return nil
}

// cloudCredentials extracts the SFTP credentials the training service
// embeds in its status response. The password travels base64-encoded.
func cloudCredentials(status robot.TransactionStatus) (edge.Credentials, bool) {

	if status.SSHHost == "" || status.SSHUsername == "" {
		return edge.Credentials{}, false
	}

	password, err := base64.StdEncoding.DecodeString(status.SSHPasswordB64)
	if err != nil {
		return edge.Credentials{}, false
	}

	creds := edge.Credentials{
		Host:     status.SSHHost,
		User:     status.SSHUsername,
		Password: string(password),
		Port:     status.SSHPort,
	}

	return creds, true
}

func (s *Session) advance(from Status, to Status) error {
	if s.status != from {
		return fmt.Errorf("invalid status for %s (%s)", to, s.status)
	}
	s.status = to
	return nil
}
