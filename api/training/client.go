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

// Package training implements the HTTP client of the remote training
// service. The service owns the transaction lifecycle; this client only
// notifies, triggers and polls.
package training

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/dorobot/teleop-capture/models/robot"
)

// requestTimeout bounds every call; the status poll loop depends on calls
// never hanging past one poll interval.
const requestTimeout = 30 * time.Second

// Client talks to the training service over HTTP with basic credentials
// carried in the request bodies.
type Client struct {
	log      zerolog.Logger
	http     *resty.Client
	username string
	password string
}

// NewClient creates a training service client for the given base URL.
func NewClient(log zerolog.Logger, baseURL string, username string, password string) *Client {

	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout).
		SetHeader("Content-Type", "application/json")

	c := Client{
		log:      log.With().Str("component", "training_api").Logger(),
		http:     http,
		username: username,
		password: password,
	}

	return &c
}

// NotifyUploadComplete tells the service a dataset upload finished and, for
// archive uploads, where the archive sits.
func (c *Client) NotifyUploadComplete(ctx context.Context, req robot.UploadCompleteRequest) error {

	if req.APIUsername == "" {
		req.APIUsername = c.username
	}
	if req.APIPassword == "" {
		req.APIPassword = c.password
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		Post("/notify-upload-complete")
	if err != nil {
		return fmt.Errorf("could not notify upload completion: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("upload completion rejected: status %d", res.StatusCode())
	}

	c.log.Info().Str("repo_id", req.RepoID).Msg("upload completion acknowledged")

	return nil
}

// TriggerTraining asks the service to start a training run and returns the
// transaction identifier.
func (c *Client) TriggerTraining(ctx context.Context, repoID string) (string, error) {

	var reply struct {
		TransactionID string `json:"transaction_id"`
	}
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"api_username": c.username,
			"api_password": c.password,
		}).
		SetResult(&reply).
		Post("/train/" + repoID)
	if err != nil {
		return "", fmt.Errorf("could not trigger training: %w", err)
	}
	if res.IsError() {
		return "", fmt.Errorf("training trigger rejected: status %d", res.StatusCode())
	}

	c.log.Info().
		Str("repo_id", repoID).
		Str("transaction_id", reply.TransactionID).
		Msg("training triggered")

	return reply.TransactionID, nil
}

// GetStatus retrieves the current transaction status for a repository.
func (c *Client) GetStatus(ctx context.Context, repoID string) (robot.TransactionStatus, error) {

	var status robot.TransactionStatus
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&status).
		Get("/status/" + repoID)
	if err != nil {
		return robot.TransactionStatus{}, fmt.Errorf("could not get status: %w", err)
	}
	if res.IsError() {
		return robot.TransactionStatus{}, fmt.Errorf("status request rejected: status %d", res.StatusCode())
	}

	return status, nil
}
