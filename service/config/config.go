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

// Package config loads the session configuration from three layers with
// fixed precedence: environment variables override the device config file,
// which overrides the hard-coded defaults. Every resolved field logs where
// its value came from, so a surprising session can be traced to the layer
// that caused it.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/dorobot/teleop-capture/models/robot"
)

// Edge identifies the LAN edge server used by offload mode 2.
type Edge struct {
	Host     string `validate:"required_with=Password"`
	User     string
	Password string
	Port     int `validate:"gte=0,lte=65535"`
	Path     string
}

// API identifies the remote training service.
type API struct {
	BaseURL  string
	Username string
	Password string
}

// Config is the resolved configuration of one capture session.
type Config struct {
	RepoID        string `validate:"required"`
	SingleTask    string `validate:"required"`
	CloudMode     int    `validate:"gte=0,lte=4"`
	NPU           bool
	Show          bool
	MemoryLimitGB float64 `validate:"gt=0"`
	DataRoot      string  `validate:"required"`

	Edge Edge
	API  API

	CameraTopPath   string
	CameraWristPath string
	ArmLeaderPort   string
	ArmFollowerPort string
}

// Load resolves the configuration from defaults, the given device config
// file (missing file is fine) and the environment.
func Load(log zerolog.Logger, path string) (*Config, error) {

	log = log.With().Str("component", "config").Logger()

	file, err := parseFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not parse config file: %w", err)
	}

	r := resolver{log: log, file: file}

	cfg := Config{
		RepoID:        r.str("REPO_ID", ""),
		SingleTask:    r.str("SINGLE_TASK", ""),
		CloudMode:     r.integer("CLOUD", 0),
		NPU:           r.boolean("NPU", false),
		Show:          r.boolean("SHOW", false),
		MemoryLimitGB: r.float("MEMORY_LIMIT_GB", robot.DefaultMemoryLimitGB),
		DataRoot:      r.str("DATA_ROOT", "data"),
		Edge: Edge{
			Host:     r.str("EDGE_SERVER_HOST", ""),
			User:     r.str("EDGE_SERVER_USER", ""),
			Password: r.str("EDGE_SERVER_PASSWORD", ""),
			Port:     r.integer("EDGE_SERVER_PORT", 22),
			Path:     r.str("EDGE_SERVER_PATH", ""),
		},
		API: API{
			BaseURL:  r.str("API_BASE_URL", ""),
			Username: r.str("API_USERNAME", ""),
			Password: r.str("API_PASSWORD", ""),
		},
		CameraTopPath:   r.str("CAMERA_TOP_PATH", "/dev/video0"),
		CameraWristPath: r.str("CAMERA_WRIST_PATH", "/dev/video2"),
		ArmLeaderPort:   r.str("ARM_LEADER_PORT", "/dev/ttyUSB0"),
		ArmFollowerPort: r.str("ARM_FOLLOWER_PORT", "/dev/ttyUSB1"),
	}
	if r.err != nil {
		return nil, fmt.Errorf("could not resolve configuration: %w", r.err)
	}

	err = validator.New().Struct(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", robot.ErrConfigInvalid, err)
	}

	return &cfg, nil
}

// Cameras returns the required camera names of the session.
func (c *Config) Cameras() []string {
	return []string{"top", "wrist"}
}

// Env returns the variables a spawned node process needs, in the form the
// process environment consumes.
func (c *Config) Env() []string {
	return []string{
		"REPO_ID=" + c.RepoID,
		"SINGLE_TASK=" + c.SingleTask,
		"CLOUD=" + strconv.Itoa(c.CloudMode),
		"NPU=" + boolEnv(c.NPU),
		"SHOW=" + boolEnv(c.Show),
		"CAMERA_TOP_PATH=" + c.CameraTopPath,
		"CAMERA_WRIST_PATH=" + c.CameraWristPath,
		"ARM_LEADER_PORT=" + c.ArmLeaderPort,
		"ARM_FOLLOWER_PORT=" + c.ArmFollowerPort,
	}
}

func boolEnv(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// resolver resolves single fields across the three layers and logs the
// winning layer per field.
type resolver struct {
	log  zerolog.Logger
	file map[string]string
	err  error
}

func (r *resolver) raw(key string, fallback string) (string, string) {
	value, ok := os.LookupEnv(key)
	if ok {
		return value, "env"
	}
	value, ok = r.file[key]
	if ok {
		return value, "file"
	}
	return fallback, "default"
}

func (r *resolver) str(key string, fallback string) string {
	value, source := r.raw(key, fallback)
	r.log.Debug().Str("key", key).Str("source", source).Msg("config field resolved")
	return value
}

func (r *resolver) integer(key string, fallback int) int {
	value, source := r.raw(key, strconv.Itoa(fallback))
	parsed, err := strconv.Atoi(value)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("invalid integer for %s: %q", key, value)
	}
	r.log.Debug().Str("key", key).Str("source", source).Msg("config field resolved")
	return parsed
}

func (r *resolver) float(key string, fallback float64) float64 {
	value, source := r.raw(key, strconv.FormatFloat(fallback, 'f', -1, 64))
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("invalid number for %s: %q", key, value)
	}
	r.log.Debug().Str("key", key).Str("source", source).Msg("config field resolved")
	return parsed
}

func (r *resolver) boolean(key string, fallback bool) bool {
	value, source := r.raw(key, boolEnv(fallback))
	r.log.Debug().Str("key", key).Str("source", source).Msg("config field resolved")
	switch value {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
