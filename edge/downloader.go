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

package edge

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/dorobot/teleop-capture/models/robot"
)

// Downloader retrieves a remote directory tree over SFTP. It is used to
// pull trained model checkpoints back to the capture host.
type Downloader struct {
	log    zerolog.Logger
	client *Client
}

// NewDownloader wraps a connected client.
func NewDownloader(log zerolog.Logger, client *Client) *Downloader {

	d := Downloader{
		log:    log.With().Str("component", "edge_downloader").Logger(),
		client: client,
	}

	return &d
}

// Download copies the remote directory tree into the local directory,
// creating it as needed.
func (d *Downloader) Download(remoteDir string, localDir string) error {

	start := time.Now()
	files := 0

	err := d.walk(remoteDir, localDir, &files)
	if err != nil {
		return fmt.Errorf("%w: %s", robot.ErrDownloadFailed, err)
	}

	d.log.Info().
		Str("remote", remoteDir).
		Str("local", localDir).
		Int("files", files).
		Dur("duration", time.Since(start)).
		Msg("model downloaded")

	return nil
}

func (d *Downloader) walk(remoteDir string, localDir string, files *int) error {

	err := os.MkdirAll(localDir, 0o755)
	if err != nil {
		return fmt.Errorf("could not create local directory: %w", err)
	}

	entries, err := d.client.sftp.ReadDir(remoteDir)
	if err != nil {
		return fmt.Errorf("could not list remote directory %s: %w", remoteDir, err)
	}

	for _, entry := range entries {
		remote := path.Join(remoteDir, entry.Name())
		local := filepath.Join(localDir, entry.Name())

		if entry.IsDir() {
			err = d.walk(remote, local, files)
			if err != nil {
				return err
			}
			continue
		}

		err = d.getFile(remote, local)
		if err != nil {
			return err
		}
		*files++
	}

	return nil
}

func (d *Downloader) getFile(remote string, local string) error {

	in, err := d.client.sftp.Open(remote)
	if err != nil {
		return fmt.Errorf("could not open remote file %s: %w", remote, err)
	}
	defer in.Close()

	out, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("could not create local file: %w", err)
	}

	_, err = io.Copy(out, in)
	if err != nil {
		out.Close()
		return fmt.Errorf("could not copy file contents: %w", err)
	}

	return out.Close()
}
