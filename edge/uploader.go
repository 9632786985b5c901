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
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/dorobot/teleop-capture/models/robot"
)

// Uploader transfers one dataset directory to a remote machine. The fast
// path bundles the dataset into a single uncompressed archive, pushes it
// as one SFTP transfer and unpacks it remotely; the dataset's video and
// parquet payloads are already compressed, so archive compression would
// only add CPU time. When archiving fails the uploader falls back to
// copying files one by one.
type Uploader struct {
	log    zerolog.Logger
	client *Client
}

// NewUploader wraps a connected client.
func NewUploader(log zerolog.Logger, client *Client) *Uploader {

	u := Uploader{
		log:    log.With().Str("component", "edge_uploader").Logger(),
		client: client,
	}

	return &u
}

// Upload replaces the contents of the remote directory with the local
// dataset directory. Top-level directories named in exclude stay local.
func (u *Uploader) Upload(localDir string, remoteDir string, exclude ...string) error {

	start := time.Now()

	// The remote directory is cleared first so a retried upload can never
	// mix two dataset generations.
	_, err := u.client.Exec(fmt.Sprintf("rm -rf %s && mkdir -p %s",
		shellQuote(remoteDir), shellQuote(remoteDir)))
	if err != nil {
		return fmt.Errorf("%w: could not prepare remote directory: %s", robot.ErrUploadFailed, err)
	}

	err = u.uploadArchive(localDir, remoteDir, exclude)
	if err != nil {
		u.log.Warn().Err(err).Msg("archive upload failed, falling back to per-file transfer")
		err = u.uploadFiles(localDir, remoteDir, exclude)
	}
	if err != nil {
		return fmt.Errorf("%w: %s", robot.ErrUploadFailed, err)
	}

	u.log.Info().
		Str("local", localDir).
		Str("remote", remoteDir).
		Dur("duration", time.Since(start)).
		Msg("dataset uploaded")

	return nil
}

func (u *Uploader) uploadArchive(localDir string, remoteDir string, exclude []string) error {

	archive, err := buildArchive(localDir, exclude...)
	if err != nil {
		return fmt.Errorf("could not build archive: %w", err)
	}
	defer os.Remove(archive)

	remoteTar := path.Join(remoteDir, "dataset.tar")
	err = u.putFile(archive, remoteTar)
	if err != nil {
		return fmt.Errorf("could not transfer archive: %w", err)
	}

	_, err = u.client.Exec(fmt.Sprintf("tar -xf %s -C %s && rm -f %s",
		shellQuote(remoteTar), shellQuote(remoteDir), shellQuote(remoteTar)))
	if err != nil {
		return fmt.Errorf("could not unpack archive: %w", err)
	}

	return nil
}

func (u *Uploader) uploadFiles(localDir string, remoteDir string, exclude []string) error {

	return filepath.WalkDir(localDir, func(local string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(localDir, local)
		if err != nil {
			return err
		}
		if entry.IsDir() && excluded(rel, exclude) {
			return fs.SkipDir
		}
		remote := path.Join(remoteDir, filepath.ToSlash(rel))

		if entry.IsDir() {
			return u.client.sftp.MkdirAll(remote)
		}
		return u.putFile(local, remote)
	})
}

func (u *Uploader) putFile(local string, remote string) error {

	in, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("could not open local file: %w", err)
	}
	defer in.Close()

	out, err := u.client.sftp.Create(remote)
	if err != nil {
		return fmt.Errorf("could not create remote file: %w", err)
	}

	_, err = io.Copy(out, in)
	if err != nil {
		out.Close()
		return fmt.Errorf("could not copy file contents: %w", err)
	}

	return out.Close()
}

// excluded reports whether a relative path falls under one of the
// excluded top-level directories.
func excluded(rel string, exclude []string) bool {
	for _, name := range exclude {
		if rel == name {
			return true
		}
	}
	return false
}

// buildArchive packs a directory into an uncompressed tar file and
// returns the temporary file's path. Paths inside the archive are
// relative to the directory root; excluded top-level directories are
// left out entirely.
func buildArchive(dir string, exclude ...string) (string, error) {

	tmp, err := os.CreateTemp("", "dataset-*.tar")
	if err != nil {
		return "", fmt.Errorf("could not create temporary file: %w", err)
	}

	writer := tar.NewWriter(tmp)
	err = filepath.WalkDir(dir, func(local string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(dir, local)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if entry.IsDir() && excluded(rel, exclude) {
			return fs.SkipDir
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if entry.IsDir() {
			header.Name += "/"
		}

		err = writer.WriteHeader(header)
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		file, err := os.Open(local)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(writer, file)
		return err
	})
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("could not archive directory: %w", err)
	}

	err = writer.Close()
	if err == nil {
		err = tmp.Close()
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("could not finalize archive: %w", err)
	}

	return tmp.Name(), nil
}
