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

package offload

import (
	"github.com/rs/zerolog"

	"github.com/dorobot/teleop-capture/edge"
)

// Transport is the file transfer capability the session needs. The model
// download uses credentials from the status response, so every call takes
// its own credentials instead of binding them at construction.
type Transport interface {
	Probe(creds edge.Credentials) error
	Upload(creds edge.Credentials, localDir string, remoteDir string, exclude ...string) error
	Download(creds edge.Credentials, remoteDir string, localDir string) error
	DirExists(creds edge.Credentials, path string) bool
}

// SSHTransport implements Transport with one SSH connection per call.
type SSHTransport struct {
	log zerolog.Logger
}

// NewSSHTransport creates the production transport.
func NewSSHTransport(log zerolog.Logger) *SSHTransport {
	t := SSHTransport{log: log}
	return &t
}

func (t *SSHTransport) Probe(creds edge.Credentials) error {
	return edge.Probe(creds)
}

func (t *SSHTransport) Upload(creds edge.Credentials, localDir string, remoteDir string, exclude ...string) error {

	client, err := edge.Connect(t.log, creds)
	if err != nil {
		return err
	}
	defer client.Close()

	return edge.NewUploader(t.log, client).Upload(localDir, remoteDir, exclude...)
}

func (t *SSHTransport) Download(creds edge.Credentials, remoteDir string, localDir string) error {

	client, err := edge.Connect(t.log, creds)
	if err != nil {
		return err
	}
	defer client.Close()

	return edge.NewDownloader(t.log, client).Download(remoteDir, localDir)
}

func (t *SSHTransport) DirExists(creds edge.Credentials, path string) bool {

	client, err := edge.Connect(t.log, creds)
	if err != nil {
		return false
	}
	defer client.Close()

	return client.DirExists(path)
}
