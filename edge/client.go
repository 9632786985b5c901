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

// Package edge moves datasets and models between the capture host and
// remote machines over SSH and SFTP. The same client serves the LAN edge
// server and the cloud training instance; only the credentials differ.
package edge

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"

	"github.com/dorobot/teleop-capture/models/robot"
)

// Dial timeouts: the quick probe must fail fast so the operator is not
// left waiting; real transfers can afford a slower handshake.
const (
	QuickTimeout = 5 * time.Second
	DialTimeout  = 30 * time.Second
)

// Credentials identify one SSH endpoint with password authentication.
type Credentials struct {
	Host     string
	User     string
	Password string
	Port     int
}

// Addr returns the host:port dial address.
func (c Credentials) Addr() string {
	port := c.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// Client is one authenticated SSH connection with an SFTP session on top.
type Client struct {
	log  zerolog.Logger
	ssh  *ssh.Client
	sftp *sftp.Client
}

// Probe attempts a quick connection and immediately closes it. It is the
// startup connection test for the remote offload modes.
func Probe(creds Credentials) error {
	conn, err := dial(creds, QuickTimeout)
	if err != nil {
		return fmt.Errorf("%w: %s", robot.ErrConnectionProbe, err)
	}
	conn.Close()
	return nil
}

// Connect opens an SSH connection and an SFTP session.
func Connect(log zerolog.Logger, creds Credentials) (*Client, error) {

	conn, err := dial(creds, DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("could not dial %s: %w", creds.Addr(), err)
	}

	session, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not open sftp session: %w", err)
	}

	c := Client{
		log:  log.With().Str("component", "edge_client").Str("host", creds.Host).Logger(),
		ssh:  conn,
		sftp: session,
	}

	return &c, nil
}

func dial(creds Credentials, timeout time.Duration) (*ssh.Client, error) {
	cfg := ssh.ClientConfig{
		User: creds.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(creds.Password),
		},
		// The edge server lives on a trusted LAN and the cloud credentials
		// come from the training service itself.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}
	return ssh.Dial("tcp", creds.Addr(), &cfg)
}

// Exec runs one command on the remote host and returns its combined
// output.
func (c *Client) Exec(command string) (string, error) {
	session, err := c.ssh.NewSession()
	if err != nil {
		return "", fmt.Errorf("could not open session: %w", err)
	}
	defer session.Close()

	output, err := session.CombinedOutput(command)
	if err != nil {
		return string(output), fmt.Errorf("command failed: %w", err)
	}
	return string(output), nil
}

// DirExists checks whether a remote directory exists. It is the fallback
// completion signal when the training service's status flag lags.
func (c *Client) DirExists(path string) bool {
	_, err := c.Exec("test -d " + shellQuote(path))
	return err == nil
}

// Close tears both sessions down.
func (c *Client) Close() error {
	sftpErr := c.sftp.Close()
	sshErr := c.ssh.Close()
	if sftpErr != nil {
		return sftpErr
	}
	return sshErr
}

// shellQuote wraps a path for safe use in a remote shell command.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
