/*
Copyright 2024 DataInfraPilot Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package remoteexec implements C3: SSH-based command execution and
// cloud-init template delivery used to bootstrap and tear down k3s nodes.
package remoteexec

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bramvdbogaerde/go-scp"
	"golang.org/x/crypto/ssh"

	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Session wraps an SSH connection to a single server.
type Session struct {
	client *ssh.Client
	host   string
}

// Dial opens an SSH session to host:22 using the given private key,
// honoring ctx's deadline.
func Dial(ctx context.Context, host string, signer ssh.Signer) (*Session, error) {
	config := &ssh.ClientConfig{
		User:            "root",
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // bootstrap nodes have no known host key yet
		Timeout:         15 * time.Second,
	}

	type dialResult struct {
		client *ssh.Client
		err    error
	}

	resultCh := make(chan dialResult, 1)

	go func() {
		client, err := ssh.Dial("tcp", host+":22", config)
		resultCh <- dialResult{client, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultCh:
		if res.err != nil {
			return nil, fmt.Errorf("ssh dial %s: %w", host, res.err)
		}

		return &Session{client: res.client, host: host}, nil
	}
}

// Close releases the underlying connection.
func (s *Session) Close() error {
	return s.client.Close()
}

// Run executes a single command and returns its combined output.
func (s *Session) Run(ctx context.Context, command string) (string, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("ssh new session to %s: %w", s.host, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)

	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return "", ctx.Err()
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("command %q on %s: %w: %s", command, s.host, err, stderr.String())
		}

		return stdout.String(), nil
	}
}

// PutFile copies content to path on the remote host over SCP.
func (s *Session) PutFile(ctx context.Context, path string, content []byte, perm string) error {
	client, err := scp.NewClientBySSH(s.client)
	if err != nil {
		return fmt.Errorf("scp client to %s: %w", s.host, err)
	}
	defer client.Close()

	if err := client.CopyFile(ctx, bytes.NewReader(content), path, perm); err != nil {
		return fmt.Errorf("scp copy to %s:%s: %w", s.host, path, err)
	}

	return nil
}

// WaitCloudInit polls until cloud-init reports it has finished, or ctx is
// cancelled (spec §4.3).
func (s *Session) WaitCloudInit(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	logger := log.FromContext(ctx)

	for {
		out, err := s.Run(ctx, "cloud-init status")
		if err == nil && strings.Contains(out, "status: done") {
			return nil
		}

		logger.Info("waiting for cloud-init", "host", s.host)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitK3sReady polls the k3s systemd unit for `active` status and waits
// for the kubeconfig file to be present, with the 5s interval / 10 minute
// budget mandated by spec §4.3.
func (s *Session) WaitK3sReady(ctx context.Context, unit, kubeconfigPath string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	logger := log.FromContext(ctx)

	for {
		active, err := s.Run(ctx, fmt.Sprintf("systemctl is-active %s", unit))
		ready := err == nil && strings.TrimSpace(active) == "active"

		if ready {
			if _, err := s.Run(ctx, fmt.Sprintf("test -f %s", kubeconfigPath)); err == nil {
				return nil
			}
		}

		logger.Info("waiting for k3s readiness", "unit", unit)

		select {
		case <-ctx.Done():
			return fmt.Errorf("k3s readiness timed out on %s: %w", s.host, ctx.Err())
		case <-ticker.C:
		}
	}
}

// ReadFile reads a small remote file's contents, used to read back the
// k3s kubeconfig (spec §4.3, §4.8 step 4).
func (s *Session) ReadFile(ctx context.Context, path string) (string, error) {
	out, err := s.Run(ctx, "cat "+path)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(out), nil
}
