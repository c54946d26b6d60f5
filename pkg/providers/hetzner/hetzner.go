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

// Package hetzner implements the providers.Provider capability interface
// against the Hetzner Cloud API. It is the sole implemented IaaS backend
// (spec §1, §9 Open Questions).
package hetzner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"golang.org/x/time/rate"

	"github.com/datainfrapilot/datainfrapilot/pkg/providers"
	"github.com/datainfrapilot/datainfrapilot/pkg/util/retry"

	"sigs.k8s.io/controller-runtime/pkg/log"
)

// requestsPerSecond throttles outbound calls ahead of Hetzner's
// documented per-second API limit, so a burst of worker-pool pipelines
// degrades into queuing on our side rather than tripping
// ErrorCodeRateLimitExceeded on theirs.
const requestsPerSecond = 3

// Driver implements providers.Provider against a single Hetzner Cloud
// project, identified by an API token.
type Driver struct {
	client  *hcloud.Client
	limiter *rate.Limiter
}

// Ensure the Provider interface is implemented.
var _ providers.Provider = &Driver{}

// New creates a Hetzner driver for the given API token.
func New(token string) *Driver {
	return &Driver{
		client:  hcloud.NewClient(hcloud.WithToken(token)),
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// Name implements providers.Provider.
func (d *Driver) Name() string {
	return "hetzner"
}

// isTransientError classifies errors worth retrying: rate limiting,
// server errors, and low-level network flakiness. Grounded on the same
// substring classification used by the Hetzner-based k8zner tool.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	var hErr hcloud.Error
	if errors.As(err, &hErr) {
		switch hErr.Code {
		case hcloud.ErrorCodeRateLimitExceeded, hcloud.ErrorCodeServiceError, hcloud.ErrorCodeConflict, hcloud.ErrorCodeLocked:
			return true
		case hcloud.ErrorCodeUnauthorized, hcloud.ErrorCodeForbidden:
			return false
		case hcloud.ErrorCodeLimitReached, hcloud.ErrorCodeResourceLimitExceeded:
			return false
		}
	}

	msg := err.Error()

	for _, substr := range []string{
		"EOF",
		"connection refused",
		"connection reset",
		"i/o timeout",
		"no such host",
		"TLS handshake timeout",
		"context deadline exceeded",
	} {
		if strings.Contains(msg, substr) {
			return true
		}
	}

	return false
}

// classify turns a raw hcloud error into a sentinel providers error where
// appropriate, otherwise passes it through for the retry loop to judge.
func classify(err error) error {
	var hErr hcloud.Error

	if errors.As(err, &hErr) {
		switch hErr.Code {
		case hcloud.ErrorCodeUnauthorized, hcloud.ErrorCodeForbidden:
			return fmt.Errorf("%w: %s", providers.ErrAuthentication, hErr.Message)
		case hcloud.ErrorCodeLimitReached, hcloud.ErrorCodeResourceLimitExceeded:
			return fmt.Errorf("%w: %s", providers.ErrQuota, hErr.Message)
		case hcloud.ErrorCodeNotFound:
			return fmt.Errorf("%w: %s", providers.ErrResourceNotFound, hErr.Message)
		}
	}

	return err
}

// withRetry runs f under the provider backoff policy (spec §4.2),
// retrying transient errors and giving up immediately on the rest. Each
// attempt first waits for the driver's rate limiter, so a burst of
// concurrent cluster pipelines throttles client-side instead of
// tripping Hetzner's own rate limit.
func (d *Driver) withRetry(ctx context.Context, op string, f func() error) error {
	logger := log.FromContext(ctx)

	return retry.ProviderBackoff().Do(ctx, func() (bool, error) {
		if err := d.limiter.Wait(ctx); err != nil {
			return false, err
		}

		err := f()
		if err == nil {
			return false, nil
		}

		err = classify(err)
		retryable := isTransientError(err)

		if retryable {
			logger.Info("retrying after transient provider error", "op", op, "error", err.Error())
		}

		return retryable, err
	})
}

func toServerStatus(s hcloud.ServerStatus) providers.ServerStatus {
	switch s {
	case hcloud.ServerStatusRunning:
		return providers.ServerStatusRunning
	case hcloud.ServerStatusOff:
		return providers.ServerStatusOff
	case hcloud.ServerStatusInitializing, hcloud.ServerStatusStarting:
		return providers.ServerStatusInitializing
	default:
		return providers.ServerStatusUnknown
	}
}

func toLabelSelector(labels providers.Labels) string {
	parts := make([]string, 0, len(labels))

	for k, v := range labels {
		parts = append(parts, fmt.Sprintf("%s=%s", k, v))
	}

	return strings.Join(parts, ",")
}
