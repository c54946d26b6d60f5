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

// Package helmengine installs, upgrades and uninstalls Helm releases on a
// target cluster (spec §4.5). Install/upgrade run atomic and wait, matching
// `helm install/upgrade --atomic --wait --timeout=10m`; uninstall waits for
// resource removal. Errors are categorized into chart-not-found,
// timeout-on-wait and api-server-error so the orchestrator (C8/C9) can
// apply the partial-failure policy for upgrades.
package helmengine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/release"
	"helm.sh/helm/v3/pkg/storage/driver"

	"sigs.k8s.io/controller-runtime/pkg/log"
)

// InstallTimeout matches the spec's 10 minute Helm install/upgrade budget
// (spec §4.9).
const InstallTimeout = 10 * time.Minute

var (
	// ErrChartNotFound is returned when the chart path or reference cannot
	// be loaded.
	ErrChartNotFound = errors.New("chart not found")

	// ErrTimeout is returned when a wait for resource readiness exceeds
	// its deadline.
	ErrTimeout = errors.New("helm operation timed out waiting for resources")

	// ErrAPIServer is returned for any other failure talking to the
	// target cluster's API server.
	ErrAPIServer = errors.New("helm operation failed against the api server")
)

// Driver wraps a Helm action.Configuration bound to a single target
// cluster's kubeconfig and a fixed namespace-per-release model (every
// DataInfraPilot deployment owns its own namespace, so the driver is
// re-created per namespace rather than per release).
type Driver struct {
	cfg       *action.Configuration
	namespace string
}

// New builds a driver for a single namespace on a target cluster,
// following the kubeconfig-backed RESTClientGetter pattern used by the
// Helm SDK's own CLI entrypoint.
func New(kubeconfig []byte, namespace string) (*Driver, error) {
	getter := &kubeconfigGetter{kubeconfig: kubeconfig, namespace: namespace}

	cfg := &action.Configuration{}

	if err := cfg.Init(getter, namespace, "secret", func(format string, v ...interface{}) {
		log.Log.Info(fmt.Sprintf(format, v...))
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAPIServer, err)
	}

	return &Driver{cfg: cfg, namespace: namespace}, nil
}

// loadChart loads a chart from a local directory (the application
// artifact bundle) or returns ErrChartNotFound.
func loadChart(path string) (*chart.Chart, error) {
	c, err := loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrChartNotFound, path, err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrChartNotFound, path, err)
	}

	return c, nil
}

// released reports whether a release with the given name already exists
// in this namespace.
func (d *Driver) released(name string) (bool, error) {
	client := action.NewHistory(d.cfg)
	client.Max = 1

	if _, err := client.Run(name); err != nil {
		if errors.Is(err, driver.ErrReleaseNotFound) {
			return false, nil
		}

		return false, fmt.Errorf("%w: %w", ErrAPIServer, err)
	}

	return true, nil
}

// InstallOrUpgrade performs a Helm install if the release is new, or an
// upgrade if it already exists, both atomic and waiting for resources to
// become ready within InstallTimeout (spec §4.5).
func (d *Driver) InstallOrUpgrade(ctx context.Context, releaseName, chartPath string, values map[string]interface{}) (*release.Release, error) {
	c, err := loadChart(chartPath)
	if err != nil {
		return nil, err
	}

	exists, err := d.released(releaseName)
	if err != nil {
		return nil, err
	}

	var rel *release.Release

	if exists {
		rel, err = d.upgrade(ctx, releaseName, c, values)
	} else {
		rel, err = d.install(ctx, releaseName, c, values)
	}

	if err != nil {
		return nil, classify(err)
	}

	return rel, nil
}

func (d *Driver) install(ctx context.Context, releaseName string, c *chart.Chart, values map[string]interface{}) (*release.Release, error) {
	client := action.NewInstall(d.cfg)
	client.ReleaseName = releaseName
	client.Namespace = d.namespace
	client.CreateNamespace = false
	client.Atomic = true
	client.Wait = true
	client.Timeout = InstallTimeout

	return client.RunWithContext(ctx, c, values)
}

func (d *Driver) upgrade(ctx context.Context, releaseName string, c *chart.Chart, values map[string]interface{}) (*release.Release, error) {
	client := action.NewUpgrade(d.cfg)
	client.Namespace = d.namespace
	client.Atomic = true
	client.Wait = true
	client.Timeout = InstallTimeout

	return client.RunWithContext(ctx, releaseName, c, values)
}

// Uninstall removes a release and waits for its resources to disappear.
// Absent releases are treated as success.
func (d *Driver) Uninstall(releaseName string) error {
	exists, err := d.released(releaseName)
	if err != nil {
		return err
	}

	if !exists {
		return nil
	}

	client := action.NewUninstall(d.cfg)
	client.Wait = true
	client.Timeout = InstallTimeout

	if _, err := client.Run(releaseName); err != nil {
		return classify(err)
	}

	return nil
}

// classify maps a raw Helm SDK error onto one of the three categories
// spec §4.5 requires the orchestrator to branch on.
func classify(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()

	switch {
	case errors.Is(err, driver.ErrReleaseNotFound):
		return fmt.Errorf("%w: %w", ErrChartNotFound, err)
	case strings.Contains(msg, "timed out waiting for the condition"),
		strings.Contains(msg, "context deadline exceeded"):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrAPIServer, err)
	}
}
