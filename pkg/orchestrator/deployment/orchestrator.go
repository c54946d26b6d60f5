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

// Package deployment owns the deployment lifecycle state machine (C9):
// install, update and delete of an application instance on an already
// running cluster. Operations for a deployment are enqueued onto the
// owning cluster's worker, not a worker of their own, so a cluster and
// its deployments never race each other (spec §4.9, §5).
package deployment

import (
	"context"
	"errors"
	"fmt"

	"github.com/datainfrapilot/datainfrapilot/pkg/apis/cluster"
	"github.com/datainfrapilot/datainfrapilot/pkg/catalog"
	"github.com/datainfrapilot/datainfrapilot/pkg/helmengine"
	"github.com/datainfrapilot/datainfrapilot/pkg/kube"
	"github.com/datainfrapilot/datainfrapilot/pkg/orchestrator"
	"github.com/datainfrapilot/datainfrapilot/pkg/render"
)

// ErrClusterNotReady is returned when a deployment operation is
// requested against a cluster with no cached kubeconfig, i.e. one that
// is not currently running (spec §4.9 admission step 1).
var ErrClusterNotReady = errors.New("cluster is not ready for deployment operations")

// Store is the subset of pkg/store used by the deployment orchestrator.
type Store interface {
	GetCluster(ctx context.Context, id string) (*cluster.Cluster, error)
	GetDeployment(ctx context.Context, id string) (*cluster.Deployment, error)
	UpdateDeploymentStatus(ctx context.Context, id string, status cluster.Status, errMsg string) error
	DeleteDeployment(ctx context.Context, id string) error
}

// KubeconfigSource hands back the in-memory kubeconfig cached by the
// cluster orchestrator (C8) for a running cluster, so C9 never needs its
// own SSH path to the control plane.
type KubeconfigSource interface {
	KubeconfigFor(clusterID string) ([]byte, bool)
}

type kubeGatewayFunc func(kubeconfig []byte) (*kube.Gateway, error)

type helmDriverFunc func(kubeconfig []byte, namespace string) (*helmengine.Driver, error)

// Orchestrator drives deployment state transitions.
type Orchestrator struct {
	store       Store
	catalog     *catalog.Catalog
	kubeconfigs KubeconfigSource
	pool        *orchestrator.Pool
	render      *render.Renderer

	kubeGW     kubeGatewayFunc
	helmDriver helmDriverFunc
}

// New builds an Orchestrator. pool is the cluster orchestrator's shared
// worker pool (spec §4.9: "operations for the same cluster share that
// cluster's worker"); it is not owned by this package.
func New(st Store, cat *catalog.Catalog, kubeconfigs KubeconfigSource, pool *orchestrator.Pool, renderer *render.Renderer) *Orchestrator {
	return &Orchestrator{
		store:       st,
		catalog:     cat,
		kubeconfigs: kubeconfigs,
		pool:        pool,
		render:      renderer,
		kubeGW:      kube.NewFromKubeconfig,
		helmDriver:  helmengine.New,
	}
}

// Install enqueues the admission + install pipeline for a deployment
// already persisted in `pending` state. Returns orchestrator.ErrQueueFull
// if the owning cluster's worker queue is saturated.
func (o *Orchestrator) Install(ctx context.Context, deploymentID string) error {
	return o.submit(ctx, deploymentID, o.runInstall)
}

// Update enqueues re-validation and a Helm upgrade for an existing
// deployment.
func (o *Orchestrator) Update(ctx context.Context, deploymentID string) error {
	return o.submit(ctx, deploymentID, o.runUpdate)
}

// Delete enqueues the teardown pipeline for a deployment.
func (o *Orchestrator) Delete(ctx context.Context, deploymentID string) error {
	return o.submit(ctx, deploymentID, o.runDelete)
}

func (o *Orchestrator) submit(ctx context.Context, deploymentID string, fn func(deploymentID string)) error {
	d, err := o.store.GetDeployment(ctx, deploymentID)
	if err != nil {
		return fmt.Errorf("loading deployment: %w", err)
	}

	return o.pool.Submit(d.ClusterID, func() {
		fn(deploymentID)
	})
}
