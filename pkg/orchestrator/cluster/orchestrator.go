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

// Package cluster owns the cluster lifecycle state machine (C8): a
// per-cluster worker serializes create/configure/delete commands while
// different clusters provision in parallel (spec §4.8, §5).
package cluster

import (
	"context"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/datainfrapilot/datainfrapilot/pkg/apis/cluster"
	"github.com/datainfrapilot/datainfrapilot/pkg/helmengine"
	"github.com/datainfrapilot/datainfrapilot/pkg/kube"
	"github.com/datainfrapilot/datainfrapilot/pkg/orchestrator"
	"github.com/datainfrapilot/datainfrapilot/pkg/providers"
	"github.com/datainfrapilot/datainfrapilot/pkg/remoteexec"
	"github.com/datainfrapilot/datainfrapilot/pkg/render"
	"github.com/datainfrapilot/datainfrapilot/pkg/store"
)

// ProviderCallTimeout bounds a single provider API call (spec §4.9).
const ProviderCallTimeout = 60 * time.Second

// Store is the subset of pkg/store used by the orchestrator.
type Store interface {
	GetCluster(ctx context.Context, id string) (*cluster.Cluster, error)
	UpdateClusterStatus(ctx context.Context, id string, status cluster.Status, errMsg string, accessIP *string) error
	DeleteCluster(ctx context.Context, id string) error
}

type dialFunc func(ctx context.Context, host string, signer ssh.Signer) (*remoteexec.Session, error)

type kubeGatewayFunc func(kubeconfig []byte) (*kube.Gateway, error)

type helmDriverFunc func(kubeconfig []byte, namespace string) (*helmengine.Driver, error)

// Orchestrator drives cluster state transitions.
type Orchestrator struct {
	store     Store
	providers *providers.Registry
	render    *render.Renderer
	pool      *orchestrator.Pool
	signer    ssh.Signer

	dial       dialFunc
	kubeGW     kubeGatewayFunc
	helmDriver helmDriverFunc

	mu          sync.Mutex
	kubeconfigs map[string][]byte
}

// New builds an Orchestrator. signer is the SSH keypair used to bootstrap
// every node (spec §4.3); the matching public key is registered with the
// provider per cluster via EnsureSSHKey.
func New(st Store, registry *providers.Registry, renderer *render.Renderer, signer ssh.Signer) *Orchestrator {
	return &Orchestrator{
		store:       st,
		providers:   registry,
		render:      renderer,
		pool:        orchestrator.NewPool(),
		signer:      signer,
		dial:        remoteexec.Dial,
		kubeGW:      kube.NewFromKubeconfig,
		helmDriver:  helmengine.New,
		kubeconfigs: make(map[string][]byte),
	}
}

// Create transitions a cluster already persisted in `pending` state to
// `creating` and enqueues the creation pipeline (spec §4.8: "pending ->
// creating on create-command accept; the desired state is recorded
// before work begins"). Returns orchestrator.ErrQueueFull if the
// worker's queue is saturated; the cluster is left in `creating` in
// that case since the command was accepted before admission failed.
func (o *Orchestrator) Create(ctx context.Context, clusterID string) error {
	if err := o.transition(ctx, clusterID, cluster.StatusCreating, "", nil); err != nil {
		return err
	}

	return o.pool.Submit(clusterID, func() {
		o.runCreate(clusterID)
	})
}

// Delete enqueues the teardown pipeline for a running or failed cluster.
func (o *Orchestrator) Delete(ctx context.Context, clusterID string) error {
	return o.pool.Submit(clusterID, func() {
		o.runDelete(clusterID)
	})
}

// cachedKubeconfig returns the in-memory kubeconfig for a cluster, as
// stored by cacheKubeconfig once the create pipeline has fetched it
// (spec §5: "cached in memory per worker").
func (o *Orchestrator) cachedKubeconfig(id string) ([]byte, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	kc, ok := o.kubeconfigs[id]

	return kc, ok
}

// KubeconfigFor returns the cached kubeconfig for a running cluster,
// shared with the deployment orchestrator (C9) so it never has to
// re-dial the control plane over SSH to reach the Kubernetes API (spec
// §5, §4.9: "operations for the same cluster share that cluster's
// worker").
func (o *Orchestrator) KubeconfigFor(clusterID string) ([]byte, bool) {
	return o.cachedKubeconfig(clusterID)
}

// Worker exposes the shared per-cluster worker pool so the deployment
// orchestrator can enqueue deployment commands on the same key as the
// owning cluster (spec §4.9).
func (o *Orchestrator) Worker() *orchestrator.Pool {
	return o.pool
}

func (o *Orchestrator) cacheKubeconfig(id string, kubeconfig []byte) {
	o.mu.Lock()
	o.kubeconfigs[id] = kubeconfig
	o.mu.Unlock()
}

// invalidateKubeconfig drops a cluster's cached kubeconfig (spec §5:
// "invalidated on cluster deletion").
func (o *Orchestrator) invalidateKubeconfig(id string) {
	o.mu.Lock()
	delete(o.kubeconfigs, id)
	o.mu.Unlock()
}

// Stop releases the worker for a deleted cluster, draining its queue
// first.
func (o *Orchestrator) Stop(clusterID string) {
	o.pool.Stop(clusterID)
}
