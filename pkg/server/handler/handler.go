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

// Package handler implements the REST surface's handler-per-resource
// layer (C10): thin HTTP handlers that decode requests into the internal
// domain types, call the store/orchestrators, and encode responses.
package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/datainfrapilot/datainfrapilot/pkg/apis/cluster"
	"github.com/datainfrapilot/datainfrapilot/pkg/catalog"
	clusterorch "github.com/datainfrapilot/datainfrapilot/pkg/orchestrator/cluster"
	deploymentorch "github.com/datainfrapilot/datainfrapilot/pkg/orchestrator/deployment"
	"github.com/datainfrapilot/datainfrapilot/pkg/providers"
)

// providerCallTimeout bounds the direct (non-worker) provider calls the
// handler makes itself, e.g. standalone volume creation, matching the
// orchestrator's own provider call budget (spec §4.9).
const providerCallTimeout = 60 * time.Second

// Store is the subset of pkg/store the handler reads and writes
// directly, beyond what it delegates to the orchestrators.
type Store interface {
	ListClusters(ctx context.Context) ([]cluster.Cluster, error)
	GetCluster(ctx context.Context, id string) (*cluster.Cluster, error)
	CreateCluster(ctx context.Context, c *cluster.Cluster) error
	DeleteCluster(ctx context.Context, id string) error

	GetDeployment(ctx context.Context, id string) (*cluster.Deployment, error)
	CreateDeployment(ctx context.Context, d *cluster.Deployment) error
	UpdateDeploymentConfig(ctx context.Context, d *cluster.Deployment) error
	DeleteDeployment(ctx context.Context, id string) error

	ListVolumes(ctx context.Context) ([]cluster.Volume, error)
	GetVolume(ctx context.Context, id string) (*cluster.Volume, error)
	CreateVolume(ctx context.Context, v *cluster.Volume) error
	UpdateVolumeStatus(ctx context.Context, id string, status cluster.Status) error
	UpdateVolumeProviderID(ctx context.Context, id, providerID string) error
	DeleteVolume(ctx context.Context, id string) error
}

// Handler wires the REST surface to the persistence layer and the two
// worker orchestrators.
type Handler struct {
	store       Store
	catalog     *catalog.Catalog
	providers   *providers.Registry
	clusters    *clusterorch.Orchestrator
	deployments *deploymentorch.Orchestrator
	options     *Options
}

// New builds a Handler.
func New(st Store, cat *catalog.Catalog, registry *providers.Registry, clusters *clusterorch.Orchestrator, deployments *deploymentorch.Orchestrator, options *Options) *Handler {
	return &Handler{
		store:       st,
		catalog:     cat,
		providers:   registry,
		clusters:    clusters,
		deployments: deployments,
		options:     options,
	}
}

func (h *Handler) setCacheable(w http.ResponseWriter) {
	w.Header().Add("Cache-Control", fmt.Sprintf("max-age=%d", int(h.options.cacheMaxAge/time.Second)))
	w.Header().Add("Cache-Control", "private")
}

func (h *Handler) setUncacheable(w http.ResponseWriter) {
	w.Header().Add("Cache-Control", "no-cache")
}

// hetznerProvider resolves the single backend this build implements
// (spec §9 Open Questions: DigitalOcean/OpenStack-style backends stay
// unimplemented capabilities).
func (h *Handler) hetznerProvider() (providers.Provider, error) {
	return h.providers.Get("hetzner")
}
