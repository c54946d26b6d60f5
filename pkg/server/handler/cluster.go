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

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/datainfrapilot/datainfrapilot/pkg/apis/cluster"
	srverrors "github.com/datainfrapilot/datainfrapilot/pkg/server/errors"
	"github.com/datainfrapilot/datainfrapilot/pkg/server/util"
	"github.com/datainfrapilot/datainfrapilot/pkg/server/wire"
)

// ListClusters handles GET /clusters/.
func (h *Handler) ListClusters(w http.ResponseWriter, r *http.Request) {
	clusters, err := h.store.ListClusters(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}

	out := make([]wire.Cluster, 0, len(clusters))
	for i := range clusters {
		out = append(out, wire.ClusterFromAPI(&clusters[i]))
	}

	h.setCacheable(w)
	writeJSON(w, r, http.StatusOK, out)
}

// CreateCluster handles POST /clusters/.
func (h *Handler) CreateCluster(w http.ResponseWriter, r *http.Request) {
	var req wire.ClusterCreate
	if err := decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	c := req.ToAPI()

	if _, err := h.providers.Get(c.Provider); err != nil {
		srverrors.ValidationError("unimplemented provider").WithError(err).Write(w, r)
		return
	}

	if err := c.Validate(); err != nil {
		srverrors.ValidationError(err.Error()).Write(w, r)
		return
	}

	if err := h.store.CreateCluster(r.Context(), c); err != nil {
		handleError(w, r, err)
		return
	}

	if err := h.clusters.Create(r.Context(), c.ID); err != nil {
		handleError(w, r, err)
		return
	}

	c.Status = cluster.StatusCreating

	h.setUncacheable(w)
	writeJSON(w, r, http.StatusCreated, wire.ClusterCreated{Name: c.Name, Status: string(c.Status)})
}

// GetCluster handles GET /clusters/{id}.
func (h *Handler) GetCluster(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.GetCluster(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	h.setCacheable(w)
	writeJSON(w, r, http.StatusOK, wire.ClusterFromAPI(c))
}

// DeleteCluster handles DELETE /clusters/{id}. Idempotent after a
// terminal failure: a cluster left in the failed state can be deleted
// again, which resubmits the teardown and returns 202. An ID with no
// cluster row returns 404.
func (h *Handler) DeleteCluster(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := h.store.GetCluster(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}

	if err := h.clusters.Delete(r.Context(), c.ID); err != nil {
		handleError(w, r, err)
		return
	}

	h.setUncacheable(w)
	w.WriteHeader(http.StatusAccepted)
}

// GetKubeconfig handles GET /clusters/{id}/kubeconfig.
func (h *Handler) GetKubeconfig(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := h.store.GetCluster(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}

	if c.Status != cluster.StatusRunning {
		srverrors.Conflict("cluster is not running").Write(w, r)
		return
	}

	kubeconfig, ok := h.clusters.KubeconfigFor(c.ID)
	if !ok {
		srverrors.Conflict("cluster kubeconfig is not cached").Write(w, r)
		return
	}

	h.setUncacheable(w)
	util.WriteRawResponse(w, r, http.StatusOK, "application/yaml", kubeconfig)
}
