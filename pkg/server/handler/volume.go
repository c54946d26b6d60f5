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
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	apicluster "github.com/datainfrapilot/datainfrapilot/pkg/apis/cluster"
	"github.com/datainfrapilot/datainfrapilot/pkg/providers"
	srverrors "github.com/datainfrapilot/datainfrapilot/pkg/server/errors"
	"github.com/datainfrapilot/datainfrapilot/pkg/server/wire"
)

// ListVolumes handles GET /volumes/.
func (h *Handler) ListVolumes(w http.ResponseWriter, r *http.Request) {
	volumes, err := h.store.ListVolumes(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}

	out := make([]wire.Volume, 0, len(volumes))
	for i := range volumes {
		out = append(out, wire.VolumeFromAPI(&volumes[i]))
	}

	h.setCacheable(w)
	writeJSON(w, r, http.StatusOK, out)
}

// CreateVolume handles POST /volumes/. Standalone volumes aren't
// cluster-scoped, so this runs synchronously against the provider
// rather than through a per-cluster worker (spec §4.2), bounded by
// providerCallTimeout the same as the orchestrator's own provider calls.
func (h *Handler) CreateVolume(w http.ResponseWriter, r *http.Request) {
	var req wire.VolumeCreate
	if err := decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	v := req.ToAPI()

	if err := v.Validate(); err != nil {
		srverrors.ValidationError(err.Error()).Write(w, r)
		return
	}

	provider, err := h.hetznerProvider()
	if err != nil {
		srverrors.ValidationError("unimplemented provider").WithError(err).Write(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), providerCallTimeout)
	defer cancel()

	providerVolume, err := provider.CreateVolume(ctx, v.Name, v.SizeGiB, v.RegionID, providers.Labels{})
	if err != nil {
		srverrors.ProviderError("creating volume").WithError(err).Write(w, r)
		return
	}

	v.ProviderID = providerVolume.ID

	if err := h.store.CreateVolume(r.Context(), v); err != nil {
		handleError(w, r, err)
		return
	}

	if err := h.store.UpdateVolumeStatus(r.Context(), v.ID, apicluster.StatusRunning); err != nil {
		handleError(w, r, err)
		return
	}

	h.setUncacheable(w)
	writeJSON(w, r, http.StatusCreated, wire.VolumeCreated{Name: v.Name, Status: string(apicluster.StatusRunning)})
}

// DeleteVolume handles DELETE /volumes/{id}.
func (h *Handler) DeleteVolume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	v, err := h.store.GetVolume(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}

	if v.InUse {
		srverrors.Conflict("volume is in use").Write(w, r)
		return
	}

	provider, err := h.hetznerProvider()
	if err != nil {
		srverrors.ValidationError("unimplemented provider").WithError(err).Write(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), providerCallTimeout)
	defer cancel()

	if v.ProviderID != "" {
		if err := provider.DeleteVolume(ctx, v.ProviderID); err != nil {
			srverrors.ProviderError("deleting volume").WithError(err).Write(w, r)
			return
		}
	}

	if err := h.store.DeleteVolume(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}

	h.setUncacheable(w)
	w.WriteHeader(http.StatusAccepted)
}
