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

	srverrors "github.com/datainfrapilot/datainfrapilot/pkg/server/errors"
	"github.com/datainfrapilot/datainfrapilot/pkg/server/wire"
)

// Versions handles GET /applications/{id}/versions. This build has no
// upstream Helm/OCI registry client wired up to back catalog.VersionCache
// (spec §4.7 "may fetch from an upstream registry"), so it reports the
// application's one known-good default version rather than querying
// anywhere; a real registry client would plug into catalog.VersionSource
// without changing this handler.
func (h *Handler) Versions(w http.ResponseWriter, r *http.Request) {
	app, err := h.catalog.Get(chi.URLParam(r, "id"))
	if err != nil {
		srverrors.NotFound("unknown application").WithError(err).Write(w, r)
		return
	}

	h.setCacheable(w)
	writeJSON(w, r, http.StatusOK, []string{app.DefaultVersion})
}

// AccessEndpoints handles GET /applications/{id}/access_endpoints.
func (h *Handler) AccessEndpoints(w http.ResponseWriter, r *http.Request) {
	app, err := h.catalog.Get(chi.URLParam(r, "id"))
	if err != nil {
		srverrors.NotFound("unknown application").WithError(err).Write(w, r)
		return
	}

	out := make([]wire.ApplicationAccessEndpoint, 0, len(app.Endpoints))

	for _, ep := range app.Endpoints {
		out = append(out, wire.ApplicationAccessEndpoint{
			Name:         ep.Name,
			Description:  ep.Description,
			DefaultType:  ep.DefaultType,
			DefaultValue: ep.DefaultValue,
			Required:     ep.Required,
		})
	}

	h.setCacheable(w)
	writeJSON(w, r, http.StatusOK, out)
}
