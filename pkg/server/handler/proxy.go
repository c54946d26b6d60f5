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
	"net/url"
	"time"

	srverrors "github.com/datainfrapilot/datainfrapilot/pkg/server/errors"
	"github.com/datainfrapilot/datainfrapilot/pkg/server/wire"
)

// proxyHealthCheckTimeout bounds the UI's pass-through probe of a
// deployment's own endpoint.
const proxyHealthCheckTimeout = 10 * time.Second

// ProxyHealthCheck handles GET /deployments/proxy-health-check. This is
// a trivial single-shot GET pass-through with no retry, caching or
// streaming semantics, so it uses net/http directly rather than pulling
// in a client library built for none of those needs (spec §6 "used by
// UI").
func (h *Handler) ProxyHealthCheck(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target_url")
	if target == "" {
		srverrors.ValidationError("target_url is required").Write(w, r)
		return
	}

	parsed, err := url.Parse(target)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		srverrors.ValidationError("target_url must be an http(s) URL").Write(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), proxyHealthCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		srverrors.ValidationError("malformed target_url").WithError(err).Write(w, r)
		return
	}

	client := &http.Client{Timeout: proxyHealthCheckTimeout}

	resp, err := client.Do(req)
	if err != nil {
		srverrors.ProviderError("target did not respond").WithError(err).Write(w, r)
		return
	}
	defer resp.Body.Close()

	h.setUncacheable(w)
	writeJSON(w, r, http.StatusOK, wire.ProxyHealthCheck{StatusCode: resp.StatusCode})
}
