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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApplicationRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/applications/{id}", func(r chi.Router) {
		r.Get("/versions", h.Versions)
		r.Get("/access_endpoints", h.AccessEndpoints)
	})

	return r
}

func TestVersionsReturnsDefaultVersion(t *testing.T) {
	h := newTestHandler()
	router := newApplicationRouter(h)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/applications/airflow/versions", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var versions []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &versions))
	assert.Equal(t, []string{"2.9.3"}, versions)
}

func TestVersionsUnknownApplication(t *testing.T) {
	h := newTestHandler()
	router := newApplicationRouter(h)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/applications/nonexistent/versions", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAccessEndpointsListsDescriptors(t *testing.T) {
	h := newTestHandler()
	router := newApplicationRouter(h)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/applications/grafana/access_endpoints", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name"`)
}
