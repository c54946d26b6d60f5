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
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxyHealthCheckReportsTargetStatus(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer target.Close()

	h := &Handler{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/deployments/proxy-health-check?target_url="+url.QueryEscape(target.URL), nil)

	h.ProxyHealthCheck(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		StatusCode int `json:"status_code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, http.StatusTeapot, out.StatusCode)
}

func TestProxyHealthCheckRequiresTargetURL(t *testing.T) {
	h := &Handler{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/deployments/proxy-health-check", nil)

	h.ProxyHealthCheck(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProxyHealthCheckRejectsNonHTTPScheme(t *testing.T) {
	h := &Handler{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/deployments/proxy-health-check?target_url="+url.QueryEscape("ftp://example.com"), nil)

	h.ProxyHealthCheck(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
