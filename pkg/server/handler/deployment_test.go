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
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apicluster "github.com/datainfrapilot/datainfrapilot/pkg/apis/cluster"
	"github.com/datainfrapilot/datainfrapilot/pkg/catalog"
)

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

func TestConfigValuesFlattensTaggedUnion(t *testing.T) {
	cfg := apicluster.Config{
		"executor":            apicluster.ConfigValue{Text: strp("KubernetesExecutor")},
		"dags_repository_url": apicluster.ConfigValue{Text: strp("https://example.com/dags.git")},
		"flower_enabled":      apicluster.ConfigValue{Bool: boolp(false)},
	}

	out := configValues(cfg)

	assert.Equal(t, "KubernetesExecutor", out["executor"])
	assert.Equal(t, "https://example.com/dags.git", out["dags_repository_url"])
	assert.Equal(t, false, out["flower_enabled"])
}

func newTestHandler() *Handler {
	return &Handler{catalog: catalog.New(), options: &Options{cacheMaxAge: time.Minute}}
}

func TestValidateDeploymentUnknownApplication(t *testing.T) {
	h := newTestHandler()
	c := &apicluster.Cluster{ID: "c1"}
	d := &apicluster.Deployment{Name: "prod", ApplicationID: "nonexistent"}

	err := h.validateDeployment(c, d, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown application")
}

func TestValidateDeploymentInvalidName(t *testing.T) {
	h := newTestHandler()
	c := &apicluster.Cluster{ID: "c1"}
	d := &apicluster.Deployment{
		Name:          "Not_Valid",
		ApplicationID: "grafana",
		Config: apicluster.Config{
			"admin_password": apicluster.ConfigValue{Text: strp("hunter2")},
		},
	}

	err := h.validateDeployment(c, d, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid deployment name")
}

func TestValidateDeploymentMissingRequiredField(t *testing.T) {
	h := newTestHandler()
	c := &apicluster.Cluster{ID: "c1"}
	d := &apicluster.Deployment{
		Name:          "grafana-prod",
		ApplicationID: "grafana",
		Config:        apicluster.Config{},
	}

	err := h.validateDeployment(c, d, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin_password")
}

func TestValidateDeploymentEndpointConflict(t *testing.T) {
	h := newTestHandler()

	existingDeployment := apicluster.Deployment{
		ID:            "d1",
		ApplicationID: "grafana",
		Endpoints: []apicluster.AccessEndpoint{
			{Name: "ui", Type: apicluster.AccessTypeDomainPath, Value: "/grafana", Enabled: true},
		},
	}

	c := &apicluster.Cluster{ID: "c1", Domain: "example.com", Deployments: []apicluster.Deployment{existingDeployment}}

	d := &apicluster.Deployment{
		Name:          "grafana-2",
		ApplicationID: "grafana",
		Config: apicluster.Config{
			"admin_password": apicluster.ConfigValue{Text: strp("hunter2")},
		},
		Endpoints: []apicluster.AccessEndpoint{
			{Name: "ui", Type: apicluster.AccessTypeDomainPath, Value: "/grafana", Enabled: true},
		},
	}

	err := h.validateDeployment(c, d, "")
	require.Error(t, err)
}

func TestValidateDeploymentExcludesOwnEndpointsOnUpdate(t *testing.T) {
	h := newTestHandler()

	existing := apicluster.Deployment{
		ID:            "d1",
		ApplicationID: "grafana",
		Endpoints: []apicluster.AccessEndpoint{
			{Name: "ui", Type: apicluster.AccessTypeDomainPath, Value: "/grafana", Enabled: true},
		},
	}

	c := &apicluster.Cluster{ID: "c1", Domain: "example.com", Deployments: []apicluster.Deployment{existing}}

	// Updating d1 in place with the same endpoint must not collide with
	// itself.
	updated := &apicluster.Deployment{
		ID:            "d1",
		Name:          "grafana",
		ApplicationID: "grafana",
		Config: apicluster.Config{
			"admin_password": apicluster.ConfigValue{Text: strp("hunter2")},
		},
		Endpoints: []apicluster.AccessEndpoint{
			{Name: "ui", Type: apicluster.AccessTypeDomainPath, Value: "/grafana", Enabled: true},
		},
	}

	assert.NoError(t, h.validateDeployment(c, updated, "d1"))
}

func TestCheckEndpointExistenceReportsCollision(t *testing.T) {
	h := newStoreOnlyHandler(&fakeStore{clusters: []apicluster.Cluster{
		{
			ID:     "c1",
			Domain: "example.com",
			Deployments: []apicluster.Deployment{
				{
					ID: "d1",
					Endpoints: []apicluster.AccessEndpoint{
						{Name: "ui", Type: apicluster.AccessTypeDomainPath, Value: "/grafana", Enabled: true},
					},
				},
			},
		},
	}})

	r := chi.NewRouter()
	r.Post("/clusters/{id}/deployments/check-endpoint-existence", h.CheckEndpointExistence)

	body := `{"type":"domain_path","value":"/grafana"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/clusters/c1/deployments/check-endpoint-existence", strings.NewReader(body))

	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", strings.TrimSpace(rec.Body.String()))
}

func TestCheckEndpointExistenceReportsNoCollision(t *testing.T) {
	h := newStoreOnlyHandler(&fakeStore{clusters: []apicluster.Cluster{
		{ID: "c1", Domain: "example.com"},
	}})

	r := chi.NewRouter()
	r.Post("/clusters/{id}/deployments/check-endpoint-existence", h.CheckEndpointExistence)

	body := `{"type":"domain_path","value":"/grafana"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/clusters/c1/deployments/check-endpoint-existence", strings.NewReader(body))

	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "false", strings.TrimSpace(rec.Body.String()))
}

func TestFieldErrorsString(t *testing.T) {
	errs := []catalog.FieldError{
		{Field: "admin_password", Reason: "required"},
		{Field: "replicas", Reason: "must be positive"},
	}

	s := fieldErrorsString(errs)
	assert.Contains(t, s, "admin_password")
	assert.Contains(t, s, "replicas")
}
