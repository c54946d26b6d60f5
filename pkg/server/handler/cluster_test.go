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
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	apicluster "github.com/datainfrapilot/datainfrapilot/pkg/apis/cluster"
	"github.com/datainfrapilot/datainfrapilot/pkg/store"
)

// fakeStore implements handler.Store with an in-memory slice, enough to
// exercise the read paths that don't need the orchestrators.
type fakeStore struct {
	clusters []apicluster.Cluster
	volumes  []apicluster.Volume
}

func (s *fakeStore) ListClusters(ctx context.Context) ([]apicluster.Cluster, error) {
	return s.clusters, nil
}

func (s *fakeStore) GetCluster(ctx context.Context, id string) (*apicluster.Cluster, error) {
	for i := range s.clusters {
		if s.clusters[i].ID == id {
			return &s.clusters[i], nil
		}
	}

	return nil, store.ErrNotFound
}

func (s *fakeStore) CreateCluster(ctx context.Context, c *apicluster.Cluster) error {
	s.clusters = append(s.clusters, *c)
	return nil
}

func (s *fakeStore) DeleteCluster(ctx context.Context, id string) error { return nil }

func (s *fakeStore) GetDeployment(ctx context.Context, id string) (*apicluster.Deployment, error) {
	return nil, store.ErrNotFound
}

func (s *fakeStore) CreateDeployment(ctx context.Context, d *apicluster.Deployment) error { return nil }

func (s *fakeStore) UpdateDeploymentConfig(ctx context.Context, d *apicluster.Deployment) error {
	return nil
}

func (s *fakeStore) DeleteDeployment(ctx context.Context, id string) error { return nil }

func (s *fakeStore) ListVolumes(ctx context.Context) ([]apicluster.Volume, error) {
	return s.volumes, nil
}

func (s *fakeStore) GetVolume(ctx context.Context, id string) (*apicluster.Volume, error) {
	for i := range s.volumes {
		if s.volumes[i].ID == id {
			return &s.volumes[i], nil
		}
	}

	return nil, store.ErrNotFound
}

func (s *fakeStore) CreateVolume(ctx context.Context, v *apicluster.Volume) error {
	s.volumes = append(s.volumes, *v)
	return nil
}

func (s *fakeStore) UpdateVolumeStatus(ctx context.Context, id string, status apicluster.Status) error {
	return nil
}

func (s *fakeStore) UpdateVolumeProviderID(ctx context.Context, id, providerID string) error {
	return nil
}

func (s *fakeStore) DeleteVolume(ctx context.Context, id string) error { return nil }

func newStoreOnlyHandler(s *fakeStore) *Handler {
	return New(s, nil, nil, nil, nil, &Options{cacheMaxAge: time.Minute})
}

func TestListClustersReturnsStoreContents(t *testing.T) {
	h := newStoreOnlyHandler(&fakeStore{clusters: []apicluster.Cluster{
		{ID: "c1", Name: "prod", Status: apicluster.StatusRunning},
	}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/clusters/", nil)

	h.ListClusters(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"prod"`)
}

func TestGetClusterNotFound(t *testing.T) {
	h := newStoreOnlyHandler(&fakeStore{})

	r := chi.NewRouter()
	r.Get("/clusters/{id}", h.GetCluster)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/clusters/missing", nil)

	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetKubeconfigRejectsNonRunningCluster(t *testing.T) {
	h := newStoreOnlyHandler(&fakeStore{clusters: []apicluster.Cluster{
		{ID: "c1", Name: "prod", Status: apicluster.StatusCreating},
	}})

	r := chi.NewRouter()
	r.Get("/clusters/{id}/kubeconfig", h.GetKubeconfig)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/clusters/c1/kubeconfig", nil)

	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
