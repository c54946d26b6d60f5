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

package cluster

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apicluster "github.com/datainfrapilot/datainfrapilot/pkg/apis/cluster"
	"github.com/datainfrapilot/datainfrapilot/pkg/providers"
	"github.com/datainfrapilot/datainfrapilot/pkg/render"
)

// fakeStore is a minimal in-memory Store used to observe the status
// transitions Create/Delete make without touching a real database.
type fakeStore struct {
	mu       sync.Mutex
	clusters map[string]*apicluster.Cluster
	statuses []apicluster.Status
}

func newFakeStore(c *apicluster.Cluster) *fakeStore {
	return &fakeStore{clusters: map[string]*apicluster.Cluster{c.ID: c}}
}

func (s *fakeStore) GetCluster(ctx context.Context, id string) (*apicluster.Cluster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clusters[id]
	if !ok {
		return nil, errors.New("not found")
	}

	cp := *c

	return &cp, nil
}

func (s *fakeStore) UpdateClusterStatus(ctx context.Context, id string, status apicluster.Status, errMsg string, accessIP *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clusters[id]
	if !ok {
		return errors.New("not found")
	}

	c.Status = status
	s.statuses = append(s.statuses, status)

	return nil
}

func (s *fakeStore) DeleteCluster(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.clusters, id)

	return nil
}

func (s *fakeStore) firstStatus() apicluster.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.statuses) == 0 {
		return ""
	}

	return s.statuses[0]
}

func (s *fakeStore) lastStatus() apicluster.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.statuses) == 0 {
		return ""
	}

	return s.statuses[len(s.statuses)-1]
}

func TestCreateTransitionsToCreatingBeforeSubmitting(t *testing.T) {
	c := &apicluster.Cluster{ID: "c1", Name: "prod", Provider: "hetzner", Status: apicluster.StatusPending}
	store := newFakeStore(c)

	signer, err := newTestSigner()
	require.NoError(t, err)

	o := New(store, providers.NewRegistry(), render.New(), signer)

	require.NoError(t, o.Create(context.Background(), c.ID))

	// The submitted pipeline runs concurrently and records its own
	// (failed, on this empty registry) transition, so only the first
	// recorded status is the synchronous one Create wrote.
	assert.Equal(t, apicluster.StatusCreating, store.firstStatus())
}

func TestCreatePropagatesStoreErrorWithoutSubmitting(t *testing.T) {
	store := newFakeStore(&apicluster.Cluster{ID: "other"})

	signer, err := newTestSigner()
	require.NoError(t, err)

	o := New(store, providers.NewRegistry(), render.New(), signer)

	err = o.Create(context.Background(), "missing")
	assert.Error(t, err)
}
