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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(i int) *int { return &i }

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("prod"))
	assert.True(t, ValidName("prod-1"))
	assert.False(t, ValidName("Prod"))
	assert.False(t, ValidName("prod_1"))
	assert.False(t, ValidName(""))
}

func TestPoolValidateControlPlane(t *testing.T) {
	p := Pool{Name: "control-plane", Role: PoolRoleControlPlane, FixedCount: intp(1)}
	require.NoError(t, p.Validate())

	p.FixedCount = intp(2)
	assert.ErrorIs(t, p.Validate(), ErrInvalidPool)
}

func TestPoolValidateWorkerFixed(t *testing.T) {
	p := Pool{Name: "workers", Role: PoolRoleWorker, FixedCount: intp(20)}
	require.NoError(t, p.Validate())

	p.FixedCount = intp(21)
	assert.ErrorIs(t, p.Validate(), ErrInvalidPool)

	p.FixedCount = intp(0)
	assert.ErrorIs(t, p.Validate(), ErrInvalidPool)
}

func TestPoolValidateWorkerAutoscaling(t *testing.T) {
	p := Pool{Name: "workers", Role: PoolRoleWorker, MinCount: intp(2), MaxCount: intp(5)}
	require.NoError(t, p.Validate())
	assert.True(t, p.Autoscaled())

	p.MinCount = intp(6)
	assert.ErrorIs(t, p.Validate(), ErrInvalidPool)
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "grafana", NormalizeEndpoint(AccessTypeSubdomain, "Grafana"))
	assert.Equal(t, "grafana", NormalizeEndpoint(AccessTypeSubdomain, "/Grafana"))
	assert.Equal(t, "/grafana", NormalizeEndpoint(AccessTypeDomainPath, "grafana"))
	assert.Equal(t, "/grafana", NormalizeEndpoint(AccessTypeDomainPath, "/grafana"))
	assert.Equal(t, "/grafana", NormalizeEndpoint(AccessTypeClusterIPPath, "/Grafana"))
}

func TestNormalizeEndpointIdempotent(t *testing.T) {
	once := NormalizeEndpoint(AccessTypeDomainPath, "/Grafana")
	twice := NormalizeEndpoint(AccessTypeDomainPath, once)
	assert.Equal(t, once, twice)
}

func TestValidateEndpointsRequiresDomain(t *testing.T) {
	cl := &Cluster{}
	endpoints := []AccessEndpoint{{Name: "ui", Type: AccessTypeSubdomain, Value: "grafana", Enabled: true}}

	err := ValidateEndpoints(cl, endpoints, nil)
	assert.ErrorIs(t, err, ErrInvalidEndpoint)

	cl.Domain = "example.com"
	assert.NoError(t, ValidateEndpoints(cl, endpoints, nil))
}

func TestValidateEndpointsConflict(t *testing.T) {
	cl := &Cluster{Domain: "example.com"}
	endpoints := []AccessEndpoint{{Name: "ui", Type: AccessTypeDomainPath, Value: "/grafana", Enabled: true}}

	existing := map[string]bool{
		(&AccessEndpoint{Type: AccessTypeDomainPath, Value: "/grafana"}).Key(): true,
	}

	err := ValidateEndpoints(cl, endpoints, existing)
	assert.ErrorIs(t, err, ErrEndpointConflict)
}

func TestValidateEndpointsClusterIPAlwaysAllowed(t *testing.T) {
	cl := &Cluster{}
	endpoints := []AccessEndpoint{{Name: "ui", Type: AccessTypeClusterIPPath, Value: "/grafana", Enabled: true}}

	assert.NoError(t, ValidateEndpoints(cl, endpoints, nil))
}

func TestClusterValidate(t *testing.T) {
	c := &Cluster{
		Name:         "prod",
		ControlPlane: Pool{Name: "control-plane", Role: PoolRoleControlPlane, FixedCount: intp(1)},
		WorkerPools: []Pool{
			{Name: "workers", Role: PoolRoleWorker, FixedCount: intp(3)},
		},
	}

	require.NoError(t, c.Validate())

	c.WorkerPools = append(c.WorkerPools, Pool{Name: "workers", Role: PoolRoleWorker, FixedCount: intp(1)})
	assert.ErrorIs(t, c.Validate(), ErrInvalidCluster)
}

func TestClusterMutable(t *testing.T) {
	c := &Cluster{Status: StatusRunning}
	assert.True(t, c.Mutable())

	c.Status = StatusFailed
	assert.False(t, c.Mutable())
}

func TestVolumeValidate(t *testing.T) {
	v := &Volume{SizeGiB: 10}
	assert.NoError(t, v.Validate())

	v.SizeGiB = 9
	assert.ErrorIs(t, v.Validate(), ErrInvalidVolume)

	v.SizeGiB = 1001
	assert.ErrorIs(t, v.Validate(), ErrInvalidVolume)
}
