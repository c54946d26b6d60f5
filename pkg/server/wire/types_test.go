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

package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apicluster "github.com/datainfrapilot/datainfrapilot/pkg/apis/cluster"
)

func intp(i int) *int          { return &i }
func strp(s string) *string    { return &s }
func numberp(f float64) *float64 { return &f }

func TestClusterCreateToAPIAssignsPoolRoles(t *testing.T) {
	req := ClusterCreate{
		Name:         "prod",
		Provider:     "hetzner",
		K3sVersion:   "v1.32.3+k3s1",
		ControlPlane: Pool{Name: "control-plane", NodeType: "cx22", Region: "fsn1", FixedCount: intp(1)},
		WorkerPools: []Pool{
			{Name: "workers", NodeType: "cx32", Region: "fsn1", FixedCount: intp(2)},
		},
	}

	c := req.ToAPI()

	assert.Equal(t, apicluster.PoolRoleControlPlane, c.ControlPlane.Role)
	require.Len(t, c.WorkerPools, 1)
	assert.Equal(t, apicluster.PoolRoleWorker, c.WorkerPools[0].Role)
	assert.Equal(t, "prod", c.Name)
}

func TestClusterFromAPIRoundTripsDeployments(t *testing.T) {
	c := &apicluster.Cluster{
		ID:   "c1",
		Name: "prod",
		Deployments: []apicluster.Deployment{
			{ID: "d1", Name: "grafana", Status: apicluster.StatusRunning},
		},
	}

	out := ClusterFromAPI(c)

	require.Len(t, out.Deployments, 1)
	assert.Equal(t, "d1", out.Deployments[0].ID)
	assert.Equal(t, "running", out.Deployments[0].Status)
}

func TestConfigRoundTripPreservesTaggedUnion(t *testing.T) {
	wireCfg := map[string]ConfigValue{
		"executor":       {Text: strp("KubernetesExecutor")},
		"min_workers":    {Number: numberp(2)},
		"flower_enabled": {Bool: boolp(false)},
	}

	api := configToAPI(wireCfg)
	require.Equal(t, "KubernetesExecutor", *api["executor"].Text)
	require.Equal(t, float64(2), *api["min_workers"].Number)
	require.Equal(t, false, *api["flower_enabled"].Bool)

	back := configFromAPI(api)
	assert.Equal(t, wireCfg["executor"], back["executor"])
	assert.Equal(t, wireCfg["min_workers"], back["min_workers"])
	assert.Equal(t, wireCfg["flower_enabled"], back["flower_enabled"])
}

func boolp(b bool) *bool { return &b }

func TestDeploymentUpdateApplyToAPIOnlyTouchesSetFields(t *testing.T) {
	d := &apicluster.Deployment{
		Name: "grafana",
		Config: apicluster.Config{
			"replicas": apicluster.ConfigValue{Number: numberp(1)},
		},
		Endpoints: []apicluster.AccessEndpoint{
			{Name: "ui", Type: apicluster.AccessTypeDomainPath, Value: "/grafana", Enabled: true},
		},
	}

	// An update with no config or endpoints set leaves the deployment's
	// existing values untouched.
	empty := DeploymentUpdate{}
	empty.ApplyToAPI(d)

	assert.Len(t, d.Config, 1)
	assert.Len(t, d.Endpoints, 1)

	update := DeploymentUpdate{
		Config: map[string]ConfigValue{"replicas": {Number: numberp(3)}},
	}
	update.ApplyToAPI(d)

	assert.Equal(t, float64(3), *d.Config["replicas"].Number)
	// Endpoints weren't part of this update, so they're untouched.
	assert.Len(t, d.Endpoints, 1)
}

func TestVolumeFromAPIReportsInUse(t *testing.T) {
	v := &apicluster.Volume{ID: "v1", Name: "data", SizeGiB: 20, InUse: true, Status: apicluster.StatusRunning}

	out := VolumeFromAPI(v)

	assert.True(t, out.InUse)
	assert.Equal(t, "running", out.Status)
}
