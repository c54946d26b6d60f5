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

package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderControlPlaneCloudInit(t *testing.T) {
	r := New()

	out, err := r.Render("control-plane", ControlPlaneCloudInit, map[string]interface{}{
		"Token":      "s3cr3t",
		"PoolName":   "control-plane",
		"K3sVersion": "v1.32.3+k3s1",
	})

	require.NoError(t, err)
	assert.Contains(t, out, "token: s3cr3t")
	assert.Contains(t, out, "INSTALL_K3S_VERSION=v1.32.3+k3s1")
	assert.Contains(t, out, "disable-cloud-controller: true")
}

func TestRenderRejectsUnknownVariable(t *testing.T) {
	r := New()

	_, err := r.Render("broken", "{{.Missing}}", map[string]interface{}{"Present": "x"})
	assert.Error(t, err)
}

func TestRenderYAML(t *testing.T) {
	r := New()

	out, err := r.RenderYAML("values", map[string]interface{}{"replicas": 2})
	require.NoError(t, err)
	assert.Contains(t, out, "replicas: 2")
}
