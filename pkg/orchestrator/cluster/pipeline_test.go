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
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	apicluster "github.com/datainfrapilot/datainfrapilot/pkg/apis/cluster"
)

func newTestSigner() (ssh.Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	return ssh.NewSignerFromKey(priv)
}

func TestAuthorizedKeyMarshalsPublicHalf(t *testing.T) {
	key, err := newTestSigner()
	require.NoError(t, err)

	out := authorizedKey(key)

	assert.Contains(t, out, key.PublicKey().Type())
	assert.NotContains(t, out, "\n")
}

func TestRandomTokenIsUniqueAndHex(t *testing.T) {
	a := randomToken()
	b := randomToken()

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 64)
}

func TestServerName(t *testing.T) {
	assert.Equal(t, "c1-workers-3", serverName("c1", "workers", 3))
}

func TestWithRoleMergesLabels(t *testing.T) {
	labels := withRole(map[string]string{"dip/cluster": "c1"}, "worker", "workers")

	assert.Equal(t, "c1", labels["dip/cluster"])
	assert.Equal(t, "worker", labels["dip/role"])
	assert.Equal(t, "workers", labels["dip/pool"])
}

func TestPoolNodeCountFixed(t *testing.T) {
	n := 5
	pool := apicluster.Pool{FixedCount: &n}

	assert.Equal(t, 5, poolNodeCount(&pool))
}

func TestPoolNodeCountAutoscalingUsesMin(t *testing.T) {
	minC, maxC := 2, 8
	pool := apicluster.Pool{MinCount: &minC, MaxCount: &maxC}

	assert.Equal(t, 2, poolNodeCount(&pool))
}

func TestPoolNodeCountAutoscalingZeroMinDefaultsToOne(t *testing.T) {
	minC, maxC := 0, 4
	pool := apicluster.Pool{MinCount: &minC, MaxCount: &maxC}

	assert.Equal(t, 1, poolNodeCount(&pool))
}

func TestRewriteKubeconfigServer(t *testing.T) {
	in := "server: https://127.0.0.1:6443\n"

	out := rewriteKubeconfigServer([]byte(in), "203.0.113.5")

	assert.Equal(t, "server: https://203.0.113.5:6443\n", string(out))
}

func TestDefaultFirewallRulesAllowsSSHAndAPIServer(t *testing.T) {
	rules := defaultFirewallRules()

	require.Len(t, rules, 2)
	assert.Equal(t, "22", rules[0].Port)
	assert.Equal(t, "6443", rules[1].Port)
}
