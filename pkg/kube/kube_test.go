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

package kube_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/datainfrapilot/datainfrapilot/pkg/kube"
)

func mustNewGateway(t *testing.T, objects ...client.Object) *kube.Gateway {
	t.Helper()

	c := fake.NewClientBuilder().WithScheme(clientgoscheme.Scheme).WithObjects(objects...).Build()

	return kube.NewFromClient(c, nil)
}

func TestEnsureNamespaceCreatesWhenAbsent(t *testing.T) {
	g := mustNewGateway(t)

	err := g.EnsureNamespace(context.Background(), "dip-abc123", map[string]string{"dip/cluster": "abc123"})
	require.NoError(t, err)
}

func TestEnsureNamespaceNoopWhenPresent(t *testing.T) {
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "dip-abc123"}}

	g := mustNewGateway(t, ns)

	err := g.EnsureNamespace(context.Background(), "dip-abc123", nil)
	require.NoError(t, err)
}

func TestEnsureSecretCreatesThenUpdates(t *testing.T) {
	g := mustNewGateway(t)

	ctx := context.Background()

	err := g.EnsureSecret(ctx, "dip-abc123", "creds", corev1.SecretTypeOpaque, map[string][]byte{"password": []byte("one")}, nil)
	require.NoError(t, err)

	secret, err := g.GetSecret(ctx, "dip-abc123", "creds")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), secret.Data["password"])

	err = g.EnsureSecret(ctx, "dip-abc123", "creds", corev1.SecretTypeOpaque, map[string][]byte{"password": []byte("two")}, nil)
	require.NoError(t, err)

	secret, err = g.GetSecret(ctx, "dip-abc123", "creds")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), secret.Data["password"])
}

func TestDeleteSecretAbsentIsSuccess(t *testing.T) {
	g := mustNewGateway(t)

	err := g.DeleteSecret(context.Background(), "dip-abc123", "creds")
	require.NoError(t, err)
}

func TestEnsureIngressBuildsHostRulesAndTLS(t *testing.T) {
	c := fake.NewClientBuilder().WithScheme(clientgoscheme.Scheme).Build()
	g := kube.NewFromClient(c, nil)

	ctx := context.Background()

	spec := kube.IngressSpec{
		Name:      "airflow",
		Namespace: "dip-abc123",
		ClassName: "traefik",
		Rules: []kube.IngressRule{
			{Host: "airflow.example.com", ServiceName: "airflow-webserver", ServicePort: 8080},
		},
		TLSSecret: "airflow-tls",
	}

	require.NoError(t, g.EnsureIngress(ctx, spec))

	ing := &networkingv1.Ingress{}
	require.NoError(t, c.Get(ctx, client.ObjectKey{Namespace: "dip-abc123", Name: "airflow"}, ing))

	require.Len(t, ing.Spec.Rules, 1)
	assert.Equal(t, "airflow.example.com", ing.Spec.Rules[0].Host)
	require.Len(t, ing.Spec.TLS, 1)
	assert.Equal(t, "airflow-tls", ing.Spec.TLS[0].SecretName)
	assert.Equal(t, []string{"airflow.example.com"}, ing.Spec.TLS[0].Hosts)
}

func TestEnsurePVCCreatesWhenAbsent(t *testing.T) {
	g := mustNewGateway(t)

	err := g.EnsurePVC(context.Background(), "dip-abc123", "dags", kube.HetznerStorageClass, 10, nil)
	require.NoError(t, err)
}

func TestEnsurePVCNoopWhenPresent(t *testing.T) {
	sc := kube.HetznerStorageClass
	pvc := &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{Name: "dags", Namespace: "dip-abc123"},
		Spec: corev1.PersistentVolumeClaimSpec{
			StorageClassName: &sc,
		},
	}

	g := mustNewGateway(t, pvc)

	err := g.EnsurePVC(context.Background(), "dip-abc123", "dags", kube.HetznerStorageClass, 10, nil)
	require.NoError(t, err)
}
