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

// Package kube implements the typed Kubernetes gateway (C4): namespace,
// secret, ingress and PVC operations against a target cluster's API,
// authenticated with the kubeconfig produced by C3 and cached on the
// cluster row (spec §4.4). Every Ensure* operation is idempotent:
// create if absent, no-op if present and equal.
package kube

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Gateway wraps a client for a single target cluster.
type Gateway struct {
	client client.Client
	raw    kubernetes.Interface
}

// NewFromKubeconfig builds a Gateway from a kubeconfig blob (never
// persisted to non-authenticated query responses, per spec §4.4).
func NewFromKubeconfig(kubeconfig []byte) (*Gateway, error) {
	restConfig, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("parsing kubeconfig: %w", err)
	}

	c, err := client.New(restConfig, client.Options{})
	if err != nil {
		return nil, fmt.Errorf("creating kube client: %w", err)
	}

	raw, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("creating raw kube client: %w", err)
	}

	return &Gateway{client: c, raw: raw}, nil
}

// NewFromClient builds a Gateway directly from an existing client pair,
// used by tests to inject a fake client.
func NewFromClient(c client.Client, raw kubernetes.Interface) *Gateway {
	return &Gateway{client: c, raw: raw}
}

// EnsureNamespace creates the namespace if absent; a no-op if present.
func (g *Gateway) EnsureNamespace(ctx context.Context, name string, labels map[string]string) error {
	ns := &corev1.Namespace{}

	err := g.client.Get(ctx, client.ObjectKey{Name: name}, ns)
	if err == nil {
		return nil
	}

	if !apierrors.IsNotFound(err) {
		return fmt.Errorf("getting namespace %s: %w", name, err)
	}

	ns = &corev1.Namespace{
		ObjectMeta: objectMeta(name, "", labels),
	}

	if err := g.client.Create(ctx, ns); err != nil && !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("creating namespace %s: %w", name, err)
	}

	return nil
}

// DeleteNamespace deletes a namespace; absent is success.
func (g *Gateway) DeleteNamespace(ctx context.Context, name string) error {
	ns := &corev1.Namespace{ObjectMeta: objectMeta(name, "", nil)}

	if err := g.client.Delete(ctx, ns); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("deleting namespace %s: %w", name, err)
	}

	return nil
}
