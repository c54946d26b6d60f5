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

package kube

import (
	"context"
	"fmt"
	"reflect"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

func objectMeta(name, namespace string, labels map[string]string) metav1.ObjectMeta {
	return metav1.ObjectMeta{Name: name, Namespace: namespace, Labels: labels}
}

// GetSecret reads a secret by namespace/name.
func (g *Gateway) GetSecret(ctx context.Context, namespace, name string) (*corev1.Secret, error) {
	secret := &corev1.Secret{}

	if err := g.client.Get(ctx, client.ObjectKey{Namespace: namespace, Name: name}, secret); err != nil {
		return nil, fmt.Errorf("getting secret %s/%s: %w", namespace, name, err)
	}

	return secret, nil
}

// EnsureSecret creates the secret if absent; if present with different
// data it is updated in place (spec §4.4 ensure semantics).
func (g *Gateway) EnsureSecret(ctx context.Context, namespace, name string, secretType corev1.SecretType, data map[string][]byte, labels map[string]string) error {
	existing := &corev1.Secret{}
	err := g.client.Get(ctx, client.ObjectKey{Namespace: namespace, Name: name}, existing)

	if apierrors.IsNotFound(err) {
		secret := &corev1.Secret{
			ObjectMeta: objectMeta(name, namespace, labels),
			Type:       secretType,
			Data:       data,
		}

		if err := g.client.Create(ctx, secret); err != nil && !apierrors.IsAlreadyExists(err) {
			return fmt.Errorf("creating secret %s/%s: %w", namespace, name, err)
		}

		return nil
	}

	if err != nil {
		return fmt.Errorf("getting secret %s/%s: %w", namespace, name, err)
	}

	if reflect.DeepEqual(existing.Data, data) {
		return nil
	}

	existing.Data = data

	if err := g.client.Update(ctx, existing); err != nil {
		return fmt.Errorf("updating secret %s/%s: %w", namespace, name, err)
	}

	return nil
}

// DeleteSecret deletes a secret; absent is success.
func (g *Gateway) DeleteSecret(ctx context.Context, namespace, name string) error {
	secret := &corev1.Secret{ObjectMeta: objectMeta(name, namespace, nil)}

	if err := g.client.Delete(ctx, secret); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("deleting secret %s/%s: %w", namespace, name, err)
	}

	return nil
}
