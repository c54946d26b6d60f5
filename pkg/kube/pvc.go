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

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/datainfrapilot/datainfrapilot/pkg/constants"
)

// EnsurePVC creates a PVC bound to the given storage class if absent; a
// no-op if present (spec §4.4, §4.9 step 4).
func (g *Gateway) EnsurePVC(ctx context.Context, namespace, name, storageClass string, sizeGiB int, labels map[string]string) error {
	existing := &corev1.PersistentVolumeClaim{}
	err := g.client.Get(ctx, client.ObjectKey{Namespace: namespace, Name: name}, existing)

	if err == nil {
		return nil
	}

	if !apierrors.IsNotFound(err) {
		return fmt.Errorf("getting pvc %s/%s: %w", namespace, name, err)
	}

	quantity := resource.MustParse(fmt.Sprintf("%dGi", sizeGiB))

	pvc := &corev1.PersistentVolumeClaim{
		ObjectMeta: objectMeta(name, namespace, labels),
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes:      []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			StorageClassName: &storageClass,
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceStorage: quantity},
			},
		},
	}

	if err := g.client.Create(ctx, pvc); err != nil && !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("creating pvc %s/%s: %w", namespace, name, err)
	}

	return nil
}

// DeletePVC deletes a PVC; absent is success.
func (g *Gateway) DeletePVC(ctx context.Context, namespace, name string) error {
	pvc := &corev1.PersistentVolumeClaim{ObjectMeta: objectMeta(name, namespace, nil)}

	if err := g.client.Delete(ctx, pvc); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("deleting pvc %s/%s: %w", namespace, name, err)
	}

	return nil
}

// HetznerStorageClass is the storage class PVCs are bound to on
// Hetzner-backed clusters (spec §4.4).
const HetznerStorageClass = constants.StorageClassHetzner
