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

	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// IngressRule describes one host/path rule routed to a backend service.
type IngressRule struct {
	Host        string
	Path        string
	ServiceName string
	ServicePort int32
}

// IngressSpec is the input to EnsureIngress: a set of rules, an optional
// TLS secret, and middleware annotations (spec §4.4).
type IngressSpec struct {
	Name        string
	Namespace   string
	ClassName   string
	Rules       []IngressRule
	TLSSecret   string
	Annotations map[string]string
	Labels      map[string]string
}

// EnsureIngress creates the ingress if absent; updates it in place if the
// spec differs (spec §4.4 ensure semantics).
func (g *Gateway) EnsureIngress(ctx context.Context, spec IngressSpec) error {
	desired := buildIngress(spec)

	existing := &networkingv1.Ingress{}
	err := g.client.Get(ctx, client.ObjectKey{Namespace: spec.Namespace, Name: spec.Name}, existing)

	if apierrors.IsNotFound(err) {
		if err := g.client.Create(ctx, desired); err != nil && !apierrors.IsAlreadyExists(err) {
			return fmt.Errorf("creating ingress %s/%s: %w", spec.Namespace, spec.Name, err)
		}

		return nil
	}

	if err != nil {
		return fmt.Errorf("getting ingress %s/%s: %w", spec.Namespace, spec.Name, err)
	}

	existing.Spec = desired.Spec
	existing.Annotations = desired.Annotations

	if err := g.client.Update(ctx, existing); err != nil {
		return fmt.Errorf("updating ingress %s/%s: %w", spec.Namespace, spec.Name, err)
	}

	return nil
}

// DeleteIngress deletes an ingress; absent is success.
func (g *Gateway) DeleteIngress(ctx context.Context, namespace, name string) error {
	ing := &networkingv1.Ingress{ObjectMeta: objectMeta(name, namespace, nil)}

	if err := g.client.Delete(ctx, ing); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("deleting ingress %s/%s: %w", namespace, name, err)
	}

	return nil
}

func buildIngress(spec IngressSpec) *networkingv1.Ingress {
	pathType := networkingv1.PathTypePrefix

	ing := &networkingv1.Ingress{
		ObjectMeta: objectMeta(spec.Name, spec.Namespace, spec.Labels),
		Spec: networkingv1.IngressSpec{
			IngressClassName: &spec.ClassName,
		},
	}

	ing.Annotations = spec.Annotations

	rulesByHost := map[string][]networkingv1.HTTPIngressPath{}
	hostOrder := []string{}

	for _, r := range spec.Rules {
		if _, ok := rulesByHost[r.Host]; !ok {
			hostOrder = append(hostOrder, r.Host)
		}

		path := r.Path
		if path == "" {
			path = "/"
		}

		rulesByHost[r.Host] = append(rulesByHost[r.Host], networkingv1.HTTPIngressPath{
			Path:     path,
			PathType: &pathType,
			Backend: networkingv1.IngressBackend{
				Service: &networkingv1.IngressServiceBackend{
					Name: r.ServiceName,
					Port: networkingv1.ServiceBackendPort{Number: r.ServicePort},
				},
			},
		})
	}

	for _, host := range hostOrder {
		ing.Spec.Rules = append(ing.Spec.Rules, networkingv1.IngressRule{
			Host: host,
			IngressRuleValue: networkingv1.IngressRuleValue{
				HTTP: &networkingv1.HTTPIngressRuleValue{Paths: rulesByHost[host]},
			},
		})
	}

	if spec.TLSSecret != "" {
		ing.Spec.TLS = []networkingv1.IngressTLS{{
			Hosts:      hostOrder,
			SecretName: spec.TLSSecret,
		}}
	}

	return ing
}
