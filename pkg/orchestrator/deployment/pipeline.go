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

package deployment

import (
	"context"
	"fmt"
	"strings"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/datainfrapilot/datainfrapilot/pkg/apis/cluster"
	"github.com/datainfrapilot/datainfrapilot/pkg/catalog"
	"github.com/datainfrapilot/datainfrapilot/pkg/constants"
	"github.com/datainfrapilot/datainfrapilot/pkg/kube"
)

// endpointServicePort is the fixed backend port every application chart
// exposes its web UI on; charts are constrained to this convention by
// the artifact bundle, not discovered at runtime.
const endpointServicePort = 80

func step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	logger := log.FromContext(ctx)
	logger.Info("deployment pipeline step", "step", name)

	if err := fn(ctx); err != nil {
		logger.Error(err, "deployment pipeline step failed", "step", name)
		return fmt.Errorf("%s: %w", name, err)
	}

	return nil
}

func (o *Orchestrator) runInstall(deploymentID string) {
	ctx := context.Background()

	if err := o.install(ctx, deploymentID); err != nil {
		_ = o.store.UpdateDeploymentStatus(context.Background(), deploymentID, cluster.StatusFailed, err.Error())
	}
}

// install runs the admission + install pipeline of spec §4.9.
//
//nolint:cyclop
func (o *Orchestrator) install(ctx context.Context, deploymentID string) error {
	d, cl, app, values, err := o.admit(ctx, deploymentID)
	if err != nil {
		return err
	}

	kubeconfig, ok := o.kubeconfigs.KubeconfigFor(cl.ID)
	if !ok {
		return ErrClusterNotReady
	}

	gw, err := o.kubeGW(kubeconfig)
	if err != nil {
		return fmt.Errorf("building kube gateway: %w", err)
	}

	namespace := d.Namespace()

	if err := step(ctx, "ensure-namespace", func(ctx context.Context) error {
		return gw.EnsureNamespace(ctx, namespace, map[string]string{constants.DeploymentLabel: d.ID})
	}); err != nil {
		return err
	}

	if err := step(ctx, "ensure-volumes", func(ctx context.Context) error {
		return o.ensureVolumes(ctx, gw, namespace, d, app)
	}); err != nil {
		return err
	}

	if err := step(ctx, "apply-special-secrets", func(ctx context.Context) error {
		return applySpecialSecrets(ctx, gw, namespace, app.ID, values)
	}); err != nil {
		return err
	}

	if err := step(ctx, "install-or-upgrade-release", func(ctx context.Context) error {
		driver, err := o.helmDriver(kubeconfig, namespace)
		if err != nil {
			return err
		}

		_, err = driver.InstallOrUpgrade(ctx, releaseName(d), app.ArtifactPath, values)

		return err
	}); err != nil {
		return err
	}

	if err := step(ctx, "ensure-endpoints", func(ctx context.Context) error {
		return o.ensureEndpoints(ctx, gw, cl, d, app, values)
	}); err != nil {
		return err
	}

	return o.store.UpdateDeploymentStatus(ctx, d.ID, cluster.StatusRunning, "")
}

func (o *Orchestrator) runUpdate(deploymentID string) {
	ctx := context.Background()

	// A re-run of install is also the update path: Helm's InstallOrUpgrade
	// already dispatches to an upgrade for an existing release, and every
	// other step (namespace, volumes, secrets, endpoints) is idempotent.
	if err := o.install(ctx, deploymentID); err != nil {
		_ = o.store.UpdateDeploymentStatus(context.Background(), deploymentID, cluster.StatusFailed, err.Error())
	}
}

func (o *Orchestrator) runDelete(deploymentID string) {
	ctx := context.Background()
	logger := log.FromContext(ctx)

	d, err := o.store.GetDeployment(ctx, deploymentID)
	if err != nil {
		logger.Error(err, "failed to load deployment for deletion", "deployment", deploymentID)
		return
	}

	cl, err := o.store.GetCluster(ctx, d.ClusterID)
	if err != nil {
		logger.Error(err, "failed to load cluster for deployment deletion", "deployment", deploymentID)
		return
	}

	if err := o.delete(ctx, cl, d); err != nil {
		_ = o.store.UpdateDeploymentStatus(context.Background(), d.ID, cluster.StatusFailed, err.Error())
		return
	}

	if err := o.store.DeleteDeployment(ctx, d.ID); err != nil {
		logger.Error(err, "failed to remove deployment row", "deployment", d.ID)
	}
}

func (o *Orchestrator) delete(ctx context.Context, cl *cluster.Cluster, d *cluster.Deployment) error {
	kubeconfig, ok := o.kubeconfigs.KubeconfigFor(cl.ID)
	if !ok {
		// The cluster is already gone (or never came up); the deployment
		// row is stale and should simply be removed.
		return nil
	}

	namespace := d.Namespace()

	if err := step(ctx, "uninstall-release", func(ctx context.Context) error {
		driver, err := o.helmDriver(kubeconfig, namespace)
		if err != nil {
			return err
		}

		return driver.Uninstall(releaseName(d))
	}); err != nil {
		return err
	}

	gw, err := o.kubeGW(kubeconfig)
	if err != nil {
		return fmt.Errorf("building kube gateway: %w", err)
	}

	return step(ctx, "delete-namespace", func(ctx context.Context) error {
		for _, ep := range d.Endpoints {
			if err := gw.DeleteIngress(ctx, namespace, ingressName(d, ep.Name)); err != nil {
				return err
			}
		}

		return gw.DeleteNamespace(ctx, namespace)
	})
}

// admit resolves the application descriptor and validates the
// deployment's config and endpoints against the rest of the cluster
// (spec §4.9 admission steps 1-2). Config validation errors are reported
// as a single wrapped error; the caller has no use for the individual
// catalog.FieldError values once the deployment has already been
// persisted (validation at create/update-request time is the handler's
// job, not the worker's).
func (o *Orchestrator) admit(ctx context.Context, deploymentID string) (*cluster.Deployment, *cluster.Cluster, *catalog.Application, map[string]interface{}, error) {
	d, err := o.store.GetDeployment(ctx, deploymentID)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("loading deployment: %w", err)
	}

	cl, err := o.store.GetCluster(ctx, d.ClusterID)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("loading cluster: %w", err)
	}

	app, err := o.catalog.Get(d.ApplicationID)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	values := withDefaults(app, toValues(d.Config))

	if errs := catalog.Validate(app, values); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.String()
		}

		return nil, nil, nil, nil, fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}

	existing := cluster.ExistingEndpointKeys(cl, d.ID)
	if err := cluster.ValidateEndpoints(cl, d.Endpoints, existing); err != nil {
		return nil, nil, nil, nil, err
	}

	return d, cl, app, values, nil
}

// ensureVolumes creates a PVC for each of the application's declared
// volume requirements, sized at the requirement's default and using
// kube.HetznerStorageClass. It does not read d.Volumes: a
// requirement bound to an existing volume gets the same new PVC, and the
// existing volume is not attached. Marking a bound volume in use is done
// by the store when the deployment row is created.
func (o *Orchestrator) ensureVolumes(ctx context.Context, gw *kube.Gateway, namespace string, d *cluster.Deployment, app *catalog.Application) error {
	for i := range app.Volumes {
		req := &app.Volumes[i]

		if err := gw.EnsurePVC(ctx, namespace, req.Name, kube.HetznerStorageClass, req.DefaultSize, map[string]string{
			constants.DeploymentLabel: d.ID,
		}); err != nil {
			return err
		}
	}

	return nil
}

// ensureEndpoints wires an ingress rule for every enabled endpoint whose
// application-level visibility check passes (spec §4.9 step: endpoint
// routing).
func (o *Orchestrator) ensureEndpoints(ctx context.Context, gw *kube.Gateway, cl *cluster.Cluster, d *cluster.Deployment, app *catalog.Application, values map[string]interface{}) error {
	for _, ep := range d.Endpoints {
		if !ep.Enabled || !endpointVisible(app, ep.Name, values) {
			continue
		}

		host, path := endpointHostPath(cl, ep)

		if err := gw.EnsureIngress(ctx, kube.IngressSpec{
			Name:      ingressName(d, ep.Name),
			Namespace: d.Namespace(),
			ClassName: "traefik",
			Rules: []kube.IngressRule{{
				Host:        host,
				Path:        path,
				ServiceName: fmt.Sprintf("%s-%s", app.ID, ep.Name),
				ServicePort: endpointServicePort,
			}},
			Labels: map[string]string{constants.DeploymentLabel: d.ID},
		}); err != nil {
			return err
		}
	}

	return nil
}

func endpointHostPath(cl *cluster.Cluster, ep cluster.AccessEndpoint) (host, path string) {
	value := cluster.NormalizeEndpoint(ep.Type, ep.Value)

	switch ep.Type {
	case cluster.AccessTypeSubdomain:
		return value + "." + cl.Domain, "/"
	case cluster.AccessTypeDomainPath:
		return cl.Domain, value
	default: // AccessTypeClusterIPPath: routed by path on any host.
		return "", value
	}
}

func releaseName(d *cluster.Deployment) string {
	return d.ApplicationID
}

func ingressName(d *cluster.Deployment, endpointName string) string {
	return d.ApplicationID + "-" + endpointName
}
