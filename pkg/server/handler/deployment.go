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

package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apicluster "github.com/datainfrapilot/datainfrapilot/pkg/apis/cluster"
	"github.com/datainfrapilot/datainfrapilot/pkg/catalog"
	"github.com/datainfrapilot/datainfrapilot/pkg/kube"
	deploymentorch "github.com/datainfrapilot/datainfrapilot/pkg/orchestrator/deployment"
	srverrors "github.com/datainfrapilot/datainfrapilot/pkg/server/errors"
	"github.com/datainfrapilot/datainfrapilot/pkg/server/wire"
)

// configValues flattens a deployment's tagged-union config into the plain
// map[string]interface{} the catalog's validation helper expects (spec
// §4.7, §9 "keep it as a tagged union... with the schema enforcing
// types").
func configValues(cfg apicluster.Config) map[string]interface{} {
	out := make(map[string]interface{}, len(cfg))

	for k, v := range cfg {
		switch {
		case v.Text != nil:
			out[k] = *v.Text
		case v.Number != nil:
			out[k] = *v.Number
		case v.Bool != nil:
			out[k] = *v.Bool
		}
	}

	return out
}

func fieldErrorsString(errs []catalog.FieldError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.String())
	}

	return strings.Join(parts, "; ")
}

// validateDeployment runs the admission checks of spec §4.9 steps 1-2:
// config schema validation against the application descriptor, then
// endpoint uniqueness/domain requirements against the rest of the
// cluster. excludeDeploymentID is the deployment being updated, if any,
// so its own existing endpoints don't collide with themselves.
func (h *Handler) validateDeployment(c *apicluster.Cluster, d *apicluster.Deployment, excludeDeploymentID string) error {
	app, err := h.catalog.Get(d.ApplicationID)
	if err != nil {
		return srverrors.ValidationError("unknown application").WithError(err)
	}

	if !apicluster.ValidName(d.Name) {
		return srverrors.ValidationError(fmt.Sprintf("invalid deployment name %q", d.Name))
	}

	if fieldErrs := catalog.Validate(app, configValues(d.Config)); len(fieldErrs) > 0 {
		return srverrors.ValidationError(fieldErrorsString(fieldErrs))
	}

	existing := apicluster.ExistingEndpointKeys(c, excludeDeploymentID)

	if err := apicluster.ValidateEndpoints(c, d.Endpoints, existing); err != nil {
		return srverrors.Conflict(err.Error()).WithError(err)
	}

	return nil
}

// CreateDeployment handles POST /clusters/{id}/deployments.
func (h *Handler) CreateDeployment(w http.ResponseWriter, r *http.Request) {
	clusterID := chi.URLParam(r, "id")

	c, err := h.store.GetCluster(r.Context(), clusterID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req wire.DeploymentCreate
	if err := decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	d := req.ToAPI(clusterID)

	if err := h.validateDeployment(c, d, ""); err != nil {
		handleError(w, r, err)
		return
	}

	if err := h.store.CreateDeployment(r.Context(), d); err != nil {
		handleError(w, r, err)
		return
	}

	if err := h.deployments.Install(r.Context(), d.ID); err != nil {
		handleError(w, r, err)
		return
	}

	h.setUncacheable(w)
	writeJSON(w, r, http.StatusCreated, wire.Accepted{ID: d.ID, Status: string(d.Status)})
}

// UpdateDeployment handles POST /clusters/{id}/deployments/{did}.
func (h *Handler) UpdateDeployment(w http.ResponseWriter, r *http.Request) {
	clusterID := chi.URLParam(r, "id")
	deploymentID := chi.URLParam(r, "did")

	c, err := h.store.GetCluster(r.Context(), clusterID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	d, err := h.store.GetDeployment(r.Context(), deploymentID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	if d.ClusterID != clusterID {
		srverrors.NotFound("deployment not found on this cluster").Write(w, r)
		return
	}

	var req wire.DeploymentUpdate
	if err := decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	req.ApplyToAPI(d)

	if err := h.validateDeployment(c, d, d.ID); err != nil {
		handleError(w, r, err)
		return
	}

	if err := h.store.UpdateDeploymentConfig(r.Context(), d); err != nil {
		handleError(w, r, err)
		return
	}

	if err := h.deployments.Update(r.Context(), d.ID); err != nil {
		handleError(w, r, err)
		return
	}

	h.setUncacheable(w)
	writeJSON(w, r, http.StatusOK, wire.Accepted{ID: d.ID, Status: string(d.Status)})
}

// DeleteDeployment handles DELETE /clusters/{id}/deployments/{did}.
func (h *Handler) DeleteDeployment(w http.ResponseWriter, r *http.Request) {
	deploymentID := chi.URLParam(r, "did")

	if err := h.deployments.Delete(r.Context(), deploymentID); err != nil {
		handleError(w, r, err)
		return
	}

	h.setUncacheable(w)
	w.WriteHeader(http.StatusAccepted)
}

// CheckEndpointExistence handles POST
// /clusters/{id}/deployments/check-endpoint-existence. The source's
// client-side poll of this same check is advisory only (spec §9 open
// questions); the authoritative check runs again at admission.
func (h *Handler) CheckEndpointExistence(w http.ResponseWriter, r *http.Request) {
	clusterID := chi.URLParam(r, "id")

	c, err := h.store.GetCluster(r.Context(), clusterID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req wire.EndpointExistenceCheck
	if err := decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	ep := apicluster.AccessEndpoint{Type: apicluster.AccessType(req.Type), Value: req.Value}
	existing := apicluster.ExistingEndpointKeys(c, "")

	h.setUncacheable(w)
	writeJSON(w, r, http.StatusOK, existing[ep.Key()])
}

// Credentials handles GET /clusters/{id}/deployments/{did}/credentials.
func (h *Handler) Credentials(w http.ResponseWriter, r *http.Request) {
	clusterID := chi.URLParam(r, "id")
	deploymentID := chi.URLParam(r, "did")

	d, err := h.store.GetDeployment(r.Context(), deploymentID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	if d.ClusterID != clusterID {
		srverrors.NotFound("deployment not found on this cluster").Write(w, r)
		return
	}

	if d.Status != apicluster.StatusRunning {
		srverrors.Conflict("deployment is not running").Write(w, r)
		return
	}

	secretName, usernameKey, passwordKey, ok := deploymentorch.CredentialSecret(d.ApplicationID)
	if !ok {
		srverrors.NotFound("application has no first-login credentials").Write(w, r)
		return
	}

	kubeconfig, ok := h.clusters.KubeconfigFor(clusterID)
	if !ok {
		srverrors.Conflict("cluster kubeconfig is not cached").Write(w, r)
		return
	}

	gw, err := kube.NewFromKubeconfig(kubeconfig)
	if err != nil {
		srverrors.KubeError("connecting to target cluster").WithError(err).Write(w, r)
		return
	}

	secret, err := gw.GetSecret(r.Context(), d.Namespace(), secretName)
	if err != nil {
		srverrors.KubeError("reading credentials secret").WithError(err).Write(w, r)
		return
	}

	h.setUncacheable(w)
	writeJSON(w, r, http.StatusOK, wire.Credentials{
		Username: string(secret.Data[usernameKey]),
		Password: string(secret.Data[passwordKey]),
	})
}
