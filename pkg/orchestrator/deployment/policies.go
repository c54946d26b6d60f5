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
	"crypto/rand"
	"encoding/hex"

	"github.com/datainfrapilot/datainfrapilot/pkg/catalog"
	"github.com/datainfrapilot/datainfrapilot/pkg/kube"
)

// generatedPassword returns a random hex string suitable for a first-login
// admin password, the same shape as the cluster pipeline's join-token
// generation.
func generatedPassword() (string, error) {
	buf := make([]byte, 16)

	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}

// applySpecialSecrets creates the per-application secrets the catalog's
// static descriptors can't express as plain Helm values: Airflow's DAG
// repository deploy key, its generated webserver admin credentials, and
// Grafana's admin password, each only written when the corresponding
// field is present (or, for a generated credential, not already present)
// in values (spec §4.9 app-specific policies). The DAG deploy key is
// additionally gated on dags_repository_private, since a stray
// dags_ssh_key submitted alongside a public repository has nothing to
// authenticate and shouldn't be materialized as a cluster secret.
func applySpecialSecrets(ctx context.Context, gw *kube.Gateway, namespace, appID string, values map[string]interface{}) error {
	switch appID {
	case "airflow":
		private, _ := values["dags_repository_private"].(bool)

		if key, ok := values["dags_ssh_key"].(string); ok && key != "" && private {
			if err := gw.EnsureSecret(ctx, namespace, "airflow-dags-ssh-key", "Opaque", map[string][]byte{
				"gitSshKey": []byte(key),
			}, nil); err != nil {
				return err
			}
		}

		if _, err := gw.GetSecret(ctx, namespace, "airflow-webserver-credentials"); err != nil {
			password, err := generatedPassword()
			if err != nil {
				return err
			}

			if err := gw.EnsureSecret(ctx, namespace, "airflow-webserver-credentials", "Opaque", map[string][]byte{
				"username": []byte("admin"),
				"password": []byte(password),
			}, nil); err != nil {
				return err
			}
		}
	case "grafana":
		if pw, ok := values["admin_password"].(string); ok && pw != "" {
			if err := gw.EnsureSecret(ctx, namespace, "grafana-admin-credentials", "Opaque", map[string][]byte{
				"admin-user":     []byte("admin"),
				"admin-password": []byte(pw),
			}, nil); err != nil {
				return err
			}
		}
	}

	return nil
}

// CredentialSecret names the Kubernetes secret and field keys holding an
// application's first-login credentials, for the read-only credentials
// query (spec §4.9 "Credentials endpoint"). Only applications that ship
// a fixed admin account have an entry; deployments with no entry have no
// first-login credentials to report.
func CredentialSecret(appID string) (secretName, usernameKey, passwordKey string, ok bool) {
	switch appID {
	case "airflow":
		return "airflow-webserver-credentials", "username", "password", true
	case "grafana":
		return "grafana-admin-credentials", "admin-user", "admin-password", true
	default:
		return "", "", "", false
	}
}

// endpointVisible reports whether an endpoint named endpointName should
// be wired up, deferring to the catalog's conditional-visibility rules
// for the config field the application names after it. Airflow's Flower
// endpoint is hidden when the "flower_enabled" option is itself hidden
// or false, since Flower only monitors Celery workers (spec §4.7
// conditional visibility, applied through to the endpoint layer).
func endpointVisible(app *catalog.Application, endpointName string, values map[string]interface{}) bool {
	opt := app.Option(endpointName + "_enabled")
	if opt == nil {
		return true
	}

	if !catalog.Visible(opt, values) {
		return false
	}

	enabled, _ := values[opt.ID].(bool)

	return enabled
}
