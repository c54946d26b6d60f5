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

package catalog

import (
	"errors"
	"fmt"
)

// ErrUnknownApplication is returned by Get for an unrecognized ID.
var ErrUnknownApplication = errors.New("unknown application")

// Catalog is the loaded set of application descriptors, indexed by ID.
type Catalog struct {
	apps map[string]*Application
	// order preserves a stable listing order, matching the order
	// descriptors were registered in.
	order []string
}

// New builds a Catalog from the static descriptor set (spec §4.7). There
// is only one construction path: applications are baked in at compile
// time, not loaded from a config file, matching the source's "static
// descriptor set" wording.
func New() *Catalog {
	c := &Catalog{apps: make(map[string]*Application)}

	for _, app := range builtinApplications() {
		c.register(app)
	}

	return c
}

func (c *Catalog) register(app *Application) {
	c.apps[app.ID] = app
	c.order = append(c.order, app.ID)
}

// List returns every application descriptor in registration order.
func (c *Catalog) List() []*Application {
	apps := make([]*Application, 0, len(c.order))

	for _, id := range c.order {
		apps = append(apps, c.apps[id])
	}

	return apps
}

// Get returns the descriptor for id, or ErrUnknownApplication.
func (c *Catalog) Get(id string) (*Application, error) {
	app, ok := c.apps[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownApplication, id)
	}

	return app, nil
}

// builtinApplications is the static catalog (spec §1): Airflow, Spark,
// Grafana, Prefect.
func builtinApplications() []*Application {
	return []*Application{
		{
			ID:          "airflow",
			DisplayName: "Apache Airflow",
			Chart:       "apache-airflow/airflow",
			ArtifactPath: "artifacts/airflow",
			DefaultVersion: "2.9.3",
			Options: []ConfigOption{
				{ID: "version", Type: OptionTypeText, Required: false, FetchedVersions: true},
				{ID: "executor", Type: OptionTypeSelect, Required: true, Default: "CeleryExecutor", SelectOptions: []string{"CeleryExecutor", "KubernetesExecutor"}},
				{ID: "flower_enabled", Type: OptionTypeBoolean, Required: false, Default: false, Conditional: &Condition{Field: "executor", Value: "CeleryExecutor"}},
				{ID: "dags_repository_url", Type: OptionTypeText, Required: true},
				{ID: "dags_repository_private", Type: OptionTypeBoolean, Required: false, Default: false},
				{ID: "dags_ssh_key", Type: OptionTypeText, Required: false, Conditional: &Condition{Field: "dags_repository_private", Value: true}},
				{ID: "custom_image_enabled", Type: OptionTypeBoolean, Required: false, Default: false},
				{ID: "custom_image_registry", Type: OptionTypeText, Required: false, Conditional: &Condition{Field: "custom_image_enabled", Value: true}},
				{ID: "custom_image_tag", Type: OptionTypeText, Required: false, Conditional: &Condition{Field: "custom_image_enabled", Value: true}},
			},
			Volumes: []VolumeRequirement{
				{Name: "dags", DefaultSize: 10, Description: "Synced DAG repository checkout"},
				{Name: "logs", DefaultSize: 20, Description: "Task execution logs"},
			},
			Endpoints: []EndpointSchema{
				{Name: "webserver", Description: "Airflow web UI", DefaultType: "subdomain", Required: true},
				{Name: "flower", Description: "Celery Flower UI", DefaultType: "subdomain", Required: false},
			},
		},
		{
			ID:           "spark",
			DisplayName:  "Apache Spark",
			Chart:        "spark-operator/spark-operator",
			ArtifactPath: "artifacts/spark",
			DefaultVersion: "3.5.1",
			Options: []ConfigOption{
				{ID: "version", Type: OptionTypeText, Required: false, FetchedVersions: true},
				{ID: "min_workers", Type: OptionTypeNumber, Required: true, Default: float64(1)},
				{ID: "max_workers", Type: OptionTypeNumber, Required: true, Default: float64(4)},
			},
			Volumes: []VolumeRequirement{
				{Name: "work", DefaultSize: 50, Description: "Shuffle and local work directory"},
			},
			Endpoints: []EndpointSchema{
				{Name: "master-ui", Description: "Spark master web UI", DefaultType: "subdomain", Required: true},
			},
		},
		{
			ID:           "grafana",
			DisplayName:  "Grafana",
			Chart:        "grafana/grafana",
			ArtifactPath: "artifacts/grafana",
			DefaultVersion: "11.1.0",
			Options: []ConfigOption{
				{ID: "version", Type: OptionTypeText, Required: false, FetchedVersions: true},
				{ID: "replicas", Type: OptionTypeNumber, Required: false, Default: float64(1)},
				{ID: "admin_password", Type: OptionTypeText, Required: true},
			},
			Volumes: []VolumeRequirement{
				{Name: "storage", DefaultSize: 10, Description: "Dashboard and plugin storage"},
			},
			Endpoints: []EndpointSchema{
				{Name: "ui", Description: "Grafana web UI", DefaultType: "subdomain", Required: true},
			},
		},
		{
			ID:           "prefect",
			DisplayName:  "Prefect",
			Chart:        "prefect/prefect-server",
			ArtifactPath: "artifacts/prefect",
			DefaultVersion: "2.19.0",
			Options: []ConfigOption{
				{ID: "version", Type: OptionTypeText, Required: false, FetchedVersions: true},
				{ID: "agent_replicas", Type: OptionTypeNumber, Required: false, Default: float64(1)},
			},
			Volumes: []VolumeRequirement{
				{Name: "data", DefaultSize: 10, Description: "Prefect server database storage"},
			},
			Endpoints: []EndpointSchema{
				{Name: "ui", Description: "Prefect web UI", DefaultType: "subdomain", Required: true},
			},
		},
	}
}
