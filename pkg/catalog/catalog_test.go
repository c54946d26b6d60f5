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

package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datainfrapilot/datainfrapilot/pkg/catalog"
)

func TestNewListsAllFourApplications(t *testing.T) {
	c := catalog.New()

	apps := c.List()

	ids := make([]string, len(apps))
	for i, a := range apps {
		ids[i] = a.ID
	}

	assert.ElementsMatch(t, []string{"airflow", "spark", "grafana", "prefect"}, ids)
}

func TestGetUnknownApplication(t *testing.T) {
	c := catalog.New()

	_, err := c.Get("nonexistent")
	assert.ErrorIs(t, err, catalog.ErrUnknownApplication)
}

func TestValidateAirflowRequiresDAGRepo(t *testing.T) {
	c := catalog.New()

	app, err := c.Get("airflow")
	require.NoError(t, err)

	errs := catalog.Validate(app, map[string]interface{}{"executor": "CeleryExecutor"})
	found := false

	for _, e := range errs {
		if e.Field == "dags_repository_url" {
			found = true
		}
	}

	assert.True(t, found, "expected a required-field error for dags_repository_url")
}

func TestValidateAirflowRejectsBadRepoScheme(t *testing.T) {
	c := catalog.New()

	app, err := c.Get("airflow")
	require.NoError(t, err)

	errs := catalog.Validate(app, map[string]interface{}{
		"executor":            "CeleryExecutor",
		"dags_repository_url": "ftp://example.com/dags",
	})

	found := false

	for _, e := range errs {
		if e.Field == "dags_repository_url" {
			found = true
		}
	}

	assert.True(t, found)
}

func TestValidateAirflowAcceptsGitSSHRepo(t *testing.T) {
	c := catalog.New()

	app, err := c.Get("airflow")
	require.NoError(t, err)

	errs := catalog.Validate(app, map[string]interface{}{
		"executor":            "CeleryExecutor",
		"dags_repository_url": "git@example.com:org/dags.git",
	})

	for _, e := range errs {
		assert.NotEqual(t, "dags_repository_url", e.Field)
	}
}

func TestValidateCustomImageGatesRegistryFields(t *testing.T) {
	c := catalog.New()

	app, err := c.Get("airflow")
	require.NoError(t, err)

	errs := catalog.Validate(app, map[string]interface{}{
		"executor":             "CeleryExecutor",
		"dags_repository_url":  "https://example.com/dags",
		"custom_image_enabled": true,
	})

	fields := map[string]bool{}
	for _, e := range errs {
		fields[e.Field] = true
	}

	assert.True(t, fields["custom_image_registry"])
	assert.True(t, fields["custom_image_tag"])
}

func TestVisibleHidesFlowerForKubernetesExecutor(t *testing.T) {
	c := catalog.New()

	app, err := c.Get("airflow")
	require.NoError(t, err)

	opt := app.Option("flower_enabled")
	require.NotNil(t, opt)

	visible := catalog.Visible(opt, map[string]interface{}{"executor": "KubernetesExecutor"})
	assert.False(t, visible)

	visible = catalog.Visible(opt, map[string]interface{}{"executor": "CeleryExecutor"})
	assert.True(t, visible)
}
