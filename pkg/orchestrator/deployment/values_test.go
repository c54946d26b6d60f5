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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datainfrapilot/datainfrapilot/pkg/apis/cluster"
	"github.com/datainfrapilot/datainfrapilot/pkg/catalog"
)

func strPtr(s string) *string   { return &s }
func numPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool      { return &b }

func TestToValuesFlattensTaggedUnion(t *testing.T) {
	cfg := cluster.Config{
		"executor":       cluster.ConfigValue{Text: strPtr("CeleryExecutor")},
		"max_workers":    cluster.ConfigValue{Number: numPtr(4)},
		"flower_enabled": cluster.ConfigValue{Bool: boolPtr(true)},
	}

	values := toValues(cfg)

	assert.Equal(t, "CeleryExecutor", values["executor"])
	assert.Equal(t, 4.0, values["max_workers"])
	assert.Equal(t, true, values["flower_enabled"])
}

func TestWithDefaultsFillsMissingOptions(t *testing.T) {
	app := &catalog.Application{
		Options: []catalog.ConfigOption{
			{ID: "executor", Default: "CeleryExecutor"},
			{ID: "max_workers", Default: 3.0},
		},
	}

	values := withDefaults(app, map[string]interface{}{"executor": "KubernetesExecutor"})

	assert.Equal(t, "KubernetesExecutor", values["executor"])
	assert.Equal(t, 3.0, values["max_workers"])
}
