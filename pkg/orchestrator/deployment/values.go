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
	"github.com/datainfrapilot/datainfrapilot/pkg/apis/cluster"
	"github.com/datainfrapilot/datainfrapilot/pkg/catalog"
)

// toValues flattens a deployment's tagged-union config into the plain
// map[string]interface{} the catalog validator and Helm values both
// expect.
func toValues(cfg cluster.Config) map[string]interface{} {
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

// withDefaults fills any option missing from values with the catalog's
// declared default, so Helm always receives a complete value set (spec
// §4.7: "omitted optional fields fall back to the descriptor default").
func withDefaults(app *catalog.Application, values map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(values))

	for k, v := range values {
		out[k] = v
	}

	for i := range app.Options {
		opt := &app.Options[i]

		if _, ok := out[opt.ID]; !ok && opt.Default != nil {
			out[opt.ID] = opt.Default
		}
	}

	return out
}
