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

// Package render implements the template renderer (C6): binding
// per-application/per-addon config into text templates for cloud-init,
// Helm values and raw manifests. It rejects unknown variable references
// at render time (spec §4.6) the same way Helm's own chart rendering
// treats "missingkey=error".
package render

import (
	"bytes"
	"fmt"
	"text/template"

	"sigs.k8s.io/yaml"
)

// Renderer renders named text templates against a variable context.
type Renderer struct{}

// New returns a Renderer.
func New() *Renderer {
	return &Renderer{}
}

// Render executes the given template text against vars, returning an
// error if the template references a key not present in vars.
func (r *Renderer) Render(name, text string, vars map[string]interface{}) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parsing template %s: %w", name, err)
	}

	var buf bytes.Buffer

	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("rendering template %s: %w", name, err)
	}

	return buf.String(), nil
}

// RenderYAML marshals values into a YAML document through
// sigs.k8s.io/yaml (used for Helm values files and raw manifests built
// from structured Values). No template is executed; name only labels
// the error message.
func (r *Renderer) RenderYAML(name string, values map[string]interface{}) (string, error) {
	out, err := yaml.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("marshalling %s to yaml: %w", name, err)
	}

	return string(out), nil
}
