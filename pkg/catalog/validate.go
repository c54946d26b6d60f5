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
	"fmt"
	"strings"
)

// FieldError names one invalid or missing config field.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Visible reports whether opt should be shown/required given the rest of
// the user's config mapping (spec §4.7: "a hidden field is treated as
// absent").
func Visible(opt *ConfigOption, config map[string]interface{}) bool {
	if opt.Conditional == nil {
		return true
	}

	v, ok := config[opt.Conditional.Field]
	if !ok {
		return false
	}

	return v == opt.Conditional.Value
}

// Validate applies required rules, conditional visibility, and
// per-application special rules (spec §4.7) to a user-supplied config
// mapping. A nil slice return means the config is fully valid.
func Validate(app *Application, config map[string]interface{}) []FieldError {
	var errs []FieldError

	for i := range app.Options {
		opt := &app.Options[i]

		if !Visible(opt, config) {
			continue
		}

		v, present := config[opt.ID]

		if opt.Required && (!present || v == nil || v == "") {
			errs = append(errs, FieldError{Field: opt.ID, Reason: "required"})
			continue
		}

		if !present {
			continue
		}

		if err := validateType(opt, v); err != nil {
			errs = append(errs, FieldError{Field: opt.ID, Reason: err.Error()})
		}
	}

	errs = append(errs, specialRules(app, config)...)

	return errs
}

func validateType(opt *ConfigOption, v interface{}) error {
	switch opt.Type {
	case OptionTypeNumber:
		if _, ok := v.(float64); !ok {
			return fmt.Errorf("must be a number")
		}
	case OptionTypeBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("must be a boolean")
		}
	case OptionTypeSelect:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("must be a string")
		}

		for _, choice := range opt.SelectOptions {
			if choice == s {
				return nil
			}
		}

		return fmt.Errorf("must be one of %v", opt.SelectOptions)
	case OptionTypeText:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("must be a string")
		}
	}

	return nil
}

// specialRules implements the per-application rules spec §4.7 calls out
// by name: Airflow's DAG repository URL scheme and custom-image gating.
func specialRules(app *Application, config map[string]interface{}) []FieldError {
	if app.ID != "airflow" {
		return nil
	}

	var errs []FieldError

	if url, ok := config["dags_repository_url"].(string); ok {
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "git@") {
			errs = append(errs, FieldError{Field: "dags_repository_url", Reason: "must begin with http(s):// or git@"})
		}
	}

	if customImage, _ := config["custom_image_enabled"].(bool); customImage {
		if _, ok := config["custom_image_registry"].(string); !ok {
			errs = append(errs, FieldError{Field: "custom_image_registry", Reason: "required when custom_image_enabled is set"})
		}

		if _, ok := config["custom_image_tag"].(string); !ok {
			errs = append(errs, FieldError{Field: "custom_image_tag", Reason: "required when custom_image_enabled is set"})
		}
	}

	return errs
}
