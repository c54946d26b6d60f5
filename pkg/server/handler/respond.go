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
	"encoding/json"
	"errors"
	"net/http"

	"github.com/datainfrapilot/datainfrapilot/pkg/orchestrator"
	srverrors "github.com/datainfrapilot/datainfrapilot/pkg/server/errors"
	"github.com/datainfrapilot/datainfrapilot/pkg/server/util"
	"github.com/datainfrapilot/datainfrapilot/pkg/store"
)

// decode unmarshals a JSON request body, wrapping a parse failure as a
// validation_error.
func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return srverrors.ValidationError("malformed request body").WithError(err)
	}

	return nil
}

// writeJSON writes a JSON response body with the given status code.
func writeJSON(w http.ResponseWriter, r *http.Request, code int, v interface{}) {
	util.WriteJSONResponse(w, r, code, v)
}

// handleError maps a store/orchestrator error to the wire-level taxonomy
// of spec §7 and writes the response. A *srverrors.Error raised directly
// by a handler (e.g. endpoint validation) is written as-is.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *srverrors.Error
	if errors.As(err, &svcErr) {
		svcErr.Write(w, r)
		return
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		srverrors.NotFound("entity not found").WithError(err).Write(w, r)
	case errors.Is(err, store.ErrConflict):
		srverrors.Conflict("entity already exists").WithError(err).Write(w, r)
	case errors.Is(err, orchestrator.ErrQueueFull):
		srverrors.Unavailable("cluster worker queue is full").WithError(err).Write(w, r)
	default:
		srverrors.InternalError("unexpected error").WithError(err).Write(w, r)
	}
}
