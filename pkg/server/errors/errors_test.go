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

package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  *Error
		code int
	}{
		{ValidationError("bad"), http.StatusBadRequest},
		{NotFound("missing"), http.StatusNotFound},
		{Conflict("exists"), http.StatusConflict},
		{ProviderError("upstream"), http.StatusBadGateway},
		{KubeError("cluster"), http.StatusBadGateway},
		{HelmError("chart"), http.StatusBadGateway},
		{InternalError("oops"), http.StatusInternalServerError},
		{Unavailable("queue full"), http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.code, tc.err.Status())
	}
}

func TestWriteEncodesCodeAndDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	Unavailable("cluster worker queue is full").Write(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var b body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	assert.Equal(t, CodeUnavailable, b.Code)
	assert.Equal(t, "cluster worker queue is full", b.Detail)
}

func TestUnwrapMatchesErrRequest(t *testing.T) {
	err := ValidationError("bad field")
	assert.ErrorIs(t, err, ErrRequest)
}

func TestWithErrorDoesNotLeakIntoResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	InternalError("unexpected error").WithError(errors.New("db connection refused: password=hunter2")).Write(rec, req)

	var b body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	assert.NotContains(t, b.Detail, "hunter2")
}
