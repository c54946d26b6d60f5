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

// Package errors implements the wire-level error taxonomy (spec §7) and
// the HTTP response mapping for it.
package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"sigs.k8s.io/controller-runtime/pkg/log"
)

// ErrRequest is raised for all handler errors.
var ErrRequest = errors.New("request error")

// Code is the stable wire-level error code returned in the response body.
type Code string

const (
	CodeValidation Code = "validation_error"
	CodeNotFound   Code = "not_found"
	CodeConflict   Code = "conflict"
	CodeProvider   Code = "provider_error"
	CodeKube       Code = "kube_error"
	CodeHelm       Code = "helm_error"
	CodeInternal   Code = "internal_error"

	// CodeUnavailable is returned when a per-cluster worker's command
	// queue is saturated (spec §4.8: "enqueue failure returns 503").
	CodeUnavailable Code = "unavailable"
)

var codeStatus = map[Code]int{
	CodeValidation:  http.StatusBadRequest,
	CodeNotFound:    http.StatusNotFound,
	CodeConflict:    http.StatusConflict,
	CodeProvider:    http.StatusBadGateway,
	CodeKube:        http.StatusBadGateway,
	CodeHelm:        http.StatusBadGateway,
	CodeInternal:    http.StatusInternalServerError,
	CodeUnavailable: http.StatusServiceUnavailable,
}

// Error wraps ErrRequest with more contextual information that is used to
// propagate and create suitable responses.
type Error struct {
	// code is the stable wire-level error code.
	code Code

	// description is a verbose description to log/return to the user.
	description string

	// err is set when the originator was an error. This is only used
	// for logging so as not to leak server internals to the client.
	err error

	// values are arbitrary key value pairs for logging.
	values []interface{}
}

func newError(code Code, description string) *Error {
	return &Error{code: code, description: description}
}

func ValidationError(description string) *Error { return newError(CodeValidation, description) }
func NotFound(description string) *Error         { return newError(CodeNotFound, description) }
func Conflict(description string) *Error         { return newError(CodeConflict, description) }
func ProviderError(description string) *Error    { return newError(CodeProvider, description) }
func KubeError(description string) *Error        { return newError(CodeKube, description) }
func HelmError(description string) *Error        { return newError(CodeHelm, description) }
func InternalError(description string) *Error    { return newError(CodeInternal, description) }
func Unavailable(description string) *Error      { return newError(CodeUnavailable, description) }

// WithError augments the error with an error from a library.
func (e *Error) WithError(err error) *Error {
	e.err = err

	return e
}

// WithValues augments the error with a set of K/V pairs.
// Values should not use the "error" key as that's implicitly defined
// by WithError and could collide.
func (e *Error) WithValues(values ...interface{}) *Error {
	e.values = values

	return e
}

// Unwrap implements Go 1.13 errors.
func (e *Error) Unwrap() error {
	return ErrRequest
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.description
}

// Status returns the HTTP status this error maps to.
func (e *Error) Status() int {
	return codeStatus[e.code]
}

// body is the JSON shape written to the client (spec §7).
type body struct {
	Detail string `json:"detail"`
	Code   Code   `json:"code"`
}

// Write returns the error code and description to the client.
func (e *Error) Write(w http.ResponseWriter, r *http.Request) {
	// Log out any detail from the error that shouldn't be
	// reported to the client. Do it before things can error
	// and return.
	logger := log.FromContext(r.Context())

	var details []interface{}

	if e.description != "" {
		details = append(details, "detail", e.description)
	}

	if e.err != nil {
		details = append(details, "error", e.err)
	}

	if e.values != nil {
		details = append(details, e.values...)
	}

	logger.Info("error detail", details...)

	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status())

	if err := json.NewEncoder(w).Encode(body{Detail: e.description, Code: e.code}); err != nil {
		logger.Error(err, "failed to write error response")
	}
}

// toError is a handy unwrapper to get an *Error from a generic one.
func toError(err error) *Error {
	var e *Error
	if !errors.As(err, &e) {
		return nil
	}

	return e
}

// IsNotFound reports whether err is a not_found error.
func IsNotFound(err error) bool {
	e := toError(err)
	return e != nil && e.code == CodeNotFound
}

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool {
	e := toError(err)
	return e != nil && e.code == CodeConflict
}

// HandleError is the top level error handler that should be called from all
// path handlers on error.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if e := toError(err); e != nil {
		e.Write(w, r)

		return
	}

	logger := log.FromContext(r.Context())
	logger.Error(err, "unhandled error")

	InternalError("unhandled error").Write(w, r)
}
