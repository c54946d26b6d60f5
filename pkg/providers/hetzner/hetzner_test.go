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

package hetzner

import (
	"errors"
	"testing"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/stretchr/testify/assert"

	"github.com/datainfrapilot/datainfrapilot/pkg/providers"
)

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"nil", nil, false},
		{"rate limited", hcloud.Error{Code: hcloud.ErrorCodeRateLimitExceeded}, true},
		{"service error", hcloud.Error{Code: hcloud.ErrorCodeServiceError}, true},
		{"unauthorized", hcloud.Error{Code: hcloud.ErrorCodeUnauthorized}, false},
		{"connection reset", errors.New("dial tcp: connection reset by peer"), true},
		{"eof", errors.New("unexpected EOF"), true},
		{"not found string", errors.New("widget not found"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, isTransientError(tt.err))
		})
	}
}

func TestClassify(t *testing.T) {
	err := classify(hcloud.Error{Code: hcloud.ErrorCodeUnauthorized, Message: "bad token"})
	assert.ErrorIs(t, err, providers.ErrAuthentication)

	err = classify(hcloud.Error{Code: hcloud.ErrorCodeResourceLimitExceeded, Message: "too many servers"})
	assert.ErrorIs(t, err, providers.ErrQuota)

	err = classify(hcloud.Error{Code: hcloud.ErrorCodeNotFound, Message: "no such server"})
	assert.ErrorIs(t, err, providers.ErrResourceNotFound)

	plain := errors.New("boom")
	assert.Equal(t, plain, classify(plain))
}

func TestToLabelSelector(t *testing.T) {
	sel := toLabelSelector(providers.Labels{"dip/cluster": "abc"})
	assert.Equal(t, "dip/cluster=abc", sel)
}
