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

package helmengine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"helm.sh/helm/v3/pkg/storage/driver"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"release not found", driver.ErrReleaseNotFound, ErrChartNotFound},
		{"wait timeout", errors.New("timed out waiting for the condition"), ErrTimeout},
		{"context deadline", context.DeadlineExceeded, ErrTimeout},
		{"other", errors.New("connection refused"), ErrAPIServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestClassifyNilIsNil(t *testing.T) {
	assert.NoError(t, classify(nil))
}
