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

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffSucceedsAfterRetries(t *testing.T) {
	b := Backoff{Initial: 1, Factor: 2, Cap: 4, MaxAttempts: 6}

	attempts := 0

	err := b.Do(context.Background(), func() (bool, error) {
		attempts++
		if attempts < 3 {
			return true, errors.New("transient")
		}

		return false, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestBackoffStopsOnNonRetryable(t *testing.T) {
	b := ProviderBackoff()

	attempts := 0

	err := b.Do(context.Background(), func() (bool, error) {
		attempts++
		return false, errors.New("permanent")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestBackoffExhaustsMaxAttempts(t *testing.T) {
	b := Backoff{Initial: 1, Factor: 2, Cap: 4, MaxAttempts: 3}

	attempts := 0

	err := b.Do(context.Background(), func() (bool, error) {
		attempts++
		return true, errors.New("always transient")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestBackoffRespectsCancellation(t *testing.T) {
	b := Backoff{Initial: time.Hour, Factor: 2, Cap: time.Hour, MaxAttempts: 5}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0

	err := b.Do(ctx, func() (bool, error) {
		attempts++
		return true, errors.New("transient")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}
