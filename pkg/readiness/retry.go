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

package readiness

import (
	"context"
	"time"

	"github.com/datainfrapilot/datainfrapilot/pkg/util/retry"
)

// Retry wraps a readiness check in a retry loop, polling delegate every
// period until it succeeds or ctx is done. The deadline (e.g. the 10
// minute k3s/Helm readiness budgets of spec §5) is applied by the caller
// via ctx, not by Retry itself.
type Retry struct {
	// delegate is a backend readiness check to be retried.
	delegate Check

	period time.Duration
}

// Ensure the Check interface is implemented.
var _ Check = &Retry{}

// NewRetry returns a new readiness check that will retry.
func NewRetry(delegate Check, period time.Duration) *Retry {
	return &Retry{
		delegate: delegate,
		period:   period,
	}
}

// Check implements the Check interface.
func (r *Retry) Check(ctx context.Context) error {
	return retry.WithContext(ctx).WithPeriod(r.period).Do(func() error {
		return r.delegate.Check(ctx)
	})
}
