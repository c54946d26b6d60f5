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
	"time"

	"github.com/spf13/pflag"
)

// Options defines configurable handler options.
type Options struct {
	// cacheMaxAge is the Cache-Control max-age applied to read responses:
	// the catalog queries (application versions, access endpoints) and
	// the cluster list/get and volume list queries.
	cacheMaxAge time.Duration
}

// AddFlags adds the options flags to the given flag set.
func (o *Options) AddFlags(f *pflag.FlagSet) {
	f.DurationVar(&o.cacheMaxAge, "handler-cache-max-age", 5*time.Minute, "Cache-Control max-age for catalog, cluster and volume read responses.")
}
