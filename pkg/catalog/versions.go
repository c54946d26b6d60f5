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
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/singleflight"
)

// versionCacheTTL is the 5 minute cache window spec §4.7/§5 requires for
// upstream version lookups.
const versionCacheTTL = 5 * time.Minute

// VersionSource fetches the list of published versions for a chart from
// an upstream registry (e.g. an OCI or Helm repository index). Swappable
// for tests.
type VersionSource interface {
	FetchVersions(ctx context.Context, chart string) ([]string, error)
}

type versionCacheEntry struct {
	versions []string
	expires  time.Time
}

// VersionCache fronts a VersionSource with a 5-minute TTL cache and
// single-flight deduplication, so concurrent callers requesting the same
// application's versions during a cache miss share one upstream fetch
// (spec §5: "Cached upstream version lists use single-flight semantics").
type VersionCache struct {
	source VersionSource

	mu      sync.Mutex
	entries map[string]versionCacheEntry

	group singleflight.Group

	now func() time.Time
}

// NewVersionCache builds a cache fronting source.
func NewVersionCache(source VersionSource) *VersionCache {
	return &VersionCache{
		source:  source,
		entries: make(map[string]versionCacheEntry),
		now:     time.Now,
	}
}

// ListVersions returns the cached (or freshly fetched) version list for
// chart, newest first.
func (c *VersionCache) ListVersions(ctx context.Context, chart string) ([]string, error) {
	if cached, ok := c.cached(chart); ok {
		return cached, nil
	}

	result, err, _ := c.group.Do(chart, func() (interface{}, error) {
		if cached, ok := c.cached(chart); ok {
			return cached, nil
		}

		versions, err := c.source.FetchVersions(ctx, chart)
		if err != nil {
			return nil, err
		}

		sortVersionsDescending(versions)

		c.mu.Lock()
		c.entries[chart] = versionCacheEntry{versions: versions, expires: c.now().Add(versionCacheTTL)}
		c.mu.Unlock()

		return versions, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]string), nil
}

func (c *VersionCache) cached(chart string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[chart]
	if !ok || c.now().After(entry.expires) {
		return nil, false
	}

	return entry.versions, true
}

// sortVersionsDescending orders version strings newest-first using
// semantic version comparison; entries that fail to parse sort last in
// their original relative order.
func sortVersionsDescending(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		vi, erri := semver.NewVersion(versions[i])
		vj, errj := semver.NewVersion(versions[j])

		if erri != nil || errj != nil {
			return erri == nil
		}

		return vi.GreaterThan(vj)
	})
}
