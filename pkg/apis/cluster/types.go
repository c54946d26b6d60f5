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

// Package cluster defines the entities shared by every component of the
// control plane: clusters, pools, deployments, volumes and their access
// endpoints. These are plain Go types backed by rows in the store
// (pkg/store); nothing here talks to a database or a provider.
package cluster

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Status is the lifecycle state shared by Cluster, Deployment and Volume.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCreating  Status = "creating"
	StatusRunning   Status = "running"
	StatusUpdating  Status = "updating"
	StatusDeploying Status = "deploying"
	StatusFailed    Status = "failed"
	StatusDeleting  Status = "deleting"
)

// Terminal reports whether the status is one a state machine stops in.
func (s Status) Terminal() bool {
	return s == StatusRunning || s == StatusFailed
}

// nameRE matches the DNS label syntax required of cluster, pool and
// deployment names: 1-63 characters, lower-case alphanumeric and hyphen.
var nameRE = regexp.MustCompile(`^[a-z0-9-]{1,63}$`)

// ValidName reports whether name satisfies the DNS label syntax required
// of cluster, pool and deployment names (spec §8 boundary behaviors).
func ValidName(name string) bool {
	return nameRE.MatchString(name)
}

// PoolRole distinguishes the control-plane pool from worker pools. Exactly
// one pool per cluster carries PoolRoleControlPlane.
type PoolRole string

const (
	PoolRoleControlPlane PoolRole = "control-plane"
	PoolRoleWorker       PoolRole = "worker"
)

// Pool is a named set of homogeneous servers within a cluster.
type Pool struct {
	ID   string
	Name string

	ClusterID string
	Role      PoolRole

	// NodeType and Region are catalog references (e.g. "cx22", "fsn1").
	NodeType string
	Region   string

	// FixedCount, when non-nil, pins the pool to that many nodes (1-20).
	// Autoscaling pools instead set MinCount/MaxCount.
	FixedCount *int
	MinCount   *int
	MaxCount   *int
}

// Autoscaled reports whether the pool uses a min/max range rather than a
// fixed node count.
func (p *Pool) Autoscaled() bool {
	return p.FixedCount == nil
}

// Validate checks the pool's node-count invariants (spec §3, §8).
func (p *Pool) Validate() error {
	if !ValidName(p.Name) {
		return fmt.Errorf("%w: pool name %q", ErrInvalidName, p.Name)
	}

	if p.Role == PoolRoleControlPlane {
		if p.FixedCount == nil || *p.FixedCount != 1 {
			return fmt.Errorf("%w: control-plane pool must have exactly 1 node", ErrInvalidPool)
		}

		return nil
	}

	if p.FixedCount != nil {
		if *p.FixedCount < 1 || *p.FixedCount > 20 {
			return fmt.Errorf("%w: pool count must be in [1,20]", ErrInvalidPool)
		}

		return nil
	}

	if p.MinCount == nil || p.MaxCount == nil {
		return fmt.Errorf("%w: autoscaling pool requires min and max", ErrInvalidPool)
	}

	if *p.MinCount < 0 || *p.MinCount > 10 {
		return fmt.Errorf("%w: autoscaling min must be in [0,10]", ErrInvalidPool)
	}

	if *p.MaxCount < 1 || *p.MaxCount > 10 {
		return fmt.Errorf("%w: autoscaling max must be in [1,10]", ErrInvalidPool)
	}

	if *p.MinCount > *p.MaxCount {
		return fmt.Errorf("%w: autoscaling min must be <= max", ErrInvalidPool)
	}

	return nil
}

// AccessType classifies how an access endpoint is routed.
type AccessType string

const (
	AccessTypeSubdomain     AccessType = "subdomain"
	AccessTypeDomainPath    AccessType = "domain_path"
	AccessTypeClusterIPPath AccessType = "cluster_ip_path"
)

// AccessEndpoint is a user-visible URL routed into a deployment.
type AccessEndpoint struct {
	Name    string
	Type    AccessType
	Value   string
	Enabled bool
}

// NormalizeEndpoint canonicalizes an endpoint value so uniqueness
// comparisons are stable regardless of how the caller formatted it. The
// source UI applied this inconsistently between subdomain and path
// endpoints (spec §9 Open Questions); this implementation normalizes both
// the same way: lower-cased, with exactly one leading slash for path-style
// values and none for subdomain values.
func NormalizeEndpoint(t AccessType, value string) string {
	v := strings.ToLower(strings.TrimSpace(value))

	switch t {
	case AccessTypeSubdomain:
		return strings.TrimPrefix(v, "/")
	case AccessTypeDomainPath, AccessTypeClusterIPPath:
		return "/" + strings.TrimPrefix(v, "/")
	default:
		return v
	}
}

// Key returns the (access_type, normalized value) pair uniqueness is keyed
// on within a cluster (spec §3).
func (e *AccessEndpoint) Key() string {
	return string(e.Type) + ":" + NormalizeEndpoint(e.Type, e.Value)
}

// VolumeBinding is a deployment's reference to a volume requirement
// defined by the application descriptor.
type VolumeBinding struct {
	RequirementName string
	VolumeID        string
	// New is true when the volume was created for this deployment rather
	// than an existing one the user selected.
	New bool
}

// ConfigValue is a single entry of a deployment's free-form application
// configuration. The source stores this schema-less; §9 Design Notes
// recommends keeping it as a tagged union enforced by the catalog schema.
type ConfigValue struct {
	Text   *string
	Number *float64
	Bool   *bool
}

// Config is a deployment's user-supplied application configuration.
type Config map[string]ConfigValue

// Deployment is an application instance bound to a cluster.
type Deployment struct {
	ID        string
	Name      string
	ClusterID string

	ApplicationID string
	Config        Config

	// BoundPool is the name of the node pool this deployment is pinned
	// to, if any.
	BoundPool string

	Volumes   []VolumeBinding
	Endpoints []AccessEndpoint

	Status      Status
	Error       string
	InstalledAt *time.Time
}

// Namespace returns the Kubernetes namespace this deployment is installed
// into (spec §4.9 step 3).
func (d *Deployment) Namespace() string {
	return "dip-" + d.ID
}

// Volume is a provider-backed block volume, independent of any deployment.
type Volume struct {
	ID          string
	Name        string
	SizeGiB     int
	ProviderID  string
	RegionID    string
	Status      Status
	Description string
	InUse       bool
	CreatedAt   time.Time
}

// Validate checks the volume size invariant (spec §8).
func (v *Volume) Validate() error {
	if v.SizeGiB < 10 || v.SizeGiB > 1000 {
		return fmt.Errorf("%w: volume size must be in [10,1000] GiB", ErrInvalidVolume)
	}

	return nil
}

// AddonConfig is cluster-wide addon configuration (spec §3, §4.8 step 7-8).
type AddonConfig struct {
	TraefikDashboard TraefikDashboardConfig
}

// TraefikDashboardConfig configures the optional Traefik dashboard addon.
type TraefikDashboardConfig struct {
	Enabled  bool
	Username string
	Password string
}

// Cluster is a provisioned (or provisioning) k3s cluster.
type Cluster struct {
	ID   string
	Name string

	Provider string
	// ProviderConfig is an opaque credentials blob; never serialized on
	// reads (spec §3).
	ProviderConfig []byte

	K3sVersion string
	Domain     string
	AccessIP   string

	ControlPlane Pool
	WorkerPools  []Pool

	Addons AddonConfig

	Status    Status
	Error     string
	CreatedAt time.Time

	Deployments []Deployment
}

// Validate checks the cluster-level invariants of spec §3 and §8.
func (c *Cluster) Validate() error {
	if !ValidName(c.Name) {
		return fmt.Errorf("%w: cluster name %q", ErrInvalidName, c.Name)
	}

	if c.ControlPlane.Role != PoolRoleControlPlane {
		return fmt.Errorf("%w: control plane pool role mismatch", ErrInvalidCluster)
	}

	if err := c.ControlPlane.Validate(); err != nil {
		return err
	}

	seen := map[string]bool{c.ControlPlane.Name: true}

	for i := range c.WorkerPools {
		pool := &c.WorkerPools[i]

		if seen[pool.Name] {
			return fmt.Errorf("%w: duplicate pool name %q", ErrInvalidCluster, pool.Name)
		}

		seen[pool.Name] = true

		if err := pool.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Mutable reports whether the cluster may still be mutated. A cluster in a
// terminal failure state may be deleted but not otherwise changed (spec §3).
func (c *Cluster) Mutable() bool {
	return c.Status != StatusFailed
}

// ValidateEndpoints checks the enabled endpoint set of a deployment against
// the rest of the cluster for uniqueness and domain-dependent access types
// (spec §4.9 step 2). existing is the set of endpoints already in use by
// other deployments on the cluster.
func ValidateEndpoints(cl *Cluster, endpoints []AccessEndpoint, existing map[string]bool) error {
	seen := map[string]bool{}

	for _, ep := range endpoints {
		if !ep.Enabled {
			continue
		}

		switch ep.Type {
		case AccessTypeSubdomain, AccessTypeDomainPath:
			if cl.Domain == "" {
				return fmt.Errorf("%w: endpoint %q requires a cluster domain", ErrInvalidEndpoint, ep.Name)
			}
		case AccessTypeClusterIPPath:
			// Always allowed.
		default:
			return fmt.Errorf("%w: unknown access type %q", ErrInvalidEndpoint, ep.Type)
		}

		key := ep.Key()

		if seen[key] || existing[key] {
			return fmt.Errorf("%w: endpoint %s already exists", ErrEndpointConflict, key)
		}

		seen[key] = true
	}

	return nil
}

// ExistingEndpointKeys collects the normalized keys of every enabled
// endpoint across a cluster's deployments, optionally excluding one
// deployment (used when validating an update to that same deployment).
func ExistingEndpointKeys(cl *Cluster, excludeDeploymentID string) map[string]bool {
	keys := make(map[string]bool)

	for _, d := range cl.Deployments {
		if d.ID == excludeDeploymentID {
			continue
		}

		for _, ep := range d.Endpoints {
			if ep.Enabled {
				keys[ep.Key()] = true
			}
		}
	}

	return keys
}
