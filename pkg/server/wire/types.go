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

// Package wire defines the JSON request/response shapes of the REST
// surface (spec §6) and the conversions between them and the internal
// pkg/apis/cluster types. Request bodies mirror spec §3 with snake_case
// field names on the wire.
package wire

import (
	"time"

	apicluster "github.com/datainfrapilot/datainfrapilot/pkg/apis/cluster"
)

// Pool is the wire shape of a node pool.
type Pool struct {
	Name       string `json:"name"`
	NodeType   string `json:"node_type"`
	Region     string `json:"region"`
	FixedCount *int   `json:"fixed_count,omitempty"`
	MinCount   *int   `json:"min_count,omitempty"`
	MaxCount   *int   `json:"max_count,omitempty"`
}

func poolFromAPI(role apicluster.PoolRole, p apicluster.Pool) Pool {
	_ = role

	return Pool{
		Name:       p.Name,
		NodeType:   p.NodeType,
		Region:     p.Region,
		FixedCount: p.FixedCount,
		MinCount:   p.MinCount,
		MaxCount:   p.MaxCount,
	}
}

func poolToAPI(role apicluster.PoolRole, p Pool) apicluster.Pool {
	return apicluster.Pool{
		Name:       p.Name,
		Role:       role,
		NodeType:   p.NodeType,
		Region:     p.Region,
		FixedCount: p.FixedCount,
		MinCount:   p.MinCount,
		MaxCount:   p.MaxCount,
	}
}

// TraefikDashboard is the wire shape of the optional Traefik addon.
type TraefikDashboard struct {
	Enabled  bool   `json:"enabled"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// AccessEndpoint is the wire shape of a deployment's access endpoint.
type AccessEndpoint struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
}

func endpointFromAPI(e apicluster.AccessEndpoint) AccessEndpoint {
	return AccessEndpoint{Name: e.Name, Type: string(e.Type), Value: e.Value, Enabled: e.Enabled}
}

func endpointToAPI(e AccessEndpoint) apicluster.AccessEndpoint {
	return apicluster.AccessEndpoint{Name: e.Name, Type: apicluster.AccessType(e.Type), Value: e.Value, Enabled: e.Enabled}
}

// ClusterCreate is the request body of POST /clusters/.
type ClusterCreate struct {
	Name         string           `json:"name"`
	Provider     string           `json:"provider"`
	K3sVersion   string           `json:"k3s_version"`
	Domain       string           `json:"domain,omitempty"`
	ControlPlane Pool             `json:"control_plane"`
	WorkerPools  []Pool           `json:"worker_pools"`
	Traefik      TraefikDashboard `json:"traefik_dashboard"`
}

// ToAPI converts a creation request into the internal type CreateCluster
// expects. ProviderConfig is intentionally left to the caller: it carries
// credentials that never round-trip through this wire type.
func (c ClusterCreate) ToAPI() *apicluster.Cluster {
	workers := make([]apicluster.Pool, 0, len(c.WorkerPools))
	for _, p := range c.WorkerPools {
		workers = append(workers, poolToAPI(apicluster.PoolRoleWorker, p))
	}

	return &apicluster.Cluster{
		Name:         c.Name,
		Provider:     c.Provider,
		K3sVersion:   c.K3sVersion,
		Domain:       c.Domain,
		ControlPlane: poolToAPI(apicluster.PoolRoleControlPlane, c.ControlPlane),
		WorkerPools:  workers,
		Addons: apicluster.AddonConfig{
			TraefikDashboard: apicluster.TraefikDashboardConfig{
				Enabled:  c.Traefik.Enabled,
				Username: c.Traefik.Username,
				Password: c.Traefik.Password,
			},
		},
	}
}

// Cluster is the wire shape returned for cluster reads.
type Cluster struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Provider     string       `json:"provider"`
	K3sVersion   string       `json:"k3s_version"`
	Domain       string       `json:"domain,omitempty"`
	AccessIP     string       `json:"access_ip,omitempty"`
	ControlPlane Pool         `json:"control_plane"`
	WorkerPools  []Pool       `json:"worker_pools"`
	Status       string       `json:"status"`
	Error        string       `json:"error,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	Deployments  []Deployment `json:"deployments"`
}

// ClusterFromAPI converts a persisted cluster into its wire shape.
func ClusterFromAPI(c *apicluster.Cluster) Cluster {
	workers := make([]Pool, 0, len(c.WorkerPools))
	for _, p := range c.WorkerPools {
		workers = append(workers, poolFromAPI(apicluster.PoolRoleWorker, p))
	}

	deployments := make([]Deployment, 0, len(c.Deployments))
	for i := range c.Deployments {
		deployments = append(deployments, DeploymentFromAPI(&c.Deployments[i]))
	}

	return Cluster{
		ID:           c.ID,
		Name:         c.Name,
		Provider:     c.Provider,
		K3sVersion:   c.K3sVersion,
		Domain:       c.Domain,
		AccessIP:     c.AccessIP,
		ControlPlane: poolFromAPI(apicluster.PoolRoleControlPlane, c.ControlPlane),
		WorkerPools:  workers,
		Status:       string(c.Status),
		Error:        c.Error,
		CreatedAt:    c.CreatedAt,
		Deployments:  deployments,
	}
}

// ClusterCreated is the response body of POST /clusters/.
type ClusterCreated struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// ConfigValue is the wire shape of one entry in a deployment's config
// map: exactly one of the three fields is set, matching the internal
// tagged union.
type ConfigValue struct {
	Text   *string  `json:"text,omitempty"`
	Number *float64 `json:"number,omitempty"`
	Bool   *bool    `json:"bool,omitempty"`
}

func configFromAPI(cfg apicluster.Config) map[string]ConfigValue {
	out := make(map[string]ConfigValue, len(cfg))

	for k, v := range cfg {
		out[k] = ConfigValue{Text: v.Text, Number: v.Number, Bool: v.Bool}
	}

	return out
}

func configToAPI(cfg map[string]ConfigValue) apicluster.Config {
	out := make(apicluster.Config, len(cfg))

	for k, v := range cfg {
		out[k] = apicluster.ConfigValue{Text: v.Text, Number: v.Number, Bool: v.Bool}
	}

	return out
}

// VolumeBinding is the wire shape of a deployment's reference to a volume.
type VolumeBinding struct {
	RequirementName string `json:"requirement_name"`
	VolumeID        string `json:"volume_id,omitempty"`
}

// DeploymentCreate is the request body of POST /clusters/{id}/deployments.
type DeploymentCreate struct {
	Name          string                 `json:"name"`
	ApplicationID string                 `json:"application_id"`
	Config        map[string]ConfigValue `json:"config"`
	BoundPool     string                 `json:"bound_pool,omitempty"`
	Volumes       []VolumeBinding        `json:"volumes"`
	Endpoints     []AccessEndpoint       `json:"endpoints"`
}

// ToAPI converts a creation request into the internal deployment type.
func (c DeploymentCreate) ToAPI(clusterID string) *apicluster.Deployment {
	volumes := make([]apicluster.VolumeBinding, 0, len(c.Volumes))
	for _, v := range c.Volumes {
		volumes = append(volumes, apicluster.VolumeBinding{
			RequirementName: v.RequirementName,
			VolumeID:        v.VolumeID,
			New:             v.VolumeID == "",
		})
	}

	endpoints := make([]apicluster.AccessEndpoint, 0, len(c.Endpoints))
	for _, e := range c.Endpoints {
		endpoints = append(endpoints, endpointToAPI(e))
	}

	return &apicluster.Deployment{
		Name:          c.Name,
		ClusterID:     clusterID,
		ApplicationID: c.ApplicationID,
		Config:        configToAPI(c.Config),
		BoundPool:     c.BoundPool,
		Volumes:       volumes,
		Endpoints:     endpoints,
	}
}

// DeploymentUpdate is the request body of POST
// /clusters/{id}/deployments/{did}.
type DeploymentUpdate struct {
	Config    map[string]ConfigValue `json:"config"`
	Endpoints []AccessEndpoint       `json:"endpoints"`
}

// ApplyToAPI merges an update request onto the existing deployment.
func (u DeploymentUpdate) ApplyToAPI(d *apicluster.Deployment) {
	if u.Config != nil {
		d.Config = configToAPI(u.Config)
	}

	if u.Endpoints != nil {
		endpoints := make([]apicluster.AccessEndpoint, 0, len(u.Endpoints))
		for _, e := range u.Endpoints {
			endpoints = append(endpoints, endpointToAPI(e))
		}

		d.Endpoints = endpoints
	}
}

// Deployment is the wire shape returned for deployment reads.
type Deployment struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	ClusterID     string           `json:"cluster_id"`
	ApplicationID string           `json:"application_id"`
	Config        map[string]ConfigValue `json:"config"`
	BoundPool     string           `json:"bound_pool,omitempty"`
	Volumes       []VolumeBinding  `json:"volumes"`
	Endpoints     []AccessEndpoint `json:"endpoints"`
	Status        string           `json:"status"`
	Error         string           `json:"error,omitempty"`
	InstalledAt   *time.Time       `json:"installed_at,omitempty"`
}

// DeploymentFromAPI converts a persisted deployment into its wire shape.
func DeploymentFromAPI(d *apicluster.Deployment) Deployment {
	volumes := make([]VolumeBinding, 0, len(d.Volumes))
	for _, v := range d.Volumes {
		volumes = append(volumes, VolumeBinding{RequirementName: v.RequirementName, VolumeID: v.VolumeID})
	}

	endpoints := make([]AccessEndpoint, 0, len(d.Endpoints))
	for _, e := range d.Endpoints {
		endpoints = append(endpoints, endpointFromAPI(e))
	}

	return Deployment{
		ID:            d.ID,
		Name:          d.Name,
		ClusterID:     d.ClusterID,
		ApplicationID: d.ApplicationID,
		Config:        configFromAPI(d.Config),
		BoundPool:     d.BoundPool,
		Volumes:       volumes,
		Endpoints:     endpoints,
		Status:        string(d.Status),
		Error:         d.Error,
		InstalledAt:   d.InstalledAt,
	}
}

// Accepted is the common {id, status} response to a create/update.
type Accepted struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Credentials is the response body of the deployment credentials query.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// EndpointExistenceCheck is the request body of the check-endpoint-
// existence query.
type EndpointExistenceCheck struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// VolumeCreate is the request body of POST /volumes/.
type VolumeCreate struct {
	Name        string `json:"name"`
	SizeGiB     int    `json:"size_gib"`
	RegionID    string `json:"region_id"`
	Description string `json:"description,omitempty"`
}

func (c VolumeCreate) ToAPI() *apicluster.Volume {
	return &apicluster.Volume{
		Name:        c.Name,
		SizeGiB:     c.SizeGiB,
		RegionID:    c.RegionID,
		Description: c.Description,
	}
}

// VolumeCreated is the response body of POST /volumes/.
type VolumeCreated struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Volume is the wire shape returned for volume reads.
type Volume struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	SizeGiB     int       `json:"size_gib"`
	RegionID    string    `json:"region_id"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	InUse       bool      `json:"in_use"`
	CreatedAt   time.Time `json:"created_at"`
}

func VolumeFromAPI(v *apicluster.Volume) Volume {
	return Volume{
		ID:          v.ID,
		Name:        v.Name,
		SizeGiB:     v.SizeGiB,
		RegionID:    v.RegionID,
		Description: v.Description,
		Status:      string(v.Status),
		InUse:       v.InUse,
		CreatedAt:   v.CreatedAt,
	}
}

// ProxyHealthCheck is the response body of the proxy health-check query:
// the status code the target URL itself returned.
type ProxyHealthCheck struct {
	StatusCode int `json:"status_code"`
}

// ApplicationAccessEndpoint describes one endpoint an application's
// descriptor declares, for the /applications/{id}/access_endpoints query.
type ApplicationAccessEndpoint struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	DefaultType  string `json:"default_type"`
	DefaultValue string `json:"default_value"`
	Required     bool   `json:"required"`
}
