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

// Package providers defines the IaaS capability interface (spec §4.2,
// §9 "Polymorphism over providers") and the registry that selects an
// implementation by a cluster's provider field.
package providers

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrResourceNotFound is returned by a driver when a referenced
	// provider resource does not exist.
	ErrResourceNotFound = errors.New("provider resource not found")

	// ErrUnimplemented is returned for a provider name with no
	// registered driver. Per spec §9 Open Questions, DigitalOcean is
	// deliberately left in this state rather than guessed at.
	ErrUnimplemented = errors.New("provider unimplemented")

	// ErrAuthentication is returned for non-retriable credential
	// failures (spec §4.2).
	ErrAuthentication = errors.New("provider authentication failed")

	// ErrQuota is returned for non-retriable quota failures.
	ErrQuota = errors.New("provider quota exceeded")
)

// ServerStatus is the normalized status of a provider-backed server.
type ServerStatus string

const (
	ServerStatusInitializing ServerStatus = "initializing"
	ServerStatusRunning      ServerStatus = "running"
	ServerStatusOff          ServerStatus = "off"
	ServerStatusUnknown      ServerStatus = "unknown"
)

// Labels is the set of labels applied to every provider resource created
// on behalf of a cluster (spec §4.2).
type Labels map[string]string

// Server describes a created provider server.
type Server struct {
	ID        string
	Name      string
	PublicIP  string
	PrivateIP string
	Status    ServerStatus
}

// Volume describes a created provider block volume.
type Volume struct {
	ID     string
	Name   string
	SizeGB int
	Status string
}

// CreateServerRequest is the input to CreateServer.
type CreateServerRequest struct {
	Name       string
	NodeType   string
	Region     string
	SSHKeyID   string
	NetworkID  string
	UserData   string
	Labels     Labels
	// IdempotencyKey derives from (cluster-id, logical-name) per spec §4.2.
	IdempotencyKey string
}

// Provider is the capability interface implemented once per IaaS backend.
// An implementation must treat "resource already exists" as success
// (adoption) for every create call (spec §4.2).
type Provider interface {
	// Name identifies this driver, matching the cluster's provider field.
	Name() string

	// EnsureSSHKey creates (or adopts) an SSH key resource and returns
	// its provider ID.
	EnsureSSHKey(ctx context.Context, name, publicKey string, labels Labels) (string, error)

	// EnsureFirewall creates (or adopts) a firewall allowing the given
	// rules and returns its provider ID.
	EnsureFirewall(ctx context.Context, name string, rules []FirewallRule, labels Labels) (string, error)

	// EnsureNetwork creates (or adopts) a private network and returns
	// its provider ID.
	EnsureNetwork(ctx context.Context, name, ipRange string, labels Labels) (string, error)

	// CreateServer creates a server with the given cloud-init user data
	// and attached SSH key, returning its public IP once assigned.
	CreateServer(ctx context.Context, req CreateServerRequest) (*Server, error)

	// DeleteServer deletes a server by ID. Deleting an absent server is
	// success.
	DeleteServer(ctx context.Context, id string) error

	// ListServersByLabel lists servers matching every given label
	// (spec §4.2 teardown, §4.8 label-based discovery).
	ListServersByLabel(ctx context.Context, labels Labels) ([]Server, error)

	// ServerStatus fetches the current status of a server.
	ServerStatus(ctx context.Context, id string) (ServerStatus, error)

	// CreateVolume creates a block volume of the given size in GiB.
	CreateVolume(ctx context.Context, name string, sizeGB int, region string, labels Labels) (*Volume, error)

	// DeleteVolume deletes a volume by ID. Deleting an absent volume is
	// success.
	DeleteVolume(ctx context.Context, id string) error

	// AttachVolume attaches a volume to a server.
	AttachVolume(ctx context.Context, volumeID, serverID string) error

	// DetachVolume detaches a volume from whatever server it is attached
	// to.
	DetachVolume(ctx context.Context, volumeID string) error

	// ListVolumesByLabel lists volumes matching every given label.
	ListVolumesByLabel(ctx context.Context, labels Labels) ([]Volume, error)

	// DeleteNetwork deletes a network by ID.
	DeleteNetwork(ctx context.Context, id string) error

	// DeleteFirewall deletes a firewall by ID.
	DeleteFirewall(ctx context.Context, id string) error

	// DeleteSSHKey deletes an SSH key by ID.
	DeleteSSHKey(ctx context.Context, id string) error
}

// FirewallRule is a single allow rule for EnsureFirewall.
type FirewallRule struct {
	Direction string // "in" or "out"
	Protocol  string // "tcp", "udp", "icmp"
	Port      string // e.g. "22", "6443", "any"
	SourceIPs []string
}

// Registry resolves a provider name to a Provider implementation.
type Registry struct {
	drivers map[string]Provider
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{drivers: make(map[string]Provider)}
}

// Register adds a driver under its own Name().
func (r *Registry) Register(p Provider) {
	r.drivers[p.Name()] = p
}

// Get resolves a provider by name, returning ErrUnimplemented for any
// name with no registered driver (spec §9: DigitalOcean stays
// unimplemented rather than guessed at).
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.drivers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnimplemented, name)
	}

	return p, nil
}
