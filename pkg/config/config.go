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

// Package config wires the option structs shared by both binaries
// (the flags each component needs, following the ...Options/AddFlags
// convention used throughout this codebase's other option types) into
// the dependencies the orchestrators and server are built from.
package config

import (
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/crypto/ssh"

	"github.com/datainfrapilot/datainfrapilot/pkg/providers"
	"github.com/datainfrapilot/datainfrapilot/pkg/providers/hetzner"
	"github.com/datainfrapilot/datainfrapilot/pkg/store"
)

// Options aggregates every flag-bindable option both binaries need.
type Options struct {
	Store Store

	// HetznerToken authenticates the Hetzner Cloud API client.
	HetznerToken string

	// SSHKeyPath points at the private key used to bootstrap every
	// provisioned server (spec §4.3): its public half is injected via
	// cloud-init and its private half drives every remoteexec session.
	SSHKeyPath string

	// MaxConcurrentOperations is bound to the max-concurrent-operations
	// flag, but no component reads it: the worker pool starts one worker
	// per key with no limit across keys.
	MaxConcurrentOperations int
}

// Store is a thin alias kept distinct from store.Options so flags read
// naturally on the command line (--store-dsn is already store.Options'
// own flag name; this type exists only to group it under Options).
type Store = store.Options

// AddFlags registers every flag needed to build the full dependency
// graph (store connection, cloud provider credentials, bootstrap key).
func (o *Options) AddFlags(f *pflag.FlagSet) {
	o.Store.AddFlags(f)

	f.StringVar(&o.HetznerToken, "hetzner-token", os.Getenv("HETZNER_TOKEN"), "Hetzner Cloud API token.")
	f.StringVar(&o.SSHKeyPath, "ssh-key-path", "/etc/datainfrapilot/id_ed25519", "Path to the private key used to bootstrap provisioned servers.")
	f.IntVar(&o.MaxConcurrentOperations, "max-concurrent-operations", 16, "Not read by any component; operations across workers are not limited.")
}

// LoadSigner reads and parses the configured SSH private key.
func (o *Options) LoadSigner() (ssh.Signer, error) {
	raw, err := os.ReadFile(o.SSHKeyPath)
	if err != nil {
		return nil, err
	}

	return ssh.ParsePrivateKey(raw)
}

// BuildProviders constructs the provider registry with every backend
// this build supports wired in. Only Hetzner is implemented (spec §9
// Open Questions); a future DigitalOcean/OpenStack-style driver would
// register here alongside it.
func (o *Options) BuildProviders() *providers.Registry {
	registry := providers.NewRegistry()
	registry.Register(hetzner.New(o.HetznerToken))

	return registry
}
