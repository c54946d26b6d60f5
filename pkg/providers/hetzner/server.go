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
	"context"
	"fmt"
	"strconv"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/datainfrapilot/datainfrapilot/pkg/providers"
)

// CreateServer implements providers.Provider. An existing server of the
// same name is adopted.
func (d *Driver) CreateServer(ctx context.Context, req providers.CreateServerRequest) (*providers.Server, error) {
	var result *providers.Server

	err := d.withRetry(ctx, "create-server:"+req.Name, func() error {
		existing, _, err := d.client.Server.GetByName(ctx, req.Name)
		if err != nil {
			return err
		}

		if existing != nil {
			result = toServer(existing)
			return nil
		}

		opts := hcloud.ServerCreateOpts{
			Name:       req.Name,
			ServerType: &hcloud.ServerType{Name: req.NodeType},
			Image:      &hcloud.Image{Name: "ubuntu-22.04"},
			Location:   &hcloud.Location{Name: req.Region},
			UserData:   req.UserData,
			Labels:     req.Labels,
		}

		if req.SSHKeyID != "" {
			id, err := strconv.ParseInt(req.SSHKeyID, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid ssh key id %q: %w", req.SSHKeyID, err)
			}

			opts.SSHKeys = []*hcloud.SSHKey{{ID: id}}
		}

		if req.NetworkID != "" {
			id, err := strconv.ParseInt(req.NetworkID, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid network id %q: %w", req.NetworkID, err)
			}

			opts.Networks = []*hcloud.Network{{ID: id}}
		}

		created, _, err := d.client.Server.Create(ctx, opts)
		if err != nil {
			return err
		}

		result = toServer(created.Server)

		return nil
	})

	return result, err
}

// DeleteServer implements providers.Provider.
func (d *Driver) DeleteServer(ctx context.Context, id string) error {
	return d.withRetry(ctx, "delete-server:"+id, func() error {
		server, _, err := d.client.Server.Get(ctx, id)
		if err != nil {
			return err
		}

		if server == nil {
			return nil
		}

		_, _, err = d.client.Server.DeleteWithResult(ctx, server)

		return err
	})
}

// ListServersByLabel implements providers.Provider.
func (d *Driver) ListServersByLabel(ctx context.Context, labels providers.Labels) ([]providers.Server, error) {
	var result []providers.Server

	err := d.withRetry(ctx, "list-servers-by-label", func() error {
		servers, err := d.client.Server.AllWithOpts(ctx, hcloud.ServerListOpts{
			ListOpts: hcloud.ListOpts{LabelSelector: toLabelSelector(labels)},
		})
		if err != nil {
			return err
		}

		result = make([]providers.Server, 0, len(servers))

		for _, s := range servers {
			result = append(result, *toServer(s))
		}

		return nil
	})

	return result, err
}

// ServerStatus implements providers.Provider.
func (d *Driver) ServerStatus(ctx context.Context, id string) (providers.ServerStatus, error) {
	var status providers.ServerStatus

	err := d.withRetry(ctx, "server-status:"+id, func() error {
		server, _, err := d.client.Server.Get(ctx, id)
		if err != nil {
			return err
		}

		if server == nil {
			return fmt.Errorf("%w: server %s", providers.ErrResourceNotFound, id)
		}

		status = toServerStatus(server.Status)

		return nil
	})

	return status, err
}

func toServer(s *hcloud.Server) *providers.Server {
	server := &providers.Server{
		ID:     fmt.Sprintf("%d", s.ID),
		Name:   s.Name,
		Status: toServerStatus(s.Status),
	}

	if s.PublicNet.IPv4.IP != nil {
		server.PublicIP = s.PublicNet.IPv4.IP.String()
	}

	for _, net := range s.PrivateNet {
		if net.IP != nil {
			server.PrivateIP = net.IP.String()
			break
		}
	}

	return server
}
