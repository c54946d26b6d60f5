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

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/datainfrapilot/datainfrapilot/pkg/providers"
)

// EnsureSSHKey implements providers.Provider. An existing key with the
// same name is adopted (spec §4.2: "exists" is success).
func (d *Driver) EnsureSSHKey(ctx context.Context, name, publicKey string, labels providers.Labels) (string, error) {
	var id string

	err := d.withRetry(ctx, "ensure-ssh-key", func() error {
		existing, _, err := d.client.SSHKey.GetByName(ctx, name)
		if err != nil {
			return err
		}

		if existing != nil {
			id = fmt.Sprintf("%d", existing.ID)
			return nil
		}

		key, _, err := d.client.SSHKey.Create(ctx, hcloud.SSHKeyCreateOpts{
			Name:      name,
			PublicKey: publicKey,
			Labels:    labels,
		})
		if err != nil {
			return err
		}

		id = fmt.Sprintf("%d", key.ID)

		return nil
	})

	return id, err
}

// DeleteSSHKey implements providers.Provider.
func (d *Driver) DeleteSSHKey(ctx context.Context, id string) error {
	return d.withRetry(ctx, "delete-ssh-key", func() error {
		key, _, err := d.client.SSHKey.Get(ctx, id)
		if err != nil {
			return err
		}

		if key == nil {
			return nil
		}

		_, err = d.client.SSHKey.Delete(ctx, key)

		return err
	})
}
