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

// CreateVolume implements providers.Provider.
func (d *Driver) CreateVolume(ctx context.Context, name string, sizeGB int, region string, labels providers.Labels) (*providers.Volume, error) {
	var result *providers.Volume

	err := d.withRetry(ctx, "create-volume:"+name, func() error {
		existing, _, err := d.client.Volume.GetByName(ctx, name)
		if err != nil {
			return err
		}

		if existing != nil {
			result = toVolume(existing)
			return nil
		}

		created, _, err := d.client.Volume.Create(ctx, hcloud.VolumeCreateOpts{
			Name:     name,
			Size:     sizeGB,
			Location: &hcloud.Location{Name: region},
			Labels:   labels,
		})
		if err != nil {
			return err
		}

		result = toVolume(created.Volume)

		return nil
	})

	return result, err
}

// DeleteVolume implements providers.Provider.
func (d *Driver) DeleteVolume(ctx context.Context, id string) error {
	return d.withRetry(ctx, "delete-volume:"+id, func() error {
		volume, _, err := d.client.Volume.Get(ctx, id)
		if err != nil {
			return err
		}

		if volume == nil {
			return nil
		}

		_, err = d.client.Volume.Delete(ctx, volume)

		return err
	})
}

// AttachVolume implements providers.Provider.
func (d *Driver) AttachVolume(ctx context.Context, volumeID, serverID string) error {
	return d.withRetry(ctx, "attach-volume:"+volumeID, func() error {
		volume, _, err := d.client.Volume.Get(ctx, volumeID)
		if err != nil {
			return err
		}

		if volume == nil {
			return fmt.Errorf("%w: volume %s", providers.ErrResourceNotFound, volumeID)
		}

		sid, err := strconv.ParseInt(serverID, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid server id %q: %w", serverID, err)
		}

		_, _, err = d.client.Volume.AttachWithOpts(ctx, volume, hcloud.VolumeAttachOpts{
			Server: &hcloud.Server{ID: sid},
		})

		return err
	})
}

// DetachVolume implements providers.Provider.
func (d *Driver) DetachVolume(ctx context.Context, volumeID string) error {
	return d.withRetry(ctx, "detach-volume:"+volumeID, func() error {
		volume, _, err := d.client.Volume.Get(ctx, volumeID)
		if err != nil {
			return err
		}

		if volume == nil {
			return nil
		}

		_, _, err = d.client.Volume.Detach(ctx, volume)

		return err
	})
}

// ListVolumesByLabel implements providers.Provider.
func (d *Driver) ListVolumesByLabel(ctx context.Context, labels providers.Labels) ([]providers.Volume, error) {
	var result []providers.Volume

	err := d.withRetry(ctx, "list-volumes-by-label", func() error {
		volumes, err := d.client.Volume.AllWithOpts(ctx, hcloud.VolumeListOpts{
			ListOpts: hcloud.ListOpts{LabelSelector: toLabelSelector(labels)},
		})
		if err != nil {
			return err
		}

		result = make([]providers.Volume, 0, len(volumes))

		for _, v := range volumes {
			result = append(result, *toVolume(v))
		}

		return nil
	})

	return result, err
}

func toVolume(v *hcloud.Volume) *providers.Volume {
	return &providers.Volume{
		ID:     fmt.Sprintf("%d", v.ID),
		Name:   v.Name,
		SizeGB: v.Size,
		Status: string(v.Status),
	}
}
