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
	"net"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/datainfrapilot/datainfrapilot/pkg/providers"
)

// EnsureNetwork implements providers.Provider.
func (d *Driver) EnsureNetwork(ctx context.Context, name, ipRange string, labels providers.Labels) (string, error) {
	var id string

	err := d.withRetry(ctx, "ensure-network", func() error {
		existing, _, err := d.client.Network.GetByName(ctx, name)
		if err != nil {
			return err
		}

		if existing != nil {
			id = fmt.Sprintf("%d", existing.ID)
			return nil
		}

		_, ipNet, err := net.ParseCIDR(ipRange)
		if err != nil {
			return fmt.Errorf("invalid network range %q: %w", ipRange, err)
		}

		network, _, err := d.client.Network.Create(ctx, hcloud.NetworkCreateOpts{
			Name:    name,
			IPRange: ipNet,
			Labels:  labels,
		})
		if err != nil {
			return err
		}

		id = fmt.Sprintf("%d", network.ID)

		return nil
	})

	return id, err
}

// DeleteNetwork implements providers.Provider.
func (d *Driver) DeleteNetwork(ctx context.Context, id string) error {
	return d.withRetry(ctx, "delete-network", func() error {
		network, _, err := d.client.Network.Get(ctx, id)
		if err != nil {
			return err
		}

		if network == nil {
			return nil
		}

		_, err = d.client.Network.Delete(ctx, network)

		return err
	})
}

// EnsureFirewall implements providers.Provider.
func (d *Driver) EnsureFirewall(ctx context.Context, name string, rules []providers.FirewallRule, labels providers.Labels) (string, error) {
	var id string

	err := d.withRetry(ctx, "ensure-firewall", func() error {
		existing, _, err := d.client.Firewall.GetByName(ctx, name)
		if err != nil {
			return err
		}

		if existing != nil {
			id = fmt.Sprintf("%d", existing.ID)
			return nil
		}

		firewall, _, err := d.client.Firewall.Create(ctx, hcloud.FirewallCreateOpts{
			Name:   name,
			Labels: labels,
			Rules:  toHcloudRules(rules),
		})
		if err != nil {
			return err
		}

		id = fmt.Sprintf("%d", firewall.Firewall.ID)

		return nil
	})

	return id, err
}

// DeleteFirewall implements providers.Provider.
func (d *Driver) DeleteFirewall(ctx context.Context, id string) error {
	return d.withRetry(ctx, "delete-firewall", func() error {
		firewall, _, err := d.client.Firewall.Get(ctx, id)
		if err != nil {
			return err
		}

		if firewall == nil {
			return nil
		}

		_, err = d.client.Firewall.Delete(ctx, firewall)

		return err
	})
}

func toHcloudRules(rules []providers.FirewallRule) []hcloud.FirewallRule {
	out := make([]hcloud.FirewallRule, 0, len(rules))

	for _, r := range rules {
		direction := hcloud.FirewallRuleDirectionIn
		if r.Direction == "out" {
			direction = hcloud.FirewallRuleDirectionOut
		}

		ips := make([]net.IPNet, 0, len(r.SourceIPs))

		for _, s := range r.SourceIPs {
			_, ipNet, err := net.ParseCIDR(s)
			if err != nil {
				continue
			}

			ips = append(ips, *ipNet)
		}

		rule := hcloud.FirewallRule{
			Direction: direction,
			Protocol:  hcloud.FirewallRuleProtocol(r.Protocol),
			SourceIPs: ips,
		}

		if r.Port != "" && r.Port != "any" {
			port := r.Port
			rule.Port = &port
		}

		out = append(out, rule)
	}

	return out
}
