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

package cluster

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/ssh"
	"golang.org/x/sync/errgroup"

	"sigs.k8s.io/controller-runtime/pkg/log"

	apicluster "github.com/datainfrapilot/datainfrapilot/pkg/apis/cluster"
	"github.com/datainfrapilot/datainfrapilot/pkg/constants"
	"github.com/datainfrapilot/datainfrapilot/pkg/kube"
	"github.com/datainfrapilot/datainfrapilot/pkg/providers"
	"github.com/datainfrapilot/datainfrapilot/pkg/readiness"
	"github.com/datainfrapilot/datainfrapilot/pkg/render"
)

// workerBatchSize bounds how many servers are created concurrently within
// one pool (spec §4.8 step 5: batches of 4).
const workerBatchSize = 4

// readinessPollPeriod is the interval readiness.Retry polls at while
// waiting on the Hetzner CSI DaemonSet and the cert-manager webhook
// Deployment (spec §4.9 default poll periods).
const readinessPollPeriod = 5 * time.Second

// step logs and names the failing pipeline stage so the persisted error
// message tells the caller where provisioning stopped (spec §4.8).
func step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	logger := log.FromContext(ctx)
	logger.Info("cluster pipeline step", "step", name)

	if err := fn(ctx); err != nil {
		logger.Error(err, "cluster pipeline step failed", "step", name)
		return fmt.Errorf("%s: %w", name, err)
	}

	return nil
}

func (o *Orchestrator) runCreate(clusterID string) {
	ctx := context.Background()
	logger := log.FromContext(ctx)

	cl, err := o.store.GetCluster(ctx, clusterID)
	if err != nil {
		logger.Error(err, "failed to load cluster for creation", "cluster", clusterID)
		return
	}

	if err := o.create(ctx, cl); err != nil {
		_ = o.transition(context.Background(), cl.ID, apicluster.StatusFailed, err.Error(), nil)
	}
}

// create runs the provisioning pipeline of spec §4.8. Resources created
// before a failing step are left in place; only an explicit Delete tears
// them down.
//
//nolint:cyclop
func (o *Orchestrator) create(ctx context.Context, cl *apicluster.Cluster) error {
	provider, err := o.providers.Get(cl.Provider)
	if err != nil {
		return err
	}

	labels := providers.Labels{constants.ClusterLabel: cl.ID}

	var (
		sshKeyID    string
		networkID   string
		controlNode *providers.Server
		joinToken   string
		kubeconfig  []byte
	)

	if err := step(ctx, "ensure-ssh-key-network-firewall", func(ctx context.Context) error {
		pctx, cancel := context.WithTimeout(ctx, ProviderCallTimeout)
		defer cancel()

		id, err := provider.EnsureSSHKey(pctx, "dip-"+cl.ID, authorizedKey(o.signer), labels)
		if err != nil {
			return err
		}

		sshKeyID = id

		netID, err := provider.EnsureNetwork(pctx, "dip-"+cl.ID, "10.0.0.0/16", labels)
		if err != nil {
			return err
		}

		networkID = netID

		if _, err := provider.EnsureFirewall(pctx, "dip-"+cl.ID, defaultFirewallRules(), labels); err != nil {
			return err
		}

		return nil
	}); err != nil {
		return err
	}

	if err := step(ctx, "create-control-plane", func(ctx context.Context) error {
		joinToken = randomToken()

		userData, err := o.render.Render("control-plane-cloud-init", render.ControlPlaneCloudInit, map[string]interface{}{
			"Token":      joinToken,
			"PoolName":   cl.ControlPlane.Name,
			"K3sVersion": cl.K3sVersion,
		})
		if err != nil {
			return err
		}

		pctx, cancel := context.WithTimeout(ctx, ProviderCallTimeout)
		defer cancel()

		srv, err := provider.CreateServer(pctx, providers.CreateServerRequest{
			Name:           serverName(cl.ID, cl.ControlPlane.Name, 0),
			NodeType:       cl.ControlPlane.NodeType,
			Region:         cl.ControlPlane.Region,
			SSHKeyID:       sshKeyID,
			NetworkID:      networkID,
			UserData:       userData,
			Labels:         withRole(labels, constants.RoleControlPlane, cl.ControlPlane.Name),
			IdempotencyKey: cl.ID + "/" + cl.ControlPlane.Name,
		})
		if err != nil {
			return err
		}

		controlNode = srv

		return nil
	}); err != nil {
		return err
	}

	if err := step(ctx, "wait-control-plane-ready", func(ctx context.Context) error {
		session, err := o.dial(ctx, controlNode.PublicIP, o.signer)
		if err != nil {
			return err
		}
		defer session.Close()

		if err := session.WaitCloudInit(ctx); err != nil {
			return err
		}

		if err := session.WaitK3sReady(ctx, "k3s", "/etc/rancher/k3s/k3s.yaml"); err != nil {
			return err
		}

		raw, err := session.ReadFile(ctx, "/etc/rancher/k3s/k3s.yaml")
		if err != nil {
			return err
		}

		kubeconfig = rewriteKubeconfigServer([]byte(raw), controlNode.PublicIP)

		return nil
	}); err != nil {
		return err
	}

	o.cacheKubeconfig(cl.ID, kubeconfig)

	if err := step(ctx, "create-worker-pools", func(ctx context.Context) error {
		for i := range cl.WorkerPools {
			pool := cl.WorkerPools[i]

			group, gctx := errgroup.WithContext(ctx)
			group.SetLimit(workerBatchSize)

			for idx := 0; idx < poolNodeCount(&pool); idx++ {
				idx := idx

				group.Go(func() error {
					return o.createWorkerNode(gctx, provider, cl, &pool, idx, sshKeyID, networkID, joinToken, controlNode.PrivateIP)
				})
			}

			if err := group.Wait(); err != nil {
				return err
			}
		}

		return nil
	}); err != nil {
		return err
	}

	gw, err := o.kubeGW(kubeconfig)
	if err != nil {
		return fmt.Errorf("building kube gateway: %w", err)
	}

	if err := step(ctx, "install-csi", func(ctx context.Context) error {
		return o.installCSI(ctx, gw)
	}); err != nil {
		return err
	}

	if cl.Addons.TraefikDashboard.Enabled {
		if err := step(ctx, "install-traefik-dashboard", func(ctx context.Context) error {
			return o.installTraefikDashboard(ctx, gw, cl)
		}); err != nil {
			return err
		}
	}

	if cl.Domain != "" {
		if err := step(ctx, "install-cert-manager", func(ctx context.Context) error {
			return o.installCertManager(ctx, kubeconfig, cl)
		}); err != nil {
			return err
		}
	}

	return o.transition(ctx, cl.ID, apicluster.StatusRunning, "", &controlNode.PublicIP)
}

func (o *Orchestrator) createWorkerNode(ctx context.Context, provider providers.Provider, cl *apicluster.Cluster, pool *apicluster.Pool, idx int, sshKeyID, networkID, token, joinIP string) error {
	userData, err := o.render.Render("worker-cloud-init", render.WorkerCloudInit, map[string]interface{}{
		"Token":      token,
		"PoolName":   pool.Name,
		"K3sVersion": cl.K3sVersion,
		"JoinURL":    "https://" + joinIP + ":6443",
	})
	if err != nil {
		return err
	}

	pctx, cancel := context.WithTimeout(ctx, ProviderCallTimeout)
	defer cancel()

	labels := withRole(providers.Labels{constants.ClusterLabel: cl.ID}, constants.RoleWorker, pool.Name)

	_, err = provider.CreateServer(pctx, providers.CreateServerRequest{
		Name:           serverName(cl.ID, pool.Name, idx),
		NodeType:       pool.NodeType,
		Region:         pool.Region,
		SSHKeyID:       sshKeyID,
		NetworkID:      networkID,
		UserData:       userData,
		Labels:         labels,
		IdempotencyKey: fmt.Sprintf("%s/%s/%d", cl.ID, pool.Name, idx),
	})

	return err
}

// installCSI waits until the hcloud-csi-node DaemonSet in kube-system
// reports ready. It does not render or apply render.HetznerCSIManifest
// or any other manifest.
func (o *Orchestrator) installCSI(ctx context.Context, gw *kube.Gateway) error {
	check := readiness.NewRetry(gw.DaemonSetReadiness("kube-system", "hcloud-csi-node"), readinessPollPeriod)
	return check.Check(ctx)
}

// installTraefikDashboard writes the bcrypt-hashed basic-auth secret
// (dashboard-auth-secret in the traefik namespace). It does not render or
// apply render.TraefikDashboardIngressRoute, so no IngressRoute or
// middleware for the dashboard is created.
func (o *Orchestrator) installTraefikDashboard(ctx context.Context, gw *kube.Gateway, cl *apicluster.Cluster) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(cl.Addons.TraefikDashboard.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return gw.EnsureSecret(ctx, "traefik", "dashboard-auth-secret", "Opaque", map[string][]byte{
		"users": []byte(cl.Addons.TraefikDashboard.Username + ":" + string(hash)),
	}, nil)
}

func (o *Orchestrator) installCertManager(ctx context.Context, kubeconfig []byte, cl *apicluster.Cluster) error {
	driver, err := o.helmDriver(kubeconfig, "cert-manager")
	if err != nil {
		return err
	}

	if _, err := driver.InstallOrUpgrade(ctx, "cert-manager", "artifacts/cert-manager", map[string]interface{}{
		"installCRDs": true,
		"domain":      cl.Domain,
	}); err != nil {
		return err
	}

	gw, err := o.kubeGW(kubeconfig)
	if err != nil {
		return fmt.Errorf("building kube gateway: %w", err)
	}

	// The admission webhook has to be serving before any Certificate
	// resource can be created against this cluster, so block here
	// rather than leave the first Certificate apply to fail and retry.
	check := readiness.NewRetry(gw.DeploymentReadiness("cert-manager", "cert-manager-webhook"), readinessPollPeriod)

	return check.Check(ctx)
}

func (o *Orchestrator) transition(ctx context.Context, id string, status apicluster.Status, errMsg string, accessIP *string) error {
	return o.store.UpdateClusterStatus(ctx, id, status, errMsg, accessIP)
}

func (o *Orchestrator) runDelete(clusterID string) {
	ctx := context.Background()
	logger := log.FromContext(ctx)

	cl, err := o.store.GetCluster(ctx, clusterID)
	if err != nil {
		logger.Error(err, "failed to load cluster for deletion", "cluster", clusterID)
		return
	}

	if err := o.delete(ctx, cl); err != nil {
		_ = o.transition(context.Background(), cl.ID, apicluster.StatusFailed, err.Error(), nil)
		return
	}

	o.invalidateKubeconfig(cl.ID)
}

// delete tears down a cluster's provider resources by label, not by
// locally stored IDs (spec §4.8: teardown discovers resources fresh so it
// still works after a process restart).
func (o *Orchestrator) delete(ctx context.Context, cl *apicluster.Cluster) error {
	provider, err := o.providers.Get(cl.Provider)
	if err != nil {
		return err
	}

	labels := providers.Labels{constants.ClusterLabel: cl.ID}

	if err := step(ctx, "terminate-servers", func(ctx context.Context) error {
		servers, err := provider.ListServersByLabel(ctx, labels)
		if err != nil {
			return err
		}

		// Workers before the control plane: reverse of creation order.
		for i := len(servers) - 1; i >= 0; i-- {
			if err := provider.DeleteServer(ctx, servers[i].ID); err != nil {
				return err
			}
		}

		return nil
	}); err != nil {
		return err
	}

	if err := step(ctx, "delete-volumes", func(ctx context.Context) error {
		volumes, err := provider.ListVolumesByLabel(ctx, labels)
		if err != nil {
			return err
		}

		for _, v := range volumes {
			if err := provider.DeleteVolume(ctx, v.ID); err != nil {
				return err
			}
		}

		return nil
	}); err != nil {
		return err
	}

	if err := step(ctx, "delete-network-and-firewall", func(ctx context.Context) error {
		// EnsureNetwork/EnsureFirewall resolve by deterministic name and
		// adopt the existing resource, so re-running them here is the
		// cheapest way to recover the provider ID to delete.
		netID, err := provider.EnsureNetwork(ctx, "dip-"+cl.ID, "10.0.0.0/16", labels)
		if err != nil {
			return err
		}

		if err := provider.DeleteNetwork(ctx, netID); err != nil {
			return err
		}

		fwID, err := provider.EnsureFirewall(ctx, "dip-"+cl.ID, defaultFirewallRules(), labels)
		if err != nil {
			return err
		}

		if err := provider.DeleteFirewall(ctx, fwID); err != nil {
			return err
		}

		return provider.DeleteSSHKey(ctx, "dip-"+cl.ID)
	}); err != nil {
		return err
	}

	return o.store.DeleteCluster(ctx, cl.ID)
}

// authorizedKey renders an ssh.Signer's public half in authorized_keys
// format, as required by EnsureSSHKey.
func authorizedKey(signer ssh.Signer) string {
	return strings.TrimSpace(string(ssh.MarshalAuthorizedKey(signer.PublicKey())))
}

// randomToken generates the shared k3s cluster token handed to every
// node's cloud-init (spec §4.3).
func randomToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}

	return hex.EncodeToString(buf)
}

func serverName(clusterID, poolName string, idx int) string {
	return fmt.Sprintf("%s-%s-%d", clusterID, poolName, idx)
}

func withRole(labels providers.Labels, role, poolName string) providers.Labels {
	out := providers.Labels{constants.RoleLabel: role, constants.PoolLabel: poolName}
	for k, v := range labels {
		out[k] = v
	}

	return out
}

// poolNodeCount resolves how many nodes to create for a pool up front.
// Autoscaling pools start at MinCount (or 1 if that is 0); the autoscaler
// itself is out of scope for the creation pipeline (spec §1 Non-goals).
func poolNodeCount(pool *apicluster.Pool) int {
	if pool.FixedCount != nil {
		return *pool.FixedCount
	}

	if pool.MinCount != nil && *pool.MinCount > 0 {
		return *pool.MinCount
	}

	return 1
}

// rewriteKubeconfigServer points the kubeconfig's cluster.server entry
// (k3s writes 127.0.0.1 by default) at the control plane's public IP so
// it is usable from outside the node.
func rewriteKubeconfigServer(kubeconfig []byte, publicIP string) []byte {
	return []byte(strings.ReplaceAll(string(kubeconfig), "127.0.0.1", publicIP))
}

// defaultFirewallRules allows SSH and the k3s API server from any source;
// intra-cluster traffic on the private network is implicitly trusted.
func defaultFirewallRules() []providers.FirewallRule {
	anywhere := []string{"0.0.0.0/0", "::/0"}

	return []providers.FirewallRule{
		{Direction: "in", Protocol: "tcp", Port: "22", SourceIPs: anywhere},
		{Direction: "in", Protocol: "tcp", Port: "6443", SourceIPs: anywhere},
	}
}
