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

package render

// ControlPlaneCloudInit is the cloud-init template for the control-plane
// node (spec §4.3, §6: "the control-plane template carries k3s token and
// version substitution").
const ControlPlaneCloudInit = `#cloud-config
write_files:
  - path: /etc/rancher/k3s/config.yaml
    content: |
      token: {{.Token}}
      node-label:
        - "pool={{.PoolName}}"
      disable:
        - servicelb
        - local-storage
      disable-cloud-controller: true
      write-kubeconfig-mode: "0644"
runcmd:
  - curl -sfL https://get.k3s.io | INSTALL_K3S_VERSION={{.K3sVersion}} sh -
`

// WorkerCloudInit is the cloud-init template for a worker node (spec §4.3,
// §6: "the worker template carries join URL and token").
const WorkerCloudInit = `#cloud-config
write_files:
  - path: /etc/rancher/k3s/config.yaml
    content: |
      server: {{.JoinURL}}
      token: {{.Token}}
      node-label:
        - "pool={{.PoolName}}"
runcmd:
  - curl -sfL https://get.k3s.io | INSTALL_K3S_VERSION={{.K3sVersion}} sh -
`

// TraefikDashboardIngressRoute renders the IngressRoute + basic-auth
// middleware for the Traefik dashboard addon (spec §4.8 step 7).
const TraefikDashboardIngressRoute = `apiVersion: traefik.io/v1alpha1
kind: Middleware
metadata:
  name: dashboard-auth
  namespace: traefik
spec:
  basicAuth:
    secret: dashboard-auth-secret
---
apiVersion: traefik.io/v1alpha1
kind: IngressRoute
metadata:
  name: dashboard
  namespace: traefik
spec:
  entryPoints:
    - websecure
  routes:
    - match: Host(` + "`{{.Host}}`" + `)
      kind: Rule
      services:
        - name: api@internal
          kind: TraefikService
      middlewares:
        - name: dashboard-auth
`

// HetznerCSIManifest is the bundled CSI driver manifest for Hetzner-backed
// clusters (spec §4.8 step 6).
const HetznerCSIManifest = `apiVersion: v1
kind: Secret
metadata:
  name: hcloud-csi
  namespace: kube-system
stringData:
  token: {{.Token}}
---
apiVersion: storage.k8s.io/v1
kind: StorageClass
metadata:
  name: hcloud-volumes
provisioner: csi.hetzner.cloud
reclaimPolicy: Delete
volumeBindingMode: WaitForFirstConsumer
`
