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

package kube

import (
	"github.com/datainfrapilot/datainfrapilot/pkg/readiness"
)

// DeploymentReadiness returns a readiness.Check for a Kubernetes
// Deployment's pod readiness summary (spec §4.4), polled by the cluster
// pipeline through readiness.Retry. The k3s probe in pkg/remoteexec and
// the Helm engine do their own waiting and do not use readiness.Check.
func (g *Gateway) DeploymentReadiness(namespace, name string) readiness.Check {
	return readiness.NewDeployment(g.client, namespace, name)
}

// DaemonSetReadiness returns a readiness.Check for a DaemonSet's pod
// readiness summary (used by the Hetzner CSI driver, which installs as a
// DaemonSet on worker nodes).
func (g *Gateway) DaemonSetReadiness(namespace, name string) readiness.Check {
	return readiness.NewDaemonSet(g.raw, namespace, name)
}
