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

// Command datainfrapilot-controller resumes cluster and deployment
// pipelines left mid-flight by a crashed or restarted
// datainfrapilot-server process. The REST server's orchestrators hold
// their worker pools and kubeconfig caches in memory, so a server
// restart loses any in-flight goroutine; this process periodically
// scans the store for clusters and deployments sitting in a
// non-terminal state and resubmits them, the same way the teacher's
// controller-manager re-reconciles every object on startup rather than
// relying on the event that originally triggered it.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"

	apicluster "github.com/datainfrapilot/datainfrapilot/pkg/apis/cluster"
	"github.com/datainfrapilot/datainfrapilot/pkg/catalog"
	"github.com/datainfrapilot/datainfrapilot/pkg/config"
	"github.com/datainfrapilot/datainfrapilot/pkg/constants"
	clusterorch "github.com/datainfrapilot/datainfrapilot/pkg/orchestrator/cluster"
	deploymentorch "github.com/datainfrapilot/datainfrapilot/pkg/orchestrator/deployment"
	"github.com/datainfrapilot/datainfrapilot/pkg/render"
	"github.com/datainfrapilot/datainfrapilot/pkg/store"

	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// controllerOptions configures the reconciliation sweep.
type controllerOptions struct {
	// sweepInterval is how often the store is scanned for mid-flight
	// clusters and deployments.
	sweepInterval time.Duration
}

func (o *controllerOptions) addFlags(f *pflag.FlagSet) {
	f.DurationVar(&o.sweepInterval, "sweep-interval", 30*time.Second, "How often to scan the store for clusters and deployments left mid-flight.")
}

// resume resubmits every non-terminal cluster and deployment onto fresh
// orchestrators. Resubmitting an already-creating cluster or deploying
// deployment re-runs its pipeline from the top without duplicating
// resources: the provider driver adopts an existing SSH key, network,
// firewall or server of the same deterministic name, and the deployment
// pipeline's Kubernetes and Helm calls are create-or-update.
func resume(ctx context.Context, st *store.Store, clusters *clusterorch.Orchestrator, deployments *deploymentorch.Orchestrator) {
	logger := log.FromContext(ctx)

	all, err := st.ListClusters(ctx)
	if err != nil {
		logger.Error(err, "failed to list clusters for reconciliation sweep")
		return
	}

	for i := range all {
		c := &all[i]

		switch c.Status {
		case apicluster.StatusPending, apicluster.StatusCreating:
			if err := clusters.Create(ctx, c.ID); err != nil {
				logger.Error(err, "failed to resume cluster creation", "cluster", c.ID)
			}
		case apicluster.StatusDeleting:
			if err := clusters.Delete(ctx, c.ID); err != nil {
				logger.Error(err, "failed to resume cluster deletion", "cluster", c.ID)
			}
		}

		for j := range c.Deployments {
			d := &c.Deployments[j]

			switch d.Status {
			case apicluster.StatusPending, apicluster.StatusDeploying:
				if err := deployments.Install(ctx, d.ID); err != nil {
					logger.Error(err, "failed to resume deployment install", "deployment", d.ID)
				}
			case apicluster.StatusUpdating:
				if err := deployments.Update(ctx, d.ID); err != nil {
					logger.Error(err, "failed to resume deployment update", "deployment", d.ID)
				}
			case apicluster.StatusDeleting:
				if err := deployments.Delete(ctx, d.ID); err != nil {
					logger.Error(err, "failed to resume deployment deletion", "deployment", d.ID)
				}
			}
		}
	}
}

func start() error {
	zapOptions := &zap.Options{}
	zapOptions.BindFlags(flag.CommandLine)

	opts := &config.Options{}
	opts.AddFlags(pflag.CommandLine)

	controllerOpts := &controllerOptions{}
	controllerOpts.addFlags(pflag.CommandLine)

	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.Parse()

	log.SetLogger(zap.New(zap.UseFlagOptions(zapOptions)))

	logger := log.Log.WithName(constants.Application)
	otel.SetLogger(logger)

	logger.Info("service starting", "application", constants.Application, "version", constants.Version, "revision", constants.Revision)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.New(ctx, opts.Store)
	if err != nil {
		logger.Error(err, "failed to connect to store")
		return err
	}

	signer, err := opts.LoadSigner()
	if err != nil {
		logger.Error(err, "failed to load SSH bootstrap key")
		return err
	}

	registry := opts.BuildProviders()
	renderer := render.New()
	cat := catalog.New()

	clusters := clusterorch.New(st, registry, renderer, signer)
	deployments := deploymentorch.New(st, cat, clusters, clusters.Worker(), renderer)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	ticker := time.NewTicker(controllerOpts.sweepInterval)
	defer ticker.Stop()

	resume(ctx, st, clusters, deployments)

	for {
		select {
		case <-stop:
			cancel()
			return nil
		case <-ticker.C:
			resume(ctx, st, clusters, deployments)
		}
	}
}

func main() {
	if err := start(); err != nil {
		os.Exit(1)
	}
}
