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

package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"

	"github.com/datainfrapilot/datainfrapilot/pkg/catalog"
	"github.com/datainfrapilot/datainfrapilot/pkg/config"
	"github.com/datainfrapilot/datainfrapilot/pkg/constants"
	clusterorch "github.com/datainfrapilot/datainfrapilot/pkg/orchestrator/cluster"
	deploymentorch "github.com/datainfrapilot/datainfrapilot/pkg/orchestrator/deployment"
	"github.com/datainfrapilot/datainfrapilot/pkg/render"
	"github.com/datainfrapilot/datainfrapilot/pkg/server"
	"github.com/datainfrapilot/datainfrapilot/pkg/store"

	"sigs.k8s.io/controller-runtime/pkg/log"
)

// start is the entry point to the server. It wires the store, provider
// registry, catalog and both orchestrators, then serves the REST
// surface (spec §6) off them.
func start() error {
	srv := &server.Server{}
	srv.AddFlags(pflag.CommandLine)

	opts := &config.Options{}
	opts.AddFlags(pflag.CommandLine)

	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.Parse()

	srv.SetupLogging()

	logger := log.Log.WithName(constants.Application)
	otel.SetLogger(logger)

	logger.Info("service starting", "application", constants.Application, "version", constants.Version, "revision", constants.Revision)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.SetupOpenTelemetry(ctx); err != nil {
		logger.Error(err, "failed to set up tracing")
		return err
	}

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

	httpServer := srv.GetServer(st, cat, registry, clusters, deployments)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-stop

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(err, "server shutdown error")
		}
	}()

	if err := httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		logger.Error(err, "unexpected server error")
		return err
	}

	return nil
}

func main() {
	if err := start(); err != nil {
		os.Exit(1)
	}
}
