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

package server

import (
	"context"
	"flag"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/datainfrapilot/datainfrapilot/pkg/catalog"
	clusterorch "github.com/datainfrapilot/datainfrapilot/pkg/orchestrator/cluster"
	deploymentorch "github.com/datainfrapilot/datainfrapilot/pkg/orchestrator/deployment"
	"github.com/datainfrapilot/datainfrapilot/pkg/providers"
	"github.com/datainfrapilot/datainfrapilot/pkg/server/handler"
	"github.com/datainfrapilot/datainfrapilot/pkg/server/middleware"
	"github.com/datainfrapilot/datainfrapilot/pkg/store"

	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// Server assembles the REST surface's dependencies and HTTP listener.
type Server struct {
	// Options are server specific options e.g. listener address etc.
	Options Options

	// ZapOptions configure logging.
	ZapOptions zap.Options

	// HandlerOptions sets options for the HTTP handler.
	HandlerOptions handler.Options
}

func (s *Server) AddFlags(flags *pflag.FlagSet) {
	s.Options.AddFlags(pflag.CommandLine)
	s.ZapOptions.BindFlags(flag.CommandLine)
	s.HandlerOptions.AddFlags(pflag.CommandLine)
}

func (s *Server) SetupLogging() {
	log.SetLogger(zap.New(zap.UseFlagOptions(&s.ZapOptions)))
}

// SetupOpenTelemetry installs the global tracer provider, optionally
// shipping spans to an OTLP collector.
func (s *Server) SetupOpenTelemetry(ctx context.Context) error {
	otel.SetLogger(log.Log)

	var opts []trace.TracerProviderOption

	if s.Options.OTLPEndpoint != "" {
		exporter, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(s.Options.OTLPEndpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return err
		}

		opts = append(opts, trace.WithBatcher(exporter))
	}

	otel.SetTracerProvider(trace.NewTracerProvider(opts...))

	return nil
}

// routes builds the route table of spec §6 against a Handler.
func routes(h *handler.Handler) http.Handler {
	router := chi.NewRouter()
	router.NotFound(http.HandlerFunc(handler.NotFound))
	router.MethodNotAllowed(http.HandlerFunc(handler.MethodNotAllowed))

	router.Route("/clusters", func(r chi.Router) {
		r.Get("/", h.ListClusters)
		r.Post("/", h.CreateCluster)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetCluster)
			r.Delete("/", h.DeleteCluster)
			r.Get("/kubeconfig", h.GetKubeconfig)

			r.Route("/deployments", func(r chi.Router) {
				r.Post("/", h.CreateDeployment)
				r.Post("/check-endpoint-existence", h.CheckEndpointExistence)

				r.Route("/{did}", func(r chi.Router) {
					r.Post("/", h.UpdateDeployment)
					r.Delete("/", h.DeleteDeployment)
					r.Get("/credentials", h.Credentials)
				})
			})
		})
	})

	router.Route("/applications/{id}", func(r chi.Router) {
		r.Get("/versions", h.Versions)
		r.Get("/access_endpoints", h.AccessEndpoints)
	})

	router.Route("/volumes", func(r chi.Router) {
		r.Get("/", h.ListVolumes)
		r.Post("/", h.CreateVolume)
		r.Delete("/{id}", h.DeleteVolume)
	})

	router.Get("/deployments/proxy-health-check", h.ProxyHealthCheck)

	return router
}

// GetServer builds the http.Server for this process, wiring the store,
// catalog, provider registry and both orchestrators into the handler.
func (s *Server) GetServer(
	st *store.Store,
	cat *catalog.Catalog,
	registry *providers.Registry,
	clusters *clusterorch.Orchestrator,
	deployments *deploymentorch.Orchestrator,
) *http.Server {
	h := handler.New(st, cat, registry, clusters, deployments, &s.HandlerOptions)

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(chimiddleware.Timeout(s.Options.RequestTimeout))
	router.Mount("/", routes(h))

	return &http.Server{
		Addr:              s.Options.ListenAddress,
		ReadTimeout:       s.Options.ReadTimeout,
		ReadHeaderTimeout: s.Options.ReadHeaderTimeout,
		WriteTimeout:      s.Options.WriteTimeout,
		Handler:           router,
	}
}
