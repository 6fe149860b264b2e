// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main is the entry point for the relaycast stats server.
//
// relaycast implements a live statistics engine for a streaming-audio
// server, modeled on icecast's stats.c: a concurrent hierarchical
// key/value store fed by an event processor, fanned out to long-lived
// subscribers (the admin XML/streamlist HTTP surface, a browser
// dashboard over WebSocket, and an optional NATS-backed relay mesh for
// downstream relay slaves).
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: load settings from environment variables and a
//     config file (Koanf v2)
//  2. Logging: initialize zerolog with the configured level/format
//  3. Stats engine: construct the Engine and start its housekeeping
//     services (global_calc, purge)
//  4. Dashboard: start the WebSocket hub and its stats Bridge
//  5. Relay mesh (optional): connect to NATS and start the mirror
//     subscriber, requires building with -tags nats
//  6. HTTP server: the admin API (stats.xml, streamlist, streaming
//     subscriber feed) and the dashboard WebSocket upgrade endpoint
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (unprefixed names such as STATS_*, HTTP_PORT,
//     NATS_*, LOG_LEVEL; see internal/config's envMappings)
//   - Config file (config.yaml)
//   - Built-in defaults
//
// # Build Tags
//
// The relay mesh requires an explicit build tag:
//
//	go build -tags "nats" ./cmd/server  # Enable the NATS relay mesh
//
// Without it, the server still runs the stats engine, admin API, and
// dashboard; NATSConfig.Enabled=true without the tag only logs a
// warning and leaves relay mirroring off.
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits up to 10 s for in-flight requests to complete
//   - Tears down the relay mesh connection, if any
//   - Shuts down the stats engine's housekeeping services
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/cartographus/internal/bitrate"
	"github.com/tomtom215/cartographus/internal/config"
	"github.com/tomtom215/cartographus/internal/httpapi"
	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/stats"
	"github.com/tomtom215/cartographus/internal/supervisor"
	"github.com/tomtom215/cartographus/internal/supervisor/services"
	"github.com/tomtom215/cartographus/internal/wsdash"
)

//nolint:gocyclo // sequential top-level wiring, same shape as the teacher's main
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting relaycast stats server with supervisor tree")

	if cfg.Security.AdminBearerSecret == "" {
		logging.Fatal().Msg("security.admin_bearer_secret must be set")
	}

	softCap, hardCap, softAge := cfg.Stats.EngineLimits()
	engine := stats.Initialize(stats.EngineConfig{
		SubscriberLimits: stats.SubscriberLimits{
			SoftCapBytes: softCap,
			SoftCapAge:   softAge,
			HardCapBytes: hardCap,
		},
		RegularThrottle:  cfg.Stats.RegularThrottle,
		GlobalCalcPeriod: cfg.Stats.GlobalCalcPeriod,
		PurgeInterval:    cfg.Stats.PurgeInterval,
		PurgeRetention:   cfg.Stats.PurgeRetention,
	})
	defer engine.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	bitrateTracker := bitrate.NewTracker()

	// Data layer: periodic housekeeping. Connection-level listener/client
	// counters aren't tracked by a separate subsystem in this server, so
	// globalCalc's ConnectionStats is left nil; it only refreshes
	// outgoing_kbitrate from the bitrate tracker in that case.
	tree.AddDataService(&stats.GlobalCalcService{
		Engine:  engine,
		Bitrate: bitrateTracker,
		Period:  cfg.Stats.GlobalCalcPeriod,
	})
	tree.AddDataService(&stats.PurgeService{
		Engine:    engine,
		Interval:  cfg.Stats.PurgeInterval,
		Retention: cfg.Stats.PurgeRetention,
	})
	logging.Info().Msg("housekeeping services added to supervisor tree")

	// Messaging layer: the browser dashboard's hub/bridge pair.
	hub := wsdash.NewHub()
	tree.AddMessagingService(hub)
	tree.AddMessagingService(&wsdash.Bridge{
		Engine: engine,
		Hub:    hub,
		Mask:   stats.Public | stats.General | stats.Counters | stats.Regular,
	})
	logging.Info().Msg("dashboard hub and bridge added to supervisor tree")

	// Messaging layer: the optional relay mesh mirror.
	relayComponents, err := InitRelayMesh(cfg, engine)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize relay mesh")
	}
	if relayComponents != nil {
		defer relayComponents.Shutdown(context.Background())
		if relayComponents.Mirror != nil {
			tree.AddMessagingService(relayComponents.Mirror)
			tree.AddMessagingService(services.NewRelayConnectionService(relayComponents))
			logging.Info().Msg("relay mesh mirror added to supervisor tree")
		}
	}

	issuer, err := httpapi.NewTokenIssuer(cfg.Security.AdminBearerSecret, cfg.Security.TokenTTL)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize admin token issuer")
	}

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Engine:      engine,
		Hub:         hub,
		Issuer:      issuer,
		AdminSecret: cfg.Security.AdminBearerSecret,
		Middleware: httpapi.MiddlewareConfig{
			CORSOrigins:     cfg.Security.CORSOrigins,
			RateLimitReqs:   cfg.Security.RateLimitReqs,
			RateLimitWindow: cfg.Security.RateLimitWindow,
		},
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
