// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package services provides suture.Service wrappers for relaycast
components whose native lifecycle doesn't already match suture's
context-aware Serve pattern.

# Overview

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

The wrappers handle:
  - Lifecycle translation (ListenAndServe, Start/Shutdown, to Serve)
  - Graceful shutdown via context cancellation
  - Error propagation for supervisor restart decisions
  - Service identification via fmt.Stringer

Most of relaycast's own components (internal/stats's housekeeping
services, internal/wsdash.Hub and Bridge, internal/relaymesh.Mirror)
implement suture.Service directly and need no wrapper at all; this
package exists for the handful of components whose natural API shape
doesn't.

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts the ListenAndServe pattern to Serve
  - Configurable shutdown timeout for draining connections

Relay Connection (RelayConnectionService):
  - Keeps the relay mesh's shared NATS connection (and optional
    embedded server) alive until the supervisor tree shuts down
  - The Mirror subscriber is registered separately, since it already
    implements Serve directly

# Usage Example

	import (
	    "net/http"
	    "time"

	    "github.com/tomtom215/cartographus/internal/supervisor"
	    "github.com/tomtom215/cartographus/internal/supervisor/services"
	)

	func setupSupervisor(server *http.Server, relay *RelayComponents) {
	    tree, _ := supervisor.NewSupervisorTree(logger, config)

	    httpSvc := services.NewHTTPServerService(server, 10*time.Second)
	    tree.AddAPIService(httpSvc)

	    if relay != nil {
	        tree.AddMessagingService(services.NewRelayConnectionService(relay))
	        tree.AddMessagingService(relay.Mirror)
	    }

	    tree.Root().Serve(ctx)
	}

# Lifecycle Patterns

ListenAndServe Pattern:

	type Listener interface {
	    ListenAndServe() error
	    Shutdown(ctx context.Context) error
	}

	// Wrapped as:
	func (s *Service) Serve(ctx context.Context) error {
	    go s.server.ListenAndServe()
	    <-ctx.Done()
	    return s.server.Shutdown(shutdownCtx)
	}

Shutdowner Pattern:

	type Shutdowner interface {
	    Shutdown(ctx context.Context)
	}

	// Wrapped as:
	func (s *Service) Serve(ctx context.Context) error {
	    <-ctx.Done()
	    s.component.Shutdown(shutdownCtx)
	    return ctx.Err()
	}

# Error Handling

Return values determine supervisor behavior:

	nil         -> Service stopped cleanly, will not restart
	error       -> Service crashed, supervisor will restart
	ctx.Err()   -> Shutdown requested, normal termination

# Service Identification

All services implement fmt.Stringer for logging:

	func (s *HTTPServerService) String() string {
	    return "http-server"
	}

Suture uses this for log messages:

	INFO http-server: starting
	INFO http-server: stopped
	ERROR http-server: restarting after failure

# Thread Safety

All service wrappers are safe for concurrent use:
  - State is protected by mutexes where needed
  - Context cancellation is handled atomically
  - Multiple Serve calls are not supported (undefined behavior)

# See Also

  - internal/supervisor: SupervisorTree that manages these services
  - github.com/thejerf/suture/v4: Underlying supervision library
  - internal/relaymesh: the relay mesh components RelayConnectionService wraps
*/
package services
