// SPDX-License-Identifier: AGPL-3.0-or-later

package services

import (
	"context"
	"time"
)

// RelayShutdowner matches the Shutdown(ctx) lifecycle both the
// nats-tagged and stub cmd/server.RelayComponents expose, so this
// wrapper needs no build tag of its own even though the relay mesh it
// guards does.
type RelayShutdowner interface {
	Shutdown(ctx context.Context)
}

// RelayConnectionService keeps a relay mesh's shared NATS connection
// (and optional embedded server) alive for the supervisor tree's
// lifetime, tearing it down on shutdown. The Mirror subscriber is
// registered separately as its own suture.Service, since it already
// implements Serve directly; this wrapper only owns the connection the
// mirror's publisher depends on.
type RelayConnectionService struct {
	components      RelayShutdowner
	shutdownTimeout time.Duration
	name            string
}

// NewRelayConnectionService wraps components for supervisor registration.
func NewRelayConnectionService(components RelayShutdowner) *RelayConnectionService {
	return &RelayConnectionService{
		components:      components,
		shutdownTimeout: 10 * time.Second,
		name:            "relay-connection",
	}
}

// Serve implements suture.Service: it blocks until ctx is canceled,
// then tears down the relay mesh connection with a fresh shutdown
// context.
func (s *RelayConnectionService) Serve(ctx context.Context) error {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.components.Shutdown(shutdownCtx)

	return ctx.Err()
}

// String implements fmt.Stringer for logging.
func (s *RelayConnectionService) String() string {
	return s.name
}
