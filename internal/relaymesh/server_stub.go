// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !nats

package relaymesh

import (
	"context"

	"github.com/tomtom215/cartographus/internal/apperrors"
)

// EmbeddedServer is a stub used in non-nats builds.
type EmbeddedServer struct{}

// NewEmbeddedServer always fails in a non-nats build.
func NewEmbeddedServer(cfg ServerConfig) (*EmbeddedServer, error) {
	return nil, apperrors.ErrRelayDisabled
}

// ClientURL returns an empty string in the stub.
func (s *EmbeddedServer) ClientURL() string { return "" }

// Shutdown is a no-op stub.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error { return nil }

// Running always reports false in the stub.
func (s *EmbeddedServer) Running() bool { return false }
