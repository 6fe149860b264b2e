// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build nats

package main

import (
	"context"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/cartographus/internal/config"
	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/relaymesh"
	"github.com/tomtom215/cartographus/internal/stats"
)

// RelayComponents bundles the optional relay mesh: an embedded
// JetStream server (if configured), the NATS connection it shares with
// the stream initializer, and the Mirror subscriber that republishes
// every stats wire line as a JSON envelope.
type RelayComponents struct {
	embedded *relaymesh.EmbeddedServer
	conn     *natsgo.Conn
	Mirror   *relaymesh.Mirror
}

// InitRelayMesh wires the relay mesh when cfg.NATS.Enabled. It returns
// (nil, nil) when disabled; main adds the relay services to the
// supervisor tree only for a non-nil result with a non-nil Mirror.
func InitRelayMesh(cfg *config.Config, engine *stats.Engine) (*RelayComponents, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("relay mesh disabled (nats.enabled=false)")
		return nil, nil
	}

	logging.Info().Msg("initializing relay mesh")
	rc := &RelayComponents{}

	natsURL := cfg.NATS.URL
	if cfg.NATS.EmbeddedServer {
		server, err := relaymesh.NewEmbeddedServer(cfg.NATS.ServerConfig())
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		rc.embedded = server
		natsURL = server.ClientURL()
		logging.Info().Str("url", natsURL).Msg("embedded NATS server started")
	}

	conn, err := natsgo.Connect(natsURL,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
	)
	if err != nil {
		rc.Shutdown(context.Background())
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	rc.conn = conn

	js, err := jetstream.New(conn)
	if err != nil {
		rc.Shutdown(context.Background())
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	initializer, err := relaymesh.NewStreamInitializer(js, cfg.NATS.StreamConfig())
	if err != nil {
		rc.Shutdown(context.Background())
		return nil, fmt.Errorf("create stream initializer: %w", err)
	}
	if _, err := initializer.EnsureStream(context.Background()); err != nil {
		rc.Shutdown(context.Background())
		return nil, fmt.Errorf("ensure stream exists: %w", err)
	}

	publisher, err := relaymesh.NewPublisher(cfg.NATS.PublisherConfig())
	if err != nil {
		rc.Shutdown(context.Background())
		return nil, fmt.Errorf("create relay publisher: %w", err)
	}
	publisher.SetCircuitBreaker(relaymesh.NewCircuitBreaker(cfg.NATS.CircuitBreakerConfig()))

	rc.Mirror = &relaymesh.Mirror{
		Engine:    engine,
		Publisher: publisher,
		Subject:   cfg.NATS.Subject,
		Mask:      stats.Public | stats.General | stats.Counters,
	}

	logging.Info().Str("subject", cfg.NATS.Subject).Msg("relay mesh mirror ready")
	return rc, nil
}

// Shutdown tears down the NATS connection and embedded server, if any.
// Safe to call on a nil receiver.
func (rc *RelayComponents) Shutdown(ctx context.Context) {
	if rc == nil {
		return
	}
	if rc.conn != nil {
		rc.conn.Close()
	}
	if rc.embedded != nil {
		if err := rc.embedded.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("embedded NATS server shutdown error")
		}
	}
}
