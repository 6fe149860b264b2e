// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build nats

package relaymesh

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// EmbeddedServer wraps an in-process NATS/JetStream server for
// single-instance deployments with no external NATS cluster.
type EmbeddedServer struct {
	server    *server.Server
	clientURL string
}

// NewEmbeddedServer starts an embedded JetStream server and waits up to
// 30 seconds for it to accept connections.
func NewEmbeddedServer(cfg ServerConfig) (*EmbeddedServer, error) {
	opts := &server.Options{
		ServerName:         "relaymesh",
		Host:               cfg.Host,
		Port:               cfg.Port,
		JetStream:          true,
		StoreDir:           cfg.StoreDir,
		JetStreamMaxMemory: cfg.JetStreamMaxMem,
		JetStreamMaxStore:  cfg.JetStreamMaxStore,
		DontListen:         false,
		MaxPayload:         8 * 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create embedded NATS server: %w", err)
	}
	ns.ConfigureLogger()
	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server not ready within timeout")
	}

	return &EmbeddedServer{server: ns, clientURL: ns.ClientURL()}, nil
}

// ClientURL returns the connection URL for in-process clients.
func (s *EmbeddedServer) ClientURL() string { return s.clientURL }

// Shutdown stops the server, waiting for ctx or full shutdown.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	s.server.Shutdown()
	done := make(chan struct{})
	go func() {
		s.server.WaitForShutdown()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Running reports the server's health status.
func (s *EmbeddedServer) Running() bool { return s.server.Running() }
