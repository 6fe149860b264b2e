// SPDX-License-Identifier: AGPL-3.0-or-later

package relaymesh

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/cartographus/internal/apperrors"
	"github.com/tomtom215/cartographus/internal/stats"
)

func TestParseEnvelopeEvent(t *testing.T) {
	env, ok := parseEnvelope("EVENT global clients 3")
	if !ok || env.Type != EnvelopeEvent || env.Scope != "global" || env.Name != "clients" || env.Value != "3" {
		t.Fatalf("unexpected parse: %#v ok=%v", env, ok)
	}
}

func TestParseEnvelopeNew(t *testing.T) {
	env, ok := parseEnvelope("NEW audio/mpeg /stream")
	if !ok || env.Type != EnvelopeNew || env.ServerType != "audio/mpeg" || env.Mount != "/stream" {
		t.Fatalf("unexpected parse: %#v ok=%v", env, ok)
	}
}

func TestParseEnvelopeDeleteWhole(t *testing.T) {
	env, ok := parseEnvelope("DELETE /stream")
	if !ok || env.Type != EnvelopeDelete || env.Scope != "/stream" || env.Name != "" {
		t.Fatalf("unexpected parse: %#v ok=%v", env, ok)
	}
}

func TestParseEnvelopeUnknownVerbRejected(t *testing.T) {
	if _, ok := parseEnvelope("GARBAGE x"); ok {
		t.Fatal("expected unknown verb to be rejected")
	}
}

// In a non-nats build, Publisher is the stub and every Publish call
// reports apperrors.ErrRelayDisabled; Mirror.Serve must surface that
// immediately instead of looping forever or masking it as a transient
// publish failure.
func TestMirrorServeStopsWhenRelayDisabled(t *testing.T) {
	engine := stats.Initialize(stats.DefaultEngineConfig())
	pub := &Publisher{}
	mirror := &Mirror{Engine: engine, Publisher: pub, Subject: "stats.events", Mask: stats.Public | stats.General}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- mirror.Serve(ctx) }()

	// Give the subscriber a registration snapshot to drain and publish.
	engine.EventFlags("", "clients", "1", stats.General|stats.Counters)

	select {
	case err := <-errCh:
		if !errors.Is(err, apperrors.ErrRelayDisabled) {
			t.Fatalf("expected ErrRelayDisabled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for mirror to stop")
	}
}
