// SPDX-License-Identifier: AGPL-3.0-or-later

package wsdash

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/cartographus/internal/stats"
)

func TestParseLineEvent(t *testing.T) {
	msg, ok := parseLine("EVENT global clients 3")
	if !ok {
		t.Fatal("expected EVENT line to parse")
	}
	data, ok := msg.Data.(EventData)
	if !ok || data.Scope != "global" || data.Name != "clients" || data.Value != "3" {
		t.Fatalf("unexpected parsed event data: %#v", msg.Data)
	}
}

func TestParseLineEventPreservesSpacesInValue(t *testing.T) {
	msg, ok := parseLine("EVENT /stream server_name My Cool Station")
	if !ok {
		t.Fatal("expected EVENT line to parse")
	}
	data := msg.Data.(EventData)
	if data.Value != "My Cool Station" {
		t.Fatalf("expected value to retain embedded spaces, got %q", data.Value)
	}
}

func TestParseLineDeleteWhole(t *testing.T) {
	msg, ok := parseLine("DELETE /stream")
	if !ok {
		t.Fatal("expected DELETE line to parse")
	}
	data := msg.Data.(DeleteData)
	if data.Scope != "/stream" || data.Name != "" {
		t.Fatalf("unexpected delete data: %#v", data)
	}
}

func TestParseLineNew(t *testing.T) {
	msg, ok := parseLine("NEW audio/mpeg /stream")
	if !ok {
		t.Fatal("expected NEW line to parse")
	}
	data := msg.Data.(NewData)
	if data.ServerType != "audio/mpeg" || data.Mount != "/stream" {
		t.Fatalf("unexpected new data: %#v", data)
	}
}

func TestParseLineInfo(t *testing.T) {
	msg, ok := parseLine("INFO full list end")
	if !ok || msg.Type != MessageTypeInfo || msg.Data != "full list end" {
		t.Fatalf("unexpected parse of INFO line: %#v ok=%v", msg, ok)
	}
}

func TestParseLineUnknownVerbIgnored(t *testing.T) {
	if _, ok := parseLine("GARBAGE nonsense"); ok {
		t.Fatal("expected unknown verb to be rejected")
	}
}

func TestBridgeForwardsEngineEventsToHub(t *testing.T) {
	engine := stats.Initialize(stats.DefaultEngineConfig())
	hub := NewHub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = hub.Serve(ctx) }()
	bridge := &Bridge{Engine: engine, Hub: hub, Mask: stats.Public | stats.General | stats.Counters}
	go func() { _ = bridge.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)

	client := createTestClient(hub)
	registerClient(hub, client)

	engine.EventFlags("", "clients", "1", stats.General|stats.Counters)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-client.send:
			if msg.Type == MessageTypeEvent {
				data := msg.Data.(EventData)
				if data.Scope == "global" && data.Name == "clients" && data.Value == "1" {
					return
				}
			}
		case <-deadline:
			t.Fatal("timed out waiting for bridged clients event")
		}
	}
}
