// SPDX-License-Identifier: AGPL-3.0-or-later

package wsdash

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/tomtom215/cartographus/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

func setupHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Serve(ctx) }()
	time.Sleep(10 * time.Millisecond)
	return hub, cancel
}

func createTestClient(hub *Hub) *Client {
	return &Client{hub: hub, conn: nil, send: make(chan Message, 256)}
}

func registerClient(hub *Hub, client *Client) {
	hub.Register <- client
	time.Sleep(20 * time.Millisecond)
}

func TestNewHub(t *testing.T) {
	hub := NewHub()
	if hub.clients == nil || hub.broadcast == nil || hub.Register == nil || hub.Unregister == nil {
		t.Fatal("NewHub did not initialize all fields")
	}
	if hub.GetClientCount() != 0 {
		t.Fatal("new hub should have no clients")
	}
}

func TestHubRegisterAndUnregister(t *testing.T) {
	hub, cancel := setupHub(t)
	defer cancel()

	c1 := createTestClient(hub)
	c2 := createTestClient(hub)
	registerClient(hub, c1)
	registerClient(hub, c2)

	if got := hub.GetClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister <- c1
	time.Sleep(20 * time.Millisecond)

	if got := hub.GetClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}
}

func TestHubBroadcastDeliversToAllClients(t *testing.T) {
	hub, cancel := setupHub(t)
	defer cancel()

	c1 := createTestClient(hub)
	c2 := createTestClient(hub)
	registerClient(hub, c1)
	registerClient(hub, c2)

	hub.Broadcast(Message{Type: MessageTypeEvent, Data: EventData{Scope: "global", Name: "clients", Value: "3"}})

	for _, c := range []*Client{c1, c2} {
		select {
		case msg := <-c.send:
			if msg.Type != MessageTypeEvent {
				t.Fatalf("expected event message, got %q", msg.Type)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for broadcast delivery")
		}
	}
}

func TestHubBroadcastWithoutClientsDoesNotBlock(t *testing.T) {
	hub, cancel := setupHub(t)
	defer cancel()
	hub.Broadcast(Message{Type: MessageTypeInfo, Data: "full list end"})
	time.Sleep(10 * time.Millisecond)
}

func TestHubServeClosesClientsOnShutdown(t *testing.T) {
	hub, cancel := setupHub(t)
	c := createTestClient(hub)
	registerClient(hub, c)

	cancel()
	time.Sleep(20 * time.Millisecond)

	select {
	case _, ok := <-c.send:
		if ok {
			t.Fatal("expected send channel to be closed, got a value")
		}
	default:
		t.Fatal("expected send channel to be closed after shutdown")
	}
}
