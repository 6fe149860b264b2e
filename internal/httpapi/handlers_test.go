// SPDX-License-Identifier: AGPL-3.0-or-later

package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/stats"
	"github.com/tomtom215/cartographus/internal/wsdash"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

func testHandler(t *testing.T) *Handler {
	t.Helper()
	engine := stats.Initialize(stats.DefaultEngineConfig())
	t.Cleanup(engine.Shutdown)

	issuer, err := NewTokenIssuer("a-secret-at-least-this-long", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return NewHandler(engine, wsdash.NewHub(), issuer, "shared-admin-secret", nil)
}

func TestHealthReportsOK(t *testing.T) {
	h := testHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	h.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestLoginAcceptsCorrectSecret(t *testing.T) {
	h := testHandler(t)
	body, _ := json.Marshal(loginRequest{Secret: "shared-admin-secret"})
	req := httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a non-empty token")
	}
}

func TestLoginRejectsWrongSecret(t *testing.T) {
	h := testHandler(t)
	body, _ := json.Marshal(loginRequest{Secret: "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestStatsXMLReturnsIcestatsDocument(t *testing.T) {
	h := testHandler(t)
	h.Engine.EventFlags("", "clients", "5", stats.General|stats.Counters)

	req := httptest.NewRequest(http.MethodGet, "/admin/stats.xml", nil)
	rec := httptest.NewRecorder()

	h.StatsXML(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("<icestats>")) {
		t.Fatalf("expected <icestats> root, got %s", rec.Body.String())
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("<clients>5</clients>")) {
		t.Fatalf("expected clients stat in body, got %s", rec.Body.String())
	}
}

func TestStreamsListsVisibleMounts(t *testing.T) {
	h := testHandler(t)
	h.Engine.EventFlags("/stream1", "listeners", "0", stats.General)

	req := httptest.NewRequest(http.MethodGet, "/admin/streams", nil)
	rec := httptest.NewRecorder()

	h.Streams(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("/stream1")) {
		t.Fatalf("expected /stream1 in streamlist, got %s", rec.Body.String())
	}
}
