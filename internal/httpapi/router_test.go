// SPDX-License-Identifier: AGPL-3.0-or-later

package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/cartographus/internal/stats"
	"github.com/tomtom215/cartographus/internal/wsdash"
)

func testRouter(t *testing.T) (http.Handler, *TokenIssuer) {
	t.Helper()
	engine := stats.Initialize(stats.DefaultEngineConfig())
	t.Cleanup(engine.Shutdown)

	hub := wsdash.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Serve(ctx) //nolint:errcheck // test-only background loop

	issuer, err := NewTokenIssuer("a-secret-at-least-this-long", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	router := NewRouter(RouterConfig{
		Engine:      engine,
		Hub:         hub,
		Issuer:      issuer,
		AdminSecret: "shared-admin-secret",
		Middleware: MiddlewareConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   1000,
			RateLimitWindow: time.Minute,
		},
	})
	return router, issuer
}

func TestRouterHealthzIsOpen(t *testing.T) {
	router, _ := testRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestRouterAdminStatsXMLRequiresBearerToken(t *testing.T) {
	router, _ := testRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/admin/stats.xml")
	if err != nil {
		t.Fatalf("GET /admin/stats.xml: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}

func TestRouterLoginThenAdminStatsXML(t *testing.T) {
	router, _ := testRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	loginBody, _ := json.Marshal(loginRequest{Secret: "shared-admin-secret"})
	resp, err := http.Post(srv.URL+"/admin/login", "application/json", strings.NewReader(string(loginBody)))
	if err != nil {
		t.Fatalf("POST /admin/login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from login, got %d", resp.StatusCode)
	}
	var login loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		t.Fatalf("decode login response: %v", err)
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/admin/stats.xml", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+login.Token)

	statsResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /admin/stats.xml with token: %v", err)
	}
	defer statsResp.Body.Close()
	if statsResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", statsResp.StatusCode)
	}
}

func TestRouterWSDashboardUpgrades(t *testing.T) {
	router, _ := testRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/dashboard"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial /ws/dashboard: %v", err)
	}
	defer resp.Body.Close()
	defer conn.Close()
}
