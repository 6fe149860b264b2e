// SPDX-License-Identifier: AGPL-3.0-or-later

package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenIssuerRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer("a-secret-at-least-this-long", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	token, err := issuer.Issue("admin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := issuer.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "admin" {
		t.Fatalf("expected subject 'admin', got %q", claims.Subject)
	}
}

func TestNewTokenIssuerRejectsEmptySecret(t *testing.T) {
	if _, err := NewTokenIssuer("", time.Minute); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestTokenIssuerValidateRejectsTamperedToken(t *testing.T) {
	issuer, _ := NewTokenIssuer("a-secret-at-least-this-long", time.Minute)
	token, _ := issuer.Issue("admin")

	if _, err := issuer.Validate(token + "x"); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}
}

func TestTokenIssuerValidateRejectsDifferentSecret(t *testing.T) {
	issuerA, _ := NewTokenIssuer("secret-one-long-enough", time.Minute)
	issuerB, _ := NewTokenIssuer("secret-two-long-enough", time.Minute)

	token, _ := issuerA.Issue("admin")
	if _, err := issuerB.Validate(token); err == nil {
		t.Fatal("expected token signed by a different secret to be rejected")
	}
}

func TestBearerAuthRejectsMissingHeader(t *testing.T) {
	issuer, _ := NewTokenIssuer("a-secret-at-least-this-long", time.Minute)
	handler := BearerAuth(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/stats.xml", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestBearerAuthAcceptsValidToken(t *testing.T) {
	issuer, _ := NewTokenIssuer("a-secret-at-least-this-long", time.Minute)
	token, _ := issuer.Issue("admin")

	called := false
	handler := BearerAuth(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/stats.xml", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Fatal("expected handler to be called with a valid token")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
