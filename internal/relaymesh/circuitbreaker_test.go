// SPDX-License-Identifier: AGPL-3.0-or-later

package relaymesh

import (
	"errors"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"
)

func TestNewCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("test-breaker"))
	if cb == nil {
		t.Fatal("expected non-nil circuit breaker")
	}
	if cb.Name() != "test-breaker" {
		t.Fatalf("expected name test-breaker, got %s", cb.Name())
	}
}

func TestCircuitBreakerStateStartsClosed(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("state-test"))
	if got := CircuitBreakerState(cb); got != "closed" {
		t.Fatalf("expected initial state closed, got %s", got)
	}
}

func TestExecuteWithBreakerSuccess(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("success-test"))
	result, err := ExecuteWithBreaker(cb, func() (interface{}, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Fatalf("expected ok, got %v", result)
	}
}

func TestExecuteWithBreakerPropagatesError(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("failure-test"))
	wantErr := errors.New("boom")
	_, err := ExecuteWithBreaker(cb, func() (interface{}, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestExecuteWithBreakerOpensAfterThreshold(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("trip-test")
	cfg.FailureThreshold = 2
	cb := NewCircuitBreaker(cfg)
	wantErr := errors.New("down")

	for i := 0; i < 2; i++ {
		_, _ = ExecuteWithBreaker(cb, func() (interface{}, error) { return nil, wantErr })
	}

	if got := CircuitBreakerState(cb); got != "open" {
		t.Fatalf("expected breaker to open after consecutive failures, got %s", got)
	}

	_, err := ExecuteWithBreaker(cb, func() (interface{}, error) { return "unused", nil })
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open-state error, got %v", err)
	}
}
