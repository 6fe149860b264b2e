// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !nats

package relaymesh

import (
	"context"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/cartographus/internal/apperrors"
)

// Publisher is a stub used when the binary is built without the nats
// tag; every operation reports apperrors.ErrRelayDisabled so the rest
// of the binary links and runs with mirroring turned off.
type Publisher struct {
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
}

// NewPublisher always fails in a non-nats build.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	return nil, apperrors.ErrRelayDisabled
}

// SetCircuitBreaker stores cb; no stub operation uses it.
func (p *Publisher) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[interface{}]) {
	p.circuitBreaker = cb
}

// Publish always reports apperrors.ErrRelayDisabled.
func (p *Publisher) Publish(ctx context.Context, subject string, payload []byte, metadata map[string]string) error {
	return apperrors.ErrRelayDisabled
}

// Close is a no-op stub.
func (p *Publisher) Close() error { return nil }
