// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !nats

package relaymesh

import (
	"context"

	"github.com/tomtom215/cartographus/internal/apperrors"
)

// StreamInitializer is a stub used in non-nats builds.
type StreamInitializer struct{}

// NewStreamInitializer always fails in a non-nats build.
func NewStreamInitializer(js interface{}, cfg StreamConfig) (*StreamInitializer, error) {
	return nil, apperrors.ErrRelayDisabled
}

// EnsureStream always fails in a non-nats build.
func (s *StreamInitializer) EnsureStream(ctx context.Context) (interface{}, error) {
	return nil, apperrors.ErrRelayDisabled
}
