// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build nats

package relaymesh

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamContext is the subset of jetstream.JetStream StreamInitializer
// needs, narrowed for testability with a mock.
type JetStreamContext interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	UpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// StreamInitializer creates or updates the JetStream stream mirrored
// stat events are published to, idempotently.
type StreamInitializer struct {
	js     JetStreamContext
	config StreamConfig
}

// NewStreamInitializer validates its inputs and returns a ready
// initializer.
func NewStreamInitializer(js JetStreamContext, cfg StreamConfig) (*StreamInitializer, error) {
	if js == nil {
		return nil, fmt.Errorf("JetStream context required")
	}
	return &StreamInitializer{js: js, config: cfg}, nil
}

// EnsureStream creates the stream if absent, or updates it to match the
// configured settings if it already exists.
func (s *StreamInitializer) EnsureStream(ctx context.Context) (jetstream.Stream, error) {
	streamCfg := jetstream.StreamConfig{
		Name:        s.config.Name,
		Subjects:    []string{s.config.Subject},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      s.config.MaxAge,
		MaxBytes:    s.config.MaxBytes,
		MaxMsgs:     s.config.MaxMsgs,
		Duplicates:  s.config.DuplicateWindow,
		Replicas:    s.config.Replicas,
		Storage:     jetstream.FileStorage,
		AllowDirect: true,
		Discard:     jetstream.DiscardOld,
	}

	_, err := s.js.Stream(ctx, s.config.Name)
	if err == nil {
		stream, err := s.js.UpdateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("update stream %s: %w", s.config.Name, err)
		}
		return stream, nil
	}
	if errors.Is(err, jetstream.ErrStreamNotFound) {
		stream, err := s.js.CreateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("create stream %s: %w", s.config.Name, err)
		}
		return stream, nil
	}
	return nil, fmt.Errorf("check stream %s: %w", s.config.Name, err)
}
