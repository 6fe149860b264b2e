// SPDX-License-Identifier: AGPL-3.0-or-later

package relaymesh

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cartographus/internal/apperrors"
	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/stats"
)

// Envelope is the JSON shape published for each mirrored wire event.
// Field usage depends on Type: Event fills Scope/Name/Value, New fills
// ServerType/Mount, Delete fills Scope/optional Name, Flush/Info fill
// Message.
type Envelope struct {
	Type       string `json:"type"`
	Scope      string `json:"scope,omitempty"`
	Name       string `json:"name,omitempty"`
	Value      string `json:"value,omitempty"`
	ServerType string `json:"server_type,omitempty"`
	Mount      string `json:"mount,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Envelope type discriminants, matching the wire protocol verbs in
// internal/stats/wire.go.
const (
	EnvelopeEvent  = "event"
	EnvelopeNew    = "new"
	EnvelopeDelete = "delete"
	EnvelopeFlush  = "flush"
	EnvelopeInfo   = "info"
)

// Mirror drains one internal/stats.Subscriber's line-protocol queue and
// republishes each line as a JSON Envelope on Publisher, the same
// "register an ordinary subscriber" approach internal/wsdash.Bridge
// uses for its browser feed. Mirror is a suture.Service; its Publisher
// field is satisfied by both the nats-tagged Publisher and the
// !nats-tagged stub, so it builds and runs either way.
type Mirror struct {
	Engine    *stats.Engine
	Publisher *Publisher
	Subject   string
	Mask      stats.Flags
}

func (m *Mirror) String() string { return "relaymesh-mirror" }

// Serve registers a subscriber and forwards its frames as JSON
// envelopes until ctx is canceled, the subscriber is evicted, or the
// publisher is permanently unavailable (apperrors.ErrRelayDisabled in a
// non-nats build), in which case Serve exits without retrying.
func (m *Mirror) Serve(ctx context.Context) error {
	sub := m.Engine.RegisterSubscriber(m.Mask)
	defer m.Engine.UnregisterSubscriber(sub.ID)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		var buf bytes.Buffer
		written, hitBudget, err := sub.Send(&buf)
		if err != nil {
			return err
		}

		if err := m.publishChunk(ctx, buf.Bytes()); err != nil {
			if errors.Is(err, apperrors.ErrRelayDisabled) {
				return err
			}
			logging.Warn().Err(err).Msg("relay mesh publish failed")
		}

		if sub.Errored() {
			logging.Warn().Uint64("subscriber_id", sub.ID).Msg("relay mesh mirror subscriber evicted")
			return apperrors.ErrQueueOverflow
		}

		timer.Reset(stats.NextSendDelay(written, hitBudget))
	}
}

func (m *Mirror) publishChunk(ctx context.Context, chunk []byte) error {
	for _, line := range strings.Split(string(chunk), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		env, ok := parseEnvelope(line)
		if !ok {
			continue
		}
		payload, err := json.Marshal(env)
		if err != nil {
			return err
		}
		if err := m.Publisher.Publish(ctx, m.Subject, payload, map[string]string{"type": env.Type}); err != nil {
			return err
		}
	}
	return nil
}

func parseEnvelope(line string) (Envelope, bool) {
	verb, rest, ok := strings.Cut(line, " ")
	if !ok {
		return Envelope{}, false
	}
	switch verb {
	case "EVENT":
		scope, remainder, ok := strings.Cut(rest, " ")
		if !ok {
			return Envelope{}, false
		}
		name, value, ok := strings.Cut(remainder, " ")
		if !ok {
			return Envelope{}, false
		}
		return Envelope{Type: EnvelopeEvent, Scope: scope, Name: name, Value: value}, true

	case "DELETE":
		scope, name, _ := strings.Cut(rest, " ")
		return Envelope{Type: EnvelopeDelete, Scope: scope, Name: name}, true

	case "NEW":
		serverType, mount, ok := strings.Cut(rest, " ")
		if !ok {
			return Envelope{}, false
		}
		return Envelope{Type: EnvelopeNew, ServerType: serverType, Mount: mount}, true

	case "FLUSH":
		return Envelope{Type: EnvelopeFlush, Message: rest}, true

	case "INFO":
		return Envelope{Type: EnvelopeInfo, Message: rest}, true

	default:
		return Envelope{}, false
	}
}
