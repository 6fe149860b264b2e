// SPDX-License-Identifier: AGPL-3.0-or-later

package wsdash

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/tomtom215/cartographus/internal/apperrors"
	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/stats"
)

// Bridge drains one internal/stats.Subscriber's line-protocol queue and
// republishes each line to a Hub as a JSON Message. It is the
// suture.Service that stands in for a relay slave: to the Engine it
// looks like an ordinary subscriber, so it gets exactly the same
// registration snapshot, fan-out ordering, and eviction policy any
// other consumer of spec.md §4.4 would.
type Bridge struct {
	Engine *stats.Engine
	Hub    *Hub
	// Mask selects which flags this dashboard feed receives; pass
	// stats.Hidden|stats.General|... to also see operator-only state,
	// or omit Hidden to mirror a public viewer.
	Mask stats.Flags
}

func (b *Bridge) String() string { return "wsdash-bridge" }

// Serve registers a subscriber and forwards its frames until ctx is
// canceled or the subscriber is evicted for exceeding its queue caps.
func (b *Bridge) Serve(ctx context.Context) error {
	sub := b.Engine.RegisterSubscriber(b.Mask)
	defer b.Engine.UnregisterSubscriber(sub.ID)

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
		b.translate(buf.Bytes())

		if sub.Errored() {
			logging.Warn().Uint64("subscriber_id", sub.ID).Msg("dashboard bridge subscriber evicted")
			return apperrors.ErrQueueOverflow
		}

		timer.Reset(stats.NextSendDelay(written, hitBudget))
	}
}

// translate splits a drained chunk into wire-protocol lines and
// forwards each as a dashboard Message. Lines that don't match a known
// verb (the registration header's HTTP status/capability lines) are
// silently dropped; they carry no information a dashboard client needs.
func (b *Bridge) translate(chunk []byte) {
	for _, line := range strings.Split(string(chunk), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		if msg, ok := parseLine(line); ok {
			b.Hub.Broadcast(msg)
		}
	}
}

func parseLine(line string) (Message, bool) {
	verb, rest, ok := strings.Cut(line, " ")
	if !ok {
		return Message{}, false
	}
	switch verb {
	case "EVENT":
		scope, remainder, ok := strings.Cut(rest, " ")
		if !ok {
			return Message{}, false
		}
		name, value, ok := strings.Cut(remainder, " ")
		if !ok {
			return Message{}, false
		}
		return Message{Type: MessageTypeEvent, Data: EventData{Scope: scope, Name: name, Value: value}}, true

	case "DELETE":
		scope, name, _ := strings.Cut(rest, " ")
		return Message{Type: MessageTypeDelete, Data: DeleteData{Scope: scope, Name: name}}, true

	case "NEW":
		serverType, mount, ok := strings.Cut(rest, " ")
		if !ok {
			return Message{}, false
		}
		return Message{Type: MessageTypeNew, Data: NewData{ServerType: serverType, Mount: mount}}, true

	case "FLUSH":
		return Message{Type: MessageTypeFlush, Data: rest}, true

	case "INFO":
		return Message{Type: MessageTypeInfo, Data: rest}, true

	default:
		return Message{}, false
	}
}
