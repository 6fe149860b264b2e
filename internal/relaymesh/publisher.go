// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build nats

package relaymesh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/metrics"
)

// Publisher wraps a Watermill NATS publisher with circuit breaker
// protection, grounded on the teacher's eventprocessor.Publisher.
type Publisher struct {
	publisher      message.Publisher
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	mu             sync.RWMutex
	closed         bool
}

// NewPublisher creates a resilient Watermill NATS publisher configured
// for JetStream with message-ID deduplication.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	wmLogger := watermill.NewStdLogger(false, false)

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("relay mesh NATS connection lost")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("relay mesh NATS reconnected")
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			TrackMsgId:    cfg.EnableTrackMsgID,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create relay mesh publisher: %w", err)
	}

	return &Publisher{publisher: pub}, nil
}

// SetCircuitBreaker installs cb to guard Publish calls.
func (p *Publisher) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[interface{}]) {
	p.circuitBreaker = cb
}

// Publish sends payload to subject with circuit breaker protection and
// records the outcome against metrics.RelayPublishTotal/Errors. metadata
// entries become Watermill message metadata; the message UUID doubles
// as the NATS dedup header.
func (p *Publisher) Publish(ctx context.Context, subject string, payload []byte, metadata map[string]string) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("relay mesh publisher is closed")
	}
	p.mu.RUnlock()

	msg := message.NewMessage(watermill.NewUUID(), payload)
	for k, v := range metadata {
		msg.Metadata.Set(k, v)
	}
	msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)

	var err error
	if p.circuitBreaker != nil {
		_, err = p.circuitBreaker.Execute(func() (interface{}, error) {
			return nil, p.publisher.Publish(subject, msg)
		})
		metrics.SetRelayCircuitOpen(CircuitBreakerState(p.circuitBreaker) == "open")
	} else {
		err = p.publisher.Publish(subject, msg)
	}

	metrics.RecordRelayPublish(err)
	return err
}

// Close shuts the publisher down. Safe to call more than once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
