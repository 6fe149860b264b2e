// SPDX-License-Identifier: AGPL-3.0-or-later

package relaymesh

import "time"

// ServerConfig configures the optional embedded NATS/JetStream server,
// used for single-instance deployments with no external NATS cluster.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// DefaultServerConfig returns sensible defaults for an embedded server.
func DefaultServerConfig(storeDir string) ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          storeDir,
		JetStreamMaxMem:   256 << 20,
		JetStreamMaxStore: 2 << 30,
	}
}

// PublisherConfig configures the resilient NATS publisher.
type PublisherConfig struct {
	URL              string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool
	PublishTimeout   time.Duration
}

// DefaultPublisherConfig returns production defaults for the given URL.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024,
		EnableTrackMsgID: true,
		PublishTimeout:   2 * time.Second,
	}
}

// StreamConfig defines the JetStream stream that carries mirrored stat
// events.
type StreamConfig struct {
	Name            string
	Subject         string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultStreamConfig returns production defaults for subject.
func DefaultStreamConfig(subject string) StreamConfig {
	return StreamConfig{
		Name:            "STATS_EVENTS",
		Subject:         subject,
		MaxAge:          24 * time.Hour,
		MaxBytes:        1 << 30,
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// CircuitBreakerConfig holds circuit breaker settings for the publisher.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}
