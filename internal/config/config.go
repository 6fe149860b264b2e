// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/cartographus/internal/relaymesh"
)

// Config is the root configuration for the relaycast stats server.
// Thread Safety: Config is immutable after Load() returns; callers may
// share a single *Config across goroutines without synchronization.
type Config struct {
	Stats    StatsConfig    `koanf:"stats"`
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	NATS     NATSConfig     `koanf:"nats"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// StatsConfig holds the stats engine's own tunables: everything spec.md's
// design notes and open questions flag as "should be configurable in a
// reimplementation" rather than hard-coded.
type StatsConfig struct {
	// SubscriberSoftCapBytes and SubscriberSoftCapAge together gate the
	// slow-consumer eviction policy: a subscriber whose queue exceeds
	// the soft cap AND whose connection is older than the age threshold
	// is force-disconnected.
	SubscriberSoftCapBytes int           `koanf:"subscriber_soft_cap_bytes"`
	SubscriberSoftCapAge   time.Duration `koanf:"subscriber_soft_cap_age"`
	// SubscriberHardCapBytes disconnects a subscriber regardless of age.
	SubscriberHardCapBytes int `koanf:"subscriber_hard_cap_bytes"`

	// RegularThrottle bounds how often a REGULAR counter re-broadcasts
	// an unchanged value.
	RegularThrottle time.Duration `koanf:"regular_throttle"`

	// SendByteBudget and SendFrameBudget are loaded with the rest of
	// StatsConfig but are not passed to the stats engine; a subscriber
	// send pass always uses internal/stats's fixed 50 KiB / 13-frame
	// budget.
	SendByteBudget  int `koanf:"send_byte_budget"`
	SendFrameBudget int `koanf:"send_frame_budget"`

	// GlobalCalcPeriod and PurgeInterval/PurgeRetention drive the two
	// periodic housekeeping timers (§4.7).
	GlobalCalcPeriod time.Duration `koanf:"global_calc_period"`
	PurgeInterval    time.Duration `koanf:"purge_interval"`
	PurgeRetention   time.Duration `koanf:"purge_retention"`
}

// ServerConfig holds the HTTP listener's own settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// SecurityConfig holds the admin/relay bearer-token secret that gates
// internal/httpapi's /admin/* routes, the Go-native stand-in for the
// original's relay-password HTTP Basic Auth (see DESIGN.md's Open
// Question decision).
type SecurityConfig struct {
	AdminBearerSecret string        `koanf:"admin_bearer_secret"`
	TokenTTL          time.Duration `koanf:"token_ttl"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// NATSConfig drives the nats-tag relay-slave mirror (internal/relaymesh):
// a JetStream-backed broadcast of every stats wire line to downstream
// relay servers beyond the in-process subscriber list.
type NATSConfig struct {
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	StoreDir       string        `koanf:"store_dir"`
	Subject        string        `koanf:"subject"`
	DurableName    string        `koanf:"durable_name"`
	PublishTimeout time.Duration `koanf:"publish_timeout"`

	// Circuit breaker tunables, wrapping the JetStream publish call so a
	// wedged NATS connection degrades relay mirroring instead of
	// blocking the event processor (spec.md §5).
	BreakerMaxRequests uint32        `koanf:"breaker_max_requests"`
	BreakerInterval    time.Duration `koanf:"breaker_interval"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// LoggingConfig configures internal/logging's zerolog wrapper.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load loads configuration via the layered koanf precedence (defaults →
// YAML file → environment variables) and validates the result.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// Validate checks that required configuration is present and internally
// consistent.
func (c *Config) Validate() error {
	if err := c.Stats.validate(); err != nil {
		return err
	}
	if err := c.Server.validate(); err != nil {
		return err
	}
	if err := c.NATS.validate(); err != nil {
		return err
	}
	return c.Logging.validate()
}

func (s StatsConfig) validate() error {
	if s.SubscriberSoftCapBytes <= 0 {
		return fmt.Errorf("stats.subscriber_soft_cap_bytes must be positive, got %d", s.SubscriberSoftCapBytes)
	}
	if s.SubscriberHardCapBytes <= s.SubscriberSoftCapBytes {
		return fmt.Errorf("stats.subscriber_hard_cap_bytes (%d) must exceed subscriber_soft_cap_bytes (%d)",
			s.SubscriberHardCapBytes, s.SubscriberSoftCapBytes)
	}
	if s.RegularThrottle <= 0 {
		return fmt.Errorf("stats.regular_throttle must be positive, got %v", s.RegularThrottle)
	}
	if s.GlobalCalcPeriod <= 0 {
		return fmt.Errorf("stats.global_calc_period must be positive, got %v", s.GlobalCalcPeriod)
	}
	if s.PurgeInterval <= 0 {
		return fmt.Errorf("stats.purge_interval must be positive, got %v", s.PurgeInterval)
	}
	return nil
}

func (s ServerConfig) validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("server.port must be in 1-65535, got %d", s.Port)
	}
	if s.Host == "" {
		return fmt.Errorf("server.host must not be empty")
	}
	return nil
}

func (n NATSConfig) validate() error {
	if !n.Enabled {
		return nil
	}
	if n.URL == "" && !n.EmbeddedServer {
		return fmt.Errorf("nats.url is required when nats.enabled=true and nats.embedded_server=false")
	}
	if n.Subject == "" {
		return fmt.Errorf("nats.subject must not be empty when nats.enabled=true")
	}
	return nil
}

func (l LoggingConfig) validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug/info/warn/error, got %q", l.Level)
	}
	switch l.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", l.Format)
	}
	return nil
}

// EngineLimits extracts the subscriber queue caps in the shape
// internal/stats.SubscriberLimits expects. Kept here (rather than in
// internal/stats, which must not import internal/config back) so the
// wiring lives with the config it reads.
func (s StatsConfig) EngineLimits() (softCap, hardCap int, softAge time.Duration) {
	return s.SubscriberSoftCapBytes, s.SubscriberHardCapBytes, s.SubscriberSoftCapAge
}

// PublisherConfig builds an internal/relaymesh.PublisherConfig from this
// NATS section. Lives here, not in internal/relaymesh, so the mirror
// package stays free of any dependency on how its caller is configured.
func (n NATSConfig) PublisherConfig() relaymesh.PublisherConfig {
	cfg := relaymesh.DefaultPublisherConfig(n.URL)
	if n.PublishTimeout > 0 {
		cfg.PublishTimeout = n.PublishTimeout
	}
	return cfg
}

// StreamConfig builds an internal/relaymesh.StreamConfig targeting this
// section's subject.
func (n NATSConfig) StreamConfig() relaymesh.StreamConfig {
	return relaymesh.DefaultStreamConfig(n.Subject)
}

// CircuitBreakerConfig builds an internal/relaymesh.CircuitBreakerConfig
// from this section's breaker tunables.
func (n NATSConfig) CircuitBreakerConfig() relaymesh.CircuitBreakerConfig {
	cfg := relaymesh.DefaultCircuitBreakerConfig(n.DurableName)
	if n.BreakerMaxRequests > 0 {
		cfg.MaxRequests = n.BreakerMaxRequests
	}
	if n.BreakerInterval > 0 {
		cfg.Interval = n.BreakerInterval
	}
	if n.BreakerTimeout > 0 {
		cfg.Timeout = n.BreakerTimeout
	}
	return cfg
}

// ServerConfig builds an internal/relaymesh.ServerConfig for the
// optional embedded NATS server.
func (n NATSConfig) ServerConfig() relaymesh.ServerConfig {
	return relaymesh.DefaultServerConfig(n.StoreDir)
}
