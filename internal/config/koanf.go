// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in
// priority order. The first one found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/relaycast/config.yaml",
	"/etc/relaycast/config.yml",
}

// ConfigPathEnvVar overrides the config file search with an exact path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig reproduces the original stats core's hard-coded
// constants (2 MB / 60 s / 6 MB queue caps, 9 s REGULAR throttle, 1 s
// global_calc, 1 minute purge) as the base layer every other source
// overrides.
func defaultConfig() *Config {
	return &Config{
		Stats: StatsConfig{
			SubscriberSoftCapBytes: 2 << 20,
			SubscriberSoftCapAge:   60 * time.Second,
			SubscriberHardCapBytes: 6 << 20,
			RegularThrottle:        9 * time.Second,
			SendByteBudget:         50 * 1024,
			SendFrameBudget:        13,
			GlobalCalcPeriod:       time.Second,
			PurgeInterval:          time.Minute,
			PurgeRetention:         time.Minute,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8000,
			Timeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			TokenTTL:        24 * time.Hour,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		NATS: NATSConfig{
			Enabled:            false,
			URL:                "nats://127.0.0.1:4222",
			EmbeddedServer:     true,
			StoreDir:           "/data/nats/jetstream",
			Subject:            "relaycast.stats.events",
			DurableName:        "relaycast-mirror",
			PublishTimeout:     2 * time.Second,
			BreakerMaxRequests: 1,
			BreakerInterval:    time.Minute,
			BreakerTimeout:     30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML config file, if found
//  3. Environment variables: override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config paths that arrive from the environment
// as comma-separated strings but must be unmarshaled as slices.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps flat STATS_-style environment variable names onto
// koanf's nested config paths.
var envMappings = map[string]string{
	"stats_subscriber_soft_cap_bytes": "stats.subscriber_soft_cap_bytes",
	"stats_subscriber_soft_cap_age":   "stats.subscriber_soft_cap_age",
	"stats_subscriber_hard_cap_bytes": "stats.subscriber_hard_cap_bytes",
	"stats_regular_throttle":          "stats.regular_throttle",
	"stats_send_byte_budget":          "stats.send_byte_budget",
	"stats_send_frame_budget":         "stats.send_frame_budget",
	"stats_global_calc_period":        "stats.global_calc_period",
	"stats_purge_interval":            "stats.purge_interval",
	"stats_purge_retention":           "stats.purge_retention",

	"http_host":    "server.host",
	"http_port":    "server.port",
	"http_timeout": "server.timeout",

	"admin_bearer_secret": "security.admin_bearer_secret",
	"token_ttl":           "security.token_ttl",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",

	"nats_enabled":         "nats.enabled",
	"nats_url":             "nats.url",
	"nats_embedded":        "nats.embedded_server",
	"nats_store_dir":       "nats.store_dir",
	"nats_subject":         "nats.subject",
	"nats_durable_name":    "nats.durable_name",
	"nats_publish_timeout": "nats.publish_timeout",
	"nats_breaker_max_requests": "nats.breaker_max_requests",
	"nats_breaker_interval":     "nats.breaker_interval",
	"nats_breaker_timeout":      "nats.breaker_timeout",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config
// paths; unmapped keys are skipped so random environment variables don't
// pollute the config.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
