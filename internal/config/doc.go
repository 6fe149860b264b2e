// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package config provides centralized configuration for the relaycast stats
server.

# Configuration Sources

Configuration loads in three layers, each overriding the last:

 1. Defaults: built-in values matching the original stats engine's
    hard-coded constants (2 MB soft queue cap, 60 s slow-consumer age
    threshold, 6 MB hard cap, 9 s REGULAR throttle).
 2. Config file: an optional YAML file (config.yaml or CONFIG_PATH).
 3. Environment variables: highest priority, mapped from flat names
    (STATS_*, HTTP_*, NATS_*, LOG_* and a few security names such as
    ADMIN_BEARER_SECRET) onto the nested struct via koanf.

# Configuration Structure

  - StatsConfig: subscriber queue caps, REGULAR throttle, housekeeping
    cadences — the tunables spec.md's design notes ask to be
    configurable rather than hard-coded.
  - ServerConfig: HTTP listen address and timeouts.
  - SecurityConfig: the admin/relay bearer token secret.
  - NATSConfig: relay-slave mirroring via JetStream (nats build tag).

Config is immutable after Load(); nothing in this package supports
mutating a loaded Config in place.
*/
package config
