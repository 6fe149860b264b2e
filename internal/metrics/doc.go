// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package metrics provides Prometheus instrumentation for the stats engine:
event throughput by action/scope, subscriber fan-out health (queue sizes
and eviction reasons), purge activity, the admin HTTP surface, and the
optional relay mirror's publish success rate and circuit breaker state.

Metrics are declared as package-level vars via promauto, so registering
this package with prometheus.DefaultRegisterer happens automatically on
import, matching the convention used throughout this codebase.
*/
package metrics
