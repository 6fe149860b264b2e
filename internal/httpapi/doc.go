// SPDX-License-Identifier: AGPL-3.0-or-later

// Package httpapi is the stats engine's HTTP admin surface: the XML
// snapshot and plain-text streamlist endpoints spec.md §4.5 describes,
// the line-protocol relay-slave registration endpoint of §4.4, and the
// browser-facing dashboard WebSocket upgrade, all behind the Chi
// middleware stack (CORS, rate limiting, bearer auth) the teacher repo
// builds its own admin API on (ADR-0016).
package httpapi
