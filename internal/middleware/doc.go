// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package middleware provides HTTP middleware not tied to Chi's router.

Request ID tracking and Prometheus instrumentation now live in
internal/httpapi/middleware.go, built directly against Chi's route
context; this package keeps only Compression, the one piece that has
no dependency on the router and is reused as-is.

Usage:

	import "github.com/tomtom215/cartographus/internal/middleware"

	r.Use(middleware.Compression)

Compression skips WebSocket upgrades. internal/httpapi's router applies
it only to /admin/stats.xml and /admin/streams, and leaves the
/admin/stats subscriber feed unwrapped so its frames are not buffered.
*/
package middleware
