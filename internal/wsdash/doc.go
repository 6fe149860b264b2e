// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package wsdash serves the live admin dashboard over WebSocket
(spec.md §6 / SPEC_FULL.md §10.2): a Hub of browser clients fed by a
Bridge that registers an ordinary internal/stats.Subscriber and
translates its line-protocol frames (EVENT/NEW/DELETE/FLUSH/INFO) into
JSON Messages, the same wire event a relay slave would otherwise parse
by hand.

The Hub and Client types are adapted from the teacher's websocket
package: deterministic ID-ordered broadcast, a register/unregister
channel pair, and a gorilla/websocket read/write pump per connection.
Bridge replaces the teacher's event-sourcing fan-in with a single
stats.Subscriber whose queue is drained on the same cadence the line
protocol itself uses (stats.NextSendDelay).
*/
package wsdash
