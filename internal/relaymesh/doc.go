// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package relaymesh mirrors the stats engine's wire events onto a NATS
JetStream subject (SPEC_FULL.md §10.3), so a fleet of relay slaves or an
external analytics pipeline can consume the same EVENT/NEW/DELETE/FLUSH
stream a directly-attached subscriber sees, without holding an open HTTP
connection to this process.

Mirror adapts the same "register an ordinary stats.Subscriber and
translate its frames" approach as internal/wsdash.Bridge, then publishes
each translated event through a Publisher wrapping a Watermill NATS
publisher with circuit breaker protection, grounded on the teacher's
internal/eventprocessor package.

The publisher, embedded server, and stream initializer are only built
with the "nats" build tag, matching the teacher's convention: a non-nats
build gets working stub types that return apperrors.ErrRelayDisabled, so
the rest of the binary links and runs with mirroring simply turned off.
*/
package relaymesh
