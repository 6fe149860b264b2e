// SPDX-License-Identifier: AGPL-3.0-or-later

// Package apperrors collects the sentinel errors shared across the stats
// engine and its HTTP/relay surface, following the per-package errors.go
// convention the rest of this codebase uses.
package apperrors

import "errors"

var (
	// ErrSourceNotFound names a mount with no entry in the source store.
	// No function in this module returns it; Engine.GetValue reports a
	// missing source with ok=false.
	ErrSourceNotFound = errors.New("stats: source not found")

	// ErrStoreClosed names a stats store that can no longer serve a
	// request. Engine methods do not return it, even after
	// Engine.Shutdown; httpapi's StatsStream writes it when the
	// ResponseWriter cannot flush.
	ErrStoreClosed = errors.New("stats: store is shut down")

	// ErrSubscriberNotFound names an unknown subscriber ID. No function
	// in this module returns it; Engine.UnregisterSubscriber logs a
	// warning for an unknown ID instead.
	ErrSubscriberNotFound = errors.New("stats: subscriber not found")

	// ErrQueueOverflow is returned internally when a subscriber's frame
	// queue exceeds its hard cap; it is never surfaced to setter callers,
	// only used to drive eviction bookkeeping and logging.
	ErrQueueOverflow = errors.New("stats: subscriber queue overflow")

	// ErrInvalidMask names a zero subscriber flag mask, which would never
	// match any node. Engine.RegisterSubscriber does not return it and
	// accepts a zero mask.
	ErrInvalidMask = errors.New("stats: subscriber mask matches nothing")

	// ErrMissingBearerToken and ErrInvalidBearerToken gate the admin/relay
	// HTTP surface.
	ErrMissingBearerToken = errors.New("httpapi: missing bearer token")
	ErrInvalidBearerToken = errors.New("httpapi: invalid or expired bearer token")

	// ErrRelayDisabled is returned by the nats-tag stub when relay
	// mirroring is compiled out of the binary.
	ErrRelayDisabled = errors.New("relaymesh: not built with the nats tag")
)
