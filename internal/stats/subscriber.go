// SPDX-License-Identifier: AGPL-3.0-or-later

package stats

import (
	"io"
	"sync"
	"time"
)

// SubscriberLimits bounds a subscriber's outbound queue. The constants
// come from the original's hard-coded 2 MB / 60 s / 6 MB; spec.md's
// design notes ask that a reimplementation make them configurable, so
// Engine wires these in from internal/config rather than hard-coding
// them here.
type SubscriberLimits struct {
	SoftCapBytes int
	SoftCapAge   time.Duration
	HardCapBytes int
}

// DefaultSubscriberLimits reproduces the original's hard-coded values.
func DefaultSubscriberLimits() SubscriberLimits {
	return SubscriberLimits{
		SoftCapBytes: 2 << 20,
		SoftCapAge:   60 * time.Second,
		HardCapBytes: 6 << 20,
	}
}

// Send pacing: a pass drains at most sendByteBudget bytes or
// sendFrameBudget frames before yielding back to the worker loop.
const (
	sendByteBudget  = 50 * 1024
	sendFrameBudget = 13
)

// Subscriber is a connected stat-streaming client: a relay slave or an
// admin monitor. Its queue is drained by Send, which a cooperative
// worker loop calls whenever the underlying socket is writable.
type Subscriber struct {
	ID              uint64
	Mask            Flags
	Admin           bool
	ConnectionStart time.Time

	limits SubscriberLimits

	mu    sync.Mutex
	queue frameQueue
	err   bool
}

// NewSubscriber creates a subscriber with the given mask and limits. A
// mask that includes Hidden marks the subscriber as admin, receiving
// every event regardless of flags.
func NewSubscriber(id uint64, mask Flags, limits SubscriberLimits, now time.Time) *Subscriber {
	return &Subscriber{
		ID:              id,
		Mask:            mask,
		Admin:           mask.Any(Hidden),
		ConnectionStart: now,
		limits:          limits,
	}
}

// Matches reports whether an event carrying evFlags should be delivered
// to this subscriber, per spec.md §4.1's fan-out rule.
func (s *Subscriber) Matches(evFlags Flags) bool {
	if s.Admin {
		return true
	}
	return !evFlags.Has(Hidden) && evFlags.Clear(Hidden).Any(s.Mask)
}

// deliver appends line to the subscriber's queue and evaluates the
// eviction policy. It reports whether this delivery tipped the
// subscriber into the error state (hard cap, or soft cap past the age
// threshold), in which case the caller should unregister it.
func (s *Subscriber) deliver(line []byte, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err {
		return true
	}
	s.queue.append(line)
	return s.checkCapsLocked(now)
}

func (s *Subscriber) checkCapsLocked(now time.Time) bool {
	if s.queue.bytes >= s.limits.HardCapBytes {
		s.err = true
		return true
	}
	if s.queue.bytes >= s.limits.SoftCapBytes && now.Sub(s.ConnectionStart) > s.limits.SoftCapAge {
		s.err = true
		return true
	}
	return false
}

// QueueBytes returns the current sum of queued frame lengths.
func (s *Subscriber) QueueBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.bytes
}

// Errored reports whether the subscriber has been marked for removal.
func (s *Subscriber) Errored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// MarkErrored force-flags the subscriber, e.g. on a socket write error
// observed by the caller outside of Send.
func (s *Subscriber) MarkErrored() {
	s.mu.Lock()
	s.err = true
	s.mu.Unlock()
}

// Send drains up to one pass's worth of queued frames to w. It returns
// the number of bytes written and whether the pass stopped because it
// hit the per-pass budget (as opposed to draining the queue empty),
// which the caller uses to pick the next reschedule delay (see
// NextSendDelay). A write error marks the subscriber errored and any
// unwritten remainder of the in-flight frame is preserved at the head of
// the queue so a future send (there won't be one, since the client is
// being destroyed) would not duplicate bytes.
func (s *Subscriber) Send(w io.Writer) (written int, hitBudget bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err {
		return 0, false, nil
	}
	frames := 0
	for written < sendByteBudget && frames < sendFrameBudget {
		f, ok := s.queue.popFront()
		if !ok {
			return written, false, nil
		}
		n, werr := w.Write(f.data)
		written += n
		if werr != nil {
			if n < len(f.data) {
				s.queue.prependFrame(&frame{data: f.data[n:], setup: f.setup})
			}
			s.err = true
			return written, false, werr
		}
		frames++
	}
	return written, true, nil
}

// NextSendDelay implements the reschedule policy from spec.md §4.3: a
// pass that drained the queue without hitting the budget waits the
// longer idle interval; a pass that hit the per-pass cap reschedules
// sooner, scaled by how much it sent.
func NextSendDelay(bytesSent int, hitBudget bool) time.Duration {
	if !hitBudget {
		return 80 * time.Millisecond
	}
	return 5*time.Millisecond + time.Duration(bytesSent/2048)*time.Millisecond
}
