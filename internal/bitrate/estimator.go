// SPDX-License-Identifier: AGPL-3.0-or-later

package bitrate

import (
	"sync"
	"time"
)

// defaultSmoothing is the EWMA weight given to each new sample; lower
// values smooth out bursty writes more aggressively. 0.3 tracks a
// source's actual send rate within a few samples without being jumpy
// from one oversized frame.
const defaultSmoothing = 0.3

// Tracker smooths a byte-rate signal into kbit/s with an exponentially
// weighted moving average. Safe for concurrent use: Sample is typically
// called from each source's send path while SampleKbitrate is called
// once a second by global_calc.
type Tracker struct {
	mu         sync.Mutex
	smoothing  float64
	lastSample time.Time
	ewmaBps    float64
}

// NewTracker builds a Tracker using defaultSmoothing.
func NewTracker() *Tracker {
	return &Tracker{smoothing: defaultSmoothing}
}

// NewTrackerWithSmoothing builds a Tracker with a custom EWMA weight in
// (0, 1]; higher values track bursts more closely, lower values smooth
// more. Invalid values fall back to defaultSmoothing.
func NewTrackerWithSmoothing(smoothing float64) *Tracker {
	if smoothing <= 0 || smoothing > 1 {
		smoothing = defaultSmoothing
	}
	return &Tracker{smoothing: smoothing}
}

// Sample records n bytes written at now, updating the smoothed rate
// against the elapsed time since the previous sample. The first sample
// after construction or Reset only seeds lastSample; it contributes no
// rate until a second sample arrives to measure an interval against. A
// long gap between samples is measured as one ordinary interval.
func (t *Tracker) Sample(n int, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.lastSample.IsZero() {
		t.lastSample = now
		return
	}
	elapsed := now.Sub(t.lastSample).Seconds()
	t.lastSample = now
	if elapsed <= 0 {
		return
	}

	instBps := float64(n) / elapsed
	if t.ewmaBps == 0 {
		t.ewmaBps = instBps
		return
	}
	t.ewmaBps = t.smoothing*instBps + (1-t.smoothing)*t.ewmaBps
}

// SampleKbitrate returns the current smoothed rate in kbit/s, rounded to
// the nearest integer, matching the decimal-text shape global_calc
// writes into outgoing_kbitrate.
func (t *Tracker) SampleKbitrate() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int64((t.ewmaBps*8)/1000 + 0.5)
}

// Reset clears the tracker back to its zero state, used when a source
// disconnects and a later publisher on the same mount should not inherit
// a stale rate.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSample = time.Time{}
	t.ewmaBps = 0
}
