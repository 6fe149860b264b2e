// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stats implements the live statistics engine: a concurrent
// hierarchical key/value store (a global map plus one map per mount)
// with subscription-based event streaming to long-lived HTTP clients,
// queued per-subscriber with backpressure.
package stats

import (
	"sync/atomic"
	"time"

	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/metrics"
)

// EngineConfig holds the tunables spec.md's design notes ask to be
// configurable rather than hard-coded: subscriber queue caps, the
// REGULAR re-broadcast throttle, and housekeeping cadences. Zero values
// are replaced with the original's hard-coded defaults.
type EngineConfig struct {
	SubscriberLimits SubscriberLimits
	RegularThrottle  time.Duration
	GlobalCalcPeriod time.Duration
	PurgeInterval    time.Duration
	PurgeRetention   time.Duration
}

// DefaultEngineConfig reproduces the original's hard-coded cadences.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		SubscriberLimits: DefaultSubscriberLimits(),
		RegularThrottle:  defaultRegularThrottle,
		GlobalCalcPeriod: time.Second,
		PurgeInterval:    time.Minute,
		PurgeRetention:   time.Minute,
	}
}

// Engine is the process-wide stats singleton: the store, the subscriber
// list, and the policy knobs that govern them. Construct one at server
// start with Initialize and thread it through callers (the inbound API
// in spec.md §6); Shutdown clears the subscriber list and runs after the
// supervisor tree that owns the housekeeping and subscriber goroutines
// has stopped, since nothing here relies on automatic cleanup at
// process exit.
type Engine struct {
	store  *Store
	subs   *subscriberList
	cfg    EngineConfig
	nextID atomic.Uint64
	now    func() time.Time
}

// Initialize constructs a ready-to-use Engine. It does not start the
// housekeeping loops; see GlobalCalcService and PurgeService for the
// suture.Service wrappers that do.
func Initialize(cfg EngineConfig) *Engine {
	if cfg.SubscriberLimits == (SubscriberLimits{}) {
		cfg.SubscriberLimits = DefaultSubscriberLimits()
	}
	if cfg.RegularThrottle == 0 {
		cfg.RegularThrottle = defaultRegularThrottle
	}
	if cfg.GlobalCalcPeriod == 0 {
		cfg.GlobalCalcPeriod = time.Second
	}
	if cfg.PurgeInterval == 0 {
		cfg.PurgeInterval = time.Minute
	}
	if cfg.PurgeRetention == 0 {
		cfg.PurgeRetention = time.Minute
	}
	return &Engine{
		store: NewStore(),
		subs:  newSubscriberList(),
		cfg:   cfg,
		now:   time.Now,
	}
}

// Shutdown releases engine-held resources. It does not block on
// in-flight subscriber sends; callers are expected to have already
// stopped the supervisor layer that owns those goroutines.
func (e *Engine) Shutdown() {
	e.subs.mu.Lock()
	e.subs.subs = make(map[uint64]*Subscriber)
	e.subs.mu.Unlock()
	metrics.SubscribersConnected.Set(0)
}

// Store exposes the underlying store for read-only collaborators
// (snapshot builders, the global_calc/purge housekeeping loops).
func (e *Engine) Store() *Store { return e.store }

// Process is the single entry point every stat mutation funnels
// through: it resolves whether ev targets the global store or a source,
// applies the locking discipline from spec.md §4.2/§5, mutates the
// store, and fans the resulting wire lines out to matching subscribers.
func (e *Engine) Process(ev Event) {
	now := e.now()
	scope := globalScope
	action := actionLabel(ev.Action)
	if ev.Source != "" {
		scope = "source"
	}
	defer metrics.RecordEvent(action, scope)

	var msgs []broadcastMsg
	outcome := outcomeApplied
	switch {
	case ev.Source == "":
		e.store.globalMu.Lock()
		msgs, outcome = applyGlobalStat(e.store.global, ev, now, e.cfg.RegularThrottle)
		e.store.globalMu.Unlock()

	case ev.Name == "" && ev.Action == ActionRemove:
		msgs = removeSourceWhole(e.store, ev.Source)

	case ev.Name == "" && ev.Action == ActionHidden:
		src := e.store.sourceOrCreate(ev.Source, now)
		src.mu.Lock()
		msgs = applySourceHiddenToggle(src, ev)
		src.mu.Unlock()

	default:
		src := e.store.sourceOrCreate(ev.Source, now)
		src.mu.Lock()
		msgs, outcome = applySourceStat(src, ev, now, e.cfg.RegularThrottle)
		src.mu.Unlock()
	}

	// outcomeApplied covers both an ordinary write and a global REGULAR
	// write whose broadcast is merely deferred to global_calc, so neither
	// is mistaken for a suppressed no-op or a dropped malformed value.
	switch outcome {
	case outcomeRegularUnchanged:
		metrics.RecordRegularSuppressed()
	case outcomeMalformedDropped:
		logging.Warn().Str("source", ev.Source).Str("name", ev.Name).Msg("dropping stat write with malformed UTF-8 value")
		metrics.RecordMalformedValueDropped()
	}

	e.fanout(msgs, now)
}

func actionLabel(a Action) string {
	switch a {
	case ActionSet:
		return "set"
	case ActionInc:
		return "inc"
	case ActionDec:
		return "dec"
	case ActionAdd:
		return "add"
	case ActionSub:
		return "sub"
	case ActionRemove:
		return "remove"
	case ActionHidden:
		return "hidden"
	default:
		return "unknown"
	}
}

func (e *Engine) fanout(msgs []broadcastMsg, now time.Time) {
	if len(msgs) == 0 {
		return
	}
	evicted := e.subs.fanout(msgs, now)
	for _, id := range evicted {
		logging.Warn().Uint64("subscriber_id", id).Msg("subscriber exceeded queue cap, marking for removal")
		metrics.RecordSubscriberEviction("queue_cap")
	}
}

// Event is a convenience wrapper equivalent to the original's
// event(source, name, value) inbound API entry point: a plain SET.
func (e *Engine) Event(source, name, value string) {
	e.Process(Event{Source: source, Name: name, Value: value, Action: ActionSet})
}

// EventFlags is the event_flags inbound API entry point: a SET that also
// carries flags, used the first time a stat is created.
func (e *Engine) EventFlags(source, name, value string, flags Flags) {
	e.Process(Event{Source: source, Name: name, Value: value, Flags: flags, Action: ActionSet})
}

// EventInc/EventDec/EventAdd/EventSub are the arithmetic inbound API
// entry points.
func (e *Engine) EventInc(source, name string) { e.Process(Event{Source: source, Name: name, Action: ActionInc}) }
func (e *Engine) EventDec(source, name string) { e.Process(Event{Source: source, Name: name, Action: ActionDec}) }
func (e *Engine) EventAdd(source, name, delta string) {
	e.Process(Event{Source: source, Name: name, Value: delta, Action: ActionAdd})
}
func (e *Engine) EventSub(source, name, delta string) {
	e.Process(Event{Source: source, Name: name, Value: delta, Action: ActionSub})
}

// EventRemove removes a single node, or (when name is empty) the whole
// source subject to the fallback-retention rule.
func (e *Engine) EventRemove(source, name string) {
	e.Process(Event{Source: source, Name: name, Action: ActionRemove})
}

// SetHidden toggles a source's Hidden bit; hidden selects the target
// state, and flags carries the mask used to gate the resulting NEW/
// DELETE broadcast.
func (e *Engine) SetHidden(source string, hidden bool, flags Flags) {
	f := flags
	if hidden {
		f = f.Set(Hidden)
	} else {
		f = f.Clear(Hidden)
	}
	e.Process(Event{Source: source, Action: ActionHidden, Flags: f})
}

// GetValue is the get_value inbound API entry point: a point-in-time
// read of a single stat, global when source is empty.
func (e *Engine) GetValue(source, name string) (string, bool) {
	if source == "" {
		n, ok := e.store.globalNode(name)
		if !ok {
			return "", false
		}
		return n.Value, true
	}
	src, ok := e.store.source(source)
	if !ok {
		return "", false
	}
	src.mu.RLock()
	defer src.mu.RUnlock()
	n, ok := src.get(name)
	if !ok {
		return "", false
	}
	return n.Value, true
}

// RegisterSubscriber runs the three-step registration protocol from
// spec.md §4.4 and returns the new Subscriber, already carrying its
// consistent initial snapshot plus any events that arrived during
// registration, with no duplicates and no gaps.
func (e *Engine) RegisterSubscriber(mask Flags) *Subscriber {
	now := e.now()
	id := e.nextID.Add(1)
	sub := NewSubscriber(id, mask, e.cfg.SubscriberLimits, now)

	// Step 1: insert at the head of the list before building the
	// snapshot, so every event accepted from this instant forward is
	// appended to sub's queue by the normal fan-out path.
	e.subs.register(sub)
	metrics.SubscribersConnected.Inc()

	// Step 2: build the detached snapshot+header frame list without
	// holding the subscribers-list lock.
	detached := buildRegistrationFrames(e.store, sub)

	// Step 3: splice the detached list onto the front of sub's live
	// queue, which may already hold events appended during step 2.
	e.subs.splice(sub, detached)

	return sub
}

// UnregisterSubscriber removes a subscriber from the list, e.g. on
// disconnect.
func (e *Engine) UnregisterSubscriber(id uint64) {
	e.subs.mu.Lock()
	_, known := e.subs.subs[id]
	e.subs.mu.Unlock()
	if !known {
		logging.Warn().Uint64("subscriber_id", id).Msg("unregister of unknown subscriber, ignoring")
		return
	}
	e.subs.unregister(id)
	metrics.SubscribersConnected.Dec()
}

// Subscribers returns a snapshot of currently registered subscribers,
// used by the send loop to iterate writable sockets.
func (e *Engine) Subscribers() []*Subscriber {
	return e.subs.snapshot()
}
