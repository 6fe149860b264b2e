// SPDX-License-Identifier: AGPL-3.0-or-later

package stats

import (
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/cartographus/internal/logging"
)

// infiniteRetention is added to "now" to give a held source an expiry
// deadline purge will never reach while a publisher holds its Handle,
// matching the original's "set expiry to effectively infinity".
const infiniteRetention = 100 * 365 * 24 * time.Hour

// Handle is the batched per-source update API spec.md §4.6 describes: a
// source publisher obtains one via Engine.Handle, performs any number of
// Set/SetInc/SetFlags/SetTime/SetConv/SetExpire calls against it with
// the source's inner map write-locked throughout, then calls Release.
type Handle struct {
	engine *Engine
	src    *Source
	mount  string
}

// Handle implicitly creates the source if it does not exist, sets its
// expiry deadline to effectively infinity, and returns with the
// source's inner map write-locked.
func (e *Engine) Handle(mount string) *Handle {
	now := e.now()
	src := e.store.sourceOrCreate(mount, now)
	src.mu.Lock()
	src.Updated = now.Add(infiniteRetention)
	return &Handle{engine: e, src: src, mount: mount}
}

// Lock re-acquires a previously released handle without repeating the
// source-store lookup, per spec.md's lock(handle, mount) entry point.
func (h *Handle) Lock() {
	h.src.mu.Lock()
}

// Release drops the write lock acquired by Handle or Lock.
func (h *Handle) Release() {
	h.src.mu.Unlock()
}

func (h *Handle) apply(ev Event) {
	now := h.engine.now()
	msgs, _ := applySourceStat(h.src, ev, now, h.engine.cfg.RegularThrottle)
	h.engine.fanout(msgs, now)
}

// Set replaces name's value, preserving its existing flags (or using
// flags if the node does not yet exist).
func (h *Handle) Set(name, value string, flags Flags) {
	h.apply(Event{Name: name, Value: value, Flags: flags, Action: ActionSet})
}

// SetInc increments name by 1; a missing node counts up from "0" and
// is created at "1".
func (h *Handle) SetInc(name string) {
	h.apply(Event{Name: name, Action: ActionInc})
}

// SetFlags overwrites name's flags, creating the node with an empty
// value if it does not yet exist.
func (h *Handle) SetFlags(name string, flags Flags) {
	n, exists := h.src.get(name)
	if !exists {
		h.src.children.set(name, &Node{Name: name, Value: "", Flags: flags})
		return
	}
	n.Flags = flags
}

// SetTime stores the current Unix time as name's decimal value.
func (h *Handle) SetTime(name string) {
	h.apply(Event{Name: name, Value: strconv.FormatInt(h.engine.now().Unix(), 10), Action: ActionSet})
}

// SetConv stores value after normalizing any textual XML entities it
// already carries (the &amp;/&lt;/&gt;/&quot;/&apos; forms), matching
// the original's stats_set_entity_decode path taken before charset
// conversion. charset is accepted for signature compatibility with the
// inbound API; this reimplementation assumes UTF-8 throughout and logs
// a warning rather than attempting conversion for anything else.
func (h *Handle) SetConv(name, value, charset string) {
	if charset != "" && !strings.EqualFold(charset, "utf-8") && !strings.EqualFold(charset, "utf8") {
		logging.Warn().Str("mount", h.mount).Str("charset", charset).Msg("unsupported charset in stat write, dropping")
		return
	}
	h.apply(Event{Name: name, Value: decodeEntities(value), Action: ActionSet})
}

// SetExpire sets the source's purge deadline to now + ttl.
func (h *Handle) SetExpire(ttl time.Duration) {
	h.src.Updated = h.engine.now().Add(ttl)
}

// Flush drops all child stats while keeping the source node itself, and
// emits a single FLUSH line instead of one DELETE per child.
func (h *Handle) Flush() {
	h.src.children = newOrderedMap[*Node]()
	h.engine.fanout([]broadcastMsg{{line: flushLine(h.mount), flags: h.src.Flags}}, h.engine.now())
}

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
)

// decodeEntities normalizes the small set of textual XML entities a
// caller may have pre-encoded before handing a value to the stats core,
// matching contains_xml_entity/stats_set_entity_decode in the original.
func decodeEntities(s string) string {
	if !strings.ContainsRune(s, '&') {
		return s
	}
	return entityReplacer.Replace(s)
}
