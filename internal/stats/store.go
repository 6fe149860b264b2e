// SPDX-License-Identifier: AGPL-3.0-or-later

package stats

import (
	"sync"
	"time"
)

// Store holds the global stat map and the mount->Source map. It is the
// process-wide data structure the event processor mutates; Engine wraps
// a Store with the subscriber list and housekeeping loops.
//
// Lock order is strictly outer-then-inner: acquire mu (the source store
// lock) before acquiring a Source's own mu, never the reverse. global
// has its own independent lock and is never nested under mu or a
// Source's lock.
type Store struct {
	globalMu sync.RWMutex
	global   *orderedMap[*Node]

	mu      sync.RWMutex
	sources *orderedMap[*Source]
}

// NewStore builds an empty store.
func NewStore() *Store {
	return &Store{
		global:  newOrderedMap[*Node](),
		sources: newOrderedMap[*Source](),
	}
}

// globalNode returns the global node by name, if present.
func (s *Store) globalNode(name string) (*Node, bool) {
	s.globalMu.RLock()
	defer s.globalMu.RUnlock()
	n, ok := s.global.get(name)
	return n, ok
}

// source returns the Source for mount, if present, without creating it.
func (s *Store) source(mount string) (*Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.sources.get(mount)
	return src, ok
}

// sourceOrCreate returns the Source for mount, creating it (and
// recording its expiry deadline as now) if it does not already exist.
func (s *Store) sourceOrCreate(mount string, now time.Time) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	if src, ok := s.sources.get(mount); ok {
		return src
	}
	src := newSource(mount, 0, now)
	s.sources.set(mount, src)
	return src
}

// removeSource drops mount from the source store unconditionally. Callers
// are responsible for checking the fallback-retention rule first.
func (s *Store) removeSource(mount string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources.delete(mount)
}

// eachSource calls fn for every source in mount order. It holds the
// source-store read lock for the duration; fn must not call back into
// any Store or Source mutating method.
func (s *Store) eachSource(fn func(src *Source)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.sources.each(func(_ string, src *Source) { fn(src) })
}

// eachGlobal calls fn for every global node in name order.
func (s *Store) eachGlobal(fn func(n *Node)) {
	s.globalMu.RLock()
	defer s.globalMu.RUnlock()
	s.global.each(func(_ string, n *Node) { fn(n) })
}
