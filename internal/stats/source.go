// SPDX-License-Identifier: AGPL-3.0-or-later

package stats

import (
	"sync"
	"time"
)

// Source is the per-mount container of stats. It owns its own map of
// child Nodes and its own lock, separate from the source store's lock
// that guards the mount→Source mapping itself — see processor.go for the
// outer-then-inner lock discipline this enables.
type Source struct {
	mu sync.RWMutex

	Mount    string
	Flags    Flags
	Updated  time.Time // expiry deadline consulted by purge
	children *orderedMap[*Node]
}

func newSource(mount string, flags Flags, now time.Time) *Source {
	return &Source{
		Mount:    mount,
		Flags:    flags,
		Updated:  now,
		children: newOrderedMap[*Node](),
	}
}

// get returns a child node by name. Caller must hold at least a read lock.
func (s *Source) get(name string) (*Node, bool) {
	return s.children.get(name)
}

// setHidden toggles the Hidden flag on the source and propagates it to
// every child, per the invariant that a child's Hidden bit always equals
// its source's Hidden bit.
func (s *Source) setHidden(hidden bool) {
	if hidden {
		s.Flags = s.Flags.Set(Hidden)
	} else {
		s.Flags = s.Flags.Clear(Hidden)
	}
	s.children.each(func(_ string, n *Node) {
		if hidden {
			n.Flags = n.Flags.Set(Hidden)
		} else {
			n.Flags = n.Flags.Clear(Hidden)
		}
	})
}

// hasFallback reports whether the source carries a "fallback" child stat,
// which suppresses whole-source removal per spec.md §4.1/§4.7.
func (s *Source) hasFallback() bool {
	_, ok := s.children.get("fallback")
	return ok
}

// serverType returns the source's server_type child value, or def if the
// source has none, used when announcing NEW on a hidden->visible
// transition.
func (s *Source) serverType(def string) string {
	if n, ok := s.children.get("server_type"); ok {
		return n.Value
	}
	return def
}
