// SPDX-License-Identifier: AGPL-3.0-or-later

package stats

import (
	"sync"
	"time"
)

// subscriberList is the unordered set of connected stat subscribers,
// guarded by a plain mutex per spec.md §4.2/§5 ("the subscribers list is
// guarded by a plain mutex").
type subscriberList struct {
	mu   sync.Mutex
	subs map[uint64]*Subscriber
}

func newSubscriberList() *subscriberList {
	return &subscriberList{subs: make(map[uint64]*Subscriber)}
}

func (l *subscriberList) register(s *Subscriber) {
	l.mu.Lock()
	l.subs[s.ID] = s
	l.mu.Unlock()
}

func (l *subscriberList) unregister(id uint64) {
	l.mu.Lock()
	delete(l.subs, id)
	l.mu.Unlock()
}

// fanout delivers every message in msgs to every current subscriber
// whose mask matches, and returns the IDs of subscribers that crossed
// their eviction threshold as a result. The subscribers-list lock is
// held for the duration, matching spec.md's ordering guarantee that
// within one subscriber's stream, events appear in processor-acceptance
// order because fan-out appends synchronously under this lock.
func (l *subscriberList) fanout(msgs []broadcastMsg, now time.Time) []uint64 {
	if len(msgs) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var evicted []uint64
	for id, sub := range l.subs {
		hit := false
		for _, m := range msgs {
			if !sub.Matches(m.flags) {
				continue
			}
			if sub.deliver(m.line, now) {
				hit = true
			}
		}
		if hit {
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// snapshot returns a defensive copy of the currently registered
// subscribers, used by Engine.Subscribers so callers can iterate them
// without holding the list lock.
func (l *subscriberList) snapshot() []*Subscriber {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Subscriber, 0, len(l.subs))
	for _, s := range l.subs {
		out = append(out, s)
	}
	return out
}

// splice acquires the subscribers-list lock and prepends detached onto
// sub's live queue, per step 3 of the registration protocol.
func (l *subscriberList) splice(sub *Subscriber, detached *frameQueue) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sub.mu.Lock()
	sub.queue.spliceFront(detached)
	sub.mu.Unlock()
}

// buildRegistrationFrames constructs the detached frame list for a new
// subscriber: the HTTP header, matching global stats, a NEW line per
// visible matching source, the "full list end" sentinel, then each
// matching source's child stats with metadata_updated last — the exact
// order spec.md §4.4 requires.
func buildRegistrationFrames(store *Store, sub *Subscriber) *frameQueue {
	q := &frameQueue{}
	q.appendFrame(&frame{data: []byte(registrationHeader), setup: true})

	store.eachGlobal(func(n *Node) {
		if sub.Matches(n.Flags) {
			q.append(eventLine(globalScope, n.Name, n.Value))
		}
	})

	type visibleSource struct {
		src *Source
	}
	var visible []visibleSource
	store.eachSource(func(src *Source) {
		src.mu.RLock()
		defer src.mu.RUnlock()
		if src.Flags.Has(Hidden) && !sub.Admin {
			return
		}
		if !sub.Matches(src.Flags) {
			return
		}
		visible = append(visible, visibleSource{src: src})
	})

	for _, v := range visible {
		v.src.mu.RLock()
		q.append(newLine(v.src.serverType("audio/mpeg"), v.src.Mount))
		v.src.mu.RUnlock()
	}

	q.append(infoLine("full list end"))

	for _, v := range visible {
		v.src.mu.RLock()
		var metadataLine []byte
		v.src.children.each(func(name string, n *Node) {
			if !sub.Matches(n.Flags) {
				return
			}
			line := eventLine(v.src.Mount, name, n.Value)
			if name == "metadata_updated" {
				metadataLine = line
				return
			}
			q.append(line)
		})
		if metadataLine != nil {
			q.append(metadataLine)
		}
		v.src.mu.RUnlock()
	}

	return q
}
