// SPDX-License-Identifier: AGPL-3.0-or-later

package stats

const (
	// frameCapacity is the size of a newly allocated frame buffer.
	frameCapacity = 4096
	// frameAppendCeiling is the point past which a tail frame is no
	// longer a candidate for further appends; a new frame is allocated
	// instead. Kept below frameCapacity so a single small write never
	// has to split across frames.
	frameAppendCeiling = 4000
)

// frame is one contiguous chunk of a subscriber's outbound byte stream.
// setup marks the fixed registration-header frame (see registration.go),
// which is never a target for coalescing further appends.
type frame struct {
	data  []byte
	setup bool
}

// frameNode links frames into the subscriber's FIFO.
type frameNode struct {
	f    *frame
	next *frameNode
}

// frameQueue is a singly-linked FIFO of frames with an explicit tail
// pointer for O(1) append, mirroring the intrusive list spec.md's design
// notes describe: O(1) append, O(1) pop-front, and splice-onto-head.
// frameQueue is not safe for concurrent use; Subscriber guards it with
// its own mutex.
type frameQueue struct {
	head, tail *frameNode
	bytes      int
}

// append writes b to the queue, coalescing into the tail frame when
// possible (not a setup frame, and appending would stay under
// frameAppendCeiling), otherwise allocating a fresh frame.
func (q *frameQueue) append(b []byte) {
	if q.tail != nil && !q.tail.f.setup && len(q.tail.f.data)+len(b) <= frameAppendCeiling {
		q.tail.f.data = append(q.tail.f.data, b...)
		q.bytes += len(b)
		return
	}
	buf := make([]byte, 0, frameCapacity)
	buf = append(buf, b...)
	q.appendFrame(&frame{data: buf})
}

// appendFrame links f at the tail verbatim, without attempting coalescing.
// Used for setup frames (the registration header) and for splicing.
func (q *frameQueue) appendFrame(f *frame) {
	n := &frameNode{f: f}
	if q.tail == nil {
		q.head, q.tail = n, n
	} else {
		q.tail.next = n
		q.tail = n
	}
	q.bytes += len(f.data)
}

// prependFrame pushes f onto the front of the queue, used to put back the
// unwritten remainder of a frame after a partial socket write.
func (q *frameQueue) prependFrame(f *frame) {
	n := &frameNode{f: f, next: q.head}
	q.head = n
	if q.tail == nil {
		q.tail = n
	}
	q.bytes += len(f.data)
}

// popFront removes and returns the first frame, if any.
func (q *frameQueue) popFront() (*frame, bool) {
	if q.head == nil {
		return nil, false
	}
	n := q.head
	q.head = n.next
	if q.head == nil {
		q.tail = nil
	}
	q.bytes -= len(n.f.data)
	return n.f, true
}

func (q *frameQueue) empty() bool {
	return q.head == nil
}

// spliceFront prepends other's frames to the front of q, leaving other
// empty. Used by the registration protocol to attach a detached snapshot
// frame list ahead of events that already queued during registration.
func (q *frameQueue) spliceFront(other *frameQueue) {
	if other.head == nil {
		return
	}
	other.tail.next = q.head
	if q.head == nil {
		q.tail = other.tail
	}
	q.head = other.head
	q.bytes += other.bytes
	other.head, other.tail, other.bytes = nil, nil, 0
}
