// SPDX-License-Identifier: AGPL-3.0-or-later

package stats

import "testing"

func TestFrameQueueAppendCoalesces(t *testing.T) {
	q := &frameQueue{}
	q.append([]byte("a"))
	q.append([]byte("b"))

	if q.head != q.tail {
		t.Fatal("expected both appends to land in a single coalesced frame")
	}
	if got := string(q.tail.f.data); got != "ab" {
		t.Fatalf("expected coalesced frame data %q, got %q", "ab", got)
	}
	if q.bytes != 2 {
		t.Fatalf("expected bytes=2, got %d", q.bytes)
	}
}

func TestFrameQueueSetupFrameNeverCoalesced(t *testing.T) {
	q := &frameQueue{}
	q.appendFrame(&frame{data: []byte("header"), setup: true})
	q.append([]byte("x"))

	if q.head == q.tail {
		t.Fatal("expected the setup frame to stay separate from subsequent appends")
	}
}

func TestFrameQueuePopFrontOrder(t *testing.T) {
	q := &frameQueue{}
	q.appendFrame(&frame{data: []byte("1")})
	q.appendFrame(&frame{data: []byte("2"), setup: true})

	f1, ok := q.popFront()
	if !ok || string(f1.data) != "1" {
		t.Fatalf("expected first frame %q, got %q ok=%v", "1", f1.data, ok)
	}
	f2, ok := q.popFront()
	if !ok || string(f2.data) != "2" {
		t.Fatalf("expected second frame %q, got %q ok=%v", "2", f2.data, ok)
	}
	if !q.empty() {
		t.Fatal("expected queue to be empty after popping both frames")
	}
	if _, ok := q.popFront(); ok {
		t.Fatal("expected popFront on empty queue to report false")
	}
}

func TestFrameQueueSpliceFront(t *testing.T) {
	live := &frameQueue{}
	live.append([]byte("live-event\n"))

	detached := &frameQueue{}
	detached.appendFrame(&frame{data: []byte("header\n"), setup: true})
	detached.append([]byte("snapshot-line\n"))

	live.spliceFront(detached)

	if !detached.empty() {
		t.Fatal("expected splice to leave the source queue empty")
	}
	first, _ := live.popFront()
	if string(first.data) != "header\n" {
		t.Fatalf("expected header frame first after splice, got %q", first.data)
	}
	second, _ := live.popFront()
	if string(second.data) != "snapshot-line\n" {
		t.Fatalf("expected snapshot frame second, got %q", second.data)
	}
	third, _ := live.popFront()
	if string(third.data) != "live-event\n" {
		t.Fatalf("expected the pre-splice live event last, got %q", third.data)
	}
}

func TestOrderedMapIterationOrder(t *testing.T) {
	m := newOrderedMap[int]()
	m.set("zebra", 1)
	m.set("apple", 2)
	m.set("mango", 3)

	var order []string
	m.each(func(k string, _ int) { order = append(order, k) })

	want := []string{"apple", "mango", "zebra"}
	if len(order) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(order))
	}
	for i, k := range want {
		if order[i] != k {
			t.Fatalf("expected order[%d]=%q, got %q", i, k, order[i])
		}
	}
}

func TestOrderedMapDelete(t *testing.T) {
	m := newOrderedMap[int]()
	m.set("a", 1)
	m.set("b", 2)
	m.delete("a")

	if _, ok := m.get("a"); ok {
		t.Fatal("expected a to be gone after delete")
	}
	if m.len() != 1 {
		t.Fatalf("expected len 1, got %d", m.len())
	}
	m.delete("nonexistent")
}

func TestApplyArithUnparsableTreatedAsZero(t *testing.T) {
	if got := applyArith("not-a-number", 5); got != "5" {
		t.Fatalf("expected unparsable current value treated as 0, got %q", got)
	}
}
