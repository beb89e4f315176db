package stream

import (
	"testing"
)

func TestRingPartialFill(t *testing.T) {
	r := NewRing[int](5)

	// 1. Push fewer entries than the capacity.
	r.Push(1)
	r.Push(2)

	if r.Len() != 2 {
		t.Errorf("Expected length 2, got %d", r.Len())
	}
	if r.Cap() != 5 {
		t.Errorf("Expected capacity 5, got %d", r.Cap())
	}

	// 2. Items come back oldest first.
	items := r.Items()
	if len(items) != 2 || items[0] != 1 || items[1] != 2 {
		t.Errorf("Expected [1 2], got %v", items)
	}
}

func TestRingEviction(t *testing.T) {
	r := NewRing[int](3)

	// 1. Push past the capacity so the oldest entries are evicted.
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}

	if r.Len() != 3 {
		t.Errorf("Expected length 3 after overflow, got %d", r.Len())
	}

	// 2. Only the newest three survive, still in insertion order.
	items := r.Items()
	want := []int{3, 4, 5}
	for i, v := range want {
		if items[i] != v {
			t.Errorf("Expected %v, got %v", want, items)
			break
		}
	}
}

func TestRingLast(t *testing.T) {
	r := NewRing[int](4)
	for i := 1; i <= 6; i++ {
		r.Push(i)
	}

	// 1. Last(n) returns the most recent n entries in insertion order.
	last := r.Last(2)
	if len(last) != 2 || last[0] != 5 || last[1] != 6 {
		t.Errorf("Expected [5 6], got %v", last)
	}

	// 2. A non-positive or oversized n returns everything live.
	if got := r.Last(0); len(got) != 4 {
		t.Errorf("Expected 4 entries for Last(0), got %d", len(got))
	}
	if got := r.Last(100); len(got) != 4 {
		t.Errorf("Expected 4 entries for Last(100), got %d", len(got))
	}
}

func TestRingZeroCapacity(t *testing.T) {
	// A degenerate capacity is clamped rather than panicking.
	r := NewRing[string](0)
	r.Push("a")
	r.Push("b")
	if r.Len() != 1 {
		t.Errorf("Expected length 1, got %d", r.Len())
	}
	if items := r.Items(); items[0] != "b" {
		t.Errorf("Expected newest entry to survive, got %v", items)
	}
}

func BenchmarkRingPush(b *testing.B) {
	r := NewRing[int](1000)
	for i := 0; i < b.N; i++ {
		r.Push(i)
	}
}

func BenchmarkRingLast50(b *testing.B) {
	r := NewRing[int](1000)
	for i := 0; i < 2000; i++ {
		r.Push(i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Last(50)
	}
}
