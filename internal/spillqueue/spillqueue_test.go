package spillqueue

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func newTestQueue(t *testing.T, mem uint32) *Queue {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spill.store")
	q, err := New(path, mem, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { q.Close() })
	return q
}

func TestQueue_FIFORoundtrip(t *testing.T) {
	q := newTestQueue(t, 4)

	for i := 1; i <= 20; i++ {
		if err := q.Put(i); err != nil {
			t.Fatalf("Put(%d) error = %v", i, err)
		}
	}

	for i := 1; i <= 20; i++ {
		got, ok := q.Get()
		if !ok {
			t.Fatalf("Get() #%d: expected item, got none", i)
		}
		if got.(int) != i {
			t.Fatalf("Get() #%d = %v, want %d", i, got, i)
		}
	}

	if _, ok := q.Get(); ok {
		t.Error("expected empty queue after draining all 20 items")
	}
}

func TestQueue_MemoryBoundWhileSpilled(t *testing.T) {
	q := newTestQueue(t, 4)

	sawSpill := false
	for i := 1; i <= 20; i++ {
		if err := q.Put(i); err != nil {
			t.Fatalf("Put(%d) error = %v", i, err)
		}
		if q.MemorySize() <= 4 && q.Size() > 4 {
			sawSpill = true
		}
	}
	if !sawSpill {
		t.Error("expected memory_size <= M while size > M at some point during the run")
	}
}

func TestQueue_PeekDoesNotRemove(t *testing.T) {
	q := newTestQueue(t, 2)
	q.Put("a")
	q.Put("b")

	v, ok := q.Peek()
	if !ok || v.(string) != "a" {
		t.Fatalf("Peek() = %v, %v, want a, true", v, ok)
	}
	v, ok = q.Peek()
	if !ok || v.(string) != "a" {
		t.Fatalf("second Peek() = %v, %v, want a, true (unchanged)", v, ok)
	}

	got, _ := q.Get()
	if got.(string) != "a" {
		t.Fatalf("Get() after Peek = %v, want a", got)
	}
}

func TestQueue_PeekFromSpill(t *testing.T) {
	q := newTestQueue(t, 1)
	for i := 1; i <= 5; i++ {
		q.Put(i)
	}

	v, ok := q.Peek()
	if !ok {
		t.Fatal("expected a peekable item")
	}
	if v.(int) != 1 {
		t.Fatalf("Peek() = %v, want 1 (oldest)", v)
	}
}

func TestQueue_Clear(t *testing.T) {
	q := newTestQueue(t, 2)
	for i := 1; i <= 10; i++ {
		q.Put(i)
	}
	if q.Size() != 10 {
		t.Fatalf("Size() = %d, want 10", q.Size())
	}
	if err := q.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if q.Size() != 0 {
		t.Errorf("Size() after Clear = %d, want 0", q.Size())
	}
	if _, ok := q.Get(); ok {
		t.Error("expected empty queue after Clear")
	}
}

func TestQueue_EmptyGet(t *testing.T) {
	q := newTestQueue(t, 4)
	if _, ok := q.Get(); ok {
		t.Error("expected Get() on empty queue to return ok=false")
	}
	if _, ok := q.Peek(); ok {
		t.Error("expected Peek() on empty queue to return ok=false")
	}
}

// TestQueue_ConcurrentProducerConsumer checks the FIFO property: for
// any interleaving of put/get, the sequence returned by
// Get is a prefix of the sequence passed to Put, per producer. Here a
// single producer and single consumer both run concurrently; the
// consumer must see strictly increasing values.
func TestQueue_ConcurrentProducerConsumer(t *testing.T) {
	q := newTestQueue(t, 8)

	const n = 500
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			if err := q.Put(i); err != nil {
				t.Errorf("Put(%d) error = %v", i, err)
			}
		}
	}()

	got := make([]int, 0, n)
	for len(got) < n {
		if v, ok := q.Get(); ok {
			got = append(got, v.(int))
		}
	}
	wg.Wait()

	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d] = %d, want %d (FIFO order violated)", i, v, i)
		}
	}
}
