// Package spillqueue implements a bounded, disk-spillable FIFO: a
// memory-resident queue of cap M that transparently overflows to a
// durable, insertion-ordered append store once memory is saturated,
// and refills from that store on drain.
//
// The queue is single-process: the durable store is truncated at
// construction, so it is not a mechanism for surviving restarts, only
// for bounding memory under a producer that outruns its consumer.
package spillqueue

import (
	"bytes"
	"container/list"
	"encoding/gob"
	"sync"

	"github.com/rs/zerolog"

	"github.com/go-mizu/finsearch/internal/errs"
)

// Queue is a FIFO of opaque, gob-serializable items bounded at M
// items in memory, with transparent spill to a durable store beyond
// that.
type Queue struct {
	mu sync.Mutex

	mem   uint32      // M, the in-memory cap
	batch uint32      // S = M/2, the spill/refill batch size
	store *store
	log   zerolog.Logger

	primary  *list.List // front of the FIFO, drained by Get
	overflow *list.List // tail, receives Put once primary is saturated
}

// New opens a Queue backed by the durable log file at path, bounded at
// mem items resident in memory. The durable file is truncated on
// open: the queue is not restart-durable, only overflow-durable
// within a single process lifetime.
func New(path string, mem uint32, log zerolog.Logger) (*Queue, error) {
	if mem == 0 {
		mem = 1
	}
	st, err := openStore(path)
	if err != nil {
		return nil, errs.Resource("spillqueue: open store %q: %v", path, err)
	}
	return &Queue{
		mem:      mem,
		batch:    max32(mem/2, 1),
		store:    st,
		log:      log,
		primary:  list.New(),
		overflow: list.New(),
	}, nil
}

// Close releases the durable store's file handle. It does not clear
// contents; call Clear first if that is desired.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.close()
}

// Put appends item to the tail of the FIFO. It never blocks on
// another producer beyond the short internal critical section, and
// only returns an error when the spill write fails: an item that
// cannot be serialized is dropped and logged when overflow drains,
// without an error, but a durable-store write failure is fatal to the
// current Put. Item goes to primary only while nothing older waits in
// overflow or the durable store, so FIFO order holds across refills.
func (q *Queue) Put(item any) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.primary.Len() < int(q.mem) && q.overflow.Len() == 0 {
		if n, _ := q.store.count(); n == 0 {
			q.primary.PushBack(item)
			return nil
		}
	}

	q.overflow.PushBack(item)
	if q.overflow.Len() > int(q.batch) {
		return q.drainOverflowLocked()
	}
	return nil
}

// drainOverflowLocked moves every item currently in overflow into the
// durable store, in insertion order. Items that fail to serialize are
// dropped and logged without disturbing the order of the rest; a durable
// write failure leaves the still-serializable items in overflow so a
// later drain can retry them, and is fatal to the Put that triggered
// this drain.
func (q *Queue) drainOverflowLocked() error {
	type pending struct {
		elem  *list.Element
		value any
	}
	var good []pending

	for e := q.overflow.Front(); e != nil; {
		next := e.Next()
		if _, err := encodeItem(e.Value); err != nil {
			q.log.Warn().Err(err).Msg("spillqueue: dropping item that failed to serialize")
			q.overflow.Remove(e)
		} else {
			good = append(good, pending{elem: e, value: e.Value})
		}
		e = next
	}
	if len(good) == 0 {
		return nil
	}

	payloads := make([]any, len(good))
	for i, p := range good {
		payloads[i] = p.value
	}
	if err := q.store.appendAll(payloads); err != nil {
		q.log.Error().Err(err).Int("pending", len(good)).Msg("spillqueue: overflow drain failed")
		return errs.Resource("spillqueue: drain overflow: %v", err)
	}
	for _, p := range good {
		q.overflow.Remove(p.elem)
	}
	return nil
}

// Get removes and returns the oldest item, or ok=false if the queue
// (memory + durable store + overflow) is empty.
func (q *Queue) Get() (any, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

func (q *Queue) popLocked() (any, bool) {
	if e := q.primary.Front(); e != nil {
		q.primary.Remove(e)
		return e.Value, true
	}

	if n, _ := q.store.count(); n > 0 {
		items, err := q.store.takeFront(int(q.batch))
		if err != nil {
			q.log.Error().Err(err).Msg("spillqueue: refill from store failed")
			return nil, false
		}
		for _, it := range items {
			q.primary.PushBack(it)
		}
		if e := q.primary.Front(); e != nil {
			q.primary.Remove(e)
			return e.Value, true
		}
		return nil, false
	}

	if q.overflow.Len() > 0 {
		n := int(q.batch)
		for n > 0 && q.overflow.Len() > 0 {
			e := q.overflow.Front()
			q.overflow.Remove(e)
			q.primary.PushBack(e.Value)
			n--
		}
		if e := q.primary.Front(); e != nil {
			q.primary.Remove(e)
			return e.Value, true
		}
	}

	return nil, false
}

// Peek returns the oldest item without removing it, consulting the
// durable store if memory is empty.
func (q *Queue) Peek() (any, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if e := q.primary.Front(); e != nil {
		return e.Value, true
	}
	if n, _ := q.store.count(); n > 0 {
		items, err := q.store.takeFront(int(q.batch))
		if err != nil {
			return nil, false
		}
		for _, it := range items {
			q.primary.PushBack(it)
		}
		if e := q.primary.Front(); e != nil {
			return e.Value, true
		}
		return nil, false
	}
	if e := q.overflow.Front(); e != nil {
		return e.Value, true
	}
	return nil, false
}

// Size returns the total item count across memory and the durable
// store.
func (q *Queue) Size() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	n, _ := q.store.count()
	return uint64(q.primary.Len()+q.overflow.Len()) + uint64(n)
}

// MemorySize returns the item count resident in memory only.
func (q *Queue) MemorySize() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return uint64(q.primary.Len() + q.overflow.Len())
}

// Clear drops every item in memory and on disk. From the caller's
// perspective this is atomic: no concurrent Get/Put can observe a
// partially cleared queue.
func (q *Queue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.primary.Init()
	q.overflow.Init()
	if err := q.store.truncate(); err != nil {
		return errs.Resource("spillqueue: clear store: %v", err)
	}
	return nil
}

func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// Register registers a concrete type with gob so it can round-trip
// through the durable store. Callers that Put values of a type other
// than the Go predeclared/basic types must call this once at startup.
func Register(value any) {
	gob.Register(value)
}

// encode/decode are exposed at package scope so store.go (same
// package) can serialize arbitrary items without importing gob twice.
func encodeItem(item any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&item); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeItem(b []byte) (any, error) {
	var item any
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&item); err != nil {
		return nil, err
	}
	return item, nil
}
