package index

import (
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/rs/zerolog"

	"github.com/go-mizu/finsearch/internal/errs"
)

// shardState is the per-shard lifecycle:
// Empty -> Buffering -> Flushing -> Buffering -> ... -> Final.
type shardState int

const (
	shardEmpty shardState = iota
	shardBuffering
	shardFlushing
	shardFinal
)

// Shard owns a disjoint partition of the term space, determined by
// ShardID. It buffers postings in memory up to memCap, flush-merges
// them onto its on-disk map preserving ascending-doc_id order, and
// becomes immutable once Finalize is called.
type Shard struct {
	id        uint16
	numShards uint16
	dir       string
	memCap    uint32
	log       zerolog.Logger

	mu       sync.Mutex
	state    shardState
	buf      map[string][]Posting
	bufCount uint32
	meta     ShardMeta

	// resident is populated on Finalize/Load and is the authoritative,
	// read-only term map once state == shardFinal.
	resident map[string]PostingsList
	filter   *bloom.BloomFilter
}

// NewShard constructs an empty, buffering-capable shard. dir is the
// directory its data/meta files live in.
func NewShard(id, numShards uint16, dir string, memCap uint32, log zerolog.Logger) *Shard {
	return &Shard{
		id:        id,
		numShards: numShards,
		dir:       dir,
		memCap:    memCap,
		log:       log.With().Uint16("shard_id", id).Logger(),
		state:     shardEmpty,
		buf:       make(map[string][]Posting),
		meta:      ShardMeta{ShardID: id, NumShards: numShards},
	}
}

// Add buffers one posting for term, flushing automatically once the
// shard's in-memory posting count reaches memCap. Add rejects empty
// or single-scalar terms: these carry no discriminating power and are
// never indexed.
func (s *Shard) Add(term string, p Posting) error {
	if n := runeCount(term); n <= 1 {
		return errs.Input("index: rejected term %q: length <= 1 Unicode scalar", term)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == shardFinal {
		return errs.Invariant("index: shard %d: Add called after finalize", s.id)
	}
	if s.state == shardEmpty {
		s.state = shardBuffering
	}

	s.buf[term] = append(s.buf[term], p)
	s.bufCount++

	if s.bufCount >= s.memCap {
		return s.flushLocked()
	}
	return nil
}

// flushLocked merges the in-memory buffer onto the on-disk map and
// publishes it atomically. Caller holds s.mu.
func (s *Shard) flushLocked() error {
	if len(s.buf) == 0 {
		return nil
	}
	s.state = shardFlushing

	onDisk, err := readShardFile(s.dir, s.id, s.numShards)
	if err != nil {
		return err
	}

	for term, postings := range s.buf {
		existing := onDisk[term]
		if err := assertAscendingAppend(existing, postings); err != nil {
			return errs.Invariant("index: shard %d term %q: %v", s.id, term, err)
		}
		onDisk[term] = append(existing, postings...)
	}

	if err := writeShardFile(s.dir, s.id, s.numShards, onDisk); err != nil {
		return err
	}

	meta := computeMeta(s.id, s.numShards, onDisk)
	if err := writeShardMeta(s.dir, meta); err != nil {
		// Data and metadata files may diverge if this fails, but
		// finalize MUST fail the build; surface it so the
		// caller aborts.
		return errs.Resource("index: shard %d: metadata write failed after data publish: %v", s.id, err)
	}
	s.meta = meta

	s.log.Debug().
		Int("terms_flushed", len(s.buf)).
		Uint64("term_count", meta.TermCount).
		Uint64("total_tf", meta.TotalTF).
		Msg("index: shard flushed")

	s.buf = make(map[string][]Posting)
	s.bufCount = 0
	s.state = shardBuffering
	return nil
}

// assertAscendingAppend checks that appended has every DocID strictly
// greater than existing's last DocID for this term, which pass 2's
// ascending-doc_id document order guarantees within one build run.
// Cheap enough to assert unconditionally rather than gate behind a
// debug flag.
func assertAscendingAppend(existing, appended []Posting) error {
	last := uint64(0)
	hasLast := false
	if len(existing) > 0 {
		last = existing[len(existing)-1].DocID
		hasLast = true
	}
	for _, p := range appended {
		if hasLast && p.DocID <= last {
			return fmt.Errorf("postings not strictly ascending: doc_id %d after %d", p.DocID, last)
		}
		last = p.DocID
		hasLast = true
	}
	return nil
}

func computeMeta(id, numShards uint16, terms map[string]PostingsList) ShardMeta {
	meta := ShardMeta{ShardID: id, NumShards: numShards, TermCount: uint64(len(terms))}
	seenDocs := make(map[uint64]struct{})
	for _, list := range terms {
		for _, p := range list {
			meta.TotalTF += uint64(p.TF)
			seenDocs[p.DocID] = struct{}{}
		}
	}
	meta.DocCount = uint64(len(seenDocs))
	return meta
}

// Finalize flushes any remaining buffered postings, loads the
// canonical on-disk map into memory, builds the term bloom filter,
// and transitions the shard to Final. After Finalize, Add returns an
// error and GetPostings is safe for concurrent readers.
func (s *Shard) Finalize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == shardFinal {
		return nil
	}
	if err := s.flushLocked(); err != nil {
		return err
	}

	onDisk, err := readShardFile(s.dir, s.id, s.numShards)
	if err != nil {
		return err
	}
	s.resident = onDisk
	s.filter = buildFilter(onDisk)
	s.state = shardFinal
	return nil
}

// LoadShard opens an already-finalized shard for read-only querying,
// without going through a Builder (the query path's entry point).
func LoadShard(dir string, id, numShards uint16, log zerolog.Logger) (*Shard, error) {
	onDisk, err := readShardFile(dir, id, numShards)
	if err != nil {
		return nil, err
	}
	meta, err := readShardMeta(dir, id)
	if err != nil {
		return nil, err
	}
	return &Shard{
		id:        id,
		numShards: numShards,
		dir:       dir,
		log:       log.With().Uint16("shard_id", id).Logger(),
		state:     shardFinal,
		resident:  onDisk,
		filter:    buildFilter(onDisk),
		meta:      meta,
	}, nil
}

func buildFilter(terms map[string]PostingsList) *bloom.BloomFilter {
	n := uint(len(terms))
	if n == 0 {
		n = 1
	}
	f := bloom.NewWithEstimates(n, 0.01)
	for term := range terms {
		f.AddString(term)
	}
	return f
}

// GetPostings returns term's postings list, or an empty list if the
// shard has no entry for it. It is safe to call concurrently once the
// shard is Final; before Finalize it returns an invariant error.
func (s *Shard) GetPostings(term string) (PostingsList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != shardFinal {
		return nil, errs.Invariant("index: shard %d: GetPostings called before finalize", s.id)
	}
	if s.filter != nil && !s.filter.TestString(term) {
		return nil, nil
	}
	return s.resident[term], nil
}

// Meta returns the shard's sidecar metadata.
func (s *Shard) Meta() ShardMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

func runeCount(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
