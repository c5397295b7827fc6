package index

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/go-mizu/finsearch/internal/errs"
)

// TokenizeFunc is the tokenizer collaborator's contract: deterministic,
// order-preserving, emits Unicode-scalar-valid terms, already filtered
// of stop tokens and length<=1 tokens.
type TokenizeFunc func(text string) ([]string, error)

// DocSource is the document store collaborator's read contract the
// builder needs: a count for sizing, and an ascending-id ordered
// iterator, batched.
type DocSource interface {
	CountDocuments(ctx context.Context) (uint64, error)
	IterateDocuments(ctx context.Context, batchSize int, fn func(batch []Document) error) error
}

// BuilderConfig controls the two-pass build.
type BuilderConfig struct {
	Dir            string
	NumShards      uint16
	MemCapPerShard uint32
	BatchSize      uint32
	Workers        int // pass-2 tokenization fan-out width; 0 or less = 4
}

// Builder drives the two-pass build (lengths, then postings) and
// owns the resulting shard set.
type Builder struct {
	cfg      BuilderConfig
	tokenize TokenizeFunc
	docs     DocSource
	log      zerolog.Logger

	shards []*Shard
}

// NewBuilder constructs a Builder. dir is created if it does not
// exist.
func NewBuilder(cfg BuilderConfig, tokenize TokenizeFunc, docs DocSource, log zerolog.Logger) (*Builder, error) {
	if cfg.NumShards == 0 {
		return nil, errs.Input("index: num_shards must be > 0")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errs.Resource("index: create data dir %q: %v", cfg.Dir, err)
	}
	shards := make([]*Shard, cfg.NumShards)
	for i := range shards {
		shards[i] = NewShard(uint16(i), cfg.NumShards, cfg.Dir, cfg.MemCapPerShard, log)
	}
	return &Builder{cfg: cfg, tokenize: tokenize, docs: docs, log: log, shards: shards}, nil
}

// tokenCache holds pass-1's per-document token slices across the gap
// between pass 1 and pass 2. It is bounded to one batch at a time:
// each pass-1 batch replaces the previous one, so when pass 2 starts
// only the documents of pass 1's last batch are cached. Pass 2
// re-tokenizes every other document, which is why the tokenizer must
// be deterministic.
type tokenCache struct {
	mu   sync.Mutex
	toks map[uint64][]string
}

func newTokenCache() *tokenCache { return &tokenCache{toks: make(map[uint64][]string)} }

func (c *tokenCache) put(batch map[uint64][]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toks = batch
}

func (c *tokenCache) get(id uint64) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.toks[id]
	return t, ok
}

// Build drives pass 1 (lengths) then pass 2 (postings) to completion,
// finalizes every shard, and writes stats.json. It is idempotent: a
// second call overwrites the prior outputs.
func (b *Builder) Build(ctx context.Context) (Stats, error) {
	if err := b.resetShardFiles(); err != nil {
		return Stats{}, err
	}

	cache := newTokenCache()

	totalDocs, sumLength, perDocLength, err := b.pass1(ctx, cache)
	if err != nil {
		return Stats{}, err
	}

	avgDocLength := 1.0
	if totalDocs > 0 {
		avgDocLength = float64(sumLength) / float64(totalDocs)
	}

	if err := b.pass2(ctx, cache, perDocLength); err != nil {
		return Stats{}, err
	}

	for _, sh := range b.shards {
		if err := sh.Finalize(); err != nil {
			return Stats{}, err
		}
	}

	stats := Stats{
		TotalDocs:    totalDocs,
		AvgDocLength: avgDocLength,
		NumShards:    b.cfg.NumShards,
		BuildID:      uuid.NewString(),
		BuiltAt:      time.Now().UnixNano(),
		PerDocLength: perDocLength,
	}
	if err := writeStats(b.cfg.Dir, stats); err != nil {
		return Stats{}, err
	}

	b.log.Info().
		Uint64("total_docs", totalDocs).
		Float64("avg_doc_length", avgDocLength).
		Uint16("num_shards", b.cfg.NumShards).
		Msg("index: build complete")
	return stats, nil
}

// resetShardFiles removes any shard data/metadata left over from a
// prior build in this directory, so a rebuild's first flush per shard
// starts from an empty on-disk map instead of merging onto stale
// postings. A missing file is not an error: the common case is a
// brand new data directory.
func (b *Builder) resetShardFiles() error {
	for i := uint16(0); i < b.cfg.NumShards; i++ {
		for _, path := range []string{shardDataPath(b.cfg.Dir, i), shardMetaPath(b.cfg.Dir, i)} {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return errs.Resource("index: reset shard %d file %q: %v", i, path, err)
			}
		}
	}
	if err := os.Remove(statsPath(b.cfg.Dir)); err != nil && !os.IsNotExist(err) {
		return errs.Resource("index: reset stats file: %v", err)
	}
	return nil
}

// pass1 computes per-document length and the corpus sum of lengths,
// putting each batch's tokens into the cache in turn (the last batch
// is the one left for pass 2).
func (b *Builder) pass1(ctx context.Context, cache *tokenCache) (totalDocs uint64, sumLength uint64, perDocLength map[uint64]uint32, err error) {
	perDocLength = make(map[uint64]uint32)

	err = b.docs.IterateDocuments(ctx, int(b.cfg.BatchSize), func(batch []Document) error {
		batchToks := make(map[uint64][]string, len(batch))
		for _, doc := range batch {
			toks, terr := b.tokenize(doc.Body)
			if terr != nil {
				// Skip the document, but it still contributes to
				// total_docs since pass 1 counted it.
				b.log.Warn().Err(terr).Uint64("doc_id", doc.ID).Msg("index: tokenizer failed in pass 1, skipping")
				totalDocs++
				perDocLength[doc.ID] = 0
				continue
			}
			batchToks[doc.ID] = toks
			totalDocs++
			sumLength += uint64(len(toks))
			perDocLength[doc.ID] = uint32(len(toks))
		}
		cache.put(batchToks)
		return nil
	})
	if err != nil {
		return 0, 0, nil, errs.Resource("index: pass 1: %v", err)
	}
	return totalDocs, sumLength, perDocLength, nil
}

// pass2 re-tokenizes (or reuses pass 1's cache) each document in
// ascending doc_id order, fans the expensive tokenization work out
// across a worker pool, then submits the resulting postings to their
// owning shards strictly in doc_id order. Submission is deliberately
// sequential: it is cheap (map lookups + a mutex-guarded append) next
// to tokenization, and keeping it single-threaded is what makes the
// ascending-doc_id-per-shard invariant trivially true regardless of
// how tokenization itself is scheduled.
func (b *Builder) pass2(ctx context.Context, cache *tokenCache, perDocLength map[uint64]uint32) error {
	workers := b.cfg.Workers
	if workers <= 0 {
		workers = 4
	}

	return b.docs.IterateDocuments(ctx, int(b.cfg.BatchSize), func(batch []Document) error {
		type tokenized struct {
			doc  Document
			toks []string
			err  error
		}
		results := make([]tokenized, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i, doc := range batch {
			i, doc := i, doc
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if cached, ok := cache.get(doc.ID); ok {
					results[i] = tokenized{doc: doc, toks: cached}
					return nil
				}
				toks, err := b.tokenize(doc.Body)
				results[i] = tokenized{doc: doc, toks: toks, err: err}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for _, r := range results {
			if r.err != nil {
				b.log.Warn().Err(r.err).Uint64("doc_id", r.doc.ID).Msg("index: tokenizer failed in pass 2, skipping")
				continue
			}
			if err := b.submit(r.doc.ID, r.toks, perDocLength[r.doc.ID]); err != nil {
				return err
			}
		}
		return nil
	})
}

// submit builds term->positions for one document and routes each
// posting to its owning shard. A term Add rejects as malformed input
// (too short after a non-reference tokenizer or stemmer) is skipped
// and logged like a tokenizer failure, not treated as build-fatal;
// any other Add error (a shard write or metadata write failure, or an
// invariant violation such as Add after Finalize) aborts the build.
func (b *Builder) submit(docID uint64, toks []string, docLength uint32) error {
	positions := make(map[string][]uint32, len(toks))
	for pos, term := range toks {
		positions[term] = append(positions[term], uint32(pos))
	}
	for term, pos := range positions {
		shardID := ShardID(term, b.cfg.NumShards)
		p := Posting{
			DocID:     docID,
			TF:        uint32(len(pos)),
			Positions: pos,
			DocLength: docLength,
		}
		if err := b.shards[shardID].Add(term, p); err != nil {
			if errors.Is(err, errs.ErrInputFault) {
				b.log.Warn().Err(err).Uint64("doc_id", docID).Str("term", term).Msg("index: rejected posting, skipping")
				continue
			}
			return err
		}
	}
	return nil
}

// GetPostings routes to the shard owning term. It is only valid after
// Build has finalized every shard.
func (b *Builder) GetPostings(term string) (PostingsList, error) {
	shardID := ShardID(term, b.cfg.NumShards)
	return b.shards[shardID].GetPostings(term)
}

// ShardMetas returns every shard's sidecar metadata, for operator
// tooling.
func (b *Builder) ShardMetas() []ShardMeta {
	out := make([]ShardMeta, len(b.shards))
	for i, sh := range b.shards {
		out[i] = sh.Meta()
	}
	return out
}

func statsPath(dir string) string { return filepath.Join(dir, "stats.json") }

func writeStats(dir string, stats Stats) error {
	path := statsPath(dir)
	tmp := path + ".tmp"
	b, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return errs.Resource("index: marshal stats: %v", err)
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return errs.Resource("index: write stats: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errs.Resource("index: publish stats: %v", err)
	}
	return nil
}

// ReadStats loads stats.json for the query path.
func ReadStats(dir string) (Stats, error) {
	b, err := os.ReadFile(statsPath(dir))
	if err != nil {
		return Stats{}, errs.Resource("index: read stats: %v", err)
	}
	var stats Stats
	if err := json.Unmarshal(b, &stats); err != nil {
		return Stats{}, errs.Invariant("index: stats.json: %v", err)
	}
	return stats, nil
}
