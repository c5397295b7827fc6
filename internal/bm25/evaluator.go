package bm25

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/go-mizu/finsearch/internal/errs"
	"github.com/go-mizu/finsearch/internal/index"
)

// EvaluatorConfig carries the BM25 parameters and result-shaping
// knobs.
type EvaluatorConfig struct {
	K1          float64
	B           float64
	DefaultTopK uint32
}

// Evaluator is the query-time handle over a finalized index: the
// explicit entry point over a read-only index snapshot.
type Evaluator struct {
	postings PostingsSource
	stats    index.Stats
	tokenize TokenizeFunc
	hydrate  Hydrator
	cfg      EvaluatorConfig
	log      zerolog.Logger
}

// NewEvaluator builds an Evaluator over a frozen index snapshot
// (postings source + stats), a tokenizer matching the one used at
// build time, and a document-store hydrator.
func NewEvaluator(postings PostingsSource, stats index.Stats, tokenize TokenizeFunc, hydrate Hydrator, cfg EvaluatorConfig, log zerolog.Logger) *Evaluator {
	if cfg.K1 == 0 {
		cfg.K1 = 1.2
	}
	if cfg.B == 0 {
		cfg.B = 0.75
	}
	if cfg.DefaultTopK == 0 {
		cfg.DefaultTopK = 10
	}
	return &Evaluator{postings: postings, stats: stats, tokenize: tokenize, hydrate: hydrate, cfg: cfg, log: log}
}

// Search runs conjunctive (AND) evaluation: tokenize, fetch postings,
// intersect, score, and rank.
// An all-absent or empty-after-tokenization query yields an empty,
// non-error result; the two cases are indistinguishable by design.
func (e *Evaluator) Search(ctx context.Context, query string, k int) ([]Result, error) {
	return e.search(ctx, query, k, false)
}

// SearchDisjunctive runs the optional OR fallback: scores the union
// of postings lists instead of requiring
// every term to match. It is a distinct entry point, never invoked
// implicitly by Search, so conjunctive rankings stay predictable.
func (e *Evaluator) SearchDisjunctive(ctx context.Context, query string, k int) ([]Result, error) {
	return e.search(ctx, query, k, true)
}

func (e *Evaluator) search(ctx context.Context, query string, k int, disjunctive bool) ([]Result, error) {
	if k <= 0 {
		k = int(e.cfg.DefaultTopK)
	}
	if k <= 0 {
		return nil, errs.Input("bm25: k must be > 0")
	}
	if e.stats.TotalDocs == 0 {
		return nil, nil
	}

	terms, err := e.tokenize(query)
	if err != nil {
		return nil, errs.External("bm25: tokenizer error: %v", err)
	}
	if len(terms) == 0 {
		return nil, nil
	}

	lists, err := e.fetchPostings(dedup(terms))
	if err != nil {
		return nil, err
	}
	if len(lists) == 0 {
		return nil, nil
	}

	var candidates []uint64
	if disjunctive {
		candidates = union(lists)
	} else {
		candidates = intersect(lists)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	idfs := make(map[string]float64, len(lists))
	for _, l := range lists {
		idfs[l.term] = idf(e.stats.TotalDocs, uint64(len(l.postings)))
	}

	h := newTopKHeap(k)
	partial := false
	scoredCount := 0
	for _, docID := range candidates {
		if ctx.Err() != nil {
			partial = true
			break // best-effort partial results when the caller's deadline fires
		}
		var total float64
		for _, l := range lists {
			p, ok := lookup(l.postings, docID)
			if !ok {
				continue
			}
			total += termScore(idfs[l.term], p.TF, p.DocLength, e.stats.AvgDocLength, e.cfg.K1, e.cfg.B)
		}
		h.add(scored{docID: docID, score: total})
		scoredCount++
	}

	results, err := e.hydrateResults(ctx, h.sorted(), partial)
	if err != nil {
		return nil, err
	}
	if partial {
		return results, errs.Deadline("bm25: scoring cut short at deadline, %d/%d candidates scored", scoredCount, len(candidates))
	}
	return results, nil
}

func (e *Evaluator) fetchPostings(terms []string) ([]termPostings, error) {
	lists := make([]termPostings, 0, len(terms))
	for _, t := range terms {
		list, err := e.postings.GetPostings(t)
		if err != nil {
			return nil, err
		}
		if len(list) == 0 {
			continue
		}
		lists = append(lists, termPostings{term: t, postings: list})
	}
	return lists, nil
}

func (e *Evaluator) hydrateResults(ctx context.Context, ranked []scored, partial bool) ([]Result, error) {
	out := make([]Result, 0, len(ranked))
	for _, s := range ranked {
		title, url, body, ok, err := e.hydrate.Hydrate(ctx, s.docID)
		if err != nil {
			e.log.Warn().Err(err).Uint64("doc_id", s.docID).Msg("bm25: hydrate failed, dropping result")
			continue
		}
		if !ok {
			e.log.Warn().Uint64("doc_id", s.docID).Msg("bm25: document store missing expected doc_id, dropping result")
			continue
		}
		out = append(out, Result{
			DocID:   s.docID,
			Score:   s.score,
			Title:   title,
			URL:     url,
			Summary: summarize(body, 200),
			Partial: partial,
		})
	}
	return out, nil
}

// summarize cuts body to roughly n characters, preferring a word
// boundary within the trailing 20% of the cut if one exists
// near that length.
func summarize(body string, n int) string {
	r := []rune(body)
	if len(r) <= n {
		return body
	}
	cut := n
	tail := n / 5
	for i := cut; i > cut-tail && i > 0; i-- {
		if r[i] == ' ' {
			cut = i
			break
		}
	}
	return strings.TrimSpace(string(r[:cut]))
}

func dedup(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Stats exposes the index statistics for the wrapping service's
// stats() entry point.
type Stats struct {
	TotalDocs    uint64
	AvgDocLength float64
	NumShards    uint16
	K1           float64
	B            float64
}

func (e *Evaluator) Stats() Stats {
	return Stats{
		TotalDocs:    e.stats.TotalDocs,
		AvgDocLength: e.stats.AvgDocLength,
		NumShards:    e.stats.NumShards,
		K1:           e.cfg.K1,
		B:            e.cfg.B,
	}
}
