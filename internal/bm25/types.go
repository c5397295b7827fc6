// Package bm25 implements the query evaluator (engine component C3):
// tokenize a query, fetch postings from the sharded index, intersect
// by doc_id, score with BM25, and return the top-K hydrated results.
package bm25

import (
	"context"

	"github.com/go-mizu/finsearch/internal/index"
)

// Result is one ranked, hydrated hit. Partial is set on every result
// from a query whose scoring loop was cut short by the caller's
// context deadline: the top-K is drawn from whatever candidates were
// scored before the deadline fired, not necessarily the true top-K
// over the full candidate set.
type Result struct {
	DocID   uint64
	Score   float64
	Title   string
	URL     string
	Summary string
	Partial bool
}

// TokenizeFunc mirrors index.TokenizeFunc: the same tokenizer MUST be
// used for indexing and querying, or postings and query terms fall
// out of sync.
type TokenizeFunc func(text string) ([]string, error)

// PostingsSource is the read side of the sharded index the evaluator
// needs.
type PostingsSource interface {
	GetPostings(term string) (index.PostingsList, error)
}

// Hydrator fetches display metadata for a winning doc_id from the
// document store. A miss (ok=false) is not an error: the result is
// omitted and logged rather than failing the whole query.
type Hydrator interface {
	Hydrate(ctx context.Context, docID uint64) (title, url, body string, ok bool, err error)
}
