package bm25

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/go-mizu/finsearch/internal/errs"
	"github.com/go-mizu/finsearch/internal/index"
)

// fakePostings is an in-memory PostingsSource keyed by term.
type fakePostings struct {
	byTerm map[string]index.PostingsList
}

func (f *fakePostings) GetPostings(term string) (index.PostingsList, error) {
	return f.byTerm[term], nil
}

// fakeHydrator is an in-memory Hydrator keyed by doc_id.
type fakeHydrator struct {
	docs map[uint64]struct{ title, url, body string }
}

func (f *fakeHydrator) Hydrate(ctx context.Context, docID uint64) (string, string, string, bool, error) {
	d, ok := f.docs[docID]
	if !ok {
		return "", "", "", false, nil
	}
	return d.title, d.url, d.body, true, nil
}

func fieldsTokenize(text string) ([]string, error) {
	var out []string
	word := ""
	flush := func() {
		if word != "" {
			out = append(out, word)
			word = ""
		}
	}
	for _, r := range text {
		if r == ' ' {
			flush()
			continue
		}
		word += string(r)
	}
	flush()
	return out, nil
}

func newTestEvaluator(postings map[string]index.PostingsList, docs map[uint64]struct{ title, url, body string }, stats index.Stats) *Evaluator {
	return NewEvaluator(
		&fakePostings{byTerm: postings},
		stats,
		fieldsTokenize,
		&fakeHydrator{docs: docs},
		EvaluatorConfig{K1: 1.2, B: 0.75, DefaultTopK: 10},
		zerolog.Nop(),
	)
}

func TestEvaluator_SingleDocSingleTerm(t *testing.T) {
	// A single document, single term: df == N, so idf clamps to zero
	// and the score for that term must be exactly zero.
	postings := map[string]index.PostingsList{
		"alpha": {{DocID: 1, TF: 3, Positions: []uint32{0, 1, 2}, DocLength: 3}},
	}
	docs := map[uint64]struct{ title, url, body string }{
		1: {title: "Doc One", url: "https://e.com/1", body: "alpha alpha alpha"},
	}
	eval := newTestEvaluator(postings, docs, index.Stats{TotalDocs: 1, AvgDocLength: 3, NumShards: 1})

	results, err := eval.Search(context.Background(), "alpha", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].Score != 0 {
		t.Errorf("Score = %v, want 0 (idf clamps to zero when df == N)", results[0].Score)
	}
	if results[0].Title != "Doc One" || results[0].URL != "https://e.com/1" {
		t.Errorf("result not hydrated correctly: %+v", results[0])
	}
}

func TestEvaluator_ConjunctiveRanksByRelevance(t *testing.T) {
	// Three docs hold the query terms in a ten-document corpus, so both
	// terms keep a positive idf. Query "alpha beta": doc 2 has the
	// highest combined tf and should rank first; doc 3 lacks "beta" and
	// must not appear in conjunctive results at all.
	postings := map[string]index.PostingsList{
		"alpha": {
			{DocID: 1, TF: 1, Positions: []uint32{0}, DocLength: 4},
			{DocID: 2, TF: 2, Positions: []uint32{0, 2}, DocLength: 6},
			{DocID: 3, TF: 1, Positions: []uint32{0}, DocLength: 2},
		},
		"beta": {
			{DocID: 1, TF: 1, Positions: []uint32{1}, DocLength: 4},
			{DocID: 2, TF: 2, Positions: []uint32{1, 3}, DocLength: 6},
		},
	}
	docs := map[uint64]struct{ title, url, body string }{
		1: {title: "Doc1", url: "u1", body: "alpha beta x x"},
		2: {title: "Doc2", url: "u2", body: "alpha beta alpha beta x x"},
		3: {title: "Doc3", url: "u3", body: "alpha x"},
	}
	stats := index.Stats{TotalDocs: 10, AvgDocLength: 4, NumShards: 1}
	eval := newTestEvaluator(postings, docs, stats)

	results, err := eval.Search(context.Background(), "alpha beta", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2 (doc 3 lacks beta)", len(results))
	}
	if results[0].DocID != 2 {
		t.Errorf("results[0].DocID = %d, want 2 (highest combined tf)", results[0].DocID)
	}
	for _, r := range results {
		if r.DocID == 3 {
			t.Errorf("doc 3 should not appear in conjunctive results, got %+v", r)
		}
	}
}

func TestEvaluator_DisjunctiveFallback(t *testing.T) {
	// Query "alpha gamma": no document has both, so Search returns
	// empty, but SearchDisjunctive returns the union, ranked.
	postings := map[string]index.PostingsList{
		"alpha": {{DocID: 1, TF: 1, Positions: []uint32{0}, DocLength: 2}},
		"gamma": {{DocID: 2, TF: 1, Positions: []uint32{0}, DocLength: 2}},
	}
	docs := map[uint64]struct{ title, url, body string }{
		1: {title: "Doc1", url: "u1", body: "alpha x"},
		2: {title: "Doc2", url: "u2", body: "gamma x"},
	}
	stats := index.Stats{TotalDocs: 2, AvgDocLength: 2, NumShards: 1}
	eval := newTestEvaluator(postings, docs, stats)

	conj, err := eval.Search(context.Background(), "alpha gamma", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(conj) != 0 {
		t.Fatalf("Search() (conjunctive) len = %d, want 0", len(conj))
	}

	disj, err := eval.SearchDisjunctive(context.Background(), "alpha gamma", 10)
	if err != nil {
		t.Fatalf("SearchDisjunctive() error = %v", err)
	}
	if len(disj) != 2 {
		t.Fatalf("SearchDisjunctive() len = %d, want 2", len(disj))
	}
}

func TestEvaluator_AllTermsAbsent(t *testing.T) {
	eval := newTestEvaluator(map[string]index.PostingsList{}, nil, index.Stats{TotalDocs: 5, AvgDocLength: 10, NumShards: 1})
	results, err := eval.Search(context.Background(), "nonexistent", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("len(results) = %d, want 0", len(results))
	}
}

func TestEvaluator_EmptyTotalDocs(t *testing.T) {
	eval := newTestEvaluator(map[string]index.PostingsList{
		"x": {{DocID: 1, TF: 1, DocLength: 1}},
	}, nil, index.Stats{TotalDocs: 0})
	results, err := eval.Search(context.Background(), "x", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if results != nil {
		t.Errorf("expected nil results for zero-document index, got %v", results)
	}
}

func TestEvaluator_EmptyQueryAfterTokenize(t *testing.T) {
	eval := newTestEvaluator(map[string]index.PostingsList{}, nil, index.Stats{TotalDocs: 1, AvgDocLength: 1})
	results, err := eval.Search(context.Background(), "   ", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("len(results) = %d, want 0", len(results))
	}
}

func TestEvaluator_DeadlineYieldsPartialResult(t *testing.T) {
	// A query against a non-empty candidate set, run with a context
	// already past its deadline: the scoring loop must stop before
	// scoring anything, flag every returned result Partial, and
	// surface errs.ErrDeadline rather than a plain nil error.
	postings := map[string]index.PostingsList{
		"alpha": {
			{DocID: 1, TF: 1, Positions: []uint32{0}, DocLength: 2},
			{DocID: 2, TF: 1, Positions: []uint32{0}, DocLength: 2},
		},
	}
	docs := map[uint64]struct{ title, url, body string }{
		1: {title: "Doc1", url: "u1", body: "alpha x"},
		2: {title: "Doc2", url: "u2", body: "alpha x"},
	}
	stats := index.Stats{TotalDocs: 2, AvgDocLength: 2, NumShards: 1}
	eval := newTestEvaluator(postings, docs, stats)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Hour))
	defer cancel()

	results, err := eval.Search(ctx, "alpha", 10)
	if err == nil {
		t.Fatal("Search() error = nil, want errs.ErrDeadline")
	}
	if !errors.Is(err, errs.ErrDeadline) {
		t.Errorf("Search() error = %v, want it to satisfy errors.Is(err, errs.ErrDeadline)", err)
	}
	for _, r := range results {
		if !r.Partial {
			t.Errorf("result %+v: Partial = false, want true", r)
		}
	}
}

func TestBM25_Monotonicity(t *testing.T) {
	// Holding document length and idf fixed, increasing tf must
	// strictly increase the score.
	const docLength, avgLength, k1, b = 10, 10, 1.2, 0.75
	fixedIDF := 1.0
	prev := -math.MaxFloat64
	for tf := uint32(1); tf <= 20; tf++ {
		s := termScore(fixedIDF, tf, docLength, avgLength, k1, b)
		if s <= prev {
			t.Fatalf("termScore not monotonic at tf=%d: %v <= %v", tf, s, prev)
		}
		prev = s
	}
}

func TestBM25_Saturation(t *testing.T) {
	// As tf grows very large, score approaches idf*(k1+1) from below
	// but never reaches or exceeds it.
	const docLength, avgLength, k1, b = 10, 10, 1.2, 0.75
	idfVal := 2.0
	ceiling := idfVal * (k1 + 1)
	s := termScore(idfVal, 1_000_000, docLength, avgLength, k1, b)
	if s >= ceiling {
		t.Errorf("termScore(tf=1e6) = %v, want < ceiling %v", s, ceiling)
	}
	if ceiling-s > 0.01 {
		t.Errorf("termScore(tf=1e6) = %v, want close to ceiling %v", s, ceiling)
	}
}

func TestBM25_IDFZeroWhenDFEqualsN(t *testing.T) {
	if v := idf(10, 10); v != 0 {
		t.Errorf("idf(10, 10) = %v, want 0", v)
	}
}

func TestBM25_IDFPositiveForRareTerm(t *testing.T) {
	v := idf(1000, 1)
	if v <= 0 {
		t.Errorf("idf(1000, 1) = %v, want > 0", v)
	}
}
