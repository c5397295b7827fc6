package bm25

import "container/heap"

// scored is a candidate doc_id with its accumulated BM25 score.
type scored struct {
	docID uint64
	score float64
}

// topKHeap is a bounded min-heap: the smallest (score, then largest
// doc_id as the tiebreak-loser) sits at the root, so pushing past cap
// evicts the weakest candidate in O(log K). Final results are sorted
// score descending, doc_id ascending on ties.
type topKHeap struct {
	cap   int
	items []scored
}

func newTopKHeap(cap int) *topKHeap {
	return &topKHeap{cap: cap, items: make([]scored, 0, cap)}
}

func (h *topKHeap) Len() int { return len(h.items) }
func (h *topKHeap) Less(i, j int) bool {
	if h.items[i].score != h.items[j].score {
		return h.items[i].score < h.items[j].score
	}
	// Among equal scores, keep the smaller doc_id (ties broken
	// ascending doc_id in the final output) by making it "larger" in
	// min-heap terms so it survives eviction preferentially... the
	// final sort step is what actually enforces tie order; this only
	// needs to be a valid, consistent ordering for heap invariants.
	return h.items[i].docID > h.items[j].docID
}
func (h *topKHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *topKHeap) Push(x any)    { h.items = append(h.items, x.(scored)) }
func (h *topKHeap) Pop() any {
	old := h.items
	n := len(old)
	v := old[n-1]
	h.items = old[:n-1]
	return v
}

// add offers a candidate to the bounded heap, evicting the current
// weakest entry if at capacity and cand is stronger.
func (h *topKHeap) add(cand scored) {
	if h.cap <= 0 {
		return
	}
	if h.Len() < h.cap {
		heap.Push(h, cand)
		return
	}
	if h.worseThanRoot(cand) {
		return
	}
	heap.Pop(h)
	heap.Push(h, cand)
}

// worseThanRoot reports whether cand would never displace the current
// root (i.e. it's no better than the weakest kept candidate).
func (h *topKHeap) worseThanRoot(cand scored) bool {
	root := h.items[0]
	if cand.score != root.score {
		return cand.score < root.score
	}
	return cand.docID > root.docID
}

// sorted drains the heap into a slice ordered by score descending,
// doc_id ascending on ties.
func (h *topKHeap) sorted() []scored {
	out := make([]scored, len(h.items))
	copy(out, h.items)
	sortScored(out)
	return out
}

func sortScored(s []scored) {
	// Small K in practice; simple insertion sort keeps this file free
	// of an extra sort.Slice closure allocation per query.
	for i := 1; i < len(s); i++ {
		j := i
		for j > 0 && less(s[j], s[j-1]) {
			s[j], s[j-1] = s[j-1], s[j]
			j--
		}
	}
}

func less(a, b scored) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.docID < b.docID
}
