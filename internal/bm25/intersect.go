package bm25

import (
	"sort"

	"github.com/go-mizu/finsearch/internal/index"
)

// termPostings pairs a query term with the postings list fetched for
// it, so scoring can look up idf/tf without re-fetching.
type termPostings struct {
	term     string
	postings index.PostingsList
}

// intersect sorts the surviving lists ascending by length, walks the
// shortest, and confirms each candidate doc_id exists in every other
// list via binary search. The result preserves ascending doc_id.
func intersect(lists []termPostings) []uint64 {
	if len(lists) == 0 {
		return nil
	}
	ordered := make([]termPostings, len(lists))
	copy(ordered, lists)
	sort.Slice(ordered, func(i, j int) bool {
		return len(ordered[i].postings) < len(ordered[j].postings)
	})

	shortest := ordered[0].postings
	rest := ordered[1:]

	candidates := make([]uint64, 0, len(shortest))
	for _, p := range shortest {
		found := true
		for _, r := range rest {
			if !containsDocID(r.postings, p.DocID) {
				found = false
				break
			}
		}
		if found {
			candidates = append(candidates, p.DocID)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })
	return candidates
}

// union returns the sorted, deduplicated set of doc_ids across every
// list, for the disjunctive fallback search.
func union(lists []termPostings) []uint64 {
	seen := make(map[uint64]struct{})
	for _, l := range lists {
		for _, p := range l.postings {
			seen[p.DocID] = struct{}{}
		}
	}
	out := make([]uint64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func containsDocID(list index.PostingsList, docID uint64) bool {
	i := sort.Search(len(list), func(i int) bool { return list[i].DocID >= docID })
	return i < len(list) && list[i].DocID == docID
}

// lookup binary-searches list for docID, returning the posting and
// whether it was found.
func lookup(list index.PostingsList, docID uint64) (index.Posting, bool) {
	i := sort.Search(len(list), func(i int) bool { return list[i].DocID >= docID })
	if i < len(list) && list[i].DocID == docID {
		return list[i], true
	}
	return index.Posting{}, false
}
