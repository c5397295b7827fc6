// Package index implements the sharded, positional inverted-index
// builder and its shard storage format (engine component C2): a
// two-pass builder that routes term->posting emissions to N shards by
// a stable 128-bit hash, buffers each shard in memory, and
// flush-merges to disk while preserving ascending-doc_id order.
package index

// Posting is one term's occurrence record in one document.
// Invariant: TF == len(Positions), and Positions is ascending.
type Posting struct {
	DocID     uint64
	TF        uint32
	Positions []uint32
	DocLength uint32
}

// PostingsList is the ordered, per-term sequence of Postings,
// strictly ascending by DocID with no duplicates.
type PostingsList []Posting

// ShardMeta is the sidecar metadata persisted next to a shard's data
// file.
type ShardMeta struct {
	ShardID    uint16 `json:"shard_id"`
	NumShards  uint16 `json:"num_shards"`
	TermCount  uint64 `json:"term_count"`
	DocCount   uint64 `json:"doc_count"`
	TotalTF    uint64 `json:"total_tf"`
}

// Stats is the global index statistics file, written once after pass
// 1 and read-only thereafter.
type Stats struct {
	TotalDocs     uint64 `json:"total_docs"`
	AvgDocLength  float64 `json:"avg_doc_length"`
	NumShards     uint16  `json:"num_shards"`
	BuildID       string  `json:"build_id"`
	BuiltAt       int64   `json:"built_at"`
	PerDocLength  map[uint64]uint32 `json:"per_doc_length,omitempty"`
}

// Document is the minimal view of a document store row the builder
// needs: a dense, monotonically assigned id and the text to tokenize.
type Document struct {
	ID   uint64
	Body string
}
