package index

import (
	"github.com/rs/zerolog"

	"github.com/go-mizu/finsearch/internal/errs"
)

// Index is the read-only, query-time handle over a finalized shard
// set plus global stats, as an explicit value passed around rather
// than a module-level singleton.
type Index struct {
	Dir       string
	NumShards uint16
	Stats     Stats
	shards    []*Shard
}

// Open loads every shard_{i}.data/.meta.json and stats.json under dir.
// It is the query path's entry point; it never mutates shard state.
func Open(dir string, numShards uint16, log zerolog.Logger) (*Index, error) {
	stats, err := ReadStats(dir)
	if err != nil {
		return nil, err
	}
	if stats.NumShards != numShards {
		return nil, errs.Invariant("index: stats.json num_shards=%d, configured %d", stats.NumShards, numShards)
	}

	shards := make([]*Shard, numShards)
	for i := uint16(0); i < numShards; i++ {
		sh, err := LoadShard(dir, i, numShards, log)
		if err != nil {
			return nil, err
		}
		shards[i] = sh
	}

	return &Index{Dir: dir, NumShards: numShards, Stats: stats, shards: shards}, nil
}

// GetPostings routes term to its owning shard and returns its
// postings list (nil if the term is unknown anywhere in the index).
func (idx *Index) GetPostings(term string) (PostingsList, error) {
	id := ShardID(term, idx.NumShards)
	return idx.shards[id].GetPostings(term)
}

// ShardMetas returns every shard's sidecar metadata.
func (idx *Index) ShardMetas() []ShardMeta {
	out := make([]ShardMeta, len(idx.shards))
	for i, sh := range idx.shards {
		out[i] = sh.Meta()
	}
	return out
}
