package index

import (
	"math/big"

	"github.com/zeebo/xxh3"
)

// ShardID computes the owning shard for term under the engine's fixed
// hash: XXH128 over the term's raw UTF-8 bytes, interpreted as an
// unsigned 128-bit integer, modulo numShards. Shard files are only
// portable between builds that agree on both this hash and numShards.
func ShardID(term string, numShards uint16) uint16 {
	h := xxh3.Hash128([]byte(term))
	raw := h.Bytes() // big-endian 128-bit value

	n := new(big.Int).SetBytes(raw[:])
	mod := new(big.Int).SetUint64(uint64(numShards))
	n.Mod(n, mod)
	return uint16(n.Uint64())
}
