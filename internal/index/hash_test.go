package index

import (
	"crypto/rand"
	"testing"
)

func TestShardID_RoutingStability(t *testing.T) {
	const numShards = 16
	terms := make([]string, 10_000)
	for i := range terms {
		buf := make([]byte, 12)
		rand.Read(buf)
		terms[i] = string(buf)
	}

	for _, term := range terms {
		a := ShardID(term, numShards)
		b := ShardID(term, numShards)
		if a != b {
			t.Fatalf("ShardID(%q) not stable: %d != %d", term, a, b)
		}
		if a >= numShards {
			t.Fatalf("ShardID(%q) = %d out of range [0,%d)", term, a, numShards)
		}
	}
}

func TestShardID_DifferentNumShardsCanDiffer(t *testing.T) {
	// Different numShards are free to route a term differently; the
	// only hard requirement is staying in range for whatever N is passed.
	for n := uint16(1); n <= 32; n++ {
		id := ShardID("alpha", n)
		if id >= n {
			t.Fatalf("ShardID(alpha, %d) = %d out of range", n, id)
		}
	}
}

func TestShardID_Distribution(t *testing.T) {
	const numShards = 8
	counts := make([]int, numShards)
	for i := 0; i < 10_000; i++ {
		term := randTerm(i)
		counts[ShardID(term, numShards)]++
	}
	for i, c := range counts {
		if c == 0 {
			t.Errorf("shard %d received no terms across 10000 samples; hash looks broken", i)
		}
	}
}

func randTerm(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, 6)
	for j := range b {
		b[j] = letters[(i*31+j*7)%len(letters)]
	}
	return string(b) + string(rune('a'+i%26))
}
