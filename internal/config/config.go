// Package config defines the flat configuration surface the engine's
// build and query paths read from, plus the ambient logging/data-
// directory fields every component needs. Loading config from disk is
// left to cmd/finsearchctl: this package only defines and validates
// the shape.
package config

import (
	"fmt"
	"time"
)

// Config holds every build-time and query-time tunable the engine
// exposes. Zero value is invalid; call Defaults() or Validate() after
// populating fields from a file/flags.
type Config struct {
	// Index build-time parameters (§6).
	NumShards       uint16 `yaml:"num_shards"`
	MemCapPerShard  uint32 `yaml:"mem_cap_per_shard"`
	BatchSize       uint32 `yaml:"batch_size"`
	DataDir         string `yaml:"data_dir"`

	// BM25 query-time parameters.
	K1            float64 `yaml:"k1"`
	B             float64 `yaml:"b"`
	DefaultTopK   uint32  `yaml:"default_top_k"`
	QueryDeadline time.Duration `yaml:"query_deadline"`

	// Tokenizer parameters.
	StopwordsEnabled bool  `yaml:"stopwords_enabled"`
	StemmingEnabled  bool  `yaml:"stemming_enabled"`
	MinTermLength    uint8 `yaml:"min_term_length"`
	MaxTermLength    uint8 `yaml:"max_term_length"`

	// Spill queue parameters.
	SpillMemCap uint32 `yaml:"spill_mem_cap"`
	SpillPath   string `yaml:"spill_path"`

	// Ambient.
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // "json" or "console"
}

// Defaults returns a Config with the recommended starting values.
func Defaults() Config {
	return Config{
		NumShards:        16,
		MemCapPerShard:   50_000,
		BatchSize:        256,
		DataDir:          "./data",
		K1:               1.2,
		B:                0.75,
		DefaultTopK:      10,
		QueryDeadline:    2 * time.Second,
		StopwordsEnabled: true,
		StemmingEnabled:  false,
		MinTermLength:    2,
		MaxTermLength:    64,
		SpillMemCap:      1024,
		SpillPath:        "./data/spill.store",
		LogLevel:         "info",
		LogFormat:        "console",
	}
}

// Validate rejects configurations that would break an invariant the
// build or query path relies on, before any shard/queue machinery is
// constructed.
func (c Config) Validate() error {
	if c.NumShards == 0 {
		return fmt.Errorf("config: num_shards must be > 0")
	}
	if c.MemCapPerShard == 0 {
		return fmt.Errorf("config: mem_cap_per_shard must be > 0")
	}
	if c.BatchSize == 0 {
		return fmt.Errorf("config: batch_size must be > 0")
	}
	if c.K1 < 0 {
		return fmt.Errorf("config: k1 must be >= 0")
	}
	if c.B < 0 || c.B > 1 {
		return fmt.Errorf("config: b must be in [0,1]")
	}
	if c.MinTermLength < 2 {
		return fmt.Errorf("config: min_term_length must be >= 2 (single-scalar tokens carry no discriminating power)")
	}
	if c.MaxTermLength < c.MinTermLength {
		return fmt.Errorf("config: max_term_length must be >= min_term_length")
	}
	if c.SpillMemCap == 0 {
		return fmt.Errorf("config: spill_mem_cap must be > 0")
	}
	return nil
}
