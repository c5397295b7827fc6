package index

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/go-mizu/finsearch/internal/errs"
)

const (
	shardMagic   = "FSIX"
	shardVersion = 1
)

// shardFile is the on-disk payload of shard_{i}.data: self-describing
// enough to validate on load. It is gob-encoded then zstd-compressed.
type shardFile struct {
	Magic     string
	Version   int
	ShardID   uint16
	NumShards uint16
	Terms     map[string]PostingsList
}

func shardDataPath(dir string, id uint16) string {
	return filepath.Join(dir, fmt.Sprintf("shard_%d.data", id))
}

func shardMetaPath(dir string, id uint16) string {
	return filepath.Join(dir, fmt.Sprintf("shard_%d.meta.json", id))
}

// writeShardFile performs the atomic write-to-temp-then-rename
// publication every shard write uses, so readers always see either a
// fully-old or fully-new file, never a partial one.
func writeShardFile(dir string, id, numShards uint16, terms map[string]PostingsList) error {
	sf := shardFile{
		Magic:     shardMagic,
		Version:   shardVersion,
		ShardID:   id,
		NumShards: numShards,
		Terms:     terms,
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(&sf); err != nil {
		return errs.Resource("index: encode shard %d: %v", id, err)
	}

	finalPath := shardDataPath(dir, id)
	tmpPath := finalPath + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errs.Resource("index: open temp shard %d: %v", id, err)
	}

	zw, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return errs.Resource("index: zstd writer for shard %d: %v", id, err)
	}
	if _, err := zw.Write(raw.Bytes()); err != nil {
		zw.Close()
		f.Close()
		os.Remove(tmpPath)
		return errs.Resource("index: write shard %d: %v", id, err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return errs.Resource("index: close zstd writer for shard %d: %v", id, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return errs.Resource("index: sync shard %d: %v", id, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return errs.Resource("index: close shard %d: %v", id, err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return errs.Resource("index: publish shard %d: %v", id, err)
	}
	return nil
}

// readShardFile loads and validates a shard_{i}.data file. Validation
// failures are invariant violations: a shard file that exists but
// doesn't match the engine's configuration must fail fast rather than
// silently answer queries against the wrong term partition.
func readShardFile(dir string, id, numShards uint16) (map[string]PostingsList, error) {
	finalPath := shardDataPath(dir, id)
	f, err := os.Open(finalPath)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]PostingsList{}, nil
		}
		return nil, errs.Resource("index: open shard %d: %v", id, err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, errs.Invariant("index: shard %d: not a valid zstd stream: %v", id, err)
	}
	defer zr.Close()

	var raw bytes.Buffer
	if _, err := raw.ReadFrom(zr); err != nil {
		return nil, errs.Invariant("index: shard %d: decompress: %v", id, err)
	}

	var sf shardFile
	if err := gob.NewDecoder(&raw).Decode(&sf); err != nil {
		return nil, errs.Invariant("index: shard %d: decode: %v", id, err)
	}
	if sf.Magic != shardMagic {
		return nil, errs.Invariant("index: shard %d: bad magic %q", id, sf.Magic)
	}
	if sf.Version != shardVersion {
		return nil, errs.Invariant("index: shard %d: unsupported version %d", id, sf.Version)
	}
	if sf.ShardID != id {
		return nil, errs.Invariant("index: shard %d: file embeds shard_id %d", id, sf.ShardID)
	}
	if sf.NumShards != numShards {
		return nil, errs.Invariant("index: shard %d: file built with num_shards=%d, configured %d", id, sf.NumShards, numShards)
	}
	return sf.Terms, nil
}

func writeShardMeta(dir string, meta ShardMeta) error {
	path := shardMetaPath(dir, meta.ShardID)
	tmp := path + ".tmp"
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errs.Resource("index: marshal meta for shard %d: %v", meta.ShardID, err)
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return errs.Resource("index: write meta for shard %d: %v", meta.ShardID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errs.Resource("index: publish meta for shard %d: %v", meta.ShardID, err)
	}
	return nil
}

func readShardMeta(dir string, id uint16) (ShardMeta, error) {
	b, err := os.ReadFile(shardMetaPath(dir, id))
	if err != nil {
		if os.IsNotExist(err) {
			return ShardMeta{ShardID: id}, nil
		}
		return ShardMeta{}, errs.Resource("index: read meta for shard %d: %v", id, err)
	}
	var meta ShardMeta
	if err := json.Unmarshal(b, &meta); err != nil {
		return ShardMeta{}, errs.Invariant("index: meta for shard %d: %v", id, err)
	}
	return meta, nil
}
