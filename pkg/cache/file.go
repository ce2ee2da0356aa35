package cache

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"time"
)

// FileCache stores entries on disk, sharded into two-character
// subdirectories by key hash. Entries are fetched source bytes and rendered
// outputs, so payloads stay raw on disk behind a fixed-size expiry header
// instead of being wrapped in an envelope format.
type FileCache struct {
	dir string
}

// entryHeaderSize is the expiry prefix: unix nanoseconds, big-endian, zero
// for entries that never expire.
const entryHeaderSize = 8

// NewFileCache creates a file-backed cache rooted at dir, creating the
// directory when missing.
func NewFileCache(dir string) (Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// Get returns the payload for key. Absent, truncated, and expired entries
// are all misses; the latter two are removed on the way out.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if len(raw) < entryHeaderSize {
		_ = os.Remove(path)
		return nil, false, nil
	}

	if expiry := int64(binary.BigEndian.Uint64(raw)); expiry > 0 && time.Now().UnixNano() > expiry {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return raw[entryHeaderSize:], true, nil
}

// Set writes the payload for key. A ttl of zero or less means the entry
// never expires.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	buf := make([]byte, entryHeaderSize+len(data))
	if ttl > 0 {
		binary.BigEndian.PutUint64(buf, uint64(time.Now().Add(ttl).UnixNano()))
	}
	copy(buf[entryHeaderSize:], data)
	return os.WriteFile(path, buf, 0o644)
}

// Delete removes the entry for key. Deleting a missing entry is not an
// error.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Close is a no-op; the cache keeps no open handles.
func (c *FileCache) Close() error {
	return nil
}

// path shards keys by hash prefix so a busy cache does not pile every entry
// into a single directory.
func (c *FileCache) path(key string) string {
	hash := Hash([]byte(key))
	return filepath.Join(c.dir, hash[:2], hash[2:]+".bin")
}

var _ Cache = (*FileCache)(nil)
