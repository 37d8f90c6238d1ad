package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// FileCache persists entries under a directory, one JSON file per key.
// It is the default backend: probe winners and mirror lists survive
// between CLI invocations without any external service.
type FileCache struct {
	dir string
}

// NewFileCache opens (and if needed creates) a cache rooted at dir.
func NewFileCache(dir string) (Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// record is the on-disk entry format. A zero Deadline means the entry
// never expires.
type record struct {
	Payload  []byte    `json:"payload"`
	Deadline time.Time `json:"deadline,omitzero"`
}

// Get returns the stored payload for key, expiring stale entries on
// the way out.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		// Unreadable entries are dropped and treated as misses
		_ = os.Remove(path)
		return nil, false, nil
	}
	if !rec.Deadline.IsZero() && time.Now().After(rec.Deadline) {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return rec.Payload, true, nil
}

// Set stores data under key. A nonzero ttl bounds the entry lifetime;
// zero keeps it until deleted.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	rec := record{Payload: data}
	if ttl != 0 {
		rec.Deadline = time.Now().Add(ttl)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	// Write-then-rename so a concurrent Get never sees a torn entry
	tmp, err := os.CreateTemp(filepath.Dir(path), ".entry-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Delete removes the entry for key. Deleting an absent key is not an
// error.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Close is a no-op; nothing is held open between calls.
func (c *FileCache) Close() error { return nil }

// path shards keys by hash prefix so a long-lived cache does not pile
// every entry into one directory.
func (c *FileCache) path(key string) string {
	sum := Hash([]byte(key))
	return filepath.Join(c.dir, sum[:2], sum[2:]+".json")
}

var _ Cache = (*FileCache)(nil)
