// Package cache stores comparison reports on disk keyed by the compared
// files and settings.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/lenticularis39/diffkemp/internal/report"
)

// SchemaVersion is bumped whenever Payload changes.
const SchemaVersion uint16 = 1

// ErrSchema is returned for an entry written by another schema version.
var ErrSchema = errors.New("cache entry schema mismatch")

// Key identifies one comparison.
type Key [32]byte

// Settings are the comparison options a cached report depends on.
type Settings struct {
	ControlFlowOnly bool
	MaxInlineDepth  int
	AlwaysEqual     []string
	CallStacks      bool
}

// NewKey digests the inputs that determine a result. The order of
// AlwaysEqual does not matter.
func NewKey(left, right [32]byte, pair string, s Settings) Key {
	h := sha256.New()
	_, _ = h.Write(left[:])
	_, _ = h.Write(right[:])
	field := func(v string) {
		_, _ = h.Write([]byte(v))
		_, _ = h.Write([]byte{0})
	}
	field(pair)
	field(strconv.FormatBool(s.ControlFlowOnly))
	field(strconv.Itoa(s.MaxInlineDepth))
	field(strconv.FormatBool(s.CallStacks))
	names := slices.Compact(slices.Sorted(slices.Values(s.AlwaysEqual)))
	field(strconv.Itoa(len(names)))
	for _, n := range names {
		field(n)
	}
	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// Payload is one cached result.
type Payload struct {
	Schema  uint16
	Left    string
	Right   string
	Pair    string
	Created time.Time
	Report  report.Report
}

// Cache is a directory of msgpack payloads. Safe for concurrent use; a
// nil Cache stores nothing.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Open returns the cache rooted at dir, creating it.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *Cache) pathFor(key Key) string {
	s := key.String()
	return filepath.Join(c.dir, "results", s[:2], s+".mp")
}

// Put writes payload under key through a temp file and rename.
func (c *Cache) Put(key Key, payload *Payload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	payload.Schema = SchemaVersion
	if payload.Created.IsZero() {
		payload.Created = time.Now()
	}
	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// Get reads the payload under key. A missing entry is not an error.
func (c *Cache) Get(key Key, out *Payload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	if out.Schema != SchemaVersion {
		return false, fmt.Errorf("%w: entry %s has schema %d, want %d", ErrSchema, key, out.Schema, SchemaVersion)
	}
	return true, nil
}

// DropAll removes every entry.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}
