// Package diarcache caches diarization results on disk, keyed by audio
// file identity, so repeated attribution runs over the same file skip the
// expensive acoustic pass.
//
// The key is a hash of the absolute path and the file's modification time,
// which invalidates entries on file replacement without content hashing. A
// file rewritten in place with an identical mtime is not detected; that
// tradeoff is accepted for cheap keys.
package diarcache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/kbukum/speakerkit/diarization"
	"github.com/kbukum/speakerkit/errors"
)

// fileSuffix marks cache entries in the cache directory.
const fileSuffix = ".diar"

// DefaultMaxEntries is the retention count pruning falls back to.
const DefaultMaxEntries = 20

// Cache is a bounded, file-backed diarization result store. It is safe for
// concurrent use: writes for the same key are serialized, and pruning runs
// under a directory-scoped lock so overlapping runs cannot corrupt the
// read-modify-write of the directory listing.
type Cache struct {
	dir        string
	maxEntries int

	dirMu  sync.Mutex // guards prune's directory listing
	keysMu sync.Mutex
	keys   map[string]*sync.Mutex // per-key write locks
}

// New creates a cache rooted at dir, retaining at most maxEntries entries
// (DefaultMaxEntries if maxEntries is not positive).
func New(dir string, maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		dir:        dir,
		maxEntries: maxEntries,
		keys:       make(map[string]*sync.Mutex),
	}
}

// Key derives the cache key for an audio file from its absolute path and
// modification time. Returns an error if the file cannot be stat'd.
func (c *Cache) Key(audioPath string) (string, error) {
	abs, err := filepath.Abs(audioPath)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("stat audio file: %w", err)
	}
	sum := md5.Sum(fmt.Appendf(nil, "%s_%d", abs, info.ModTime().UnixNano()))
	return hex.EncodeToString(sum[:]), nil
}

// Get returns the cached diarization result for the audio file, or false
// if no valid entry exists. A stale or unreadable entry counts as a miss.
func (c *Cache) Get(audioPath string) (*diarization.DiarizationResponse, bool) {
	key, err := c.Key(audioPath)
	if err != nil {
		return nil, false
	}
	data, err := os.ReadFile(c.entryPath(key))
	if err != nil {
		return nil, false
	}
	var resp diarization.DiarizationResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

// Put stores a diarization result for the audio file, then prunes the
// cache directory down to the retention count. A Put failure is returned
// as a CacheWrite error; callers treat it as non-fatal.
func (c *Cache) Put(audioPath string, resp *diarization.DiarizationResponse) error {
	key, err := c.Key(audioPath)
	if err != nil {
		return errors.CacheWrite(audioPath, err)
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return errors.CacheWrite(c.dir, err)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return errors.CacheWrite(audioPath, err)
	}

	mu := c.keyLock(key)
	mu.Lock()
	err = os.WriteFile(c.entryPath(key), data, 0o644)
	mu.Unlock()
	if err != nil {
		return errors.CacheWrite(c.entryPath(key), err)
	}

	if err := c.prune(); err != nil {
		return errors.CacheWrite(c.dir, err)
	}
	return nil
}

// prune deletes the oldest entries by modification time until at most
// maxEntries remain.
func (c *Cache) prune() error {
	c.dirMu.Lock()
	defer c.dirMu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}

	type cacheFile struct {
		path    string
		modTime int64
	}
	var files []cacheFile
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileSuffix {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, cacheFile{
			path:    filepath.Join(c.dir, e.Name()),
			modTime: info.ModTime().UnixNano(),
		})
	}
	if len(files) <= c.maxEntries {
		return nil
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime < files[j].modTime
	})
	for _, f := range files[:len(files)-c.maxEntries] {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (c *Cache) entryPath(key string) string {
	return filepath.Join(c.dir, key+fileSuffix)
}

func (c *Cache) keyLock(key string) *sync.Mutex {
	c.keysMu.Lock()
	defer c.keysMu.Unlock()
	mu, ok := c.keys[key]
	if !ok {
		mu = &sync.Mutex{}
		c.keys[key] = mu
	}
	return mu
}
