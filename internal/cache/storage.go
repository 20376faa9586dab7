package cache

import (
	"errors"
	"net/http"
	"sort"
	"sync"
)

// maxEntryBytes bounds a single cached body. Oversized puts fail; the
// manager swallows that failure, so the only effect is a cache miss on
// the next request.
const maxEntryBytes = 8 << 20

// ErrEntryTooLarge is returned by Put for bodies over maxEntryBytes.
var ErrEntryTooLarge = errors.New("cache entry exceeds size limit")

// Entry is one cached response: status, headers and the full body.
// Entries are immutable once stored.
type Entry struct {
	Status int
	Header http.Header
	Body   []byte
}

// VersionCache is one named cache of response entries, keyed by request
// URI. Safe for concurrent use.
type VersionCache struct {
	name    string
	mu      sync.RWMutex
	entries map[string]Entry
}

// Name returns the cache's version name.
func (c *VersionCache) Name() string {
	return c.name
}

// Match returns the cached entry for the key, if present. A miss is not
// an error; callers fall through to the network.
func (c *VersionCache) Match(key string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

// Put stores an entry, replacing any previous one for the key.
func (c *VersionCache) Put(key string, e Entry) error {
	if len(e.Body) > maxEntryBytes {
		return ErrEntryTooLarge
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// Len returns the number of cached entries.
func (c *VersionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Storage is the registry of named version caches, analogous to the
// browser's CacheStorage. One Storage is shared across manager versions
// so that activation can purge its predecessors.
type Storage struct {
	mu     sync.Mutex
	caches map[string]*VersionCache
}

// NewStorage creates an empty registry.
func NewStorage() *Storage {
	return &Storage{caches: make(map[string]*VersionCache)}
}

// Open returns the cache with the given name, creating it if absent.
func (s *Storage) Open(name string) *VersionCache {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.caches[name]
	if !ok {
		c = &VersionCache{name: name, entries: make(map[string]Entry)}
		s.caches[name] = c
	}
	return c
}

// Names lists the registered cache names, sorted.
func (s *Storage) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.caches))
	for name := range s.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Delete removes the named cache and all its entries. Returns whether the
// cache existed.
func (s *Storage) Delete(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.caches[name]
	delete(s.caches, name)
	return ok
}
