package dict

import (
	"container/list"
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/velmed/callscore/internal/model"
)

// TermSource fetches active terms for a dictionary version, typically backed
// by the lm.dictionary_terms table.
type TermSource interface {
	GetTerms(ctx context.Context, dictCode, version string, activeOnly bool) ([]model.DictionaryTerm, error)
}

// Cache is a bounded LRU of compiled term sets keyed by (dict code, version).
// Dictionary versions are immutable, so entries never go stale; the bound just
// keeps memory flat when many versions are scored in one process.
type Cache struct {
	source TermSource
	max    int

	mu      sync.Mutex
	order   *list.List // front = most recently used
	entries map[cacheKey]*list.Element
}

type cacheKey struct {
	code    string
	version string
}

type cacheEntry struct {
	key   cacheKey
	terms []compiledTerm
}

// NewCache creates a term cache holding at most max compiled dictionaries.
func NewCache(source TermSource, max int) *Cache {
	if max <= 0 {
		max = 8
	}
	return &Cache{
		source:  source,
		max:     max,
		order:   list.New(),
		entries: make(map[cacheKey]*list.Element),
	}
}

// Get returns the compiled term set for (dictCode, version), fetching and
// compiling it on first use.
func (c *Cache) Get(ctx context.Context, dictCode, version string) ([]compiledTerm, error) {
	key := cacheKey{code: dictCode, version: version}

	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		terms := el.Value.(*cacheEntry).terms
		c.mu.Unlock()
		return terms, nil
	}
	c.mu.Unlock()

	raw, err := c.source.GetTerms(ctx, dictCode, version, true)
	if err != nil {
		return nil, eris.Wrapf(err, "dict: load terms %s/%s", dictCode, version)
	}
	compiled := Compile(raw)

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another goroutine may have filled the slot while we were fetching.
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*cacheEntry).terms, nil
	}
	el := c.order.PushFront(&cacheEntry{key: key, terms: compiled})
	c.entries[key] = el
	for c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
	return compiled, nil
}

// Invalidate drops one dictionary version from the cache.
func (c *Cache) Invalidate(dictCode, version string) {
	key := cacheKey{code: dictCode, version: version}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
	}
}

// Len reports how many dictionaries are currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
