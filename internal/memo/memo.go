// Package memo memoizes upstream lookups keyed by function name and arguments.
//
// Entries expire after a TTL and can be dropped by the caller at any time, either
// one key at a time, per function, or all at once. Errors are never cached.
package memo

import (
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Key identifies one memoized call
type Key struct {
	Func string
	Args []string
}

// NewKey builds a key from a function name and its arguments
func NewKey(fn string, args ...string) Key {
	return Key{Func: fn, Args: args}
}

// String encodes the key; arguments are quoted so commas inside them cannot collide
func (k Key) String() string {
	quoted := make([]string, len(k.Args))
	for i, a := range k.Args {
		quoted[i] = strconv.Quote(a)
	}
	return k.Func + "(" + strings.Join(quoted, ",") + ")"
}

// Cache is safe for concurrent use. A nil *Cache memoizes nothing.
type Cache struct {
	items *gocache.Cache
}

// New creates a cache whose entries live for ttl
func New(ttl time.Duration) *Cache {
	return &Cache{items: gocache.New(ttl, 2*ttl)}
}

// Do returns the cached value for key or calls fn and caches its result.
// Concurrent misses on the same key may call fn more than once.
func (c *Cache) Do(key Key, fn func() (any, error)) (any, error) {
	if c == nil {
		return fn()
	}

	k := key.String()
	if v, ok := c.items.Get(k); ok {
		return v, nil
	}

	v, err := fn()
	if err != nil {
		return nil, err
	}
	c.items.SetDefault(k, v)
	return v, nil
}

// Get is the typed form of Do
func Get[T any](c *Cache, key Key, fn func() (T, error)) (T, error) {
	v, err := c.Do(key, func() (any, error) { return fn() })
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// InvalidateKey drops a single entry
func (c *Cache) InvalidateKey(key Key) {
	if c == nil {
		return
	}
	c.items.Delete(key.String())
}

// Invalidate drops every entry memoized for fn and returns how many were removed
func (c *Cache) Invalidate(fn string) int {
	if c == nil {
		return 0
	}
	prefix := fn + "("
	removed := 0
	for k := range c.items.Items() {
		if strings.HasPrefix(k, prefix) {
			c.items.Delete(k)
			removed++
		}
	}
	return removed
}

// Flush drops everything
func (c *Cache) Flush() {
	if c == nil {
		return
	}
	c.items.Flush()
}

// Len returns the number of live entries
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.items.ItemCount()
}
