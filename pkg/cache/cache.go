package cache

import (
	"container/list"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	DefaultMaxItems = 1000
	DefaultTTL      = time.Hour
)

// Item represents a cached value with its insertion time.
type Item struct {
	V        any
	Inserted time.Time
}

// Cache is a bounded in-memory TTL cache safe for concurrent use.
// When full, the oldest inserted entry is evicted; reads never change the order.
type Cache struct {
	mu       sync.Mutex
	items    map[string]*list.Element
	order    *list.List // oldest insertion at front
	maxItems int
	ttl      time.Duration
	now      func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

type entry struct {
	key  string
	item Item
}

// Option customises a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New returns a cache holding at most maxItems entries for ttl each.
// Non-positive values fall back to the defaults.
func New(maxItems int, ttl time.Duration, opts ...Option) *Cache {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		items:    make(map[string]*list.Element),
		order:    list.New(),
		maxItems: maxItems,
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value stored under key unless it has expired.
// Expired entries are removed on the way out.
func (c *Cache) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if c.expiredNoLock(e) {
		c.removeNoLock(el)
		return nil, false
	}
	return e.item.V, true
}

// Set stores v under key. Overwriting refreshes the value and its TTL but keeps
// its first insertion slot.
func (c *Cache) Set(key string, v any) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if el, ok := c.items[key]; ok {
		el.Value.(*entry).item = Item{V: v, Inserted: now}
		return
	}
	for c.order.Len() >= c.maxItems {
		c.removeNoLock(c.order.Front())
	}
	c.items[key] = c.order.PushBack(&entry{key: key, item: Item{V: v, Inserted: now}})
}

// Delete removes a key.
func (c *Cache) Delete(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		c.removeNoLock(el)
	}
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// StartJanitor sweeps expired entries every interval until Stop is called.
func (c *Cache) StartJanitor(interval time.Duration) {
	go c.janitor(interval)
}

// Stop ends the janitor goroutine, if any.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) janitor(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-t.C:
			c.Sweep()
		}
	}
}

// Sweep removes every expired entry.
func (c *Cache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if c.expiredNoLock(el.Value.(*entry)) {
			c.removeNoLock(el)
		}
		el = next
	}
}

// KeyFromStrings creates an unambiguous key from parts.
func KeyFromStrings(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(strconv.Itoa(len(p)))
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}

func (c *Cache) expiredNoLock(e *entry) bool {
	return c.now().Sub(e.item.Inserted) > c.ttl
}

// removeNoLock removes el from map/list; caller must hold c.mu.
func (c *Cache) removeNoLock(el *list.Element) {
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}
