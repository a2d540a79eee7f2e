package cache

import (
	"container/list"
	"fmt"
	"strings"
	"sync"

	"pocket-notes/internal/models"
)

const MaxCacheSize = 150

type cacheEntry struct {
	key  string
	note models.Note
}

// Cache is an LRU of single-note reads, keyed per user so one user's writes
// never serve another user's reads.
type Cache struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	order   *list.List
	maxSize int
}

func New(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = MaxCacheSize
	}
	return &Cache{
		items:   make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
	}
}

func NoteKey(userID, noteID int64) string {
	return fmt.Sprintf("note:%d:%d", userID, noteID)
}

func UserPrefix(userID int64) string {
	return fmt.Sprintf("note:%d:", userID)
}

// Get returns a copy of the cached note and marks it recently used.
func (c *Cache) Get(key string) (models.Note, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return models.Note{}, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).note, true
}

func (c *Cache) Set(key string, note models.Note) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*cacheEntry).note = note
		return
	}

	if c.order.Len() >= c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			delete(c.items, oldest.Value.(*cacheEntry).key)
			c.order.Remove(oldest)
		}
	}
	c.items[key] = c.order.PushFront(&cacheEntry{key: key, note: note})
}

func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		delete(c.items, key)
		c.order.Remove(elem)
	}
}

// InvalidateByPrefix drops every entry whose key starts with prefix, e.g. all
// notes of one user after their categories change.
func (c *Cache) InvalidateByPrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, elem := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
			c.order.Remove(elem)
		}
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
