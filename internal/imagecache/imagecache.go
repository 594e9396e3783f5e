// Package imagecache keeps recently viewed receipt images in memory so
// flipping between receipts does not refetch them from the backend.
// Entries are evicted least-recently-used and expire after a TTL.
package imagecache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// FetchFunc loads an image from the backend on cache miss.
type FetchFunc func(ctx context.Context, id int64, thumb bool) (data []byte, contentType string, err error)

type key struct {
	id    int64
	thumb bool
}

type entry struct {
	key         key
	data        []byte
	contentType string
	expiresAt   time.Time
}

// Cache is a fixed-size LRU of receipt images. Safe for concurrent use.
type Cache struct {
	fetch      FetchFunc
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	mu    sync.Mutex
	ll    *list.List
	index map[key]*list.Element
}

func New(fetch FetchFunc, maxEntries int, ttl time.Duration) *Cache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Cache{
		fetch:      fetch,
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
		ll:         list.New(),
		index:      make(map[key]*list.Element),
	}
}

// Get returns the image for a receipt, fetching it on miss or expiry.
func (c *Cache) Get(ctx context.Context, id int64, thumb bool) ([]byte, string, error) {
	k := key{id: id, thumb: thumb}

	c.mu.Lock()
	if el, ok := c.index[k]; ok {
		ent := el.Value.(*entry)
		if c.now().Before(ent.expiresAt) {
			c.ll.MoveToFront(el)
			data, ct := ent.data, ent.contentType
			c.mu.Unlock()
			return data, ct, nil
		}
		c.removeElement(el)
	}
	c.mu.Unlock()

	data, contentType, err := c.fetch(ctx, id, thumb)
	if err != nil {
		return nil, "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A concurrent fetch for the same key may have landed first; the
	// later write wins, same as everywhere else in the client.
	if el, ok := c.index[k]; ok {
		c.removeElement(el)
	}
	el := c.ll.PushFront(&entry{
		key:         k,
		data:        data,
		contentType: contentType,
		expiresAt:   c.now().Add(c.ttl),
	})
	c.index[k] = el
	for c.ll.Len() > c.maxEntries {
		c.removeElement(c.ll.Back())
	}
	return data, contentType, nil
}

// Invalidate drops both the full image and the thumbnail for a receipt.
// Called after a receipt is deleted or replaced.
func (c *Cache) Invalidate(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, thumb := range []bool{false, true} {
		if el, ok := c.index[key{id: id, thumb: thumb}]; ok {
			c.removeElement(el)
		}
	}
}

// Len returns the number of cached images.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *Cache) removeElement(el *list.Element) {
	c.ll.Remove(el)
	delete(c.index, el.Value.(*entry).key)
}
