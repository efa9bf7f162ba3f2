// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package editcore

import (
	"container/list"
	"sync"

	"github.com/sassoftware/viya-pdf-editcore/logger"
)

// RenderKey identifies one cached bitmap.
type RenderKey struct {
	Doc   DocumentID
	Page  int
	Scale float64
}

type bitmapEntry struct {
	key    RenderKey
	bitmap *Bitmap
	size   int64
}

// BitmapCache is a byte-budgeted LRU cache of rendered page bitmaps.
// The Page Mutation Cache invalidates entries on every edit, so a hit is
// always coherent with the document's current in-memory state.
type BitmapCache struct {
	mu      sync.Mutex
	budget  int64
	total   int64
	order   *list.List // front = most recently used
	entries map[RenderKey]*list.Element

	hits      uint64
	misses    uint64
	evictions uint64
}

func NewBitmapCache(budget int64) *BitmapCache {
	return &BitmapCache{
		budget:  budget,
		order:   list.New(),
		entries: make(map[RenderKey]*list.Element),
	}
}

// Get returns the cached bitmap for key, promoting it to most recently
// used, or nil on a miss.
func (c *BitmapCache) Get(key RenderKey) *Bitmap {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil
	}
	c.order.MoveToFront(elem)
	c.hits++
	return elem.Value.(*bitmapEntry).bitmap
}

// Put inserts a rendered bitmap. Any existing entry for the same key is
// replaced first, then least-recently-used entries are evicted until the
// new entry fits the budget. A bitmap larger than the whole budget is not
// cached at all; inserting it could never satisfy the budget invariant.
func (c *BitmapCache) Put(key RenderKey, bm *Bitmap) {
	size := bm.ByteSize()

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.removeLocked(elem)
	}

	if size > c.budget {
		logger.Debug("Bitmap exceeds whole cache budget, not caching",
			"doc", key.Doc, "page", key.Page, "bytes", size, true)
		return
	}

	for c.total+size > c.budget {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
		c.evictions++
	}

	elem := c.order.PushFront(&bitmapEntry{key: key, bitmap: bm, size: size})
	c.entries[key] = elem
	c.total += size
}

// InvalidatePage removes every entry for (doc, page) across all scales.
// Called after every successful edit to the page, before the edit result
// is returned, so no stale bitmap can be served after a mutation is
// acknowledged. Safe to call when no entries exist.
func (c *BitmapCache) InvalidatePage(doc DocumentID, page int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, elem := range c.entries {
		if key.Doc == doc && key.Page == page {
			c.removeLocked(elem)
		}
	}
}

// InvalidateDocument removes every entry for the document. Used on close.
func (c *BitmapCache) InvalidateDocument(doc DocumentID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, elem := range c.entries {
		if key.Doc == doc {
			c.removeLocked(elem)
		}
	}
}

// removeLocked unlinks an entry and adjusts the running byte total.
func (c *BitmapCache) removeLocked(elem *list.Element) {
	entry := elem.Value.(*bitmapEntry)
	c.order.Remove(elem)
	delete(c.entries, entry.key)
	c.total -= entry.size
}

// Len reports the number of cached bitmaps.
func (c *BitmapCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// SizeBytes reports the total resident bytes across all entries.
func (c *BitmapCache) SizeBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// CacheStats holds bitmap cache counters.
type CacheStats struct {
	Entries   int
	Bytes     int64
	Budget    int64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Stats returns a snapshot of the cache counters.
func (c *BitmapCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Entries:   len(c.entries),
		Bytes:     c.total,
		Budget:    c.budget,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
