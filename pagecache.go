// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package editcore

import (
	"fmt"
	"sync"

	"github.com/sassoftware/viya-pdf-editcore/logger"
)

type pageKey struct {
	doc  DocumentID
	page int
}

type cachedPage struct {
	handle PageHandle
	dirty  bool
}

// PageCache tracks pages that have been opened for editing.
//
// Regenerating a page's serializable content immediately after an edit
// corrupts pages that use subset fonts or spacing-adjustment text runs,
// because partial regeneration interacts badly with the engine's
// incremental layout state. Edited pages therefore stay open with a dirty
// flag, renders read the live in-memory objects, and RegenerateContent
// runs exactly once per dirty page right before serialization.
type PageCache struct {
	mu     sync.Mutex
	engine Engine
	pages  map[pageKey]*cachedPage
}

func NewPageCache(engine Engine) *PageCache {
	return &PageCache{
		engine: engine,
		pages:  make(map[pageKey]*cachedPage),
	}
}

// Acquire returns the cached handle for (doc, page) if one exists,
// otherwise loads the page fresh from the engine. fromCache tells the
// caller how to release. A cache miss is never an error; only genuine
// engine load failures propagate.
func (c *PageCache) Acquire(docID DocumentID, doc DocHandle, pageIndex int) (PageHandle, bool, error) {
	c.mu.Lock()
	if cp, ok := c.pages[pageKey{docID, pageIndex}]; ok {
		c.mu.Unlock()
		return cp.handle, true, nil
	}
	c.mu.Unlock()

	handle, err := c.engine.LoadPage(doc, pageIndex)
	if err != nil {
		return nil, false, fmt.Errorf("document %d page %d: %w: %w", docID, pageIndex, ErrPageLoadFailed, err)
	}
	return handle, false, nil
}

// Release returns a handle obtained from Acquire. Cached handles stay
// open so future reads see live in-memory edits; fresh handles are closed
// immediately to bound resource use.
func (c *PageCache) Release(docID DocumentID, pageIndex int, handle PageHandle, fromCache bool) {
	if !fromCache {
		c.engine.ClosePage(handle)
	}
}

// MarkDirty inserts or updates the cache entry for the page and flags it
// dirty. Called after any successful in-memory edit.
func (c *PageCache) MarkDirty(docID DocumentID, pageIndex int, handle PageHandle) {
	c.mu.Lock()
	c.pages[pageKey{docID, pageIndex}] = &cachedPage{handle: handle, dirty: true}
	c.mu.Unlock()
	logger.Debug("Page marked dirty", "doc", docID, "page", pageIndex, true)
}

// FlushAndClose regenerates content for every dirty cached page of the
// document, exactly once per page, then closes all of its cached pages.
// Returns false if any regeneration call fails; pages are closed either
// way so handles never leak. Must run immediately before Serialize.
func (c *PageCache) FlushAndClose(docID DocumentID) bool {
	pages := c.take(docID)

	allOK := true
	for key, cp := range pages {
		if cp.dirty {
			if !c.engine.RegenerateContent(cp.handle) {
				logger.Error("content regeneration failed", "doc", key.doc, "page", key.page)
				allOK = false
			}
		}
		c.engine.ClosePage(cp.handle)
	}

	logger.Debug("Flushed cached pages", "doc", docID, "pages", len(pages), "ok", allOK, true)
	return allOK
}

// Discard closes all cached pages for the document without regenerating
// content. Used when closing a document without saving.
func (c *PageCache) Discard(docID DocumentID) {
	pages := c.take(docID)
	for _, cp := range pages {
		c.engine.ClosePage(cp.handle)
	}
	logger.Debug("Discarded cached pages", "doc", docID, "pages", len(pages), true)
}

// take removes and returns every cache entry for the document.
func (c *PageCache) take(docID DocumentID) map[pageKey]*cachedPage {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[pageKey]*cachedPage)
	for key, cp := range c.pages {
		if key.doc == docID {
			out[key] = cp
			delete(c.pages, key)
		}
	}
	return out
}

// Len reports the number of cached pages for the document.
func (c *PageCache) Len(docID DocumentID) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key := range c.pages {
		if key.doc == docID {
			n++
		}
	}
	return n
}
