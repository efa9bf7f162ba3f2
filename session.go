// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package editcore

import (
	"context"
	"fmt"

	"github.com/sassoftware/viya-pdf-editcore/logger"
)

// Session is the edit-orchestration core for one UI session: a document
// registry, the page mutation cache, a byte-budgeted bitmap cache, the
// render scheduler and the undo history, all sharing one engine.
//
// Sessions are independent; nothing is process-global, so tests and
// multi-window hosts can run several side by side.
//
// Every engine call that touches a document runs under that document's
// mutex, which serializes mutation and render for a page as the engine
// requires. Different documents proceed concurrently, bounded by the
// scheduler's render cap.
type Session struct {
	cfg       *Config
	engine    Engine
	registry  *Registry
	pages     *PageCache
	bitmaps   *BitmapCache
	scheduler *RenderScheduler
	history   *History
}

// NewSession validates the config and assembles the core around the
// injected engine.
func NewSession(engine Engine, cfg *Config) (*Session, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	if cfg.Logger != nil {
		logger.SetLogger(cfg.Logger)
	}

	bitmaps := NewBitmapCache(cfg.CacheByteBudget)

	logger.Debug(fmt.Sprintf("Session initialized: cache_budget=%d render_concurrency=%d undo_depth=%d",
		cfg.CacheByteBudget, cfg.RenderConcurrency, cfg.MaxUndoDepth), true)

	return &Session{
		cfg:       cfg,
		engine:    engine,
		registry:  NewRegistry(engine),
		pages:     NewPageCache(engine),
		bitmaps:   bitmaps,
		scheduler: NewRenderScheduler(bitmaps, cfg.RenderConcurrency),
		history:   NewHistory(cfg.MaxUndoDepth),
	}, nil
}

// OpenDocument opens a document from bytes and returns its id and page
// count. The bytes are pinned for the document's lifetime. Opening a
// document clears the undo history, as does replacing one; saving never
// does.
func (s *Session) OpenDocument(data []byte, password string) (DocumentID, int, error) {
	id, err := s.registry.Open(data, password)
	if err != nil {
		return 0, 0, err
	}
	s.history.Clear()

	count, err := s.registry.PageCount(id)
	if err != nil {
		return 0, 0, err
	}
	return id, count, nil
}

// CloseDocument closes without saving: cached pages are discarded with no
// content regeneration, the engine handle is released, the backing bytes
// are unpinned, and every bitmap for the document is dropped.
func (s *Session) CloseDocument(id DocumentID) error {
	doc, err := s.registry.lookup(id)
	if err != nil {
		return err
	}

	doc.mu.Lock()
	s.pages.Discard(id)
	doc.mu.Unlock()

	if err := s.registry.Close(id); err != nil {
		return err
	}
	s.bitmaps.InvalidateDocument(id)
	return nil
}

// PageCount reports the document's page count.
func (s *Session) PageCount(id DocumentID) (int, error) {
	return s.registry.PageCount(id)
}

// RenderPage renders one page at the given scale, serving from the
// bitmap cache when possible.
func (s *Session) RenderPage(ctx context.Context, id DocumentID, pageIndex int, scale float64) (*Bitmap, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("scale %g must be positive: %w", scale, ErrInvalidInput)
	}
	doc, err := s.registry.lookup(id)
	if err != nil {
		return nil, err
	}
	if pageIndex < 0 || pageIndex >= doc.pageCount {
		return nil, fmt.Errorf("page %d out of range [0, %d): %w", pageIndex, doc.pageCount, ErrInvalidInput)
	}

	key := RenderKey{Doc: id, Page: pageIndex, Scale: scale}
	return s.scheduler.Render(ctx, key, func() (*Bitmap, error) {
		return s.renderLocked(doc, key)
	})
}

// renderLocked performs the actual engine render under the document
// mutex and populates the cache. The cache re-check covers requests that
// were queued while an identical request completed. The document may
// have been closed while the request waited for a slot, so it is
// re-checked before any engine call.
func (s *Session) renderLocked(doc *document, key RenderKey) (*Bitmap, error) {
	doc.mu.Lock()
	defer doc.mu.Unlock()

	if err := doc.ensureOpen(); err != nil {
		return nil, err
	}

	if bm := s.bitmaps.Get(key); bm != nil {
		return bm, nil
	}

	handle, fromCache, err := s.pages.Acquire(key.Doc, doc.handle, key.Page)
	if err != nil {
		return nil, err
	}
	defer s.pages.Release(key.Doc, key.Page, handle, fromCache)

	bm, err := s.engine.Render(handle, key.Scale)
	if err != nil {
		return nil, fmt.Errorf("document %d page %d: %w: %w", key.Doc, key.Page, ErrRenderFailed, err)
	}

	s.bitmaps.Put(key, bm)
	return bm, nil
}

// ListPageObjects enumerates the page's objects. The listing goes through
// the page mutation cache, so edited pages report their live in-memory
// content, not the last serialized state.
func (s *Session) ListPageObjects(id DocumentID, pageIndex int) ([]PageObject, error) {
	doc, err := s.registry.lookup(id)
	if err != nil {
		return nil, err
	}
	if pageIndex < 0 || pageIndex >= doc.pageCount {
		return nil, fmt.Errorf("page %d out of range [0, %d): %w", pageIndex, doc.pageCount, ErrInvalidInput)
	}

	doc.mu.Lock()
	defer doc.mu.Unlock()
	return s.listObjectsLocked(doc, id, pageIndex)
}

func (s *Session) listObjectsLocked(doc *document, id DocumentID, pageIndex int) ([]PageObject, error) {
	if err := doc.ensureOpen(); err != nil {
		return nil, err
	}

	handle, fromCache, err := s.pages.Acquire(id, doc.handle, pageIndex)
	if err != nil {
		return nil, err
	}
	defer s.pages.Release(id, pageIndex, handle, fromCache)

	objects, err := s.engine.ListObjects(handle)
	if err != nil {
		return nil, fmt.Errorf("list objects: document %d page %d: %w", id, pageIndex, err)
	}
	return objects, nil
}

// ApplyTextEdit replaces a text object's content, recorded as an
// undoable command. The object's prior text is captured first so the
// inverse is exact.
func (s *Session) ApplyTextEdit(ctx context.Context, id DocumentID, pageIndex, objectID int, newText string) error {
	if newText == "" {
		return fmt.Errorf("empty replacement text: %w", ErrInvalidInput)
	}

	obj, err := s.findObject(id, pageIndex, objectID)
	if err != nil {
		return err
	}
	if obj.Type != ObjectText {
		return fmt.Errorf("object %d on page %d is %s, not text: %w", objectID, pageIndex, obj.Type, ErrInvalidInput)
	}

	return s.history.Push(ctx, &TextEditCommand{
		session:   s,
		DocID:     id,
		PageIndex: pageIndex,
		ObjectID:  objectID,
		NewText:   newText,
		PrevText:  obj.Text,
	})
}

// ApplyImageReplace replaces an image object's data, recorded as a
// command. Payload checks (size gate, format whitelist, content sniff)
// all run before any engine call. The action is not reversible; see
// ImageReplaceCommand.
func (s *Session) ApplyImageReplace(ctx context.Context, id DocumentID, pageIndex, objectID int, payload []byte, format string) error {
	if _, err := s.registry.lookup(id); err != nil {
		return err
	}

	img, err := prepareImage(payload, format, s.cfg.MaxImageBytes)
	if err != nil {
		return err
	}

	obj, err := s.findObject(id, pageIndex, objectID)
	if err != nil {
		return err
	}
	if obj.Type != ObjectImage {
		return fmt.Errorf("object %d on page %d is %s, not an image: %w", objectID, pageIndex, obj.Type, ErrInvalidInput)
	}

	return s.history.Push(ctx, &ImageReplaceCommand{
		session:   s,
		DocID:     id,
		PageIndex: pageIndex,
		ObjectID:  objectID,
		Image:     img,
	})
}

// findObject validates the page index and returns the object with the
// given id, observing live in-memory edits.
func (s *Session) findObject(id DocumentID, pageIndex, objectID int) (PageObject, error) {
	doc, err := s.registry.lookup(id)
	if err != nil {
		return PageObject{}, err
	}
	if pageIndex < 0 || pageIndex >= doc.pageCount {
		return PageObject{}, fmt.Errorf("page %d out of range [0, %d): %w", pageIndex, doc.pageCount, ErrInvalidInput)
	}
	if objectID < 0 {
		return PageObject{}, fmt.Errorf("object id %d: %w", objectID, ErrInvalidInput)
	}

	doc.mu.Lock()
	objects, err := s.listObjectsLocked(doc, id, pageIndex)
	doc.mu.Unlock()
	if err != nil {
		return PageObject{}, err
	}

	for _, obj := range objects {
		if obj.ID == objectID {
			return obj, nil
		}
	}
	return PageObject{}, fmt.Errorf("object %d on page %d of document %d: %w", objectID, pageIndex, id, ErrObjectNotFound)
}

// setText is the forward/inverse primitive behind TextEditCommand.
// On success the page enters the mutation cache dirty and its bitmaps
// are invalidated before the call returns, so no render issued after
// this edit can observe pre-edit pixels. A failed engine call leaves
// page and caches untouched.
func (s *Session) setText(id DocumentID, pageIndex, objectID int, text string) error {
	doc, err := s.registry.lookup(id)
	if err != nil {
		return err
	}

	doc.mu.Lock()
	defer doc.mu.Unlock()

	if err := doc.ensureOpen(); err != nil {
		return err
	}

	handle, fromCache, err := s.pages.Acquire(id, doc.handle, pageIndex)
	if err != nil {
		return err
	}

	if err := s.engine.SetText(handle, objectID, text); err != nil {
		s.pages.Release(id, pageIndex, handle, fromCache)
		return fmt.Errorf("document %d page %d object %d: %w: %w", id, pageIndex, objectID, ErrEditFailed, err)
	}

	// The handle is now owned by the mutation cache and stays open; do
	// not release it.
	s.pages.MarkDirty(id, pageIndex, handle)
	s.bitmaps.InvalidatePage(id, pageIndex)

	logger.Debug("Text edit applied", "doc", id, "page", pageIndex, "object", objectID, true)
	return nil
}

// setImage is the forward primitive behind ImageReplaceCommand.
func (s *Session) setImage(id DocumentID, pageIndex, objectID int, img ImageData) error {
	doc, err := s.registry.lookup(id)
	if err != nil {
		return err
	}

	doc.mu.Lock()
	defer doc.mu.Unlock()

	if err := doc.ensureOpen(); err != nil {
		return err
	}

	handle, fromCache, err := s.pages.Acquire(id, doc.handle, pageIndex)
	if err != nil {
		return err
	}

	if err := s.engine.SetImage(handle, objectID, img); err != nil {
		s.pages.Release(id, pageIndex, handle, fromCache)
		return fmt.Errorf("document %d page %d object %d: %w: %w", id, pageIndex, objectID, ErrEditFailed, err)
	}

	s.pages.MarkDirty(id, pageIndex, handle)
	s.bitmaps.InvalidatePage(id, pageIndex)

	logger.Debug("Image replaced", "doc", id, "page", pageIndex, "object", objectID, true)
	return nil
}

// Undo reverts the most recent edit. A no-op with no error when there is
// nothing to undo.
func (s *Session) Undo(ctx context.Context) error {
	return s.history.Undo(ctx)
}

// Redo re-applies the most recently undone edit.
func (s *Session) Redo(ctx context.Context) error {
	return s.history.Redo(ctx)
}

// CanUndo reports whether an undoable edit exists.
func (s *Session) CanUndo() bool { return s.history.CanUndo() }

// CanRedo reports whether a redoable edit exists.
func (s *Session) CanRedo() bool { return s.history.CanRedo() }

// Save flushes dirty pages and serializes the document.
//
// The flush regenerates content exactly once per dirty page and closes
// every cached page even when regeneration fails; in that case Save
// still serializes and returns the bytes together with a SaveFailed
// error, because the output may omit some edits and the caller must
// know. Undo history survives a save.
func (s *Session) Save(ctx context.Context, id DocumentID) ([]byte, error) {
	doc, err := s.registry.lookup(id)
	if err != nil {
		return nil, err
	}

	doc.mu.Lock()
	defer doc.mu.Unlock()

	if err := doc.ensureOpen(); err != nil {
		return nil, err
	}

	flushOK := s.pages.FlushAndClose(id)

	data, err := s.engine.Serialize(doc.handle)
	if err != nil {
		return nil, fmt.Errorf("document %d: %w: %w", id, ErrSaveFailed, err)
	}
	if !flushOK {
		return data, fmt.Errorf("document %d: content regeneration failed for a dirty page, output may omit edits: %w", id, ErrSaveFailed)
	}

	logger.Debug("Document saved", "doc", id, "bytes", len(data), true)
	return data, nil
}

// Stats exposes bitmap cache counters for diagnostics.
func (s *Session) Stats() CacheStats {
	return s.bitmaps.Stats()
}
