// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package editcore

import (
	"fmt"
	"sync"

	"github.com/sassoftware/viya-pdf-editcore/logger"
)

// DocumentID identifies an open document within a session.
type DocumentID uint64

// document is the registry's record for one open document.
//
// data pins the raw input bytes: the engine may hold pointers into the
// slice for the lifetime of the handle, so it must stay reachable until
// after Engine.Close returns. Releasing it earlier is undefined behavior
// in the engine.
//
// mu serializes every engine call that touches this document. The engine
// is not reentrant, so mutation and render paths for one document must
// never overlap.
type document struct {
	id        DocumentID
	handle    DocHandle
	data      []byte
	pageCount int
	mu        sync.Mutex
	closed    bool
}

// ensureOpen reports ErrUnknownDocument if the document was closed while
// the caller held a resolved record, waiting for doc.mu or for a render
// slot. Callers must hold doc.mu.
func (d *document) ensureOpen() error {
	if d.closed {
		return fmt.Errorf("document %d: %w", d.id, ErrUnknownDocument)
	}
	return nil
}

// Registry owns the mapping from document ids to engine-level document
// state and controls creation/destruction ordering.
type Registry struct {
	mu     sync.Mutex
	engine Engine
	next   DocumentID
	docs   map[DocumentID]*document
}

func NewRegistry(engine Engine) *Registry {
	return &Registry{
		engine: engine,
		next:   1,
		docs:   make(map[DocumentID]*document),
	}
}

// Open hands the bytes to the engine and registers the document.
// The input slice is pinned for the document's lifetime.
func (r *Registry) Open(data []byte, password string) (DocumentID, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("open: empty input: %w", ErrInvalidInput)
	}

	handle, err := r.engine.Open(data, password)
	if err != nil {
		logger.Error("engine rejected document", "err", err)
		return 0, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	r.mu.Lock()
	id := r.next
	r.next++
	r.docs[id] = &document{
		id:        id,
		handle:    handle,
		data:      data,
		pageCount: r.engine.PageCount(handle),
	}
	r.mu.Unlock()

	logger.Debug("Document opened", "doc", id, "bytes", len(data), true)
	return id, nil
}

// lookup returns the record for id, or ErrUnknownDocument.
func (r *Registry) lookup(id DocumentID) (*document, error) {
	r.mu.Lock()
	doc, ok := r.docs[id]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("document %d: %w", id, ErrUnknownDocument)
	}
	return doc, nil
}

// PageCount reports the page count recorded at open time. The page set of
// a document never changes while it is open (no insert/delete page ops).
func (r *Registry) PageCount(id DocumentID) (int, error) {
	doc, err := r.lookup(id)
	if err != nil {
		return 0, err
	}
	return doc.pageCount, nil
}

// Close releases the engine handle and unpins the backing bytes.
// All cached pages for the document must be resolved (flushed or
// discarded) before calling Close; the session enforces that ordering.
func (r *Registry) Close(id DocumentID) error {
	r.mu.Lock()
	doc, ok := r.docs[id]
	if ok {
		delete(r.docs, id)
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("document %d: %w", id, ErrUnknownDocument)
	}

	doc.mu.Lock()
	r.engine.Close(doc.handle)
	// Unpin only after the engine confirms the handle is gone.
	doc.data = nil
	doc.handle = nil
	doc.closed = true
	doc.mu.Unlock()

	logger.Debug("Document closed", "doc", id, true)
	return nil
}

// Len reports the number of registered documents.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs)
}
