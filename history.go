// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package editcore

import (
	"context"
	"fmt"
	"sync"

	"github.com/sassoftware/viya-pdf-editcore/logger"
)

// Command is a reversible edit. Forward and inverse operations are
// expensive engine calls routed through the page mutation cache, which
// marks the page dirty and invalidates its bitmaps. Both must be safe to
// re-run.
//
// Commands are plain structs with explicit forward parameters and
// captured prior state, not closures, so they stay inspectable.
type Command interface {
	Apply(ctx context.Context) error
	Revert(ctx context.Context) error
	// Reversible reports whether Revert truly restores the prior document
	// state. Image replacement is not reversible against this engine
	// surface; see ImageReplaceCommand.
	Reversible() bool
	Description() string
}

// History is the undo/redo stack: an ordered command list with a cursor
// pointing at the last executed command (-1 when none) and a depth cap.
// It holds no document-state knowledge beyond the command objects.
//
// opMu serializes whole operations end to end, including the engine call
// inside a command: overlapping Undo/Redo/Push from a multi-threaded
// host run one at a time, so a command is never applied or reverted
// twice and the cursor stays in [-1, len-1]. mu guards the slice and
// cursor for the cheap readers.
type History struct {
	opMu     sync.Mutex
	mu       sync.Mutex
	entries  []Command
	cursor   int
	maxDepth int
}

func NewHistory(maxDepth int) *History {
	if maxDepth <= 0 {
		maxDepth = 100
	}
	return &History{
		cursor:   -1,
		maxDepth: maxDepth,
	}
}

// Push executes the command's forward operation and records it. A failed
// forward operation is never recorded and leaves the stack untouched.
// Recording truncates any redo-able commands beyond the cursor, then
// evicts the oldest command if the cap is exceeded, shifting the cursor
// rather than resetting it.
func (h *History) Push(ctx context.Context, cmd Command) error {
	h.opMu.Lock()
	defer h.opMu.Unlock()

	if err := cmd.Apply(ctx); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries[:h.cursor+1], cmd)
	h.cursor++
	if len(h.entries) > h.maxDepth {
		excess := len(h.entries) - h.maxDepth
		h.entries = h.entries[excess:]
		h.cursor -= excess
	}

	logger.Debug("Command pushed", "desc", cmd.Description(), "depth", len(h.entries), true)
	return nil
}

// Undo reverts the current command and moves the cursor back. A no-op
// when there is nothing to undo. The cursor moves only if the inverse
// operation succeeds, so the stack never diverges from document state.
func (h *History) Undo(ctx context.Context) error {
	h.opMu.Lock()
	defer h.opMu.Unlock()

	h.mu.Lock()
	if h.cursor < 0 {
		h.mu.Unlock()
		return nil
	}
	cmd := h.entries[h.cursor]
	h.mu.Unlock()

	// Run the inverse without holding the lock; it is a slow engine call.
	if err := cmd.Revert(ctx); err != nil {
		return fmt.Errorf("undo %s: %w", cmd.Description(), err)
	}

	h.mu.Lock()
	h.cursor--
	h.mu.Unlock()
	return nil
}

// Redo re-executes the command past the cursor. A no-op when the cursor
// is already at the end.
func (h *History) Redo(ctx context.Context) error {
	h.opMu.Lock()
	defer h.opMu.Unlock()

	h.mu.Lock()
	if h.cursor >= len(h.entries)-1 {
		h.mu.Unlock()
		return nil
	}
	cmd := h.entries[h.cursor+1]
	h.mu.Unlock()

	if err := cmd.Apply(ctx); err != nil {
		return fmt.Errorf("redo %s: %w", cmd.Description(), err)
	}

	h.mu.Lock()
	h.cursor++
	h.mu.Unlock()
	return nil
}

// CanUndo reports whether an undoable command exists.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor >= 0
}

// CanRedo reports whether a redoable command exists.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor < len(h.entries)-1
}

// Len reports the number of recorded commands.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Clear empties the history. Called on document open/replace, never on
// save: saving must not discard undo history.
func (h *History) Clear() {
	h.opMu.Lock()
	defer h.opMu.Unlock()

	h.mu.Lock()
	h.entries = nil
	h.cursor = -1
	h.mu.Unlock()
}

// TextEditCommand replaces a text object's content. PrevText is captured
// from the object before the first apply, giving an exact inverse.
type TextEditCommand struct {
	session   *Session
	DocID     DocumentID
	PageIndex int
	ObjectID  int
	NewText   string
	PrevText  string
}

func (c *TextEditCommand) Apply(ctx context.Context) error {
	return c.session.setText(c.DocID, c.PageIndex, c.ObjectID, c.NewText)
}

func (c *TextEditCommand) Revert(ctx context.Context) error {
	return c.session.setText(c.DocID, c.PageIndex, c.ObjectID, c.PrevText)
}

func (c *TextEditCommand) Reversible() bool { return true }

func (c *TextEditCommand) Description() string {
	return fmt.Sprintf("edit text object %d on page %d", c.ObjectID, c.PageIndex)
}

// ImageReplaceCommand replaces an image object's data. The engine surface
// offers no way to read back an image object's current bytes, so the
// prior image cannot be captured and Revert cannot restore it: it only
// drops the page's cached bitmaps so the next render reflects whatever
// the engine holds. Reversible reports false so UIs can surface that.
type ImageReplaceCommand struct {
	session   *Session
	DocID     DocumentID
	PageIndex int
	ObjectID  int
	Image     ImageData
}

func (c *ImageReplaceCommand) Apply(ctx context.Context) error {
	return c.session.setImage(c.DocID, c.PageIndex, c.ObjectID, c.Image)
}

func (c *ImageReplaceCommand) Revert(ctx context.Context) error {
	c.session.bitmaps.InvalidatePage(c.DocID, c.PageIndex)
	return nil
}

func (c *ImageReplaceCommand) Reversible() bool { return false }

func (c *ImageReplaceCommand) Description() string {
	return fmt.Sprintf("replace image object %d on page %d", c.ObjectID, c.PageIndex)
}
