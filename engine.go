// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package editcore

// DocHandle is an opaque engine-level document handle.
type DocHandle any

// PageHandle is an opaque engine-level page handle.
type PageHandle any

// ObjectType identifies the kind of a page object.
type ObjectType string

const (
	ObjectText    ObjectType = "text"
	ObjectImage   ObjectType = "image"
	ObjectPath    ObjectType = "path"
	ObjectShading ObjectType = "shading"
	ObjectForm    ObjectType = "form"
	ObjectUnknown ObjectType = "unknown"
)

// Bitmap is a rendered page: tightly packed RGBA pixels, 4 bytes per pixel,
// row-major, no padding.
type Bitmap struct {
	Pixels []byte
	Width  int
	Height int
}

// ByteSize returns the resident size of the pixel buffer.
func (b *Bitmap) ByteSize() int64 {
	return int64(len(b.Pixels))
}

// PageObject describes one object on a page. Bounds are in page space.
// Text is populated only for text objects.
type PageObject struct {
	ID     int
	Type   ObjectType
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
	Text   string
}

// ImageData is a replacement image for an image object. Exactly one of the
// two representations is set: JPEG holds an encoded JPEG stream that the
// engine embeds directly; Pixels holds raw BGRA data (Width*Height*4 bytes)
// for formats that cannot take the JPEG path, such as PNG with alpha.
type ImageData struct {
	JPEG   []byte
	Pixels []byte
	Width  int
	Height int
}

// Engine is the narrow call surface into the external PDF rendering and
// mutation library. The engine is not reentrant: calls that touch the same
// document must be serialized by the caller. Handles returned by Open and
// LoadPage are only valid until the matching Close/ClosePage.
//
// Open may hold pointers into the data slice for the lifetime of the
// returned handle; the caller must keep the slice reachable until Close.
//
// None of these calls is preemptible. Slow calls (Open, Render, Serialize)
// run to completion; cancellation is handled above this interface by
// discarding unwanted results.
type Engine interface {
	// Open parses a document from memory. On rejection it returns an
	// *OpenError carrying the reason.
	Open(data []byte, password string) (DocHandle, error)
	// Close releases the document handle and everything the engine holds
	// for it.
	Close(doc DocHandle)
	// PageCount reports the number of pages in the document.
	PageCount(doc DocHandle) int
	// LoadPage opens one page. Fails for out-of-range indexes or damaged
	// page trees.
	LoadPage(doc DocHandle, pageIndex int) (PageHandle, error)
	// ClosePage releases a page handle obtained from LoadPage.
	ClosePage(page PageHandle)
	// Render draws the page at the given scale into a fresh RGBA bitmap.
	Render(page PageHandle, scale float64) (*Bitmap, error)
	// ListObjects enumerates the page's objects with bounding boxes; text
	// objects carry their Unicode content.
	ListObjects(page PageHandle) ([]PageObject, error)
	// SetText replaces the content of a text object in memory. The page's
	// serializable content is NOT regenerated; see PageCache.
	SetText(page PageHandle, objectID int, text string) error
	// SetImage replaces an image object's data in memory.
	SetImage(page PageHandle, objectID int, img ImageData) error
	// RegenerateContent rebuilds the page's serializable content stream
	// from its in-memory objects. Must be called exactly once per edited
	// page, immediately before Serialize.
	RegenerateContent(page PageHandle) bool
	// Serialize writes the whole document back to bytes.
	Serialize(doc DocHandle) ([]byte, error)
}
