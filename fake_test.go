// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package editcore

import (
	"fmt"
	"hash/fnv"
	"io"
	"sync"
	"time"
)

// fakeEngine is an in-memory Engine that records call counts so tests
// can assert how often the core reached the engine. Page content lives
// on the fake document, so renders observe live edits the same way the
// real engine's kept-open pages do.
type fakeEngine struct {
	mu sync.Mutex

	nextID    int
	pageCount int
	password  string

	// Failure injection.
	openErr      error
	renderErr    error
	setTextErr   error
	setImageErr  error
	serializeErr error
	regenFail    map[int]bool
	renderDelay  time.Duration

	// Call accounting.
	renderCalls   map[fakeRenderKey]int
	totalRenders  int
	regenCalls    map[int]int
	loads         int
	pageCloses    int
	openPages     int
	closedDocs    int
	activeRenders int
	peakRenders   int
}

type fakeRenderKey struct {
	doc   int
	page  int
	scale float64
}

// fakeDoc models page content directly: renders hash the current text
// objects plus an image generation counter, so a render's pixels are a
// pure function of page content. Undoing a text edit therefore restores
// the exact pre-edit pixels, as the real engine does.
type fakeDoc struct {
	id        int
	pageCount int
	objects   map[int][]PageObject
	imageGen  map[int]int
	closed    bool
}

type fakePage struct {
	doc   *fakeDoc
	index int
}

// newFakeEngine builds an engine whose documents have pages pages, each
// carrying a text object (0), an image object (1) and a path object (2).
func newFakeEngine(pages int) *fakeEngine {
	return &fakeEngine{
		nextID:      1,
		pageCount:   pages,
		regenFail:   make(map[int]bool),
		renderCalls: make(map[fakeRenderKey]int),
		regenCalls:  make(map[int]int),
	}
}

func (e *fakeEngine) Open(data []byte, password string) (DocHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.openErr != nil {
		return nil, e.openErr
	}
	if e.password != "" && password != e.password {
		return nil, &OpenError{Reason: OpenReasonPassword}
	}

	doc := &fakeDoc{
		id:        e.nextID,
		pageCount: e.pageCount,
		objects:   make(map[int][]PageObject),
		imageGen:  make(map[int]int),
	}
	e.nextID++
	for i := 0; i < e.pageCount; i++ {
		doc.objects[i] = []PageObject{
			{ID: 0, Type: ObjectText, Left: 10, Top: 20, Right: 90, Bottom: 10, Text: fmt.Sprintf("page %d text", i)},
			{ID: 1, Type: ObjectImage, Left: 10, Top: 80, Right: 60, Bottom: 40},
			{ID: 2, Type: ObjectPath, Left: 0, Top: 5, Right: 100, Bottom: 0},
		}
	}
	return doc, nil
}

func (e *fakeEngine) Close(doc DocHandle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc.(*fakeDoc).closed = true
	e.closedDocs++
}

func (e *fakeEngine) PageCount(doc DocHandle) int {
	return doc.(*fakeDoc).pageCount
}

func (e *fakeEngine) LoadPage(doc DocHandle, pageIndex int) (PageHandle, error) {
	d := doc.(*fakeDoc)
	if pageIndex < 0 || pageIndex >= d.pageCount {
		return nil, fmt.Errorf("no page %d", pageIndex)
	}

	e.mu.Lock()
	e.loads++
	e.openPages++
	e.mu.Unlock()
	return &fakePage{doc: d, index: pageIndex}, nil
}

func (e *fakeEngine) ClosePage(page PageHandle) {
	e.mu.Lock()
	e.pageCloses++
	e.openPages--
	e.mu.Unlock()
}

func (e *fakeEngine) Render(page PageHandle, scale float64) (*Bitmap, error) {
	p := page.(*fakePage)

	e.mu.Lock()
	e.totalRenders++
	e.renderCalls[fakeRenderKey{p.doc.id, p.index, scale}]++
	e.activeRenders++
	if e.activeRenders > e.peakRenders {
		e.peakRenders = e.activeRenders
	}
	delay := e.renderDelay
	renderErr := e.renderErr
	e.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	e.mu.Lock()
	e.activeRenders--
	e.mu.Unlock()

	if renderErr != nil {
		return nil, renderErr
	}

	width := int(20*scale + 0.5)
	height := int(28*scale + 0.5)

	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%d|%g|%d", p.doc.id, p.index, scale, p.doc.imageGen[p.index])
	for _, obj := range p.doc.objects[p.index] {
		io.WriteString(h, obj.Text)
	}
	sum := h.Sum64()

	pixels := make([]byte, width*height*4)
	for i := range pixels {
		pixels[i] = byte(sum >> (uint(i%8) * 8))
	}
	return &Bitmap{Pixels: pixels, Width: width, Height: height}, nil
}

func (e *fakeEngine) ListObjects(page PageHandle) ([]PageObject, error) {
	p := page.(*fakePage)
	out := make([]PageObject, len(p.doc.objects[p.index]))
	copy(out, p.doc.objects[p.index])
	return out, nil
}

func (e *fakeEngine) SetText(page PageHandle, objectID int, text string) error {
	e.mu.Lock()
	setTextErr := e.setTextErr
	e.mu.Unlock()
	if setTextErr != nil {
		return setTextErr
	}

	p := page.(*fakePage)
	for i, obj := range p.doc.objects[p.index] {
		if obj.ID == objectID {
			if obj.Type != ObjectText {
				return fmt.Errorf("object %d is not text", objectID)
			}
			p.doc.objects[p.index][i].Text = text
			return nil
		}
	}
	return fmt.Errorf("no object %d", objectID)
}

func (e *fakeEngine) SetImage(page PageHandle, objectID int, img ImageData) error {
	e.mu.Lock()
	setImageErr := e.setImageErr
	e.mu.Unlock()
	if setImageErr != nil {
		return setImageErr
	}
	if img.JPEG == nil && len(img.Pixels) != img.Width*img.Height*4 {
		return fmt.Errorf("bad pixel buffer: %d bytes for %dx%d", len(img.Pixels), img.Width, img.Height)
	}

	p := page.(*fakePage)
	for _, obj := range p.doc.objects[p.index] {
		if obj.ID == objectID {
			if obj.Type != ObjectImage {
				return fmt.Errorf("object %d is not an image", objectID)
			}
			p.doc.imageGen[p.index]++
			return nil
		}
	}
	return fmt.Errorf("no object %d", objectID)
}

func (e *fakeEngine) RegenerateContent(page PageHandle) bool {
	p := page.(*fakePage)

	e.mu.Lock()
	e.regenCalls[p.index]++
	fail := e.regenFail[p.index]
	e.mu.Unlock()
	return !fail
}

func (e *fakeEngine) Serialize(doc DocHandle) ([]byte, error) {
	e.mu.Lock()
	serializeErr := e.serializeErr
	e.mu.Unlock()
	if serializeErr != nil {
		return nil, serializeErr
	}

	d := doc.(*fakeDoc)
	var out []byte
	for i := 0; i < d.pageCount; i++ {
		out = fmt.Appendf(out, "page %d img%d:", i, d.imageGen[i])
		for _, obj := range d.objects[i] {
			out = fmt.Appendf(out, " %s", obj.Text)
		}
		out = append(out, '\n')
	}
	return out, nil
}

// Accessors used by test assertions.

func (e *fakeEngine) rendersFor(doc int, page int, scale float64) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.renderCalls[fakeRenderKey{doc, page, scale}]
}

func (e *fakeEngine) renders() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalRenders
}

func (e *fakeEngine) regenerations(page int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.regenCalls[page]
}

func (e *fakeEngine) openPageHandles() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openPages
}

func (e *fakeEngine) peak() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.peakRenders
}
