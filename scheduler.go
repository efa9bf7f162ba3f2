// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package editcore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sassoftware/viya-pdf-editcore/logger"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// RenderScheduler admission-controls the engine's render path. A weighted
// semaphore caps concurrent renders (waiters are served in FIFO order),
// and concurrent requests for the same key are collapsed into a single
// underlying render through singleflight.
//
// Rendering is CPU/engine-bound; the cap exists to keep the single-process
// engine from being saturated by unbounded parallel calls, not to provide
// fairness beyond FIFO admission.
type RenderScheduler struct {
	cache *BitmapCache
	slots *semaphore.Weighted
	group singleflight.Group
}

func NewRenderScheduler(cache *BitmapCache, concurrency int) *RenderScheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &RenderScheduler{
		cache: cache,
		slots: semaphore.NewWeighted(int64(concurrency)),
	}
}

// Render serves key from the bitmap cache when possible, otherwise admits
// the request and runs render. A queued request re-checks the cache after
// admission (inside render, under the document lock), since a concurrent
// request for the same key may have satisfied it while it waited.
//
// The slot is always released, success or failure, so a failing request
// never blocks the queue. Cancelling ctx abandons a queued request; a
// render already in flight runs to completion and its result is shared
// with whoever still wants it.
func (s *RenderScheduler) Render(ctx context.Context, key RenderKey, render func() (*Bitmap, error)) (*Bitmap, error) {
	if bm := s.cache.Get(key); bm != nil {
		logger.Debug("Render served from cache", "doc", key.Doc, "page", key.Page, "scale", key.Scale, true)
		return bm, nil
	}

	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("render queue: %w", err)
	}
	defer s.slots.Release(1)

	v, err, shared := s.group.Do(flightKey(key), func() (interface{}, error) {
		return render()
	})
	if err != nil {
		return nil, err
	}
	if !shared {
		return v.(*Bitmap), nil
	}

	// A joined flight may predate an edit that has since invalidated this
	// key, so a shared result is only trusted through the cache. On a
	// miss the render runs again and observes the current page state.
	if bm := s.cache.Get(key); bm != nil {
		logger.Debug("Render shared with concurrent request",
			"doc", key.Doc, "page", key.Page, "scale", key.Scale, true)
		return bm, nil
	}
	return render()
}

func flightKey(key RenderKey) string {
	return strconv.FormatUint(uint64(key.Doc), 10) + ":" +
		strconv.Itoa(key.Page) + ":" +
		strconv.FormatFloat(key.Scale, 'g', -1, 64)
}
