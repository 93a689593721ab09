// Copyright (c) 2024-2026 The Veilnet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dircache

import (
	"sync"
	"time"

	"github.com/decred/dcrd/container/lru"
)

// DocumentCache caches recently fetched directory documents in memory keyed
// by their publication time.  Clients use it to answer local requests for
// the directory without refetching it and to remember which document is the
// most recent one seen.
type DocumentCache struct {
	mtx    sync.Mutex
	docs   *lru.Map[int64, string]
	latest time.Time
}

// NewDocumentCache returns a document cache that holds up to the given
// number of directory documents.
func NewDocumentCache(limit uint32) *DocumentCache {
	return &DocumentCache{
		docs: lru.NewMap[int64, string](limit),
	}
}

// SetCachedDirectory caches the raw directory document published at the
// given time.  The document becomes the latest one when its publication
// time is not before the previously cached latest document.
func (c *DocumentCache) SetCachedDirectory(raw string, publishedOn time.Time) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.docs.Put(publishedOn.Unix(), raw)
	if !publishedOn.Before(c.latest) {
		c.latest = publishedOn
	}
}

// CachedDirectory returns the most recently published cached directory
// document along with its publication time.  The final return value
// indicates whether a document is cached.
func (c *DocumentCache) CachedDirectory() (string, time.Time, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.latest.IsZero() {
		return "", time.Time{}, false
	}
	raw, ok := c.docs.Get(c.latest.Unix())
	if !ok {
		// The latest document was evicted.
		return "", time.Time{}, false
	}
	return raw, c.latest, true
}

// CachedDirectoryAt returns the cached directory document published at the
// given time when it is still cached.
func (c *DocumentCache) CachedDirectoryAt(publishedOn time.Time) (string, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.docs.Get(publishedOn.Unix())
}
