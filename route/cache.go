// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package route

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/elastic/go-freelru"
)

// pacTextCache is a capacity-bounded, least-recently-used cache from PAC URL
// to the script text fetched from it. freelru.LRU is not safe for concurrent
// use on its own, so access is guarded by an explicit readers-writer lock,
// matching the concurrency model's "every LRU cache access is guarded by a
// readers-writer lock" requirement.
type pacTextCache struct {
	mu  sync.RWMutex
	lru *freelru.LRU[string, string]
}

const pacCacheCapacity = 5

func newPACTextCache() *pacTextCache {
	lru, err := freelru.New[string, string](pacCacheCapacity, hashString)
	if err != nil {
		// Only returns an error for invalid capacity, which is a programmer error.
		panic(err)
	}
	return &pacTextCache{lru: lru}
}

func hashString(s string) uint32 {
	return uint32(xxhash.Sum64String(s)) //nolint:gosec // truncation is fine for a hash table bucket index
}

func (c *pacTextCache) get(pacURL string) (string, bool) {
	// Get moves the entry to the LRU head, so it needs the exclusive lock.
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(pacURL)
}

func (c *pacTextCache) add(pacURL, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(pacURL, text)
}

// clear empties the cache. Called atomically with every PAC URL swap so that
// a cache lookup immediately following a set_pac_url is guaranteed to miss.
func (c *pacTextCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}
