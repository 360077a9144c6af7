// Copyright 2018 The go-klaytn Authors
// This file is part of the go-klaytn library.
//
// The go-klaytn library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-klaytn library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-klaytn library. If not, see <http://www.gnu.org/licenses/>.

package common

import (
	"errors"

	lru "github.com/hashicorp/golang-lru"
)

// Cache is a small eviction-policy-agnostic wrapper the storage managers use
// for their hot-path read-through caches (recent blocks, receipts,
// transactions, block logs).
type Cache interface {
	Add(key interface{}, value interface{}) (evicted bool)
	Get(key interface{}) (value interface{}, ok bool)
	Contains(key interface{}) bool
	Remove(key interface{})
	Purge()
}

type lruCache struct {
	lru *lru.Cache
}

func (c *lruCache) Add(key, value interface{}) (evicted bool) { return c.lru.Add(key, value) }
func (c *lruCache) Get(key interface{}) (interface{}, bool)    { return c.lru.Get(key) }
func (c *lruCache) Contains(key interface{}) bool              { return c.lru.Contains(key) }
func (c *lruCache) Remove(key interface{})                     { c.lru.Remove(key) }
func (c *lruCache) Purge()                                     { c.lru.Purge() }

type arcCache struct {
	arc *lru.ARCCache
}

func (c *arcCache) Add(key, value interface{}) (evicted bool) { c.arc.Add(key, value); return false }
func (c *arcCache) Get(key interface{}) (interface{}, bool)    { return c.arc.Get(key) }
func (c *arcCache) Contains(key interface{}) bool              { return c.arc.Contains(key) }
func (c *arcCache) Remove(key interface{})                     { c.arc.Remove(key) }
func (c *arcCache) Purge()                                     { c.arc.Purge() }

// CacheConfiger builds a Cache. Managers accept one instead of a concrete
// cache so callers can trade memory for hit rate per keyspace.
type CacheConfiger interface {
	newCache() (Cache, error)
}

// NewCache builds the Cache described by config.
func NewCache(config CacheConfiger) (Cache, error) {
	if config == nil {
		return nil, errors.New("cache config is nil")
	}
	return config.newCache()
}

// LRUConfig is a fixed-size, recency-evicted cache. The default choice for
// every manager in this module.
type LRUConfig struct {
	CacheSize int
}

func (c LRUConfig) newCache() (Cache, error) {
	l, err := lru.New(c.CacheSize)
	if err != nil {
		return nil, err
	}
	return &lruCache{l}, nil
}

// ARCConfig adaptively balances recency against frequency; useful for the
// account cache where a small set of hot senders dominates traffic.
type ARCConfig struct {
	CacheSize int
}

func (c ARCConfig) newCache() (Cache, error) {
	arc, err := lru.NewARC(c.CacheSize)
	if err != nil {
		return nil, err
	}
	return &arcCache{arc}, nil
}
