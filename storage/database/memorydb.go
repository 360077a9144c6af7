// Copyright 2018 The klaytn Authors
// This file is part of the klaytn library.
//
// The klaytn library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The klaytn library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the klaytn library. If not, see <http://www.gnu.org/licenses/>.

package database

import (
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned for a missing key, mirroring leveldb.ErrNotFound
// closely enough that callers can use errors.Is uniformly across backends.
var ErrNotFound = errors.New("database: key not found")

// MemDB is the default backend: used for tests and for any run that did not
// request a persistent DBType.
type MemDB struct {
	mu sync.RWMutex
	db map[string][]byte
}

func NewMemDB() *MemDB {
	return &MemDB{db: make(map[string][]byte)}
}

func (m *MemDB) Type() DBType { return MemoryDB }
func (m *MemDB) Path() string { return "" }

func (m *MemDB) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.db[string(key)] = cp
	return nil
}

func (m *MemDB) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.db[string(key)]
	return ok, nil
}

func (m *MemDB) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.db[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (m *MemDB) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.db, string(key))
	return nil
}

func (m *MemDB) Close() {}

func (m *MemDB) NewIterator(prefix []byte) Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.db))
	for k := range m.db {
		if len(prefix) == 0 || (len(k) >= len(prefix) && k[:len(prefix)] == string(prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = m.db[k]
	}
	return &memIterator{keys: keys, values: values, idx: -1}
}

type memIterator struct {
	keys   []string
	values [][]byte
	idx    int
}

func (it *memIterator) Next() bool {
	it.idx++
	return it.idx < len(it.keys)
}

func (it *memIterator) Key() []byte   { return []byte(it.keys[it.idx]) }
func (it *memIterator) Value() []byte { return it.values[it.idx] }
func (it *memIterator) Release()      {}

func (m *MemDB) NewBatch() Batch {
	return &memBatch{db: m}
}

type keyValue struct {
	key     []byte
	value   []byte
	deleted bool
}

type memBatch struct {
	db     *MemDB
	writes []keyValue
	size   int
}

func (b *memBatch) Put(key, value []byte) error {
	b.writes = append(b.writes, keyValue{append([]byte{}, key...), append([]byte{}, value...), false})
	b.size += len(value)
	return nil
}

func (b *memBatch) Delete(key []byte) error {
	b.writes = append(b.writes, keyValue{append([]byte{}, key...), nil, true})
	b.size++
	return nil
}

func (b *memBatch) ValueSize() int { return b.size }

func (b *memBatch) Write() error {
	b.db.mu.Lock()
	defer b.db.mu.Unlock()
	for _, kv := range b.writes {
		if kv.deleted {
			delete(b.db.db, string(kv.key))
		} else {
			b.db.db[string(kv.key)] = kv.value
		}
	}
	return nil
}

func (b *memBatch) Reset() {
	b.writes = b.writes[:0]
	b.size = 0
}

func (b *memBatch) Replay(apply func(key, value []byte, deleted bool) error) error {
	for _, kv := range b.writes {
		if err := apply(kv.key, kv.value, kv.deleted); err != nil {
			return err
		}
	}
	return nil
}
