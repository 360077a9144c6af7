// Copyright 2015 The go-ethereum Authors
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
	"github.com/ethereum/go-ethereum/log"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

type levelDB struct {
	fn  string
	db  *leveldb.DB
	log log.Logger
}

func ldbOptions(cacheSize, handles int) *opt.Options {
	if cacheSize < 16 {
		cacheSize = 16
	}
	if handles < 16 {
		handles = 16
	}
	return &opt.Options{
		OpenFilesCacheCapacity: handles,
		BlockCacheCapacity:     cacheSize / 2 * opt.MiB,
		WriteBuffer:            cacheSize / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	}
}

// NewLevelDB opens (and, if necessary, recovers) a LevelDB instance rooted
// at file, sized according to cacheSize (MB) and handles (open fds).
func NewLevelDB(file string, cacheSize, handles int) (Database, error) {
	logger := log.New("database", file)

	db, err := leveldb.OpenFile(file, ldbOptions(cacheSize, handles))
	if _, corrupted := err.(*errors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(file, nil)
	}
	if err != nil {
		return nil, err
	}
	return &levelDB{fn: file, db: db, log: logger}, nil
}

func (db *levelDB) Type() DBType { return LevelDB }
func (db *levelDB) Path() string { return db.fn }

func (db *levelDB) Put(key, value []byte) error {
	return db.db.Put(key, value, nil)
}

func (db *levelDB) Has(key []byte) (bool, error) {
	return db.db.Has(key, nil)
}

func (db *levelDB) Get(key []byte) ([]byte, error) {
	v, err := db.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	return v, err
}

func (db *levelDB) Delete(key []byte) error {
	return db.db.Delete(key, nil)
}

func (db *levelDB) NewIterator(prefix []byte) Iterator {
	var it iterator.Iterator
	if len(prefix) == 0 {
		it = db.db.NewIterator(nil, nil)
	} else {
		it = db.db.NewIterator(util.BytesPrefix(prefix), nil)
	}
	return &ldbIterator{it}
}

type ldbIterator struct {
	it iterator.Iterator
}

func (i *ldbIterator) Next() bool    { return i.it.Next() }
func (i *ldbIterator) Key() []byte   { return i.it.Key() }
func (i *ldbIterator) Value() []byte { return i.it.Value() }
func (i *ldbIterator) Release()      { i.it.Release() }

func (db *levelDB) Close() {
	if err := db.db.Close(); err != nil {
		db.log.Error("failed to close database", "err", err)
	} else {
		db.log.Info("database closed")
	}
}

func (db *levelDB) NewBatch() Batch {
	return &ldbBatch{db: db.db, b: new(leveldb.Batch)}
}

type ldbBatch struct {
	db   *leveldb.DB
	b    *leveldb.Batch
	size int
}

func (b *ldbBatch) Put(key, value []byte) error {
	b.b.Put(key, value)
	b.size += len(value)
	return nil
}

func (b *ldbBatch) Delete(key []byte) error {
	b.b.Delete(key)
	b.size++
	return nil
}

func (b *ldbBatch) ValueSize() int { return b.size }
func (b *ldbBatch) Write() error   { return b.db.Write(b.b, nil) }
func (b *ldbBatch) Reset()         { b.b.Reset(); b.size = 0 }

type ldbReplayer struct {
	apply func(key, value []byte, deleted bool) error
	err   error
}

func (r *ldbReplayer) Put(key, value []byte) {
	if r.err == nil {
		r.err = r.apply(key, value, false)
	}
}

func (r *ldbReplayer) Delete(key []byte) {
	if r.err == nil {
		r.err = r.apply(key, nil, true)
	}
}

func (b *ldbBatch) Replay(apply func(key, value []byte, deleted bool) error) error {
	r := &ldbReplayer{apply: apply}
	b.b.Replay(r)
	return r.err
}
