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
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/ethereum/go-ethereum/log"
)

const (
	gcThreshold      = int64(1 << 30) // run value-log GC once this many bytes have accumulated
	gcCheckInterval  = time.Minute
)

// badgerDB is the second persistent backend, offered as an alternative to
// LevelDB for deployments that want badger's LSM+value-log split (better
// write amplification on large values, at the cost of a background GC
// goroutine this type owns and tears down on Close).
type badgerDB struct {
	fn string
	db *badger.DB

	gcTicker *time.Ticker
	quit     chan struct{}

	log log.Logger
}

// NewBadgerDB opens a Badger instance rooted at dir, creating it if absent.
func NewBadgerDB(dir string) (Database, error) {
	logger := log.New("database", dir)

	if fi, err := os.Stat(dir); err == nil {
		if !fi.IsDir() {
			return nil, fmt.Errorf("badgerdb: %s is not a directory", dir)
		}
	} else if os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("badgerdb: mkdir %s: %w", dir, err)
		}
	} else {
		return nil, err
	}

	opts := badger.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerdb: open %s: %w", dir, err)
	}

	bg := &badgerDB{
		fn:       dir,
		db:       db,
		log:      logger,
		gcTicker: time.NewTicker(gcCheckInterval),
		quit:     make(chan struct{}),
	}
	go bg.runValueLogGC()
	return bg, nil
}

func (bg *badgerDB) runValueLogGC() {
	_, lastValueLogSize := bg.db.Size()
	for {
		select {
		case <-bg.gcTicker.C:
			_, curr := bg.db.Size()
			if curr-lastValueLogSize < gcThreshold {
				continue
			}
			if err := bg.db.RunValueLogGC(0.5); err != nil {
				bg.log.Error("value log gc failed", "err", err)
				continue
			}
			_, lastValueLogSize = bg.db.Size()
		case <-bg.quit:
			return
		}
	}
}

func (bg *badgerDB) Type() DBType { return BadgerDB }
func (bg *badgerDB) Path() string { return bg.fn }

func (bg *badgerDB) Put(key, value []byte) error {
	txn := bg.db.NewTransaction(true)
	defer txn.Discard()
	if err := txn.Set(key, value); err != nil {
		return err
	}
	return txn.Commit(nil)
}

func (bg *badgerDB) Has(key []byte) (bool, error) {
	txn := bg.db.NewTransaction(false)
	defer txn.Discard()
	_, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (bg *badgerDB) Get(key []byte) ([]byte, error) {
	txn := bg.db.NewTransaction(false)
	defer txn.Discard()
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (bg *badgerDB) Delete(key []byte) error {
	txn := bg.db.NewTransaction(true)
	defer txn.Discard()
	if err := txn.Delete(key); err != nil {
		return err
	}
	return txn.Commit(nil)
}

func (bg *badgerDB) NewIterator(prefix []byte) Iterator {
	txn := bg.db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	it.Rewind()
	return &badgerIterator{txn: txn, it: it, prefix: prefix, started: false}
}

type badgerIterator struct {
	txn     *badger.Txn
	it      *badger.Iterator
	prefix  []byte
	started bool
}

func (i *badgerIterator) Next() bool {
	if !i.started {
		i.started = true
	} else {
		i.it.Next()
	}
	return i.it.Valid()
}

func (i *badgerIterator) Key() []byte {
	return i.it.Item().KeyCopy(nil)
}

func (i *badgerIterator) Value() []byte {
	v, _ := i.it.Item().ValueCopy(nil)
	return v
}

func (i *badgerIterator) Release() {
	i.it.Close()
	i.txn.Discard()
}

func (bg *badgerDB) Close() {
	close(bg.quit)
	bg.gcTicker.Stop()
	if err := bg.db.Close(); err != nil {
		bg.log.Error("failed to close database", "err", err)
	} else {
		bg.log.Info("database closed")
	}
}

func (bg *badgerDB) NewBatch() Batch {
	return &badgerBatch{db: bg.db, txn: bg.db.NewTransaction(true)}
}

type badgerBatch struct {
	db     *badger.DB
	txn    *badger.Txn
	size   int
	writes []keyValue
}

func (b *badgerBatch) Put(key, value []byte) error {
	if err := b.txn.Set(key, value); err != nil {
		return err
	}
	b.writes = append(b.writes, keyValue{append([]byte{}, key...), append([]byte{}, value...), false})
	b.size += len(value)
	return nil
}

func (b *badgerBatch) Delete(key []byte) error {
	b.writes = append(b.writes, keyValue{append([]byte{}, key...), nil, true})
	if err := b.txn.Delete(key); err != nil {
		return err
	}
	b.size++
	return nil
}

func (b *badgerBatch) ValueSize() int { return b.size }
func (b *badgerBatch) Write() error   { return b.txn.Commit(nil) }
func (b *badgerBatch) Reset() {
	b.txn = b.db.NewTransaction(true)
	b.writes = b.writes[:0]
	b.size = 0
}

func (b *badgerBatch) Replay(apply func(key, value []byte, deleted bool) error) error {
	for _, kv := range b.writes {
		if err := apply(kv.key, kv.value, kv.deleted); err != nil {
			return err
		}
	}
	return nil
}
