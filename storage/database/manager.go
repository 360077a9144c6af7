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

// DBManager is the chain's single durable resource: an ordered key/value
// store, logically split into the keyspaces of DBEntryType, with atomic
// cross-keyspace batches. In non-partitioned mode (the default, and the
// only mode that offers true cross-keyspace atomicity) every entry type
// shares one underlying engine, keyed apart by a short keyspace prefix —
// the block-commit pipeline relies on this: persisting a block, its
// transactions, its receipts and its logs in one Write() call.
//
// Partitioned mode gives every entry type its own engine instance (its own
// directory, its own compaction schedule) at the cost of only being able to
// guarantee atomicity per keyspace — a batch spanning multiple engines
// commits each engine's slice sequentially. Operators who want that
// isolation opt in explicitly via Config.Partitioned.
type DBManager struct {
	engines     [databaseEntryTypeSize]Database
	partitioned bool
}

// NewMemoryDBManager returns a DBManager backed entirely by memory, used by
// tests and by any run that didn't configure a persistent backend.
func NewMemoryDBManager() *DBManager {
	dbm := &DBManager{}
	shared := NewMemDB()
	for i := range dbm.engines {
		dbm.engines[i] = shared
	}
	return dbm
}

// NewDBManager opens the configured backend(s) and wires up the keyspaces.
func NewDBManager(cfg *Config) (*DBManager, error) {
	dbm := &DBManager{partitioned: cfg.Partitioned}
	if !cfg.Partitioned {
		logger.Info("single database shared across keyspaces", "dbType", cfg.DBType)
		engine, err := newEngine(cfg)
		if err != nil {
			return nil, err
		}
		for i := range dbm.engines {
			dbm.engines[i] = engine
		}
		return dbm, nil
	}

	checkDBEntryConfigRatio()
	logger.Info("partitioned database, one engine per keyspace", "dbType", cfg.DBType)
	for i := DBEntryType(0); i < databaseEntryTypeSize; i++ {
		engine, err := newEngine(cfg.entryConfig(i))
		if err != nil {
			return nil, err
		}
		dbm.engines[i] = engine
	}
	return dbm, nil
}

func (dbm *DBManager) engine(entry DBEntryType) Database { return dbm.engines[entry] }

func prefixed(entry DBEntryType, key []byte) []byte {
	out := make([]byte, 0, len(dbDirs[entry])+1+len(key))
	out = append(out, dbDirs[entry]...)
	out = append(out, ':')
	out = append(out, key...)
	return out
}

func (dbm *DBManager) Put(entry DBEntryType, key, value []byte) error {
	return dbm.engine(entry).Put(prefixed(entry, key), value)
}

func (dbm *DBManager) Has(entry DBEntryType, key []byte) (bool, error) {
	return dbm.engine(entry).Has(prefixed(entry, key))
}

func (dbm *DBManager) Get(entry DBEntryType, key []byte) ([]byte, error) {
	return dbm.engine(entry).Get(prefixed(entry, key))
}

func (dbm *DBManager) Delete(entry DBEntryType, key []byte) error {
	return dbm.engine(entry).Delete(prefixed(entry, key))
}

func (dbm *DBManager) NewIterator(entry DBEntryType, prefix []byte) Iterator {
	return dbm.engine(entry).NewIterator(prefixed(entry, prefix))
}

// NewBatch starts a cross-keyspace atomic write. Every Put/Delete against it
// is buffered per underlying engine; Write() commits every touched engine's
// slice. In the (default) non-partitioned configuration all entry types
// resolve to the same engine, so this is a single atomic LevelDB/Badger/mem
// batch — exactly the guarantee the block-commit and revert pipelines need.
func (dbm *DBManager) NewBatch() *ChainBatch {
	return &ChainBatch{dbm: dbm, batches: make(map[Database]Batch)}
}

// ChainBatch is the cross-keyspace batch returned by DBManager.NewBatch.
type ChainBatch struct {
	dbm     *DBManager
	batches map[Database]Batch
}

func (cb *ChainBatch) batchFor(entry DBEntryType) Batch {
	engine := cb.dbm.engine(entry)
	b, ok := cb.batches[engine]
	if !ok {
		b = engine.NewBatch()
		cb.batches[engine] = b
	}
	return b
}

func (cb *ChainBatch) Put(entry DBEntryType, key, value []byte) error {
	return cb.batchFor(entry).Put(prefixed(entry, key), value)
}

func (cb *ChainBatch) Delete(entry DBEntryType, key []byte) error {
	return cb.batchFor(entry).Delete(prefixed(entry, key))
}

// Write commits every engine touched by this batch. If more than one
// distinct engine was touched (partitioned mode), engines commit one after
// another in no defined order, and not jointly atomically; callers needing true
// all-or-nothing semantics across keyspaces must run non-partitioned.
func (cb *ChainBatch) Write() error {
	for _, b := range cb.batches {
		if err := b.Write(); err != nil {
			return err
		}
	}
	return nil
}

// KeyspaceBatch is a Batch scoped to a single DBEntryType, prefixing every
// key the way Put/Get/Delete do. It exists so foreign batch interfaces
// (go-ethereum's ethdb.Batch, used by the trie package) can be adapted onto
// exactly one of our keyspaces without pulling in ChainBatch's multi-engine
// bookkeeping.
type KeyspaceBatch struct {
	entry DBEntryType
	b     Batch
}

// NewChainBatchFor starts a batch against a single keyspace.
func (dbm *DBManager) NewChainBatchFor(entry DBEntryType) *KeyspaceBatch {
	return &KeyspaceBatch{entry: entry, b: dbm.engine(entry).NewBatch()}
}

func (kb *KeyspaceBatch) Put(key, value []byte) error {
	return kb.b.Put(prefixed(kb.entry, key), value)
}

func (kb *KeyspaceBatch) Delete(key []byte) error {
	return kb.b.Delete(prefixed(kb.entry, key))
}

func (kb *KeyspaceBatch) ValueSize() int { return kb.b.ValueSize() }
func (kb *KeyspaceBatch) Write() error   { return kb.b.Write() }
func (kb *KeyspaceBatch) Reset()         { kb.b.Reset() }

func (kb *KeyspaceBatch) Replay(apply func(key, value []byte, deleted bool) error) error {
	return kb.b.Replay(apply)
}

// Close shuts down every distinct underlying engine exactly once.
func (dbm *DBManager) Close() {
	seen := make(map[Database]bool)
	for _, e := range dbm.engines {
		if e == nil || seen[e] {
			continue
		}
		seen[e] = true
		e.Close()
	}
}
