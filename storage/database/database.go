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

// Package database is the ordered byte-keyed key/value store the chain is
// built on, split into per-concern sub-keyspaces (DBEntryType) the way a
// production node separates its header/body/receipt/trie directories so
// each can be sized, cached, and compacted independently.
package database

import "github.com/ethereum/go-ethereum/log"

var logger = log.New("module", "database")

// Database is a single ordered key/value keyspace: put/get/delete plus
// atomic batched writes. Every DBEntryType is backed by one Database,
// possibly sharing the same underlying engine (single mode) or each owning
// its own (partitioned mode).
type Database interface {
	Type() DBType
	Path() string

	Put(key, value []byte) error
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error

	NewIterator(prefix []byte) Iterator
	NewBatch() Batch

	Close()
}

// Iterator walks a keyspace in key order, optionally restricted to a prefix.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
}

// Batch accumulates writes and commits them atomically. No batch write is
// ever partially visible: Write either applies every Put/Delete or none.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	ValueSize() int
	Write() error
	Reset()

	// Replay re-applies every buffered operation to apply, in the order it
	// was recorded. Used to adapt a Batch onto a foreign batch interface
	// (go-ethereum's trie.Database replays a committed node batch this way).
	Replay(apply func(key, value []byte, deleted bool) error) error
}

// DBType selects the storage engine backing a Database.
type DBType uint8

const (
	MemoryDB DBType = iota
	LevelDB
	BadgerDB
)

func (t DBType) String() string {
	switch t {
	case LevelDB:
		return "LevelDB"
	case BadgerDB:
		return "BadgerDB"
	default:
		return "MemoryDB"
	}
}

// DBEntryType names the sub-keyspaces the chain writes to. Each gets its own
// on-disk directory (in partitioned mode) and its own share of the
// configured cache budget, via dbConfigRatio below.
type DBEntryType uint8

const (
	BlockDB DBEntryType = iota
	BlockLogsDB
	TransactionDB
	ReceiptDB
	StateTrieDB
	MiscDB

	databaseEntryTypeSize
)

var dbDirs = [databaseEntryTypeSize]string{
	"blocks",
	"blocklogs",
	"transactions",
	"receipts",
	"trie",
	"misc",
}

// Sum of dbConfigRatio must be 100; checked by checkDBEntryConfigRatio.
var dbConfigRatio = [databaseEntryTypeSize]int{
	15, // BlockDB
	10, // BlockLogsDB
	20, // TransactionDB
	20, // ReceiptDB
	30, // StateTrieDB
	5,  // MiscDB
}

func checkDBEntryConfigRatio() {
	sum := 0
	for _, r := range dbConfigRatio {
		sum += r
	}
	if sum != 100 {
		logger.Crit("sum of dbConfigRatio elements must be 100", "actual", sum)
	}
}

func (t DBEntryType) dir() string { return dbDirs[t] }
