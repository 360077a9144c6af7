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

package blockchain

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	ourtypes "github.com/groundx/chainsim/blockchain/types"
	commoncache "github.com/groundx/chainsim/common"
	"github.com/groundx/chainsim/storage/database"
)

const (
	blockCacheSize       = 256
	receiptCacheSize     = 1024
	transactionCacheSize = 1024
	blockLogsCacheSize   = 256
)

// BlockManager is the typed, cached read/write surface over BlockDB: every
// committed block keyed by hash, plus a canonical number->hash index so
// the chain can answer "give me block N" as cheaply
// as "give me block 0xabc...".
type BlockManager struct {
	db    *database.DBManager
	cache commoncache.Cache
}

func NewBlockManager(db *database.DBManager) *BlockManager {
	cache, _ := commoncache.NewCache(commoncache.LRUConfig{CacheSize: blockCacheSize})
	return &BlockManager{db: db, cache: cache}
}

func blockKey(hash common.Hash) []byte { return hash.Bytes() }

// numberKey is big-endian so lexicographic key order (what every Iterator in
// storage/database walks in) matches numeric block order.
func numberKey(number uint64) []byte {
	key := make([]byte, 10)
	copy(key, "n:")
	binary.BigEndian.PutUint64(key[2:], number)
	return key
}

// PutBlock stores the block under its hash and records it as the canonical
// block for its number, overwriting any prior occupant of that number — the
// only way a number's canonical mapping changes is a revert rewriting it.
func (bm *BlockManager) PutBlock(block *types.Block) error {
	enc, err := rlp.EncodeToBytes(block)
	if err != nil {
		return errors.Wrap(err, "encode block")
	}
	if err := bm.db.Put(database.BlockDB, blockKey(block.Hash()), enc); err != nil {
		return errors.Wrap(err, "persist block")
	}
	if err := bm.db.Put(database.BlockDB, numberKey(block.NumberU64()), block.Hash().Bytes()); err != nil {
		return errors.Wrap(err, "persist canonical index")
	}
	bm.cache.Add(block.Hash(), block)
	return nil
}

func (bm *BlockManager) GetBlockByHash(hash common.Hash) (*types.Block, error) {
	if v, ok := bm.cache.Get(hash); ok {
		return v.(*types.Block), nil
	}
	enc, err := bm.db.Get(database.BlockDB, blockKey(hash))
	if err == database.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read block")
	}
	block := new(types.Block)
	if err := rlp.DecodeBytes(enc, block); err != nil {
		return nil, errors.Wrap(err, "decode block")
	}
	bm.cache.Add(hash, block)
	return block, nil
}

func (bm *BlockManager) GetBlockByNumber(number uint64) (*types.Block, error) {
	hashBytes, err := bm.db.Get(database.BlockDB, numberKey(number))
	if err == database.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read canonical index")
	}
	return bm.GetBlockByHash(common.BytesToHash(hashBytes))
}

// DeleteCanonicalNumber removes the number->hash mapping for number, used by
// revert to unlink blocks above the restored snapshot from the canonical
// chain without having to delete the (still potentially shared) block body.
func (bm *BlockManager) DeleteCanonicalNumber(number uint64) error {
	return bm.db.Delete(database.BlockDB, numberKey(number))
}

// DeleteBlockByHash removes a block's body, used alongside
// DeleteCanonicalNumber when revert garbage-collects a discarded block.
func (bm *BlockManager) DeleteBlockByHash(hash common.Hash) error {
	bm.cache.Remove(hash)
	return bm.db.Delete(database.BlockDB, blockKey(hash))
}

// ReceiptManager is the typed read/write surface over ReceiptDB, one entry
// per transaction hash.
type ReceiptManager struct {
	db    *database.DBManager
	cache commoncache.Cache
}

func NewReceiptManager(db *database.DBManager) *ReceiptManager {
	cache, _ := commoncache.NewCache(commoncache.LRUConfig{CacheSize: receiptCacheSize})
	return &ReceiptManager{db: db, cache: cache}
}

func (rm *ReceiptManager) PutReceipt(txHash common.Hash, receipt *types.Receipt) error {
	enc, err := rlp.EncodeToBytes(receipt)
	if err != nil {
		return errors.Wrap(err, "encode receipt")
	}
	if err := rm.db.Put(database.ReceiptDB, txHash.Bytes(), enc); err != nil {
		return errors.Wrap(err, "persist receipt")
	}
	rm.cache.Add(txHash, receipt)
	return nil
}

func (rm *ReceiptManager) GetReceipt(txHash common.Hash) (*types.Receipt, error) {
	if v, ok := rm.cache.Get(txHash); ok {
		return v.(*types.Receipt), nil
	}
	enc, err := rm.db.Get(database.ReceiptDB, txHash.Bytes())
	if err == database.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read receipt")
	}
	receipt := new(types.Receipt)
	if err := rlp.DecodeBytes(enc, receipt); err != nil {
		return nil, errors.Wrap(err, "decode receipt")
	}
	rm.cache.Add(txHash, receipt)
	return receipt, nil
}

// DeleteReceipt removes a mined transaction's receipt, used by revert to
// garbage-collect receipts belonging to discarded blocks.
func (rm *ReceiptManager) DeleteReceipt(txHash common.Hash) error {
	rm.cache.Remove(txHash)
	return rm.db.Delete(database.ReceiptDB, txHash.Bytes())
}

// TransactionManager is the typed read/write surface over TransactionDB: a
// transaction plus the block-inclusion coordinates it was mined with.
type TransactionManager struct {
	db    *database.DBManager
	cache commoncache.Cache
}

func NewTransactionManager(db *database.DBManager) *TransactionManager {
	cache, _ := commoncache.NewCache(commoncache.LRUConfig{CacheSize: transactionCacheSize})
	return &TransactionManager{db: db, cache: cache}
}

func (tm *TransactionManager) PutTransaction(stored *ourtypes.StoredTransaction) error {
	enc, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return errors.Wrap(err, "encode transaction")
	}
	hash := stored.Tx.Hash()
	if err := tm.db.Put(database.TransactionDB, hash.Bytes(), enc); err != nil {
		return errors.Wrap(err, "persist transaction")
	}
	tm.cache.Add(hash, stored)
	return nil
}

func (tm *TransactionManager) GetTransaction(hash common.Hash) (*ourtypes.StoredTransaction, error) {
	if v, ok := tm.cache.Get(hash); ok {
		return v.(*ourtypes.StoredTransaction), nil
	}
	enc, err := tm.db.Get(database.TransactionDB, hash.Bytes())
	if err == database.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read transaction")
	}
	stored := new(ourtypes.StoredTransaction)
	if err := rlp.DecodeBytes(enc, stored); err != nil {
		return nil, errors.Wrap(err, "decode transaction")
	}
	tm.cache.Add(hash, stored)
	return stored, nil
}

// DeleteTransaction removes a mined transaction's envelope, used by revert to
// garbage-collect transactions belonging to discarded blocks.
func (tm *TransactionManager) DeleteTransaction(hash common.Hash) error {
	tm.cache.Remove(hash)
	return tm.db.Delete(database.TransactionDB, hash.Bytes())
}

// BlockLogsManager is the typed read/write surface over BlockLogsDB, one
// entry per block number.
type BlockLogsManager struct {
	db    *database.DBManager
	cache commoncache.Cache
}

func NewBlockLogsManager(db *database.DBManager) *BlockLogsManager {
	cache, _ := commoncache.NewCache(commoncache.LRUConfig{CacheSize: blockLogsCacheSize})
	return &BlockLogsManager{db: db, cache: cache}
}

// PutBlockLogs persists logs keyed by block number, the blockLogs keyspace's
// external key shape.
func (lm *BlockLogsManager) PutBlockLogs(logs *ourtypes.BlockLogs) error {
	enc, err := rlp.EncodeToBytes(logs)
	if err != nil {
		return errors.Wrap(err, "encode block logs")
	}
	if err := lm.db.Put(database.BlockLogsDB, numberKey(logs.BlockNumber), enc); err != nil {
		return errors.Wrap(err, "persist block logs")
	}
	lm.cache.Add(logs.BlockNumber, logs)
	return nil
}

func (lm *BlockLogsManager) GetBlockLogs(number uint64) (*ourtypes.BlockLogs, error) {
	if v, ok := lm.cache.Get(number); ok {
		return v.(*ourtypes.BlockLogs), nil
	}
	enc, err := lm.db.Get(database.BlockLogsDB, numberKey(number))
	if err == database.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read block logs")
	}
	logs := new(ourtypes.BlockLogs)
	if err := rlp.DecodeBytes(enc, logs); err != nil {
		return nil, errors.Wrap(err, "decode block logs")
	}
	lm.cache.Add(number, logs)
	return logs, nil
}

// DeleteBlockLogs removes a discarded block's log record during revert.
func (lm *BlockLogsManager) DeleteBlockLogs(number uint64) error {
	lm.cache.Remove(number)
	return lm.db.Delete(database.BlockLogsDB, numberKey(number))
}
