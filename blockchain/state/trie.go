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

// Package state wraps go-ethereum's Merkle-Patricia trie with the
// checkpoint/commit/revert stack the chain's block-commit and
// snapshot/revert pipelines need, in place of the on-disk account-object
// cache a production node keeps (there is no block-to-block staleness to
// hide here: every block commits synchronously).
package state

import (
	"math/big"
	"sync"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	gethtrie "github.com/ethereum/go-ethereum/trie"
	"github.com/pkg/errors"

	ourtypes "github.com/groundx/chainsim/blockchain/types"
	"github.com/groundx/chainsim/storage/database"
)

var logger = log.New("module", "state")

// ErrCheckpointOpen is returned by OpenRoot when a checkpoint pushed by
// Checkpoint is still outstanding (no matching Commit/RevertToSnapshot) —
// reopening the trie out from under it would strand that checkpoint's
// saved root, so the caller must quiesce first.
var ErrCheckpointOpen = errors.New("state: checkpoint still open")

// trieKVStore adapts DBManager's StateTrieDB keyspace to the ethdb.KeyValueStore
// surface go-ethereum's trie.Database wants, the same shape klaytn's own
// storage/statedb package wraps its DBManager in.
type trieKVStore struct {
	db *database.DBManager
}

func (s *trieKVStore) Put(key, value []byte) error { return s.db.Put(database.StateTrieDB, key, value) }
func (s *trieKVStore) Get(key []byte) ([]byte, error) {
	return s.db.Get(database.StateTrieDB, key)
}
func (s *trieKVStore) Has(key []byte) (bool, error) { return s.db.Has(database.StateTrieDB, key) }
func (s *trieKVStore) Delete(key []byte) error      { return s.db.Delete(database.StateTrieDB, key) }
func (s *trieKVStore) Stat(property string) (string, error) { return "", nil }
func (s *trieKVStore) Compact(start, limit []byte) error    { return nil }
func (s *trieKVStore) Close() error                          { return nil }

func (s *trieKVStore) NewBatch() ethdb.Batch { return &trieKVBatch{b: s.db.NewChainBatchFor(database.StateTrieDB)} }
func (s *trieKVStore) NewBatchWithSize(size int) ethdb.Batch { return s.NewBatch() }

func (s *trieKVStore) NewIterator(prefix, start []byte) ethdb.Iterator {
	return &trieKVIterator{it: s.db.NewIterator(database.StateTrieDB, append(append([]byte(nil), prefix...), start...))}
}

// trieKVBatch adapts storage/database.Batch (keyed into one fixed keyspace)
// to ethdb.Batch.
type trieKVBatch struct {
	b *database.KeyspaceBatch
}

func (b *trieKVBatch) Put(key, value []byte) error { return b.b.Put(key, value) }
func (b *trieKVBatch) Delete(key []byte) error      { return b.b.Delete(key) }
func (b *trieKVBatch) ValueSize() int               { return b.b.ValueSize() }
func (b *trieKVBatch) Write() error                 { return b.b.Write() }
func (b *trieKVBatch) Reset()                       { b.b.Reset() }
func (b *trieKVBatch) Replay(w ethdb.KeyValueWriter) error {
	return b.b.Replay(func(key, value []byte, deleted bool) error {
		if deleted {
			return w.Delete(key)
		}
		return w.Put(key, value)
	})
}

type trieKVIterator struct {
	it  database.Iterator
	err error
}

func (i *trieKVIterator) Next() bool      { return i.it.Next() }
func (i *trieKVIterator) Error() error    { return i.err }
func (i *trieKVIterator) Key() []byte     { return i.it.Key() }
func (i *trieKVIterator) Value() []byte   { return i.it.Value() }
func (i *trieKVIterator) Release()        { i.it.Release() }

// checkpoint is one entry in the undo stack: the trie root at the moment
// Checkpoint was called, so RevertToSnapshot can re-open the trie there.
type checkpoint struct {
	root common.Hash
}

// accountCacheBytes sizes the hot-path RLP cache for recently read/written
// accounts — most mined transactions touch the same handful of senders, so
// this avoids a TryGet+decode round trip per balance check.
const accountCacheBytes = 8 * 1024 * 1024

// Trie is the checkpointable account-state view the blockchain coordinator
// drives: one checkpoint per pending transaction (reverted to on VM failure,
// discarded on success) and one commit per mined block.
type Trie struct {
	mu    sync.Mutex
	db    *gethtrie.Database
	trie  *gethtrie.Trie
	cache *fastcache.Cache

	checkpoints []checkpoint
}

// NewTrie opens (or creates, if root is the zero hash) the account trie
// backed by dbm's StateTrieDB keyspace.
func NewTrie(dbm *database.DBManager, root common.Hash) (*Trie, error) {
	triedb := gethtrie.NewDatabase(&trieKVStore{db: dbm})
	t, err := gethtrie.New(root, triedb)
	if err != nil {
		return nil, errors.Wrap(err, "open state trie")
	}
	return &Trie{db: triedb, trie: t, cache: fastcache.New(accountCacheBytes)}, nil
}

// Hash returns the trie's current root, recomputing intermediate node
// hashes but not writing anything to the backing store.
func (s *Trie) Hash() common.Hash {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trie.Hash()
}

// GetAccount looks up addr, returning a fresh zero-value account (never nil)
// when the address has never been touched.
func (s *Trie) GetAccount(addr common.Address) (*ourtypes.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getAccountLocked(addr)
}

func (s *Trie) getAccountLocked(addr common.Address) (*ourtypes.Account, error) {
	key := crypto.Keccak256(addr.Bytes())
	if cached, ok := s.cache.HasGet(nil, key); ok {
		acc := new(ourtypes.Account)
		if err := rlp.DecodeBytes(cached, acc); err != nil {
			return nil, errors.Wrap(err, "decode cached account")
		}
		return acc, nil
	}

	enc, err := s.trie.TryGet(key)
	if err != nil {
		return nil, errors.Wrap(err, "trie get")
	}
	if len(enc) == 0 {
		return ourtypes.NewEOAAccount(), nil
	}
	s.cache.Set(key, enc)
	acc := new(ourtypes.Account)
	if err := rlp.DecodeBytes(enc, acc); err != nil {
		return nil, errors.Wrap(err, "decode account")
	}
	return acc, nil
}

// PutAccount writes acc back under addr. Giving it a zero balance and nonce
// does not remove the leaf — accounts in this simulator are never pruned,
// since an external caller may still be holding a reference to the address.
func (s *Trie) PutAccount(addr common.Address, acc *ourtypes.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := crypto.Keccak256(addr.Bytes())
	enc, err := rlp.EncodeToBytes(acc)
	if err != nil {
		return errors.Wrap(err, "encode account")
	}
	if err := s.trie.TryUpdate(key, enc); err != nil {
		return errors.Wrap(err, "trie update")
	}
	s.cache.Set(key, enc)
	return nil
}

// revertMarker is the sentinel CodeHash a test harness writes via SetRevert
// to make an address deterministically fail every call against it — this
// simulator's stand-in for a contract whose bytecode always reverts.
var revertMarker = []byte("chainsim:revert")

// GetBalance returns addr's current balance.
func (s *Trie) GetBalance(addr common.Address) (*big.Int, error) {
	acc, err := s.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return acc.Balance, nil
}

// GetNonce returns addr's current nonce.
func (s *Trie) GetNonce(addr common.Address) (uint64, error) {
	acc, err := s.GetAccount(addr)
	if err != nil {
		return 0, err
	}
	return acc.Nonce, nil
}

// SetRevert marks addr so every EVM Call against it fails with
// vm.ErrExecutionReverted, without disturbing its balance or nonce.
func (s *Trie) SetRevert(addr common.Address, revert bool) error {
	acc, err := s.GetAccount(addr)
	if err != nil {
		return err
	}
	if revert {
		acc.CodeHash = revertMarker
	} else {
		acc.CodeHash = nil
	}
	return s.PutAccount(addr, acc)
}

// WillRevert reports whether addr was marked by SetRevert.
func (s *Trie) WillRevert(addr common.Address) (bool, error) {
	acc, err := s.GetAccount(addr)
	if err != nil {
		return false, err
	}
	return string(acc.CodeHash) == string(revertMarker), nil
}

// AddBalance is the common case of GetAccount+PutAccount the EVM's value
// transfer drives for both the sender debit and the recipient credit.
func (s *Trie) AddBalance(addr common.Address, amount *big.Int) error {
	s.mu.Lock()
	acc, err := s.getAccountLocked(addr)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	acc.Balance = new(big.Int).Add(acc.Balance, amount)
	return s.PutAccount(addr, acc)
}

// SubBalance mirrors AddBalance; callers are responsible for the sufficient
// funds check before calling it (the EVM does this as part of intrinsic gas
// and value validation).
func (s *Trie) SubBalance(addr common.Address, amount *big.Int) error {
	s.mu.Lock()
	acc, err := s.getAccountLocked(addr)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	acc.Balance = new(big.Int).Sub(acc.Balance, amount)
	return s.PutAccount(addr, acc)
}

// SetNonce stores n as addr's next expected nonce.
func (s *Trie) SetNonce(addr common.Address, n uint64) error {
	s.mu.Lock()
	acc, err := s.getAccountLocked(addr)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	acc.Nonce = n
	return s.PutAccount(addr, acc)
}

// Checkpoint records the current root on the undo stack and returns its
// index, the id RevertToSnapshot is later called with.
func (s *Trie) Checkpoint() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints = append(s.checkpoints, checkpoint{root: s.trie.Hash()})
	return len(s.checkpoints) - 1
}

// RevertToSnapshot reopens the trie at the root recorded by Checkpoint(id),
// discarding every mutation made since — used for a single failed
// transaction's per-tx checkpoint; a chain revert goes through OpenRoot.
func (s *Trie) RevertToSnapshot(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 0 || id >= len(s.checkpoints) {
		return errors.Errorf("state: invalid checkpoint id %d", id)
	}
	root := s.checkpoints[id].root
	t, err := gethtrie.New(root, s.db)
	if err != nil {
		return errors.Wrap(err, "reopen trie at checkpoint")
	}
	s.trie = t
	s.cache.Reset()
	s.checkpoints = s.checkpoints[:id]
	return nil
}

// DiscardCheckpoint drops the most recent checkpoint without reverting to
// it — the per-transaction checkpoint's fate when execution succeeds.
func (s *Trie) DiscardCheckpoint() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.checkpoints); n > 0 {
		s.checkpoints = s.checkpoints[:n-1]
	}
}

// Commit flushes every pending trie node to the backing keyspace, clears the
// checkpoint stack (nothing below the new root is reachable to revert to
// once committed), and returns the new root. The account cache survives a
// commit unchanged: committing writes nodes, it does not change the values
// any already-cached account maps to.
func (s *Trie) Commit() (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	root, _, err := s.trie.Commit(nil)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "commit trie")
	}
	if err := s.db.Commit(root, false, nil); err != nil {
		return common.Hash{}, errors.Wrap(err, "commit trie db")
	}
	s.checkpoints = s.checkpoints[:0]
	logger.Trace("committed state trie", "root", root)
	return root, nil
}

// OpenRoot reopens the live trie at root, used when the blockchain
// coordinator reverts the chain to a snapshot's block.
func (s *Trie) OpenRoot(root common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.checkpoints) > 0 {
		return ErrCheckpointOpen
	}
	t, err := gethtrie.New(root, s.db)
	if err != nil {
		return errors.Wrap(err, "open trie at root")
	}
	s.trie = t
	s.cache.Reset()
	s.checkpoints = s.checkpoints[:0]
	return nil
}
