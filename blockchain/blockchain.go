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

// Package blockchain is the coordinator: it owns the Database, the
// checkpointable state trie, the typed managers, the transaction pool and
// the miner, and drives them through a single lifecycle — start, mine,
// snapshot/revert, pause/resume, stop — the way a node package drives its
// own subsystem set, just without a network in front of it.
package blockchain

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	gethtrie "github.com/ethereum/go-ethereum/trie"
	"github.com/pkg/errors"

	chainstate "github.com/groundx/chainsim/blockchain/state"
	ourtypes "github.com/groundx/chainsim/blockchain/types"
	chainvm "github.com/groundx/chainsim/blockchain/vm"
	"github.com/groundx/chainsim/core/txpool"
	"github.com/groundx/chainsim/datasync/exporter"
	"github.com/groundx/chainsim/miner"
	"github.com/groundx/chainsim/params"
	"github.com/groundx/chainsim/storage/database"
)

var logger = log.New("module", "blockchain")

var (
	latestKey   = []byte("latest")
	earliestKey = []byte("earliest")
)

// lifecycle state bit-flags. paused composes with started: a chain can be
// started|paused simultaneously, which is why these are flags rather than a
// single enum.
type lifecycleState uint32

const (
	stateStarting lifecycleState = 1 << iota
	stateStarted
	statePaused
	stateStopping
	stateStopped
)

// trieAccountState adapts *state.Trie onto txpool.AccountState, the only two
// account facts the pool needs to decide executability and affordability.
type trieAccountState struct{ trie *chainstate.Trie }

func (a trieAccountState) GetNonce(addr common.Address) (uint64, error) { return a.trie.GetNonce(addr) }
func (a trieAccountState) GetBalance(addr common.Address) (*big.Int, error) {
	return a.trie.GetBalance(addr)
}

// Blockchain is the single-writer chain coordinator. Block commits and
// reverts (trie and managers) are serialised by commitMu; the lifecycle
// state, the latest pointer with the time adjustment, and the snapshot stack
// are guarded by stateMu, latestMu and snapshotMu, and the pool does its own
// locking, so the public API may be called from any goroutine.
type Blockchain struct {
	config      *Config
	chainConfig *params.ChainConfig
	signer      types.Signer

	db        *database.DBManager
	trie      *chainstate.Trie
	blocks    *BlockManager
	receipts  *ReceiptManager
	txs       *TransactionManager
	blockLogs *BlockLogsManager
	pool      *txpool.TxPool
	miner     *miner.Miner
	exporter  exporter.Repository

	events *events

	stateMu sync.Mutex
	state   lifecycleState

	latestMu       sync.RWMutex
	earliest       *types.Block
	latest         *types.Block
	timeAdjustment int64

	// commitMu serialises mine()/revert() — the "processingBlock" gate the
	// spec describes, implemented as a plain mutex rather than a channel
	// since this simulator never needs to inspect "is a commit in flight"
	// without also waiting for it to finish.
	commitMu sync.Mutex

	snapshotMu sync.Mutex
	snapshots  []ourtypes.Snapshot

	startedCh chan struct{}
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// New allocates a Blockchain bound to config. Call Start to bring it up.
func New(config *Config) *Blockchain {
	return &Blockchain{
		config:    config,
		events:    newEvents(),
		stopCh:    make(chan struct{}),
		startedCh: make(chan struct{}),
	}
}

func (bc *Blockchain) hasState(flag lifecycleState) bool {
	bc.stateMu.Lock()
	defer bc.stateMu.Unlock()
	return bc.state&flag != 0
}

func (bc *Blockchain) setState(set, clear lifecycleState) {
	bc.stateMu.Lock()
	bc.state = (bc.state &^ clear) | set
	bc.stateMu.Unlock()
}

// currentTime is wall-clock seconds plus the chain's simulated time
// adjustment, monotonic except across an explicit SetTime/Revert.
func (bc *Blockchain) currentTime() int64 {
	bc.latestMu.RLock()
	adj := bc.timeAdjustment
	bc.latestMu.RUnlock()
	return time.Now().Unix() + adj
}

// Start brings the chain up in order: open the database, recover or create
// genesis, construct every collaborator, then wire and launch the mining
// loop. Bootstrap failures are fatal and returned directly; Start never
// retries internally.
func (bc *Blockchain) Start() error {
	bc.setState(stateStarting, 0)

	db, err := bc.openDatabase()
	if err != nil {
		return errors.Wrap(err, "blockchain: open database")
	}
	bc.db = db

	bc.blocks = NewBlockManager(db)
	bc.receipts = NewReceiptManager(db)
	bc.txs = NewTransactionManager(db)
	bc.blockLogs = NewBlockLogsManager(db)

	bc.chainConfig = &params.ChainConfig{ChainID: bc.config.ChainID, Hardfork: bc.config.Hardfork}
	bc.signer = types.NewEIP155Signer(bc.config.ChainID)

	recovered, err := bc.recoverTip()
	if err != nil {
		return errors.Wrap(err, "blockchain: recover tip")
	}

	if recovered != nil {
		trie, err := chainstate.NewTrie(db, recovered.Root())
		if err != nil {
			return errors.Wrap(err, "blockchain: open recovered state trie")
		}
		bc.trie = trie
	} else {
		trie, err := chainstate.NewTrie(db, common.Hash{})
		if err != nil {
			return errors.Wrap(err, "blockchain: open genesis state trie")
		}
		bc.trie = trie
	}

	bc.pool = txpool.New(
		txpool.Config{Signer: bc.signer, GlobalSlots: txpool.DefaultConfig.GlobalSlots},
		trieAccountState{bc.trie},
	)

	var genesis *types.Block
	if recovered == nil {
		genesis, err = bc.createGenesis()
		if err != nil {
			return errors.Wrap(err, "blockchain: create genesis block")
		}
	}

	bc.miner = miner.New(bc.chainConfig)

	if err := bc.setupExporter(); err != nil {
		return errors.Wrap(err, "blockchain: setup exporter")
	}

	tip := recovered
	if tip == nil {
		tip = genesis
	}
	earliest := tip
	if recovered != nil {
		e, err := bc.loadEarliest()
		if err != nil {
			return errors.Wrap(err, "blockchain: load earliest block")
		}
		earliest = e
	}
	bc.latestMu.Lock()
	bc.earliest = earliest
	bc.latest = tip
	bc.latestMu.Unlock()

	bc.wg.Add(1)
	if bc.config.BlockTime > 0 {
		go bc.runIntervalMiningLoop()
	} else {
		go bc.runInstantMiningLoop()
	}

	bc.setState(stateStarted, stateStarting)
	close(bc.startedCh)
	bc.events.startFeed.Send(struct{}{})
	return nil
}

func (bc *Blockchain) openDatabase() (*database.DBManager, error) {
	if bc.config.DBType == database.MemoryDB || bc.config.DBPath == "" {
		return database.NewMemoryDBManager(), nil
	}
	return database.NewDBManager(&database.Config{Dir: bc.config.DBPath, DBType: bc.config.DBType})
}

// recoverTip looks for a persisted "latest" head pointer in the misc
// keyspace; its presence means the blocks keyspace is non-empty and the
// caller should skip genesis re-creation entirely.
func (bc *Blockchain) recoverTip() (*types.Block, error) {
	hashBytes, err := bc.db.Get(database.MiscDB, latestKey)
	if err == database.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	block, err := bc.blocks.GetBlockByHash(common.BytesToHash(hashBytes))
	if err != nil {
		return nil, err
	}
	return block, nil
}

func (bc *Blockchain) loadEarliest() (*types.Block, error) {
	hashBytes, err := bc.db.Get(database.MiscDB, earliestKey)
	if err != nil {
		return nil, err
	}
	return bc.blocks.GetBlockByHash(common.BytesToHash(hashBytes))
}

// createGenesis commits the configured initial accounts, then builds and
// persists block zero with the resulting state root.
func (bc *Blockchain) createGenesis() (*types.Block, error) {
	cp := bc.trie.Checkpoint()
	for _, account := range bc.config.InitialAccounts {
		acc := ourtypes.NewEOAAccount()
		acc.Nonce = account.Nonce
		if account.Balance != nil {
			acc.Balance = new(big.Int).Set(account.Balance)
		}
		if err := bc.trie.PutAccount(account.Address, acc); err != nil {
			if revertErr := bc.trie.RevertToSnapshot(cp); revertErr != nil {
				return nil, revertErr
			}
			return nil, err
		}
	}
	bc.trie.DiscardCheckpoint()

	root, err := bc.trie.Commit()
	if err != nil {
		return nil, err
	}

	timestamp := bc.currentTime()
	if bc.config.Time != nil {
		timestamp = *bc.config.Time
		bc.latestMu.Lock()
		bc.timeAdjustment = timestamp - time.Now().Unix()
		bc.latestMu.Unlock()
	}

	hasher := gethtrie.NewStackTrie(nil)
	header := &types.Header{
		Number:     big.NewInt(0),
		ParentHash: common.Hash{},
		Root:       root,
		TxHash:     types.DeriveSha(types.Transactions(nil), hasher),
		ReceiptHash: types.DeriveSha(types.Receipts(nil), hasher),
		GasLimit:   bc.config.GasLimit,
		Time:       uint64(timestamp),
		Coinbase:   bc.config.Coinbase,
	}
	block := types.NewBlock(header, nil, nil, nil, hasher)

	if err := bc.blocks.PutBlock(block); err != nil {
		return nil, err
	}
	if err := bc.db.Put(database.MiscDB, earliestKey, block.Hash().Bytes()); err != nil {
		return nil, err
	}
	if err := bc.db.Put(database.MiscDB, latestKey, block.Hash().Bytes()); err != nil {
		return nil, err
	}
	return block, nil
}

func (bc *Blockchain) setupExporter() error {
	switch {
	case bc.config.Exporter.Kafka != nil:
		repo, err := exporter.NewKafkaRepository(bc.config.Exporter.Kafka)
		if err != nil {
			return err
		}
		bc.exporter = repo
	case bc.config.Exporter.LogOnly:
		bc.exporter = exporter.NewLogRepository()
	}
	return nil
}

// IsMining reports whether the chain is started and not paused.
func (bc *Blockchain) IsMining() bool {
	return bc.hasState(stateStarted) && !bc.hasState(statePaused)
}

func (bc *Blockchain) getLatest() *types.Block {
	bc.latestMu.RLock()
	defer bc.latestMu.RUnlock()
	return bc.latest
}

func (bc *Blockchain) getEarliest() *types.Block {
	bc.latestMu.RLock()
	defer bc.latestMu.RUnlock()
	return bc.earliest
}

func (bc *Blockchain) setLatest(block *types.Block) {
	bc.latestMu.Lock()
	bc.latest = block
	bc.latestMu.Unlock()
}

func (bc *Blockchain) runInstantMiningLoop() {
	defer bc.wg.Done()

	drainCh := make(chan struct{}, 1)
	drainSub := bc.pool.SubscribeDrain(drainCh)
	defer drainSub.Unsubscribe()

	resumeCh := make(chan struct{}, 1)
	resumeSub := bc.events.SubscribeResume(resumeCh)
	defer resumeSub.Unsubscribe()

	waitingOnResume := false

	for {
		select {
		case <-bc.stopCh:
			return
		case <-drainCh:
			if bc.hasState(statePaused) {
				waitingOnResume = true
				continue
			}
			if err := bc.Mine(1); err != nil {
				logger.Error("instant mining failed", "err", err)
			}
		case <-resumeCh:
			if waitingOnResume {
				waitingOnResume = false
				if err := bc.Mine(-1); err != nil {
					logger.Error("instant mining failed", "err", err)
				}
			}
		}
	}
}

func (bc *Blockchain) runIntervalMiningLoop() {
	defer bc.wg.Done()

	interval := time.Duration(bc.config.BlockTime) * time.Second
	timer := time.NewTimer(interval)
	defer timer.Stop()

	resumeCh := make(chan struct{}, 1)
	resumeSub := bc.events.SubscribeResume(resumeCh)
	defer resumeSub.Unsubscribe()

	for {
		select {
		case <-bc.stopCh:
			return
		case <-timer.C:
			if bc.hasState(statePaused) {
				select {
				case <-resumeCh:
				case <-bc.stopCh:
					return
				}
			}
			if err := bc.Mine(-1); err != nil {
				logger.Error("interval mining failed", "err", err)
			}
			timer.Reset(interval)
		}
	}
}

// Mine asks the miner to include up to maxTransactions executable
// transactions (−1 for "as many as fit") into a freshly prepared next block,
// and commits the result. It is exported so an operator (or `chainsim`'s
// CLI) can force a block outside of the chain's own mining-mode schedule.
func (bc *Blockchain) Mine(maxTransactions int) error {
	bc.commitMu.Lock()
	defer bc.commitMu.Unlock()
	return bc.mineLocked(maxTransactions, nil)
}

func (bc *Blockchain) mineLocked(maxTransactions int, timestamp *int64) error {
	executable := bc.pool.Executable()
	if len(executable) == 0 {
		return nil
	}

	txByHash := make(map[common.Hash]*types.Transaction)
	senderByHash := make(map[common.Hash]common.Address)
	for sender, txs := range executable {
		for _, tx := range txs {
			txByHash[tx.Hash()] = tx
			senderByHash[tx.Hash()] = sender
		}
	}

	parent := bc.getLatest()
	ts := bc.currentTime()
	if timestamp != nil {
		ts = *timestamp
	}
	header := &types.Header{
		ParentHash: parent.Hash(),
		Number:     new(big.Int).Add(parent.Number(), big.NewInt(1)),
		GasLimit:   bc.config.GasLimit,
		Time:       uint64(ts),
		Coinbase:   bc.config.Coinbase,
	}

	task := &miner.Task{Header: header, Executable: executable}
	var rejections []miner.Rejection
	result, err := bc.miner.Mine(task, bc.trie, maxTransactions, func(r miner.Rejection) {
		rejections = append(rejections, r)
	})
	if err != nil {
		return err
	}
	if len(result.Transactions) == 0 && len(rejections) == 0 {
		return nil
	}

	for _, tx := range result.Transactions {
		bc.pool.Remove(tx)
		bc.events.stepFeed.Send(StepEvent{TxHash: tx.Hash(), Sender: senderByHash[tx.Hash()]})
	}
	for _, rej := range rejections {
		if tx, ok := txByHash[rej.Hash]; ok {
			bc.pool.Remove(tx)
		}
		vmErr := &VmError{Cause: rej.Err}
		if bc.config.VMErrorsOnRPCResponse {
			vmErr.Hash = rej.Hash
		}
		bc.events.completeTransaction(rej.Hash, true, vmErr)
	}

	return bc.commitBlock(header, result)
}

// commitBlock implements the block-commit pipeline: optimistic latest
// update, one atomic cross-keyspace batch, re-assertion of latest, event
// fan-out, and best-effort exporter forwarding.
func (bc *Blockchain) commitBlock(header *types.Header, result *miner.Result) error {
	stateRoot, err := bc.trie.Commit()
	if err != nil {
		return errors.Wrap(err, "blockchain: commit state trie")
	}
	header.Root = stateRoot
	header.TxHash = result.TransactionsRoot
	header.ReceiptHash = result.ReceiptsRoot
	header.GasUsed = result.GasUsed

	hasher := gethtrie.NewStackTrie(nil)
	block := types.NewBlock(header, result.Transactions, nil, result.Receipts, hasher)

	bc.setLatest(block)

	blockLogs := ourtypes.NewBlockLogs(block.Hash(), block.NumberU64(), result.Receipts)

	batch := bc.db.NewBatch()
	for i, tx := range result.Transactions {
		stored := ourtypes.NewStoredTransaction(tx, block.Hash(), block.NumberU64(), uint64(i))
		enc, err := rlp.EncodeToBytes(stored)
		if err != nil {
			return errors.Wrap(err, "blockchain: encode stored transaction")
		}
		if err := batch.Put(database.TransactionDB, tx.Hash().Bytes(), enc); err != nil {
			return &DbError{Keyspace: "transactions", Cause: err}
		}
		recEnc, err := rlp.EncodeToBytes(result.Receipts[i])
		if err != nil {
			return errors.Wrap(err, "blockchain: encode receipt")
		}
		if err := batch.Put(database.ReceiptDB, tx.Hash().Bytes(), recEnc); err != nil {
			return &DbError{Keyspace: "receipts", Cause: err}
		}
	}
	logsEnc, err := rlp.EncodeToBytes(blockLogs)
	if err != nil {
		return errors.Wrap(err, "blockchain: encode block logs")
	}
	if err := batch.Put(database.BlockLogsDB, numberKey(block.NumberU64()), logsEnc); err != nil {
		return &DbError{Keyspace: "blockLogs", Cause: err}
	}
	blockEnc, err := rlp.EncodeToBytes(block)
	if err != nil {
		return errors.Wrap(err, "blockchain: encode block")
	}
	if err := batch.Put(database.BlockDB, blockKey(block.Hash()), blockEnc); err != nil {
		return &DbError{Keyspace: "blocks", Cause: err}
	}
	if err := batch.Put(database.BlockDB, numberKey(block.NumberU64()), block.Hash().Bytes()); err != nil {
		return &DbError{Keyspace: "blocks", Cause: err}
	}
	if err := batch.Put(database.MiscDB, latestKey, block.Hash().Bytes()); err != nil {
		return &DbError{Keyspace: "misc", Cause: err}
	}

	if err := batch.Write(); err != nil {
		return &DbError{Keyspace: "chain", Cause: err}
	}

	bc.setLatest(block)

	if bc.config.LegacyInstamine {
		for _, tx := range result.Transactions {
			bc.events.completeTransaction(tx.Hash(), false, nil)
		}
	}
	bc.events.blockFeed.Send(BlockEvent{Block: block})
	bc.events.blockLogsFeed.Send(BlockLogsEvent{Logs: blockLogs})

	if bc.exporter != nil {
		repo := bc.exporter
		logsOut := flattenLogs(blockLogs)
		go func() {
			if err := repo.HandleBlock(block, result.Receipts, logsOut); err != nil {
				logger.Warn("exporter failed to publish block", "number", block.NumberU64(), "err", err)
			}
		}()
	}

	bc.pool.NotifyDrain()
	return nil
}

func flattenLogs(blockLogs *ourtypes.BlockLogs) []*types.Log {
	out := make([]*types.Log, len(blockLogs.Logs))
	copy(out, blockLogs.Logs)
	return out
}

// QueueTransaction pushes tx into the pool and returns its hash. In legacy
// instamine mode (and while not paused) it blocks until that transaction's
// completion event fires, so the caller observes persistence before the
// call returns; otherwise the hash is returned as soon as the pool accepts
// the transaction.
func (bc *Blockchain) QueueTransaction(tx *types.Transaction) (common.Hash, error) {
	var done <-chan txCompletion
	if bc.config.LegacyInstamine && !bc.hasState(statePaused) {
		done = bc.events.awaitCompletion(tx.Hash())
	}
	_, err := bc.pool.Add(tx)
	if err != nil {
		if done != nil {
			bc.events.completeTransaction(tx.Hash(), true, nil)
		}
		return common.Hash{}, &PoolRejected{Reason: err.Error()}
	}
	hash := tx.Hash()
	bc.events.pendingTxFeed.Send(PendingTransactionEvent{Hash: hash})

	if done == nil {
		return hash, nil
	}

	completion := <-done
	if completion.failed {
		return hash, completion.err
	}
	return hash, nil
}

// SimulateTransaction runs tx against a scratch copy of the trie rooted at
// parentBlock's state root, never the authoritative trie, so callers can
// preview a transaction's effect (e.g. eth_call) without mutating chain
// state.
func (bc *Blockchain) SimulateTransaction(tx *types.Transaction, parentBlock *types.Block) (uint64, error) {
	scratch, err := chainstate.NewTrie(bc.db, parentBlock.Root())
	if err != nil {
		return 0, errors.Wrap(err, "blockchain: open scratch trie")
	}

	sender, err := types.Sender(bc.signer, tx)
	if err != nil {
		sender = bc.config.Coinbase
	}

	to := common.Address{}
	if tx.To() != nil {
		to = *tx.To()
	}

	evm := chainvm.NewEVM(scratch, bc.chainConfig)
	gasUsed, err := evm.Call(sender, to, tx.Value(), tx.Gas(), tx.Data(), tx.GasPrice(), parentBlock.Coinbase())
	if err != nil {
		return gasUsed, &VmError{Cause: err}
	}
	return gasUsed, nil
}

// Snapshot pushes the current chain position onto the revert stack and
// returns its 1-based ordinal.
func (bc *Blockchain) Snapshot() int {
	bc.latestMu.RLock()
	snap := ourtypes.Snapshot{
		BlockHash:      bc.latest.Hash(),
		BlockNumber:    bc.latest.NumberU64(),
		TimeAdjustment: bc.timeAdjustment,
	}
	bc.latestMu.RUnlock()

	bc.snapshotMu.Lock()
	id := len(bc.snapshots) + 1
	snap.ID = id
	bc.snapshots = append(bc.snapshots, snap)
	bc.snapshotMu.Unlock()
	return id
}

// Revert rewinds the chain to the position recorded by snapshotID, deleting
// every block mined after it (and that block's transactions and receipts)
// and restoring the state root and time adjustment. It returns false,nil
// when the ordinal cannot be resolved (RevertOutOfRange), rather than an
// error — an unresolvable snapshot is an expected outcome, not a failure.
func (bc *Blockchain) Revert(snapshotID int) (bool, error) {
	if snapshotID <= 0 {
		return false, &InvalidSnapshotId{ID: snapshotID}
	}

	bc.commitMu.Lock()
	defer bc.commitMu.Unlock()

	bc.snapshotMu.Lock()
	idx := snapshotID - 1
	if idx >= len(bc.snapshots) {
		bc.snapshotMu.Unlock()
		return false, nil
	}
	target := bc.snapshots[idx]
	bc.snapshots = bc.snapshots[:idx]
	bc.snapshotMu.Unlock()

	current := bc.getLatest()
	if current.Hash() == target.BlockHash {
		bc.latestMu.Lock()
		bc.timeAdjustment = target.TimeAdjustment
		bc.latestMu.Unlock()
		return true, nil
	}

	targetBlock, err := bc.blocks.GetBlockByHash(target.BlockHash)
	if err != nil {
		return false, err
	}
	if targetBlock == nil {
		return false, nil
	}

	if err := bc.trie.OpenRoot(targetBlock.Root()); err != nil {
		if errors.Is(err, chainstate.ErrCheckpointOpen) {
			return false, ErrRaceConditionOnSetStateRoot
		}
		return false, errors.Wrap(err, "blockchain: setStateRoot")
	}

	walk := current
	for walk.Hash() != targetBlock.Hash() {
		if err := bc.deleteBlock(walk); err != nil {
			return false, err
		}
		parent, err := bc.blocks.GetBlockByHash(walk.ParentHash())
		if err != nil {
			return false, err
		}
		if parent == nil {
			break
		}
		walk = parent
	}

	bc.setLatest(targetBlock)
	bc.latestMu.Lock()
	bc.timeAdjustment = target.TimeAdjustment
	bc.latestMu.Unlock()

	if err := bc.db.Put(database.MiscDB, latestKey, targetBlock.Hash().Bytes()); err != nil {
		return false, &DbError{Keyspace: "misc", Cause: err}
	}
	return true, nil
}

// deleteBlock garbage-collects one discarded block and its transactions and
// receipts within a single atomic batch, one step of Revert's backward walk.
func (bc *Blockchain) deleteBlock(block *types.Block) error {
	batch := bc.db.NewBatch()
	if err := batch.Delete(database.BlockDB, numberKey(block.NumberU64())); err != nil {
		return err
	}
	if err := batch.Delete(database.BlockDB, blockKey(block.Hash())); err != nil {
		return err
	}
	if err := batch.Delete(database.BlockLogsDB, numberKey(block.NumberU64())); err != nil {
		return err
	}
	for _, tx := range block.Transactions() {
		if err := batch.Delete(database.TransactionDB, tx.Hash().Bytes()); err != nil {
			return err
		}
		if err := batch.Delete(database.ReceiptDB, tx.Hash().Bytes()); err != nil {
			return err
		}
	}
	if err := batch.Write(); err != nil {
		return &DbError{Keyspace: "chain", Cause: err}
	}
	bc.blocks.cache.Remove(block.Hash())
	for _, tx := range block.Transactions() {
		bc.txs.cache.Remove(tx.Hash())
		bc.receipts.cache.Remove(tx.Hash())
	}
	bc.blockLogs.cache.Remove(block.NumberU64())
	return nil
}

// Pause toggles the paused flag and emits pause.
func (bc *Blockchain) Pause() {
	bc.setState(statePaused, 0)
	bc.events.pauseFeed.Send(struct{}{})
}

// Resume clears the paused flag and emits resume. Resuming a chain that
// isn't paused is a caller mistake, logged and otherwise ignored.
func (bc *Blockchain) Resume() {
	if !bc.hasState(statePaused) {
		logger.Warn("resume called while not paused")
		return
	}
	bc.setState(0, statePaused)
	bc.events.resumeFeed.Send(struct{}{})
}

// IncreaseTime adds seconds (clamped to non-negative) to the time
// adjustment.
func (bc *Blockchain) IncreaseTime(seconds int64) int64 {
	if seconds < 0 {
		seconds = 0
	}
	bc.latestMu.Lock()
	bc.timeAdjustment += seconds
	adj := bc.timeAdjustment
	bc.latestMu.Unlock()
	return adj
}

// SetTime sets the time adjustment so that currentTime() == t.
func (bc *Blockchain) SetTime(t int64) int64 {
	bc.latestMu.Lock()
	bc.timeAdjustment = t - time.Now().Unix()
	adj := bc.timeAdjustment
	bc.latestMu.Unlock()
	return adj
}

// Stop tears the chain down. If Start is still in flight it waits for
// completion first (so in-flight writes never race Close); it is
// idempotent and always emits stop.
func (bc *Blockchain) Stop() {
	if bc.hasState(stateStarting) {
		<-bc.startedCh
	}

	bc.stateMu.Lock()
	if bc.state&(stateStopping|stateStopped) != 0 {
		bc.stateMu.Unlock()
		bc.events.stopFeed.Send(struct{}{})
		return
	}
	bc.state = (bc.state &^ stateStarted) | stateStopping
	bc.stateMu.Unlock()

	close(bc.stopCh)
	bc.wg.Wait()

	if bc.exporter != nil {
		bc.exporter.Close()
	}
	if bc.db != nil {
		bc.db.Close()
	}

	bc.setState(stateStopped, stateStopping)
	bc.events.stopFeed.Send(struct{}{})
}
