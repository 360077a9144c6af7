// Copyright 2018 The klaytn Authors
// Copyright 2015 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.
//
// This file is derived from work/worker.go and work/agent.go (2018/06/04).
// Modified and improved for the klaytn development: the CpuAgent goroutine
// pool is gone, since there is never more than one block in flight at a
// time, but the task's shape — a header, an executable transaction set, a
// result carrying gasUsed/trie roots/receipts — is kept.
package miner

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	gethtrie "github.com/ethereum/go-ethereum/trie"
	"github.com/pkg/errors"

	chainstate "github.com/groundx/chainsim/blockchain/state"
	chainvm "github.com/groundx/chainsim/blockchain/vm"
	"github.com/groundx/chainsim/params"
)

var logger = log.New("module", "miner")

var (
	includedTxCounter = metrics.NewRegisteredCounter("miner/included", nil)
	rejectedTxCounter = metrics.NewRegisteredCounter("miner/rejected", nil)
	blockGasUsedGauge = metrics.NewRegisteredGauge("miner/gasused", nil)
)

// Task is the input to Mine: a header already stamped with number, time,
// coinbase, parent hash and gas limit, plus the executable transaction set
// the pool handed over, grouped by sender.
type Task struct {
	Header     *types.Header
	Executable map[common.Address][]*types.Transaction
}

// Rejection is one transaction the miner could not include in the block,
// reported via the caller-supplied onReject hook instead of aborting the
// whole block — the transaction-failure event the coordinator fans out.
type Rejection struct {
	Hash common.Hash
	Err  error
}

// Result is what one call to Mine produced: the sealed block contents and
// the per-transaction receipts needed to persist alongside it.
type Result struct {
	Transactions     types.Transactions
	Receipts         types.Receipts
	TransactionsRoot common.Hash
	ReceiptsRoot     common.Hash
	GasUsed          uint64
}

// Miner is a pure consumer of a Task and a Trie, no stored mutable state of
// its own — the single-goroutine cooperative model means it never runs
// concurrently with another Mine call.
type Miner struct {
	config *params.ChainConfig
}

func New(config *params.ChainConfig) *Miner {
	return &Miner{config: config}
}

// orderedEntry is one (sender, transactions) pair prepared for the
// price-first interleave: transactions is already nonce-ascending, and the
// entry's price (priceOf) is the first (i.e. highest-priority) transaction's
// gas price.
type orderedEntry struct {
	sender common.Address
	txs    []*types.Transaction
}

// Mine executes task.Executable against state, highest gas-price sender
// first, each sender's own nonces strictly ascending. A transaction that
// fails is reported via onReject and its state changes are rolled back
// through the trie's checkpoint stack; mining continues with the next
// transaction.
// maxTransactions caps how many transactions this call may include: -1 means
// "as many as fit in the gas limit", 0 mines nothing and returns an empty
// result, and a positive N stops after N successful inclusions.
func (m *Miner) Mine(task *Task, state *chainstate.Trie, maxTransactions int, onReject func(Rejection)) (*Result, error) {
	if maxTransactions == 0 {
		hasher := gethtrie.NewStackTrie(nil)
		return &Result{
			TransactionsRoot: types.DeriveSha(types.Transactions(nil), hasher),
			ReceiptsRoot:     types.DeriveSha(types.Receipts(nil), hasher),
		}, nil
	}

	entries := make([]orderedEntry, 0, len(task.Executable))
	for sender, txs := range task.Executable {
		sorted := append([]*types.Transaction(nil), txs...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Nonce() < sorted[j].Nonce() })
		entries = append(entries, orderedEntry{sender: sender, txs: sorted})
	}
	sort.Slice(entries, func(i, j int) bool {
		return priceOf(entries[i]) > priceOf(entries[j])
	})

	evm := chainvm.NewEVM(state, m.config)

	var (
		included types.Transactions
		receipts types.Receipts
		gasUsed  uint64
		gasPool  = new(big.Int).SetUint64(task.Header.GasLimit)
	)

	for _, entry := range entries {
		for _, tx := range entry.txs {
			if maxTransactions > 0 && len(included) >= maxTransactions {
				break
			}
			if gasPool.Uint64() < tx.Gas() {
				rejectedTxCounter.Inc(1)
				onReject(Rejection{Hash: tx.Hash(), Err: errors.New("miner: block gas limit reached")})
				continue
			}

			cp := state.Checkpoint()

			to := common.Address{}
			if tx.To() != nil {
				to = *tx.To()
			}
			gasUsedTx, err := evm.Call(entry.sender, to, tx.Value(), tx.Gas(), tx.Data(), tx.GasPrice(), task.Header.Coinbase)
			if err != nil {
				if revertErr := state.RevertToSnapshot(cp); revertErr != nil {
					return nil, errors.Wrap(revertErr, "miner: revert failed transaction")
				}
				rejectedTxCounter.Inc(1)
				onReject(Rejection{Hash: tx.Hash(), Err: err})
				continue
			}
			state.DiscardCheckpoint()
			includedTxCounter.Inc(1)

			nonce, err := state.GetNonce(entry.sender)
			if err != nil {
				return nil, err
			}
			if err := state.SetNonce(entry.sender, nonce+1); err != nil {
				return nil, err
			}

			receipt := types.NewReceipt(nil, false, gasUsed+gasUsedTx)
			receipt.TxHash = tx.Hash()
			receipt.GasUsed = gasUsedTx
			receipt.Status = types.ReceiptStatusSuccessful

			included = append(included, tx)
			receipts = append(receipts, receipt)
			gasUsed += gasUsedTx
			gasPool.Sub(gasPool, new(big.Int).SetUint64(tx.Gas()))
		}
	}

	blockGasUsedGauge.Update(int64(gasUsed))

	hasher := gethtrie.NewStackTrie(nil)
	return &Result{
		Transactions:     included,
		Receipts:         receipts,
		TransactionsRoot: types.DeriveSha(included, hasher),
		ReceiptsRoot:     types.DeriveSha(receipts, hasher),
		GasUsed:          gasUsed,
	}, nil
}

func priceOf(e orderedEntry) uint64 {
	if len(e.txs) == 0 {
		return 0
	}
	return e.txs[0].GasPrice().Uint64()
}
