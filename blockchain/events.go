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
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"

	ourtypes "github.com/groundx/chainsim/blockchain/types"
)

// BlockEvent is broadcast once a block has been durably persisted.
type BlockEvent struct{ Block *types.Block }

// BlockLogsEvent carries the per-block log record alongside BlockEvent.
type BlockLogsEvent struct{ Logs *ourtypes.BlockLogs }

// PendingTransactionEvent fires as soon as QueueTransaction's call to the
// pool accepts a transaction, before it has been mined.
type PendingTransactionEvent struct{ Hash common.Hash }

// StepEvent is emitted best-effort per EVM call; this simulator's EVM has no
// opcode loop, so one StepEvent is emitted per transaction the miner applies.
type StepEvent struct {
	TxHash common.Hash
	Sender common.Address
}

// txCompletion is delivered on the one-shot per-hash channel a legacy
// instamine QueueTransaction call blocks on, standing in for a dynamically
// named `transaction:<hash>` / `transaction-failure:<hash>` channel — Go has
// no runtime-named channel registry, so a map keyed by hash plays the same
// role.
type txCompletion struct {
	failed bool
	err    error
}

// events owns every event.Feed the blockchain coordinator broadcasts on,
// plus the completion-channel registry legacy instamine mode uses to let
// QueueTransaction observe persistence before returning.
type events struct {
	startFeed   event.Feed
	pauseFeed   event.Feed
	resumeFeed  event.Feed
	stopFeed    event.Feed
	stepFeed    event.Feed
	blockFeed   event.Feed
	blockLogsFeed event.Feed
	pendingTxFeed event.Feed

	mu          sync.Mutex
	completions map[common.Hash]chan txCompletion
}

func newEvents() *events {
	return &events{completions: make(map[common.Hash]chan txCompletion)}
}

func (e *events) SubscribeStart(ch chan<- struct{}) event.Subscription   { return e.startFeed.Subscribe(ch) }
func (e *events) SubscribePause(ch chan<- struct{}) event.Subscription  { return e.pauseFeed.Subscribe(ch) }
func (e *events) SubscribeResume(ch chan<- struct{}) event.Subscription { return e.resumeFeed.Subscribe(ch) }
func (e *events) SubscribeStop(ch chan<- struct{}) event.Subscription   { return e.stopFeed.Subscribe(ch) }
func (e *events) SubscribeStep(ch chan<- StepEvent) event.Subscription  { return e.stepFeed.Subscribe(ch) }
func (e *events) SubscribeBlock(ch chan<- BlockEvent) event.Subscription {
	return e.blockFeed.Subscribe(ch)
}
func (e *events) SubscribeBlockLogs(ch chan<- BlockLogsEvent) event.Subscription {
	return e.blockLogsFeed.Subscribe(ch)
}
func (e *events) SubscribePendingTransaction(ch chan<- PendingTransactionEvent) event.Subscription {
	return e.pendingTxFeed.Subscribe(ch)
}

// awaitCompletion registers a one-shot channel for hash, overwriting any
// stale prior registration — a hash is only ever queued once in this
// simulator's model, so reuse would indicate a caller bug, not a retry.
func (e *events) awaitCompletion(hash common.Hash) <-chan txCompletion {
	ch := make(chan txCompletion, 1)
	e.mu.Lock()
	e.completions[hash] = ch
	e.mu.Unlock()
	return ch
}

// completeTransaction delivers the one-shot completion signal for hash, if
// anyone is waiting on it, and forgets the registration either way, so a
// one-shot channel is never leaked once its transaction has resolved.
func (e *events) completeTransaction(hash common.Hash, failed bool, err error) {
	e.mu.Lock()
	ch, ok := e.completions[hash]
	delete(e.completions, hash)
	e.mu.Unlock()
	if ok {
		ch <- txCompletion{failed: failed, err: err}
	}
}
