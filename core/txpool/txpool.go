// Copyright 2018 The klaytn Authors
// Copyright 2014 The go-ethereum Authors
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
// This file is derived from core/tx_pool.go and node/sc/bridge_tx_pool.go
// (2018/06/04). Modified and improved for the klaytn development.

// Package txpool holds pending transactions keyed by sender and ordered by
// nonce, the way core/tx_pool.go's pending/queue split does, simplified to
// this simulator's needs. Every exported method takes the pool's read-write
// mutex, so the pool may be called from any goroutine.
package txpool

import (
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	fatihset "gopkg.in/fatih/set.v0"
)

var logger = log.New("module", "txpool")

var (
	refusedTxCounter = metrics.NewRegisteredCounter("txpool/refuse", nil)
	pendingGauge     = metrics.NewRegisteredGauge("txpool/pending", nil)
)

// AccountState answers the two questions the pool needs about a sender to
// decide whether a transaction is executable right now.
type AccountState interface {
	GetNonce(addr common.Address) (uint64, error)
	GetBalance(addr common.Address) (*big.Int, error)
}

// Config bounds the pool's memory use and, through Signer, how senders are
// recovered from a transaction's signature.
type Config struct {
	Signer      types.Signer
	GlobalSlots uint64 // Maximum number of transactions held across all senders.
}

// DefaultConfig mirrors the bridge pool's defaults, scaled down for a
// single-chain simulator rather than a multi-chain bridge.
var DefaultConfig = Config{GlobalSlots: 4096}

// sortedMap is a sender's queued transactions ordered by ascending nonce,
// grounded on bridge_tx_pool.go's bridgeTxSortedMap.
type sortedMap struct {
	items map[uint64]*types.Transaction
}

func newSortedMap() *sortedMap { return &sortedMap{items: make(map[uint64]*types.Transaction)} }

func (m *sortedMap) Get(nonce uint64) *types.Transaction { return m.items[nonce] }
func (m *sortedMap) Put(tx *types.Transaction)           { m.items[tx.Nonce()] = tx }
func (m *sortedMap) Remove(nonce uint64)                 { delete(m.items, nonce) }
func (m *sortedMap) Len() int                             { return len(m.items) }

func (m *sortedMap) nonces() []uint64 {
	out := make([]uint64, 0, len(m.items))
	for n := range m.items {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TxPool is the chain's staging area between QueueTransaction and mining.
type TxPool struct {
	config Config
	state  AccountState

	mu    sync.RWMutex
	queue map[common.Address]*sortedMap
	all   map[common.Hash]common.Address
	count uint64

	knownSenders *fatihset.Set

	drainFeed event.Feed
}

// New builds an empty pool reading account state through state.
func New(config Config, state AccountState) *TxPool {
	return &TxPool{
		config:       config,
		state:        state,
		queue:        make(map[common.Address]*sortedMap),
		all:          make(map[common.Hash]common.Address),
		knownSenders: fatihset.New(),
	}
}

// SubscribeDrain registers ch to receive a signal every time the executable
// set becomes non-empty, the same event.Feed-based subscription pattern used
// throughout this codebase for pool/miner wiring.
func (p *TxPool) SubscribeDrain(ch chan<- struct{}) event.Subscription {
	return p.drainFeed.Subscribe(ch)
}

// Rejected is returned by Add for any of the pool's admission-control
// failures; wrapping it lets the blockchain coordinator surface a uniform
// PoolRejected error to callers without re-deriving the reason string.
type Rejected struct {
	Reason string
}

func (e *Rejected) Error() string { return "txpool: rejected: " + e.Reason }

// Add validates and enqueues tx, returning Rejected for every admission
// failure named in the pool's invariants: bad signature, insufficient
// balance for value+gasPrice*gasLimit, stale nonce, or pool at capacity.
func (p *TxPool) Add(tx *types.Transaction) (common.Address, error) {
	sender, err := types.Sender(p.config.Signer, tx)
	if err != nil {
		refusedTxCounter.Inc(1)
		return common.Address{}, &Rejected{Reason: "invalid signature"}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.count >= p.config.GlobalSlots {
		refusedTxCounter.Inc(1)
		return common.Address{}, &Rejected{Reason: "pool is full"}
	}

	nonce, err := p.state.GetNonce(sender)
	if err != nil {
		return common.Address{}, err
	}
	if tx.Nonce() < nonce {
		refusedTxCounter.Inc(1)
		return common.Address{}, &Rejected{Reason: "nonce too low"}
	}

	balance, err := p.state.GetBalance(sender)
	if err != nil {
		return common.Address{}, err
	}
	cost := new(big.Int).Add(tx.Value(), new(big.Int).Mul(tx.GasPrice(), new(big.Int).SetUint64(tx.Gas())))
	if balance.Cmp(cost) < 0 {
		refusedTxCounter.Inc(1)
		return common.Address{}, &Rejected{Reason: "insufficient balance"}
	}

	if p.queue[sender] == nil {
		p.queue[sender] = newSortedMap()
	}
	if p.queue[sender].Get(tx.Nonce()) == nil {
		p.count++
	}
	p.queue[sender].Put(tx)
	p.all[tx.Hash()] = sender
	p.knownSenders.Add(sender)
	pendingGauge.Update(int64(p.count))

	logger.Debug("transaction queued", "hash", tx.Hash(), "sender", sender, "nonce", tx.Nonce())

	if len(p.executableLocked(sender)) > 0 {
		p.drainFeed.Send(struct{}{})
	}
	return sender, nil
}

// executableLocked returns sender's queued transactions starting at its
// current on-chain nonce and continuing while nonces are contiguous.
func (p *TxPool) executableLocked(sender common.Address) []*types.Transaction {
	list := p.queue[sender]
	if list == nil {
		return nil
	}
	next, err := p.state.GetNonce(sender)
	if err != nil {
		return nil
	}
	var out []*types.Transaction
	for {
		tx := list.Get(next)
		if tx == nil {
			break
		}
		out = append(out, tx)
		next++
	}
	return out
}

// Executable returns every sender with a contiguous run of ready
// transactions, keyed by sender so the miner can interleave across senders
// while keeping each sender's nonces strictly ascending.
func (p *TxPool) Executable() map[common.Address][]*types.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[common.Address][]*types.Transaction)
	for sender := range p.queue {
		if txs := p.executableLocked(sender); len(txs) > 0 {
			out[sender] = txs
		}
	}
	return out
}

// Remove drops tx from the pool once it has been mined (successfully or
// not) — mined transactions never go back into the executable set.
func (p *TxPool) Remove(tx *types.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sender, ok := p.all[tx.Hash()]
	if !ok {
		return
	}
	delete(p.all, tx.Hash())
	if list := p.queue[sender]; list != nil {
		list.Remove(tx.Nonce())
		p.count--
		if list.Len() == 0 {
			delete(p.queue, sender)
		}
		pendingGauge.Update(int64(p.count))
	}
}

// NotifyDrain emits one drain signal if any sender has an executable run,
// called by the blockchain coordinator after a block commit advances
// account nonces.
func (p *TxPool) NotifyDrain() {
	p.mu.RLock()
	any := false
	for sender := range p.queue {
		if len(p.executableLocked(sender)) > 0 {
			any = true
			break
		}
	}
	p.mu.RUnlock()
	if any {
		p.drainFeed.Send(struct{}{})
	}
}

// Len returns the total number of transactions held across all senders.
func (p *TxPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return int(p.count)
}

// Senders returns every address the pool has ever queued a transaction for,
// backed by the fatih/set.v0 set the pack uses for this kind of address
// bookkeeping.
func (p *TxPool) Senders() []common.Address {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]common.Address, 0, p.knownSenders.Size())
	p.knownSenders.Each(func(item interface{}) bool {
		out = append(out, item.(common.Address))
		return true
	})
	return out
}
