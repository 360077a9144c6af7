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

package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// BlockLogs bundles every log emitted while processing one block, keyed by
// block number in the BlockLogsDB keyspace. It is stored apart from the
// receipts themselves so that subscribers to the blockLogs event don't have
// to reconstitute logs out of the receipt trie entry by entry.
type BlockLogs struct {
	BlockHash   common.Hash
	BlockNumber uint64
	Logs        []*types.Log
}

// NewBlockLogs flattens the per-transaction receipts of a block into one
// ordered slice, renumbering each log's Index across the whole block the way
// go-ethereum's receipt processing does.
func NewBlockLogs(blockHash common.Hash, blockNumber uint64, receipts []*types.Receipt) *BlockLogs {
	bl := &BlockLogs{BlockHash: blockHash, BlockNumber: blockNumber}
	logIndex := uint(0)
	for _, r := range receipts {
		for _, l := range r.Logs {
			l.BlockHash = blockHash
			l.BlockNumber = blockNumber
			l.Index = logIndex
			bl.Logs = append(bl.Logs, l)
			logIndex++
		}
	}
	return bl
}
