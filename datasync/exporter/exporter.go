// Copyright 2020 The klaytn Authors
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

// Package exporter is the chain-data exporter: an optional sink that
// publishes every mined block's transactions and logs somewhere external,
// the simulator's stand-in for chaindatafetcher's block/trace-group export.
package exporter

import (
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
)

var logger = log.New("module", "exporter")

// Repository is the sink every mined block is handed to. HandleBlock must
// not block the miner's own goroutine for long; a kafka-backed repository
// publishes asynchronously via sarama's AsyncProducer and returns as soon as
// the message is enqueued.
type Repository interface {
	HandleBlock(block *types.Block, receipts types.Receipts, logs []*types.Log) error
	Close()
}

// blockGroupOutput is the JSON payload published for each block, grouping a
// block with the receipts and logs mining just produced for it — the same
// "block group" shape chaindatafetcher's kafka repository publishes.
type blockGroupOutput struct {
	Number       uint64          `json:"number"`
	Hash         string          `json:"hash"`
	Transactions types.Transactions `json:"transactions"`
	Receipts     types.Receipts  `json:"receipts"`
	Logs         []*types.Log    `json:"logs"`
}

func newBlockGroupOutput(block *types.Block, receipts types.Receipts, logs []*types.Log) *blockGroupOutput {
	return &blockGroupOutput{
		Number:       block.NumberU64(),
		Hash:         block.Hash().Hex(),
		Transactions: block.Transactions(),
		Receipts:     receipts,
		Logs:         logs,
	}
}
