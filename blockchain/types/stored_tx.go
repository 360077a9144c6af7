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

// StoredTransaction is the TransactionDB envelope: the raw transaction plus
// the block-inclusion metadata that lets a lookup answer "which block, at
// which index" without a secondary index over the block bodies.
type StoredTransaction struct {
	Tx               *types.Transaction
	BlockHash        common.Hash
	BlockNumber      uint64
	TransactionIndex uint64
}

// NewStoredTransaction pins a transaction to the block that included it.
func NewStoredTransaction(tx *types.Transaction, blockHash common.Hash, blockNumber, index uint64) *StoredTransaction {
	return &StoredTransaction{
		Tx:               tx,
		BlockHash:        blockHash,
		BlockNumber:      blockNumber,
		TransactionIndex: index,
	}
}
