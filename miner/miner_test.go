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

package miner

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chainstate "github.com/groundx/chainsim/blockchain/state"
	ourtypes "github.com/groundx/chainsim/blockchain/types"
	"github.com/groundx/chainsim/params"
	"github.com/groundx/chainsim/storage/database"
)

func newTestTrie(t *testing.T) *chainstate.Trie {
	trie, err := chainstate.NewTrie(database.NewMemoryDBManager(), common.Hash{})
	require.NoError(t, err)
	return trie
}

func fundAccount(t *testing.T, trie *chainstate.Trie, addr common.Address, balance int64) {
	acc := ourtypes.NewEOAAccount()
	acc.Balance = big.NewInt(balance)
	require.NoError(t, trie.PutAccount(addr, acc))
}

func signedValueTransfer(t *testing.T, nonce uint64, gasPrice int64, to common.Address) *types.Transaction {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	tx := types.NewTransaction(nonce, to, big.NewInt(1), 21000, big.NewInt(gasPrice), nil)
	signer := types.NewEIP155Signer(params.DefaultChainConfig().ChainID)
	signed, err := types.SignTx(tx, signer, key)
	require.NoError(t, err)
	return signed
}

func TestMiner_MineIncludesExecutableTransactions(t *testing.T) {
	trie := newTestTrie(t)
	to := common.HexToAddress("0x00000000000000000000000000000000000bbb")

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.PubkeyToAddress(key.PublicKey)
	fundAccount(t, trie, sender, 1_000_000)

	tx := types.NewTransaction(0, to, big.NewInt(1), 21000, big.NewInt(1), nil)
	signer := types.NewEIP155Signer(params.DefaultChainConfig().ChainID)
	signed, err := types.SignTx(tx, signer, key)
	require.NoError(t, err)

	m := New(params.DefaultChainConfig())
	task := &Task{
		Header:     &types.Header{GasLimit: 8_000_000},
		Executable: map[common.Address][]*types.Transaction{sender: {signed}},
	}

	var rejections []Rejection
	result, err := m.Mine(task, trie, -1, func(r Rejection) { rejections = append(rejections, r) })
	require.NoError(t, err)
	assert.Empty(t, rejections)
	assert.Len(t, result.Transactions, 1)
	assert.Equal(t, signed.Hash(), result.Transactions[0].Hash())
	assert.Equal(t, types.ReceiptStatusSuccessful, result.Receipts[0].Status)

	nonce, err := trie.GetNonce(sender)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), nonce)
}

func TestMiner_MineZeroCapIsANoOp(t *testing.T) {
	trie := newTestTrie(t)
	m := New(params.DefaultChainConfig())

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.PubkeyToAddress(key.PublicKey)
	fundAccount(t, trie, sender, 1_000_000)

	to := common.HexToAddress("0x00000000000000000000000000000000000bbb")
	signer := types.NewEIP155Signer(params.DefaultChainConfig().ChainID)
	tx := types.NewTransaction(0, to, big.NewInt(1), 21000, big.NewInt(1), nil)
	signed, err := types.SignTx(tx, signer, key)
	require.NoError(t, err)

	task := &Task{
		Header:     &types.Header{GasLimit: 8_000_000},
		Executable: map[common.Address][]*types.Transaction{sender: {signed}},
	}

	result, err := m.Mine(task, trie, 0, func(Rejection) { t.Fatal("no transaction should be rejected") })
	require.NoError(t, err)
	assert.Empty(t, result.Transactions)
	assert.Empty(t, result.Receipts)

	nonce, err := trie.GetNonce(sender)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), nonce)
}

func TestMiner_MineCapsAtMaxTransactions(t *testing.T) {
	trie := newTestTrie(t)
	m := New(params.DefaultChainConfig())
	to := common.HexToAddress("0x00000000000000000000000000000000000bbb")
	signer := types.NewEIP155Signer(params.DefaultChainConfig().ChainID)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.PubkeyToAddress(key.PublicKey)
	fundAccount(t, trie, sender, 1_000_000)

	var txs []*types.Transaction
	for nonce := uint64(0); nonce < 3; nonce++ {
		tx := types.NewTransaction(nonce, to, big.NewInt(1), 21000, big.NewInt(1), nil)
		signed, err := types.SignTx(tx, signer, key)
		require.NoError(t, err)
		txs = append(txs, signed)
	}

	task := &Task{
		Header:     &types.Header{GasLimit: 8_000_000},
		Executable: map[common.Address][]*types.Transaction{sender: txs},
	}

	result, err := m.Mine(task, trie, 1, func(Rejection) {})
	require.NoError(t, err)
	assert.Len(t, result.Transactions, 1)
	assert.Equal(t, txs[0].Hash(), result.Transactions[0].Hash())
}

func TestMiner_FailedTransactionIsRejectedAndRolledBack(t *testing.T) {
	trie := newTestTrie(t)
	m := New(params.DefaultChainConfig())
	to := common.HexToAddress("0x00000000000000000000000000000000000bbb")
	require.NoError(t, trie.SetRevert(to, true))

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.PubkeyToAddress(key.PublicKey)
	fundAccount(t, trie, sender, 1_000_000)
	rootBefore := trie.Hash()

	signer := types.NewEIP155Signer(params.DefaultChainConfig().ChainID)
	tx := types.NewTransaction(0, to, big.NewInt(1), 21000, big.NewInt(1), nil)
	signed, err := types.SignTx(tx, signer, key)
	require.NoError(t, err)

	task := &Task{
		Header:     &types.Header{GasLimit: 8_000_000},
		Executable: map[common.Address][]*types.Transaction{sender: {signed}},
	}

	var rejections []Rejection
	result, err := m.Mine(task, trie, -1, func(r Rejection) { rejections = append(rejections, r) })
	require.NoError(t, err)
	assert.Empty(t, result.Transactions)
	require.Len(t, rejections, 1)
	assert.Equal(t, signed.Hash(), rejections[0].Hash)

	nonce, err := trie.GetNonce(sender)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), nonce, "a rejected transaction must not advance the sender's nonce")
	assert.Equal(t, rootBefore, trie.Hash(), "a rejected transaction must leave the trie root unchanged")
}

func TestMiner_GasCostIsDebitedFromSenderAndCreditedToCoinbase(t *testing.T) {
	trie := newTestTrie(t)
	m := New(params.DefaultChainConfig())
	to := common.HexToAddress("0x00000000000000000000000000000000000bbb")
	coinbase := common.HexToAddress("0x00000000000000000000000000000000000ccc")

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.PubkeyToAddress(key.PublicKey)
	fundAccount(t, trie, sender, 100_000)

	signer := types.NewEIP155Signer(params.DefaultChainConfig().ChainID)
	tx := types.NewTransaction(0, to, big.NewInt(10), 21000, big.NewInt(1), nil)
	signed, err := types.SignTx(tx, signer, key)
	require.NoError(t, err)

	task := &Task{
		Header:     &types.Header{GasLimit: 8_000_000, Coinbase: coinbase},
		Executable: map[common.Address][]*types.Transaction{sender: {signed}},
	}

	result, err := m.Mine(task, trie, -1, func(Rejection) {})
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, uint64(21000), result.GasUsed)

	senderBalance, err := trie.GetBalance(sender)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100_000-10-21000), senderBalance)

	toBalance, err := trie.GetBalance(to)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10), toBalance)

	coinbaseBalance, err := trie.GetBalance(coinbase)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(21000), coinbaseBalance)
}

func TestMiner_HighestGasPriceSenderGoesFirst(t *testing.T) {
	trie := newTestTrie(t)
	m := New(params.DefaultChainConfig())
	to := common.HexToAddress("0x00000000000000000000000000000000000bbb")
	signer := types.NewEIP155Signer(params.DefaultChainConfig().ChainID)

	cheapKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	cheapSender := crypto.PubkeyToAddress(cheapKey.PublicKey)
	fundAccount(t, trie, cheapSender, 1_000_000)
	cheapTx, err := types.SignTx(types.NewTransaction(0, to, big.NewInt(1), 21000, big.NewInt(1), nil), signer, cheapKey)
	require.NoError(t, err)

	richKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	richSender := crypto.PubkeyToAddress(richKey.PublicKey)
	fundAccount(t, trie, richSender, 1_000_000)
	richTx, err := types.SignTx(types.NewTransaction(0, to, big.NewInt(1), 21000, big.NewInt(5), nil), signer, richKey)
	require.NoError(t, err)

	task := &Task{
		Header: &types.Header{GasLimit: 8_000_000},
		Executable: map[common.Address][]*types.Transaction{
			cheapSender: {cheapTx},
			richSender:  {richTx},
		},
	}

	result, err := m.Mine(task, trie, -1, func(Rejection) {})
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)
	assert.Equal(t, richTx.Hash(), result.Transactions[0].Hash())
	assert.Equal(t, cheapTx.Hash(), result.Transactions[1].Hash())
}
