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
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fundedChain starts an in-memory chain with one genesis account controlled
// by a freshly generated key, returning both so a test can sign transactions
// that the pool will accept.
func fundedChain(t *testing.T) (*Blockchain, *ecdsa.PrivateKey) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.PubkeyToAddress(key.PublicKey)

	config := DefaultConfig()
	config.InitialAccounts = []InitialAccount{
		{Address: sender, Balance: big.NewInt(1_000_000_000)},
	}

	bc := New(config)
	require.NoError(t, bc.Start())
	t.Cleanup(bc.Stop)
	return bc, key
}

func signedTransfer(t *testing.T, bc *Blockchain, key *ecdsa.PrivateKey, nonce uint64) *types.Transaction {
	to := common.HexToAddress("0x00000000000000000000000000000000000bbb")
	tx := types.NewTransaction(nonce, to, big.NewInt(1), 21000, big.NewInt(1), nil)
	signed, err := types.SignTx(tx, bc.signer, key)
	require.NoError(t, err)
	return signed
}

func awaitBlockNumber(t *testing.T, bc *Blockchain, number uint64) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if bc.getLatest().NumberU64() >= number {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for block %d, latest is %d", number, bc.getLatest().NumberU64())
}

func TestBlockchain_StartCreatesGenesisAndStartsMining(t *testing.T) {
	bc := New(DefaultConfig())
	require.NoError(t, bc.Start())
	defer bc.Stop()

	genesis := bc.getLatest()
	require.NotNil(t, genesis)
	assert.Equal(t, uint64(0), genesis.NumberU64())
	assert.Equal(t, genesis.Hash(), bc.getEarliest().Hash())
	assert.True(t, bc.IsMining())
}

func TestBlockchain_QueuedTransactionIsMinedIntoOneBlock(t *testing.T) {
	bc, key := fundedChain(t)

	hash, err := bc.QueueTransaction(signedTransfer(t, bc, key, 0))
	require.NoError(t, err)

	awaitBlockNumber(t, bc, 1)
	block := bc.getLatest()
	require.Len(t, block.Transactions(), 1)
	assert.Equal(t, hash, block.Transactions()[0].Hash())
	assert.Equal(t, uint64(1), block.NumberU64())
}

func TestBlockchain_ParentHashChainsToGenesis(t *testing.T) {
	bc, key := fundedChain(t)

	_, err := bc.QueueTransaction(signedTransfer(t, bc, key, 0))
	require.NoError(t, err)
	awaitBlockNumber(t, bc, 1)

	first := bc.getLatest()
	assert.Equal(t, bc.getEarliest().Hash(), first.ParentHash())

	_, err = bc.QueueTransaction(signedTransfer(t, bc, key, 1))
	require.NoError(t, err)
	awaitBlockNumber(t, bc, 2)

	second := bc.getLatest()
	assert.Equal(t, first.Hash(), second.ParentHash())
}

func TestBlockchain_StateRootReflectsAppliedTransfer(t *testing.T) {
	bc, key := fundedChain(t)
	sender := crypto.PubkeyToAddress(key.PublicKey)

	_, err := bc.QueueTransaction(signedTransfer(t, bc, key, 0))
	require.NoError(t, err)
	awaitBlockNumber(t, bc, 1)

	block := bc.getLatest()
	assert.Equal(t, block.Root(), bc.trie.Hash())

	nonce, err := bc.trie.GetNonce(sender)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), nonce)
}

func TestBlockchain_LegacyInstamineBlocksUntilPersisted(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.PubkeyToAddress(key.PublicKey)

	config := DefaultConfig()
	config.LegacyInstamine = true
	config.InitialAccounts = []InitialAccount{{Address: sender, Balance: big.NewInt(1_000_000_000)}}

	bc := New(config)
	require.NoError(t, bc.Start())
	defer bc.Stop()

	_, err = bc.QueueTransaction(signedTransfer(t, bc, key, 0))
	require.NoError(t, err)

	// QueueTransaction already waited for completion: the block must be
	// visible with no further polling.
	assert.Equal(t, uint64(1), bc.getLatest().NumberU64())
}

func TestBlockchain_PausePreventsMiningUntilResumed(t *testing.T) {
	bc, key := fundedChain(t)
	bc.Pause()

	_, err := bc.QueueTransaction(signedTransfer(t, bc, key, 0))
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, uint64(0), bc.getLatest().NumberU64(), "mining must not proceed while paused")

	bc.Resume()
	awaitBlockNumber(t, bc, 1)
}

func TestBlockchain_SnapshotRevertRestoresStateAndDeletesBlocks(t *testing.T) {
	bc, key := fundedChain(t)
	sender := crypto.PubkeyToAddress(key.PublicKey)

	_, err := bc.QueueTransaction(signedTransfer(t, bc, key, 0))
	require.NoError(t, err)
	awaitBlockNumber(t, bc, 1)

	snapID := bc.Snapshot()
	snapshotBlock := bc.getLatest()
	snapshotRoot := bc.trie.Hash()

	_, err = bc.QueueTransaction(signedTransfer(t, bc, key, 1))
	require.NoError(t, err)
	awaitBlockNumber(t, bc, 2)
	minedAwayBlock := bc.getLatest()
	require.NotEqual(t, snapshotBlock.Hash(), minedAwayBlock.Hash())

	ok, err := bc.Revert(snapID)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, snapshotBlock.Hash(), bc.getLatest().Hash())
	assert.Equal(t, snapshotRoot, bc.trie.Hash())

	nonce, err := bc.trie.GetNonce(sender)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), nonce, "state must roll back to its post-snapshot value")

	gone, err := bc.blocks.GetBlockByHash(minedAwayBlock.Hash())
	require.NoError(t, err)
	assert.Nil(t, gone, "a reverted block must be garbage collected from storage")
}

func TestBlockchain_RevertRestoresTimeAdjustment(t *testing.T) {
	bc, _ := fundedChain(t)

	bc.SetTime(1_000_000_000)
	snapID := bc.Snapshot()
	restoreAdj := bc.timeAdjustment

	bc.SetTime(2_000_000_000)
	require.NotEqual(t, restoreAdj, bc.timeAdjustment)

	ok, err := bc.Revert(snapID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, restoreAdj, bc.timeAdjustment)
}

func TestBlockchain_RevertFailsWhileCheckpointOpen(t *testing.T) {
	bc, key := fundedChain(t)

	_, err := bc.QueueTransaction(signedTransfer(t, bc, key, 0))
	require.NoError(t, err)
	awaitBlockNumber(t, bc, 1)

	snapID := bc.Snapshot()

	_, err = bc.QueueTransaction(signedTransfer(t, bc, key, 1))
	require.NoError(t, err)
	awaitBlockNumber(t, bc, 2)

	// Simulate a mid-transaction checkpoint still outstanding, the caller
	// contract violation Revert must refuse rather than silently discard.
	bc.trie.Checkpoint()

	ok, err := bc.Revert(snapID)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrRaceConditionOnSetStateRoot)
}

func TestBlockchain_RevertUnknownSnapshotReturnsFalse(t *testing.T) {
	bc, _ := fundedChain(t)

	ok, err := bc.Revert(99)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBlockchain_RevertInvalidIdIsAnError(t *testing.T) {
	bc, _ := fundedChain(t)

	_, err := bc.Revert(0)
	require.Error(t, err)
	var invalid *InvalidSnapshotId
	require.ErrorAs(t, err, &invalid)
}

func TestBlockchain_StopIsIdempotent(t *testing.T) {
	bc := New(DefaultConfig())
	require.NoError(t, bc.Start())

	bc.Stop()
	assert.NotPanics(t, bc.Stop)
}

func TestBlockchain_CurrentTimeIsMonotonicAbsentAdjustment(t *testing.T) {
	bc := New(DefaultConfig())
	require.NoError(t, bc.Start())
	defer bc.Stop()

	first := bc.currentTime()
	time.Sleep(5 * time.Millisecond)
	second := bc.currentTime()
	assert.GreaterOrEqual(t, second, first)
}

func TestBlockchain_IncreaseTimeIsReflectedInNextBlock(t *testing.T) {
	bc, key := fundedChain(t)

	before := bc.currentTime()
	bc.IncreaseTime(1000)

	_, err := bc.QueueTransaction(signedTransfer(t, bc, key, 0))
	require.NoError(t, err)
	awaitBlockNumber(t, bc, 1)

	assert.GreaterOrEqual(t, bc.getLatest().Time(), uint64(before+1000))
}
