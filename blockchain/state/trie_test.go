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

package state

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ourtypes "github.com/groundx/chainsim/blockchain/types"
	"github.com/groundx/chainsim/storage/database"
)

var testAddr = common.HexToAddress("0x00000000000000000000000000000000000aaa")

func newTestTrie(t *testing.T) *Trie {
	trie, err := NewTrie(database.NewMemoryDBManager(), common.Hash{})
	require.NoError(t, err)
	return trie
}

func TestTrie_OpenRootRejectsWhileCheckpointOpen(t *testing.T) {
	trie := newTestTrie(t)
	acc := ourtypes.NewEOAAccount()
	acc.Balance = big.NewInt(100)
	require.NoError(t, trie.PutAccount(testAddr, acc))

	root, err := trie.Commit()
	require.NoError(t, err)

	trie.Checkpoint()

	err = trie.OpenRoot(root)
	assert.ErrorIs(t, err, ErrCheckpointOpen)
}

func TestTrie_OpenRootSucceedsOnceCheckpointsResolve(t *testing.T) {
	trie := newTestTrie(t)
	acc := ourtypes.NewEOAAccount()
	acc.Balance = big.NewInt(100)
	require.NoError(t, trie.PutAccount(testAddr, acc))

	root, err := trie.Commit()
	require.NoError(t, err)

	cp := trie.Checkpoint()
	require.NoError(t, trie.AddBalance(testAddr, big.NewInt(1)))
	require.NoError(t, trie.RevertToSnapshot(cp))

	require.NoError(t, trie.OpenRoot(root))

	balance, err := trie.GetBalance(testAddr)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), balance)
}
