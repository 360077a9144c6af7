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

package txpool

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

// stubState is a fixed-nonce, fixed-balance AccountState for every address,
// simple enough that tests only need to override what they care about.
type stubState struct {
	nonce   uint64
	balance *big.Int
}

func (s *stubState) GetNonce(common.Address) (uint64, error)     { return s.nonce, nil }
func (s *stubState) GetBalance(common.Address) (*big.Int, error) { return s.balance, nil }

func testKey(t *testing.T) *ecdsa.PrivateKey {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key
}

func signedTx(t *testing.T, key *ecdsa.PrivateKey, signer types.Signer, nonce uint64, gasPrice int64) *types.Transaction {
	to := common.HexToAddress("0x000000000000000000000000000000000000aa")
	tx := types.NewTransaction(nonce, to, big.NewInt(1), 21000, big.NewInt(gasPrice), nil)
	signed, err := types.SignTx(tx, signer, key)
	require.NoError(t, err)
	return signed
}

func TestTxPool_AddBecomesExecutable(t *testing.T) {
	signer := types.NewEIP155Signer(big.NewInt(1337))
	key := testKey(t)
	state := &stubState{nonce: 0, balance: big.NewInt(1_000_000_000)}
	pool := New(DefaultConfig, state)
	pool.config.Signer = signer

	tx := signedTx(t, key, signer, 0, 1)
	sender, err := pool.Add(tx)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), sender)

	executable := pool.Executable()
	require.Contains(t, executable, sender)
	assert.Equal(t, []*types.Transaction{tx}, executable[sender])
	assert.Equal(t, 1, pool.Len())
}

func TestTxPool_RejectsNonceTooLow(t *testing.T) {
	signer := types.NewEIP155Signer(big.NewInt(1337))
	key := testKey(t)
	state := &stubState{nonce: 5, balance: big.NewInt(1_000_000_000)}
	pool := New(Config{Signer: signer, GlobalSlots: DefaultConfig.GlobalSlots}, state)

	tx := signedTx(t, key, signer, 2, 1)
	_, err := pool.Add(tx)
	require.Error(t, err)
	var rejected *Rejected
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "nonce too low", rejected.Reason)
}

func TestTxPool_RejectsInsufficientBalance(t *testing.T) {
	signer := types.NewEIP155Signer(big.NewInt(1337))
	key := testKey(t)
	state := &stubState{nonce: 0, balance: big.NewInt(100)}
	pool := New(Config{Signer: signer, GlobalSlots: DefaultConfig.GlobalSlots}, state)

	tx := signedTx(t, key, signer, 0, 1)
	_, err := pool.Add(tx)
	require.Error(t, err)
	var rejected *Rejected
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "insufficient balance", rejected.Reason)
}

func TestTxPool_DrainSignalsOnExecutable(t *testing.T) {
	signer := types.NewEIP155Signer(big.NewInt(1337))
	key := testKey(t)
	state := &stubState{nonce: 0, balance: big.NewInt(1_000_000_000)}
	pool := New(Config{Signer: signer, GlobalSlots: DefaultConfig.GlobalSlots}, state)

	drainCh := make(chan struct{}, 1)
	sub := pool.SubscribeDrain(drainCh)
	defer sub.Unsubscribe()

	_, err := pool.Add(signedTx(t, key, signer, 0, 1))
	require.NoError(t, err)

	select {
	case <-drainCh:
	case <-time.After(time.Second):
		t.Fatal("expected a drain signal after an executable transaction was added")
	}
}

func TestTxPool_RemoveDropsMinedTransaction(t *testing.T) {
	signer := types.NewEIP155Signer(big.NewInt(1337))
	key := testKey(t)
	state := &stubState{nonce: 0, balance: big.NewInt(1_000_000_000)}
	pool := New(Config{Signer: signer, GlobalSlots: DefaultConfig.GlobalSlots}, state)

	tx := signedTx(t, key, signer, 0, 1)
	_, err := pool.Add(tx)
	require.NoError(t, err)

	pool.Remove(tx)
	assert.Equal(t, 0, pool.Len())
	assert.Empty(t, pool.Executable())
}

func TestTxPool_NonContiguousNonceIsNotExecutable(t *testing.T) {
	signer := types.NewEIP155Signer(big.NewInt(1337))
	key := testKey(t)
	state := &stubState{nonce: 0, balance: big.NewInt(1_000_000_000)}
	pool := New(Config{Signer: signer, GlobalSlots: DefaultConfig.GlobalSlots}, state)

	_, err := pool.Add(signedTx(t, key, signer, 1, 1))
	require.NoError(t, err)

	assert.Empty(t, pool.Executable())
}
