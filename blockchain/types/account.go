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
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Account is the state trie's leaf value, RLP-encoded at the key
// crypto.Keccak256(address). Field order matches go-ethereum's state.Account
// so that Root and CodeHash keep their conventional meaning; this simulator
// holds no contract code, and the only non-empty CodeHash it stores is the
// revert marker written by state.Trie.SetRevert.
type Account struct {
	Nonce    uint64
	Balance  *big.Int
	Root     common.Hash
	CodeHash []byte
}

// NewEOAAccount returns the zero-value account an address starts with: no
// nonce, no balance, empty storage root, nil code hash.
func NewEOAAccount() *Account {
	return &Account{
		Balance:  new(big.Int),
		Root:     common.Hash{},
		CodeHash: nil,
	}
}

// Empty reports whether the account is indistinguishable from one that was
// never created. The trie does not consult it: every account written is
// stored, zero balance or not.
func (a *Account) Empty() bool {
	return a.Nonce == 0 && (a.Balance == nil || a.Balance.Sign() == 0) && len(a.CodeHash) == 0
}

// Copy returns a deep copy safe to mutate independently of the receiver,
// used whenever the trie wrapper hands an account out of a checkpointed view.
func (a *Account) Copy() *Account {
	cp := &Account{
		Nonce: a.Nonce,
		Root:  a.Root,
	}
	if a.Balance != nil {
		cp.Balance = new(big.Int).Set(a.Balance)
	} else {
		cp.Balance = new(big.Int)
	}
	if a.CodeHash != nil {
		cp.CodeHash = append([]byte(nil), a.CodeHash...)
	}
	return cp
}
