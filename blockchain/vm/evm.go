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

// Package vm is the chain's execution engine. Real contract bytecode
// execution is out of scope (there is no interpreter, no opcode loop, no gas
// table); what remains is the part of an EVM every transaction actually goes
// through regardless of a destination's code: intrinsic gas accounting and
// value transfer, with a narrow hook a test harness can use to force a
// transaction to revert deterministically.
package vm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/groundx/chainsim/params"
)

// ErrInsufficientBalance is returned when the sender's balance cannot cover
// gas*gasPrice + value.
var ErrInsufficientBalance = errors.New("vm: insufficient balance for transfer")

// ErrExecutionReverted is returned by Call when the destination address
// carries the revert marker CodeHash set by state.Trie.SetRevert.
var ErrExecutionReverted = errors.New("vm: execution reverted")

// StateDB is the subset of the checkpointable trie the EVM needs. It is
// satisfied by *state.Trie; kept as an interface here so tests can swap in a
// stub without touching the trie package.
type StateDB interface {
	GetBalance(addr common.Address) (*big.Int, error)
	AddBalance(addr common.Address, amount *big.Int) error
	SubBalance(addr common.Address, amount *big.Int) error
	GetNonce(addr common.Address) (uint64, error)
	SetNonce(addr common.Address, nonce uint64) error
	WillRevert(addr common.Address) (bool, error)
}

// EVM executes one transaction's worth of value transfer against a StateDB.
// It is deliberately not the go-ethereum vm.EVM: there is no bytecode, no
// call depth, no opcode interpreter loop, because this simulator's contracts
// are never more than a fixed revert/succeed marker on the recipient.
type EVM struct {
	state  StateDB
	config *params.ChainConfig
}

// NewEVM binds state as the account view for every Call this EVM runs.
func NewEVM(state StateDB, config *params.ChainConfig) *EVM {
	return &EVM{state: state, config: config}
}

// Call validates and applies a value transfer from sender to recipient,
// returning the gas actually consumed. The only way it can revert is the
// destination carrying the test-harness revert marker; any state mutation
// made up to that point is the caller's responsibility to undo via its own
// checkpoint, the same division of labor go-ethereum's EVM/StateDB split
// uses. gasPrice*gasUsed is debited from sender and credited to coinbase,
// the same fee-to-miner flow go-ethereum's StateTransition.refundGas/
// state.AddBalance(coinbase) pair implements.
func (e *EVM) Call(sender, recipient common.Address, value *big.Int, gasLimit uint64, data []byte, gasPrice *big.Int, coinbase common.Address) (gasUsed uint64, err error) {
	intrinsic := IntrinsicGas(data, recipient == (common.Address{}), e.config)
	if gasLimit < intrinsic {
		return 0, errors.New("vm: intrinsic gas exceeds gas limit")
	}

	reverts, err := e.state.WillRevert(recipient)
	if err != nil {
		return 0, err
	}
	if reverts {
		return intrinsic, ErrExecutionReverted
	}

	fee := new(big.Int).Mul(new(big.Int).SetUint64(intrinsic), gasPrice)
	cost := new(big.Int).Add(value, fee)

	balance, err := e.state.GetBalance(sender)
	if err != nil {
		return 0, err
	}
	if balance.Cmp(cost) < 0 {
		return intrinsic, ErrInsufficientBalance
	}

	if err := e.state.SubBalance(sender, cost); err != nil {
		return intrinsic, err
	}
	if err := e.state.AddBalance(recipient, value); err != nil {
		return intrinsic, err
	}
	if err := e.state.AddBalance(coinbase, fee); err != nil {
		return intrinsic, err
	}
	return intrinsic, nil
}

// IntrinsicGas is the fixed and data-dependent base cost of a transaction,
// owed regardless of whether Call's transfer succeeds. Zero and non-zero
// data bytes are priced separately, the way go-ethereum's core.IntrinsicGas
// does.
func IntrinsicGas(data []byte, contractCreation bool, config *params.ChainConfig) uint64 {
	gas := params.TxGas
	if contractCreation {
		gas = params.TxGasContractCreation
	}
	var zero, nonZero uint64
	for _, b := range data {
		if b == 0 {
			zero++
		} else {
			nonZero++
		}
	}
	gas += zero * config.IntrinsicGasDataCost(false)
	gas += nonZero * config.IntrinsicGasDataCost(true)
	return gas
}
