// Copyright 2018 The go-klaytn Authors
// This file is part of the go-klaytn library.
//
// The go-klaytn library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-klaytn library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-klaytn library. If not, see <http://www.gnu.org/licenses/>.

// Package params carries the chain-wide constants the rest of the simulator
// is configured against: the gas schedule the reference EVM charges against,
// and the hardfork identifiers accepted (but not deeply interpreted) from
// configuration.
package params

import "math/big"

// Hardfork names accepted in configuration. The reference EVM only uses this
// to pick an intrinsic-gas table; it never changes opcode availability.
const (
	HardforkFrontier  = "frontier"
	HardforkHomestead = "homestead"
	HardforkIstanbul  = "istanbul"
	HardforkLondon    = "london"
)

// Gas schedule constants, named and valued the way go-ethereum's params
// package carries them. The reference EVM (blockchain/vm) is the only
// consumer; a real EVM implementation would take these from go-ethereum's
// own params.* constants directly.
const (
	TxGas                     uint64 = 21000 // Per-transaction gas, value transfer only, no data.
	TxGasContractCreation     uint64 = 53000 // Per-transaction gas, contract creation.
	TxDataZeroGas             uint64 = 4     // Per zero data byte.
	TxDataNonZeroGasFrontier  uint64 = 68    // Per non-zero data byte, pre-Istanbul.
	TxDataNonZeroGasEIP2028   uint64 = 16    // Per non-zero data byte, Istanbul+.
	MaxCodeSize                      = 24576 // Maximum contract bytecode size, unless AllowUnlimitedContractSize.
)

// ChainConfig is the subset of chain-identity configuration the EVM
// collaborator and the transaction signer need. It is deliberately small:
// this module does not implement fork-scheduling by block number because
// there is never more than one chain to schedule forks across.
type ChainConfig struct {
	ChainID  *big.Int
	Hardfork string
}

// DefaultChainConfig mirrors a vanilla, post-Istanbul private network.
func DefaultChainConfig() *ChainConfig {
	return &ChainConfig{
		ChainID:  big.NewInt(1337),
		Hardfork: HardforkIstanbul,
	}
}

// IntrinsicGasDataCost returns the per-byte data cost for this hardfork.
func (c *ChainConfig) IntrinsicGasDataCost(nonZero bool) uint64 {
	if !nonZero {
		return TxDataZeroGas
	}
	switch c.Hardfork {
	case HardforkFrontier, HardforkHomestead:
		return TxDataNonZeroGasFrontier
	default:
		return TxDataNonZeroGasEIP2028
	}
}
