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
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// PoolRejected carries the text of the pool's rejection error, the error
// queueTransaction surfaces to its caller.
type PoolRejected struct {
	Reason string
}

func (e *PoolRejected) Error() string { return "blockchain: transaction rejected: " + e.Reason }

// VmError wraps a per-transaction EVM failure encountered during mining or
// simulation. During mining it never aborts the block; during simulation it
// is returned as the call result's error. Hash is only populated when the
// chain is configured with VMErrorsOnRPCResponse.
type VmError struct {
	Cause error
	Hash  common.Hash
}

func (e *VmError) Error() string {
	if e.Hash != (common.Hash{}) {
		return "blockchain: vm error for " + e.Hash.Hex() + ": " + e.Cause.Error()
	}
	return "blockchain: vm error: " + e.Cause.Error()
}
func (e *VmError) Unwrap() error { return e.Cause }

// InvalidSnapshotId is returned when Revert is asked to act on a
// non-positive ordinal.
type InvalidSnapshotId struct {
	ID int
}

func (e *InvalidSnapshotId) Error() string {
	return errors.Errorf("blockchain: invalid snapshot id %d", e.ID).Error()
}

// RevertOutOfRange marks a snapshot ordinal that resolves below zero or to
// an already-discarded stack slot. Revert itself never returns this as an
// error — it translates the condition into (false, nil) — but the type
// documents the condition the caller-facing bool collapses.
type RevertOutOfRange struct {
	ID int
}

func (e *RevertOutOfRange) Error() string {
	return errors.Errorf("blockchain: revert ordinal %d out of range", e.ID).Error()
}

// InvalidMethod is returned by the Executor when the requested method name
// fails any part of the whitelist contract.
type InvalidMethod struct {
	Name string
}

func (e *InvalidMethod) Error() string { return "Invalid or unsupported method: " + e.Name }

// DbError wraps an underlying storage failure with the keyspace it occurred
// in, for operators diagnosing a commit that failed partway through.
type DbError struct {
	Keyspace string
	Cause    error
}

func (e *DbError) Error() string {
	return errors.Wrapf(e.Cause, "blockchain: database error in %s", e.Keyspace).Error()
}
func (e *DbError) Unwrap() error { return e.Cause }

// ErrRaceConditionOnSetStateRoot is returned when Revert is attempted while the
// state trie has an open, uncommitted checkpoint — a caller contract
// violation (Checkpoint without a matching Commit/RevertToSnapshot), not
// recovered automatically.
var ErrRaceConditionOnSetStateRoot = errors.New("blockchain: setStateRoot raced an open checkpoint")
