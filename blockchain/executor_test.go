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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dummyLedger stands in for *Blockchain in Executor tests: a fixture with an
// exported method that has a predictable side effect and an unexported one.
type dummyLedger struct {
	calls int
}

func (d *dummyLedger) Double(n int) int {
	d.calls++
	return n * 2
}

func (d *dummyLedger) unexportedMethod() int { return 1 }

func TestExecutor_CallsWhitelistedMethod(t *testing.T) {
	ledger := &dummyLedger{}
	x := NewExecutor(ledger, []string{"Double"})

	out, err := x.Call("Double", 21)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 42, out[0].Interface())
	assert.Equal(t, 1, ledger.calls)
}

func TestExecutor_RejectsMethodNotInWhitelist(t *testing.T) {
	ledger := &dummyLedger{}
	x := NewExecutor(ledger, []string{"SomethingElse"})

	_, err := x.Call("Double", 1)
	require.Error(t, err)
	var invalid *InvalidMethod
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "Double", invalid.Name)
}

func TestExecutor_RejectsUnexportedMethod(t *testing.T) {
	ledger := &dummyLedger{}
	x := NewExecutor(ledger, []string{"unexportedMethod"})

	_, err := x.Call("unexportedMethod")
	require.Error(t, err)
	var invalid *InvalidMethod
	require.ErrorAs(t, err, &invalid)
}

func TestExecutor_RejectsEmptyAndConstructorNames(t *testing.T) {
	ledger := &dummyLedger{}
	x := NewExecutor(ledger, []string{"", "constructor"})

	_, err := x.Call("")
	require.Error(t, err)

	_, err = x.Call("constructor")
	require.Error(t, err)
}

func TestExecutor_RejectsUnresolvableMethod(t *testing.T) {
	ledger := &dummyLedger{}
	x := NewExecutor(ledger, []string{"NoSuchMethod"})

	_, err := x.Call("NoSuchMethod")
	require.Error(t, err)
	var invalid *InvalidMethod
	require.ErrorAs(t, err, &invalid)
}
