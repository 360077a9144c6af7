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

package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDBManager_PutGetDelete(t *testing.T) {
	dbm := NewMemoryDBManager()
	defer dbm.Close()

	key, value := []byte("k1"), []byte("v1")
	has, err := dbm.Has(BlockDB, key)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, dbm.Put(BlockDB, key, value))

	has, err = dbm.Has(BlockDB, key)
	require.NoError(t, err)
	assert.True(t, has)

	got, err := dbm.Get(BlockDB, key)
	require.NoError(t, err)
	assert.Equal(t, value, got)

	require.NoError(t, dbm.Delete(BlockDB, key))
	_, err = dbm.Get(BlockDB, key)
	assert.Equal(t, ErrNotFound, err)
}

// Keys are prefixed per DBEntryType, so two keyspaces can use the identical
// raw key without colliding even when they share one underlying engine.
func TestMemoryDBManager_KeyspacesDoNotCollide(t *testing.T) {
	dbm := NewMemoryDBManager()
	defer dbm.Close()

	key := []byte("shared-key")
	require.NoError(t, dbm.Put(BlockDB, key, []byte("block-value")))
	require.NoError(t, dbm.Put(ReceiptDB, key, []byte("receipt-value")))

	blockVal, err := dbm.Get(BlockDB, key)
	require.NoError(t, err)
	receiptVal, err := dbm.Get(ReceiptDB, key)
	require.NoError(t, err)

	assert.Equal(t, []byte("block-value"), blockVal)
	assert.Equal(t, []byte("receipt-value"), receiptVal)
}

func TestChainBatch_AtomicAcrossKeyspaces(t *testing.T) {
	dbm := NewMemoryDBManager()
	defer dbm.Close()

	batch := dbm.NewBatch()
	require.NoError(t, batch.Put(BlockDB, []byte("b"), []byte("block")))
	require.NoError(t, batch.Put(TransactionDB, []byte("t"), []byte("tx")))
	require.NoError(t, batch.Put(ReceiptDB, []byte("r"), []byte("receipt")))

	// Nothing visible until Write.
	has, _ := dbm.Has(BlockDB, []byte("b"))
	assert.False(t, has)

	require.NoError(t, batch.Write())

	for _, tc := range []struct {
		entry DBEntryType
		key   string
		want  string
	}{
		{BlockDB, "b", "block"},
		{TransactionDB, "t", "tx"},
		{ReceiptDB, "r", "receipt"},
	} {
		v, err := dbm.Get(tc.entry, []byte(tc.key))
		require.NoError(t, err)
		assert.Equal(t, tc.want, string(v))
	}
}

func TestDBManager_Partitioned(t *testing.T) {
	cfg := &Config{DBType: MemoryDB, Partitioned: true}
	dbm, err := NewDBManager(cfg)
	require.NoError(t, err)
	defer dbm.Close()

	require.NoError(t, dbm.Put(BlockDB, []byte("k"), []byte("v")))
	got, err := dbm.Get(BlockDB, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))

	// Partitioned keyspaces use distinct engines.
	assert.NotSame(t, dbm.engine(BlockDB), dbm.engine(ReceiptDB))
}

func TestMemDB_Iterator(t *testing.T) {
	m := NewMemDB()
	require.NoError(t, m.Put([]byte("a1"), []byte("1")))
	require.NoError(t, m.Put([]byte("a2"), []byte("2")))
	require.NoError(t, m.Put([]byte("b1"), []byte("3")))

	it := m.NewIterator([]byte("a"))
	defer it.Release()

	var got []string
	for it.Next() {
		got = append(got, string(it.Key()))
	}
	assert.Equal(t, []string{"a1", "a2"}, got)
}
