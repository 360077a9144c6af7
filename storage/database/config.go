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

import "path/filepath"

// Config configures how the chain's sub-keyspaces are mapped onto storage
// engines. Partitioned lays each DBEntryType out in its own sub-directory
// and engine instance; non-partitioned shares one engine for all of them,
// which is what NewMemoryDBManager always does.
type Config struct {
	Dir         string
	DBType      DBType
	Partitioned bool

	LevelDBCacheSize int
	LevelDBHandles   int
}

// DefaultConfig is the in-memory, single-instance configuration tests use.
func DefaultConfig() *Config {
	return &Config{DBType: MemoryDB}
}

func (c *Config) entryConfig(entry DBEntryType) *Config {
	cfg := *c
	ratio := dbConfigRatio[entry]
	cfg.LevelDBCacheSize = c.LevelDBCacheSize * ratio / 100
	cfg.LevelDBHandles = c.LevelDBHandles * ratio / 100
	cfg.Dir = filepath.Join(c.Dir, entry.dir())
	return &cfg
}

func newEngine(c *Config) (Database, error) {
	switch c.DBType {
	case LevelDB:
		return NewLevelDB(c.Dir, c.LevelDBCacheSize, c.LevelDBHandles)
	case BadgerDB:
		return NewBadgerDB(c.Dir)
	default:
		return NewMemDB(), nil
	}
}
