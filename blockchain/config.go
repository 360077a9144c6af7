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
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/groundx/chainsim/datasync/exporter"
	"github.com/groundx/chainsim/storage/database"
)

// InitialAccount seeds one genesis account; committed by Start before the
// genesis block is created.
type InitialAccount struct {
	Address common.Address
	Balance *big.Int
	Nonce   uint64
}

// ExporterConfig selects and configures the optional chain-data exporter.
// A non-nil Kafka config takes precedence over LogOnly; with neither set, no
// exporter is attached and mined blocks are not reported anywhere.
type ExporterConfig struct {
	Kafka   *exporter.KafkaConfig
	LogOnly bool
}

// Config is everything Start needs to bring up a chain: where its data
// lives, what accounts it begins with, how it prices gas and mines, and how
// it reports what it mines. Loadable from a TOML file via naoina/toml or
// from CLI flags via urfave/cli, mirroring the flag-to-config wiring a node's
// own cmd/utils package does.
type Config struct {
	DBType database.DBType
	DBPath string

	InitialAccounts []InitialAccount

	Hardfork                   string
	AllowUnlimitedContractSize bool
	GasLimit                   uint64

	Time      *int64
	BlockTime int64

	Coinbase common.Address
	ChainID  *big.Int

	LegacyInstamine       bool
	VMErrorsOnRPCResponse bool

	Exporter ExporterConfig
}

// DefaultConfig is the in-memory, instant-mining configuration used by tests
// and by `chainsim` when no config file is supplied.
func DefaultConfig() *Config {
	return &Config{
		DBType:    database.MemoryDB,
		GasLimit:  8_000_000,
		ChainID:   big.NewInt(1337),
		Hardfork:  "istanbul",
		BlockTime: 0,
		Exporter:  ExporterConfig{LogOnly: true},
	}
}
