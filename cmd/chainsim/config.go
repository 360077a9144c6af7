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

package main

import (
	"bufio"
	"math/big"
	"os"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/naoina/toml"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/groundx/chainsim/blockchain"
	"github.com/groundx/chainsim/datasync/exporter"
	"github.com/groundx/chainsim/storage/database"
)

// tomlSettings matches the TOML keys to the same names as the Go struct
// fields, rather than toml's default lower-cased mangling.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
}

// fileConfig mirrors blockchain.Config's TOML-friendly shape: plain strings
// for addresses so naoina/toml never has to know about common.Address.
type fileConfig struct {
	DBType          string
	DataDir         string
	InitialAccounts []struct {
		Address string
		Balance string
		Nonce   uint64
	}
	Hardfork                   string
	AllowUnlimitedContractSize bool
	GasLimit                   uint64
	Time                       *int64
	BlockTime                  int64
	Coinbase                   string
	ChainID                    int64
	LegacyInstamine            bool
	VMErrorsOnRPCResponse      bool
	KafkaBrokers               string
}

// buildConfig starts from blockchain.DefaultConfig, layers in a TOML file if
// --config names one, then layers in explicit CLI flags — file-then-flags
// precedence, the same order a node's own cmd/utils flag wiring applies.
func buildConfig(ctx *cli.Context) (*blockchain.Config, error) {
	config := blockchain.DefaultConfig()

	if path := ctx.String(configFileFlag.Name); path != "" {
		if err := applyFile(config, path); err != nil {
			return nil, errors.Wrap(err, "chainsim: load config file")
		}
	}

	applyFlags(config, ctx)
	return config, nil
}

func applyFile(config *blockchain.Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var fc fileConfig
	if err := tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&fc); err != nil {
		return err
	}

	if fc.DBType != "" {
		config.DBType = parseDBType(fc.DBType)
	}
	if fc.DataDir != "" {
		config.DBPath = fc.DataDir
	}
	if fc.Hardfork != "" {
		config.Hardfork = fc.Hardfork
	}
	config.AllowUnlimitedContractSize = fc.AllowUnlimitedContractSize
	if fc.GasLimit != 0 {
		config.GasLimit = fc.GasLimit
	}
	config.Time = fc.Time
	config.BlockTime = fc.BlockTime
	if fc.Coinbase != "" {
		config.Coinbase = common.HexToAddress(fc.Coinbase)
	}
	if fc.ChainID != 0 {
		config.ChainID = big.NewInt(fc.ChainID)
	}
	config.LegacyInstamine = fc.LegacyInstamine
	config.VMErrorsOnRPCResponse = fc.VMErrorsOnRPCResponse
	if fc.KafkaBrokers != "" {
		config.Exporter = blockchain.ExporterConfig{Kafka: kafkaConfig(fc.KafkaBrokers)}
	}

	for _, a := range fc.InitialAccounts {
		balance, ok := new(big.Int).SetString(a.Balance, 10)
		if !ok {
			return errors.Errorf("chainsim: invalid initial account balance %q", a.Balance)
		}
		config.InitialAccounts = append(config.InitialAccounts, blockchain.InitialAccount{
			Address: common.HexToAddress(a.Address),
			Balance: balance,
			Nonce:   a.Nonce,
		})
	}
	return nil
}

func applyFlags(config *blockchain.Config, ctx *cli.Context) {
	if ctx.IsSet(dbTypeFlag.Name) {
		config.DBType = parseDBType(ctx.String(dbTypeFlag.Name))
	}
	if ctx.IsSet(dataDirFlag.Name) {
		config.DBPath = ctx.String(dataDirFlag.Name)
	}
	if ctx.IsSet(blockTimeFlag.Name) {
		config.BlockTime = ctx.Int64(blockTimeFlag.Name)
	}
	if ctx.IsSet(gasLimitFlag.Name) {
		config.GasLimit = ctx.Uint64(gasLimitFlag.Name)
	}
	if ctx.IsSet(coinbaseFlag.Name) {
		config.Coinbase = common.HexToAddress(ctx.String(coinbaseFlag.Name))
	}
	if ctx.IsSet(chainIDFlag.Name) {
		config.ChainID = big.NewInt(ctx.Int64(chainIDFlag.Name))
	}
	if ctx.IsSet(legacyInstamineFlag.Name) {
		config.LegacyInstamine = ctx.Bool(legacyInstamineFlag.Name)
	}
	if ctx.IsSet(kafkaBrokersFlag.Name) {
		config.Exporter = blockchain.ExporterConfig{Kafka: kafkaConfig(ctx.String(kafkaBrokersFlag.Name))}
	}
}

func kafkaConfig(brokers string) *exporter.KafkaConfig {
	kc := exporter.DefaultKafkaConfig()
	kc.Brokers = strings.Split(brokers, ",")
	return kc
}

func parseDBType(s string) database.DBType {
	switch strings.ToLower(s) {
	case "leveldb":
		return database.LevelDB
	case "badger":
		return database.BadgerDB
	default:
		return database.MemoryDB
	}
}
