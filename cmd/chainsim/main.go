// Copyright 2018 The klaytn Authors
// Copyright 2016 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.
//
// This file is derived from cmd/kcn/main.go (2018/06/04). Modified and
// improved for the klaytn development: the full node/console/metrics
// bring-up is gone, since there is no network and no JS console in this
// simulator; what is kept is the cli.App/flags-to-config wiring and the
// signal-driven shutdown.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli"

	"github.com/groundx/chainsim/blockchain"
)

var logger = log.New("module", "cmd/chainsim")

var (
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	dbTypeFlag = cli.StringFlag{
		Name:  "dbtype",
		Usage: "Database type to use (memory, leveldb, badger)",
		Value: "memory",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for persistent databases",
	}
	blockTimeFlag = cli.Int64Flag{
		Name:  "blocktime",
		Usage: "Seconds between blocks; 0 mines instantly on every queued transaction",
	}
	gasLimitFlag = cli.Uint64Flag{
		Name:  "gaslimit",
		Usage: "Block gas limit",
		Value: 8_000_000,
	}
	coinbaseFlag = cli.StringFlag{
		Name:  "coinbase",
		Usage: "Hex address credited as the block's coinbase",
	}
	chainIDFlag = cli.Int64Flag{
		Name:  "chainid",
		Usage: "EVM chain id",
		Value: 1337,
	}
	legacyInstamineFlag = cli.BoolFlag{
		Name:  "legacy-instamine",
		Usage: "Defer block broadcast until each queued transaction's completion event fires",
	}
	kafkaBrokersFlag = cli.StringFlag{
		Name:  "kafka-brokers",
		Usage: "Comma-separated Kafka broker list; enables the Kafka chain-data exporter",
	}
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "chainsim"
	app.Usage = "deterministic, in-process Ethereum-compatible blockchain simulator"
	app.Flags = []cli.Flag{
		configFileFlag,
		dbTypeFlag,
		dataDirFlag,
		blockTimeFlag,
		gasLimitFlag,
		coinbaseFlag,
		chainIDFlag,
		legacyInstamineFlag,
		kafkaBrokersFlag,
	}
	app.Action = run
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	config, err := buildConfig(ctx)
	if err != nil {
		return err
	}

	chain := blockchain.New(config)
	if err := chain.Start(); err != nil {
		return err
	}
	logger.Info("chain started", "dbtype", config.DBType, "blocktime", config.BlockTime)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	chain.Stop()
	return nil
}
