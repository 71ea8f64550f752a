package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Rhovian/spl-p2p/config"
	"github.com/Rhovian/spl-p2p/core"
	"github.com/Rhovian/spl-p2p/core/types"
	"github.com/Rhovian/spl-p2p/native/swap"
	"github.com/Rhovian/spl-p2p/observability/logging"
	"github.com/Rhovian/spl-p2p/storage"
)

// swapd replays wire-encoded instructions against a local ledger. It is a
// harness for the order state machine, not a node: no listener, no
// consensus, just the deterministic transition function the ledger runtime
// would invoke.

type batchAccount struct {
	Address  string `json:"address"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
}

type batchInstruction struct {
	Accounts []batchAccount `json:"accounts"`
	Data     string         `json:"data"`
}

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	batchFile := flag.String("batch", "", "Path to a JSON file of instructions to replay")
	genesisFlag := flag.String("genesis", "", "Path to a genesis JSON file (overrides config GenesisFile)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup("swapd", cfg.Env)

	if *batchFile == "" {
		logger.Error("no batch file supplied, nothing to replay")
		os.Exit(1)
	}

	program := swap.DefaultProgramAddress
	if trimmed := strings.TrimSpace(cfg.ProgramID); trimmed != "" {
		program, err = types.HexToAddress(trimmed)
		if err != nil {
			logger.Error("invalid ProgramID in config", slog.Any("error", err))
			os.Exit(1)
		}
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open ledger database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	genesisPath := *genesisFlag
	if genesisPath == "" {
		genesisPath = cfg.GenesisFile
	}
	if genesisPath != "" {
		genesis, err := core.LoadGenesis(genesisPath)
		if err != nil {
			logger.Error("failed to load genesis", slog.Any("error", err))
			os.Exit(1)
		}
		if err := genesis.Apply(db); err != nil {
			logger.Error("failed to apply genesis", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("genesis applied", slog.String("path", genesisPath))
	}

	instructions, err := loadBatch(*batchFile)
	if err != nil {
		logger.Error("failed to load batch", slog.Any("error", err))
		os.Exit(1)
	}

	processor := core.NewProcessor(db, program)
	failures := 0
	for i, raw := range instructions {
		ix, err := buildInstruction(program, raw)
		if err != nil {
			logger.Error("skipping malformed batch entry", slog.Int("index", i), slog.Any("error", err))
			failures++
			continue
		}
		evts, err := processor.Process(ix)
		if err != nil {
			logger.Warn("instruction rejected", slog.Int("index", i), slog.Any("error", err))
			failures++
			continue
		}
		for _, evt := range evts {
			logger.Info("event", slog.String("type", evt.Type), slog.Any("attributes", evt.Attributes))
		}
	}
	logger.Info("replay finished",
		slog.Int("instructions", len(instructions)),
		slog.Int("failures", failures),
	)
	if failures > 0 {
		os.Exit(1)
	}
}

func loadBatch(path string) ([]batchInstruction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var batch []batchInstruction
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("parse batch: %w", err)
	}
	return batch, nil
}

func buildInstruction(program types.Address, raw batchInstruction) (swap.Instruction, error) {
	ix := swap.Instruction{Program: program}
	for _, account := range raw.Accounts {
		addr, err := types.HexToAddress(account.Address)
		if err != nil {
			return swap.Instruction{}, fmt.Errorf("account %q: %w", account.Address, err)
		}
		ix.Accounts = append(ix.Accounts, swap.AccountMeta{
			Address:  addr,
			Signer:   account.Signer,
			Writable: account.Writable,
		})
	}
	data, err := hex.DecodeString(strings.TrimPrefix(raw.Data, "0x"))
	if err != nil {
		return swap.Instruction{}, fmt.Errorf("instruction data: %w", err)
	}
	ix.Data = data
	return ix, nil
}
