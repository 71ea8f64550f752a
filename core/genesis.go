package core

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Rhovian/spl-p2p/core/state"
	"github.com/Rhovian/spl-p2p/core/types"
	"github.com/Rhovian/spl-p2p/native/token"
	"github.com/Rhovian/spl-p2p/storage"
)

// Genesis seeds the ledger the replay runner operates on: lamport
// accounts, mints and holding accounts the real runtime would already
// carry. Addresses are hex-encoded.
type Genesis struct {
	Rent     *state.Rent           `json:"rent,omitempty"`
	Accounts []GenesisAccount      `json:"accounts"`
	Mints    []GenesisMint         `json:"mints"`
	Holdings []GenesisTokenAccount `json:"token_accounts"`
}

type GenesisAccount struct {
	Address  string `json:"address"`
	Lamports uint64 `json:"lamports"`
}

type GenesisMint struct {
	Address  string `json:"address"`
	Service  string `json:"service"`
	Decimals uint8  `json:"decimals"`
}

type GenesisTokenAccount struct {
	Address  string `json:"address"`
	Mint     string `json:"mint"`
	Owner    string `json:"owner"`
	Balance  uint64 `json:"balance"`
	Lamports uint64 `json:"lamports"`
}

// LoadGenesis reads a genesis document from disk.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis: %w", err)
	}
	genesis := new(Genesis)
	if err := json.Unmarshal(data, genesis); err != nil {
		return nil, fmt.Errorf("parse genesis: %w", err)
	}
	return genesis, nil
}

// Apply writes the genesis records to the database.
func (g *Genesis) Apply(db storage.Database) error {
	mgr := state.NewManager(db)
	if g.Rent != nil {
		if err := mgr.SetRentParams(*g.Rent); err != nil {
			return err
		}
	}
	for _, account := range g.Accounts {
		addr, err := types.HexToAddress(account.Address)
		if err != nil {
			return fmt.Errorf("genesis account: %w", err)
		}
		if err := mgr.SetLamports(addr, account.Lamports); err != nil {
			return err
		}
	}
	for _, mint := range g.Mints {
		addr, err := types.HexToAddress(mint.Address)
		if err != nil {
			return fmt.Errorf("genesis mint: %w", err)
		}
		service, err := types.HexToAddress(mint.Service)
		if err != nil {
			return fmt.Errorf("genesis mint service: %w", err)
		}
		if !token.IsServiceAddress(service) {
			return fmt.Errorf("genesis mint %s names unknown custody service %s", mint.Address, mint.Service)
		}
		if err := mgr.MintPut(addr, &token.Mint{Service: service, Decimals: mint.Decimals}); err != nil {
			return err
		}
	}
	for _, holding := range g.Holdings {
		addr, err := types.HexToAddress(holding.Address)
		if err != nil {
			return fmt.Errorf("genesis token account: %w", err)
		}
		mint, err := types.HexToAddress(holding.Mint)
		if err != nil {
			return fmt.Errorf("genesis token account mint: %w", err)
		}
		owner, err := types.HexToAddress(holding.Owner)
		if err != nil {
			return fmt.Errorf("genesis token account owner: %w", err)
		}
		account := &token.Account{
			Mint:     mint,
			Owner:    owner,
			Balance:  holding.Balance,
			Lamports: holding.Lamports,
		}
		if err := mgr.TokenAccountPut(addr, account); err != nil {
			return err
		}
	}
	return nil
}
