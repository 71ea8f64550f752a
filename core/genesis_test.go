package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Rhovian/spl-p2p/core/state"
	"github.com/Rhovian/spl-p2p/native/token"
	"github.com/Rhovian/spl-p2p/storage"
)

const genesisDoc = `{
  "rent": {"LamportsPerByteYear": 10, "ExemptionYears": 1},
  "accounts": [
    {"address": "%[1]s", "lamports": 5000000}
  ],
  "mints": [
    {"address": "%[2]s", "service": "%[4]s", "decimals": 6}
  ],
  "token_accounts": [
    {
      "address": "%[3]s",
      "mint": "%[2]s",
      "owner": "%[1]s",
      "balance": 1000,
      "lamports": 500
    }
  ]
}`

func writeGenesis(t *testing.T, service string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "genesis.json")
	doc := fmt.Sprintf(genesisDoc, testAddr(0x01).Hex(), testAddr(0xa0).Hex(), testAddr(0x11).Hex(), service)
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write genesis: %v", err)
	}
	return path
}

func TestGenesisApply(t *testing.T) {
	path := writeGenesis(t, token.PlainServiceAddress.Hex())
	genesis, err := LoadGenesis(path)
	if err != nil {
		t.Fatalf("load genesis: %v", err)
	}
	db := storage.NewMemDB()
	if err := genesis.Apply(db); err != nil {
		t.Fatalf("apply genesis: %v", err)
	}
	mgr := state.NewManager(db)

	balance, err := mgr.Lamports(testAddr(0x01))
	if err != nil || balance != 5_000_000 {
		t.Fatalf("lamports = %d, %v, want 5000000", balance, err)
	}
	mint, ok, err := mgr.MintGet(testAddr(0xa0))
	if err != nil || !ok {
		t.Fatalf("mint: ok=%v err=%v", ok, err)
	}
	if mint.Service != token.PlainServiceAddress || mint.Decimals != 6 {
		t.Fatalf("mint = %+v", mint)
	}
	account, ok, err := mgr.TokenAccountGet(testAddr(0x11))
	if err != nil || !ok {
		t.Fatalf("token account: ok=%v err=%v", ok, err)
	}
	if account.Balance != 1_000 || account.Lamports != 500 {
		t.Fatalf("token account = %+v", account)
	}
	rent, err := mgr.RentParams()
	if err != nil {
		t.Fatalf("rent params: %v", err)
	}
	if rent.LamportsPerByteYear != 10 || rent.ExemptionYears != 1 {
		t.Fatalf("rent = %+v", rent)
	}
}

func TestGenesisRejectsUnknownService(t *testing.T) {
	path := writeGenesis(t, strings.Repeat("ff", 32))
	genesis, err := LoadGenesis(path)
	if err != nil {
		t.Fatalf("load genesis: %v", err)
	}
	if err := genesis.Apply(storage.NewMemDB()); err == nil {
		t.Fatalf("unknown custody service accepted")
	}
}
