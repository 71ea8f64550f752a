package token

import (
	"github.com/Rhovian/spl-p2p/core/types"
)

// Account is a fungible-asset holding account. Balance is denominated in the
// asset's native units; Lamports is the allocation cost reclaimed when the
// account is closed.
type Account struct {
	Mint     types.Address
	Owner    types.Address
	Balance  uint64
	Lamports uint64
}

// Clone returns a copy of the account so callers can mutate it without
// affecting the stored instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

// Mint describes a fungible asset type: which custody service manages it and
// the decimal precision of its native units.
type Mint struct {
	Service  types.Address
	Decimals uint8
}

// Clone returns a copy of the mint descriptor.
func (m *Mint) Clone() *Mint {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}

// State is the slice of ledger state a custody service operates on.
type State interface {
	TokenAccountGet(addr types.Address) (*Account, bool, error)
	TokenAccountPut(addr types.Address, account *Account) error
	TokenAccountDelete(addr types.Address) error
	MintGet(addr types.Address) (*Mint, bool, error)
	CreditLamports(addr types.Address, amount uint64) error
}
