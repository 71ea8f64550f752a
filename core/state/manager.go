package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/Rhovian/spl-p2p/core/types"
	"github.com/Rhovian/spl-p2p/native/swap"
	"github.com/Rhovian/spl-p2p/native/token"
	"github.com/Rhovian/spl-p2p/storage"
)

var (
	// ErrInsufficientBalance is returned when a debit exceeds the
	// account's lamport balance.
	ErrInsufficientBalance = errors.New("state: insufficient lamport balance")
	// ErrBalanceOverflow is returned when a credit would overflow the
	// lamport balance.
	ErrBalanceOverflow = errors.New("state: lamport balance overflow")
)

// Manager reads and writes ledger records on a key-value database. Records
// are RLP-encoded under typed prefixes. Run a Manager over a storage
// overlay to stage a transition and commit it atomically.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func (m *Manager) get(key []byte, out interface{}) (bool, error) {
	data, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("state: corrupt record: %w", err)
	}
	return true, nil
}

func (m *Manager) put(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

// --- Lamport accounts ---

// Lamports returns the native balance held at the address. Unknown
// addresses hold zero.
func (m *Manager) Lamports(addr types.Address) (uint64, error) {
	var balance uint64
	ok, err := m.get(prefixedKey(lamportsPrefix, addr.Bytes()), &balance)
	if err != nil || !ok {
		return 0, err
	}
	return balance, nil
}

// SetLamports overwrites the native balance at the address. A zero balance
// removes the entry.
func (m *Manager) SetLamports(addr types.Address, amount uint64) error {
	key := prefixedKey(lamportsPrefix, addr.Bytes())
	if amount == 0 {
		return m.db.Delete(key)
	}
	return m.put(key, amount)
}

// CreditLamports adds to the native balance at the address.
func (m *Manager) CreditLamports(addr types.Address, amount uint64) error {
	balance, err := m.Lamports(addr)
	if err != nil {
		return err
	}
	if balance+amount < balance {
		return ErrBalanceOverflow
	}
	return m.SetLamports(addr, balance+amount)
}

// DebitLamports subtracts from the native balance at the address.
func (m *Manager) DebitLamports(addr types.Address, amount uint64) error {
	balance, err := m.Lamports(addr)
	if err != nil {
		return err
	}
	if balance < amount {
		return fmt.Errorf("%w: %s", ErrInsufficientBalance, addr.Hex())
	}
	return m.SetLamports(addr, balance-amount)
}

// --- Token accounts and mints ---

// TokenAccountGet loads the holding account stored at the address.
func (m *Manager) TokenAccountGet(addr types.Address) (*token.Account, bool, error) {
	account := new(token.Account)
	ok, err := m.get(prefixedKey(tokenAccountPrefix, addr.Bytes()), account)
	if err != nil || !ok {
		return nil, false, err
	}
	return account, true, nil
}

// TokenAccountPut stores the holding account at the address.
func (m *Manager) TokenAccountPut(addr types.Address, account *token.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil token account")
	}
	return m.put(prefixedKey(tokenAccountPrefix, addr.Bytes()), account)
}

// TokenAccountDelete removes the holding account at the address.
func (m *Manager) TokenAccountDelete(addr types.Address) error {
	return m.db.Delete(prefixedKey(tokenAccountPrefix, addr.Bytes()))
}

// MintGet loads the asset descriptor stored at the address.
func (m *Manager) MintGet(addr types.Address) (*token.Mint, bool, error) {
	mint := new(token.Mint)
	ok, err := m.get(prefixedKey(mintPrefix, addr.Bytes()), mint)
	if err != nil || !ok {
		return nil, false, err
	}
	return mint, true, nil
}

// MintPut stores the asset descriptor at the address.
func (m *Manager) MintPut(addr types.Address, mint *token.Mint) error {
	if mint == nil {
		return fmt.Errorf("state: nil mint")
	}
	return m.put(prefixedKey(mintPrefix, addr.Bytes()), mint)
}

// --- Order records ---

// OrderGet loads the order record stored at the derived address.
func (m *Manager) OrderGet(addr types.Address) (*swap.Order, bool, error) {
	order := new(swap.Order)
	ok, err := m.get(prefixedKey(orderPrefix, addr.Bytes()), order)
	if err != nil || !ok {
		return nil, false, err
	}
	return order, true, nil
}

// OrderPut stores the order record at the derived address.
func (m *Manager) OrderPut(addr types.Address, order *swap.Order) error {
	if order == nil {
		return fmt.Errorf("state: nil order")
	}
	return m.put(prefixedKey(orderPrefix, addr.Bytes()), order)
}

// OrderDelete removes the order record at the derived address.
func (m *Manager) OrderDelete(addr types.Address) error {
	return m.db.Delete(prefixedKey(orderPrefix, addr.Bytes()))
}

// --- Rent sysvar ---

const accountStorageOverhead = 128

// Rent holds the ledger's allocation-pricing parameters.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionYears      uint64
}

// DefaultRent returns the parameters used when the sysvar has never been
// written.
func DefaultRent() Rent {
	return Rent{LamportsPerByteYear: 3480, ExemptionYears: 2}
}

// MinimumBalance returns the lamports an account of the given data length
// must hold to be exempt from rent collection.
func (r Rent) MinimumBalance(dataLen int) uint64 {
	if dataLen < 0 {
		dataLen = 0
	}
	return r.LamportsPerByteYear * r.ExemptionYears * (accountStorageOverhead + uint64(dataLen))
}

// RentParams loads the rent sysvar, falling back to defaults when unset.
func (m *Manager) RentParams() (Rent, error) {
	var rent Rent
	ok, err := m.get(rentSysvarKey, &rent)
	if err != nil {
		return Rent{}, err
	}
	if !ok {
		return DefaultRent(), nil
	}
	return rent, nil
}

// SetRentParams overwrites the rent sysvar.
func (m *Manager) SetRentParams(rent Rent) error {
	return m.put(rentSysvarKey, rent)
}

// RentMinimumBalance returns the rent-exempt minimum for an account of the
// given data length under the current sysvar parameters.
func (m *Manager) RentMinimumBalance(dataLen int) (uint64, error) {
	rent, err := m.RentParams()
	if err != nil {
		return 0, err
	}
	return rent.MinimumBalance(dataLen), nil
}
