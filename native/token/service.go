package token

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/Rhovian/spl-p2p/core/types"
)

var (
	ErrAccountNotFound   = errors.New("token: holding account not found")
	ErrMintNotFound      = errors.New("token: mint not found")
	ErrMintMismatch      = errors.New("token: source and destination mint differ")
	ErrInsufficientFunds = errors.New("token: insufficient balance")
	ErrNonEmptyAccount   = errors.New("token: account balance must be zero to close")
	ErrUnknownService    = errors.New("token: unknown custody service")
	ErrServiceMismatch   = errors.New("token: mint not managed by this custody service")
)

// Two interchangeable custody services exist on the ledger. Assets declare
// which one manages them; requests route transfers through the matching
// identity.
var (
	PlainServiceAddress   = serviceAddress("token-custody/v1")
	CheckedServiceAddress = serviceAddress("token-custody/v2")
)

func serviceAddress(label string) types.Address {
	return types.Address(ethcrypto.Keccak256Hash([]byte(label)))
}

// Service moves fungible assets between holding accounts on behalf of an
// authority. Implementations are selected once per transition by the custody
// service identity supplied with the request.
type Service interface {
	ID() types.Address
	Transfer(st State, from, to types.Address, auth Authority, amount uint64) error
	CloseAccount(st State, acct, dest types.Address, auth Authority) error
}

// Lookup resolves the custody service registered under the supplied identity.
func Lookup(service types.Address) (Service, error) {
	switch service {
	case PlainServiceAddress:
		return plainService{}, nil
	case CheckedServiceAddress:
		return checkedService{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, service.Hex())
	}
}

// IsServiceAddress reports whether the address names a registered custody
// service.
func IsServiceAddress(service types.Address) bool {
	_, err := Lookup(service)
	return err == nil
}

// plainService performs straight balance moves with no mint re-inspection.
type plainService struct{}

func (plainService) ID() types.Address { return PlainServiceAddress }

func (plainService) Transfer(st State, from, to types.Address, auth Authority, amount uint64) error {
	return transfer(st, from, to, auth, amount, nil)
}

func (plainService) CloseAccount(st State, acct, dest types.Address, auth Authority) error {
	return closeAccount(st, acct, dest, auth)
}

// checkedService re-reads the asset descriptor on every transfer and refuses
// to move assets routed to the other custody service. The plain variant
// never inspects the mint; this one enforces its own routing even when the
// caller's validation was skipped.
type checkedService struct{}

func (checkedService) ID() types.Address { return CheckedServiceAddress }

func (checkedService) Transfer(st State, from, to types.Address, auth Authority, amount uint64) error {
	return transfer(st, from, to, auth, amount, func(mint *Mint, acct *Account) error {
		if mint.Service != CheckedServiceAddress {
			return fmt.Errorf("%w: mint %s", ErrServiceMismatch, acct.Mint.Hex())
		}
		return nil
	})
}

func (checkedService) CloseAccount(st State, acct, dest types.Address, auth Authority) error {
	return closeAccount(st, acct, dest, auth)
}

func transfer(st State, from, to types.Address, auth Authority, amount uint64, check func(*Mint, *Account) error) error {
	fromAcct, ok, err := st.TokenAccountGet(from)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, from.Hex())
	}
	toAcct, ok, err := st.TokenAccountGet(to)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, to.Hex())
	}
	if fromAcct.Mint != toAcct.Mint {
		return ErrMintMismatch
	}
	if check != nil {
		mint, ok, err := st.MintGet(fromAcct.Mint)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrMintNotFound, fromAcct.Mint.Hex())
		}
		if err := check(mint, fromAcct); err != nil {
			return err
		}
	}
	if err := auth.Authorize(fromAcct.Owner); err != nil {
		return err
	}
	if fromAcct.Balance < amount {
		return ErrInsufficientFunds
	}
	if amount == 0 {
		return nil
	}
	// Self-transfers would otherwise double-apply through the two puts.
	if from == to {
		return nil
	}
	fromAcct.Balance -= amount
	toAcct.Balance += amount
	if err := st.TokenAccountPut(from, fromAcct); err != nil {
		return err
	}
	return st.TokenAccountPut(to, toAcct)
}

func closeAccount(st State, acct, dest types.Address, auth Authority) error {
	holding, ok, err := st.TokenAccountGet(acct)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, acct.Hex())
	}
	if err := auth.Authorize(holding.Owner); err != nil {
		return err
	}
	if holding.Balance != 0 {
		return ErrNonEmptyAccount
	}
	if holding.Lamports > 0 {
		if err := st.CreditLamports(dest, holding.Lamports); err != nil {
			return err
		}
	}
	return st.TokenAccountDelete(acct)
}
