package swap

import (
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/Rhovian/spl-p2p/core/types"
	"github.com/Rhovian/spl-p2p/native/token"
)

// Well-known runtime identities. Requests carry these by position and the
// validation layer rejects anything else in their place.
var (
	SystemServiceAddress = types.Address(ethcrypto.Keccak256Hash([]byte("system-service")))
	RentSysvarAddress    = types.Address(ethcrypto.Keccak256Hash([]byte("sysvar/rent")))

	// DefaultProgramAddress is the identity the runner uses when its
	// configuration names none.
	DefaultProgramAddress = types.Address(ethcrypto.Keccak256Hash([]byte("program/spl-p2p")))
)

// The validation layer is a library of side-effect-free precondition
// checks. Each failure maps to a distinct error kind and aborts the
// enclosing transition before any mutation or transfer occurs.

func requireSigner(signers SignerSet, addr types.Address) error {
	if !signers.Signed(addr) {
		return fmt.Errorf("%w: %s", ErrMissingSigner, addr.Hex())
	}
	return nil
}

func validateAmounts(makerAmount, takerAmount uint64) error {
	if makerAmount == 0 || takerAmount == 0 {
		return ErrInvalidAmount
	}
	return nil
}

func validateMint(st engineState, mint types.Address) error {
	_, ok, err := st.MintGet(mint)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: unknown mint %s", ErrAssetDescriptorMismatch, mint.Hex())
	}
	return nil
}

func validateMintService(st engineState, mint, service types.Address) error {
	descriptor, ok, err := st.MintGet(mint)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: unknown mint %s", ErrAssetDescriptorMismatch, mint.Hex())
	}
	if descriptor.Service != service {
		return fmt.Errorf("%w: mint %s is not managed by service %s", ErrAssetDescriptorMismatch, mint.Hex(), service.Hex())
	}
	return nil
}

// custodyService resolves the transfer-service variant once per transition;
// every transfer inside the transition goes through the resolved variant.
func custodyService(service types.Address) (token.Service, error) {
	svc, err := token.Lookup(service)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAssetDescriptorMismatch, service.Hex())
	}
	return svc, nil
}

func validateTokenAccount(st engineState, addr, owner, mint types.Address) error {
	account, ok, err := st.TokenAccountGet(addr)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: holding account %s not found", ErrAccountOwnerMismatch, addr.Hex())
	}
	if account.Owner != owner || account.Mint != mint {
		return fmt.Errorf("%w: %s", ErrAccountOwnerMismatch, addr.Hex())
	}
	return nil
}

func validateSystemService(addr types.Address) error {
	if addr != SystemServiceAddress {
		return fmt.Errorf("%w: expected system service, got %s", ErrInvalidArgument, addr.Hex())
	}
	return nil
}

func validateRentSysvar(addr types.Address) error {
	if addr != RentSysvarAddress {
		return fmt.Errorf("%w: expected rent sysvar, got %s", ErrInvalidArgument, addr.Hex())
	}
	return nil
}

// validateAuthority requires the caller to have signed and to be the
// order's maker. Every maker-gated transition runs the same check.
func validateAuthority(signers SignerSet, caller types.Address, order *Order) error {
	if err := requireSigner(signers, caller); err != nil {
		return err
	}
	if caller != order.Maker {
		return fmt.Errorf("%w: %s", ErrAuthorityMismatch, caller.Hex())
	}
	return nil
}

// validateTaker requires the caller to have signed and to match the order's
// counterparty. A zero taker leaves the order open to any signer.
func validateTaker(signers SignerSet, caller types.Address, order *Order) error {
	if err := requireSigner(signers, caller); err != nil {
		return err
	}
	if !order.Open() && caller != order.Taker {
		return fmt.Errorf("%w: %s", ErrCounterpartyMismatch, caller.Hex())
	}
	return nil
}
