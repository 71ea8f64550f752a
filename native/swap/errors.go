package swap

import "errors"

// Every precondition failure carries a distinct error kind. The first
// failing check aborts the whole transition; callers of the processor see
// the specific kind and no state mutation.
var (
	ErrMalformedRequest        = errors.New("swap: malformed instruction payload")
	ErrMissingSigner           = errors.New("swap: required signature missing")
	ErrInvalidAmount           = errors.New("swap: order amounts must be positive")
	ErrAccountOwnerMismatch    = errors.New("swap: holding account owner or asset mismatch")
	ErrAssetDescriptorMismatch = errors.New("swap: asset descriptor invalid or custody service mismatch")
	ErrAddressMismatch         = errors.New("swap: order account does not match derived address")
	ErrAuthorityMismatch       = errors.New("swap: caller is not the order maker")
	ErrCounterpartyMismatch    = errors.New("swap: caller is not the order taker")
	ErrInsufficientFunds       = errors.New("swap: insufficient escrowed funds")
	ErrInvalidArgument         = errors.New("swap: invalid argument")

	ErrOrderExists   = errors.New("swap: order already exists for this maker and asset pair")
	ErrOrderNotFound = errors.New("swap: order not found")
)
