package token

import (
	"errors"

	"github.com/Rhovian/spl-p2p/core/types"
)

var (
	ErrMissingSignature = errors.New("token: authority did not sign the transaction")
	ErrUnauthorized     = errors.New("token: authority may not act for account owner")
)

// Authority is the capability required to move funds out of a holding
// account. A signer authority proves itself with a transaction signature; the
// swap engine mints a derivation-backed capability for custody accounts it
// controls. Authorize returns nil only if the holder may act for the given
// account owner.
type Authority interface {
	Address() types.Address
	Authorize(owner types.Address) error
}

// SignerAuthority authorizes transfers for an identity that signed the
// enclosing transaction.
type SignerAuthority struct {
	addr   types.Address
	signed bool
}

// NewSignerAuthority builds a signer authority. The signed flag must reflect
// whether the address actually signed the enclosing transaction; the caller
// derives it from the request's account metadata.
func NewSignerAuthority(addr types.Address, signed bool) SignerAuthority {
	return SignerAuthority{addr: addr, signed: signed}
}

// Address implements the Authority interface.
func (s SignerAuthority) Address() types.Address { return s.addr }

// Authorize implements the Authority interface.
func (s SignerAuthority) Authorize(owner types.Address) error {
	if !s.signed {
		return ErrMissingSignature
	}
	if s.addr != owner {
		return ErrUnauthorized
	}
	return nil
}
