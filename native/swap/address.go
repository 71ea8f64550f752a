package swap

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/Rhovian/spl-p2p/core/types"
	"github.com/Rhovian/spl-p2p/native/token"
)

// orderSeed tags every derivation so order addresses cannot collide with
// addresses derived for other purposes.
const orderSeed = "order"

var errBumpExhausted = errors.New("swap: no bump yields a keyless address")

// DeriveOrderAddress computes the canonical storage address for the order
// belonging to (maker, makerAsset, takerAsset) under the given program
// identity, together with the disambiguating bump. The result is the
// keccak256 digest of the seeds and the smallest bump whose digest is not a
// valid curve point, i.e. an address nobody holds a signing key for. The
// derivation is pure: the same inputs always produce the same address.
func DeriveOrderAddress(program, maker, makerAsset, takerAsset types.Address) (types.Address, uint8, error) {
	for bump := 0; bump <= 255; bump++ {
		digest := ethcrypto.Keccak256Hash(
			[]byte(orderSeed),
			maker.Bytes(),
			makerAsset.Bytes(),
			takerAsset.Bytes(),
			program.Bytes(),
			[]byte{byte(bump)},
		)
		addr := types.Address(digest)
		if !hasSigningKey(addr) {
			return addr, uint8(bump), nil
		}
	}
	return types.Address{}, 0, errBumpExhausted
}

// hasSigningKey reports whether the address decodes as a valid edwards25519
// point, meaning a private key for it could exist. Derived addresses must
// fall outside that space so the program alone can exercise authority over
// them.
func hasSigningKey(addr types.Address) bool {
	_, err := new(edwards25519.Point).SetBytes(addr.Bytes())
	return err == nil
}

// authenticateOrder loads the record stored at the candidate address and
// proves it is the canonical one by re-deriving the address from the
// record's own fields. A forged record naming a different maker or asset
// pair derives to a different address and is rejected. This check is
// mandatory before trusting any field of a supplied order record.
func (e *Engine) authenticateOrder(candidate types.Address) (*Order, error) {
	order, ok, err := e.state.OrderGet(candidate)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, candidate.Hex())
	}
	derived, bump, err := DeriveOrderAddress(e.program, order.Maker, order.MakerAsset, order.TakerAsset)
	if err != nil {
		return nil, err
	}
	if derived != candidate || bump != order.Bump {
		return nil, fmt.Errorf("%w: %s", ErrAddressMismatch, candidate.Hex())
	}
	return order, nil
}

// custodySigner is the capability exercised by the program over accounts
// owned by a derived order address. It is minted only inside withdraw and
// close paths, after the order record has passed address authentication,
// and never escapes the engine.
type custodySigner struct {
	order types.Address
}

func (c custodySigner) Address() types.Address { return c.order }

func (c custodySigner) Authorize(owner types.Address) error {
	if owner != c.order {
		return token.ErrUnauthorized
	}
	return nil
}
