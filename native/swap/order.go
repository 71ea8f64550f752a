package swap

import (
	"github.com/Rhovian/spl-p2p/core/types"
)

// OrderAccountSize is the serialized footprint of one order record and
// drives the rent-exempt allocation charged at creation: four 32-byte
// identities, two u64 amounts and the bump byte.
const OrderAccountSize = 4*types.AddressLength + 2*8 + 1

// Order is the persistent record describing one maker's swap offer. The
// record lives at the derived address for (maker, maker asset, taker
// asset), so exactly one order exists per triple. MakerAmount is the target
// escrow level; the custody account's actual balance is the source of truth
// for how much is currently escrowed.
type Order struct {
	Maker       types.Address
	Taker       types.Address
	MakerAsset  types.Address
	TakerAsset  types.Address
	MakerAmount uint64
	TakerAmount uint64
	Bump        uint8
}

// Clone returns a copy of the order so callers can mutate it without
// affecting the stored instance.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	return &clone
}

// Open reports whether the order accepts any counterparty. A zero taker is
// the placeholder for "anyone"; the maker can pin a counterparty later.
func (o *Order) Open() bool {
	return o != nil && o.Taker.IsZero()
}
