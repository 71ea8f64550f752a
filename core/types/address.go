package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLength is the byte length of every ledger identity: wallets,
// mints, token accounts, services and derived order addresses all share
// the same 32-byte address space.
const AddressLength = 32

// Address identifies an account on the ledger.
type Address [AddressLength]byte

// AddressFromBytes converts a raw byte slice into an Address.
func AddressFromBytes(b []byte) (Address, error) {
	var addr Address
	if len(b) != AddressLength {
		return addr, fmt.Errorf("address must be %d bytes, got %d", AddressLength, len(b))
	}
	copy(addr[:], b)
	return addr, nil
}

// HexToAddress parses a hex-encoded address, with or without a 0x prefix.
func HexToAddress(s string) (Address, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address encoding: %w", err)
	}
	return AddressFromBytes(raw)
}

// Bytes returns the address as a byte slice.
func (a Address) Bytes() []byte { return a[:] }

// Hex returns the lowercase hex encoding of the address.
func (a Address) Hex() string { return hex.EncodeToString(a[:]) }

// Short returns an abbreviated form of the address for log lines.
func (a Address) Short() string { return hex.EncodeToString(a[:4]) }

// IsZero reports whether the address is the all-zero placeholder.
func (a Address) IsZero() bool { return a == Address{} }

func (a Address) String() string { return a.Hex() }
