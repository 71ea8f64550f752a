package swap

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"github.com/Rhovian/spl-p2p/core/types"
)

// InstructionTag discriminates the five request variants on the wire.
type InstructionTag uint8

const (
	TagCreateOrder InstructionTag = iota
	TagAmendAmounts
	TagSetTaker
	TagSettle
	TagCloseOrder
)

func (t InstructionTag) String() string {
	switch t {
	case TagCreateOrder:
		return "create_order"
	case TagAmendAmounts:
		return "amend_amounts"
	case TagSetTaker:
		return "set_taker"
	case TagSettle:
		return "settle"
	case TagCloseOrder:
		return "close_order"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// AccountMeta names one account a request touches. Position in the account
// list is significant; the processor resolves roles by index.
type AccountMeta struct {
	Address  types.Address
	Signer   bool
	Writable bool
}

// Instruction is one wire-encoded request: the target program, the ordered
// account list and the Borsh-encoded payload.
type Instruction struct {
	Program  types.Address
	Accounts []AccountMeta
	Data     []byte
}

// Signers collects the addresses that signed the enclosing transaction.
func (ix Instruction) Signers() SignerSet {
	set := make(SignerSet, len(ix.Accounts))
	for _, meta := range ix.Accounts {
		if meta.Signer {
			set[meta.Address] = struct{}{}
		}
	}
	return set
}

// SignerSet records which identities authorized the transaction.
type SignerSet map[types.Address]struct{}

// Signed reports whether the address signed.
func (s SignerSet) Signed(addr types.Address) bool {
	_, ok := s[addr]
	return ok
}

// Payload is one decoded instruction variant.
type Payload interface {
	Tag() InstructionTag
}

type CreateOrderPayload struct {
	MakerAmount uint64
	TakerAmount uint64
}

func (CreateOrderPayload) Tag() InstructionTag { return TagCreateOrder }

type AmendAmountsPayload struct {
	NewMakerAmount uint64
	NewTakerAmount uint64
}

func (AmendAmountsPayload) Tag() InstructionTag { return TagAmendAmounts }

type SetTakerPayload struct {
	NewTaker types.Address
}

func (SetTakerPayload) Tag() InstructionTag { return TagSetTaker }

type SettlePayload struct{}

func (SettlePayload) Tag() InstructionTag { return TagSettle }

type CloseOrderPayload struct{}

func (CloseOrderPayload) Tag() InstructionTag { return TagCloseOrder }

// DecodeInstruction parses the Borsh-encoded payload: a one-byte variant
// tag followed by the variant's little-endian fields. Trailing bytes are
// rejected.
func DecodeInstruction(data []byte) (Payload, error) {
	decoder := bin.NewBorshDecoder(data)
	tag, err := decoder.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("%w: missing tag", ErrMalformedRequest)
	}
	var payload Payload
	switch InstructionTag(tag) {
	case TagCreateOrder:
		var p CreateOrderPayload
		if p.MakerAmount, err = decoder.ReadUint64(bin.LE); err == nil {
			p.TakerAmount, err = decoder.ReadUint64(bin.LE)
		}
		payload = p
	case TagAmendAmounts:
		var p AmendAmountsPayload
		if p.NewMakerAmount, err = decoder.ReadUint64(bin.LE); err == nil {
			p.NewTakerAmount, err = decoder.ReadUint64(bin.LE)
		}
		payload = p
	case TagSetTaker:
		var p SetTakerPayload
		var raw []byte
		if raw, err = decoder.ReadNBytes(types.AddressLength); err == nil {
			copy(p.NewTaker[:], raw)
		}
		payload = p
	case TagSettle:
		payload = SettlePayload{}
	case TagCloseOrder:
		payload = CloseOrderPayload{}
	default:
		return nil, fmt.Errorf("%w: unknown tag %d", ErrMalformedRequest, tag)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: truncated %s payload", ErrMalformedRequest, InstructionTag(tag))
	}
	if decoder.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedRequest, decoder.Remaining())
	}
	return payload, nil
}

// EncodeInstruction serializes a payload into the wire form DecodeInstruction
// accepts.
func EncodeInstruction(payload Payload) ([]byte, error) {
	var buf bytes.Buffer
	encoder := bin.NewBorshEncoder(&buf)
	if err := encoder.WriteUint8(uint8(payload.Tag())); err != nil {
		return nil, err
	}
	switch p := payload.(type) {
	case CreateOrderPayload:
		if err := encoder.WriteUint64(p.MakerAmount, bin.LE); err != nil {
			return nil, err
		}
		if err := encoder.WriteUint64(p.TakerAmount, bin.LE); err != nil {
			return nil, err
		}
	case AmendAmountsPayload:
		if err := encoder.WriteUint64(p.NewMakerAmount, bin.LE); err != nil {
			return nil, err
		}
		if err := encoder.WriteUint64(p.NewTakerAmount, bin.LE); err != nil {
			return nil, err
		}
	case SetTakerPayload:
		if err := encoder.WriteBytes(p.NewTaker.Bytes(), false); err != nil {
			return nil, err
		}
	case SettlePayload, CloseOrderPayload:
	default:
		return nil, fmt.Errorf("%w: unsupported payload %T", ErrMalformedRequest, payload)
	}
	return buf.Bytes(), nil
}
