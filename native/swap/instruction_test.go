package swap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Rhovian/spl-p2p/core/types"
)

func TestInstructionCodecRoundTrip(t *testing.T) {
	payloads := []Payload{
		CreateOrderPayload{MakerAmount: 250, TakerAmount: 400},
		AmendAmountsPayload{NewMakerAmount: 1, NewTakerAmount: 1<<64 - 1},
		SetTakerPayload{NewTaker: testAddr(0x55)},
		SettlePayload{},
		CloseOrderPayload{},
	}
	for _, payload := range payloads {
		data, err := EncodeInstruction(payload)
		require.NoError(t, err, "encode %s", payload.Tag())
		decoded, err := DecodeInstruction(data)
		require.NoError(t, err, "decode %s", payload.Tag())
		require.Equal(t, payload, decoded)
	}
}

func TestDecodeInstructionWireLayout(t *testing.T) {
	data, err := EncodeInstruction(CreateOrderPayload{MakerAmount: 250, TakerAmount: 400})
	require.NoError(t, err)
	require.Len(t, data, 17)
	require.Equal(t, uint8(TagCreateOrder), data[0])
	// Amounts are little-endian u64s.
	require.Equal(t, byte(250), data[1])
	require.Equal(t, byte(400%256), data[9])
	require.Equal(t, byte(400/256), data[10])
}

func TestDecodeInstructionRejectsEmptyData(t *testing.T) {
	_, err := DecodeInstruction(nil)
	require.ErrorIs(t, err, ErrMalformedRequest)
}

func TestDecodeInstructionRejectsUnknownTag(t *testing.T) {
	_, err := DecodeInstruction([]byte{0x09})
	require.ErrorIs(t, err, ErrMalformedRequest)
}

func TestDecodeInstructionRejectsTruncatedPayload(t *testing.T) {
	data, err := EncodeInstruction(AmendAmountsPayload{NewMakerAmount: 150, NewTakerAmount: 300})
	require.NoError(t, err)
	for cut := 1; cut < len(data); cut++ {
		_, err := DecodeInstruction(data[:cut])
		require.ErrorIs(t, err, ErrMalformedRequest, "cut at %d", cut)
	}
}

func TestDecodeInstructionRejectsTrailingBytes(t *testing.T) {
	data, err := EncodeInstruction(SettlePayload{})
	require.NoError(t, err)
	_, err = DecodeInstruction(append(data, 0x00))
	require.ErrorIs(t, err, ErrMalformedRequest)
}

func TestInstructionSigners(t *testing.T) {
	maker := testAddr(0x01)
	taker := testAddr(0x02)
	ix := Instruction{
		Accounts: []AccountMeta{
			{Address: maker, Signer: true, Writable: true},
			{Address: taker, Signer: false},
		},
	}
	signers := ix.Signers()
	require.True(t, signers.Signed(maker))
	require.False(t, signers.Signed(taker))
	require.False(t, signers.Signed(types.Address{}))
}
