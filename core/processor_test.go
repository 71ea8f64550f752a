package core

import (
	"errors"
	"testing"

	"github.com/Rhovian/spl-p2p/core/state"
	"github.com/Rhovian/spl-p2p/core/types"
	"github.com/Rhovian/spl-p2p/native/swap"
	"github.com/Rhovian/spl-p2p/native/token"
	"github.com/Rhovian/spl-p2p/storage"
)

func testAddr(tag byte) types.Address {
	var addr types.Address
	addr[0] = tag
	return addr
}

type harness struct {
	db        *storage.MemDB
	processor *Processor
	mgr       *state.Manager

	program   types.Address
	maker     types.Address
	taker     types.Address
	makerMint types.Address
	takerMint types.Address

	makerTokenAccount   types.Address
	custodyTokenAccount types.Address
	makerReceiveAccount types.Address
	takerSendAccount    types.Address
	takerReceiveAccount types.Address

	orderAddr types.Address
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		db:        storage.NewMemDB(),
		program:   testAddr(0xf0),
		maker:     testAddr(0x01),
		taker:     testAddr(0x02),
		makerMint: testAddr(0xa0),
		takerMint: testAddr(0xa1),

		makerTokenAccount:   testAddr(0x11),
		custodyTokenAccount: testAddr(0x12),
		makerReceiveAccount: testAddr(0x13),
		takerSendAccount:    testAddr(0x14),
		takerReceiveAccount: testAddr(0x15),
	}
	h.processor = NewProcessor(h.db, h.program)
	h.mgr = state.NewManager(h.db)

	derived, _, err := swap.DeriveOrderAddress(h.program, h.maker, h.makerMint, h.takerMint)
	if err != nil {
		t.Fatalf("derive order address: %v", err)
	}
	h.orderAddr = derived

	seed := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("seed ledger: %v", err)
		}
	}
	seed(h.mgr.SetLamports(h.maker, 10_000_000))
	seed(h.mgr.MintPut(h.makerMint, &token.Mint{Service: token.PlainServiceAddress, Decimals: 6}))
	seed(h.mgr.MintPut(h.takerMint, &token.Mint{Service: token.PlainServiceAddress, Decimals: 9}))
	seed(h.mgr.TokenAccountPut(h.makerTokenAccount, &token.Account{Mint: h.makerMint, Owner: h.maker, Balance: 1_000}))
	seed(h.mgr.TokenAccountPut(h.custodyTokenAccount, &token.Account{Mint: h.makerMint, Owner: derived, Lamports: 500}))
	seed(h.mgr.TokenAccountPut(h.makerReceiveAccount, &token.Account{Mint: h.takerMint, Owner: h.maker}))
	seed(h.mgr.TokenAccountPut(h.takerSendAccount, &token.Account{Mint: h.takerMint, Owner: h.taker, Balance: 2_000}))
	seed(h.mgr.TokenAccountPut(h.takerReceiveAccount, &token.Account{Mint: h.makerMint, Owner: h.taker}))
	return h
}

func (h *harness) instruction(t *testing.T, payload swap.Payload, accounts []swap.AccountMeta) swap.Instruction {
	t.Helper()
	data, err := swap.EncodeInstruction(payload)
	if err != nil {
		t.Fatalf("encode %s: %v", payload.Tag(), err)
	}
	return swap.Instruction{Program: h.program, Accounts: accounts, Data: data}
}

func signer(addr types.Address) swap.AccountMeta {
	return swap.AccountMeta{Address: addr, Signer: true, Writable: true}
}

func writable(addr types.Address) swap.AccountMeta {
	return swap.AccountMeta{Address: addr, Writable: true}
}

func readonly(addr types.Address) swap.AccountMeta {
	return swap.AccountMeta{Address: addr}
}

func (h *harness) createInstruction(t *testing.T, makerAmount, takerAmount uint64) swap.Instruction {
	return h.instruction(t, swap.CreateOrderPayload{MakerAmount: makerAmount, TakerAmount: takerAmount}, []swap.AccountMeta{
		signer(h.maker),
		writable(h.orderAddr),
		writable(h.makerTokenAccount),
		writable(h.custodyTokenAccount),
		readonly(h.taker),
		readonly(h.makerMint),
		readonly(h.takerMint),
		readonly(swap.SystemServiceAddress),
		readonly(swap.RentSysvarAddress),
		readonly(token.PlainServiceAddress),
	})
}

func (h *harness) settleInstruction(t *testing.T) swap.Instruction {
	return h.instruction(t, swap.SettlePayload{}, []swap.AccountMeta{
		signer(h.taker),
		writable(h.orderAddr),
		writable(h.makerReceiveAccount),
		writable(h.takerSendAccount),
		writable(h.takerReceiveAccount),
		writable(h.custodyTokenAccount),
		readonly(token.PlainServiceAddress),
	})
}

func (h *harness) closeInstruction(t *testing.T) swap.Instruction {
	return h.instruction(t, swap.CloseOrderPayload{}, []swap.AccountMeta{
		signer(h.maker),
		writable(h.orderAddr),
		writable(h.custodyTokenAccount),
		writable(h.makerTokenAccount),
		readonly(token.PlainServiceAddress),
	})
}

func TestProcessorOrderLifecycle(t *testing.T) {
	h := newHarness(t)

	evts, err := h.processor.Process(h.createInstruction(t, 250, 400))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(evts) != 1 || evts[0].Type != swap.EventTypeOrderCreated {
		t.Fatalf("create events: %+v", evts)
	}
	custody, ok, err := h.mgr.TokenAccountGet(h.custodyTokenAccount)
	if err != nil || !ok {
		t.Fatalf("custody account: ok=%v err=%v", ok, err)
	}
	if custody.Balance != 250 {
		t.Fatalf("custody balance = %d, want 250", custody.Balance)
	}

	evts, err = h.processor.Process(h.instruction(t, swap.AmendAmountsPayload{NewMakerAmount: 300, NewTakerAmount: 500}, []swap.AccountMeta{
		signer(h.maker),
		writable(h.orderAddr),
		writable(h.custodyTokenAccount),
		writable(h.makerTokenAccount),
		readonly(token.PlainServiceAddress),
	}))
	if err != nil {
		t.Fatalf("amend: %v", err)
	}
	if len(evts) != 1 || evts[0].Type != swap.EventTypeOrderAmended {
		t.Fatalf("amend events: %+v", evts)
	}

	evts, err = h.processor.Process(h.instruction(t, swap.SetTakerPayload{NewTaker: h.taker}, []swap.AccountMeta{
		signer(h.maker),
		writable(h.orderAddr),
		readonly(h.taker),
	}))
	if err != nil {
		t.Fatalf("set taker: %v", err)
	}
	if len(evts) != 1 || evts[0].Type != swap.EventTypeTakerUpdated {
		t.Fatalf("set taker events: %+v", evts)
	}

	evts, err = h.processor.Process(h.settleInstruction(t))
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if len(evts) != 1 || evts[0].Type != swap.EventTypeOrderSettled {
		t.Fatalf("settle events: %+v", evts)
	}
	takerReceive, _, err := h.mgr.TokenAccountGet(h.takerReceiveAccount)
	if err != nil {
		t.Fatalf("taker receive account: %v", err)
	}
	if takerReceive.Balance != 300 {
		t.Fatalf("taker receive balance = %d, want 300", takerReceive.Balance)
	}

	evts, err = h.processor.Process(h.closeInstruction(t))
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(evts) != 1 || evts[0].Type != swap.EventTypeOrderClosed {
		t.Fatalf("close events: %+v", evts)
	}
	if _, ok, err := h.mgr.OrderGet(h.orderAddr); err != nil || ok {
		t.Fatalf("order record survived close (ok=%v err=%v)", ok, err)
	}
	if _, ok, err := h.mgr.TokenAccountGet(h.custodyTokenAccount); err != nil || ok {
		t.Fatalf("custody account survived close (ok=%v err=%v)", ok, err)
	}
}

func TestProcessorFailedTransitionLeavesNoTrace(t *testing.T) {
	h := newHarness(t)
	// Zero maker amount fails after the instruction has already been
	// decoded; nothing may land in the base database.
	_, err := h.processor.Process(h.createInstruction(t, 0, 400))
	if !errors.Is(err, swap.ErrInvalidAmount) {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
	balance, err := h.mgr.Lamports(h.maker)
	if err != nil || balance != 10_000_000 {
		t.Fatalf("maker lamports = %d, %v, want untouched", balance, err)
	}
	if _, ok, err := h.mgr.OrderGet(h.orderAddr); err != nil || ok {
		t.Fatalf("order appeared despite failed transition")
	}
}

func TestProcessorRollsBackPartialMutation(t *testing.T) {
	h := newHarness(t)
	// A deposit of 5000 exceeds the maker's token balance, so the transition
	// fails only after the rent lamports have already moved inside the
	// overlay. None of it may reach the base.
	_, err := h.processor.Process(h.createInstruction(t, 5_000, 400))
	if !errors.Is(err, swap.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	balance, err := h.mgr.Lamports(h.maker)
	if err != nil || balance != 10_000_000 {
		t.Fatalf("maker lamports = %d, %v, want untouched", balance, err)
	}
	if lamports, err := h.mgr.Lamports(h.orderAddr); err != nil || lamports != 0 {
		t.Fatalf("order account lamports = %d, %v, want 0", lamports, err)
	}
	makerAccount, _, err := h.mgr.TokenAccountGet(h.makerTokenAccount)
	if err != nil {
		t.Fatalf("maker token account: %v", err)
	}
	if makerAccount.Balance != 1_000 {
		t.Fatalf("maker token balance = %d, want 1000", makerAccount.Balance)
	}
}

func TestProcessorRejectsForeignProgram(t *testing.T) {
	h := newHarness(t)
	ix := h.createInstruction(t, 250, 400)
	ix.Program = testAddr(0xee)
	_, err := h.processor.Process(ix)
	if !errors.Is(err, swap.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestProcessorRejectsAccountCountMismatch(t *testing.T) {
	h := newHarness(t)
	ix := h.createInstruction(t, 250, 400)
	ix.Accounts = ix.Accounts[:len(ix.Accounts)-1]
	_, err := h.processor.Process(ix)
	if !errors.Is(err, swap.ErrMalformedRequest) {
		t.Fatalf("err = %v, want ErrMalformedRequest", err)
	}
}

func TestProcessorRejectsMalformedData(t *testing.T) {
	h := newHarness(t)
	ix := h.createInstruction(t, 250, 400)
	ix.Data = ix.Data[:len(ix.Data)-1]
	_, err := h.processor.Process(ix)
	if !errors.Is(err, swap.ErrMalformedRequest) {
		t.Fatalf("err = %v, want ErrMalformedRequest", err)
	}
}
