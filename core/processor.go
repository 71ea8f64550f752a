package core

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Rhovian/spl-p2p/core/events"
	"github.com/Rhovian/spl-p2p/core/state"
	"github.com/Rhovian/spl-p2p/core/types"
	"github.com/Rhovian/spl-p2p/native/swap"
	"github.com/Rhovian/spl-p2p/observability"
	"github.com/Rhovian/spl-p2p/storage"
)

// Account counts per transition; the runtime resolves roles by position.
const (
	createOrderAccountLen = 10
	amendAccountLen       = 5
	setTakerAccountLen    = 3
	settleAccountLen      = 7
	closeOrderAccountLen  = 5
)

// Processor applies wire-encoded instructions to the ledger. Each
// instruction runs against a storage overlay and commits only if the whole
// transition succeeded, so a failed precondition leaves no observable
// state. The processor is not safe for concurrent use; the enclosing
// runtime serializes requests per the accounts they declare.
type Processor struct {
	db      storage.Database
	engine  *swap.Engine
	logger  *slog.Logger
	metrics *observability.SwapMetrics
}

// NewProcessor creates a processor applying instructions for the given
// program identity on top of the database.
func NewProcessor(db storage.Database, program types.Address) *Processor {
	return &Processor{
		db:      db,
		engine:  swap.NewEngine(program),
		logger:  slog.Default().With(slog.String("component", "processor")),
		metrics: observability.Swap(),
	}
}

// Process decodes and applies one instruction, returning the events of the
// committed transition.
func (p *Processor) Process(ix swap.Instruction) ([]types.Event, error) {
	start := time.Now()
	op := "unknown"
	evts, err := p.process(ix, &op)
	p.metrics.Observe(op, err, time.Since(start))
	if err != nil {
		p.logger.Debug("instruction rejected", slog.String("op", op), slog.Any("error", err))
		return nil, err
	}
	p.logger.Debug("instruction applied", slog.String("op", op), slog.Int("events", len(evts)))
	return evts, nil
}

func (p *Processor) process(ix swap.Instruction, op *string) ([]types.Event, error) {
	if ix.Program != p.engine.Program() {
		return nil, fmt.Errorf("%w: instruction targets foreign program %s", swap.ErrInvalidArgument, ix.Program.Hex())
	}
	payload, err := swap.DecodeInstruction(ix.Data)
	if err != nil {
		return nil, err
	}
	*op = payload.Tag().String()

	overlay := storage.NewOverlay(p.db)
	mgr := state.NewManager(overlay)
	recorder := &events.Recorder{}
	p.engine.SetState(mgr)
	p.engine.SetEmitter(recorder)
	defer p.engine.SetEmitter(nil)

	signers := ix.Signers()
	addrs := func(i int) types.Address { return ix.Accounts[i].Address }

	switch payload := payload.(type) {
	case swap.CreateOrderPayload:
		if len(ix.Accounts) != createOrderAccountLen {
			return nil, accountCountError(payload.Tag(), createOrderAccountLen, len(ix.Accounts))
		}
		accts := swap.CreateOrderAccounts{
			Maker:               addrs(0),
			OrderAccount:        addrs(1),
			MakerTokenAccount:   addrs(2),
			CustodyTokenAccount: addrs(3),
			Taker:               addrs(4),
			MakerMint:           addrs(5),
			TakerMint:           addrs(6),
			SystemService:       addrs(7),
			RentSysvar:          addrs(8),
			TokenService:        addrs(9),
		}
		_, err = p.engine.CreateOrder(signers, accts, payload.MakerAmount, payload.TakerAmount)
	case swap.AmendAmountsPayload:
		if len(ix.Accounts) != amendAccountLen {
			return nil, accountCountError(payload.Tag(), amendAccountLen, len(ix.Accounts))
		}
		accts := swap.AmendAccounts{
			Maker:               addrs(0),
			OrderAccount:        addrs(1),
			CustodyTokenAccount: addrs(2),
			MakerTokenAccount:   addrs(3),
			TokenService:        addrs(4),
		}
		_, err = p.engine.AmendAmounts(signers, accts, payload.NewMakerAmount, payload.NewTakerAmount)
	case swap.SetTakerPayload:
		if len(ix.Accounts) != setTakerAccountLen {
			return nil, accountCountError(payload.Tag(), setTakerAccountLen, len(ix.Accounts))
		}
		accts := swap.SetTakerAccounts{
			Maker:        addrs(0),
			OrderAccount: addrs(1),
			NewTaker:     addrs(2),
		}
		_, err = p.engine.SetTaker(signers, accts, payload.NewTaker)
	case swap.SettlePayload:
		if len(ix.Accounts) != settleAccountLen {
			return nil, accountCountError(payload.Tag(), settleAccountLen, len(ix.Accounts))
		}
		accts := swap.SettleAccounts{
			Taker:               addrs(0),
			OrderAccount:        addrs(1),
			MakerReceiveAccount: addrs(2),
			TakerSendAccount:    addrs(3),
			TakerReceiveAccount: addrs(4),
			CustodyTokenAccount: addrs(5),
			TokenService:        addrs(6),
		}
		_, err = p.engine.Settle(signers, accts)
	case swap.CloseOrderPayload:
		if len(ix.Accounts) != closeOrderAccountLen {
			return nil, accountCountError(payload.Tag(), closeOrderAccountLen, len(ix.Accounts))
		}
		accts := swap.CloseAccounts{
			Authority:           addrs(0),
			OrderAccount:        addrs(1),
			CustodyTokenAccount: addrs(2),
			MakerTokenAccount:   addrs(3),
			TokenService:        addrs(4),
		}
		err = p.engine.CloseOrder(signers, accts)
	default:
		return nil, fmt.Errorf("%w: unhandled payload %T", swap.ErrMalformedRequest, payload)
	}
	if err != nil {
		return nil, err
	}
	if err := overlay.Commit(); err != nil {
		return nil, err
	}
	return collectEvents(recorder), nil
}

func accountCountError(tag swap.InstructionTag, want, got int) error {
	return fmt.Errorf("%w: %s expects %d accounts, got %d", swap.ErrMalformedRequest, tag, want, got)
}

func collectEvents(recorder *events.Recorder) []types.Event {
	recorded := recorder.Events()
	out := make([]types.Event, 0, len(recorded))
	for _, evt := range recorded {
		carrier, ok := evt.(interface{ Event() *types.Event })
		if !ok || carrier.Event() == nil {
			continue
		}
		out = append(out, *carrier.Event())
	}
	return out
}
