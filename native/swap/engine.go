package swap

import (
	"errors"
	"fmt"

	"github.com/Rhovian/spl-p2p/core/events"
	"github.com/Rhovian/spl-p2p/core/types"
	"github.com/Rhovian/spl-p2p/native/token"
)

var errNilState = errors.New("swap engine: state not configured")

// engineState is the slice of ledger state the order machine operates on.
type engineState interface {
	token.State
	OrderGet(addr types.Address) (*Order, bool, error)
	OrderPut(addr types.Address, order *Order) error
	OrderDelete(addr types.Address) error
	Lamports(addr types.Address) (uint64, error)
	DebitLamports(addr types.Address, amount uint64) error
	RentMinimumBalance(dataLen int) (uint64, error)
}

// Engine implements the order state machine: five transitions over order
// records and their custody accounts. Handlers run validation first, then
// the escrow custody protocol, and persist the updated record only after
// every check and transfer succeeded. The engine performs no locking of its
// own; the enclosing runtime invokes it once per request and serializes
// access per account.
type Engine struct {
	program types.Address
	state   engineState
	emitter events.Emitter
}

// NewEngine creates an order engine acting under the given program
// identity, with a no-op emitter. Callers can override the emitter via
// SetEmitter.
func NewEngine(program types.Address) *Engine {
	return &Engine{
		program: program,
		emitter: events.NoopEmitter{},
	}
}

// Program returns the identity the engine derives order addresses under.
func (e *Engine) Program() types.Address { return e.program }

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(st engineState) { e.state = st }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(orderEvent{evt: evt})
}

// CreateOrderAccounts lists the accounts the create transition touches, in
// request order.
type CreateOrderAccounts struct {
	Maker               types.Address
	OrderAccount        types.Address
	MakerTokenAccount   types.Address
	CustodyTokenAccount types.Address
	Taker               types.Address
	MakerMint           types.Address
	TakerMint           types.Address
	SystemService       types.Address
	RentSysvar          types.Address
	TokenService        types.Address
}

// AmendAccounts lists the accounts the amend transition touches.
type AmendAccounts struct {
	Maker               types.Address
	OrderAccount        types.Address
	CustodyTokenAccount types.Address
	MakerTokenAccount   types.Address
	TokenService        types.Address
}

// SetTakerAccounts lists the accounts the counterparty reassignment
// touches.
type SetTakerAccounts struct {
	Maker        types.Address
	OrderAccount types.Address
	NewTaker     types.Address
}

// SettleAccounts lists the accounts the settle transition touches.
type SettleAccounts struct {
	Taker               types.Address
	OrderAccount        types.Address
	MakerReceiveAccount types.Address
	TakerSendAccount    types.Address
	TakerReceiveAccount types.Address
	CustodyTokenAccount types.Address
	TokenService        types.Address
}

// CloseAccounts lists the accounts the close transition touches.
type CloseAccounts struct {
	Authority           types.Address
	OrderAccount        types.Address
	CustodyTokenAccount types.Address
	MakerTokenAccount   types.Address
	TokenService        types.Address
}

// CreateOrder allocates the order record at its derived address and escrows
// the maker's deposit in the same transition. The custody account must
// already exist, owned by the derived address and holding the maker's
// asset.
func (e *Engine) CreateOrder(signers SignerSet, accts CreateOrderAccounts, makerAmount, takerAmount uint64) (*Order, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	st := e.state
	if err := requireSigner(signers, accts.Maker); err != nil {
		return nil, err
	}
	if err := validateAmounts(makerAmount, takerAmount); err != nil {
		return nil, err
	}
	if err := validateMint(st, accts.MakerMint); err != nil {
		return nil, err
	}
	if err := validateMint(st, accts.TakerMint); err != nil {
		return nil, err
	}
	svc, err := custodyService(accts.TokenService)
	if err != nil {
		return nil, err
	}
	if err := validateMintService(st, accts.MakerMint, accts.TokenService); err != nil {
		return nil, err
	}
	if err := validateTokenAccount(st, accts.MakerTokenAccount, accts.Maker, accts.MakerMint); err != nil {
		return nil, err
	}
	if err := validateSystemService(accts.SystemService); err != nil {
		return nil, err
	}
	if err := validateRentSysvar(accts.RentSysvar); err != nil {
		return nil, err
	}
	if err := validateTokenAccount(st, accts.CustodyTokenAccount, accts.OrderAccount, accts.MakerMint); err != nil {
		return nil, err
	}

	derived, bump, err := DeriveOrderAddress(e.program, accts.Maker, accts.MakerMint, accts.TakerMint)
	if err != nil {
		return nil, err
	}
	if derived != accts.OrderAccount {
		return nil, fmt.Errorf("%w: %s", ErrAddressMismatch, accts.OrderAccount.Hex())
	}
	if _, ok, err := st.OrderGet(derived); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderExists, derived.Hex())
	}

	rent, err := st.RentMinimumBalance(OrderAccountSize)
	if err != nil {
		return nil, err
	}
	balance, err := st.Lamports(accts.Maker)
	if err != nil {
		return nil, err
	}
	if balance < rent {
		return nil, fmt.Errorf("%w: maker cannot fund order allocation", ErrInsufficientFunds)
	}
	if err := st.DebitLamports(accts.Maker, rent); err != nil {
		return nil, err
	}
	if err := st.CreditLamports(accts.OrderAccount, rent); err != nil {
		return nil, err
	}

	auth := token.NewSignerAuthority(accts.Maker, signers.Signed(accts.Maker))
	if err := svc.Transfer(st, accts.MakerTokenAccount, accts.CustodyTokenAccount, auth, makerAmount); err != nil {
		return nil, mapTokenError(err)
	}

	order := &Order{
		Maker:       accts.Maker,
		Taker:       accts.Taker,
		MakerAsset:  accts.MakerMint,
		TakerAsset:  accts.TakerMint,
		MakerAmount: makerAmount,
		TakerAmount: takerAmount,
		Bump:        bump,
	}
	if err := st.OrderPut(derived, order); err != nil {
		return nil, err
	}
	e.emit(NewOrderCreatedEvent(derived, order))
	return order.Clone(), nil
}

// AmendAmounts reconciles the escrow balance to the new maker amount and
// overwrites both stored amounts. The custody account's actual balance, not
// the possibly stale record, decides the transfer direction, so amendment
// is idempotent with respect to the true escrow level. The taker amount is
// a quoted price only and updates unconditionally.
func (e *Engine) AmendAmounts(signers SignerSet, accts AmendAccounts, newMakerAmount, newTakerAmount uint64) (*Order, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	st := e.state
	order, err := e.authenticateOrder(accts.OrderAccount)
	if err != nil {
		return nil, err
	}
	if err := validateAuthority(signers, accts.Maker, order); err != nil {
		return nil, err
	}
	svc, err := custodyService(accts.TokenService)
	if err != nil {
		return nil, err
	}
	if err := validateMintService(st, order.MakerAsset, accts.TokenService); err != nil {
		return nil, err
	}
	if err := validateTokenAccount(st, accts.CustodyTokenAccount, accts.OrderAccount, order.MakerAsset); err != nil {
		return nil, err
	}
	if err := validateTokenAccount(st, accts.MakerTokenAccount, order.Maker, order.MakerAsset); err != nil {
		return nil, err
	}

	custody, _, err := st.TokenAccountGet(accts.CustodyTokenAccount)
	if err != nil {
		return nil, err
	}
	escrowed := custody.Balance
	switch {
	case newMakerAmount > escrowed:
		auth := token.NewSignerAuthority(accts.Maker, signers.Signed(accts.Maker))
		if err := svc.Transfer(st, accts.MakerTokenAccount, accts.CustodyTokenAccount, auth, newMakerAmount-escrowed); err != nil {
			return nil, mapTokenError(err)
		}
	case newMakerAmount < escrowed:
		auth := custodySigner{order: accts.OrderAccount}
		if err := svc.Transfer(st, accts.CustodyTokenAccount, accts.MakerTokenAccount, auth, escrowed-newMakerAmount); err != nil {
			return nil, mapTokenError(err)
		}
	}

	order.MakerAmount = newMakerAmount
	order.TakerAmount = newTakerAmount
	if err := st.OrderPut(accts.OrderAccount, order); err != nil {
		return nil, err
	}
	e.emit(NewOrderAmendedEvent(accts.OrderAccount, order))
	return order.Clone(), nil
}

// SetTaker overwrites the order's counterparty. The declared new taker must
// literally equal the supplied account's identity, so a caller cannot name
// one identity in the payload while routing the order at another.
func (e *Engine) SetTaker(signers SignerSet, accts SetTakerAccounts, newTaker types.Address) (*Order, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	order, err := e.authenticateOrder(accts.OrderAccount)
	if err != nil {
		return nil, err
	}
	if err := validateAuthority(signers, accts.Maker, order); err != nil {
		return nil, err
	}
	if newTaker != accts.NewTaker {
		return nil, fmt.Errorf("%w: declared taker %s does not match supplied account %s", ErrInvalidArgument, newTaker.Hex(), accts.NewTaker.Hex())
	}
	order.Taker = newTaker
	if err := e.state.OrderPut(accts.OrderAccount, order); err != nil {
		return nil, err
	}
	e.emit(NewTakerUpdatedEvent(accts.OrderAccount, order))
	return order.Clone(), nil
}

// Settle executes both swap legs: a taker-signed transfer of the quoted
// taker amount to the maker and a program-signed transfer of the escrowed
// maker amount to the taker. Either both transfers land or the transition
// aborts. The order record is left unchanged and in place.
func (e *Engine) Settle(signers SignerSet, accts SettleAccounts) (*Order, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	st := e.state
	order, err := e.authenticateOrder(accts.OrderAccount)
	if err != nil {
		return nil, err
	}
	if err := validateTaker(signers, accts.Taker, order); err != nil {
		return nil, err
	}
	svc, err := custodyService(accts.TokenService)
	if err != nil {
		return nil, err
	}
	if err := validateTokenAccount(st, accts.MakerReceiveAccount, order.Maker, order.TakerAsset); err != nil {
		return nil, err
	}
	if err := validateTokenAccount(st, accts.TakerSendAccount, accts.Taker, order.TakerAsset); err != nil {
		return nil, err
	}
	if err := validateTokenAccount(st, accts.TakerReceiveAccount, accts.Taker, order.MakerAsset); err != nil {
		return nil, err
	}
	if err := validateTokenAccount(st, accts.CustodyTokenAccount, accts.OrderAccount, order.MakerAsset); err != nil {
		return nil, err
	}

	custody, _, err := st.TokenAccountGet(accts.CustodyTokenAccount)
	if err != nil {
		return nil, err
	}
	if custody.Balance < order.MakerAmount {
		return nil, fmt.Errorf("%w: escrow holds %d, order requires %d", ErrInsufficientFunds, custody.Balance, order.MakerAmount)
	}

	takerAuth := token.NewSignerAuthority(accts.Taker, signers.Signed(accts.Taker))
	if err := svc.Transfer(st, accts.TakerSendAccount, accts.MakerReceiveAccount, takerAuth, order.TakerAmount); err != nil {
		return nil, mapTokenError(err)
	}
	if err := svc.Transfer(st, accts.CustodyTokenAccount, accts.TakerReceiveAccount, custodySigner{order: accts.OrderAccount}, order.MakerAmount); err != nil {
		return nil, mapTokenError(err)
	}
	e.emit(NewOrderSettledEvent(accts.OrderAccount, order, accts.Taker))
	return order.Clone(), nil
}

// CloseOrder refunds any remaining escrow to the maker, closes the custody
// account, destroys the order record and returns both allocation costs to
// the caller. Whether the order ever settled is not checked.
func (e *Engine) CloseOrder(signers SignerSet, accts CloseAccounts) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	st := e.state
	order, err := e.authenticateOrder(accts.OrderAccount)
	if err != nil {
		return err
	}
	if err := validateAuthority(signers, accts.Authority, order); err != nil {
		return err
	}
	svc, err := custodyService(accts.TokenService)
	if err != nil {
		return err
	}
	if err := validateTokenAccount(st, accts.CustodyTokenAccount, accts.OrderAccount, order.MakerAsset); err != nil {
		return err
	}
	if err := validateTokenAccount(st, accts.MakerTokenAccount, order.Maker, order.MakerAsset); err != nil {
		return err
	}

	capability := custodySigner{order: accts.OrderAccount}
	custody, _, err := st.TokenAccountGet(accts.CustodyTokenAccount)
	if err != nil {
		return err
	}
	refunded := custody.Balance
	if refunded > 0 {
		if err := svc.Transfer(st, accts.CustodyTokenAccount, accts.MakerTokenAccount, capability, refunded); err != nil {
			return mapTokenError(err)
		}
	}
	if err := svc.CloseAccount(st, accts.CustodyTokenAccount, accts.Authority, capability); err != nil {
		return mapTokenError(err)
	}

	rent, err := st.Lamports(accts.OrderAccount)
	if err != nil {
		return err
	}
	if rent > 0 {
		if err := st.DebitLamports(accts.OrderAccount, rent); err != nil {
			return err
		}
		if err := st.CreditLamports(accts.Authority, rent); err != nil {
			return err
		}
	}
	if err := st.OrderDelete(accts.OrderAccount); err != nil {
		return err
	}
	e.emit(NewOrderClosedEvent(accts.OrderAccount, order, refunded))
	return nil
}

// mapTokenError lifts custody-service failures into the transition error
// taxonomy.
func mapTokenError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, token.ErrInsufficientFunds):
		return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
	case errors.Is(err, token.ErrMissingSignature):
		return fmt.Errorf("%w: %v", ErrMissingSigner, err)
	case errors.Is(err, token.ErrMintMismatch), errors.Is(err, token.ErrServiceMismatch), errors.Is(err, token.ErrMintNotFound):
		return fmt.Errorf("%w: %v", ErrAssetDescriptorMismatch, err)
	case errors.Is(err, token.ErrAccountNotFound), errors.Is(err, token.ErrUnauthorized):
		return fmt.Errorf("%w: %v", ErrAccountOwnerMismatch, err)
	default:
		return err
	}
}
