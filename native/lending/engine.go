package lending

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"isoledger/core/events"
	"isoledger/core/journal"
	"isoledger/crypto"
	nativecommon "isoledger/native/common"
	"isoledger/native/lending/mathlib"
	"isoledger/native/lending/sharesmath"
)

// Config wires a ledger to its identity and collaborators.
type Config struct {
	// Address is the ledger's own account. Tokens are held here and rate
	// models only accept authoritative queries from it.
	Address crypto.Address
	// Owner administers the allow-lists, fees and the fee recipient.
	Owner crypto.Address
	// Resolver finds the tokens, oracles, rate models and callback handlers
	// behind addresses.
	Resolver Resolver
	// Journal records undo actions. Tokens that share it roll back together
	// with the ledger when a call fails. A private journal is used when nil.
	Journal *journal.Journal
}

type stagedRate struct {
	model RateModel
	id    MarketID
	quote RateQuote
}

// Engine is the isolated-market lending ledger. It applies one call at a time
// and is not safe for concurrent use.
//
// Every mutating call is all-or-nothing: on failure the ledger state, token
// balances recorded in the shared journal, buffered events and staged rate
// model updates are discarded. Calls made from inside a callback nest inside
// the outer call.
type Engine struct {
	address      crypto.Address
	resolver     Resolver
	journal      *journal.Journal
	state        *ledgerState
	emitter      events.Emitter
	pauses       nativecommon.PauseView
	actionPauses ActionPauses

	depth         int
	callNow       uint64
	pendingEvents []events.Event
	pendingRates  []stagedRate
}

// NewEngine constructs a ledger owned by cfg.Owner.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Address.IsZero() || cfg.Owner.IsZero() {
		return nil, ErrZeroAddress
	}
	if cfg.Resolver == nil {
		return nil, ErrNotConfigured
	}
	j := cfg.Journal
	if j == nil {
		j = journal.New()
	}
	return &Engine{
		address:  cfg.Address,
		resolver: cfg.Resolver,
		journal:  j,
		state:    newLedgerState(j, cfg.Owner),
		emitter:  events.NoopEmitter{},
	}, nil
}

// Address returns the ledger's own account.
func (e *Engine) Address() crypto.Address { return e.address }

// SetEmitter configures the sink receiving events of successful calls.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

// SetPauses wires the module-wide pause switch.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetActionPauses configures the per-flow pause switches.
func (e *Engine) SetActionPauses(p ActionPauses) {
	if e == nil {
		return
	}
	e.actionPauses = p
}

// ActionPauses returns the per-flow pause switches.
func (e *Engine) ActionPauses() ActionPauses { return e.actionPauses }

func (e *Engine) guard(actionPaused bool) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if actionPaused {
		return ErrActionPaused
	}
	return nil
}

// execute runs fn as one all-or-nothing unit. Arithmetic panics raised by
// mathlib surface as ErrArithmetic. Calls nested through a callback must run
// at the timestamp of the outermost call.
func (e *Engine) execute(env Env, fn func() error) (err error) {
	if e.depth > 0 && env.Now != e.callNow {
		return fmt.Errorf("%w: outer call at %d, nested call at %d", ErrTimestampMismatch, e.callNow, env.Now)
	}
	if e.depth == 0 {
		e.callNow = env.Now
	}
	snapshot := e.journal.Snapshot()
	eventMark, rateMark := len(e.pendingEvents), len(e.pendingRates)
	rollback := func() {
		e.journal.RevertToSnapshot(snapshot)
		e.pendingEvents = e.pendingEvents[:eventMark]
		e.pendingRates = e.pendingRates[:rateMark]
	}

	e.depth++
	defer func() {
		e.depth--
		if r := recover(); r != nil {
			rollback()
			panic(r)
		}
		err = wrapArithmetic(err)
		if err != nil {
			rollback()
			return
		}
		if e.depth == 0 {
			if ferr := e.finalize(); ferr != nil {
				rollback()
				err = ferr
			}
		}
	}()
	defer mathlib.Catch(&err)
	return fn()
}

// finalize applies the staged rate model updates and publishes the buffered
// events of a successful outermost call.
func (e *Engine) finalize() error {
	for _, staged := range e.pendingRates {
		if err := staged.model.Commit(e.address, staged.id, staged.quote); err != nil {
			return fmt.Errorf("lending: commit rate for market %s: %w", staged.id, err)
		}
	}
	e.pendingRates = e.pendingRates[:0]
	e.journal.Reset()

	published := e.pendingEvents
	e.pendingEvents = nil
	for _, evt := range published {
		e.emitter.Emit(evt)
	}
	return nil
}

func wrapArithmetic(err error) error {
	var mathErr mathlib.Error
	if err != nil && errors.As(err, &mathErr) && !errors.Is(err, ErrArithmetic) {
		return fmt.Errorf("%w: %w", ErrArithmetic, err)
	}
	return err
}

func (e *Engine) emit(evt events.Event) {
	e.pendingEvents = append(e.pendingEvents, evt)
}

func (e *Engine) requireMarket(params MarketParams) (MarketID, error) {
	id := params.ID()
	if _, ok := e.state.market(id); !ok {
		return id, ErrMarketNotCreated
	}
	return id, nil
}

// mustMarket returns a market whose existence was already checked.
func (e *Engine) mustMarket(id MarketID) Market {
	m, ok := e.state.market(id)
	if !ok {
		panic(fmt.Sprintf("lending: market %s vanished", id))
	}
	return m
}

func (e *Engine) isSenderAuthorized(sender, onBehalf crypto.Address) bool {
	return sender == onBehalf || e.state.isAuthorized(onBehalf, sender)
}

func (e *Engine) token(addr crypto.Address) (Token, error) {
	t, ok := e.resolver.Token(addr)
	if !ok || t == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, addr)
	}
	return t, nil
}

func (e *Engine) oracle(addr crypto.Address) (Oracle, error) {
	o, ok := e.resolver.Oracle(addr)
	if !ok || o == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOracle, addr)
	}
	return o, nil
}

func (e *Engine) rateModel(addr crypto.Address) (RateModel, error) {
	m, ok := e.resolver.RateModel(addr)
	if !ok || m == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRateModel, addr)
	}
	return m, nil
}

func (e *Engine) contract(addr crypto.Address) any {
	c, ok := e.resolver.Contract(addr)
	if !ok {
		return nil
	}
	return c
}

func (e *Engine) pull(tokenAddr, from crypto.Address, amount *uint256.Int) error {
	t, err := e.token(tokenAddr)
	if err != nil {
		return err
	}
	if err := t.TransferFrom(e.address, from, e.address, amount); err != nil {
		return fmt.Errorf("lending: pull %s from %s: %w", amount.Dec(), from, err)
	}
	return nil
}

func (e *Engine) push(tokenAddr, to crypto.Address, amount *uint256.Int) error {
	t, err := e.token(tokenAddr)
	if err != nil {
		return err
	}
	if err := t.Transfer(e.address, to, amount); err != nil {
		return fmt.Errorf("lending: send %s to %s: %w", amount.Dec(), to, err)
	}
	return nil
}

// price reads the oracle of a market.
func (e *Engine) price(params MarketParams) (*uint256.Int, error) {
	o, err := e.oracle(params.Oracle)
	if err != nil {
		return nil, err
	}
	p, err := o.Price()
	if err != nil {
		return nil, fmt.Errorf("lending: oracle price: %w", err)
	}
	if p == nil {
		return new(uint256.Int), nil
	}
	return p, nil
}

// isHealthy reports whether the borrower's collateral covers their debt at
// the market's liquidation LTV. The oracle is only consulted when the
// borrower holds debt.
func (e *Engine) isHealthy(params MarketParams, id MarketID, borrower crypto.Address) (bool, error) {
	pos := e.state.position(id, borrower)
	if pos.BorrowShares.IsZero() {
		return true, nil
	}
	price, err := e.price(params)
	if err != nil {
		return false, err
	}
	return e.isHealthyAt(params, e.mustMarket(id), pos, price), nil
}

func (e *Engine) isHealthyAt(params MarketParams, m Market, pos Position, price *uint256.Int) bool {
	if pos.BorrowShares.IsZero() {
		return true
	}
	borrowed := sharesmath.ToAssetsUp(&pos.BorrowShares, &m.TotalBorrowAssets, &m.TotalBorrowShares)
	maxBorrow := mathlib.WMulDown(mathlib.MulDivDown(&pos.Collateral, price, OraclePriceScale), &params.LLTV)
	return maxBorrow.Cmp(borrowed) >= 0
}

func amountOrZero(x *uint256.Int) *uint256.Int {
	if x == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(x)
}

func increase(dst, delta *uint256.Int) { dst.Set(mathlib.Add(dst, delta)) }

func decrease(dst, delta *uint256.Int) { dst.Set(mathlib.Sub(dst, delta)) }
