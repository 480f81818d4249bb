package lending_test

import (
	"testing"

	"github.com/holiman/uint256"

	"isoledger/core/events"
	"isoledger/core/journal"
	"isoledger/crypto"
	"isoledger/native/irm"
	"isoledger/native/lending"
	"isoledger/native/oracle"
	"isoledger/native/registry"
	"isoledger/native/token"
)

const startTime = 1_700_000_000

var (
	wad       = uint256.NewInt(1_000_000_000_000_000_000)
	lltv80    = uint256.NewInt(800_000_000_000_000_000)
	unitPrice = lending.OraclePriceScale
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

// percentPrice returns an oracle price of pct/100 loan units per collateral
// unit.
func percentPrice(pct uint64) *uint256.Int {
	return new(uint256.Int).Div(new(uint256.Int).Mul(unitPrice, u(pct)), u(100))
}

type fixture struct {
	t        *testing.T
	journal  *journal.Journal
	registry *registry.Registry
	engine   *lending.Engine
	recorder *events.Recorder

	loan       *token.Token
	collateral *token.Token
	feed       *oracle.Static
	params     lending.MarketParams
	id         lending.MarketID

	ledger crypto.Address
	owner  crypto.Address
	now    uint64
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	model    lending.RateModel
	adaptive bool
}

// withRate makes the market charge a fixed per-second rate.
func withRate(rate *uint256.Int) fixtureOption {
	return func(c *fixtureConfig) { c.model = irm.Fixed{Rate: rate} }
}

// withAdaptiveCurve makes the market use the adaptive curve model with the
// default parameters.
func withAdaptiveCurve() fixtureOption {
	return func(c *fixtureConfig) { c.adaptive = true }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	cfg := fixtureConfig{model: irm.Fixed{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	f := &fixture{
		t:        t,
		journal:  journal.New(),
		registry: registry.New(),
		recorder: &events.Recorder{},
		ledger:   crypto.DeriveAddress("ledger"),
		owner:    crypto.DeriveAddress("owner"),
		now:      startTime,
	}
	f.loan = token.New("LOAN", 18, f.journal)
	f.collateral = token.New("COLL", 18, f.journal)
	f.feed = oracle.NewStatic(unitPrice)

	if cfg.adaptive {
		model, err := irm.NewAdaptiveCurve(f.ledger, irm.DefaultParams())
		if err != nil {
			t.Fatalf("adaptive curve: %v", err)
		}
		cfg.model = model
	}

	f.params = lending.MarketParams{
		LoanToken:       crypto.DeriveAddress("loan-token"),
		CollateralToken: crypto.DeriveAddress("collateral-token"),
		Oracle:          crypto.DeriveAddress("oracle"),
		IRM:             crypto.DeriveAddress("irm"),
		LLTV:            *lltv80,
	}
	mustNoErr(t, f.registry.RegisterToken(f.params.LoanToken, "loan", f.loan))
	mustNoErr(t, f.registry.RegisterToken(f.params.CollateralToken, "collateral", f.collateral))
	mustNoErr(t, f.registry.RegisterOracle(f.params.Oracle, "oracle", f.feed))
	mustNoErr(t, f.registry.RegisterRateModel(f.params.IRM, "irm", cfg.model))

	engine, err := lending.NewEngine(lending.Config{
		Address:  f.ledger,
		Owner:    f.owner,
		Resolver: f.registry,
		Journal:  f.journal,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	f.engine = engine
	f.engine.SetEmitter(f.recorder)

	mustNoErr(t, f.engine.EnableIRM(f.env(f.owner), f.params.IRM))
	mustNoErr(t, f.engine.EnableLLTV(f.env(f.owner), lltv80))
	id, err := f.engine.CreateMarket(f.env(f.owner), f.params)
	if err != nil {
		t.Fatalf("create market: %v", err)
	}
	f.id = id
	f.recorder.Reset()
	return f
}

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func (f *fixture) env(sender crypto.Address) lending.Env {
	return lending.Env{Sender: sender, Now: f.now}
}

func (f *fixture) advance(seconds uint64) { f.now += seconds }

// fund mints amount of tok to who and grants the ledger an unlimited
// allowance.
func (f *fixture) fund(tok *token.Token, who crypto.Address, amount uint64) {
	f.t.Helper()
	mustNoErr(f.t, tok.Mint(who, u(amount)))
	mustNoErr(f.t, tok.Approve(who, f.ledger, new(uint256.Int).SetAllOne()))
}

func (f *fixture) supply(who crypto.Address, assets uint64) {
	f.t.Helper()
	f.fund(f.loan, who, assets)
	if _, _, err := f.engine.Supply(f.env(who), f.params, u(assets), nil, who, nil); err != nil {
		f.t.Fatalf("supply: %v", err)
	}
}

func (f *fixture) supplyCollateral(who crypto.Address, assets uint64) {
	f.t.Helper()
	f.fund(f.collateral, who, assets)
	if err := f.engine.SupplyCollateral(f.env(who), f.params, u(assets), who, nil); err != nil {
		f.t.Fatalf("supply collateral: %v", err)
	}
}

func (f *fixture) borrow(who crypto.Address, assets uint64) {
	f.t.Helper()
	if _, _, err := f.engine.Borrow(f.env(who), f.params, u(assets), nil, who, who); err != nil {
		f.t.Fatalf("borrow: %v", err)
	}
}

func (f *fixture) market() lending.Market {
	f.t.Helper()
	m, ok := f.engine.Market(f.id)
	if !ok {
		f.t.Fatalf("market %s missing", f.id)
	}
	return m
}

func (f *fixture) position(who crypto.Address) *lending.Position {
	pos := f.engine.Position(f.id, who)
	return &pos
}

// snapshot captures everything a failed call must leave untouched.
type snapshot struct {
	market       lending.Market
	positions    map[crypto.Address]lending.Position
	loanBals     map[crypto.Address]string
	collBals     map[crypto.Address]string
	eventCount   int
	rateAtTarget string
}

func (f *fixture) snapshot(accounts ...crypto.Address) snapshot {
	s := snapshot{
		market:     f.market(),
		positions:  make(map[crypto.Address]lending.Position),
		loanBals:   make(map[crypto.Address]string),
		collBals:   make(map[crypto.Address]string),
		eventCount: len(f.recorder.Events()),
	}
	accounts = append(accounts, f.ledger)
	for _, a := range accounts {
		s.positions[a] = *f.position(a)
		s.loanBals[a] = f.loan.BalanceOf(a).Dec()
		s.collBals[a] = f.collateral.BalanceOf(a).Dec()
	}
	if model, ok := f.registry.RateModel(f.params.IRM); ok {
		if curve, ok := model.(*irm.AdaptiveCurve); ok {
			s.rateAtTarget = curve.RateAtTarget(f.id).String()
		}
	}
	return s
}

func (f *fixture) requireUnchanged(before snapshot) {
	f.t.Helper()
	accounts := make([]crypto.Address, 0, len(before.positions))
	for a := range before.positions {
		accounts = append(accounts, a)
	}
	after := f.snapshot(accounts...)
	if after.market != before.market {
		f.t.Fatalf("market changed: before %+v after %+v", before.market, after.market)
	}
	for a, pos := range before.positions {
		if after.positions[a] != pos {
			f.t.Fatalf("position of %s changed: before %+v after %+v", a, pos, after.positions[a])
		}
		if after.loanBals[a] != before.loanBals[a] || after.collBals[a] != before.collBals[a] {
			f.t.Fatalf("balances of %s changed", a)
		}
	}
	if after.eventCount != before.eventCount {
		f.t.Fatalf("events emitted by a failed call: %v", f.recorder.Types()[before.eventCount:])
	}
	if after.rateAtTarget != before.rateAtTarget {
		f.t.Fatalf("rate at target changed: before %s after %s", before.rateAtTarget, after.rateAtTarget)
	}
}
