package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"isoledger/config"
	"isoledger/crypto"
	nativecommon "isoledger/native/common"
	"isoledger/native/lending"
	"isoledger/observability"
	"isoledger/observability/metrics"
)

var (
	// ErrUnexpectedOutcome reports that at least one step failed when it
	// should have succeeded, or the reverse.
	ErrUnexpectedOutcome = errors.New("sim: unexpected step outcome")
	ErrNoSigner          = errors.New("sim: no signing key configured")
	ErrUnknownMarket     = errors.New("sim: unknown market")
	ErrUnknownToken      = errors.New("sim: unknown token")
	ErrUnknownOracle     = errors.New("sim: unknown oracle")
	ErrUnknownFlow       = errors.New("sim: unknown pause flow")
)

const defaultSignatureLifetime = 3_600

// MarketObserver receives the totals of every market after each step.
type MarketObserver interface {
	ObserveMarket(id lending.MarketID, market lending.Market)
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger routes step logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRunID tags logs and the report with id instead of a random one.
func WithRunID(id string) Option {
	return func(r *Runner) {
		if strings.TrimSpace(id) != "" {
			r.runID = id
		}
	}
}

// WithSigner binds the signer account to key.
func WithSigner(key *crypto.PrivateKey) Option {
	return func(r *Runner) { r.signer = key }
}

// WithObserver replaces the process-wide lending metrics.
func WithObserver(o MarketObserver) Option {
	return func(r *Runner) { r.observer = o }
}

// flashBorrower holds a flash loan for the duration of the callback and
// lets the ledger pull it back.
type flashBorrower struct{}

func (flashBorrower) OnFlashLoan(lending.Env, *uint256.Int, []byte) error { return nil }

// Runner executes scenarios against one deployment.
type Runner struct {
	dep      *Deployment
	logger   *slog.Logger
	runID    string
	quota    nativecommon.Quota
	usage    map[crypto.Address]nativecommon.QuotaUsage
	signer   *crypto.PrivateKey
	observer MarketObserver
	flash    crypto.Address
	accounts []string
	now      uint64
}

// NewRunner prepares a runner. Per-account quotas come from the deployment
// config.
func NewRunner(dep *Deployment, opts ...Option) (*Runner, error) {
	if dep == nil || dep.Engine == nil {
		return nil, fmt.Errorf("sim: deployment required")
	}
	q := dep.Config.Quota
	r := &Runner{
		dep:    dep,
		logger: slog.Default(),
		runID:  uuid.NewString(),
		quota: nativecommon.Quota{
			MaxCallsPerEpoch:  q.MaxCallsPerEpoch,
			MaxVolumePerEpoch: q.MaxVolumePerEpoch,
			EpochSeconds:      q.EpochSeconds,
		},
		usage:    make(map[crypto.Address]nativecommon.QuotaUsage),
		observer: metrics.Lending(),
		flash:    crypto.DeriveAddress("flash-borrower"),
		now:      dep.Start,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(slog.String("run_id", r.runID))

	if err := dep.Registry.RegisterContract(r.flash, "flash-borrower", flashBorrower{}); err != nil {
		return nil, err
	}
	for name, info := range dep.Tokens {
		if err := info.Token.Approve(r.flash, dep.Ledger, unlimited()); err != nil {
			return nil, fmt.Errorf("approve %s: %w", name, err)
		}
	}
	return r, nil
}

// RunID identifies the run in logs and in the report.
func (r *Runner) RunID() string { return r.runID }

// Now is the current scenario time.
func (r *Runner) Now() uint64 { return r.now }

func unlimited() *uint256.Int { return new(uint256.Int).SetAllOne() }

// Run funds the scenario accounts and applies every step. A step whose
// outcome differs from its expectation does not stop the run; Run reports
// ErrUnexpectedOutcome once all steps were applied.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Report, error) {
	if sc.Start > r.now {
		r.now = sc.Start
	}
	if err := r.fund(sc.Accounts); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:       r.runID,
		Scenario:    sc.Name,
		Service:     r.dep.Config.Service,
		Environment: r.dep.Config.Environment,
		Start:       r.now,
	}
	r.logger.Info("scenario started", slog.String("scenario", sc.Name), slog.Int("steps", len(sc.Steps)))
	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res := r.runStep(i, step)
		if !res.Matched {
			report.Failures++
		}
		report.Steps = append(report.Steps, res)
		r.observeMarkets()
	}
	report.End = r.now
	report.Markets = r.marketReports()
	report.Positions = r.positionReports()
	r.logger.Info("scenario finished", slog.Int("failures", report.Failures), slog.Uint64("end", r.now))

	if report.Failures > 0 {
		return report, fmt.Errorf("%w: %d of %d steps", ErrUnexpectedOutcome, report.Failures, len(sc.Steps))
	}
	return report, nil
}

func (r *Runner) fund(accounts []Account) error {
	for _, acct := range accounts {
		addr, err := r.account(acct.Name)
		if err != nil {
			return fmt.Errorf("account %s: %w", acct.Name, err)
		}
		r.accounts = append(r.accounts, acct.Name)
		for name, info := range r.dep.Tokens {
			if err := info.Token.Approve(addr, r.dep.Ledger, unlimited()); err != nil {
				return fmt.Errorf("account %s: approve %s: %w", acct.Name, name, err)
			}
		}
		for name, raw := range acct.Funds {
			info, ok := r.dep.Tokens[name]
			if !ok {
				return fmt.Errorf("account %s: %w %q", acct.Name, ErrUnknownToken, name)
			}
			amount, err := config.ParseUnits(raw, info.Token.Decimals())
			if err != nil {
				return fmt.Errorf("account %s: %w", acct.Name, err)
			}
			if err := info.Token.Mint(addr, amount); err != nil {
				return fmt.Errorf("account %s: mint %s: %w", acct.Name, name, err)
			}
		}
	}
	return nil
}

func (r *Runner) runStep(index int, step Step) StepResult {
	start := time.Now()
	err := r.apply(step)
	if isLedgerCall(step.Action) {
		observability.Calls().Observe(lendingModule, step.Action, err, time.Since(start))
	}

	res := StepResult{Index: index, Action: step.Action, Actor: step.Actor, Time: r.now, OK: err == nil, Expect: step.Expect}
	if err != nil {
		res.Error = err.Error()
	}
	if step.Expect == "" {
		res.Matched = err == nil
	} else {
		res.Matched = err != nil && strings.Contains(err.Error(), step.Expect)
	}

	attrs := []any{
		slog.Int("step", index),
		slog.String("action", step.Action),
		slog.String("actor", step.Actor),
	}
	switch {
	case !res.Matched:
		r.logger.Warn("step outcome unexpected", append(attrs, slog.String("error", res.Error), slog.String("expect", step.Expect))...)
	case err != nil:
		r.logger.Debug("step failed as expected", append(attrs, slog.String("error", res.Error))...)
	default:
		r.logger.Debug("step applied", attrs...)
	}
	return res
}

func isLedgerCall(action string) bool {
	switch action {
	case ActionAdvance, ActionSetPrice, ActionPause, ActionResume:
		return false
	}
	return true
}

func (r *Runner) apply(step Step) error {
	switch step.Action {
	case ActionAdvance:
		r.now += step.Seconds
		return nil
	case ActionSetPrice:
		return r.setPrice(step)
	case ActionPause, ActionResume:
		return r.setPaused(step.Flow, step.Action == ActionPause)
	case ActionSetFee:
		return r.setFee(step)
	case ActionAuthorize:
		return r.authorize(step)
	case ActionAuthorizeWithSig:
		return r.authorizeWithSig(step)
	case ActionFlashLoan:
		return r.flashLoan(step)
	}

	m, err := r.market(step.Market)
	if err != nil {
		return err
	}
	actor, err := r.account(step.Actor)
	if err != nil {
		return err
	}
	onBehalf, err := r.accountOr(step.OnBehalf, actor)
	if err != nil {
		return err
	}
	receiver, err := r.accountOr(step.Receiver, actor)
	if err != nil {
		return err
	}
	env := r.env(actor)
	engine := r.dep.Engine
	pos := engine.Position(m.ID, onBehalf)

	switch step.Action {
	case ActionSupply:
		assets, shares, err := r.amounts(m.Loan, step, &pos.SupplyShares)
		if err != nil {
			return err
		}
		if err := r.charge(actor, m.Loan, assets); err != nil {
			return err
		}
		_, _, err = engine.Supply(env, m.Params, assets, shares, onBehalf, nil)
		return err
	case ActionWithdraw:
		assets, shares, err := r.amounts(m.Loan, step, &pos.SupplyShares)
		if err != nil {
			return err
		}
		if err := r.charge(actor, m.Loan, assets); err != nil {
			return err
		}
		_, _, err = engine.Withdraw(env, m.Params, assets, shares, onBehalf, receiver)
		return err
	case ActionBorrow:
		assets, shares, err := r.amounts(m.Loan, step, &pos.BorrowShares)
		if err != nil {
			return err
		}
		if err := r.charge(actor, m.Loan, assets); err != nil {
			return err
		}
		_, _, err = engine.Borrow(env, m.Params, assets, shares, onBehalf, receiver)
		return err
	case ActionRepay:
		assets, shares, err := r.amounts(m.Loan, step, &pos.BorrowShares)
		if err != nil {
			return err
		}
		if err := r.charge(actor, m.Loan, assets); err != nil {
			return err
		}
		_, _, err = engine.Repay(env, m.Params, assets, shares, onBehalf, nil)
		return err
	case ActionSupplyCollateral:
		assets, err := r.assets(m.Collateral, step.Amount)
		if err != nil {
			return err
		}
		if err := r.charge(actor, m.Collateral, assets); err != nil {
			return err
		}
		return engine.SupplyCollateral(env, m.Params, assets, onBehalf, nil)
	case ActionWithdrawCollateral:
		assets, err := r.assets(m.Collateral, step.Amount)
		if err != nil {
			return err
		}
		if step.Amount == "all" {
			assets = new(uint256.Int).Set(&pos.Collateral)
		}
		if err := r.charge(actor, m.Collateral, assets); err != nil {
			return err
		}
		return engine.WithdrawCollateral(env, m.Params, assets, onBehalf, receiver)
	case ActionLiquidate:
		return r.liquidate(env, m, step)
	case ActionAccrue:
		if err := r.charge(actor, "", nil); err != nil {
			return err
		}
		return engine.AccrueInterest(env, m.Params)
	}
	return fmt.Errorf("sim: unhandled action %q", step.Action)
}

func (r *Runner) liquidate(env lending.Env, m MarketInfo, step Step) error {
	borrower, err := r.account(step.Borrower)
	if err != nil {
		return fmt.Errorf("borrower: %w", err)
	}
	seized, err := r.assets(m.Collateral, step.Seize)
	if err != nil {
		return err
	}
	pos := r.dep.Engine.Position(m.ID, borrower)
	shares, err := parseShares(step.Shares, &pos.BorrowShares)
	if err != nil {
		return err
	}
	if err := r.charge(env.Sender, m.Collateral, seized); err != nil {
		return err
	}
	_, _, err = r.dep.Engine.Liquidate(env, m.Params, borrower, seized, shares, nil)
	return err
}

func (r *Runner) flashLoan(step Step) error {
	info, ok := r.dep.Tokens[step.Token]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownToken, step.Token)
	}
	actor, err := r.account(step.Actor)
	if err != nil {
		return err
	}
	assets, err := r.assets(step.Token, step.Amount)
	if err != nil {
		return err
	}
	if err := r.charge(actor, step.Token, assets); err != nil {
		return err
	}
	return r.dep.Engine.FlashLoan(r.env(r.flash), info.Address, assets, []byte(step.Actor))
}

func (r *Runner) authorize(step Step) error {
	actor, err := r.account(step.Actor)
	if err != nil {
		return err
	}
	operator, err := r.account(step.Operator)
	if err != nil {
		return fmt.Errorf("operator: %w", err)
	}
	if err := r.charge(actor, "", nil); err != nil {
		return err
	}
	return r.dep.Engine.SetAuthorization(r.env(actor), operator, !step.Revoke)
}

// authorizeWithSig has the signer sign an authorization that the actor
// relays to the ledger.
func (r *Runner) authorizeWithSig(step Step) error {
	if r.signer == nil {
		return ErrNoSigner
	}
	relayer, err := r.account(step.Actor)
	if err != nil {
		return err
	}
	operator, err := r.account(step.Operator)
	if err != nil {
		return fmt.Errorf("operator: %w", err)
	}
	lifetime := step.Deadline
	if lifetime == 0 {
		lifetime = defaultSignatureLifetime
	}
	authorizer := r.signer.PubKey().Address()
	auth := lending.Authorization{
		Authorizer:   authorizer,
		Authorized:   operator,
		IsAuthorized: !step.Revoke,
		Nonce:        r.dep.Engine.Nonce(authorizer),
		Deadline:     r.now + lifetime,
	}
	digest := lending.AuthorizationDigest(r.dep.Ledger, auth)
	sig, err := r.signer.Sign(digest[:])
	if err != nil {
		return fmt.Errorf("sign authorization: %w", err)
	}
	if err := r.charge(relayer, "", nil); err != nil {
		return err
	}
	return r.dep.Engine.SetAuthorizationWithSig(r.env(relayer), auth, sig)
}

func (r *Runner) setPrice(step Step) error {
	info, ok := r.dep.Oracles[step.Oracle]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownOracle, step.Oracle)
	}
	price, err := r.dep.scaledPrice(config.Oracle{
		Name:       step.Oracle,
		Collateral: info.Collateral,
		Loan:       info.Loan,
		Price:      step.Price,
	})
	if err != nil {
		return err
	}
	info.Feed.SetPrice(price)
	return nil
}

func (r *Runner) setFee(step Step) error {
	m, err := r.market(step.Market)
	if err != nil {
		return err
	}
	fee, err := config.ParseWad(step.Fee)
	if err != nil {
		return fmt.Errorf("fee: %w", err)
	}
	return r.dep.Engine.SetFee(r.env(r.dep.Owner), m.Params, fee)
}

func (r *Runner) setPaused(flow string, paused bool) error {
	engine := r.dep.Engine
	p := engine.ActionPauses()
	switch strings.ToLower(strings.TrimSpace(flow)) {
	case lendingModule, "":
		r.dep.Pauses.Set(lendingModule, paused)
		return nil
	case "supply":
		p.Supply = paused
	case "borrow":
		p.Borrow = paused
	case "repay":
		p.Repay = paused
	case "liquidate":
		p.Liquidate = paused
	default:
		return fmt.Errorf("%w %q", ErrUnknownFlow, flow)
	}
	engine.SetActionPauses(p)
	return nil
}

// charge counts one call and the moved volume, in whole tokens, against the
// actor's quota.
func (r *Runner) charge(actor crypto.Address, tokenName string, amount *uint256.Int) error {
	var volume uint64
	if amount != nil && tokenName != "" {
		whole := new(uint256.Int).Div(amount, new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(r.dep.tokenDecimals(tokenName)))))
		volume = math.MaxUint64
		if whole.IsUint64() {
			volume = whole.Uint64()
		}
	}
	next, err := nativecommon.CheckQuota(r.quota, r.quota.Epoch(r.now), r.usage[actor], 1, volume)
	if err != nil {
		observability.Calls().RecordThrottle(lendingModule, observability.ErrorCode(err))
		return err
	}
	r.usage[actor] = next
	return nil
}

func (r *Runner) env(sender crypto.Address) lending.Env {
	return lending.Env{Sender: sender, Now: r.now}
}

func (r *Runner) account(name string) (crypto.Address, error) {
	if name == SignerAccount && r.signer != nil {
		return r.signer.PubKey().Address(), nil
	}
	return config.ResolveAddress(name)
}

func (r *Runner) accountOr(name string, fallback crypto.Address) (crypto.Address, error) {
	if strings.TrimSpace(name) == "" {
		return fallback, nil
	}
	return r.account(name)
}

// market resolves a market by name. The name may be omitted when the
// deployment has a single market.
func (r *Runner) market(name string) (MarketInfo, error) {
	if name == "" && len(r.dep.Markets) == 1 {
		return r.dep.Markets[0], nil
	}
	m, ok := r.dep.Market(name)
	if !ok {
		return MarketInfo{}, fmt.Errorf("%w %q", ErrUnknownMarket, name)
	}
	return m, nil
}

// assets parses a human amount of tokenName. An empty amount is nil.
func (r *Runner) assets(tokenName, raw string) (*uint256.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "all" {
		return nil, nil
	}
	info, ok := r.dep.Tokens[tokenName]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownToken, tokenName)
	}
	return config.ParseUnits(raw, info.Token.Decimals())
}

// amounts parses the asset amount and the share amount of a step. Shares
// may be "all" to use every share held.
func (r *Runner) amounts(tokenName string, step Step, held *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	assets, err := r.assets(tokenName, step.Amount)
	if err != nil {
		return nil, nil, err
	}
	shares, err := parseShares(step.Shares, held)
	if err != nil {
		return nil, nil, err
	}
	return assets, shares, nil
}

func parseShares(raw string, held *uint256.Int) (*uint256.Int, error) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "":
		return nil, nil
	case "all":
		return new(uint256.Int).Set(held), nil
	}
	shares, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, fmt.Errorf("shares %q: %w", raw, err)
	}
	return shares, nil
}

func (r *Runner) observeMarkets() {
	if r.observer == nil {
		return
	}
	for _, m := range r.dep.Markets {
		if market, ok := r.dep.Engine.Market(m.ID); ok {
			r.observer.ObserveMarket(m.ID, market)
		}
	}
}
