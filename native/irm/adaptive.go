// Package irm implements the adaptive-curve interest rate model.
//
// The borrow rate of a market follows a fixed curve around a per-market rate
// at target. Above target utilization the curve is steeper than below it.
// Over time the rate at target itself drifts exponentially toward the rate
// that would bring utilization back to target.
package irm

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"isoledger/core/events"
	"isoledger/crypto"
	"isoledger/native/lending"
)

// Params configures an adaptive curve model. All values are WAD scaled;
// speeds and rates are per second.
type Params struct {
	CurveSteepness      *big.Int
	AdjustmentSpeed     *big.Int
	TargetUtilization   *big.Int
	InitialRateAtTarget *big.Int
}

// DefaultParams returns the reference parameters.
func DefaultParams() Params {
	return Params{
		CurveSteepness:      new(big.Int).Set(DefaultCurveSteepness),
		AdjustmentSpeed:     new(big.Int).Set(DefaultAdjustmentSpeed),
		TargetUtilization:   new(big.Int).Set(DefaultTargetUtilization),
		InitialRateAtTarget: new(big.Int).Set(DefaultInitialRateAtTarget),
	}
}

// Validate checks every parameter against its bounds.
func (p Params) Validate() error {
	if p.CurveSteepness == nil || p.AdjustmentSpeed == nil || p.TargetUtilization == nil || p.InitialRateAtTarget == nil {
		return fmt.Errorf("%w: missing parameter", ErrInputTooSmall)
	}
	if p.CurveSteepness.Cmp(wad) < 0 {
		return fmt.Errorf("%w: curve steepness", ErrInputTooSmall)
	}
	if p.CurveSteepness.Cmp(MaxCurveSteepness) > 0 {
		return fmt.Errorf("%w: curve steepness", ErrInputTooLarge)
	}
	if p.AdjustmentSpeed.Sign() < 0 {
		return fmt.Errorf("%w: adjustment speed", ErrInputTooSmall)
	}
	if p.AdjustmentSpeed.Cmp(MaxAdjustmentSpeed) > 0 {
		return fmt.Errorf("%w: adjustment speed", ErrInputTooLarge)
	}
	if p.TargetUtilization.Sign() <= 0 {
		return fmt.Errorf("%w: target utilization", ErrInputTooSmall)
	}
	if p.TargetUtilization.Cmp(wad) >= 0 {
		return fmt.Errorf("%w: target utilization", ErrInputTooLarge)
	}
	if p.InitialRateAtTarget.Cmp(MinRateAtTarget) < 0 {
		return fmt.Errorf("%w: initial rate at target", ErrInputTooSmall)
	}
	if p.InitialRateAtTarget.Cmp(MaxRateAtTarget) > 0 {
		return fmt.Errorf("%w: initial rate at target", ErrInputTooLarge)
	}
	return nil
}

func (p Params) clone() Params {
	return Params{
		CurveSteepness:      new(big.Int).Set(p.CurveSteepness),
		AdjustmentSpeed:     new(big.Int).Set(p.AdjustmentSpeed),
		TargetUtilization:   new(big.Int).Set(p.TargetUtilization),
		InitialRateAtTarget: new(big.Int).Set(p.InitialRateAtTarget),
	}
}

// AdaptiveCurve is a stateful rate model serving one ledger. It keeps a rate
// at target per market; a market without one is uninitialized and starts at
// the initial rate on its first authoritative query.
type AdaptiveCurve struct {
	ledger       crypto.Address
	params       Params
	rateAtTarget map[lending.MarketID]*big.Int
	emitter      events.Emitter
}

// NewAdaptiveCurve constructs a model that only accepts authoritative
// queries from ledger.
func NewAdaptiveCurve(ledger crypto.Address, params Params) (*AdaptiveCurve, error) {
	if ledger.IsZero() {
		return nil, ErrZeroAddress
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &AdaptiveCurve{
		ledger:       ledger,
		params:       params.clone(),
		rateAtTarget: make(map[lending.MarketID]*big.Int),
		emitter:      events.NoopEmitter{},
	}, nil
}

// SetEmitter configures the sink receiving rate updates.
func (m *AdaptiveCurve) SetEmitter(emitter events.Emitter) {
	if m == nil {
		return
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	m.emitter = emitter
}

// Ledger returns the only address allowed to commit rate updates.
func (m *AdaptiveCurve) Ledger() crypto.Address { return m.ledger }

// Params returns a copy of the model parameters.
func (m *AdaptiveCurve) Params() Params { return m.params.clone() }

// RateAtTarget returns the stored rate at target of a market, or zero when
// the market is uninitialized.
func (m *AdaptiveCurve) RateAtTarget(id lending.MarketID) *big.Int {
	if rate, ok := m.rateAtTarget[id]; ok {
		return new(big.Int).Set(rate)
	}
	return new(big.Int)
}

// rate returns the average borrow rate of a market over the period since
// market.LastUpdate. With commit set the rate at target reached at now is
// stored; callers must have checked that the ledger asked for it.
func (m *AdaptiveCurve) rate(id lending.MarketID, market lending.Market, now uint64, commit bool) (*uint256.Int, error) {
	avgRate, endRateAtTarget, err := m.compute(id, market, now)
	if err != nil {
		return nil, err
	}
	if commit {
		m.store(id, avgRate, endRateAtTarget)
	}
	return avgRate, nil
}

// BorrowRateView previews the borrow rate of a market without mutating the
// model.
func (m *AdaptiveCurve) BorrowRateView(params lending.MarketParams, market lending.Market, now uint64) (*uint256.Int, error) {
	return m.rate(params.ID(), market, now, false)
}

// BorrowRate returns the borrow rate of a market and stores the new rate at
// target. Only the ledger may call it.
func (m *AdaptiveCurve) BorrowRate(caller crypto.Address, params lending.MarketParams, market lending.Market, now uint64) (*uint256.Int, error) {
	if caller != m.ledger {
		return nil, ErrNotLedger
	}
	return m.rate(params.ID(), market, now, true)
}

// Quote computes the authoritative rate without storing anything. The ledger
// passes the quote back to Commit once its call has succeeded.
func (m *AdaptiveCurve) Quote(params lending.MarketParams, market lending.Market, now uint64) (lending.RateQuote, error) {
	avgRate, endRateAtTarget, err := m.compute(params.ID(), market, now)
	if err != nil {
		return lending.RateQuote{}, err
	}
	end, overflow := uint256.FromBig(endRateAtTarget)
	if overflow || endRateAtTarget.Sign() < 0 {
		return lending.RateQuote{}, ErrRateOutOfRange
	}
	return lending.RateQuote{Rate: avgRate, RateAtTarget: end}, nil
}

// Commit stores the rate at target carried by a quote. Only the ledger may
// call it.
func (m *AdaptiveCurve) Commit(caller crypto.Address, id lending.MarketID, quote lending.RateQuote) error {
	if caller != m.ledger {
		return ErrNotLedger
	}
	if quote.RateAtTarget == nil {
		return ErrRateOutOfRange
	}
	end := quote.RateAtTarget.ToBig()
	if end.Cmp(MinRateAtTarget) < 0 || end.Cmp(MaxRateAtTarget) > 0 {
		return ErrRateOutOfRange
	}
	avg := quote.Rate
	if avg == nil {
		avg = new(uint256.Int)
	}
	m.store(id, avg, end)
	return nil
}

func (m *AdaptiveCurve) store(id lending.MarketID, avgRate *uint256.Int, endRateAtTarget *big.Int) {
	m.rateAtTarget[id] = new(big.Int).Set(endRateAtTarget)
	m.emitter.Emit(events.IRMBorrowRateUpdate{
		MarketID:      id.Hex(),
		AvgBorrowRate: new(uint256.Int).Set(avgRate),
		RateAtTarget:  uint256.MustFromBig(endRateAtTarget),
	})
}

// compute returns the average rate over the elapsed period and the rate at
// target reached at now.
func (m *AdaptiveCurve) compute(id lending.MarketID, market lending.Market, now uint64) (*uint256.Int, *big.Int, error) {
	if now < market.LastUpdate {
		return nil, nil, fmt.Errorf("%w: now %d, last update %d", ErrClockRegression, now, market.LastUpdate)
	}

	utilization := new(big.Int)
	if !market.TotalSupplyAssets.IsZero() {
		utilization = wDivToZero(market.TotalBorrowAssets.ToBig(), market.TotalSupplyAssets.ToBig())
	}

	target := m.params.TargetUtilization
	errNormFactor := target
	if utilization.Cmp(target) > 0 {
		errNormFactor = new(big.Int).Sub(wad, target)
	}
	errUtil := wDivToZero(new(big.Int).Sub(utilization, target), errNormFactor)

	var avgRateAtTarget, endRateAtTarget *big.Int
	start, initialized := m.rateAtTarget[id]
	if !initialized || start.Sign() == 0 {
		avgRateAtTarget = new(big.Int).Set(m.params.InitialRateAtTarget)
		endRateAtTarget = new(big.Int).Set(m.params.InitialRateAtTarget)
	} else {
		speed := wMulToZero(m.params.AdjustmentSpeed, errUtil)
		elapsed := new(big.Int).SetUint64(now - market.LastUpdate)
		linearAdaptation := new(big.Int).Mul(speed, elapsed)

		if linearAdaptation.Sign() == 0 {
			avgRateAtTarget = new(big.Int).Set(start)
			endRateAtTarget = new(big.Int).Set(start)
		} else {
			endRateAtTarget = newRateAtTarget(start, linearAdaptation)
			midRateAtTarget := newRateAtTarget(start, new(big.Int).Quo(linearAdaptation, big.NewInt(2)))
			// Simpson's rule over the start, middle and end of the period.
			sum := new(big.Int).Add(start, endRateAtTarget)
			sum.Add(sum, new(big.Int).Lsh(midRateAtTarget, 1))
			avgRateAtTarget = sum.Quo(sum, big.NewInt(4))
		}
	}

	rate := curve(avgRateAtTarget, errUtil, m.params.CurveSteepness)
	if rate.Sign() < 0 {
		return nil, nil, ErrRateOutOfRange
	}
	avgRate, overflow := uint256.FromBig(rate)
	if overflow {
		return nil, nil, ErrRateOutOfRange
	}
	return avgRate, endRateAtTarget, nil
}

// curve maps a rate at target and a normalized utilization error onto the
// borrow rate. At err = -1 the rate is rateAtTarget/steepness, at err = 1 it
// is rateAtTarget*steepness.
func curve(rateAtTarget, errUtil, steepness *big.Int) *big.Int {
	var coeff *big.Int
	if errUtil.Sign() < 0 {
		coeff = new(big.Int).Sub(wad, wDivToZero(wad, steepness))
	} else {
		coeff = new(big.Int).Sub(steepness, wad)
	}
	scaled := wMulToZero(coeff, errUtil)
	return wMulToZero(scaled.Add(scaled, wad), rateAtTarget)
}

func newRateAtTarget(start, linearAdaptation *big.Int) *big.Int {
	return bound(wMulToZero(start, WExp(linearAdaptation)), MinRateAtTarget, MaxRateAtTarget)
}
