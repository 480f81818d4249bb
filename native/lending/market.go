package lending

import (
	"fmt"

	"github.com/holiman/uint256"

	"isoledger/core/events"
	"isoledger/native/lending/mathlib"
	"isoledger/native/lending/sharesmath"
)

// CreateMarket opens a market for params. Anyone may create a market whose
// rate model and liquidation LTV are allow-listed.
func (e *Engine) CreateMarket(env Env, params MarketParams) (MarketID, error) {
	if err := e.guard(false); err != nil {
		return MarketID{}, err
	}
	id := params.ID()
	err := e.execute(env, func() error {
		if !e.state.irmEnabled(params.IRM) {
			return ErrIRMNotEnabled
		}
		if !e.state.lltvEnabled(&params.LLTV) {
			return ErrLLTVNotEnabled
		}
		if _, exists := e.state.market(id); exists {
			return ErrMarketAlreadyCreated
		}
		if _, err := e.token(params.LoanToken); err != nil {
			return err
		}
		if _, err := e.token(params.CollateralToken); err != nil {
			return err
		}
		if _, err := e.oracle(params.Oracle); err != nil {
			return err
		}

		m := Market{LastUpdate: env.Now}
		e.state.setMarket(id, m)
		e.state.setMarketParams(id, params)
		e.emit(events.LendingCreateMarket{
			MarketID:        id.Hex(),
			LoanToken:       params.LoanToken,
			CollateralToken: params.CollateralToken,
			Oracle:          params.Oracle,
			IRM:             params.IRM,
			LLTV:            new(uint256.Int).Set(&params.LLTV),
		})

		// Stateful rate models initialise their per-market state here.
		if params.IRM.IsZero() {
			return nil
		}
		model, err := e.rateModel(params.IRM)
		if err != nil {
			return err
		}
		quote, err := model.Quote(params, m, env.Now)
		if err != nil {
			return fmt.Errorf("lending: initialise rate model: %w", err)
		}
		e.pendingRates = append(e.pendingRates, stagedRate{model: model, id: id, quote: quote})
		return nil
	})
	if err != nil {
		return MarketID{}, err
	}
	return id, nil
}

// AccrueInterest brings a market's totals up to env.Now.
func (e *Engine) AccrueInterest(env Env, params MarketParams) error {
	if err := e.guard(false); err != nil {
		return err
	}
	return e.execute(env, func() error {
		id, err := e.requireMarket(params)
		if err != nil {
			return err
		}
		return e.accrue(env, params, id)
	})
}

// accrue compounds interest over the time elapsed since the last update and
// mints the fee share of it to the fee recipient.
func (e *Engine) accrue(env Env, params MarketParams, id MarketID) error {
	m := e.mustMarket(id)
	if env.Now < m.LastUpdate {
		return fmt.Errorf("%w: now %d, last update %d", ErrClockRegression, env.Now, m.LastUpdate)
	}
	elapsed := env.Now - m.LastUpdate
	if elapsed == 0 {
		return nil
	}

	if !params.IRM.IsZero() {
		model, err := e.rateModel(params.IRM)
		if err != nil {
			return err
		}
		quote, err := model.Quote(params, m, env.Now)
		if err != nil {
			return fmt.Errorf("lending: quote borrow rate: %w", err)
		}
		rate := amountOrZero(quote.Rate)
		interest, feeShares := applyInterest(&m, rate, elapsed)
		if !feeShares.IsZero() {
			recipient := e.state.feeRecipient
			pos := e.state.position(id, recipient)
			increase(&pos.SupplyShares, feeShares)
			e.state.setPosition(id, recipient, pos)
		}
		e.pendingRates = append(e.pendingRates, stagedRate{model: model, id: id, quote: quote})
		e.emit(events.LendingAccrueInterest{
			MarketID:       id.Hex(),
			PrevBorrowRate: rate,
			Interest:       interest,
			FeeShares:      feeShares,
		})
	}

	m.LastUpdate = env.Now
	e.state.setMarket(id, m)
	return nil
}

// applyInterest adds the interest accrued at rate over elapsed seconds to
// both sides of m and mints the fee shares into m's supply. It returns the
// interest and the fee shares to credit to the fee recipient.
func applyInterest(m *Market, rate *uint256.Int, elapsed uint64) (*uint256.Int, *uint256.Int) {
	interest := mathlib.WMulDown(
		&m.TotalBorrowAssets,
		mathlib.WTaylorCompounded(rate, uint256.NewInt(elapsed)),
	)
	increase(&m.TotalBorrowAssets, interest)
	increase(&m.TotalSupplyAssets, interest)

	feeShares := new(uint256.Int)
	if !m.Fee.IsZero() {
		feeAmount := mathlib.WMulDown(interest, &m.Fee)
		// Fee shares are priced against the supply excluding the fee.
		feeShares = sharesmath.ToSharesDown(
			feeAmount,
			mathlib.Sub(&m.TotalSupplyAssets, feeAmount),
			&m.TotalSupplyShares,
		)
		increase(&m.TotalSupplyShares, feeShares)
	}
	return interest, feeShares
}
