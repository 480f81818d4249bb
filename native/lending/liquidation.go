package lending

import (
	"fmt"

	"github.com/holiman/uint256"

	"isoledger/core/events"
	"isoledger/crypto"
	"isoledger/native/lending/mathlib"
	"isoledger/native/lending/sharesmath"
)

// Liquidate repays debt of an unhealthy borrower in exchange for collateral
// at a discount. Exactly one of seizedAssets and repaidShares must be
// non-zero. Every derived quantity rounds against the liquidator.
//
// When the borrower's collateral reaches zero the remaining debt is written
// off against the suppliers as bad debt.
//
// The seized collateral is sent to the sender before the repaid assets are
// pulled; when data is not empty the sender's LiquidateCallback runs in
// between. It returns the seized collateral and the repaid loan assets.
func (e *Engine) Liquidate(env Env, params MarketParams, borrower crypto.Address, seizedAssets, repaidShares *uint256.Int, data []byte) (*uint256.Int, *uint256.Int, error) {
	if err := e.guard(e.actionPauses.Liquidate); err != nil {
		return nil, nil, err
	}
	seized, shares := amountOrZero(seizedAssets), amountOrZero(repaidShares)
	var repaid *uint256.Int
	err := e.execute(env, func() error {
		id, err := e.requireMarket(params)
		if err != nil {
			return err
		}
		if !mathlib.ExactlyOneZero(seized, shares) {
			return ErrInconsistentInput
		}
		if err := e.accrue(env, params, id); err != nil {
			return err
		}

		m := e.mustMarket(id)
		pos := e.state.position(id, borrower)
		price, err := e.price(params)
		if err != nil {
			return err
		}
		if e.isHealthyAt(params, m, pos, price) {
			return ErrHealthyPosition
		}

		lif := LiquidationIncentiveFactor(&params.LLTV)
		if !seized.IsZero() {
			quoted := mathlib.MulDivUp(seized, price, OraclePriceScale)
			shares = sharesmath.ToSharesUp(mathlib.WDivUp(quoted, lif), &m.TotalBorrowAssets, &m.TotalBorrowShares)
		} else {
			owed := sharesmath.ToAssetsDown(shares, &m.TotalBorrowAssets, &m.TotalBorrowShares)
			seized = mathlib.MulDivDown(mathlib.WMulDown(owed, lif), OraclePriceScale, price)
		}
		repaid = sharesmath.ToAssetsUp(shares, &m.TotalBorrowAssets, &m.TotalBorrowShares)

		if pos.BorrowShares.Lt(shares) {
			return ErrInsufficientShares
		}
		if pos.Collateral.Lt(seized) {
			return ErrInsufficientBalance
		}
		decrease(&pos.BorrowShares, shares)
		decrease(&m.TotalBorrowShares, shares)
		m.TotalBorrowAssets.Set(mathlib.ZeroFloorSub(&m.TotalBorrowAssets, repaid))
		decrease(&pos.Collateral, seized)

		badDebtAssets, badDebtShares := new(uint256.Int), new(uint256.Int)
		if pos.Collateral.IsZero() && !pos.BorrowShares.IsZero() {
			badDebtShares.Set(&pos.BorrowShares)
			badDebtAssets = mathlib.Min(
				&m.TotalBorrowAssets,
				sharesmath.ToAssetsUp(badDebtShares, &m.TotalBorrowAssets, &m.TotalBorrowShares),
			)
			decrease(&m.TotalBorrowAssets, badDebtAssets)
			decrease(&m.TotalSupplyAssets, badDebtAssets)
			decrease(&m.TotalBorrowShares, badDebtShares)
			pos.BorrowShares.Clear()
		}
		e.state.setPosition(id, borrower, pos)
		e.state.setMarket(id, m)

		e.emit(events.LendingLiquidate{
			MarketID:      id.Hex(),
			Caller:        env.Sender,
			Borrower:      borrower,
			RepaidAssets:  repaid,
			RepaidShares:  shares,
			SeizedAssets:  seized,
			BadDebtAssets: badDebtAssets,
			BadDebtShares: badDebtShares,
		})

		if err := e.push(params.CollateralToken, env.Sender, seized); err != nil {
			return err
		}
		if len(data) > 0 {
			cb, ok := e.contract(env.Sender).(LiquidateCallback)
			if !ok {
				return ErrNoCallback
			}
			if err := cb.OnLiquidate(env, new(uint256.Int).Set(repaid), data); err != nil {
				return fmt.Errorf("lending: liquidate callback: %w", err)
			}
		}
		return e.pull(params.LoanToken, env.Sender, repaid)
	})
	if err != nil {
		return nil, nil, err
	}
	return seized, repaid, nil
}
