package lending

import (
	"fmt"

	"github.com/holiman/uint256"

	"isoledger/core/events"
	"isoledger/crypto"
	"isoledger/native/lending/mathlib"
	"isoledger/native/lending/sharesmath"
)

// Borrow draws loan assets against the collateral of onBehalf and sends them
// to receiver. The sender must be onBehalf or authorized by it, and the
// position must stay healthy.
func (e *Engine) Borrow(env Env, params MarketParams, assets, shares *uint256.Int, onBehalf, receiver crypto.Address) (*uint256.Int, *uint256.Int, error) {
	if err := e.guard(e.actionPauses.Borrow); err != nil {
		return nil, nil, err
	}
	a, s := amountOrZero(assets), amountOrZero(shares)
	err := e.execute(env, func() error {
		id, err := e.requireMarket(params)
		if err != nil {
			return err
		}
		if !mathlib.ExactlyOneZero(a, s) {
			return ErrInconsistentInput
		}
		if receiver.IsZero() {
			return ErrZeroAddress
		}
		if !e.isSenderAuthorized(env.Sender, onBehalf) {
			return ErrUnauthorized
		}
		if err := e.accrue(env, params, id); err != nil {
			return err
		}

		m := e.mustMarket(id)
		if !a.IsZero() {
			s = sharesmath.ToSharesUp(a, &m.TotalBorrowAssets, &m.TotalBorrowShares)
		} else {
			a = sharesmath.ToAssetsDown(s, &m.TotalBorrowAssets, &m.TotalBorrowShares)
		}

		pos := e.state.position(id, onBehalf)
		increase(&pos.BorrowShares, s)
		increase(&m.TotalBorrowShares, s)
		increase(&m.TotalBorrowAssets, a)
		e.state.setPosition(id, onBehalf, pos)
		e.state.setMarket(id, m)

		healthy, err := e.isHealthy(params, id, onBehalf)
		if err != nil {
			return err
		}
		if !healthy {
			return ErrInsufficientCollateral
		}
		if m.TotalBorrowAssets.Gt(&m.TotalSupplyAssets) {
			return ErrInsufficientLiquidity
		}

		e.emit(events.LendingBorrow{MarketID: id.Hex(), Caller: env.Sender, OnBehalf: onBehalf, Receiver: receiver, Assets: a, Shares: s})
		return e.push(params.LoanToken, receiver, a)
	})
	if err != nil {
		return nil, nil, err
	}
	return a, s, nil
}

// Repay pays back debt of onBehalf. Anyone may repay any position. When data
// is not empty the sender's RepayCallback runs before the assets are pulled.
func (e *Engine) Repay(env Env, params MarketParams, assets, shares *uint256.Int, onBehalf crypto.Address, data []byte) (*uint256.Int, *uint256.Int, error) {
	if err := e.guard(e.actionPauses.Repay); err != nil {
		return nil, nil, err
	}
	a, s := amountOrZero(assets), amountOrZero(shares)
	err := e.execute(env, func() error {
		id, err := e.requireMarket(params)
		if err != nil {
			return err
		}
		if !mathlib.ExactlyOneZero(a, s) {
			return ErrInconsistentInput
		}
		if onBehalf.IsZero() {
			return ErrZeroAddress
		}
		if err := e.accrue(env, params, id); err != nil {
			return err
		}

		m := e.mustMarket(id)
		if !a.IsZero() {
			s = sharesmath.ToSharesDown(a, &m.TotalBorrowAssets, &m.TotalBorrowShares)
		} else {
			a = sharesmath.ToAssetsUp(s, &m.TotalBorrowAssets, &m.TotalBorrowShares)
		}

		pos := e.state.position(id, onBehalf)
		if pos.BorrowShares.Lt(s) {
			return ErrInsufficientShares
		}
		decrease(&pos.BorrowShares, s)
		decrease(&m.TotalBorrowShares, s)
		// Rounding up on the last repayment can exceed the recorded total.
		m.TotalBorrowAssets.Set(mathlib.ZeroFloorSub(&m.TotalBorrowAssets, a))
		e.state.setPosition(id, onBehalf, pos)
		e.state.setMarket(id, m)

		e.emit(events.LendingRepay{MarketID: id.Hex(), Caller: env.Sender, OnBehalf: onBehalf, Assets: a, Shares: s})

		if len(data) > 0 {
			cb, ok := e.contract(env.Sender).(RepayCallback)
			if !ok {
				return ErrNoCallback
			}
			if err := cb.OnRepay(env, new(uint256.Int).Set(a), data); err != nil {
				return fmt.Errorf("lending: repay callback: %w", err)
			}
		}
		return e.pull(params.LoanToken, env.Sender, a)
	})
	if err != nil {
		return nil, nil, err
	}
	return a, s, nil
}
