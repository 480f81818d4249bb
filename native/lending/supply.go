package lending

import (
	"fmt"

	"github.com/holiman/uint256"

	"isoledger/core/events"
	"isoledger/crypto"
	"isoledger/native/lending/mathlib"
	"isoledger/native/lending/sharesmath"
)

// Supply lends loan assets to a market on behalf of onBehalf. Exactly one of
// assets and shares must be non-zero; the other is derived. When data is not
// empty the sender's SupplyCallback runs before the assets are pulled.
func (e *Engine) Supply(env Env, params MarketParams, assets, shares *uint256.Int, onBehalf crypto.Address, data []byte) (*uint256.Int, *uint256.Int, error) {
	if err := e.guard(e.actionPauses.Supply); err != nil {
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
			s = sharesmath.ToSharesDown(a, &m.TotalSupplyAssets, &m.TotalSupplyShares)
		} else {
			a = sharesmath.ToAssetsUp(s, &m.TotalSupplyAssets, &m.TotalSupplyShares)
		}

		pos := e.state.position(id, onBehalf)
		increase(&pos.SupplyShares, s)
		increase(&m.TotalSupplyShares, s)
		increase(&m.TotalSupplyAssets, a)
		e.state.setPosition(id, onBehalf, pos)
		e.state.setMarket(id, m)

		e.emit(events.LendingSupply{MarketID: id.Hex(), Caller: env.Sender, OnBehalf: onBehalf, Assets: a, Shares: s})

		if len(data) > 0 {
			cb, ok := e.contract(env.Sender).(SupplyCallback)
			if !ok {
				return ErrNoCallback
			}
			if err := cb.OnSupply(env, new(uint256.Int).Set(a), data); err != nil {
				return fmt.Errorf("lending: supply callback: %w", err)
			}
		}
		return e.pull(params.LoanToken, env.Sender, a)
	})
	if err != nil {
		return nil, nil, err
	}
	return a, s, nil
}

// Withdraw redeems supply of onBehalf and sends the loan assets to receiver.
// The sender must be onBehalf or authorized by it.
func (e *Engine) Withdraw(env Env, params MarketParams, assets, shares *uint256.Int, onBehalf, receiver crypto.Address) (*uint256.Int, *uint256.Int, error) {
	if err := e.guard(false); err != nil {
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
			s = sharesmath.ToSharesUp(a, &m.TotalSupplyAssets, &m.TotalSupplyShares)
		} else {
			a = sharesmath.ToAssetsDown(s, &m.TotalSupplyAssets, &m.TotalSupplyShares)
		}

		pos := e.state.position(id, onBehalf)
		if pos.SupplyShares.Lt(s) {
			return ErrInsufficientShares
		}
		decrease(&pos.SupplyShares, s)
		decrease(&m.TotalSupplyShares, s)
		decrease(&m.TotalSupplyAssets, a)
		if m.TotalBorrowAssets.Gt(&m.TotalSupplyAssets) {
			return ErrInsufficientLiquidity
		}
		e.state.setPosition(id, onBehalf, pos)
		e.state.setMarket(id, m)

		e.emit(events.LendingWithdraw{MarketID: id.Hex(), Caller: env.Sender, OnBehalf: onBehalf, Receiver: receiver, Assets: a, Shares: s})
		return e.push(params.LoanToken, receiver, a)
	})
	if err != nil {
		return nil, nil, err
	}
	return a, s, nil
}
