package lending

import (
	"fmt"

	"github.com/holiman/uint256"

	"isoledger/core/events"
	"isoledger/crypto"
)

// SupplyCollateral posts collateral to the position of onBehalf. When data is
// not empty the sender's SupplyCollateralCallback runs before the collateral
// is pulled.
func (e *Engine) SupplyCollateral(env Env, params MarketParams, assets *uint256.Int, onBehalf crypto.Address, data []byte) error {
	if err := e.guard(e.actionPauses.Supply); err != nil {
		return err
	}
	a := amountOrZero(assets)
	return e.execute(env, func() error {
		id, err := e.requireMarket(params)
		if err != nil {
			return err
		}
		if a.IsZero() {
			return ErrZeroAssets
		}
		if onBehalf.IsZero() {
			return ErrZeroAddress
		}
		if err := e.accrue(env, params, id); err != nil {
			return err
		}

		pos := e.state.position(id, onBehalf)
		increase(&pos.Collateral, a)
		e.state.setPosition(id, onBehalf, pos)

		e.emit(events.LendingSupplyCollateral{MarketID: id.Hex(), Caller: env.Sender, OnBehalf: onBehalf, Assets: a})

		if len(data) > 0 {
			cb, ok := e.contract(env.Sender).(SupplyCollateralCallback)
			if !ok {
				return ErrNoCallback
			}
			if err := cb.OnSupplyCollateral(env, new(uint256.Int).Set(a), data); err != nil {
				return fmt.Errorf("lending: supply collateral callback: %w", err)
			}
		}
		return e.pull(params.CollateralToken, env.Sender, a)
	})
}

// WithdrawCollateral releases collateral of onBehalf to receiver. The sender
// must be onBehalf or authorized by it, and the position must stay healthy.
func (e *Engine) WithdrawCollateral(env Env, params MarketParams, assets *uint256.Int, onBehalf, receiver crypto.Address) error {
	if err := e.guard(false); err != nil {
		return err
	}
	a := amountOrZero(assets)
	return e.execute(env, func() error {
		id, err := e.requireMarket(params)
		if err != nil {
			return err
		}
		if a.IsZero() {
			return ErrZeroAssets
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

		pos := e.state.position(id, onBehalf)
		if pos.Collateral.Lt(a) {
			return ErrInsufficientBalance
		}
		decrease(&pos.Collateral, a)
		e.state.setPosition(id, onBehalf, pos)

		healthy, err := e.isHealthy(params, id, onBehalf)
		if err != nil {
			return err
		}
		if !healthy {
			return ErrInsufficientCollateral
		}

		e.emit(events.LendingWithdrawCollateral{MarketID: id.Hex(), Caller: env.Sender, OnBehalf: onBehalf, Receiver: receiver, Assets: a})
		return e.push(params.CollateralToken, receiver, a)
	})
}
