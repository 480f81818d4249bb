package lending

import (
	"github.com/holiman/uint256"

	"isoledger/core/events"
	"isoledger/crypto"
	"isoledger/native/lending/mathlib"
)

func (e *Engine) onlyOwner(env Env) error {
	if env.Sender != e.state.owner {
		return ErrNotOwner
	}
	return nil
}

// SetOwner transfers ownership of the ledger.
func (e *Engine) SetOwner(env Env, newOwner crypto.Address) error {
	if err := e.guard(false); err != nil {
		return err
	}
	return e.execute(env, func() error {
		if err := e.onlyOwner(env); err != nil {
			return err
		}
		if newOwner == e.state.owner {
			return ErrAlreadySet
		}
		e.state.setOwner(newOwner)
		e.emit(events.LendingSetOwner{NewOwner: newOwner})
		return nil
	})
}

// EnableIRM allow-lists a rate model address for market creation. The zero
// address enables interest-free markets.
func (e *Engine) EnableIRM(env Env, irm crypto.Address) error {
	if err := e.guard(false); err != nil {
		return err
	}
	return e.execute(env, func() error {
		if err := e.onlyOwner(env); err != nil {
			return err
		}
		if e.state.irmEnabled(irm) {
			return ErrAlreadySet
		}
		e.state.enableIRM(irm)
		e.emit(events.LendingEnableIRM{IRM: irm})
		return nil
	})
}

// EnableLLTV allow-lists a liquidation LTV for market creation.
func (e *Engine) EnableLLTV(env Env, lltv *uint256.Int) error {
	if err := e.guard(false); err != nil {
		return err
	}
	value := amountOrZero(lltv)
	return e.execute(env, func() error {
		if err := e.onlyOwner(env); err != nil {
			return err
		}
		if e.state.lltvEnabled(value) {
			return ErrAlreadySet
		}
		if value.Cmp(mathlib.WAD) >= 0 {
			return ErrMaxLLTVExceeded
		}
		e.state.enableLLTV(value)
		e.emit(events.LendingEnableLLTV{LLTV: value})
		return nil
	})
}

// SetFee updates the share of interest minted to the fee recipient. Interest
// accrued so far is settled at the previous fee first.
func (e *Engine) SetFee(env Env, params MarketParams, fee *uint256.Int) error {
	if err := e.guard(false); err != nil {
		return err
	}
	newFee := amountOrZero(fee)
	return e.execute(env, func() error {
		if err := e.onlyOwner(env); err != nil {
			return err
		}
		id, err := e.requireMarket(params)
		if err != nil {
			return err
		}
		m := e.mustMarket(id)
		if m.Fee.Eq(newFee) {
			return ErrAlreadySet
		}
		if newFee.Gt(MaxFee) {
			return ErrMaxFeeExceeded
		}
		if err := e.accrue(env, params, id); err != nil {
			return err
		}
		m = e.mustMarket(id)
		m.Fee.Set(newFee)
		e.state.setMarket(id, m)
		e.emit(events.LendingSetFee{MarketID: id.Hex(), Fee: newFee})
		return nil
	})
}

// SetFeeRecipient changes the account credited with fee shares.
func (e *Engine) SetFeeRecipient(env Env, recipient crypto.Address) error {
	if err := e.guard(false); err != nil {
		return err
	}
	return e.execute(env, func() error {
		if err := e.onlyOwner(env); err != nil {
			return err
		}
		if recipient == e.state.feeRecipient {
			return ErrAlreadySet
		}
		e.state.setFeeRecipient(recipient)
		e.emit(events.LendingSetFeeRecipient{FeeRecipient: recipient})
		return nil
	})
}
