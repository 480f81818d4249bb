package lending

import (
	"fmt"

	"github.com/holiman/uint256"

	"isoledger/core/events"
	"isoledger/crypto"
)

// FlashLoan lends any token held by the ledger for the duration of the
// sender's FlashLoanCallback. The full amount is pulled back afterwards; the
// ledger's accounting is not touched.
func (e *Engine) FlashLoan(env Env, token crypto.Address, assets *uint256.Int, data []byte) error {
	if err := e.guard(false); err != nil {
		return err
	}
	a := amountOrZero(assets)
	return e.execute(env, func() error {
		if a.IsZero() {
			return ErrZeroAssets
		}
		cb, ok := e.contract(env.Sender).(FlashLoanCallback)
		if !ok {
			return ErrNoCallback
		}

		e.emit(events.LendingFlashLoan{Caller: env.Sender, Token: token, Assets: a})

		if err := e.push(token, env.Sender, a); err != nil {
			return err
		}
		if err := cb.OnFlashLoan(env, new(uint256.Int).Set(a), data); err != nil {
			return fmt.Errorf("lending: flash loan callback: %w", err)
		}
		return e.pull(token, env.Sender, a)
	})
}
