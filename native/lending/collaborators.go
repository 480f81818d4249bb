package lending

import (
	"github.com/holiman/uint256"

	"isoledger/crypto"
)

// Token moves fungible balances on behalf of the ledger.
type Token interface {
	// Transfer moves amount from the from account to the to account.
	Transfer(from, to crypto.Address, amount *uint256.Int) error
	// TransferFrom moves amount from the from account to the to account using
	// the allowance from granted to spender.
	TransferFrom(spender, from, to crypto.Address, amount *uint256.Int) error
}

// Oracle reports the price of one unit of collateral in loan units, scaled by
// OraclePriceScale.
type Oracle interface {
	Price() (*uint256.Int, error)
}

// RateModel provides borrow rates for markets.
//
// Quote must not mutate the model: the ledger calls Commit only once the
// enclosing call has succeeded. BorrowRateView must return the same rate as
// Quote for identical inputs.
type RateModel interface {
	BorrowRateView(params MarketParams, market Market, now uint64) (*uint256.Int, error)
	Quote(params MarketParams, market Market, now uint64) (RateQuote, error)
	Commit(caller crypto.Address, id MarketID, quote RateQuote) error
}

// Resolver maps addresses referenced by market parameters and callers to the
// collaborators that live behind them.
type Resolver interface {
	Token(addr crypto.Address) (Token, bool)
	Oracle(addr crypto.Address) (Oracle, bool)
	RateModel(addr crypto.Address) (RateModel, bool)
	// Contract returns the handler registered for addr, if any. The ledger
	// type-asserts it against the callback interfaces below.
	Contract(addr crypto.Address) (any, bool)
}

// SupplyCallback is invoked on the sender of a supply carrying data, before
// the loan assets are pulled.
type SupplyCallback interface {
	OnSupply(env Env, assets *uint256.Int, data []byte) error
}

// RepayCallback is invoked on the sender of a repay carrying data, before the
// loan assets are pulled.
type RepayCallback interface {
	OnRepay(env Env, assets *uint256.Int, data []byte) error
}

// SupplyCollateralCallback is invoked on the sender of a collateral supply
// carrying data, before the collateral is pulled.
type SupplyCollateralCallback interface {
	OnSupplyCollateral(env Env, assets *uint256.Int, data []byte) error
}

// LiquidateCallback is invoked on the liquidator after the seized collateral
// was sent and before the repaid assets are pulled.
type LiquidateCallback interface {
	OnLiquidate(env Env, repaidAssets *uint256.Int, data []byte) error
}

// FlashLoanCallback is invoked on the borrower of a flash loan while it holds
// the borrowed assets.
type FlashLoanCallback interface {
	OnFlashLoan(env Env, assets *uint256.Int, data []byte) error
}
