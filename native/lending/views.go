package lending

import (
	"fmt"

	"github.com/holiman/uint256"

	"isoledger/crypto"
	"isoledger/native/lending/mathlib"
	"isoledger/native/lending/sharesmath"
)

// Owner returns the ledger owner.
func (e *Engine) Owner() crypto.Address { return e.state.owner }

// FeeRecipient returns the account credited with fee shares.
func (e *Engine) FeeRecipient() crypto.Address { return e.state.feeRecipient }

// Market returns the stored totals of a market.
func (e *Engine) Market(id MarketID) (Market, bool) { return e.state.market(id) }

// Markets returns the identifiers of every created market in byte order.
func (e *Engine) Markets() []MarketID { return e.state.marketIDs() }

// IDToMarketParams resolves a market identifier to its parameters.
func (e *Engine) IDToMarketParams(id MarketID) (MarketParams, bool) {
	return e.state.marketParams(id)
}

// Position returns the position of account in a market.
func (e *Engine) Position(id MarketID, account crypto.Address) Position {
	return e.state.position(id, account)
}

// IsIRMEnabled reports whether markets may be created with irm.
func (e *Engine) IsIRMEnabled(irm crypto.Address) bool { return e.state.irmEnabled(irm) }

// IsLLTVEnabled reports whether markets may be created with lltv.
func (e *Engine) IsLLTVEnabled(lltv *uint256.Int) bool {
	return e.state.lltvEnabled(amountOrZero(lltv))
}

// IsAuthorized reports whether authorized may manage positions of authorizer.
func (e *Engine) IsAuthorized(authorizer, authorized crypto.Address) bool {
	return e.state.isAuthorized(authorizer, authorized)
}

// Nonce returns the next signed-authorization nonce of authorizer.
func (e *Engine) Nonce(authorizer crypto.Address) uint64 { return e.state.nonce(authorizer) }

// ExpectedMarketBalances projects a market's totals to now as if interest
// were accrued, without mutating the ledger or the rate model.
func (e *Engine) ExpectedMarketBalances(params MarketParams, now uint64) (b Balances, err error) {
	defer func() { err = wrapArithmetic(err) }()
	defer mathlib.Catch(&err)

	id := params.ID()
	m, ok := e.state.market(id)
	if !ok {
		return Balances{}, ErrMarketNotCreated
	}
	if now < m.LastUpdate {
		return Balances{}, fmt.Errorf("%w: now %d, last update %d", ErrClockRegression, now, m.LastUpdate)
	}
	elapsed := now - m.LastUpdate
	if elapsed != 0 && !m.TotalBorrowAssets.IsZero() && !params.IRM.IsZero() {
		model, err := e.rateModel(params.IRM)
		if err != nil {
			return Balances{}, err
		}
		rate, err := model.BorrowRateView(params, m, now)
		if err != nil {
			return Balances{}, fmt.Errorf("lending: preview borrow rate: %w", err)
		}
		applyInterest(&m, amountOrZero(rate), elapsed)
	}
	return Balances{
		TotalSupplyAssets: new(uint256.Int).Set(&m.TotalSupplyAssets),
		TotalSupplyShares: new(uint256.Int).Set(&m.TotalSupplyShares),
		TotalBorrowAssets: new(uint256.Int).Set(&m.TotalBorrowAssets),
		TotalBorrowShares: new(uint256.Int).Set(&m.TotalBorrowShares),
	}, nil
}

// ExpectedTotalSupplyAssets projects the market's total supply to now.
func (e *Engine) ExpectedTotalSupplyAssets(params MarketParams, now uint64) (*uint256.Int, error) {
	b, err := e.ExpectedMarketBalances(params, now)
	if err != nil {
		return nil, err
	}
	return b.TotalSupplyAssets, nil
}

// ExpectedTotalBorrowAssets projects the market's total borrow to now.
func (e *Engine) ExpectedTotalBorrowAssets(params MarketParams, now uint64) (*uint256.Int, error) {
	b, err := e.ExpectedMarketBalances(params, now)
	if err != nil {
		return nil, err
	}
	return b.TotalBorrowAssets, nil
}

// ExpectedTotalSupplyShares projects the market's supply shares to now,
// including fee shares not minted yet.
func (e *Engine) ExpectedTotalSupplyShares(params MarketParams, now uint64) (*uint256.Int, error) {
	b, err := e.ExpectedMarketBalances(params, now)
	if err != nil {
		return nil, err
	}
	return b.TotalSupplyShares, nil
}

// ExpectedSupplyAssets projects the loan assets user could withdraw at now.
// Fee shares not minted yet are not included for the fee recipient.
func (e *Engine) ExpectedSupplyAssets(params MarketParams, user crypto.Address, now uint64) (assets *uint256.Int, err error) {
	b, err := e.ExpectedMarketBalances(params, now)
	if err != nil {
		return nil, err
	}
	defer func() { err = wrapArithmetic(err) }()
	defer mathlib.Catch(&err)
	pos := e.state.position(params.ID(), user)
	return sharesmath.ToAssetsDown(&pos.SupplyShares, b.TotalSupplyAssets, b.TotalSupplyShares), nil
}

// ExpectedBorrowAssets projects the loan assets user owes at now.
func (e *Engine) ExpectedBorrowAssets(params MarketParams, user crypto.Address, now uint64) (assets *uint256.Int, err error) {
	b, err := e.ExpectedMarketBalances(params, now)
	if err != nil {
		return nil, err
	}
	defer func() { err = wrapArithmetic(err) }()
	defer mathlib.Catch(&err)
	pos := e.state.position(params.ID(), user)
	return sharesmath.ToAssetsUp(&pos.BorrowShares, b.TotalBorrowAssets, b.TotalBorrowShares), nil
}

// IsHealthy reports whether borrower would be solvent at now, using the
// projected totals and the current oracle price.
func (e *Engine) IsHealthy(params MarketParams, borrower crypto.Address, now uint64) (healthy bool, err error) {
	b, err := e.ExpectedMarketBalances(params, now)
	if err != nil {
		return false, err
	}
	pos := e.state.position(params.ID(), borrower)
	if pos.BorrowShares.IsZero() {
		return true, nil
	}
	price, err := e.price(params)
	if err != nil {
		return false, err
	}
	defer func() { err = wrapArithmetic(err) }()
	defer mathlib.Catch(&err)
	m := Market{}
	m.TotalBorrowAssets.Set(b.TotalBorrowAssets)
	m.TotalBorrowShares.Set(b.TotalBorrowShares)
	return e.isHealthyAt(params, m, pos, price), nil
}
