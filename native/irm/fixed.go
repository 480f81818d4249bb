package irm

import (
	"github.com/holiman/uint256"

	"isoledger/crypto"
	"isoledger/native/lending"
)

// Fixed is a stateless rate model charging the same per-second rate on every
// market.
type Fixed struct {
	Rate *uint256.Int
}

// NewFixedAPR returns a Fixed model charging apr, WAD scaled, spread evenly
// over a 365-day year.
func NewFixedAPR(apr *uint256.Int) Fixed {
	return Fixed{Rate: new(uint256.Int).Div(apr, uint256.NewInt(SecondsPerYear))}
}

func (f Fixed) rate() *uint256.Int {
	if f.Rate == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(f.Rate)
}

// BorrowRateView implements lending.RateModel.
func (f Fixed) BorrowRateView(lending.MarketParams, lending.Market, uint64) (*uint256.Int, error) {
	return f.rate(), nil
}

// Quote implements lending.RateModel.
func (f Fixed) Quote(lending.MarketParams, lending.Market, uint64) (lending.RateQuote, error) {
	return lending.RateQuote{Rate: f.rate(), RateAtTarget: f.rate()}, nil
}

// Commit implements lending.RateModel. A fixed model has nothing to store.
func (Fixed) Commit(crypto.Address, lending.MarketID, lending.RateQuote) error { return nil }
