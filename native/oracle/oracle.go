// Package oracle provides price feeds quoting collateral in loan units.
package oracle

import (
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var (
	ErrPriceUnavailable = errors.New("oracle: price unavailable")
	ErrNegativePrice    = errors.New("oracle: negative price")
	ErrPriceOverflow    = errors.New("oracle: price overflows 256 bits")
)

// Scale is the fixed-point scale of reported prices.
var Scale = decimal.New(1, 36)

// Static is a price feed whose value is set explicitly.
type Static struct {
	mu    sync.RWMutex
	price *uint256.Int
	err   error
}

// NewStatic returns a feed reporting price.
func NewStatic(price *uint256.Int) *Static {
	s := &Static{}
	s.SetPrice(price)
	return s
}

// Price implements lending.Oracle.
func (s *Static) Price() (*uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.price == nil {
		return nil, ErrPriceUnavailable
	}
	return new(uint256.Int).Set(s.price), nil
}

// SetPrice replaces the reported price and clears any failure.
func (s *Static) SetPrice(price *uint256.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = nil
	if price == nil {
		s.price = nil
		return
	}
	s.price = new(uint256.Int).Set(price)
}

// SetFailure makes Price return err until the next SetPrice.
func (s *Static) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// ScalePrice converts a human price (loan units per collateral unit) into
// the raw scaled value a feed reports, accounting for the decimals of both
// tokens. The result is truncated.
func ScalePrice(price decimal.Decimal, collateralDecimals, loanDecimals uint8) (*uint256.Int, error) {
	if price.IsNegative() {
		return nil, fmt.Errorf("%w: %s", ErrNegativePrice, price)
	}
	exp := int32(loanDecimals) - int32(collateralDecimals)
	raw := price.Mul(Scale).Shift(exp).Truncate(0)
	v, overflow := uint256.FromBig(raw.BigInt())
	if overflow {
		return nil, ErrPriceOverflow
	}
	return v, nil
}

// HumanPrice is the inverse of ScalePrice.
func HumanPrice(raw *uint256.Int, collateralDecimals, loanDecimals uint8) decimal.Decimal {
	exp := int32(collateralDecimals) - int32(loanDecimals)
	return decimal.NewFromBigInt(raw.ToBig(), 0).Div(Scale).Shift(exp)
}
