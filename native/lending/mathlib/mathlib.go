// Package mathlib implements the fixed-point arithmetic shared by the lending
// ledger. Every helper returns a freshly allocated value and never aliases its
// inputs.
//
// Division by zero and results that do not fit in 256 bits are fatal input
// errors: the helpers panic with an Error value. Callers that expose a
// transactional boundary recover it with Catch.
package mathlib

import (
	"github.com/holiman/uint256"
)

// Error is the panic payload raised by the arithmetic helpers.
type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrDivisionByZero Error = "mathlib: division by zero"
	ErrOverflow       Error = "mathlib: overflow"
	ErrUnderflow      Error = "mathlib: underflow"
)

var (
	// WAD represents 1.0.
	WAD = uint256.NewInt(1_000_000_000_000_000_000)

	one      = uint256.NewInt(1)
	twoWAD   = new(uint256.Int).Mul(WAD, uint256.NewInt(2))
	threeWAD = new(uint256.Int).Mul(WAD, uint256.NewInt(3))
)

// Rounding selects the direction of an inexact division.
type Rounding uint8

const (
	Down Rounding = iota
	Up
)

func (r Rounding) String() string {
	if r == Up {
		return "up"
	}
	return "down"
}

// MulDiv returns x*y/d rounded in the requested direction. The product is
// computed on a 512-bit intermediate.
func MulDiv(x, y, d *uint256.Int, rounding Rounding) *uint256.Int {
	if d.IsZero() {
		panic(ErrDivisionByZero)
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		panic(ErrOverflow)
	}
	if rounding == Up && !new(uint256.Int).MulMod(x, y, d).IsZero() {
		return Add(z, one)
	}
	return z
}

// MulDivDown returns floor(x*y/d).
func MulDivDown(x, y, d *uint256.Int) *uint256.Int { return MulDiv(x, y, d, Down) }

// MulDivUp returns ceil(x*y/d).
func MulDivUp(x, y, d *uint256.Int) *uint256.Int { return MulDiv(x, y, d, Up) }

// WMulDown returns floor(x*y/WAD).
func WMulDown(x, y *uint256.Int) *uint256.Int { return MulDivDown(x, y, WAD) }

// WDivDown returns floor(x*WAD/y).
func WDivDown(x, y *uint256.Int) *uint256.Int { return MulDivDown(x, WAD, y) }

// WDivUp returns ceil(x*WAD/y).
func WDivUp(x, y *uint256.Int) *uint256.Int { return MulDivUp(x, WAD, y) }

// WTaylorCompounded approximates e^(x*n) - 1 with the first three non-zero
// terms of its Taylor expansion. Interest accrual is defined by this
// polynomial, so it under-approximates true continuous compounding.
func WTaylorCompounded(x, n *uint256.Int) *uint256.Int {
	firstTerm := Mul(x, n)
	secondTerm := MulDivDown(firstTerm, firstTerm, twoWAD)
	thirdTerm := MulDivDown(secondTerm, firstTerm, threeWAD)
	return Add(Add(firstTerm, secondTerm), thirdTerm)
}

// Add returns x+y and panics on overflow.
func Add(x, y *uint256.Int) *uint256.Int {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		panic(ErrOverflow)
	}
	return z
}

// Sub returns x-y and panics when y > x.
func Sub(x, y *uint256.Int) *uint256.Int {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		panic(ErrUnderflow)
	}
	return z
}

// Mul returns x*y and panics on overflow.
func Mul(x, y *uint256.Int) *uint256.Int {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		panic(ErrOverflow)
	}
	return z
}

// ZeroFloorSub returns max(x-y, 0).
func ZeroFloorSub(x, y *uint256.Int) *uint256.Int {
	if x.Cmp(y) <= 0 {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(x, y)
}

// Min returns a copy of the smaller operand.
func Min(x, y *uint256.Int) *uint256.Int {
	if x.Cmp(y) <= 0 {
		return new(uint256.Int).Set(x)
	}
	return new(uint256.Int).Set(y)
}

// ExactlyOneZero reports whether exactly one of x and y is zero.
func ExactlyOneZero(x, y *uint256.Int) bool {
	return x.IsZero() != y.IsZero()
}

// Catch converts a panic raised by this package into an error stored in
// *err. It must be deferred directly. Any other panic is re-raised.
func Catch(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(Error); ok {
		*err = e
		return
	}
	panic(r)
}
