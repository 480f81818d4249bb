package mathlib

import (
	"errors"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func TestMulDivRounding(t *testing.T) {
	cases := []struct {
		name     string
		x, y, d  uint64
		down, up uint64
	}{
		{"exact", 10, 10, 4, 25, 25},
		{"inexact", 10, 10, 3, 33, 34},
		{"zero numerator", 0, 7, 3, 0, 0},
		{"one third", 1, 1, 3, 0, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MulDivDown(u(tc.x), u(tc.y), u(tc.d)); got.Uint64() != tc.down {
				t.Fatalf("down: got %s want %d", got, tc.down)
			}
			if got := MulDivUp(u(tc.x), u(tc.y), u(tc.d)); got.Uint64() != tc.up {
				t.Fatalf("up: got %s want %d", got, tc.up)
			}
		})
	}
}

func TestMulDivUsesWideIntermediate(t *testing.T) {
	max := new(uint256.Int).SetAllOne()
	got := MulDivDown(max, u(6), u(6))
	if !got.Eq(max) {
		t.Fatalf("expected max/6*6 to round trip, got %s", got)
	}
}

func TestMulDivPanicsOnZeroDivisor(t *testing.T) {
	defer func() {
		r := recover()
		if r != ErrDivisionByZero {
			t.Fatalf("expected ErrDivisionByZero panic, got %v", r)
		}
	}()
	MulDivDown(u(1), u(1), u(0))
}

func TestMulDivPanicsOnOverflow(t *testing.T) {
	max := new(uint256.Int).SetAllOne()
	var err error
	func() {
		defer Catch(&err)
		MulDivDown(max, max, u(1))
	}()
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestCatchRethrowsForeignPanics(t *testing.T) {
	defer func() {
		if r := recover(); r != "boom" {
			t.Fatalf("expected foreign panic to propagate, got %v", r)
		}
	}()
	var err error
	func() {
		defer Catch(&err)
		panic("boom")
	}()
}

func TestWadHelpers(t *testing.T) {
	half := new(uint256.Int).Div(WAD, u(2))
	if got := WMulDown(u(3), half); got.Uint64() != 1 {
		t.Fatalf("wMulDown(3, 0.5): got %s", got)
	}
	if got := WDivDown(u(1), u(3)); got.Uint64() != 333_333_333_333_333_333 {
		t.Fatalf("wDivDown(1, 3): got %s", got)
	}
	if got := WDivUp(u(1), u(3)); got.Uint64() != 333_333_333_333_333_334 {
		t.Fatalf("wDivUp(1, 3): got %s", got)
	}
}

func TestWTaylorCompoundedMatchesPolynomial(t *testing.T) {
	// 10% per year expressed per second, compounded over one year.
	rate := u(3_170_979_198)
	elapsed := u(31_536_000)

	wad := new(big.Int).SetUint64(1_000_000_000_000_000_000)
	first := new(big.Int).Mul(rate.ToBig(), elapsed.ToBig())
	second := new(big.Int).Mul(first, first)
	second.Quo(second, new(big.Int).Mul(wad, big.NewInt(2)))
	third := new(big.Int).Mul(second, first)
	third.Quo(third, new(big.Int).Mul(wad, big.NewInt(3)))
	want := new(big.Int).Add(first, second)
	want.Add(want, third)

	got := WTaylorCompounded(rate, elapsed)
	if got.ToBig().Cmp(want) != 0 {
		t.Fatalf("taylor compounded: got %s want %s", got, want)
	}
	// e^0.1 - 1 ~= 0.10517; the three term expansion stays just below it.
	if got.Uint64() > 105_171_000_000_000_000 || got.Uint64() < 105_160_000_000_000_000 {
		t.Fatalf("unexpected compounded value %s", got)
	}
}

func TestWTaylorCompoundedZero(t *testing.T) {
	if got := WTaylorCompounded(u(0), u(1000)); !got.IsZero() {
		t.Fatalf("expected zero growth, got %s", got)
	}
	if got := WTaylorCompounded(u(1000), u(0)); !got.IsZero() {
		t.Fatalf("expected zero growth for zero elapsed, got %s", got)
	}
}

func TestZeroFloorSubAndMin(t *testing.T) {
	if got := ZeroFloorSub(u(3), u(5)); !got.IsZero() {
		t.Fatalf("expected floor at zero, got %s", got)
	}
	if got := ZeroFloorSub(u(5), u(3)); got.Uint64() != 2 {
		t.Fatalf("unexpected difference %s", got)
	}
	a := u(4)
	m := Min(a, u(9))
	m.AddUint64(m, 1)
	if a.Uint64() != 4 {
		t.Fatalf("Min must not alias its inputs")
	}
}

func TestCheckedArithmetic(t *testing.T) {
	var err error
	func() {
		defer Catch(&err)
		Sub(u(1), u(2))
	}()
	if !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected underflow, got %v", err)
	}

	err = nil
	func() {
		defer Catch(&err)
		Add(new(uint256.Int).SetAllOne(), u(1))
	}()
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func FuzzMulDivDownLeUp(f *testing.F) {
	f.Add(uint64(1), uint64(1), uint64(3))
	f.Add(uint64(1_000_000), uint64(7), uint64(13))
	f.Fuzz(func(t *testing.T, x, y, d uint64) {
		if d == 0 {
			return
		}
		down := MulDivDown(u(x), u(y), u(d))
		up := MulDivUp(u(x), u(y), u(d))
		if down.Gt(up) {
			t.Fatalf("down %s > up %s", down, up)
		}
		diff := new(uint256.Int).Sub(up, down)
		if diff.Uint64() > 1 {
			t.Fatalf("rounding gap larger than one unit: %s", diff)
		}
	})
}
