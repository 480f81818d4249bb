package irm

import (
	"math"
	"math/big"
	"testing"
)

func wadFloat(v *big.Int) float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(v), new(big.Float).SetInt(wad)).Float64()
	return f
}

func TestWExpExactPoints(t *testing.T) {
	cases := []struct {
		name string
		x    *big.Int
		want *big.Int
	}{
		{"zero", big.NewInt(0), wad},
		{"ln2", ln2, new(big.Int).Mul(wad, big.NewInt(2))},
		{"minus ln2", new(big.Int).Neg(ln2), new(big.Int).Quo(wad, big.NewInt(2))},
		{"below ln wei", new(big.Int).Sub(LnWei, big.NewInt(1)), big.NewInt(0)},
		{"upper bound", WExpUpperBound, WExpUpperValue},
		{"far above upper bound", new(big.Int).Mul(WExpUpperBound, big.NewInt(10)), WExpUpperValue},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := WExp(tc.x); got.Cmp(tc.want) != 0 {
				t.Fatalf("WExp(%s): got %s want %s", tc.x, got, tc.want)
			}
		})
	}
}

func TestWExpTracksExponential(t *testing.T) {
	for _, x := range []float64{-10, -3.5, -1, -0.25, 0.1, 0.5, 1, 2.75, 10, 40} {
		in, _ := new(big.Float).Mul(big.NewFloat(x), new(big.Float).SetInt(wad)).Int(nil)
		got := wadFloat(WExp(in))
		want := math.Exp(x)
		if rel := math.Abs(got-want) / want; rel > 0.01 {
			t.Fatalf("WExp(%v): got %v want %v (relative error %v)", x, got, want, rel)
		}
	}
}

func TestWExpDoesNotMutateInput(t *testing.T) {
	x := big.NewInt(1_234_567_890_123_456_789)
	before := new(big.Int).Set(x)
	WExp(x)
	if x.Cmp(before) != 0 {
		t.Fatalf("input mutated: %s", x)
	}
}

func FuzzWExpStaysInRange(f *testing.F) {
	f.Add(int64(0))
	f.Add(int64(-1))
	f.Add(int64(math.MaxInt64))
	f.Add(int64(math.MinInt64))
	f.Fuzz(func(t *testing.T, seed int64) {
		// Scale the seed so the whole input domain, including both
		// saturation regions, is reachable.
		x := new(big.Int).Mul(big.NewInt(seed), big.NewInt(100))
		got := WExp(x)
		if got.Sign() < 0 || got.Cmp(WExpUpperValue) > 0 {
			t.Fatalf("WExp(%s) = %s out of range", x, got)
		}
	})
}

func TestWExpMonotonicAcrossShiftBoundaries(t *testing.T) {
	prev := WExp(new(big.Int).Set(LnWei))
	step := new(big.Int).Quo(ln2, big.NewInt(7))
	for x := new(big.Int).Set(LnWei); x.Cmp(WExpUpperBound) < 0; x.Add(x, step) {
		got := WExp(x)
		if got.Cmp(prev) < 0 {
			t.Fatalf("WExp decreased at %s: %s < %s", x, got, prev)
		}
		prev = got
	}
}
