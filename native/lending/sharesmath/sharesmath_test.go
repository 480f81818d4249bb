package sharesmath

import (
	"testing"

	"github.com/holiman/uint256"
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func TestFirstDepositMintsVirtualRatio(t *testing.T) {
	assets := u(1_000_000_000) // 1_000 units with 6 decimals
	got := ToSharesDown(assets, u(0), u(0))
	want := new(uint256.Int).Mul(assets, u(1_000_000))
	if !got.Eq(want) {
		t.Fatalf("first deposit shares: got %s want %s", got, want)
	}
}

func TestSecondDepositExactFormula(t *testing.T) {
	first := u(1_000_000_000)
	sharesSoFar := new(uint256.Int).Mul(first, u(1_000_000))

	second := u(1_300_000_000)
	got := ToSharesDown(second, first, sharesSoFar)

	num := new(uint256.Int).Mul(second, new(uint256.Int).Add(sharesSoFar, u(1_000_000)))
	want := new(uint256.Int).Div(num, new(uint256.Int).Add(first, u(1)))
	if !got.Eq(want) {
		t.Fatalf("second deposit shares: got %s want %s", got, want)
	}
}

func TestDownNeverExceedsUp(t *testing.T) {
	totals := []struct{ assets, shares uint64 }{
		{0, 0},
		{1, 1_000_000},
		{1_000_003, 999_999_937},
		{7, 3},
	}
	for _, tot := range totals {
		for x := uint64(0); x < 50; x++ {
			down := ToSharesDown(u(x), u(tot.assets), u(tot.shares))
			up := ToSharesUp(u(x), u(tot.assets), u(tot.shares))
			if down.Gt(up) {
				t.Fatalf("toShares down %s > up %s for x=%d totals=%+v", down, up, x, tot)
			}
			aDown := ToAssetsDown(u(x), u(tot.assets), u(tot.shares))
			aUp := ToAssetsUp(u(x), u(tot.assets), u(tot.shares))
			if aDown.Gt(aUp) {
				t.Fatalf("toAssets down %s > up %s for x=%d totals=%+v", aDown, aUp, x, tot)
			}
		}
	}
}

func TestDepositThenRedeemNeverGains(t *testing.T) {
	totalAssets := u(123_456_789)
	totalShares := u(98_765_432_100_000)
	for _, deposit := range []uint64{1, 2, 17, 1_000, 999_999, 123_456_789} {
		shares := ToSharesDown(u(deposit), totalAssets, totalShares)
		newAssets := new(uint256.Int).Add(totalAssets, u(deposit))
		newShares := new(uint256.Int).Add(totalShares, shares)
		redeemed := ToAssetsDown(shares, newAssets, newShares)
		if redeemed.Gt(u(deposit)) {
			t.Fatalf("deposit %d redeemed %s", deposit, redeemed)
		}
	}
}

func FuzzRoundTripFavoursPool(f *testing.F) {
	f.Add(uint64(1), uint64(0), uint64(0))
	f.Add(uint64(1_000), uint64(10_000), uint64(9_000_000_000))
	f.Fuzz(func(t *testing.T, deposit, totalAssets, totalShares uint64) {
		shares := ToSharesDown(u(deposit), u(totalAssets), u(totalShares))
		newAssets := new(uint256.Int).Add(u(totalAssets), u(deposit))
		newShares := new(uint256.Int).Add(u(totalShares), shares)
		redeemed := ToAssetsDown(shares, newAssets, newShares)
		if redeemed.Gt(u(deposit)) {
			t.Fatalf("free value via rounding: deposit %d redeemed %s", deposit, redeemed)
		}
		// Withdrawing the deposited amount by assets must burn at least the
		// shares that were minted for it.
		if burn := ToSharesUp(u(deposit), newAssets, newShares); burn.Lt(shares) {
			t.Fatalf("withdrawing %d burns %s shares, fewer than minted %s", deposit, burn, shares)
		}
	})
}
