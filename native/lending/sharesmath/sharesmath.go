// Package sharesmath converts between asset amounts and pool shares.
//
// Conversions add a virtual offset of VirtualShares shares and VirtualAssets
// assets to the pool totals. The offset removes the empty-pool division by
// zero and bounds how far a first depositor can move the share price.
package sharesmath

import (
	"github.com/holiman/uint256"

	"isoledger/native/lending/mathlib"
)

var (
	VirtualShares = uint256.NewInt(1_000_000)
	VirtualAssets = uint256.NewInt(1)
)

// ToShares converts assets into shares with the requested rounding.
func ToShares(assets, totalAssets, totalShares *uint256.Int, rounding mathlib.Rounding) *uint256.Int {
	return mathlib.MulDiv(
		assets,
		mathlib.Add(totalShares, VirtualShares),
		mathlib.Add(totalAssets, VirtualAssets),
		rounding,
	)
}

// ToAssets converts shares into assets with the requested rounding.
func ToAssets(shares, totalAssets, totalShares *uint256.Int, rounding mathlib.Rounding) *uint256.Int {
	return mathlib.MulDiv(
		shares,
		mathlib.Add(totalAssets, VirtualAssets),
		mathlib.Add(totalShares, VirtualShares),
		rounding,
	)
}

func ToSharesDown(assets, totalAssets, totalShares *uint256.Int) *uint256.Int {
	return ToShares(assets, totalAssets, totalShares, mathlib.Down)
}

func ToSharesUp(assets, totalAssets, totalShares *uint256.Int) *uint256.Int {
	return ToShares(assets, totalAssets, totalShares, mathlib.Up)
}

func ToAssetsDown(shares, totalAssets, totalShares *uint256.Int) *uint256.Int {
	return ToAssets(shares, totalAssets, totalShares, mathlib.Down)
}

func ToAssetsUp(shares, totalAssets, totalShares *uint256.Int) *uint256.Int {
	return ToAssets(shares, totalAssets, totalShares, mathlib.Up)
}
