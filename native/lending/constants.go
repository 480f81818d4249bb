package lending

import (
	"github.com/holiman/uint256"

	"isoledger/native/lending/mathlib"
)

const moduleName = "lending"

var (
	// MaxFee caps a market fee at 25% of accrued interest.
	MaxFee = uint256.NewInt(250_000_000_000_000_000)
	// OraclePriceScale is the fixed-point scale of oracle prices.
	OraclePriceScale = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(36))
	// LiquidationCursor shapes the liquidation incentive curve.
	LiquidationCursor = uint256.NewInt(300_000_000_000_000_000)
	// MaxLiquidationIncentiveFactor caps the liquidation incentive at 15%.
	MaxLiquidationIncentiveFactor = uint256.NewInt(1_150_000_000_000_000_000)
)

// LiquidationIncentiveFactor returns the WAD-scaled multiplier applied to
// repaid debt to size the collateral a liquidator receives.
func LiquidationIncentiveFactor(lltv *uint256.Int) *uint256.Int {
	discount := mathlib.WMulDown(LiquidationCursor, mathlib.Sub(mathlib.WAD, lltv))
	return mathlib.Min(
		MaxLiquidationIncentiveFactor,
		mathlib.WDivDown(mathlib.WAD, mathlib.Sub(mathlib.WAD, discount)),
	)
}
