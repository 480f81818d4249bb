package irm

import "math/big"

// SecondsPerYear is the number of seconds in a 365-day year.
const SecondsPerYear = 365 * 24 * 60 * 60

var (
	wad = big.NewInt(1_000_000_000_000_000_000)

	// MaxCurveSteepness bounds the ratio between the rate at full
	// utilization and the rate at target.
	MaxCurveSteepness = mulWad(100)
	// MaxAdjustmentSpeed bounds how fast the rate at target moves: 1000 per
	// year, WAD scaled.
	MaxAdjustmentSpeed = perYear(mulWad(1000))
	// MinRateAtTarget is 0.1% APR expressed per second.
	MinRateAtTarget = perYear(big.NewInt(1_000_000_000_000_000))
	// MaxRateAtTarget is 200% APR expressed per second.
	MaxRateAtTarget = perYear(mulWad(2))

	// DefaultCurveSteepness is 4.
	DefaultCurveSteepness = mulWad(4)
	// DefaultAdjustmentSpeed is 50 per year.
	DefaultAdjustmentSpeed = perYear(mulWad(50))
	// DefaultTargetUtilization is 90%.
	DefaultTargetUtilization = big.NewInt(900_000_000_000_000_000)
	// DefaultInitialRateAtTarget is 4% APR expressed per second.
	DefaultInitialRateAtTarget = perYear(big.NewInt(40_000_000_000_000_000))
)

func mulWad(v int64) *big.Int { return new(big.Int).Mul(big.NewInt(v), wad) }

func perYear(v *big.Int) *big.Int { return new(big.Int).Quo(v, big.NewInt(SecondsPerYear)) }
