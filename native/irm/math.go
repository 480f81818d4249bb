package irm

import "math/big"

// Signed WAD arithmetic. Divisions truncate toward zero.

func wMulToZero(x, y *big.Int) *big.Int {
	z := new(big.Int).Mul(x, y)
	return z.Quo(z, wad)
}

func wDivToZero(x, y *big.Int) *big.Int {
	z := new(big.Int).Mul(x, wad)
	return z.Quo(z, y)
}

func bound(x, low, high *big.Int) *big.Int {
	switch {
	case x.Cmp(low) < 0:
		return new(big.Int).Set(low)
	case x.Cmp(high) > 0:
		return new(big.Int).Set(high)
	default:
		return new(big.Int).Set(x)
	}
}
