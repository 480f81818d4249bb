package irm

import "math/big"

var (
	// ln2 is ln(2), WAD scaled.
	ln2     = big.NewInt(693_147_180_559_945_309)
	halfLn2 = new(big.Int).Quo(ln2, big.NewInt(2))

	// LnWei is ln(1e-18), WAD scaled. Below it WExp returns 0.
	LnWei = mustBig("-41446531673892822312")
	// WExpUpperBound is the input above which WExp saturates.
	WExpUpperBound = mustBig("93859467695000404319")
	// WExpUpperValue is WExp(WExpUpperBound).
	WExpUpperValue = mustBig("57716089161558943949701069502944508345128422502756744429568")
)

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("irm: invalid constant " + s)
	}
	return v
}

// WExp approximates e^x for a WAD-scaled x and returns a WAD-scaled result.
//
// x is decomposed as q*ln(2) + r with |r| <= ln(2)/2, e^r is approximated by
// its second-order Taylor polynomial and the result is shifted by q bits.
// The result is 0 below LnWei and saturates at WExpUpperValue from
// WExpUpperBound on.
func WExp(x *big.Int) *big.Int {
	if x.Cmp(LnWei) < 0 {
		return new(big.Int)
	}
	if x.Cmp(WExpUpperBound) >= 0 {
		return new(big.Int).Set(WExpUpperValue)
	}

	// q rounds x/ln2 to the nearest integer, ties away from zero.
	rounded := new(big.Int)
	if x.Sign() < 0 {
		rounded.Sub(x, halfLn2)
	} else {
		rounded.Add(x, halfLn2)
	}
	q := rounded.Quo(rounded, ln2)
	r := new(big.Int).Sub(x, new(big.Int).Mul(q, ln2))

	// e^r ~= 1 + r + r^2/2
	expR := new(big.Int).Mul(r, r)
	expR.Quo(expR, wad)
	expR.Quo(expR, big.NewInt(2))
	expR.Add(expR, r)
	expR.Add(expR, wad)

	shift := q.Int64()
	if shift >= 0 {
		return expR.Lsh(expR, uint(shift))
	}
	return expR.Rsh(expR, uint(-shift))
}
