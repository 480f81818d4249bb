package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"isoledger/crypto"
	"isoledger/native/irm"
)

var wadScale = decimal.New(1, 18)

// ResolveAddress turns a label into an account. Values already in address
// form (0x-hex or bech32) are decoded; anything else is a label.
func ResolveAddress(label string) (crypto.Address, error) {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return crypto.Address{}, fmt.Errorf("empty address label")
	}
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, crypto.AddressPrefix+"1") {
		return crypto.DecodeAddress(trimmed)
	}
	return crypto.DeriveAddress(trimmed), nil
}

// ParseDecimal parses a non-negative decimal string.
func ParseDecimal(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("empty value")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal %q: %w", raw, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative value %q", raw)
	}
	return d, nil
}

// ParseWad parses a decimal such as "0.86" into its WAD-scaled integer. More
// than 18 fractional digits are rejected rather than rounded.
func ParseWad(raw string) (*uint256.Int, error) {
	d, err := ParseDecimal(raw)
	if err != nil {
		return nil, err
	}
	scaled := d.Mul(wadScale)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("value %q has more than 18 decimals", raw)
	}
	v, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, fmt.Errorf("value %q overflows 256 bits", raw)
	}
	return v, nil
}

// FormatWad renders a WAD-scaled integer as a decimal string.
func FormatWad(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v.ToBig(), -18).String()
}

// ParseUnits parses a human token amount into base units.
func ParseUnits(raw string, decimals uint8) (*uint256.Int, error) {
	d, err := ParseDecimal(raw)
	if err != nil {
		return nil, err
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %q has more than %d decimals", raw, decimals)
	}
	v, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, fmt.Errorf("amount %q overflows 256 bits", raw)
	}
	return v, nil
}

// ParseLLTV returns the WAD-scaled liquidation LTV of the market.
func (m Market) ParseLLTV() (*uint256.Int, error) {
	v, err := ParseWad(m.LLTV)
	if err != nil {
		return nil, fmt.Errorf("market %s: lltv: %w", m.Name, err)
	}
	return v, nil
}

// ParseFee returns the WAD-scaled fee of the market. An empty fee is zero.
func (m Market) ParseFee() (*uint256.Int, error) {
	if strings.TrimSpace(m.Fee) == "" {
		return new(uint256.Int), nil
	}
	v, err := ParseWad(m.Fee)
	if err != nil {
		return nil, fmt.Errorf("market %s: fee: %w", m.Name, err)
	}
	return v, nil
}

// ParsePrice returns the human price of the feed.
func (o Oracle) ParsePrice() (decimal.Decimal, error) {
	d, err := ParseDecimal(o.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("oracle %s: price: %w", o.Name, err)
	}
	return d, nil
}

// FixedAPR returns the WAD-scaled annual rate of a fixed model.
func (r RateModel) FixedAPR() (*uint256.Int, error) {
	if r.Kind != KindFixed {
		return nil, fmt.Errorf("rate model %s is %s, not %s", r.Name, r.Kind, KindFixed)
	}
	v, err := ParseWad(r.APR)
	if err != nil {
		return nil, fmt.Errorf("rate model %s: apr: %w", r.Name, err)
	}
	return v, nil
}

// AdaptiveParams returns the parameters of an adaptive model. Annual values
// are converted to per-second rates; omitted values keep their defaults.
func (r RateModel) AdaptiveParams() (irm.Params, error) {
	if r.Kind != KindAdaptive {
		return irm.Params{}, fmt.Errorf("rate model %s is %s, not %s", r.Name, r.Kind, KindAdaptive)
	}
	params := irm.DefaultParams()
	fields := []struct {
		name    string
		raw     string
		dst     **big.Int
		perYear bool
	}{
		{"CurveSteepness", r.CurveSteepness, &params.CurveSteepness, false},
		{"AdjustmentSpeed", r.AdjustmentSpeed, &params.AdjustmentSpeed, true},
		{"TargetUtilization", r.TargetUtilization, &params.TargetUtilization, false},
		{"InitialRateAtTarget", r.InitialRateAtTarget, &params.InitialRateAtTarget, true},
	}
	for _, field := range fields {
		if strings.TrimSpace(field.raw) == "" {
			continue
		}
		v, err := ParseWad(field.raw)
		if err != nil {
			return irm.Params{}, fmt.Errorf("rate model %s: %s: %w", r.Name, field.name, err)
		}
		b := v.ToBig()
		if field.perYear {
			b.Quo(b, big.NewInt(irm.SecondsPerYear))
		}
		*field.dst = b
	}
	if err := params.Validate(); err != nil {
		return irm.Params{}, fmt.Errorf("rate model %s: %w", r.Name, err)
	}
	return params, nil
}
