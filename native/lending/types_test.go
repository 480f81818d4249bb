package lending

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/holiman/uint256"

	"isoledger/crypto"
)

func testParams() MarketParams {
	return MarketParams{
		LoanToken:       crypto.DeriveAddress("loan"),
		CollateralToken: crypto.DeriveAddress("collateral"),
		Oracle:          crypto.DeriveAddress("oracle"),
		IRM:             crypto.DeriveAddress("irm"),
		LLTV:            *uint256.NewInt(860_000_000_000_000_000),
	}
}

func TestMarketIDDependsOnEveryField(t *testing.T) {
	base := testParams()
	id := base.ID()
	if id.IsZero() {
		t.Fatalf("id must not be zero")
	}
	if base.ID() != id {
		t.Fatalf("id is not deterministic")
	}

	mutations := []func(*MarketParams){
		func(p *MarketParams) { p.LoanToken = crypto.DeriveAddress("x") },
		func(p *MarketParams) { p.CollateralToken = crypto.DeriveAddress("x") },
		func(p *MarketParams) { p.Oracle = crypto.DeriveAddress("x") },
		func(p *MarketParams) { p.IRM = crypto.ZeroAddress },
		func(p *MarketParams) { p.LLTV.AddUint64(&p.LLTV, 1) },
	}
	for i, mutate := range mutations {
		p := testParams()
		mutate(&p)
		if p.ID() == id {
			t.Fatalf("mutation %d kept the id", i)
		}
	}

	// Swapping the tokens is a different market.
	swapped := base
	swapped.LoanToken, swapped.CollateralToken = base.CollateralToken, base.LoanToken
	if swapped.ID() == id {
		t.Fatalf("token order must matter")
	}
}

func TestMarketIDText(t *testing.T) {
	id := testParams().ID()
	parsed, err := ParseMarketID(id.Hex())
	if err != nil || parsed != id {
		t.Fatalf("round trip failed: %v", err)
	}
	if !strings.HasPrefix(id.String(), "0x") || len(id.String()) != 66 {
		t.Fatalf("unexpected rendering %s", id)
	}

	raw, err := json.Marshal(map[string]MarketID{"id": id})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]MarketID
	if err := json.Unmarshal(raw, &decoded); err != nil || decoded["id"] != id {
		t.Fatalf("json round trip failed: %v", err)
	}

	if _, err := ParseMarketID("0x1234"); err == nil {
		t.Fatalf("expected short id to be rejected")
	}
	if _, err := ParseMarketID("not-hex"); err == nil {
		t.Fatalf("expected malformed id to be rejected")
	}
}

func TestApplyInterestWithoutFee(t *testing.T) {
	m := Market{}
	m.TotalSupplyAssets.SetUint64(1_000_000_000_000)
	m.TotalSupplyShares.SetUint64(1_000_000_000_000_000_000)
	m.TotalBorrowAssets.SetUint64(500_000_000_000)
	interest, feeShares := applyInterest(&m, uint256.NewInt(3_170_979_198), 31_536_000)
	if interest.Uint64() != 52_583_333_326 || !feeShares.IsZero() {
		t.Fatalf("unexpected interest %s fee shares %s", interest, feeShares)
	}
	if m.TotalBorrowAssets.Uint64() != 552_583_333_326 || m.TotalSupplyAssets.Uint64() != 1_052_583_333_326 {
		t.Fatalf("totals not updated: %+v", m)
	}
}
