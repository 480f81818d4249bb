package lending_test

import (
	"errors"
	"testing"

	"isoledger/core/events"
	"isoledger/crypto"
	"isoledger/native/lending"
	"isoledger/native/lending/sharesmath"
)

func TestSupplyMintsSharesAtVirtualPrice(t *testing.T) {
	f := newFixture(t)
	alice := crypto.DeriveAddress("alice")
	bob := crypto.DeriveAddress("bob")

	f.fund(f.loan, alice, 1_000)
	assets, shares, err := f.engine.Supply(f.env(alice), f.params, u(1_000), nil, alice, nil)
	if err != nil {
		t.Fatalf("supply: %v", err)
	}
	if assets.Uint64() != 1_000 || shares.Uint64() != 1_000_000_000 {
		t.Fatalf("first supply: assets %s shares %s", assets, shares)
	}

	f.fund(f.loan, bob, 500)
	_, shares, err = f.engine.Supply(f.env(bob), f.params, u(500), nil, bob, nil)
	if err != nil {
		t.Fatalf("second supply: %v", err)
	}
	if shares.Uint64() != 500_000_000 {
		t.Fatalf("second supply shares %s", shares)
	}

	m := f.market()
	if m.TotalSupplyAssets.Uint64() != 1_500 || m.TotalSupplyShares.Uint64() != 1_500_000_000 {
		t.Fatalf("unexpected market %+v", m)
	}
	if f.loan.BalanceOf(f.ledger).Uint64() != 1_500 {
		t.Fatalf("ledger holds %s", f.loan.BalanceOf(f.ledger))
	}
	if types := f.recorder.Types(); len(types) != 2 || types[0] != events.TypeLendingSupply {
		t.Fatalf("unexpected events %v", types)
	}
}

func TestSupplyBySharesRoundsAssetsUp(t *testing.T) {
	f := newFixture(t)
	alice := crypto.DeriveAddress("alice")
	f.supply(alice, 1_000)

	bob := crypto.DeriveAddress("bob")
	f.fund(f.loan, bob, 10)
	assets, shares, err := f.engine.Supply(f.env(bob), f.params, nil, u(1_500_000), bob, nil)
	if err != nil {
		t.Fatalf("supply shares: %v", err)
	}
	// 1.5 units worth of shares costs 2 units.
	if assets.Uint64() != 2 || shares.Uint64() != 1_500_000 {
		t.Fatalf("unexpected assets %s shares %s", assets, shares)
	}
}

func TestSupplyValidation(t *testing.T) {
	f := newFixture(t)
	alice := crypto.DeriveAddress("alice")
	f.fund(f.loan, alice, 1_000)

	cases := []struct {
		name     string
		params   lending.MarketParams
		assets   uint64
		shares   uint64
		onBehalf crypto.Address
		want     error
	}{
		{name: "both zero", params: f.params, onBehalf: alice, want: lending.ErrInconsistentInput},
		{name: "both set", params: f.params, assets: 1, shares: 1, onBehalf: alice, want: lending.ErrInconsistentInput},
		{name: "zero on behalf", params: f.params, assets: 1, want: lending.ErrZeroAddress},
		{name: "unknown market", params: lending.MarketParams{}, assets: 1, onBehalf: alice, want: lending.ErrMarketNotCreated},
	}
	for _, tc := range cases {
		before := f.snapshot(alice)
		_, _, err := f.engine.Supply(f.env(alice), tc.params, u(tc.assets), u(tc.shares), tc.onBehalf, nil)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		f.requireUnchanged(before)
	}
}

func TestSupplyWithoutFundsReverts(t *testing.T) {
	f := newFixture(t)
	alice := crypto.DeriveAddress("alice")
	before := f.snapshot(alice)
	if _, _, err := f.engine.Supply(f.env(alice), f.params, u(1_000), nil, alice, nil); err == nil {
		t.Fatalf("expected supply without balance to fail")
	}
	f.requireUnchanged(before)
}

func TestSupplyOnBehalfCreditsBeneficiary(t *testing.T) {
	f := newFixture(t)
	payer := crypto.DeriveAddress("payer")
	beneficiary := crypto.DeriveAddress("beneficiary")
	f.fund(f.loan, payer, 100)
	if _, _, err := f.engine.Supply(f.env(payer), f.params, u(100), nil, beneficiary, nil); err != nil {
		t.Fatalf("supply: %v", err)
	}
	if f.position(beneficiary).SupplyShares.Uint64() != 100_000_000 || !f.position(payer).IsZero() {
		t.Fatalf("shares credited to the wrong account")
	}
	if !f.loan.BalanceOf(payer).IsZero() {
		t.Fatalf("payer was not debited")
	}
}

func TestWithdrawRequiresAuthorization(t *testing.T) {
	f := newFixture(t)
	alice := crypto.DeriveAddress("alice")
	operator := crypto.DeriveAddress("operator")
	f.supply(alice, 1_000)

	before := f.snapshot(alice, operator)
	if _, _, err := f.engine.Withdraw(f.env(operator), f.params, u(100), nil, alice, operator); !errors.Is(err, lending.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	f.requireUnchanged(before)

	mustNoErr(t, f.engine.SetAuthorization(f.env(alice), operator, true))
	assets, shares, err := f.engine.Withdraw(f.env(operator), f.params, u(100), nil, alice, operator)
	if err != nil {
		t.Fatalf("authorized withdraw: %v", err)
	}
	if assets.Uint64() != 100 || shares.Uint64() != 100_000_000 {
		t.Fatalf("unexpected assets %s shares %s", assets, shares)
	}
	if f.loan.BalanceOf(operator).Uint64() != 100 {
		t.Fatalf("receiver got %s", f.loan.BalanceOf(operator))
	}
}

func TestWithdrawAllShares(t *testing.T) {
	f := newFixture(t)
	alice := crypto.DeriveAddress("alice")
	f.supply(alice, 1_000)
	shares := f.position(alice).SupplyShares
	assets, _, err := f.engine.Withdraw(f.env(alice), f.params, nil, &shares, alice, alice)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if assets.Uint64() != 1_000 {
		t.Fatalf("withdrew %s", assets)
	}
	m := f.market()
	if !m.TotalSupplyAssets.IsZero() || !m.TotalSupplyShares.IsZero() || !f.position(alice).IsZero() {
		t.Fatalf("expected empty market, got %+v", m)
	}
}

func TestWithdrawBeyondShares(t *testing.T) {
	f := newFixture(t)
	alice := crypto.DeriveAddress("alice")
	f.supply(alice, 1_000)
	before := f.snapshot(alice)
	if _, _, err := f.engine.Withdraw(f.env(alice), f.params, u(1_001), nil, alice, alice); !errors.Is(err, lending.ErrInsufficientShares) {
		t.Fatalf("expected ErrInsufficientShares, got %v", err)
	}
	if _, _, err := f.engine.Withdraw(f.env(alice), f.params, u(1), nil, alice, crypto.ZeroAddress); !errors.Is(err, lending.ErrZeroAddress) {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}
	f.requireUnchanged(before)
}

func TestWithdrawBlockedByBorrowedLiquidity(t *testing.T) {
	f := newFixture(t)
	alice := crypto.DeriveAddress("alice")
	bob := crypto.DeriveAddress("bob")
	f.supply(alice, 1_000)
	f.supplyCollateral(bob, 1_000)
	f.borrow(bob, 600)

	before := f.snapshot(alice, bob)
	if _, _, err := f.engine.Withdraw(f.env(alice), f.params, u(401), nil, alice, alice); !errors.Is(err, lending.ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
	f.requireUnchanged(before)
	if _, _, err := f.engine.Withdraw(f.env(alice), f.params, u(400), nil, alice, alice); err != nil {
		t.Fatalf("withdrawing the idle liquidity: %v", err)
	}
}

// TestRoundingFavoursLedger checks every conversion against the helper the
// call site must use once the totals are no longer round numbers.
func TestRoundingFavoursLedger(t *testing.T) {
	f, lender, borrower := accrualSetup(t, withRate(u(7_777_777_777)))
	f.advance(12_345)
	mustNoErr(t, f.engine.AccrueInterest(f.env(lender), f.params))

	check := func(name string, got, want interface{ Dec() string }) {
		t.Helper()
		if got.Dec() != want.Dec() {
			t.Fatalf("%s: got %s want %s", name, got.Dec(), want.Dec())
		}
	}

	m := f.market()
	f.fund(f.loan, lender, 1_000_000)
	_, shares, err := f.engine.Supply(f.env(lender), f.params, u(777), nil, lender, nil)
	mustNoErr(t, err)
	check("supply assets", shares, sharesmath.ToSharesDown(u(777), &m.TotalSupplyAssets, &m.TotalSupplyShares))

	m = f.market()
	assets, _, err := f.engine.Supply(f.env(lender), f.params, nil, u(777_777), lender, nil)
	mustNoErr(t, err)
	check("supply shares", assets, sharesmath.ToAssetsUp(u(777_777), &m.TotalSupplyAssets, &m.TotalSupplyShares))

	m = f.market()
	_, shares, err = f.engine.Withdraw(f.env(lender), f.params, u(333), nil, lender, lender)
	mustNoErr(t, err)
	check("withdraw assets", shares, sharesmath.ToSharesUp(u(333), &m.TotalSupplyAssets, &m.TotalSupplyShares))

	m = f.market()
	assets, _, err = f.engine.Withdraw(f.env(lender), f.params, nil, u(333_333), lender, lender)
	mustNoErr(t, err)
	check("withdraw shares", assets, sharesmath.ToAssetsDown(u(333_333), &m.TotalSupplyAssets, &m.TotalSupplyShares))

	m = f.market()
	_, shares, err = f.engine.Borrow(f.env(borrower), f.params, u(555), nil, borrower, borrower)
	mustNoErr(t, err)
	check("borrow assets", shares, sharesmath.ToSharesUp(u(555), &m.TotalBorrowAssets, &m.TotalBorrowShares))

	m = f.market()
	assets, _, err = f.engine.Borrow(f.env(borrower), f.params, nil, u(555_555), borrower, borrower)
	mustNoErr(t, err)
	check("borrow shares", assets, sharesmath.ToAssetsDown(u(555_555), &m.TotalBorrowAssets, &m.TotalBorrowShares))

	f.fund(f.loan, borrower, 1_000_000)
	m = f.market()
	_, shares, err = f.engine.Repay(f.env(borrower), f.params, u(222), nil, borrower, nil)
	mustNoErr(t, err)
	check("repay assets", shares, sharesmath.ToSharesDown(u(222), &m.TotalBorrowAssets, &m.TotalBorrowShares))

	m = f.market()
	assets, _, err = f.engine.Repay(f.env(borrower), f.params, nil, u(222_222), borrower, nil)
	mustNoErr(t, err)
	check("repay shares", assets, sharesmath.ToAssetsUp(u(222_222), &m.TotalBorrowAssets, &m.TotalBorrowShares))
}
