package token

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"isoledger/core/journal"
	"isoledger/crypto"
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func TestMintTransferAndBurn(t *testing.T) {
	tok := New("USDC", 6, nil)
	alice, bob := crypto.DeriveAddress("alice"), crypto.DeriveAddress("bob")

	if err := tok.Mint(alice, u(1_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := tok.Transfer(alice, bob, u(400)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if tok.BalanceOf(alice).Uint64() != 600 || tok.BalanceOf(bob).Uint64() != 400 {
		t.Fatalf("unexpected balances: alice %s bob %s", tok.BalanceOf(alice), tok.BalanceOf(bob))
	}
	if err := tok.Transfer(bob, alice, u(401)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := tok.Burn(bob, u(400)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if tok.TotalSupply().Uint64() != 600 {
		t.Fatalf("unexpected supply %s", tok.TotalSupply())
	}
}

func TestRejectedTransferFromKeepsAllowance(t *testing.T) {
	tok := New("USDC", 6, nil)
	owner, spender := crypto.DeriveAddress("owner"), crypto.DeriveAddress("spender")
	if err := tok.Mint(owner, u(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := tok.Approve(owner, spender, u(100)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if err := tok.TransferFrom(spender, owner, spender, u(50)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := tok.TransferFrom(spender, owner, crypto.ZeroAddress, u(5)); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}
	if got := tok.Allowance(owner, spender).Uint64(); got != 100 {
		t.Fatalf("rejected transfers spent the allowance: %d left", got)
	}
	if tok.BalanceOf(owner).Uint64() != 10 || !tok.BalanceOf(spender).IsZero() {
		t.Fatalf("rejected transfers moved funds")
	}
}

func TestTransferFromSpendsAllowance(t *testing.T) {
	tok := New("WETH", 18, nil)
	owner, spender := crypto.DeriveAddress("owner"), crypto.DeriveAddress("spender")
	if err := tok.Mint(owner, u(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := tok.TransferFrom(spender, owner, spender, u(1)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	if err := tok.Approve(owner, spender, u(60)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := tok.TransferFrom(spender, owner, spender, u(50)); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}
	if got := tok.Allowance(owner, spender).Uint64(); got != 10 {
		t.Fatalf("expected remaining allowance 10, got %d", got)
	}

	unlimited := new(uint256.Int).SetAllOne()
	if err := tok.Approve(owner, spender, unlimited); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := tok.TransferFrom(spender, owner, spender, u(50)); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}
	if !tok.Allowance(owner, spender).Eq(unlimited) {
		t.Fatalf("unlimited allowance must not decrease")
	}
}

func TestJournalRevertRestoresBalances(t *testing.T) {
	j := journal.New()
	tok := New("USDC", 6, j)
	alice, bob := crypto.DeriveAddress("alice"), crypto.DeriveAddress("bob")
	if err := tok.Mint(alice, u(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	snap := j.Snapshot()
	if err := tok.Transfer(alice, bob, u(10)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := tok.Approve(bob, alice, u(5)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	j.RevertToSnapshot(snap)

	if tok.BalanceOf(alice).Uint64() != 10 || !tok.BalanceOf(bob).IsZero() {
		t.Fatalf("revert did not restore balances: alice %s bob %s", tok.BalanceOf(alice), tok.BalanceOf(bob))
	}
	if !tok.Allowance(bob, alice).IsZero() {
		t.Fatalf("revert did not restore allowance")
	}
}
