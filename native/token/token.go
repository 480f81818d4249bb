// Package token is an in-memory fungible token with balances and allowances.
// Mutations are recorded in an optional journal so they roll back together
// with the ledger that moved them.
package token

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"isoledger/core/journal"
	"isoledger/crypto"
)

var (
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrZeroAddress           = errors.New("token: zero address")
	ErrSupplyOverflow        = errors.New("token: supply overflow")
)

type allowanceKey struct {
	owner   crypto.Address
	spender crypto.Address
}

// Token tracks balances and allowances of a single asset.
type Token struct {
	symbol     string
	decimals   uint8
	journal    *journal.Journal
	supply     uint256.Int
	balances   map[crypto.Address]uint256.Int
	allowances map[allowanceKey]uint256.Int
}

// New returns an empty token. j may be nil.
func New(symbol string, decimals uint8, j *journal.Journal) *Token {
	return &Token{
		symbol:     symbol,
		decimals:   decimals,
		journal:    j,
		balances:   make(map[crypto.Address]uint256.Int),
		allowances: make(map[allowanceKey]uint256.Int),
	}
}

// Symbol returns the ticker of the token.
func (t *Token) Symbol() string { return t.symbol }

// Decimals returns the number of decimals of one display unit.
func (t *Token) Decimals() uint8 { return t.decimals }

// TotalSupply returns the amount minted minus the amount burned.
func (t *Token) TotalSupply() *uint256.Int { return new(uint256.Int).Set(&t.supply) }

// BalanceOf returns the balance of account.
func (t *Token) BalanceOf(account crypto.Address) *uint256.Int {
	bal := t.balances[account]
	return new(uint256.Int).Set(&bal)
}

// Allowance returns how much spender may move out of owner's balance.
func (t *Token) Allowance(owner, spender crypto.Address) *uint256.Int {
	allowance := t.allowances[allowanceKey{owner: owner, spender: spender}]
	return new(uint256.Int).Set(&allowance)
}

// Mint credits amount to account.
func (t *Token) Mint(to crypto.Address, amount *uint256.Int) error {
	if to.IsZero() {
		return ErrZeroAddress
	}
	supply, overflow := new(uint256.Int).AddOverflow(&t.supply, amount)
	if overflow {
		return ErrSupplyOverflow
	}
	t.setSupply(supply)
	bal := t.balances[to]
	t.setBalance(to, new(uint256.Int).Add(&bal, amount))
	return nil
}

// Burn debits amount from account.
func (t *Token) Burn(from crypto.Address, amount *uint256.Int) error {
	bal := t.balances[from]
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from, bal.Dec(), amount.Dec())
	}
	t.setBalance(from, new(uint256.Int).Sub(&bal, amount))
	t.setSupply(new(uint256.Int).Sub(&t.supply, amount))
	return nil
}

// Approve sets the allowance of spender over owner's balance. The maximum
// uint256 value is an unlimited allowance that is never decreased.
func (t *Token) Approve(owner, spender crypto.Address, amount *uint256.Int) error {
	if owner.IsZero() || spender.IsZero() {
		return ErrZeroAddress
	}
	t.setAllowance(allowanceKey{owner: owner, spender: spender}, amount)
	return nil
}

// Transfer moves amount from from to to.
func (t *Token) Transfer(from, to crypto.Address, amount *uint256.Int) error {
	if to.IsZero() {
		return ErrZeroAddress
	}
	fromBal := t.balances[from]
	if fromBal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from, fromBal.Dec(), amount.Dec())
	}
	if from == to {
		return nil
	}
	t.setBalance(from, new(uint256.Int).Sub(&fromBal, amount))
	toBal := t.balances[to]
	t.setBalance(to, new(uint256.Int).Add(&toBal, amount))
	return nil
}

// TransferFrom moves amount from from to to, spending the allowance from
// granted to spender. An account spending its own balance needs no
// allowance. A rejected transfer leaves the allowance untouched.
func (t *Token) TransferFrom(spender, from, to crypto.Address, amount *uint256.Int) error {
	if to.IsZero() {
		return ErrZeroAddress
	}
	if fromBal := t.balances[from]; fromBal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from, fromBal.Dec(), amount.Dec())
	}
	if spender != from {
		key := allowanceKey{owner: from, spender: spender}
		allowance := t.allowances[key]
		if allowance.Lt(amount) {
			return fmt.Errorf("%w: %s allows %s %s, needs %s", ErrInsufficientAllowance, from, spender, allowance.Dec(), amount.Dec())
		}
		if !isUnlimited(&allowance) {
			t.setAllowance(key, new(uint256.Int).Sub(&allowance, amount))
		}
	}
	return t.Transfer(from, to, amount)
}

func isUnlimited(v *uint256.Int) bool {
	return v.Eq(new(uint256.Int).SetAllOne())
}

func (t *Token) setSupply(v *uint256.Int) {
	prev := t.supply
	t.supply = *v
	t.journal.Append(func() { t.supply = prev })
}

func (t *Token) setBalance(account crypto.Address, v *uint256.Int) {
	prev, existed := t.balances[account]
	if v.IsZero() {
		delete(t.balances, account)
	} else {
		t.balances[account] = *v
	}
	t.journal.Append(func() {
		if existed {
			t.balances[account] = prev
		} else {
			delete(t.balances, account)
		}
	})
}

func (t *Token) setAllowance(key allowanceKey, v *uint256.Int) {
	prev, existed := t.allowances[key]
	if v.IsZero() {
		delete(t.allowances, key)
	} else {
		t.allowances[key] = *v
	}
	t.journal.Append(func() {
		if existed {
			t.allowances[key] = prev
		} else {
			delete(t.allowances, key)
		}
	})
}
