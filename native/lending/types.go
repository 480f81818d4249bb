package lending

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"isoledger/crypto"
)

// MarketID is the primary key of a market. It is the keccak256 hash of the
// market parameters encoded as five 32-byte words.
type MarketID [32]byte

// Hex renders the identifier as a 0x-prefixed hex string.
func (id MarketID) Hex() string { return hexutil.Encode(id[:]) }

func (id MarketID) String() string { return id.Hex() }

// IsZero reports whether the identifier is unset.
func (id MarketID) IsZero() bool { return id == MarketID{} }

// MarshalText implements encoding.TextMarshaler.
func (id MarketID) MarshalText() ([]byte, error) { return []byte(id.Hex()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *MarketID) UnmarshalText(text []byte) error {
	parsed, err := ParseMarketID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseMarketID decodes a 0x-prefixed hex market identifier.
func ParseMarketID(s string) (MarketID, error) {
	raw, err := hexutil.Decode(s)
	if err != nil {
		return MarketID{}, fmt.Errorf("lending: parse market id: %w", err)
	}
	if len(raw) != len(MarketID{}) {
		return MarketID{}, fmt.Errorf("lending: market id must be 32 bytes, got %d", len(raw))
	}
	var id MarketID
	copy(id[:], raw)
	return id, nil
}

// MarketParams is the immutable configuration of an isolated market.
type MarketParams struct {
	// LoanToken is the asset lent and borrowed in the market.
	LoanToken crypto.Address
	// CollateralToken is the asset pledged by borrowers.
	CollateralToken crypto.Address
	// Oracle prices one unit of collateral in loan units, scaled by 1e36.
	Oracle crypto.Address
	// IRM is the rate model queried on every accrual. The zero address
	// disables interest.
	IRM crypto.Address
	// LLTV is the liquidation loan-to-value, WAD scaled and below 1.
	LLTV uint256.Int
}

// ID derives the market identifier from the parameters.
func (p MarketParams) ID() MarketID {
	lltv := p.LLTV.Bytes32()
	return MarketID(ethcrypto.Keccak256Hash(
		p.LoanToken.Word(),
		p.CollateralToken.Word(),
		p.Oracle.Word(),
		p.IRM.Word(),
		lltv[:],
	))
}

// Market captures the pooled accounting of one market.
type Market struct {
	// TotalSupplyAssets is the loan asset owed to suppliers, interest
	// included.
	TotalSupplyAssets uint256.Int
	// TotalSupplyShares is the sum of every position's supply shares.
	TotalSupplyShares uint256.Int
	// TotalBorrowAssets is the loan asset owed by borrowers, interest
	// included.
	TotalBorrowAssets uint256.Int
	// TotalBorrowShares is the sum of every position's borrow shares.
	TotalBorrowShares uint256.Int
	// LastUpdate is the timestamp of the last interest accrual.
	LastUpdate uint64
	// Fee is the WAD-scaled share of interest minted to the fee recipient.
	Fee uint256.Int
}

// Position is one account's standing in one market.
type Position struct {
	SupplyShares uint256.Int
	BorrowShares uint256.Int
	Collateral   uint256.Int
}

// IsZero reports whether the position holds nothing.
func (p Position) IsZero() bool {
	return p.SupplyShares.IsZero() && p.BorrowShares.IsZero() && p.Collateral.IsZero()
}

// Env carries the caller identity and the current time into every ledger
// call.
type Env struct {
	Sender crypto.Address
	Now    uint64
}

// RateQuote is the outcome of an authoritative rate query: the borrow rate
// applied to the elapsed period and the rate at target the model would
// persist once the enclosing ledger call succeeds.
type RateQuote struct {
	Rate         *uint256.Int
	RateAtTarget *uint256.Int
}

// Authorization is the message signed by an authorizer to grant or revoke an
// operator without sending a transaction themselves.
type Authorization struct {
	Authorizer   crypto.Address
	Authorized   crypto.Address
	IsAuthorized bool
	Nonce        uint64
	Deadline     uint64
}

// Balances is a snapshot of a market's totals.
type Balances struct {
	TotalSupplyAssets *uint256.Int
	TotalSupplyShares *uint256.Int
	TotalBorrowAssets *uint256.Int
	TotalBorrowShares *uint256.Int
}

// ActionPauses exposes fine-grained switches for pausing individual lending flows.
type ActionPauses struct {
	Supply    bool
	Borrow    bool
	Repay     bool
	Liquidate bool
}
