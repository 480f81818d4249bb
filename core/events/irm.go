package events

import (
	"github.com/holiman/uint256"

	"isoledger/core/types"
)

// TypeIRMBorrowRateUpdate is emitted when the adaptive rate model persists a
// new rate at target for a market.
const TypeIRMBorrowRateUpdate = "irm.borrowRateUpdate"

// IRMBorrowRateUpdate captures the average rate served to the ledger and the
// rate at target stored for the next query.
type IRMBorrowRateUpdate struct {
	MarketID      string
	AvgBorrowRate *uint256.Int
	RateAtTarget  *uint256.Int
}

// EventType satisfies the Event interface.
func (IRMBorrowRateUpdate) EventType() string { return TypeIRMBorrowRateUpdate }

// Event converts the structured payload into a broadcastable event.
func (e IRMBorrowRateUpdate) Event() *types.Event {
	return &types.Event{Type: TypeIRMBorrowRateUpdate, Attributes: map[string]string{
		"id":            e.MarketID,
		"avgBorrowRate": formatAmount(e.AvgBorrowRate),
		"rateAtTarget":  formatAmount(e.RateAtTarget),
	}}
}
