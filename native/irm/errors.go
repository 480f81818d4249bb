package irm

import "errors"

var (
	ErrInputTooSmall   = errors.New("irm: input too small")
	ErrInputTooLarge   = errors.New("irm: input too large")
	ErrZeroAddress     = errors.New("irm: zero address")
	ErrNotLedger       = errors.New("irm: caller is not the ledger")
	ErrClockRegression = errors.New("irm: timestamp before last update")
	ErrRateOutOfRange  = errors.New("irm: rate at target out of range")
)
