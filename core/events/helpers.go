package events

import (
	"strconv"

	"github.com/holiman/uint256"

	"isoledger/crypto"
)

func formatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func formatAddress(a crypto.Address) string {
	return a.String()
}

func formatBool(v bool) string {
	return strconv.FormatBool(v)
}
