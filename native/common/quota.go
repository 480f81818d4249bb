package common

import (
	"errors"
	"math"
)

var (
	ErrQuotaCallsExceeded   = errors.New("quota calls exceeded")
	ErrQuotaVolumeExceeded  = errors.New("quota volume exceeded")
	ErrQuotaCounterOverflow = errors.New("quota counter overflow")
)

// QuotaUsage captures the counters of one account in the current epoch.
type QuotaUsage struct {
	Calls   uint32
	Volume  uint64
	EpochID uint64
}

// Quota limits how many calls an account makes and how much volume, in whole
// token units, it moves per epoch. Zero limits are unlimited.
type Quota struct {
	MaxCallsPerEpoch  uint32
	MaxVolumePerEpoch uint64
	EpochSeconds      uint32
}

// Epoch maps a timestamp onto the quota's epoch. Without an epoch length
// every timestamp shares epoch zero.
func (q Quota) Epoch(now uint64) uint64 {
	if q.EpochSeconds == 0 {
		return 0
	}
	return now / uint64(q.EpochSeconds)
}

// CheckQuota verifies whether the additional calls and volume fit within the
// quota. The returned usage reflects the updated counters when the quota is
// not exceeded; on denial prev is returned unchanged.
func CheckQuota(q Quota, nowEpoch uint64, prev QuotaUsage, addCalls uint32, addVolume uint64) (QuotaUsage, error) {
	next := prev
	if prev.EpochID != nowEpoch {
		next = QuotaUsage{EpochID: nowEpoch}
	}

	if addCalls > 0 {
		if next.Calls > math.MaxUint32-addCalls {
			return prev, ErrQuotaCounterOverflow
		}
		next.Calls += addCalls
	}
	if q.MaxCallsPerEpoch > 0 && next.Calls > q.MaxCallsPerEpoch {
		return prev, ErrQuotaCallsExceeded
	}

	if addVolume > 0 {
		if next.Volume > math.MaxUint64-addVolume {
			return prev, ErrQuotaCounterOverflow
		}
		next.Volume += addVolume
	}
	if q.MaxVolumePerEpoch > 0 && next.Volume > q.MaxVolumePerEpoch {
		return prev, ErrQuotaVolumeExceeded
	}

	return next, nil
}
