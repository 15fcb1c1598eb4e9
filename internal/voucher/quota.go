package voucher

import (
	"time"

	"github.com/goodtune/hotspotd/internal/storage"
)

// Quota arithmetic is pure: no storage access, no side effects.
// All durations truncate to whole minutes; rounding up happens only at
// display level, outside this package.

// minutesBetween returns whole minutes elapsed from start to now,
// truncated, never negative.
func minutesBetween(start, now time.Time) int64 {
	if now.Before(start) {
		return 0
	}
	return int64(now.Sub(start).Minutes())
}

// ConsumedMinutes returns the total minutes of quota consumed: the frozen
// used time plus, for an active voucher, the minutes since activation.
func ConsumedMinutes(status storage.VoucherStatus, usedTime int64, activationTime *time.Time, now time.Time) int64 {
	consumed := usedTime
	if status == storage.StatusActive && activationTime != nil {
		consumed += minutesBetween(*activationTime, now)
	}
	return consumed
}

// RemainingMinutes returns the minutes of quota left, never negative.
func RemainingMinutes(status storage.VoucherStatus, usedTime int64, activationTime *time.Time, planMinutes int64, now time.Time) int64 {
	switch status {
	case storage.StatusUnused:
		return planMinutes
	case storage.StatusExpired:
		return 0
	}

	remaining := planMinutes - ConsumedMinutes(status, usedTime, activationTime, now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// OverQuota reports whether an active voucher has consumed its full plan
// duration. Only active vouchers accrue time, so every other status
// returns false.
func OverQuota(status storage.VoucherStatus, usedTime int64, activationTime *time.Time, planMinutes int64, now time.Time) bool {
	if status != storage.StatusActive {
		return false
	}
	return ConsumedMinutes(status, usedTime, activationTime, now) >= planMinutes
}

// CheckExpired reports whether the voucher should be expired as of now.
// It is the pure half of the lazy-expiry check; ExpireIfNeeded performs
// the mutation.
func CheckExpired(v *storage.Voucher, plan *storage.ServicePlan, now time.Time) bool {
	if v.Status == storage.StatusExpired {
		return true
	}
	return OverQuota(v.Status, v.UsedTime, v.ActivationTime, plan.DurationMinutes(), now)
}
