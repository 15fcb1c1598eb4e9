package voucher

import "errors"

// Domain-level rejections. These are expected, frequent outcomes that
// callers recover from; only store failures propagate as wrapped errors.
var (
	// ErrVoucherNotUsable means admission was rejected because the voucher
	// is expired or otherwise not valid for use.
	ErrVoucherNotUsable = errors.New("voucher: not usable")

	// ErrDeviceCapExceeded means admission was rejected because the
	// voucher already has its allowed number of devices connected.
	ErrDeviceCapExceeded = errors.New("voucher: device cap exceeded")

	// ErrDeviceNotConnected means disconnection was requested for a device
	// with no connected session on the voucher.
	ErrDeviceNotConnected = errors.New("voucher: device not connected")

	// ErrPlanNotFound means the voucher references a plan that is missing
	// from the catalog.
	ErrPlanNotFound = errors.New("voucher: plan not found")
)
