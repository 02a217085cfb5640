package enums

import "fmt"

// VoucherStatus tracks the lifecycle of a voucher listing.
type VoucherStatus string

const (
	VoucherStatusDraft               VoucherStatus = "draft"
	VoucherStatusPendingVerification VoucherStatus = "pending_verification"
	VoucherStatusPublished           VoucherStatus = "published"
	VoucherStatusSoldOut             VoucherStatus = "sold_out"
	VoucherStatusRejected            VoucherStatus = "rejected"
)

var validVoucherStatuses = []VoucherStatus{
	VoucherStatusDraft,
	VoucherStatusPendingVerification,
	VoucherStatusPublished,
	VoucherStatusSoldOut,
	VoucherStatusRejected,
}

// String implements fmt.Stringer.
func (v VoucherStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VoucherStatus.
func (v VoucherStatus) IsValid() bool {
	for _, candidate := range validVoucherStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVoucherStatus converts raw input into a VoucherStatus.
func ParseVoucherStatus(value string) (VoucherStatus, error) {
	for _, candidate := range validVoucherStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid voucher status %q", value)
}
