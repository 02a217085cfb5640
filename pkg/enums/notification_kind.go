package enums

import "fmt"

// NotificationKind categorizes in-app notifications.
type NotificationKind string

const (
	NotificationKindPurchase NotificationKind = "purchase"
	NotificationKindSale     NotificationKind = "sale"
	NotificationKindPayout   NotificationKind = "payout"
	NotificationKindVoucher  NotificationKind = "voucher"
	NotificationKindSecurity NotificationKind = "security"
)

var validNotificationKinds = []NotificationKind{
	NotificationKindPurchase,
	NotificationKindSale,
	NotificationKindPayout,
	NotificationKindVoucher,
	NotificationKindSecurity,
}

// IsValid reports whether the value is a known NotificationKind.
func (n NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts raw input into a NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
