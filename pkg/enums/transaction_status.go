package enums

import "fmt"

// TransactionStatus tracks a purchase from creation through settlement or rejection.
type TransactionStatus string

const (
	// TransactionStatusPending awaits a gateway callback.
	TransactionStatusPending TransactionStatus = "pending"
	// TransactionStatusPendingAdminConfirmation awaits manual admin review of a cash payment.
	TransactionStatusPendingAdminConfirmation TransactionStatus = "pending_admin_confirmation"
	// TransactionStatusCompleted is the terminal state for an admin-confirmed manual payment.
	TransactionStatusCompleted TransactionStatus = "completed"
	// TransactionStatusPaid is the terminal state for a gateway-confirmed payment.
	TransactionStatusPaid TransactionStatus = "paid"
	// TransactionStatusFailed is the terminal state for a rejected payment.
	TransactionStatusFailed TransactionStatus = "failed"
)

var validTransactionStatuses = []TransactionStatus{
	TransactionStatusPending,
	TransactionStatusPendingAdminConfirmation,
	TransactionStatusCompleted,
	TransactionStatusPaid,
	TransactionStatusFailed,
}

// String implements fmt.Stringer.
func (t TransactionStatus) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TransactionStatus.
func (t TransactionStatus) IsValid() bool {
	for _, candidate := range validTransactionStatuses {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed from the status.
func (t TransactionStatus) IsTerminal() bool {
	switch t {
	case TransactionStatusCompleted, TransactionStatusPaid, TransactionStatusFailed:
		return true
	default:
		return false
	}
}

// IsSettled reports whether payment has been confirmed on either path.
func (t TransactionStatus) IsSettled() bool {
	return t == TransactionStatusCompleted || t == TransactionStatusPaid
}

// ParseTransactionStatus converts raw input into a TransactionStatus.
func ParseTransactionStatus(value string) (TransactionStatus, error) {
	for _, candidate := range validTransactionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction status %q", value)
}
