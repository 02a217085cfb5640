package enums

import "fmt"

// PaymentMethod selects the confirmation path for a purchase.
type PaymentMethod string

const (
	// PaymentMethodCash is verified manually by an admin.
	PaymentMethodCash PaymentMethod = "cash"
	// PaymentMethodGateway is confirmed by a gateway callback.
	PaymentMethodGateway PaymentMethod = "gateway"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCash,
	PaymentMethodGateway,
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
