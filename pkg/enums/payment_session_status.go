package enums

import "fmt"

// PaymentSessionStatus mirrors the gateway's view of a payment attempt.
type PaymentSessionStatus string

const (
	PaymentSessionStatusPending    PaymentSessionStatus = "pending"
	PaymentSessionStatusAuthorized PaymentSessionStatus = "authorized"
	PaymentSessionStatusError      PaymentSessionStatus = "error"
)

var validPaymentSessionStatuses = []PaymentSessionStatus{
	PaymentSessionStatusPending,
	PaymentSessionStatusAuthorized,
	PaymentSessionStatusError,
}

func (s PaymentSessionStatus) String() string {
	return string(s)
}

func (s PaymentSessionStatus) IsValid() bool {
	for _, candidate := range validPaymentSessionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePaymentSessionStatus converts raw input into a PaymentSessionStatus.
func ParsePaymentSessionStatus(value string) (PaymentSessionStatus, error) {
	for _, candidate := range validPaymentSessionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment session status %q", value)
}
