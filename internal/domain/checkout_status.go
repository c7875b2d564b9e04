package domain

type CheckoutStatus string

const (
	CheckoutStatusInitiated          CheckoutStatus = "INITIATED"
	CheckoutStatusSubmitting         CheckoutStatus = "SUBMITTING"
	CheckoutStatusCompleted          CheckoutStatus = "COMPLETED"
	CheckoutStatusPartiallySubmitted CheckoutStatus = "PARTIALLY_SUBMITTED"
	CheckoutStatusFailed             CheckoutStatus = "FAILED"
)

var checkoutTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusInitiated:  {CheckoutStatusSubmitting, CheckoutStatusFailed},
	CheckoutStatusSubmitting: {CheckoutStatusCompleted, CheckoutStatusPartiallySubmitted, CheckoutStatusFailed},
}

func (s CheckoutStatus) CanTransitionTo(next CheckoutStatus) bool {
	for _, allowed := range checkoutTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusCompleted || s == CheckoutStatusPartiallySubmitted || s == CheckoutStatusFailed
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

// Order status ids of the shopping service.
const (
	OrderStatusPending   int64 = 3
	OrderStatusCompleted int64 = 4
	OrderStatusCancelled int64 = 5
)
