package payments

import "errors"

var (
	// ErrOrderNotFound maps to HTTP 404 at the controller.
	ErrOrderNotFound = errors.New("order not found")

	// ErrMissingSignature and ErrBadSignature both map to 401; the
	// gateway gets no hint about which check failed.
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrBadSignature     = errors.New("webhook signature mismatch")

	ErrBadPayload = errors.New("webhook payload missing order id")
)

// GatewayError wraps an upstream rejection from the payment provider.
// The message is surfaced to the caller; full detail is logged
// server-side.
type GatewayError struct {
	Message string
}

func (e *GatewayError) Error() string {
	return "payment gateway error: " + e.Message
}
