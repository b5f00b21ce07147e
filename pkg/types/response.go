package types

// SuccessEnvelope wraps every 2xx body except gateway callback acks.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Retryable tells clients the same request (same Idempotency-Key) may be
	// resent, as with an order number collision or a gateway timeout.
	Retryable bool `json:"retryable"`
	Details   any  `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
