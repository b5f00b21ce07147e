package errors

import "net/http"

// Code is the stable, client visible category of a failure.
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeTransientGateway  Code = "TRANSIENT_GATEWAY_ERROR"
	CodePaymentRejected   Code = "PAYMENT_REJECTED"
	CodeInternal          Code = "INTERNAL_ERROR"
	CodeDependency        Code = "DEPENDENCY_ERROR"
)

// Metadata describes how a code is rendered to HTTP callers.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	retryable   = true
	withDetails = true
)

var registry = map[Code]Metadata{
	CodeValidation:        {http.StatusBadRequest, !retryable, "validation failed", withDetails},
	CodeUnauthorized:      {http.StatusUnauthorized, !retryable, "authentication required", !withDetails},
	CodeForbidden:         {http.StatusForbidden, !retryable, "access denied", !withDetails},
	CodeNotFound:          {http.StatusNotFound, !retryable, "resource not found", !withDetails},
	CodeConflict:          {http.StatusConflict, retryable, "conflict detected", !withDetails},
	CodeInsufficientStock: {http.StatusConflict, !retryable, "insufficient stock", withDetails},
	CodeInvalidTransition: {http.StatusUnprocessableEntity, !retryable, "state transition disallowed", withDetails},
	CodeTransientGateway:  {http.StatusServiceUnavailable, retryable, "payment gateway unavailable", !withDetails},
	CodePaymentRejected:   {http.StatusPaymentRequired, !retryable, "payment request rejected", withDetails},
	CodeInternal:          {http.StatusInternalServerError, retryable, "internal server error", !withDetails},
	CodeDependency:        {http.StatusServiceUnavailable, retryable, "dependency unavailable", withDetails},
}

// MetadataFor falls back to CodeInternal for codes it does not know.
func MetadataFor(code Code) Metadata {
	meta, ok := registry[code]
	if !ok {
		return registry[CodeInternal]
	}
	return meta
}
