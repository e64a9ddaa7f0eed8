package application

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/retailstore/payment-service/internal/domain"
	"github.com/retailstore/payment-service/internal/infrastructure/persistence/postgres"
)

// IsGatewayUnavailable reports whether an error means the gateway could not be
// reached. Timeouts count: a charge that timed out must never be recorded as a
// decline.
func IsGatewayUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if gwErr, ok := IsGatewayError(err); ok {
		return gwErr.Unavailable()
	}
	return false
}

// IsGatewayDeclined reports whether the gateway rejected the request as a
// business decision.
func IsGatewayDeclined(err error) bool {
	if gwErr, ok := IsGatewayError(err); ok {
		return !gwErr.Unavailable()
	}
	return false
}

// ToHTTPStatus maps error to appropriate HTTP status code
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}

	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrMissingRequiredField),
		errors.Is(err, domain.ErrUnknownMethod):
		return http.StatusBadRequest

	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, postgres.ErrDuplicateTransactionID),
		errors.Is(err, postgres.ErrDuplicateActivePayment),
		errors.Is(err, postgres.ErrVersionConflict):
		return http.StatusConflict

	case errors.Is(err, postgres.ErrPaymentNotFound):
		return http.StatusNotFound
	}

	if gwErr, ok := IsGatewayError(err); ok {
		if gwErr.Unavailable() {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadRequest
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}

	// Default to 500
	return http.StatusInternalServerError
}

// ToErrorCode clear error code for API responses
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}

	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, domain.ErrInvalidAmount):
		return "INVALID_AMOUNT"
	case errors.Is(err, domain.ErrMissingRequiredField):
		return "MISSING_REQUIRED_FIELD"
	case errors.Is(err, domain.ErrUnknownMethod):
		return "UNKNOWN_PAYMENT_METHOD"
	case errors.Is(err, postgres.ErrDuplicateTransactionID):
		return "DUPLICATE_TRANSACTION"
	case errors.Is(err, postgres.ErrDuplicateActivePayment):
		return "DUPLICATE_ACTIVE_PAYMENT"
	case errors.Is(err, postgres.ErrVersionConflict):
		return "CONFLICT"
	case errors.Is(err, postgres.ErrPaymentNotFound):
		return "PAYMENT_NOT_FOUND"
	}

	if gwErr, ok := IsGatewayError(err); ok {
		if gwErr.Unavailable() {
			return ErrCodeGatewayUnavailable
		}
		return strings.ToUpper(gwErr.Code)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrCodeGatewayUnavailable
	}

	return ErrCodeInternal
}
