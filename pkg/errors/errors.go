package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code string, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

func Validation(message string, err error) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    "BAD_REQUEST",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

func Unauthorized(message string, err error) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

func Forbidden(message string, err error) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     err,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     nil,
	}
}

// StaleState marks an accept attempt made against state that has moved on:
// the listing price changed, the property was delisted, or the offer is no
// longer in the status the caller observed.
func StaleState(message string) *AppError {
	return &AppError{
		Code:    "STALE_STATE",
		Message: message,
		Status:  http.StatusConflict,
		Err:     nil,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func TooManyRequests(message string) *AppError {
	return &AppError{
		Code:    "TOO_MANY_REQUESTS",
		Message: message,
		Status:  http.StatusTooManyRequests,
		Err:     nil,
	}
}

// Ledger sub-reasons. InsufficientFunds, NotListed and SignerUnavailable are
// pre-broadcast failures; Reverted, RejectedByUser and Timeout are outcomes
// observed after the transfer was handed to the chain.
const (
	LedgerInsufficientFunds = "LEDGER_INSUFFICIENT_FUNDS"
	LedgerNotListed         = "LEDGER_NOT_LISTED"
	LedgerSignerUnavailable = "LEDGER_SIGNER_UNAVAILABLE"
	LedgerReverted          = "LEDGER_REVERTED"
	LedgerRejectedByUser    = "LEDGER_REJECTED_BY_USER"
	LedgerTimeout           = "LEDGER_TIMEOUT"
)

func Ledger(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

// IsLedger reports whether err is any ledger failure, regardless of reason.
func IsLedger(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return len(appErr.Code) > 7 && appErr.Code[:7] == "LEDGER_"
	}
	return false
}

// Reconciliation errors are internal only: a confirmed transfer could not be
// reflected in the negotiation store. They are logged and retried, never
// returned to an HTTP caller.
func Reconciliation(message string, err error) *AppError {
	return &AppError{
		Code:    "RECONCILE_ERROR",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
