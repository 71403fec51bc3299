package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Retryable  bool   `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *AppError carrying the same code,
// so callers can write errors.Is(err, apperror.ErrInsufficientFunds()).
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Code extracts the AppError code from err, or "" if err is not an AppError.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsRetryable reports whether err is an AppError the caller may retry as-is.
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// ---- Accounts (ACC) ----

func ErrDuplicateAccount() *AppError {
	return New("ACC_001", "Account already exists", http.StatusConflict)
}

func ErrAccountNotFound() *AppError {
	return New("ACC_002", "Account not found", http.StatusNotFound)
}

func ErrSameAccount() *AppError {
	return New("ACC_003", "Sender and recipient are the same account", http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredential() *AppError {
	return New("AUTH_001", "Incorrect PIN", http.StatusUnauthorized)
}

// ErrNotAuthorized is the uniform signal used when account existence must not leak.
func ErrNotAuthorized() *AppError {
	return New("AUTH_002", "Not authorized", http.StatusUnauthorized)
}

func ErrCredentialLocked() *AppError {
	return New("AUTH_003", "Too many failed PIN attempts, try again later", http.StatusLocked)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_004", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Balance movements (PAY) ----

func ErrInsufficientFunds() *AppError {
	return New("PAY_001", "Insufficient funds", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("PAY_002", "Invalid amount", http.StatusBadRequest)
}

func ErrRequestInProgress() *AppError {
	return New("PAY_003", "A request with this idempotency key is already in progress", http.StatusConflict)
}

// ErrIdempotencyKeyReused signals a key replayed with a different request body.
func ErrIdempotencyKeyReused() *AppError {
	return New("PAY_004", "Idempotency-Key was already used for a different request", http.StatusUnprocessableEntity)
}

// ---- Requests (REQ) ----

func ErrPayloadTooLarge() *AppError {
	return New("REQ_001", "Request body too large", http.StatusRequestEntityTooLarge)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// ErrLockTimeout signals that an account could not be locked before the deadline.
// Nothing was mutated; the request may be retried.
func ErrLockTimeout(err error) *AppError {
	e := Wrap("SYS_002", "Account busy, retry the request", http.StatusServiceUnavailable, err)
	e.Retryable = true
	return e
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a PAY_002-style validation error.
func Validation(message string) *AppError {
	return New("PAY_002", message, http.StatusBadRequest)
}
