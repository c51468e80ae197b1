package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotFound is a normal outcome: the code or record does not exist
	// (or is not visible to the caller).
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable marks a transient persistence failure. Callers
	// must not confuse it with ErrNotFound.
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrInvalidInput       = errors.New("invalid input")
	ErrShortCodeTaken     = errors.New("short code already taken")
	ErrLimitReached       = errors.New("URL limit reached. Upgrade your plan.")
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
)

// StoreError wraps a failed persistence operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// Store wraps err as a StoreError for operation op. A nil err stays nil.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// Invalid returns an ErrInvalidInput carrying a user-facing message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// AppError carries the HTTP status the API layer should answer with.
type AppError struct {
	Code    int
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func WithCode(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func InvalidRequestError(message string) *AppError {
	return WithCode(http.StatusBadRequest, message)
}

// From maps any service error onto an AppError.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return &AppError{Code: http.StatusNotFound, Message: "URL not found", Cause: err}
	case errors.Is(err, ErrInvalidInput):
		return &AppError{Code: http.StatusBadRequest, Message: strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": "), Cause: err}
	case errors.Is(err, ErrShortCodeTaken), errors.Is(err, ErrEmailTaken):
		return &AppError{Code: http.StatusConflict, Message: err.Error(), Cause: err}
	case errors.Is(err, ErrLimitReached):
		return &AppError{Code: http.StatusForbidden, Message: ErrLimitReached.Error(), Cause: err}
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnauthorized):
		return &AppError{Code: http.StatusUnauthorized, Message: err.Error(), Cause: err}
	case errors.Is(err, ErrStoreUnavailable):
		return &AppError{Code: http.StatusServiceUnavailable, Message: "Service temporarily unavailable", Cause: err}
	default:
		return &AppError{Code: http.StatusInternalServerError, Message: "System error", Cause: err}
	}
}
