package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	CodeUnauthenticated     = "UNAUTHENTICATED"
	CodeInvalidChatKind     = "INVALID_CHAT_KIND"
	CodeTransactionConflict = "TRANSACTION_CONFLICT"
	CodeBackendUnavailable  = "BACKEND_UNAVAILABLE"
	CodeValidation          = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeForbidden           = "FORBIDDEN"
	CodeTooManyRequests     = "TOO_MANY_REQUESTS"
	CodeInternal            = "INTERNAL_ERROR"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
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

// Unauthenticated is returned when an operation runs without a signed-in identity.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthenticated,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

func InvalidChatKind(kind string) *AppError {
	return &AppError{
		Code:    CodeInvalidChatKind,
		Message: fmt.Sprintf("unknown chat kind %q", kind),
		Status:  http.StatusBadRequest,
	}
}

// TransactionConflict reports that an atomic operation's precondition no
// longer holds (doubt already rated, already claimed, not resolved).
func TransactionConflict(message string, err error) *AppError {
	return &AppError{
		Code:    CodeTransactionConflict,
		Message: message,
		Status:  http.StatusConflict,
		Err:     err,
	}
}

func BackendUnavailable(message string, err error) *AppError {
	return &AppError{
		Code:    CodeBackendUnavailable,
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     err,
	}
}

func Validation(message string, err error) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

func Forbidden(message string, err error) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
		Status:  http.StatusForbidden,
		Err:     err,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func TooManyRequests(message string, retryAfter time.Duration) *AppError {
	if retryAfter > 0 {
		message = fmt.Sprintf("%s, retry in %s", message, retryAfter.Round(time.Second))
	}
	return &AppError{
		Code:    CodeTooManyRequests,
		Message: message,
		Status:  http.StatusTooManyRequests,
	}
}

func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the AppError code carried by err, or CodeInternal.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// AsAppError returns the AppError carried by err, if any.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
