// Package apperr defines the request-scoped error taxonomy shared by all
// services, and the mapping from arbitrary errors to HTTP responses.
// Services return these errors; only the HTTP layer turns them into statuses.
package apperr

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"
)

// Error is a typed application error with a stable machine code.
type Error struct {
	Code    string
	Message string
	Status  int
}

func (e *Error) Error() string { return e.Message }

// Is lets errors.Is match two apperr values by code.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// Error codes surfaced to clients.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeForbidden          = "FORBIDDEN"
	CodeValidation         = "VALIDATION_ERROR"
	CodeAlreadySwiped      = "ALREADY_SWIPED"
	CodeQuotaExceeded      = "QUOTA_EXCEEDED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeEmailExists        = "EMAIL_EXISTS"
	CodeServerError        = "SERVER_ERROR"
)

func NotFound(msg string) error {
	return &Error{Code: CodeNotFound, Message: msg, Status: http.StatusNotFound}
}

func Forbidden(msg string) error {
	return &Error{Code: CodeForbidden, Message: msg, Status: http.StatusForbidden}
}

func Validation(msg string) error {
	return &Error{Code: CodeValidation, Message: msg, Status: http.StatusBadRequest}
}

// AlreadySwiped is the duplicate-action conflict for a repeated swipe on the
// same ordered pair.
func AlreadySwiped(msg string) error {
	return &Error{Code: CodeAlreadySwiped, Message: msg, Status: http.StatusConflict}
}

// QuotaExceeded covers daily allotments such as super likes.
func QuotaExceeded(msg string) error {
	return &Error{Code: CodeQuotaExceeded, Message: msg, Status: http.StatusTooManyRequests}
}

func Unauthorized(msg string) error {
	return &Error{Code: CodeUnauthorized, Message: msg, Status: http.StatusUnauthorized}
}

func TokenExpired(msg string) error {
	return &Error{Code: CodeTokenExpired, Message: msg, Status: http.StatusUnauthorized}
}

func InvalidCredentials(msg string) error {
	return &Error{Code: CodeInvalidCredentials, Message: msg, Status: http.StatusUnauthorized}
}

func EmailExists(msg string) error {
	return &Error{Code: CodeEmailExists, Message: msg, Status: http.StatusConflict}
}

// HasCode reports whether err is an apperr with the given code.
func HasCode(err error, code string) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}

// Map converts repo/infra errors into apperr values.
// Keeps service layer clean by centralizing error mapping.
func Map(err error) *Error {
	if err == nil {
		return nil
	}

	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &Error{Code: CodeNotFound, Message: "record not found", Status: http.StatusNotFound}

	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Code: CodeServerError, Message: "request timed out", Status: http.StatusGatewayTimeout}

	case errors.Is(err, context.Canceled):
		return &Error{Code: CodeServerError, Message: "request was canceled", Status: 499}

	default:
		return &Error{Code: CodeServerError, Message: "internal server error", Status: http.StatusInternalServerError}
	}
}
