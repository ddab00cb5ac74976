// Package errors defines the application error taxonomy shared by the
// catalog core, the auth boundary and the HTTP layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeStaticEntry     = "STATIC_ENTRY_IMMUTABLE"
	CodeDuplicateTitle  = "DUPLICATE_TITLE"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeAlreadyOwned    = "ALREADY_OWNED"
	CodeStore           = "STORE_ERROR"
	CodeTimeout         = "TIMEOUT"
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

func Validation(message string, err error) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest, err)
}

func NotFound(resource string, err error) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, err)
}

// StaticEntryImmutable is returned for any mutation aimed at a seed entry.
// The entry exists, so this is deliberately not a NotFound.
func StaticEntryImmutable(id string) *AppError {
	return New(CodeStaticEntry, fmt.Sprintf("game %s is part of the static catalog and cannot be modified", id), http.StatusForbidden, nil)
}

func DuplicateTitle(title string, err error) *AppError {
	return New(CodeDuplicateTitle, fmt.Sprintf("a game titled %q already exists", title), http.StatusConflict, err)
}

func Unauthenticated(message string, err error) *AppError {
	return New(CodeUnauthenticated, message, http.StatusUnauthorized, err)
}

func Forbidden(message string, err error) *AppError {
	return New(CodeForbidden, message, http.StatusForbidden, err)
}

func AlreadyOwned(gameID string) *AppError {
	return New(CodeAlreadyOwned, fmt.Sprintf("game %s is already owned", gameID), http.StatusConflict, nil)
}

func Store(message string, err error) *AppError {
	return New(CodeStore, message, http.StatusInternalServerError, err)
}

func Timeout(message string, err error) *AppError {
	return New(CodeTimeout, message, http.StatusGatewayTimeout, err)
}

// Is reports whether err carries an AppError with the given code.
func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// As is errors.As specialised to AppError.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
