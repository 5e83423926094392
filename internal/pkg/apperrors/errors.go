package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrAuthFailed      ErrorType = "AUTH_FAILED"
	ErrForbidden       ErrorType = "FORBIDDEN"
	ErrReadOnly        ErrorType = "READ_ONLY"
	ErrConfig          ErrorType = "CONFIG_ERROR"
	ErrInvalidRequest  ErrorType = "INVALID_REQUEST"
	ErrInternal        ErrorType = "INTERNAL_ERROR"
	ErrNotFound        ErrorType = "NOT_FOUND"
	ErrUpstream        ErrorType = "UPSTREAM_ERROR"
	ErrTooManyRequests ErrorType = "TOO_MANY_REQUESTS"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

func NewNotFound(msg string) *AppError {
	return New(ErrNotFound, msg, nil)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrAuthFailed:
		return http.StatusUnauthorized
	case ErrForbidden, ErrReadOnly:
		return http.StatusForbidden
	case ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrUpstream:
		return http.StatusBadGateway
	case ErrTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrAuthFailed:
		return "Check the X-Admin-Key header."
	case ErrReadOnly:
		return "The gateway is in read-only mode."
	case ErrUpstream:
		return "A backing store is unavailable; retry later."
	case ErrConfig:
		return "Check the slippage and validator configuration."
	case ErrTooManyRequests:
		return "Retry the request later."
	default:
		return ""
	}
}
