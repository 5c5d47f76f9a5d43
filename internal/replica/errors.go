package replica

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingSecret is returned by New when no API key is configured
var ErrMissingSecret = errors.New("REPLICA_API_KEY is required to create a bot")

// ErrorType categorizes replica API failures
type ErrorType string

const (
	ErrorTypeUnauthorized    ErrorType = "unauthorized"
	ErrorTypeRejected        ErrorType = "rejected"
	ErrorTypeServer          ErrorType = "server"
	ErrorTypeNetwork         ErrorType = "network"
	ErrorTypeTimeout         ErrorType = "timeout"
	ErrorTypeInvalidResponse ErrorType = "invalid_response"
	ErrorTypeCancelled       ErrorType = "cancelled"
)

// APIError is a structured error from the replica API
type APIError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Cause      error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *APIError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether the request may succeed if sent again
func (e *APIError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeServer, ErrorTypeNetwork, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

// UserMessage returns a short explanation suitable for the terminal
func (e *APIError) UserMessage() string {
	switch e.Type {
	case ErrorTypeUnauthorized:
		return "The bot platform rejected the API key. Check REPLICA_API_KEY."
	case ErrorTypeRejected:
		return fmt.Sprintf("The bot platform rejected the request: %s", e.Message)
	case ErrorTypeServer:
		return "The bot platform is having problems."
	case ErrorTypeNetwork:
		return "Could not reach the bot platform. Please check your connection."
	case ErrorTypeTimeout:
		return "The bot platform did not answer in time."
	case ErrorTypeInvalidResponse:
		return "The bot platform sent a response that could not be understood."
	case ErrorTypeCancelled:
		return "Bot creation was cancelled."
	default:
		return e.Message
	}
}

func newStatusError(status int, body string) *APIError {
	errType := ErrorTypeRejected
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		errType = ErrorTypeUnauthorized
	case status >= http.StatusInternalServerError:
		errType = ErrorTypeServer
	}
	msg := body
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{Type: errType, Message: msg, StatusCode: status}
}

func newTransportError(cause error) *APIError {
	switch {
	case errors.Is(cause, context.Canceled):
		return &APIError{Type: ErrorTypeCancelled, Message: "Operation cancelled", Cause: cause}
	case errors.Is(cause, context.DeadlineExceeded) || isTimeout(cause):
		return &APIError{Type: ErrorTypeTimeout, Message: "Request timed out", Cause: cause}
	default:
		return &APIError{Type: ErrorTypeNetwork, Message: "Network error", Cause: cause}
	}
}

func newInvalidResponseError(message string, cause error) *APIError {
	return &APIError{Type: ErrorTypeInvalidResponse, Message: message, Cause: cause}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
