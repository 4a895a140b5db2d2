// Package errors provides custom error types for the generative-language API client.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common cases
var (
	ErrEmptyPrompt   = errors.New("prompt cannot be empty")
	ErrInFlight      = errors.New("a request is already in flight")
	ErrMissingAPIKey = errors.New("no API key configured")
	ErrClientClosed  = errors.New("client is closed")
)

// maxBodyInError bounds how much of a response body is kept for diagnostics
const maxBodyInError = 4096

// APIError represents a request that reached the server and failed with a non-2xx status
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error [%d] at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("API error at %s: %s", e.Endpoint, e.Message)
}

// NewAPIError creates a new APIError
func NewAPIError(statusCode int, endpoint, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Message:    message,
	}
}

// NewAPIErrorWithBody creates an APIError that keeps (a prefix of) the response body
func NewAPIErrorWithBody(statusCode int, endpoint, message, body string) *APIError {
	if len(body) > maxBodyInError {
		body = body[:maxBodyInError]
	}
	e := NewAPIError(statusCode, endpoint, message)
	e.Body = body
	return e
}

// NetworkError represents a transport failure before any response was received
type NetworkError struct {
	Operation string
	Endpoint  string
	Cause     error
}

func (e *NetworkError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("network error during %s at %s: %v", e.Operation, e.Endpoint, e.Cause)
	}
	return fmt.Sprintf("network error during %s: %v", e.Operation, e.Cause)
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// NewNetworkError creates a new NetworkError
func NewNetworkError(operation string, cause error) *NetworkError {
	return &NetworkError{Operation: operation, Cause: cause}
}

// NewNetworkErrorWithEndpoint creates a NetworkError tagged with the endpoint
func NewNetworkErrorWithEndpoint(operation, endpoint string, cause error) *NetworkError {
	return &NetworkError{Operation: operation, Endpoint: endpoint, Cause: cause}
}

// TimeoutError represents a request timeout
type TimeoutError struct {
	Message string
}

func (e *TimeoutError) Error() string {
	if e.Message == "" {
		return "request timed out"
	}
	return fmt.Sprintf("request timed out: %s", e.Message)
}

// Is matches context.DeadlineExceeded so callers can use either form
func (e *TimeoutError) Is(target error) bool {
	return target == context.DeadlineExceeded
}

// NewTimeoutError creates a new TimeoutError
func NewTimeoutError(message string) *TimeoutError {
	return &TimeoutError{Message: message}
}

// IsNetworkError reports whether err is a transport failure
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsTimeoutError reports whether err is a timeout
func IsTimeoutError(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te) || errors.Is(err, context.DeadlineExceeded)
}

// IsCanceled reports whether err comes from a caller canceling the request
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// IsAuthError reports whether the server rejected the API key
func IsAuthError(err error) bool {
	var ae *APIError
	if !errors.As(err, &ae) {
		return false
	}
	switch ae.StatusCode {
	case 401, 403:
		return true
	case 400:
		return strings.Contains(ae.Body, "API_KEY_INVALID") || strings.Contains(ae.Body, "API key not valid")
	}
	return false
}

// IsRateLimitError reports whether the server throttled the request
func IsRateLimitError(err error) bool {
	return GetHTTPStatus(err) == 429
}

// GetHTTPStatus returns the HTTP status carried by err, or 0
func GetHTTPStatus(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode
	}
	return 0
}

// GetEndpoint returns the endpoint carried by err, or ""
func GetEndpoint(err error) string {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Endpoint
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Endpoint
	}
	return ""
}

// GetResponseBody returns the response body carried by err, or ""
func GetResponseBody(err error) string {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Body
	}
	return ""
}

// AlertMessage is the text shown to the user when a request fails
const AlertMessage = "Something went wrong while fetching the response. Please try again."

// Hint returns a one-line suggestion for err, or ""
func Hint(err error) string {
	switch {
	case IsAuthError(err):
		return "Check that GEMINI_API_KEY holds a valid key"
	case IsRateLimitError(err):
		return "Rate limit reached. Wait a moment or use a different model"
	case IsTimeoutError(err):
		return "Request timed out. Try again"
	case IsNetworkError(err):
		return "Check your internet connection"
	case errors.Is(err, ErrMissingAPIKey):
		return "Set GEMINI_API_KEY in the environment or in a .env file"
	}
	return ""
}
