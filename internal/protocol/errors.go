package protocol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeTransport indicates a network-level failure talking to the cloud
	ErrTypeTransport ErrorType = iota
	// ErrTypeTimeout indicates the request deadline expired
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the remote host refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeMalformed indicates a response body that is not a valid envelope
	ErrTypeMalformed
	// ErrTypeAuth indicates the refresh endpoint did not issue a new access token
	ErrTypeAuth
	// ErrTypeRejected indicates a non-zero resultCode from the command host
	ErrTypeRejected
	// ErrTypeDecode indicates a status payload that could not be decoded
	ErrTypeDecode
	// ErrTypeValidation indicates invalid caller input
	ErrTypeValidation
	// ErrTypeUnknown indicates an unknown or unexpected error
	ErrTypeUnknown
)

// NetworkErrorSubtype provides more specific network error classification
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
	NetworkErrorCanceled
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeTransport:
		return "Transport Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeMalformed:
		return "Malformed Response"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeRejected:
		return "Command Rejected"
	case ErrTypeDecode:
		return "Decode Error"
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error represents a failure talking to the Hisense cloud
type Error struct {
	Type           ErrorType           // Category of error
	Message        string              // Human-readable error message
	StatusCode     int                 // HTTP status code (if applicable)
	ResultCode     int                 // Envelope resultCode (ErrTypeRejected only)
	Endpoint       string              // Endpoint path the request targeted
	Err            error               // Underlying error (if any)
	NetworkSubtype NetworkErrorSubtype // More specific network error type
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes a transport error and returns a more specific error
func ClassifyNetworkError(err error, endpoint string) *Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) || os.IsTimeout(err) {
		return &Error{
			Type:           ErrTypeTimeout,
			Message:        "request timed out",
			Endpoint:       endpoint,
			Err:            err,
			NetworkSubtype: NetworkErrorTimeout,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{
			Type:           ErrTypeDNS,
			Message:        fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Endpoint:       endpoint,
			Err:            err,
			NetworkSubtype: NetworkErrorDNS,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return &Error{
				Type:           ErrTypeConnectionRefused,
				Message:        "cloud host refused connection",
				Endpoint:       endpoint,
				Err:            err,
				NetworkSubtype: NetworkErrorConnectionRefused,
			}
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return &Error{
				Type:           ErrTypeTransport,
				Message:        "host unreachable",
				Endpoint:       endpoint,
				Err:            err,
				NetworkSubtype: NetworkErrorHostUnreachable,
			}
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return &Error{
				Type:           ErrTypeTransport,
				Message:        "network unreachable",
				Endpoint:       endpoint,
				Err:            err,
				NetworkSubtype: NetworkErrorNetworkUnreachable,
			}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ClassifyNetworkError(urlErr.Err, endpoint)
	}

	subtype := NetworkErrorGeneral
	if errors.Is(err, context.Canceled) {
		subtype = NetworkErrorCanceled
	}

	return &Error{
		Type:           ErrTypeTransport,
		Message:        "network error occurred",
		Endpoint:       endpoint,
		Err:            err,
		NetworkSubtype: subtype,
	}
}

// NewTransportError creates a transport error with automatic classification
func NewTransportError(message, endpoint string, err error) *Error {
	classified := ClassifyNetworkError(err, endpoint)
	if classified != nil {
		classified.Message = message
		return classified
	}
	return &Error{
		Type:     ErrTypeTransport,
		Message:  message,
		Endpoint: endpoint,
	}
}

// NewMalformedError creates an error for a response body that is not a valid envelope
func NewMalformedError(message string, err error) *Error {
	return &Error{
		Type:    ErrTypeMalformed,
		Message: message,
		Err:     err,
	}
}

// NewAuthError creates an authentication error
func NewAuthError(message string, err error) *Error {
	return &Error{
		Type:    ErrTypeAuth,
		Message: message,
		Err:     err,
	}
}

// NewRejectedError creates an error for a non-zero envelope resultCode
func NewRejectedError(resultCode int, endpoint string) *Error {
	return &Error{
		Type:       ErrTypeRejected,
		Message:    fmt.Sprintf("cloud rejected request with resultCode %d", resultCode),
		ResultCode: resultCode,
		Endpoint:   endpoint,
	}
}

// NewDecodeError creates a status decode error
func NewDecodeError(message string, err error) *Error {
	return &Error{
		Type:    ErrTypeDecode,
		Message: message,
		Err:     err,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *Error {
	return &Error{
		Type:    ErrTypeValidation,
		Message: message,
	}
}

func errorType(err error) (ErrorType, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Type, true
	}
	return ErrTypeUnknown, false
}

// IsTransportError reports whether err is a transport failure (network, timeout,
// connection refused, DNS, or a malformed response body)
func IsTransportError(err error) bool {
	t, ok := errorType(err)
	if !ok {
		return false
	}
	switch t {
	case ErrTypeTransport, ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeDNS, ErrTypeMalformed:
		return true
	}
	return false
}

// IsMalformed reports whether err is a response body that is not a valid envelope
func IsMalformed(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeMalformed
}

// IsAuthError reports whether err is an authentication failure.
// A rejection whose refresh failed is not itself an auth error; use errors.As on
// its cause to reach the auth failure.
func IsAuthError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeAuth
}

// IsRejection reports whether err is a non-zero resultCode from the cloud
func IsRejection(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeRejected
}

// IsDecodeError reports whether err is a status decode failure
func IsDecodeError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeDecode
}

// IsValidationError reports whether err is a validation error
func IsValidationError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeValidation
}

// ResultCode returns the envelope resultCode carried by a rejection, if any
func ResultCode(err error) (int, bool) {
	var e *Error
	if errors.As(err, &e) && e.Type == ErrTypeRejected {
		return e.ResultCode, true
	}
	return 0, false
}

// TroubleshootingHints returns operator-facing advice for an error
func TroubleshootingHints(err error) []string {
	var e *Error
	if !errors.As(err, &e) {
		return []string{"An unexpected error occurred. Please try again."}
	}

	switch e.Type {
	case ErrTypeTimeout:
		return []string{
			"The Hisense cloud did not respond in time",
			"Check your internet connection",
			"Retry with a larger --timeout",
		}
	case ErrTypeConnectionRefused, ErrTypeTransport:
		hints := []string{"Check your internet connection"}
		if e.NetworkSubtype == NetworkErrorNetworkUnreachable {
			hints = append(hints, "No route to the internet: check your network adapter")
		}
		return append(hints, "The cloud service may be temporarily unavailable")
	case ErrTypeDNS:
		return []string{
			"Could not resolve the Hisense cloud hostname",
			"Check your DNS settings",
		}
	case ErrTypeMalformed:
		return []string{
			"The cloud returned a response that is not valid JSON",
			"Run with HISENSE_LOG_LEVEL=debug to inspect the raw body",
		}
	case ErrTypeAuth:
		return []string{
			"The refresh token was not accepted",
			"Capture a new refresh token from the mobile app",
			"Check the token file for stray whitespace",
		}
	case ErrTypeRejected:
		return []string{
			fmt.Sprintf("The cloud rejected the command (resultCode %d)", e.ResultCode),
			"Verify the wifi id and device id",
			"Check the command parameter is in range",
		}
	case ErrTypeDecode:
		return []string{
			"The command was accepted but the returned status could not be decoded",
			"The last known status is still shown",
			"Run 'status --refresh' to poll again",
		}
	case ErrTypeValidation:
		return []string{e.Message}
	default:
		return []string{"An error occurred. Please check the error message for details."}
	}
}

// ShortMessage returns a concise, user-friendly error message
func ShortMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}

	switch e.Type {
	case ErrTypeTimeout:
		return "Cloud not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Cloud refused connection"
	case ErrTypeDNS:
		return "Cannot resolve cloud hostname"
	case ErrTypeTransport:
		switch e.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			return "Cloud unreachable - check network connection"
		case NetworkErrorNetworkUnreachable:
			return "Network unreachable - check connection"
		case NetworkErrorCanceled:
			return "Request canceled"
		default:
			return "Network error - check connection"
		}
	case ErrTypeMalformed:
		return "Unreadable response from cloud"
	case ErrTypeAuth:
		return "Token refresh failed - check refresh token"
	case ErrTypeRejected:
		return fmt.Sprintf("Command rejected (resultCode %d)", e.ResultCode)
	case ErrTypeDecode:
		return "Failed to decode device status"
	default:
		return e.Message
	}
}
