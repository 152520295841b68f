// Package errors provides structured error types for the hur client.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrorType represents the category of error that occurred.
type ErrorType string

const (
	// ErrorTypeValidation represents invalid input (URL, scheme, host)
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeDNS represents address resolution errors
	ErrorTypeDNS ErrorType = "dns"
	// ErrorTypeConnection represents TCP connection errors
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeTLS represents TLS handshake errors
	ErrorTypeTLS ErrorType = "tls"
	// ErrorTypeTunnel represents a rejected or broken proxy CONNECT tunnel
	ErrorTypeTunnel ErrorType = "tunnel"
	// ErrorTypeTimeout represents timeout errors
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeIO represents I/O errors
	ErrorTypeIO ErrorType = "io"
	// ErrorTypeProtocol represents malformed HTTP responses
	ErrorTypeProtocol ErrorType = "protocol"
	// ErrorTypeRedirect represents errors while following a redirect
	ErrorTypeRedirect ErrorType = "redirect"
	// ErrorTypeProxy represents proxy configuration errors
	ErrorTypeProxy ErrorType = "proxy"
)

// Specific failure kinds. They are carried as the Cause of an *Error so
// callers can match them with errors.Is.
var (
	ErrInvalidURL                  = errors.New("invalid url")
	ErrMissingHost                 = errors.New("no host in url")
	ErrUnsupportedScheme           = errors.New("only http and https are supported")
	ErrInvalidProxyURL             = errors.New("invalid proxy url")
	ErrConnectTunnelFailed         = errors.New("connect request failed")
	ErrNoServerWorked              = errors.New("no server worked for request")
	ErrMalformedStatusLine         = errors.New("malformed status line")
	ErrMalformedHeader             = errors.New("malformed header")
	ErrInvalidBodyEncoding         = errors.New("body is not valid utf-8")
	ErrUnsupportedTransferEncoding = errors.New("unsupported transfer encoding")
	ErrMalformedChunk              = errors.New("malformed chunked encoding")
	ErrTruncatedBody               = errors.New("body shorter than content-length")
	ErrMissingLocationHeader       = errors.New("redirect without location header")
	ErrInvalidRedirectURL          = errors.New("invalid redirect url")
	ErrTooManyRedirects            = errors.New("too many redirects")
)

// Error represents a structured error with context information.
type Error struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Cause     error     `json:"cause,omitempty"`
	Host      string    `json:"host,omitempty"`
	Port      int       `json:"port,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target type.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Type == t.Type
	}
	return false
}

func newError(typ ErrorType, message string, cause error) *Error {
	return &Error{
		Type:      typ,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// NewValidationError creates an input validation error.
func NewValidationError(message string, cause error) *Error {
	return newError(ErrorTypeValidation, message, cause)
}

// NewDNSError creates an address resolution error.
func NewDNSError(host string, cause error) *Error {
	e := newError(ErrorTypeDNS, fmt.Sprintf("address lookup failed for host %s", host), cause)
	e.Host = host
	return e
}

// NewConnectionError creates a connection error.
func NewConnectionError(host string, port int, cause error) *Error {
	e := newError(ErrorTypeConnection, fmt.Sprintf("failed to connect to %s", net.JoinHostPort(host, fmt.Sprint(port))), cause)
	e.Host = host
	e.Port = port
	return e
}

// NewTLSError creates a TLS handshake error.
func NewTLSError(host string, port int, cause error) *Error {
	e := newError(ErrorTypeTLS, fmt.Sprintf("TLS handshake failed for %s", net.JoinHostPort(host, fmt.Sprint(port))), cause)
	e.Host = host
	e.Port = port
	return e
}

// NewTunnelError creates a CONNECT tunnel error. cause is wrapped together
// with ErrConnectTunnelFailed.
func NewTunnelError(host string, port int, cause error) *Error {
	if cause == nil {
		cause = ErrConnectTunnelFailed
	} else if !errors.Is(cause, ErrConnectTunnelFailed) {
		cause = fmt.Errorf("%w: %w", ErrConnectTunnelFailed, cause)
	}
	e := newError(ErrorTypeTunnel, fmt.Sprintf("CONNECT through proxy %s failed", net.JoinHostPort(host, fmt.Sprint(port))), cause)
	e.Host = host
	e.Port = port
	return e
}

// NewNoServerError reports that every candidate address failed. last is
// the failure of the final attempt.
func NewNoServerError(attempts int, last error) *Error {
	cause := ErrNoServerWorked
	if last != nil {
		cause = fmt.Errorf("%w: %w", ErrNoServerWorked, last)
	}
	return newError(ErrorTypeConnection, fmt.Sprintf("all %d candidate addresses failed", attempts), cause)
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(operation string, timeout time.Duration) *Error {
	return newError(ErrorTypeTimeout, fmt.Sprintf("%s timed out after %v", operation, timeout), nil)
}

// NewIOError creates an I/O error.
func NewIOError(operation string, cause error) *Error {
	return newError(ErrorTypeIO, fmt.Sprintf("I/O error during %s", operation), cause)
}

// NewProtocolError creates a protocol error.
func NewProtocolError(message string, cause error) *Error {
	return newError(ErrorTypeProtocol, message, cause)
}

// NewRedirectError creates a redirect error.
func NewRedirectError(message string, cause error) *Error {
	return newError(ErrorTypeRedirect, message, cause)
}

// NewProxyError creates a proxy configuration error.
func NewProxyError(message string, cause error) *Error {
	return newError(ErrorTypeProxy, message, cause)
}

// IsTimeoutError checks if an error is a timeout error.
func IsTimeoutError(err error) bool {
	var e *Error
	if errors.As(err, &e) && e.Type == ErrorTypeTimeout {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsTransportError reports whether err happened while exchanging bytes with
// one server. Such errors are recoverable by trying the next address.
func IsTransportError(err error) bool {
	switch GetErrorType(err) {
	case ErrorTypeConnection, ErrorTypeTLS, ErrorTypeTunnel, ErrorTypeTimeout, ErrorTypeIO:
		return true
	}
	return false
}

// GetErrorType returns the error type if it's a structured error.
func GetErrorType(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}

// IsContextCanceled checks if an error is due to context cancellation.
func IsContextCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
