package http

import (
	"context"
	"errors"
	"fmt"
	"net"
)

type ErrorType int

const (
	ErrorTypeNetwork ErrorType = iota
	ErrorTypeHTTP
	ErrorTypeValidation
	ErrorTypeTimeout
	ErrorTypeIO
)

var ErrUnsupportedScheme = errors.New("unsupported url scheme")

type HTTPError struct {
	Type      ErrorType
	Operation string
	URL       string
	Status    int
	Err       error
}

func (e *HTTPError) Error() string {
	switch e.Type {
	case ErrorTypeHTTP:
		return fmt.Sprintf("HTTP error during %s for %s: status %d: %v",
			e.Operation, e.URL, e.Status, e.Err)
	case ErrorTypeNetwork:
		return fmt.Sprintf("network error during %s for %s: %v",
			e.Operation, e.URL, e.Err)
	case ErrorTypeTimeout:
		return fmt.Sprintf("timeout during %s for %s: %v",
			e.Operation, e.URL, e.Err)
	case ErrorTypeIO:
		return fmt.Sprintf("i/o error during %s for %s: %v",
			e.Operation, e.URL, e.Err)
	default:
		return fmt.Sprintf("error during %s for %s: %v",
			e.Operation, e.URL, e.Err)
	}
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPNetworkError classifies a transport failure, reporting deadlines as timeouts.
func NewHTTPNetworkError(op, url string, err error) *HTTPError {
	typ := ErrorTypeNetwork
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		typ = ErrorTypeTimeout
	}

	return &HTTPError{Type: typ, Operation: op, URL: url, Err: err}
}

func NewHTTPStatusError(op, url string, status int, err error) *HTTPError {
	return &HTTPError{Type: ErrorTypeHTTP, Operation: op, URL: url, Status: status, Err: err}
}

func NewHTTPIOError(op, url string, err error) *HTTPError {
	return &HTTPError{Type: ErrorTypeIO, Operation: op, URL: url, Err: err}
}
