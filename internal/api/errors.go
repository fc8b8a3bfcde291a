package api

import (
	"errors"
	"fmt"
)

// Kind buckets API failures for retry and display policy.
type Kind int

const (
	// KindNetwork covers transport failures and timeouts. Always retryable.
	KindNetwork Kind = iota
	// KindAuth covers 401s that survived a refresh attempt. Clears the session.
	KindAuth
	// KindValidation covers non-401 4xx rejections. Not retried.
	KindValidation
	// KindServer covers 5xx responses. Retryable at the caller's discretion.
	KindServer
)

// String returns the taxonomy name for logging.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "authentication"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is a classified API failure.
type Error struct {
	Kind    Kind
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements error.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s error (HTTP %d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, msg)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from any error chain. Unclassified errors
// report KindNetwork, the conservative retryable bucket.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindNetwork
}

// classify maps an HTTP status to its taxonomy bucket.
func classify(status int) Kind {
	switch {
	case status == 401:
		return KindAuth
	case status >= 400 && status < 500:
		return KindValidation
	default:
		return KindServer
	}
}
