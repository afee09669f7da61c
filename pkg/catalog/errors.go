package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// StatusNoResponse is the HTTPError code used when no status code was received.
const StatusNoResponse = -1

// ErrBadURL is returned when an endpoint URL cannot be built.
var ErrBadURL = errors.New("catalog: invalid URL")

// User facing messages.
const (
	MessageOffline = "You're offline. Check your connection."
	MessageGeneric = "Something went wrong. Please try again."
)

// OfflineError reports a request that failed because the network could not be reached.
type OfflineError struct {
	URL string
	Err error
}

func (e *OfflineError) Error() string {
	return fmt.Sprintf("catalog: offline fetching %s: %v", e.URL, e.Err)
}

func (e *OfflineError) Unwrap() error {
	return e.Err
}

// HTTPError reports a non-success status code.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("catalog: HTTP %d fetching %s", e.StatusCode, e.URL)
}

// DecodeError reports a payload that is structurally invalid.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("catalog: failed to decode %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsOffline reports whether err, or any error it wraps at any depth, is a connectivity failure.
func IsOffline(err error) bool {
	if err == nil {
		return false
	}
	if isConnectivityFailure(err) {
		return true
	}
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return IsOffline(u.Unwrap())
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			if IsOffline(e) {
				return true
			}
		}
	}
	return false
}

// isConnectivityFailure inspects a single link of an error chain.
func isConnectivityFailure(err error) bool {
	if _, ok := err.(*OfflineError); ok {
		return true
	}
	if err == context.DeadlineExceeded || err == io.ErrUnexpectedEOF {
		return true
	}
	if errno, ok := err.(syscall.Errno); ok {
		switch errno {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ECONNABORTED,
			syscall.ENETUNREACH, syscall.ENETDOWN, syscall.EHOSTUNREACH, syscall.ETIMEDOUT, syscall.EPIPE:
			return true
		}
	}
	if _, ok := err.(*net.DNSError); ok {
		return true
	}
	if opErr, ok := err.(*net.OpError); ok && opErr.Op == "dial" {
		return true
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return true
	}
	return false
}

// UserMessage maps err to the message shown to users.
func UserMessage(err error) string {
	if IsOffline(err) {
		return MessageOffline
	}
	return MessageGeneric
}
