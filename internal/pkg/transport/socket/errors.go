package socket

import (
	"errors"
	"fmt"
)

var (
	// ErrSocketClosed is returned when a request is sent on a socket that is
	// closing or already closed.
	ErrSocketClosed = errors.New("socket is closed")

	// ErrMalformedFrame reports an inbound frame that could not be decoded.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrUnsupportedURL is returned by GetSocket for URLs that are neither
	// ws(s):// nor an IPC path.
	ErrUnsupportedURL = errors.New("unsupported socket url")

	// ErrRegistryClosed is returned by GetSocket after Close.
	ErrRegistryClosed = errors.New("socket registry is closed")
)

// RequestError describes a request that could not be written to a socket.
type RequestError struct {
	URL    string
	Method string
	Err    error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("socket request %q to %s: %v", e.Method, e.URL, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
