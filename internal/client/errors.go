package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Operation names a transport call class for timeout reporting
type Operation string

const (
	OpRequest  Operation = "request"
	OpUpload   Operation = "upload"
	OpDownload Operation = "download"
)

// RemoteError is a response carrying a server-supplied error body
type RemoteError struct {
	Message string
	Status  int
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// NetworkError is a request that reached no server
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "no response received"
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ClientError is a local setup fault (bad URL, unreadable body, ...)
type ClientError struct {
	Message string
	Err     error
}

func (e *ClientError) Error() string { return e.Message }

func (e *ClientError) Unwrap() error { return e.Err }

// TimeoutError is an aborted connection or an elapsed per-call timeout
type TimeoutError struct {
	Op  Operation
	Err error
}

func (e *TimeoutError) Error() string {
	switch e.Op {
	case OpUpload:
		return "upload timed out. File may be too large or your connection is slow"
	case OpDownload:
		return "download timed out"
	default:
		return "request timed out"
	}
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// DownloadError is a failed artifact download that was not a timeout
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download failed: %v", e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// DecodeError is a response that did not match the expected shape
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid response from %s: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a transport timeout of any operation
func IsTimeout(err error) bool {
	var timeoutErr *TimeoutError
	return errors.As(err, &timeoutErr)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// translate classifies an error returned by http.Client.Do
func translate(op Operation, err error) error {
	if isTimeout(err) {
		return &TimeoutError{Op: op, Err: err}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &NetworkError{Err: err}
	}
	return &ClientError{Message: err.Error(), Err: err}
}
