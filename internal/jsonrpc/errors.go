package jsonrpc

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// maxBodyExcerpt bounds the response body kept on a ProtocolError.
const maxBodyExcerpt = 512

// TransportError reports a failure to complete the HTTP exchange.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("could not connect to the Odoo server at %s: %s", e.URL, describeConnError(e.Err))
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError reports an HTTP response that is not a usable JSON-RPC envelope.
type ProtocolError struct {
	URL    string
	Status int
	Reason string
	Body   string
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("malformed response from %s: %s", e.URL, e.Reason)
	if e.Status != 0 {
		msg = fmt.Sprintf("malformed response from %s (HTTP %d): %s", e.URL, e.Status, e.Reason)
	}
	if e.Body != "" {
		msg += "\n\nBody: " + e.Body
	}
	return msg
}

// describeConnError converts low-level connection errors to readable text.
func describeConnError(err error) string {
	var sysErr syscall.Errno
	if errors.As(err, &sysErr) {
		switch sysErr {
		case syscall.ECONNREFUSED:
			return "connection refused"
		case syscall.ECONNRESET:
			return "connection reset by peer"
		case syscall.EHOSTUNREACH, syscall.ENETUNREACH:
			return "host unreachable"
		}
	}

	if errors.Is(err, os.ErrDeadlineExceeded) {
		return "request timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "request timed out"
	}

	return err.Error()
}

func excerpt(body []byte) string {
	if len(body) <= maxBodyExcerpt {
		return string(body)
	}
	return string(body[:maxBodyExcerpt]) + "..."
}
