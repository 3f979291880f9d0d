package dav

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError is a network-level failure: the request never produced
// an HTTP response (connection refused, TLS handshake, timeout).
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error on %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError is a non-success status returned by the server.
type HTTPError struct {
	StatusCode int
	Method     string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
}

// ProtocolError is a response that cannot be interpreted as WebDAV:
// malformed XML, a root element that is not multistatus, a redirect
// chain that never terminates.
type ProtocolError struct {
	URL    string
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error on %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("protocol error on %s: %s", e.URL, e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// IsNotFound reports whether err means the probed resource does not
// exist (HTTP 404).
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}
