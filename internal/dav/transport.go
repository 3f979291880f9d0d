package dav

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// AuthTransport implements http.RoundTripper and adds Basic Auth
// credentials to outgoing requests. With Preemptive set the
// Authorization header is attached to every request up front; otherwise
// the request is first sent bare and replayed with credentials when the
// server answers 401 with a Basic challenge.
type AuthTransport struct {
	Username   string
	Password   string
	Preemptive bool
	Transport  http.RoundTripper
	Logger     *slog.Logger
}

// NewAuthTransport creates an AuthTransport over the given underlying
// transport. If transport is nil, http.DefaultTransport will be used.
// Empty credentials turn the transport into a logging pass-through.
func NewAuthTransport(username, password string, preemptive bool, transport http.RoundTripper, logger *slog.Logger) *AuthTransport {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &AuthTransport{
		Username:   username,
		Password:   password,
		Preemptive: preemptive,
		Transport:  transport,
		Logger:     logger,
	}
}

// RoundTrip implements the http.RoundTripper interface.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.Logger.Debug("outgoing request", "method", req.Method, "url", req.URL.String())

	if t.Username == "" {
		return t.roundTrip(req)
	}
	if t.Preemptive {
		authed := req.Clone(req.Context())
		authed.SetBasicAuth(t.Username, t.Password)
		return t.roundTrip(authed)
	}

	resp, err := t.roundTrip(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || !offersBasic(resp) {
		return resp, err
	}
	// Replaying needs the body again; requests built from a byte
	// buffer carry GetBody, anything else cannot be retried.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}
	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return resp, nil
		}
		retry.Body = body
	}
	retry.SetBasicAuth(t.Username, t.Password)
	t.Logger.Debug("retrying with credentials after 401", "url", req.URL.String())
	resp.Body.Close()
	return t.roundTrip(retry)
}

func (t *AuthTransport) roundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.Transport.RoundTrip(req)
	if err == nil && resp != nil {
		t.Logger.Debug("incoming response", "status", resp.Status, "url", req.URL.String())
	}
	return resp, err
}

// offersBasic reports whether a 401 response carries a Basic challenge.
func offersBasic(resp *http.Response) bool {
	for _, challenge := range resp.Header.Values("WWW-Authenticate") {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(challenge)), "basic") {
			return true
		}
	}
	return false
}
