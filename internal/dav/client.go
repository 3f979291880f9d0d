// Package dav implements the small WebDAV client surface service
// discovery is built from: depth-limited PROPFIND with typed property
// decoding, OPTIONS capability probes, Basic authentication and manual
// redirect handling.
package dav

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// maxRedirects bounds how many redirects a single request follows.
const maxRedirects = 5

// Client issues WebDAV requests on behalf of one discovery pipeline.
// It is not safe to share the wrapped http.Client's transport state
// assumptions across credentials, so build one Client per account.
type Client struct {
	http   *http.Client
	logger *slog.Logger
}

// NewClient wraps base for WebDAV use. The base client is copied, its
// transport gets the credential wrapper, and automatic redirect
// following is disabled: net/http downgrades PROPFIND to GET across
// redirects, so the client follows them itself, method intact. A nil
// base starts from a zero http.Client.
func NewClient(base *http.Client, username, password string, preemptive bool, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	var hc http.Client
	if base != nil {
		hc = *base
	}
	hc.Transport = NewAuthTransport(username, password, preemptive, hc.Transport, logger)
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &Client{http: &hc, logger: logger}
}

// Propfind issues a PROPFIND with the given depth and returns every
// resource of the multistatus response.
func (c *Client) Propfind(ctx context.Context, u *url.URL, depth int, names ...PropName) ([]Resource, error) {
	resources, _, err := c.propfind(ctx, u, depth, names)
	return resources, err
}

// PropfindSelf issues a depth-0 PROPFIND and returns the resource
// describing u itself: the response whose href matches the final
// request URL, or the first response when none does.
func (c *Client) PropfindSelf(ctx context.Context, u *url.URL, names ...PropName) (*Resource, error) {
	resources, location, err := c.propfind(ctx, u, DepthZero, names)
	if err != nil {
		return nil, err
	}
	if len(resources) == 0 {
		return nil, &ProtocolError{URL: location.String(), Reason: "multistatus without responses"}
	}
	for i := range resources {
		if SameResource(resources[i].Location, location) {
			return &resources[i], nil
		}
	}
	return &resources[0], nil
}

func (c *Client) propfind(ctx context.Context, u *url.URL, depth int, names []PropName) ([]Resource, *url.URL, error) {
	body, err := buildPropfind(names)
	if err != nil {
		return nil, u, &ProtocolError{URL: u.String(), Reason: "encoding request body", Err: err}
	}
	header := make(http.Header)
	header.Set("Depth", strconv.Itoa(depth))
	header.Set("Content-Type", "application/xml; charset=utf-8")
	resp, location, err := c.do(ctx, "PROPFIND", u, header, body)
	if err != nil {
		return nil, u, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMultiStatus {
		return nil, location, &HTTPError{StatusCode: resp.StatusCode, Method: "PROPFIND", URL: location.String()}
	}
	resources, err := parseMultistatus(resp.Body, location)
	if err != nil {
		return nil, location, err
	}
	return resources, location, nil
}

// Capabilities is the set of tokens a server advertises in the DAV
// header of an OPTIONS response.
type Capabilities map[string]struct{}

// Has reports whether token was advertised.
func (caps Capabilities) Has(token string) bool {
	_, ok := caps[token]
	return ok
}

// Options probes u for advertised WebDAV capabilities.
func (c *Client) Options(ctx context.Context, u *url.URL) (Capabilities, error) {
	resp, location, err := c.do(ctx, http.MethodOptions, u, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Method: http.MethodOptions, URL: location.String()}
	}
	caps := make(Capabilities)
	for _, header := range resp.Header.Values("DAV") {
		for _, token := range strings.Split(header, ",") {
			if token = strings.TrimSpace(token); token != "" {
				caps[token] = struct{}{}
			}
		}
	}
	return caps, nil
}

// do sends one request and follows redirects itself, replaying method
// and body each hop. It returns the response together with the URL it
// finally came from; relative hrefs in the body must be resolved
// against that URL, not the one originally asked for.
func (c *Client) do(ctx context.Context, method string, u *url.URL, header http.Header, body []byte) (*http.Response, *url.URL, error) {
	location := u
	for redirect := 0; ; redirect++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, location.String(), reader)
		if err != nil {
			return nil, nil, &ProtocolError{URL: location.String(), Reason: "building request", Err: err}
		}
		for key, values := range header {
			for _, value := range values {
				req.Header.Add(key, value)
			}
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, nil, &TransportError{URL: location.String(), Err: err}
		}
		switch resp.StatusCode {
		case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
			http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		default:
			return resp, location, nil
		}
		target := resp.Header.Get("Location")
		resp.Body.Close()
		if target == "" {
			return nil, nil, &ProtocolError{URL: location.String(), Reason: "redirect without Location header"}
		}
		if redirect == maxRedirects {
			return nil, nil, &ProtocolError{URL: u.String(), Reason: "too many redirects"}
		}
		ref, err := url.Parse(target)
		if err != nil {
			return nil, nil, &ProtocolError{URL: location.String(), Reason: "invalid redirect target", Err: err}
		}
		next := location.ResolveReference(ref)
		c.logger.Debug("following redirect", "from", location.String(), "to", next.String())
		location = next
	}
}
