package dav

import (
	"net"
	"net/url"
	"strconv"
	"strings"
)

// WithTrailingSlash returns u with its path ending in "/". Collection
// URLs are normalized this way before being used as map keys, so that
// "/calendars/work" and "/calendars/work/" cannot show up as two
// different collections.
func WithTrailingSlash(u *url.URL) *url.URL {
	if strings.HasSuffix(u.Path, "/") {
		return u
	}
	slashed := *u
	slashed.Path += "/"
	if slashed.RawPath != "" {
		slashed.RawPath += "/"
	}
	return &slashed
}

// SameResource reports whether two absolute URLs address the same
// resource modulo a trailing slash.
func SameResource(a, b *url.URL) bool {
	return WithTrailingSlash(a).String() == WithTrailingSlash(b).String()
}

// HostPort renders host:port for a URL, leaving out the port when it is
// the default one for the scheme.
func HostPort(scheme, host string, port int) string {
	if (scheme == "https" && port == 443) || (scheme == "http" && port == 80) {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
