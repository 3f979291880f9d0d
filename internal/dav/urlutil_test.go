package dav

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithTrailingSlash(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com", "https://example.com/"},
		{"https://example.com/dav", "https://example.com/dav/"},
		{"https://example.com/dav/", "https://example.com/dav/"},
		{"https://example.com/dav?x=1", "https://example.com/dav/?x=1"},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.in)
		assert.NoError(t, err)
		assert.Equal(t, tt.want, WithTrailingSlash(u).String())
	}
}

func TestSameResource(t *testing.T) {
	a, _ := url.Parse("https://example.com/principals/alice")
	b, _ := url.Parse("https://example.com/principals/alice/")
	c, _ := url.Parse("https://example.com/principals/bob/")
	assert.True(t, SameResource(a, b))
	assert.False(t, SameResource(a, c))
}

func TestHostPort(t *testing.T) {
	tests := []struct {
		scheme string
		host   string
		port   int
		want   string
	}{
		{"https", "dav.example.com", 443, "dav.example.com"},
		{"https", "dav.example.com", 8443, "dav.example.com:8443"},
		{"http", "example.com", 80, "example.com"},
		{"http", "example.com", 8080, "example.com:8080"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HostPort(tt.scheme, tt.host, tt.port))
	}
}
