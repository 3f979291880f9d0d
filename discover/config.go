package discover

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
)

// DNSResolver is the interface for DNS operations used during
// discovery. It matches the methods of net.Resolver, so lookups can be
// faked in tests.
type DNSResolver interface {
	LookupSRV(ctx context.Context, service, proto, name string) (cname string, addrs []*net.SRV, err error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// Config holds the injectable collaborators of a discovery run.
type Config struct {
	// Resolver performs the SRV/TXT lookups. If nil, the default
	// net.Resolver will be used.
	Resolver DNSResolver
	// Client is the template HTTP client. Discovery copies it per
	// service pipeline and installs its own transport wrapper, so the
	// caller's client is never mutated. If nil, a default client will
	// be used.
	Client *http.Client
	// Logger additionally receives the discovery trace as it is
	// written. The full trace always ends up in Configuration.Logs,
	// whether a Logger is set or not.
	Logger *slog.Logger
}

// DefaultConfig returns a Config using the default resolver and HTTP
// client.
func DefaultConfig() *Config {
	return &Config{
		Resolver: &net.Resolver{},
		Client:   http.DefaultClient,
	}
}

// Credentials are the account credentials discovery probes with. They
// are echoed into the resulting Configuration so the caller can set up
// accounts from it directly.
type Credentials struct {
	UserName string
	Password string
	// Preemptive sends Basic credentials with the first request
	// instead of waiting for a 401 challenge. Some servers (iCloud,
	// certain reverse proxies) never challenge and need this.
	Preemptive bool
}

// Configuration is the result of a discovery run: everything needed to
// set up synchronization for an account, together with the trace of
// how it was found.
type Configuration struct {
	UserName   string `json:"userName" yaml:"userName"`
	Password   string `json:"-" yaml:"-"`
	Preemptive bool   `json:"preemptiveAuth" yaml:"preemptiveAuth"`

	// CardDAV and CalDAV are nil when discovery found nothing useful
	// for that service.
	CardDAV *ServiceInfo `json:"contactsService,omitempty" yaml:"contactsService,omitempty"`
	CalDAV  *ServiceInfo `json:"calendarService,omitempty" yaml:"calendarService,omitempty"`

	// Logs is the human-readable discovery trace.
	Logs string `json:"logs" yaml:"logs"`
}

// String renders the configuration without credentials or trace.
func (c *Configuration) String() string {
	return fmt.Sprintf("Configuration{user: %q, cardDAV: %v, calDAV: %v}", c.UserName, c.CardDAV, c.CalDAV)
}

// ServiceInfo is what discovery learned about one service.
type ServiceInfo struct {
	// Principal is the absolute URL of the confirmed
	// current-user-principal, or empty when none was found.
	Principal string `json:"principal,omitempty" yaml:"principal,omitempty"`
	// HomeSets holds every collection home set seen during discovery,
	// keyed by absolute URL with a trailing slash.
	HomeSets map[string]bool `json:"homeSets,omitempty" yaml:"homeSets,omitempty"`
	// Collections maps collection URLs (trailing slash) to their
	// metadata.
	Collections map[string]CollectionInfo `json:"collections,omitempty" yaml:"collections,omitempty"`
}

func newServiceInfo() *ServiceInfo {
	return &ServiceInfo{
		HomeSets:    make(map[string]bool),
		Collections: make(map[string]CollectionInfo),
	}
}

// useful reports whether the info is worth returning at all: a
// principal, a home set or at least one collection.
func (si *ServiceInfo) useful() bool {
	return si.Principal != "" || len(si.HomeSets) > 0 || len(si.Collections) > 0
}

// HomeSetURLs returns the home sets as a sorted list.
func (si *ServiceInfo) HomeSetURLs() []string {
	urls := make([]string, 0, len(si.HomeSets))
	for u := range si.HomeSets {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

func (si *ServiceInfo) String() string {
	if si == nil {
		return "<none>"
	}
	return fmt.Sprintf("ServiceInfo{principal: %q, homeSets: %d, collections: %d}",
		si.Principal, len(si.HomeSets), len(si.Collections))
}

// CollectionInfo is the metadata of one discovered calendar or address
// book collection.
type CollectionInfo struct {
	URL         string `json:"url" yaml:"url"`
	DisplayName string `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Color is the calendar color as advertised by the server,
	// usually #RRGGBB or #RRGGBBAA. Calendars only.
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
	// TimeZone is the TZID of the collection's calendar-timezone
	// property, when the server provides one. Calendars only.
	TimeZone string `json:"timeZone,omitempty" yaml:"timeZone,omitempty"`
	// SupportsVEVENT and SupportsVTODO reflect the advertised
	// component set of a calendar; both are true when the server does
	// not restrict it.
	SupportsVEVENT bool `json:"supportsVEVENT" yaml:"supportsVEVENT"`
	SupportsVTODO  bool `json:"supportsVTODO" yaml:"supportsVTODO"`
	// ReadOnly is set when the current user's privileges lack every
	// write grant.
	ReadOnly bool `json:"readOnly" yaml:"readOnly"`
}
