// Package discover implements CalDAV/CardDAV service discovery: it
// turns a bare URL or email address into the principal URL, home sets
// and collections of the calendar and contacts services behind it.
//
// The strategy chain follows RFC 6764. The user-given URL is probed
// directly, then the /.well-known/ bootstrap paths, then DNS SRV/TXT
// service records. Every strategy degrades gracefully; a run that
// finds nothing is a valid outcome, not an error. The full trace of
// what was tried and why ends up in Configuration.Logs.
package discover

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"sync"

	"github.com/cyp0633/libdavdiscover/internal/dav"
	"github.com/cyp0633/libdavdiscover/internal/logbuf"
)

// ErrInvalidLocation is returned when the discovery starting point is
// neither an absolute http(s) URL nor a mailto address.
var ErrInvalidLocation = errors.New("invalid URL")

// FindServices discovers the calendar and contacts services reachable
// with the given credentials, starting from location: an absolute
// http(s) URL or a mailto address. It returns an error only when
// location cannot be interpreted at all; "nothing found" is reported
// through nil service fields of the Configuration.
func FindServices(ctx context.Context, location string, creds Credentials) (*Configuration, error) {
	return FindServicesWithConfig(ctx, location, creds, DefaultConfig())
}

// FindServicesWithConfig is FindServices with an injectable resolver,
// HTTP client and logger.
func FindServicesWithConfig(ctx context.Context, location string, creds Credentials, cfg *Config) (*Configuration, error) {
	base, err := parseLocation(location)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	conf := &Configuration{
		UserName:   creds.UserName,
		Password:   creds.Password,
		Preemptive: creds.Preemptive,
	}

	// The two service pipelines are independent. Run them in
	// parallel, each with its own client and its own slice of the
	// trace, then stitch the traces together in a fixed order.
	services := []Service{ServiceCardDAV, ServiceCalDAV}
	infos := make([]*ServiceInfo, len(services))
	logs := make([]string, len(services))
	var wg sync.WaitGroup
	for i, svc := range services {
		wg.Add(1)
		go func(i int, svc Service) {
			defer wg.Done()
			f, buf := newFinder(svc, creds, cfg)
			infos[i] = f.find(ctx, base)
			logs[i] = buf.String()
		}(i, svc)
	}
	wg.Wait()

	conf.CardDAV, conf.CalDAV = infos[0], infos[1]
	conf.Logs = strings.Join(logs, "")
	return conf, nil
}

// RefreshCollections lists every home set known to info with a depth-1
// PROPFIND and records the member collections, updating info in place.
// Home sets that fail to answer are logged and skipped. Home sets
// newly referenced by the responses are recorded but not themselves
// listed; call again to descend into them.
func RefreshCollections(ctx context.Context, svc Service, info *ServiceInfo, creds Credentials, cfg *Config) error {
	if info == nil {
		return fmt.Errorf("no service info to refresh")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("service", svc)
	f := &finder{
		service:  svc,
		dav:      dav.NewClient(cfg.Client, creds.UserName, creds.Password, creds.Preemptive, logger),
		resolver: resolverOrDefault(cfg.Resolver),
		log:      logger,
	}
	for _, home := range info.HomeSetURLs() {
		if err := ctx.Err(); err != nil {
			return err
		}
		u, err := url.Parse(home)
		if err != nil {
			f.log.Warn("skipping unparsable home set", "url", home)
			continue
		}
		f.log.Info("listing home set", "url", home)
		resources, err := f.dav.Propfind(ctx, u, dav.DepthOne, svc.propNames()...)
		if err != nil {
			f.log.Warn("listing home set failed", "url", home, "error", err)
			continue
		}
		for i := range resources {
			f.recordResource(&resources[i], info)
		}
	}
	return nil
}

// finder runs the discovery pipeline for a single service. Each finder
// owns its DAV client and its logger, so two finders can run
// concurrently without sharing any state.
type finder struct {
	service  Service
	dav      *dav.Client
	resolver DNSResolver
	log      *slog.Logger
}

func newFinder(svc Service, creds Credentials, cfg *Config) (*finder, *logbuf.Buffer) {
	buf := logbuf.New()
	var next slog.Handler
	if cfg.Logger != nil {
		next = cfg.Logger.Handler()
	}
	logger := slog.New(logbuf.NewHandler(buf, next)).With("service", svc)
	return &finder{
		service:  svc,
		dav:      dav.NewClient(cfg.Client, creds.UserName, creds.Password, creds.Preemptive, logger),
		resolver: resolverOrDefault(cfg.Resolver),
		log:      logger,
	}, buf
}

func resolverOrDefault(r DNSResolver) DNSResolver {
	if r == nil {
		return &net.Resolver{}
	}
	return r
}

// find runs the strategy chain for the finder's service: user-given
// URL, well-known bootstrap, DNS-based discovery. The returned info is
// nil when nothing useful was found.
func (f *finder) find(ctx context.Context, base *url.URL) *ServiceInfo {
	info := newServiceInfo()
	f.log.Info("finding initial configuration", "url", base.String())

	var discoveryFQDN string
	switch base.Scheme {
	case "http", "https":
		// DNS-based discovery is only attempted for https input;
		// plain http never gets upgraded behind the user's back.
		if base.Scheme == "https" {
			discoveryFQDN = base.Hostname()
		}
		f.checkUserGivenURL(ctx, base, info)
		if info.Principal == "" {
			wellKnown := base.ResolveReference(&url.URL{Path: f.service.WellKnownPath()})
			principal, err := f.resolvePrincipal(ctx, wellKnown, info)
			switch {
			case err != nil:
				f.log.Debug("well-known URL detection failed", "url", wellKnown.String(), "error", err)
			case principal != nil:
				info.Principal = principal.String()
			}
		}
	case "mailto":
		discoveryFQDN = mailtoDomain(base)
	}

	if info.Principal == "" && discoveryFQDN != "" {
		f.log.Info("no principal found at user-given URL, trying to discover", "domain", discoveryFQDN)
		f.discoverPrincipal(ctx, discoveryFQDN, info)
	}

	if !info.useful() {
		f.log.Info("no usable configuration found")
		return nil
	}
	return info
}

// discoverPrincipal performs DNS-based service discovery on domain and
// probes each candidate context path until one yields a confirmed
// principal. Failed candidates are logged and skipped; collections and
// home sets revealed along the way are still recorded.
func (f *finder) discoverPrincipal(ctx context.Context, domain string, info *ServiceInfo) {
	loc := f.locateService(ctx, domain)
	for _, path := range loc.paths {
		u := &url.URL{
			Scheme: loc.scheme,
			Host:   dav.HostPort(loc.scheme, loc.host, loc.port),
			Path:   path,
		}
		f.log.Info("trying to determine principal from initial context path", "url", u.String())
		principal, err := f.resolvePrincipal(ctx, u, info)
		switch {
		case err != nil && dav.IsNotFound(err):
			f.log.Warn("no resource found", "url", u.String())
		case err != nil:
			f.log.Debug("context path detection failed", "url", u.String(), "error", err)
		case principal != nil:
			info.Principal = principal.String()
			return
		}
	}
}

// parseLocation validates the user input: an absolute http(s) URL or a
// mailto address. A mailto without a domain part is accepted and
// simply discovers nothing, matching how an empty DNS zone behaves.
func parseLocation(location string) (*url.URL, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, ErrInvalidLocation
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return nil, ErrInvalidLocation
		}
	case "mailto":
	default:
		return nil, ErrInvalidLocation
	}
	return u, nil
}

// mailtoDomain extracts the domain of a mailto address, empty when
// there is none. Everything after the last "@" counts, so quoted
// local parts containing "@" still resolve to the right domain.
func mailtoDomain(u *url.URL) string {
	mailbox := u.Opaque
	if mailbox == "" {
		mailbox = u.Path
	}
	if at := strings.LastIndex(mailbox, "@"); at >= 0 {
		return mailbox[at+1:]
	}
	return ""
}
