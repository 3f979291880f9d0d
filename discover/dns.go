package discover

import (
	"context"
	"net"
	"strings"
)

// serviceLocation is where DNS said the service lives, plus the
// candidate context paths to probe there, in order.
type serviceLocation struct {
	scheme string
	host   string
	port   int
	paths  []string
}

// locateService resolves the SRV and TXT records of the service on
// domain. Lookup failures are never fatal: the domain itself on the
// default TLS port is the fallback host, and the well-known path plus
// the root path always terminate the candidate list, so there is
// something to probe even on a completely empty DNS zone.
func (f *finder) locateService(ctx context.Context, domain string) serviceLocation {
	loc := serviceLocation{scheme: "https", host: domain, port: 443}
	name := f.service.SRVName(domain)

	_, addrs, err := f.resolver.LookupSRV(ctx, "", "", name)
	if err != nil {
		f.log.Debug("SRV lookup failed", "name", name, "error", err)
	}
	target := ""
	if srv := f.selectSRVRecord(addrs); srv != nil {
		// A trailing dot is how DNS spells an absolute name; a bare
		// dot as target means "service decidedly not provided".
		target = strings.TrimSuffix(srv.Target, ".")
		if target != "" {
			loc.host = target
			loc.port = int(srv.Port)
		}
	}
	if target != "" {
		f.log.Info("found SRV record", "name", name, "host", loc.host, "port", loc.port)
	} else {
		f.log.Info("no SRV record, trying domain directly", "host", loc.host, "port", loc.port)
	}

	txts, err := f.resolver.LookupTXT(ctx, name)
	if err != nil {
		f.log.Debug("TXT lookup failed", "name", name, "error", err)
	}
	for _, record := range txts {
		if path, ok := strings.CutPrefix(record, "path="); ok && path != "" {
			f.log.Info("found TXT record; initial context path", "path", path)
			loc.paths = append(loc.paths, path)
		}
	}

	loc.paths = append(loc.paths, f.service.WellKnownPath(), "/")
	return loc
}

// selectSRVRecord picks the record to use. Weight/priority based
// selection (RFC 2782) is not implemented; the first record wins.
func (f *finder) selectSRVRecord(addrs []*net.SRV) *net.SRV {
	if len(addrs) == 0 {
		return nil
	}
	if len(addrs) > 1 {
		f.log.Warn("multiple SRV records not supported yet; using first one")
	}
	return addrs[0]
}
