package discover

import "github.com/cyp0633/libdavdiscover/internal/dav"

// Service identifies one of the two synchronization service types the
// engine can discover.
type Service string

const (
	// ServiceCalDAV is calendar synchronization (RFC 4791).
	ServiceCalDAV Service = "caldav"
	// ServiceCardDAV is contacts synchronization (RFC 6352).
	ServiceCardDAV Service = "carddav"
)

func (s Service) String() string { return string(s) }

// WellKnownPath returns the service's bootstrap path (RFC 6764).
func (s Service) WellKnownPath() string {
	return "/.well-known/" + string(s)
}

// SRVName returns the DNS query name locating the service on domain.
// Only the TLS service variants are ever queried; there is no insecure
// discovery.
func (s Service) SRVName(domain string) string {
	return "_" + string(s) + "s._tcp." + domain
}

// capability returns the token a server must list in its DAV header
// for the service to count as actually provided there.
func (s Service) capability() string {
	if s == ServiceCardDAV {
		return "addressbook"
	}
	return "calendar-access"
}

// propNames returns the property set probed during discovery. The
// calendar set carries everything the protocol exposes about a
// calendar (color, timezone, privileges, component set); address books
// only advertise a name and a description.
func (s Service) propNames() []dav.PropName {
	if s == ServiceCardDAV {
		return []dav.PropName{
			dav.PropResourceType,
			dav.PropDisplayName,
			dav.PropAddressbookDescription,
			dav.PropAddressbookHomeSet,
			dav.PropCurrentUserPrincipal,
		}
	}
	return []dav.PropName{
		dav.PropResourceType,
		dav.PropDisplayName,
		dav.PropCalendarColor,
		dav.PropCalendarDescription,
		dav.PropCalendarTimezone,
		dav.PropCurrentUserPrivilegeSet,
		dav.PropSupportedCalendarComponentSet,
		dav.PropCalendarHomeSet,
		dav.PropCurrentUserPrincipal,
	}
}
