package dav

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/emersion/go-ical"
	"github.com/samber/mo"
)

// PropName identifies one of the WebDAV/CalDAV/CardDAV properties the
// client knows how to request and decode.
type PropName string

const (
	PropResourceType                  PropName = "resourcetype"
	PropDisplayName                   PropName = "displayname"
	PropCurrentUserPrincipal          PropName = "current-user-principal"
	PropCurrentUserPrivilegeSet       PropName = "current-user-privilege-set"
	PropCalendarHomeSet               PropName = "calendar-home-set"
	PropCalendarDescription           PropName = "calendar-description"
	PropCalendarTimezone              PropName = "calendar-timezone"
	PropSupportedCalendarComponentSet PropName = "supported-calendar-component-set"
	PropCalendarColor                 PropName = "calendar-color"
	PropAddressbookHomeSet            PropName = "addressbook-home-set"
	PropAddressbookDescription        PropName = "addressbook-description"
)

// Namespace prefixes declared on every request document. Declared as an
// ordered list so generated documents are deterministic.
var namespaces = []struct{ prefix, uri string }{
	{"d", "DAV:"},
	{"cal", "urn:ietf:params:xml:ns:caldav"},
	{"card", "urn:ietf:params:xml:ns:carddav"},
	{"ical", "http://apple.com/ns/ical/"},
}

// propPrefix maps each property to the namespace prefix it is requested
// under. Properties not listed here live in the DAV: namespace.
var propPrefix = map[PropName]string{
	PropCalendarHomeSet:               "cal",
	PropCalendarDescription:           "cal",
	PropCalendarTimezone:              "cal",
	PropSupportedCalendarComponentSet: "cal",
	PropCalendarColor:                 "ical",
	PropAddressbookHomeSet:            "card",
	PropAddressbookDescription:        "card",
}

// ResourceType mirrors the DAV:resourcetype property, reduced to the
// types discovery distinguishes.
type ResourceType struct {
	Collection  bool
	Principal   bool
	Calendar    bool
	Addressbook bool
}

// Privileges mirrors DAV:current-user-privilege-set, reduced to the
// grants that decide whether a collection is writable.
type Privileges struct {
	All          bool
	Read         bool
	Write        bool
	WriteContent bool
	Bind         bool
	Unbind       bool
}

// MayWrite reports whether the granted privileges allow modifying
// collection content.
func (p Privileges) MayWrite() bool {
	return p.All || p.Write || p.WriteContent
}

// PropSet is the decoded property set of one multistatus response.
// Only properties reported with a 2xx propstat status end up here;
// scalar properties are options, list properties are nil when absent.
type PropSet struct {
	ResourceType            mo.Option[ResourceType]
	DisplayName             mo.Option[string]
	CurrentUserPrincipal    mo.Option[string]
	CurrentUserPrivilegeSet mo.Option[Privileges]
	CalendarDescription     mo.Option[string]
	CalendarColor           mo.Option[string]
	CalendarTimezone        mo.Option[string]
	SupportedComponents     []string
	CalendarHomeSet         []string
	AddressbookDescription  mo.Option[string]
	AddressbookHomeSet      []string
}

// decodeElement folds one property element into the set. Unknown
// properties are ignored; matching is namespace-prefix agnostic because
// servers disagree wildly about prefixes.
func (ps *PropSet) decodeElement(elem *etree.Element) {
	switch strings.ToLower(elem.Tag) {
	case "resourcetype":
		var rt ResourceType
		for _, child := range elem.ChildElements() {
			switch strings.ToLower(child.Tag) {
			case "collection":
				rt.Collection = true
			case "principal":
				rt.Principal = true
			case "calendar":
				rt.Calendar = true
			case "addressbook":
				rt.Addressbook = true
			}
		}
		ps.ResourceType = mo.Some(rt)
	case "displayname":
		ps.DisplayName = mo.Some(elem.Text())
	case "current-user-principal":
		if href := elem.SelectElement("href"); href != nil && strings.TrimSpace(href.Text()) != "" {
			ps.CurrentUserPrincipal = mo.Some(strings.TrimSpace(href.Text()))
		}
	case "current-user-privilege-set":
		var privs Privileges
		for _, priv := range elem.SelectElements("privilege") {
			for _, grant := range priv.ChildElements() {
				switch strings.ToLower(grant.Tag) {
				case "all":
					privs.All = true
				case "read":
					privs.Read = true
				case "write":
					privs.Write = true
				case "write-content":
					privs.WriteContent = true
				case "bind":
					privs.Bind = true
				case "unbind":
					privs.Unbind = true
				}
			}
		}
		ps.CurrentUserPrivilegeSet = mo.Some(privs)
	case "calendar-home-set":
		ps.CalendarHomeSet = append(ps.CalendarHomeSet, hrefs(elem)...)
	case "addressbook-home-set":
		ps.AddressbookHomeSet = append(ps.AddressbookHomeSet, hrefs(elem)...)
	case "calendar-description":
		ps.CalendarDescription = mo.Some(elem.Text())
	case "addressbook-description":
		ps.AddressbookDescription = mo.Some(elem.Text())
	case "calendar-color":
		ps.CalendarColor = mo.Some(strings.TrimSpace(elem.Text()))
	case "calendar-timezone":
		ps.CalendarTimezone = mo.Some(elem.Text())
	case "supported-calendar-component-set":
		for _, comp := range elem.SelectElements("comp") {
			if name := comp.SelectAttrValue("name", ""); name != "" {
				ps.SupportedComponents = append(ps.SupportedComponents, name)
			}
		}
	}
}

func hrefs(elem *etree.Element) []string {
	var refs []string
	for _, href := range elem.SelectElements("href") {
		if text := strings.TrimSpace(href.Text()); text != "" {
			refs = append(refs, text)
		}
	}
	return refs
}

// TimeZoneID extracts the TZID of the first VTIMEZONE in an iCalendar
// document, as served in the calendar-timezone property. It returns ""
// when the data is missing one or cannot be parsed.
func TimeZoneID(data string) string {
	// The XML layer normalizes CRLF to bare LF; iCalendar wants CRLF.
	data = strings.ReplaceAll(data, "\r\n", "\n")
	data = strings.ReplaceAll(data, "\n", "\r\n")
	if !strings.HasSuffix(data, "\r\n") {
		data += "\r\n"
	}
	cal, err := ical.NewDecoder(strings.NewReader(data)).Decode()
	if err != nil {
		return ""
	}
	for _, child := range cal.Children {
		if child.Name != ical.CompTimezone {
			continue
		}
		if prop := child.Props.Get(ical.PropTimezoneID); prop != nil {
			return prop.Value
		}
	}
	return ""
}
