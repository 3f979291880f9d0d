package discover

import (
	"net/url"
	"strings"

	"github.com/cyp0633/libdavdiscover/internal/dav"
)

// recordResource feeds one probed resource through the collection
// recorder. A resource whose type matches the service is filed as a
// collection; any home-set references it carries are collected as
// well. The two effects are independent, a resource may trigger both.
// Recording the same URL twice overwrites, it never duplicates.
func (f *finder) recordResource(res *dav.Resource, info *ServiceInfo) {
	if rt, ok := res.Props.ResourceType.Get(); ok {
		matches := (f.service == ServiceCalDAV && rt.Calendar) ||
			(f.service == ServiceCardDAV && rt.Addressbook)
		if matches {
			loc := dav.WithTrailingSlash(res.Location)
			f.log.Info("found collection", "url", loc.String())
			info.Collections[loc.String()] = f.collectionInfo(loc, res)
		}
	}

	homeSets := res.Props.CalendarHomeSet
	if f.service == ServiceCardDAV {
		homeSets = res.Props.AddressbookHomeSet
	}
	for _, href := range homeSets {
		ref, err := url.Parse(href)
		if err != nil {
			f.log.Warn("ignoring unparsable home set href", "href", href)
			continue
		}
		home := dav.WithTrailingSlash(res.Location.ResolveReference(ref))
		f.log.Info("found home set", "url", home.String())
		info.HomeSets[home.String()] = true
	}
}

// collectionInfo extracts the user-facing metadata of one collection.
func (f *finder) collectionInfo(loc *url.URL, res *dav.Resource) CollectionInfo {
	ci := CollectionInfo{
		URL:         loc.String(),
		DisplayName: res.Props.DisplayName.OrElse(""),
	}
	if f.service == ServiceCardDAV {
		ci.Description = res.Props.AddressbookDescription.OrElse("")
		return ci
	}

	ci.Description = res.Props.CalendarDescription.OrElse("")
	ci.Color = res.Props.CalendarColor.OrElse("")
	if tzData, ok := res.Props.CalendarTimezone.Get(); ok {
		ci.TimeZone = dav.TimeZoneID(tzData)
	}
	// No advertised component set means the calendar takes anything.
	ci.SupportsVEVENT, ci.SupportsVTODO = true, true
	if comps := res.Props.SupportedComponents; len(comps) > 0 {
		ci.SupportsVEVENT, ci.SupportsVTODO = false, false
		for _, comp := range comps {
			switch strings.ToUpper(comp) {
			case "VEVENT":
				ci.SupportsVEVENT = true
			case "VTODO":
				ci.SupportsVTODO = true
			}
		}
	}
	if privs, ok := res.Props.CurrentUserPrivilegeSet.Get(); ok {
		ci.ReadOnly = !privs.MayWrite()
	}
	return ci
}
