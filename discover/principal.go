package discover

import (
	"context"
	"fmt"
	"net/url"
)

// checkUserGivenURL probes the URL the user supplied, records whatever
// collections and home sets it reveals, and tries to derive a
// principal from it: the current-user-principal property if present,
// otherwise the resource itself when its own type is principal. Every
// failure is logged and degrades to "no principal found here".
func (f *finder) checkUserGivenURL(ctx context.Context, base *url.URL, info *ServiceInfo) {
	f.log.Info("checking user-given URL", "url", base.String())
	res, err := f.dav.PropfindSelf(ctx, base, f.service.propNames()...)
	if err != nil {
		f.log.Debug("PROPFIND on user-given URL failed", "error", err)
		return
	}
	f.recordResource(res, info)

	var principal *url.URL
	if href, ok := res.Props.CurrentUserPrincipal.Get(); ok {
		if ref, err := url.Parse(href); err == nil {
			principal = res.Location.ResolveReference(ref)
		}
	}
	if principal == nil {
		if rt, ok := res.Props.ResourceType.Get(); ok && rt.Principal {
			principal = res.Location
		}
	}
	if principal != nil && f.providesService(ctx, principal) {
		info.Principal = principal.String()
	}
}

// resolvePrincipal probes u for the service's property set, records any
// collections or home sets the response reveals into info, and returns
// the confirmed current-user-principal. A nil URL with a nil error
// means the probe worked but no acceptable principal was advertised.
func (f *finder) resolvePrincipal(ctx context.Context, u *url.URL, info *ServiceInfo) (*url.URL, error) {
	res, err := f.dav.PropfindSelf(ctx, u, f.service.propNames()...)
	if err != nil {
		return nil, err
	}
	f.recordResource(res, info)

	href, ok := res.Props.CurrentUserPrincipal.Get()
	if !ok {
		return nil, nil
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil, fmt.Errorf("parsing current-user-principal %q: %w", href, err)
	}
	principal := res.Location.ResolveReference(ref)
	f.log.Info("found current-user-principal", "url", principal.String())
	if !f.providesService(ctx, principal) {
		f.log.Info("principal doesn't provide required service, dismissing", "url", principal.String())
		return nil, nil
	}
	return principal, nil
}

// providesService asks u via OPTIONS whether the server advertises the
// capability token of the service. Failures count as "not confirmed",
// never as fatal.
func (f *finder) providesService(ctx context.Context, u *url.URL) bool {
	caps, err := f.dav.Options(ctx, u)
	if err != nil {
		f.log.Error("couldn't detect services", "url", u.String(), "error", err)
		return false
	}
	return caps.Has(f.service.capability())
}
