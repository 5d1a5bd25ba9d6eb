package sites

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/google/go-querystring/query"
)

// siteEndpoint returns the public address of a site: /site/<name>/ or /a/<domain>/<name>/.
func (a *API) siteEndpoint(siteName string) (*url.URL, error) {
	if siteName == "" {
		return nil, fmt.Errorf("sites: please provide a site name")
	}
	if a.Domain == "" {
		return a.resolveEndpoint("/site/" + url.PathEscape(siteName) + "/")
	}
	return a.resolveEndpoint("/a/" + url.PathEscape(a.Domain) + "/" + url.PathEscape(siteName) + "/")
}

// contentFeedEndpoint lists, and accepts new entries for, one site: /feeds/content/<scope>/<site>
func (a *API) contentFeedEndpoint(siteName string, opts FeedQuery) (*url.URL, error) {
	if siteName == "" {
		return nil, fmt.Errorf("sites: please provide a site name")
	}

	ep, err := a.resolveEndpoint("/feeds/content/" + url.PathEscape(a.scope()) + "/" + url.PathEscape(siteName))
	if err != nil {
		return nil, fmt.Errorf("sites: couldn't resolve endpoint: %w", err)
	}

	v, err := query.Values(opts)
	if err != nil {
		return nil, fmt.Errorf("sites: couldn't encode query params: %w", err)
	}
	ep.RawQuery = v.Encode()

	return ep, nil
}

// revisionFeedEndpoint lists the revisions of one entry: /feeds/revision/<scope>/<site>/<entry>
func (a *API) revisionFeedEndpoint(siteName, entryID string, opts FeedQuery) (*url.URL, error) {
	if siteName == "" || entryID == "" {
		return nil, fmt.Errorf("sites: please provide a site name and entry ID to list revisions")
	}

	ep, err := a.resolveEndpoint(
		"/feeds/revision/" + url.PathEscape(a.scope()) + "/" + url.PathEscape(siteName) + "/" + url.PathEscape(entryKey(entryID)),
	)
	if err != nil {
		return nil, fmt.Errorf("sites: couldn't resolve endpoint: %w", err)
	}

	v, err := query.Values(opts)
	if err != nil {
		return nil, fmt.Errorf("sites: couldn't encode query params: %w", err)
	}
	ep.RawQuery = v.Encode()

	return ep, nil
}

// entryEndpoint is where an existing entry is updated.  Entry IDs are URLs on the service itself;
// anything else is refused so the credentials never leave it.
func (a *API) entryEndpoint(entryID string) (*url.URL, error) {
	ep, err := url.Parse(entryID)
	if err != nil {
		return nil, fmt.Errorf("sites: couldn't parse entry ID '%s': %w", entryID, err)
	}
	if ep.Scheme != a.BaseURI.Scheme || ep.Host != a.BaseURI.Host || !strings.HasPrefix(ep.Path, "/feeds/content/") {
		return nil, fmt.Errorf("sites: entry ID '%s' is not a content entry of %s", entryID, a.BaseURI.Host)
	}
	return ep, nil
}

// sitesEndpoint lists the sites of the configured domain: /feeds/site/<domain>
func (a *API) sitesEndpoint(opts SitesQuery) (*url.URL, error) {
	if a.Domain == "" {
		return nil, fmt.Errorf("sites: listing sites needs a domain, configure one with --domain")
	}

	ep, err := a.resolveEndpoint("/feeds/site/" + url.PathEscape(a.Domain))
	if err != nil {
		return nil, fmt.Errorf("sites: couldn't resolve endpoint: %w", err)
	}

	v, err := query.Values(opts)
	if err != nil {
		return nil, fmt.Errorf("sites: couldn't encode query params: %w", err)
	}
	ep.RawQuery = v.Encode()

	return ep, nil
}

// Do a bit of error checking on endpoint format, and return it relative to the base URI.
func (a *API) resolveEndpoint(endpoint string) (*url.URL, error) {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("sites: failed to parse endpoint ref: %w", err)
	}

	return a.BaseURI.ResolveReference(ref), nil
}

// entryKey is the last path element of an entry ID, which is what revision feeds are keyed by.
func entryKey(entryID string) string {
	if u, err := url.Parse(entryID); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return entryID
}

// nextStartIndex pulls the pagination token out of a 'next' link.
func nextStartIndex(next string) (string, error) {
	if next == "" {
		return "", nil
	}
	q, err := url.Parse(next)
	if err != nil {
		return "", fmt.Errorf("sites: couldn't parse _links.next: %w", err)
	}
	token := q.Query().Get("start-index")
	if token == "" {
		return "", fmt.Errorf("sites: expected parameter 'start-index' was empty")
	}
	return token, nil
}
