package sites

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/toothbrush/site-mirror/remote"
	"github.com/toothbrush/site-mirror/site"
)

// FetchFeedPage implements remote.Store.  The token is the start index handed out by the previous
// page.
func (api *API) FetchFeedPage(ctx context.Context, target remote.FeedTarget, token string, limit int) (remote.FeedPage, error) {
	opts := FeedQuery{StartIndex: token, MaxResults: limit}

	var (
		ep  *url.URL
		err error
	)
	if target.Kind == remote.RevisionFeed {
		ep, err = api.revisionFeedEndpoint(target.Site, target.EntryID, opts)
	} else {
		ep, err = api.contentFeedEndpoint(target.Site, opts)
	}
	if err != nil {
		return remote.FeedPage{}, fmt.Errorf("sites: couldn't get feed endpoint: %w: %w", err, remote.ErrRejected)
	}

	feed, err := api.getFeed(ctx, ep)
	if err != nil {
		return remote.FeedPage{}, err
	}

	page := remote.FeedPage{Entries: make([]site.Entry, 0, len(feed.Entries))}
	for _, e := range feed.Entries {
		converted, err := e.toSite()
		if err != nil {
			return remote.FeedPage{}, fmt.Errorf("%w: %w", err, remote.ErrRejected)
		}
		page.Entries = append(page.Entries, converted)
	}
	if page.Next, err = nextStartIndex(feed.Links.Next); err != nil {
		return remote.FeedPage{}, fmt.Errorf("%w: %w", err, remote.ErrRejected)
	}
	return page, nil
}

// Insert implements remote.Store by posting entry to the site's content feed.
func (api *API) Insert(ctx context.Context, target remote.FeedTarget, entry site.Entry) (site.Entry, error) {
	if target.Kind != remote.ContentFeed {
		return site.Entry{}, fmt.Errorf("sites: entries can only be created in a content feed, not %s: %w", target, remote.ErrRejected)
	}
	ep, err := api.contentFeedEndpoint(target.Site, FeedQuery{})
	if err != nil {
		return site.Entry{}, fmt.Errorf("sites: couldn't get feed endpoint: %w: %w", err, remote.ErrRejected)
	}

	wire := fromSite(entry)
	wire.ID = ""
	stored, err := api.send(ctx, http.MethodPost, ep, wire)
	if err != nil {
		return site.Entry{}, fmt.Errorf("sites: couldn't create '%s': %w", entry.Title, err)
	}
	return stored.toSite()
}

// Update implements remote.Store by replacing the entry at its ID.
func (api *API) Update(ctx context.Context, entry site.Entry) (site.Entry, error) {
	ep, err := api.entryEndpoint(entry.ID)
	if err != nil {
		return site.Entry{}, fmt.Errorf("%w: %w", err, remote.ErrRejected)
	}

	stored, err := api.send(ctx, http.MethodPut, ep, fromSite(entry))
	if err != nil {
		return site.Entry{}, fmt.Errorf("sites: couldn't update '%s': %w", entry.Title, err)
	}
	return stored.toSite()
}

// SiteURL implements remote.Addresser.
func (api *API) SiteURL(siteName string) (*url.URL, error) {
	return api.siteEndpoint(siteName)
}

// ListAllSites returns every site of the configured domain, keyed by name.
func (api *API) ListAllSites(ctx context.Context) (map[string]SiteInfo, error) {
	sites := map[string]SiteInfo{}

	query := SitesQuery{
		FeedQuery:       FeedQuery{MaxResults: 100},
		IncludeAllSites: true,
	}

	for {
		list, err := api.listPage(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("sites: couldn't list sites: %w", err)
		}

		for _, s := range list.Sites {
			sites[s.Name] = s
		}

		if list.Links.Next == "" {
			break
		}
		if query.StartIndex, err = nextStartIndex(list.Links.Next); err != nil {
			return nil, err
		}
	}

	return sites, nil
}

func (api *API) listPage(ctx context.Context, query SitesQuery) (*SitesResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return api.getSites(ctx, query)
}
