package sites

// Links carries the service's navigation links.
type Links struct {
	// Contains the relative URL for the next set of results.  This property will not be present
	// if there is no additional data available.
	Next string `json:"next"`
}

// FeedResponse is one page of a content or revision feed.
type FeedResponse struct {
	Entries []Entry `json:"entries"`
	Links   Links   `json:"_links"`
}

// SitesResponse is one page of a domain's site listing.
type SitesResponse struct {
	Sites []SiteInfo `json:"sites"`
	Links Links      `json:"_links"`
}
