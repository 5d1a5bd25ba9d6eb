package sites

// FeedQuery holds the query parameters shared by every feed listing.
type FeedQuery struct {
	// 'StartIndex' is used for pagination.  It is 1-based, and the service hands out the next one
	// in the 'next' link of each response; we treat it as an opaque token.
	StartIndex string `url:"start-index,omitempty"`
	MaxResults int    `url:"max-results,omitempty"` // page limit; the service caps it at 500

	// Filter the results to entries of these kinds, e.g. webpage, announcement.
	Kind []string `url:"kind,omitempty,comma"`
}

// SitesQuery defines the query parameters for the site listing of a domain.
type SitesQuery struct {
	FeedQuery

	IncludeAllSites bool `url:"include-all-sites,omitempty"` // not just those the user owns
}
