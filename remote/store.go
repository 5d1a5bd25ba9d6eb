// Package remote is the boundary between the synchronization engines and the service hosting the
// site.  It defines the capabilities the engines need from that service and layers pagination,
// retries and failure classification on top.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/toothbrush/site-mirror/site"
)

var (
	// Stores wrap ErrTransient around failures worth retrying (network, 5xx, rate limiting).
	ErrTransient = errors.New("transient remote failure")
	// ErrRejected marks validation and permission failures.
	ErrRejected = errors.New("remote rejected request")
)

type FeedKind int

const (
	ContentFeed FeedKind = iota
	RevisionFeed
)

// FeedTarget addresses a paginated listing.  EntryID is only used by revision feeds.
type FeedTarget struct {
	Kind    FeedKind
	Site    string
	EntryID string
}

func Content(siteName string) FeedTarget {
	return FeedTarget{Kind: ContentFeed, Site: siteName}
}

func Revisions(siteName, entryID string) FeedTarget {
	return FeedTarget{Kind: RevisionFeed, Site: siteName, EntryID: entryID}
}

func (t FeedTarget) String() string {
	if t.Kind == RevisionFeed {
		return fmt.Sprintf("revisions of %s in %s", t.EntryID, t.Site)
	}
	return fmt.Sprintf("content of %s", t.Site)
}

// FeedPage is one page of a feed.  An empty Next means the feed is exhausted.
type FeedPage struct {
	Entries []site.Entry
	Next    string
}

// Store is the remote content store.  Transport and authentication are already taken care of when
// these are called.
type Store interface {
	FetchFeedPage(ctx context.Context, target FeedTarget, token string, limit int) (FeedPage, error)
	Insert(ctx context.Context, target FeedTarget, entry site.Entry) (site.Entry, error)
	Update(ctx context.Context, entry site.Entry) (site.Entry, error)
}

// Addresser is implemented by stores that know the public address of a site.  Links written
// relative to that address ("/site/ws/page") can then be resolved.
type Addresser interface {
	SiteURL(siteName string) (*url.URL, error)
}

// SiteURL asks store for the address of siteName, if it can tell.
func SiteURL(store Store, siteName string) *url.URL {
	a, ok := store.(Addresser)
	if !ok {
		return nil
	}
	u, err := a.SiteURL(siteName)
	if err != nil {
		return nil
	}
	return u
}

// Classify sorts a store error into retryable or not.  Anything unrecognised is Rejected.
func Classify(err error) site.FailureClass {
	if errors.Is(err, ErrRejected) {
		return site.Rejected
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return site.Transient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return site.Transient
	}
	return site.Rejected
}
