// Package remotetest provides an in-memory remote.Store for tests, with failure injection and a log
// of every call made against it.
package remotetest

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/toothbrush/site-mirror/remote"
	"github.com/toothbrush/site-mirror/site"
)

const BaseURL = "https://sites.example.test/site/"

type Call struct {
	Seq      int
	Op       string // "fetch", "insert" or "update"
	Target   remote.FeedTarget
	Token    string
	EntryID  string
	ParentID string
	Title    string
	Content  string
}

type Store struct {
	mu sync.Mutex

	entries   map[string][]site.Entry            // site -> entries, feed order
	revisions map[string]map[string][]site.Entry // site -> entry id -> revisions

	nextID int
	calls  []Call

	// Failure hooks; a non-nil error is returned instead of performing the call.
	FailFetch  func(target remote.FeedTarget, token string) error
	FailInsert func(entry site.Entry) error
	FailUpdate func(entry site.Entry) error
}

func New() *Store {
	return &Store{
		entries:   map[string][]site.Entry{},
		revisions: map[string]map[string][]site.Entry{},
	}
}

// Add seeds an entry into a site's content feed.  A missing WebURL is derived from the id.
func (s *Store) Add(siteName string, entries ...site.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if e.WebURL == "" {
			e.WebURL = BaseURL + siteName + "/" + e.ID
		}
		s.entries[siteName] = append(s.entries[siteName], e)
	}
}

// AddRevisions seeds the revision feed of one entry.
func (s *Store) AddRevisions(siteName, entryID string, revs ...site.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revisions[siteName] == nil {
		s.revisions[siteName] = map[string][]site.Entry{}
	}
	s.revisions[siteName][entryID] = append(s.revisions[siteName][entryID], revs...)
}

func (s *Store) Entries(siteName string) []site.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]site.Entry(nil), s.entries[siteName]...)
}

func (s *Store) Entry(siteName, id string) (site.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries[siteName] {
		if e.ID == id {
			return e, true
		}
	}
	return site.Entry{}, false
}

func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsOf returns the calls with the given op.
func (s *Store) CallsOf(op string) []Call {
	out := []Call{}
	for _, c := range s.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (s *Store) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *Store) record(c Call) {
	c.Seq = len(s.calls) + 1
	s.calls = append(s.calls, c)
}

func (s *Store) FetchFeedPage(ctx context.Context, target remote.FeedTarget, token string, limit int) (remote.FeedPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(Call{Op: "fetch", Target: target, Token: token})

	if s.FailFetch != nil {
		if err := s.FailFetch(target, token); err != nil {
			return remote.FeedPage{}, err
		}
	}

	var all []site.Entry
	if target.Kind == remote.RevisionFeed {
		all = s.revisions[target.Site][target.EntryID]
	} else {
		all = s.entries[target.Site]
	}

	start := 0
	if token != "" {
		n, err := strconv.Atoi(token)
		if err != nil {
			return remote.FeedPage{}, fmt.Errorf("remotetest: bad token %q: %w", token, remote.ErrRejected)
		}
		start = n
	}
	if limit <= 0 {
		limit = len(all)
	}
	end := min(start+limit, len(all))
	if start > end {
		start = end
	}

	page := remote.FeedPage{Entries: append([]site.Entry(nil), all[start:end]...)}
	if end < len(all) {
		page.Next = strconv.Itoa(end)
	}
	return page, nil
}

func (s *Store) Insert(ctx context.Context, target remote.FeedTarget, entry site.Entry) (site.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(Call{Op: "insert", Target: target, ParentID: entry.ParentID, Title: entry.Title, Content: entry.Content})

	if s.FailInsert != nil {
		if err := s.FailInsert(entry); err != nil {
			return site.Entry{}, err
		}
	}
	if entry.ParentID != "" && !s.has(target.Site, entry.ParentID) {
		return site.Entry{}, fmt.Errorf("remotetest: parent %s does not exist: %w", entry.ParentID, remote.ErrRejected)
	}

	s.nextID++
	entry.ID = fmt.Sprintf("%s-%d", target.Site, s.nextID)
	entry.WebURL = BaseURL + target.Site + "/" + entry.ID
	entry.Revision = 1
	entry.Published = time.Date(2024, 1, 1, 0, 0, s.nextID, 0, time.UTC)
	entry.Updated = entry.Published
	s.entries[target.Site] = append(s.entries[target.Site], entry)
	return entry, nil
}

func (s *Store) Update(ctx context.Context, entry site.Entry) (site.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(Call{Op: "update", EntryID: entry.ID, ParentID: entry.ParentID, Title: entry.Title, Content: entry.Content})

	if s.FailUpdate != nil {
		if err := s.FailUpdate(entry); err != nil {
			return site.Entry{}, err
		}
	}
	for siteName, entries := range s.entries {
		for i, e := range entries {
			if e.ID != entry.ID {
				continue
			}
			entry.WebURL = e.WebURL
			entry.Published = e.Published
			entry.Revision = e.Revision + 1
			s.entries[siteName][i] = entry
			return entry, nil
		}
	}
	return site.Entry{}, fmt.Errorf("remotetest: no entry %s: %w", entry.ID, remote.ErrRejected)
}

func (s *Store) has(siteName, id string) bool {
	for _, e := range s.entries[siteName] {
		if e.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) SiteURL(siteName string) (*url.URL, error) {
	return url.Parse(BaseURL + siteName + "/")
}
