// Package site holds the data model shared by the export and import engines: entries, revisions,
// where they live on disk, and the errors a synchronization run can produce.
package site

import (
	"fmt"
	"time"
)

type Kind int

const (
	WebPage Kind = iota
	AnnouncementsPage
	Announcement
	FileCabinetPage
	ListPage
	Attachment
	WebAttachment
	Comment
	ListItem
)

var kindNames = map[Kind]string{
	WebPage:           "webpage",
	AnnouncementsPage: "announcementspage",
	Announcement:      "announcement",
	FileCabinetPage:   "filecabinet",
	ListPage:          "listpage",
	Attachment:        "attachment",
	WebAttachment:     "webattachment",
	Comment:           "comment",
	ListItem:          "listitem",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsPage reports whether entries of this kind are pages, which carry revision history.
func (k Kind) IsPage() bool {
	switch k {
	case WebPage, AnnouncementsPage, Announcement, FileCabinetPage, ListPage:
		return true
	default:
		return false
	}
}

// ParseKind is the inverse of Kind.String.  An empty string is a web page.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return WebPage, nil
	}
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return WebPage, fmt.Errorf("site: unknown entry kind '%s'", s)
}

// Entry is one content node of a site.  ID is stable across revisions; ParentID is empty only for
// the root.
type Entry struct {
	ID       string
	Kind     Kind
	ParentID string
	Title    string

	// Opaque payload, possibly holding references to other entries.
	Content string

	Revision  int
	Published time.Time
	Updated   time.Time

	// WebURL is the absolute address other pages use when linking here.
	WebURL string
}

func (e Entry) IsRoot() bool { return e.ParentID == "" }

// Revision is an immutable snapshot of a page.
type Revision struct {
	PageID    string
	Number    int
	Title     string
	Content   string
	Timestamp time.Time
}

// RevisionFromEntry converts an entry read from a revision feed.
func RevisionFromEntry(pageID string, e Entry) Revision {
	return Revision{
		PageID:    pageID,
		Number:    e.Revision,
		Title:     e.Title,
		Content:   e.Content,
		Timestamp: e.Updated,
	}
}

// Identity is what the remote store assigns to a created entry.
type Identity struct {
	ID     string
	WebURL string
}

// Site names one remote site and the directory (relative to the local file tree root) that mirrors
// it.
type Site struct {
	Name string
	Dir  string
}
