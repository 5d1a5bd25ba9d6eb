package sites

import (
	"fmt"
	"time"

	"github.com/toothbrush/site-mirror/site"
)

// Entry is how the service represents one node of a site's content.  ID is the absolute URL of the
// entry in its content feed.
type Entry struct {
	ID        string     `json:"id,omitempty"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	ParentID  string     `json:"parentId,omitempty"`
	Revision  int        `json:"revision,omitempty"`
	Published *time.Time `json:"published,omitempty"`
	Updated   *time.Time `json:"updated,omitempty"`

	Content Content `json:"content"`

	Links struct {
		// WebUI is the address of the rendered page.
		WebUI string `json:"webui,omitempty"`
	} `json:"_links"`
}

// Content holds the entry body.  Type is always "html" for the kinds we mirror.
type Content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// SiteInfo describes one site of a domain.  Name is the webspace, the last element of its URL.
type SiteInfo struct {
	Name    string `json:"name"`
	Title   string `json:"title,omitempty"`
	Summary string `json:"summary,omitempty"`
	Theme   string `json:"theme,omitempty"`

	Links struct {
		WebUI string `json:"webui,omitempty"`
	} `json:"_links"`
}

func (e Entry) toSite() (site.Entry, error) {
	kind, err := site.ParseKind(e.Kind)
	if err != nil {
		return site.Entry{}, fmt.Errorf("sites: entry %s: %w", e.ID, err)
	}
	out := site.Entry{
		ID:       e.ID,
		Kind:     kind,
		ParentID: e.ParentID,
		Title:    e.Title,
		Content:  e.Content.Value,
		Revision: e.Revision,
		WebURL:   e.Links.WebUI,
	}
	if e.Published != nil {
		out.Published = *e.Published
	}
	if e.Updated != nil {
		out.Updated = *e.Updated
	}
	return out, nil
}

func fromSite(e site.Entry) Entry {
	return Entry{
		ID:       e.ID,
		Kind:     e.Kind.String(),
		Title:    e.Title,
		ParentID: e.ParentID,
		Content:  Content{Type: "html", Value: e.Content},
	}
}
