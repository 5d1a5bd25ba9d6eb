package localdump

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/toothbrush/site-mirror/entrystore"
	"github.com/toothbrush/site-mirror/links"
	"github.com/toothbrush/site-mirror/site"
)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

func canonicalise(title string) (string, error) {
	str := nonAlnum.ReplaceAllString(title, " ")
	str = strings.ToLower(str)
	str = strings.Join(strings.Fields(str), "-")

	if len(str) > 101 {
		str = str[:100]
	}

	str = strings.Trim(str, "-")

	if len(str) < 2 {
		return "", fmt.Errorf("localdump: slug too short: title was '%s'", title)
	}

	return str, nil
}

// slugFor names an entry's file.  Titles that don't yield a usable slug fall back to the tail of
// the id.
func slugFor(e site.Entry) string {
	if slug, err := canonicalise(e.Title); err == nil {
		return slug
	}
	tail := strings.Trim(strings.ToLower(nonAlnum.ReplaceAllString(e.ID, "-")), "-")
	if len(tail) > 12 {
		tail = strings.Trim(tail[len(tail)-12:], "-")
	}
	if tail == "" {
		return "page"
	}
	return "page-" + tail
}

// Layout assigns every entry of a store its Location.  A page lives at <dir>/<slug>.html, and an
// entry with children owns the directory <dir>/<slug>/ for them; the root is no exception.
//
// Layout is the links.LocalIndex used when writing pages.
type Layout struct {
	store     *entrystore.Store
	locations map[string]site.Location
	refs      map[string]string
}

func NewLayout(store *entrystore.Store) (*Layout, error) {
	root, err := store.Root()
	if err != nil {
		return nil, fmt.Errorf("localdump: couldn't lay out site: %w", err)
	}

	l := &Layout{
		store:     store,
		locations: make(map[string]site.Location, store.Len()),
		refs:      make(map[string]string, 2*store.Len()),
	}
	l.place(root, site.Location{File: slugFor(root) + site.PageExt})
	return l, nil
}

func (l *Layout) place(e site.Entry, loc site.Location) {
	l.locations[e.ID] = loc
	l.refs[e.ID] = e.ID
	for _, ref := range []string{e.WebURL, e.ID} {
		if norm, ok := links.NormalizeRaw(ref); ok {
			l.refs[norm] = e.ID
		}
	}

	// siblings that canonicalise alike get a counter, in child order.
	taken := map[string]bool{}
	for _, child := range l.store.ChildrenOf(e.ID) {
		slug := slugFor(child)
		unique := slug
		for n := 2; taken[unique]; n++ {
			unique = fmt.Sprintf("%s-%d", slug, n)
		}
		taken[unique] = true
		l.place(child, site.Location{Dir: loc.ChildDir(), File: unique + site.PageExt})
	}
}

func (l *Layout) Location(id string) (site.Location, bool) {
	loc, ok := l.locations[id]
	return loc, ok
}

func (l *Layout) Lookup(ref string) (string, bool) {
	id, ok := l.refs[ref]
	return id, ok
}

func (l *Layout) PageLocation(id string) (site.Location, int, bool) {
	loc, ok := l.locations[id]
	if !ok {
		return site.Location{}, 0, false
	}
	e, _ := l.store.Get(id)
	return loc, e.Revision, true
}
