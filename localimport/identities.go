package localimport

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/zeebo/blake3"
	"golang.org/x/exp/maps"
	"gopkg.in/yaml.v3"

	"github.com/toothbrush/site-mirror/localdump"
	"github.com/toothbrush/site-mirror/site"
)

// StateDir holds per-site import state inside the site directory.  Export and prune leave it alone.
const StateDir = ".site-mirror"

func identityFile(siteName string) string {
	return path.Join(StateDir, siteName+".identities.yaml")
}

// Record is what an import remembers about one local page.
type Record struct {
	ID  string
	URL string
	// Hash of the entry last submitted for this page; see entryHash.
	Hash string
}

// IdentityMap maps local page paths to the remote identities they were given.  During a run it only
// grows.
type IdentityMap struct {
	records map[string]Record
}

func NewIdentityMap() *IdentityMap {
	return &IdentityMap{records: map[string]Record{}}
}

func (m *IdentityMap) Record(localPath string) (Record, bool) {
	r, ok := m.records[localPath]
	return r, ok
}

func (m *IdentityMap) Set(localPath string, r Record) {
	m.records[localPath] = r
}

func (m *IdentityMap) Identity(localPath string) (site.Identity, bool) {
	r, ok := m.records[localPath]
	if !ok {
		return site.Identity{}, false
	}
	return site.Identity{ID: r.ID, WebURL: r.URL}, true
}

func (m *IdentityMap) Len() int { return len(m.records) }

type identityRow struct {
	Path string `yaml:"path"`
	ID   string `yaml:"id"`
	URL  string `yaml:"url"`
	Hash string `yaml:"hash"`
}

type identityDoc struct {
	Site  string        `yaml:"site"`
	Pages []identityRow `yaml:"pages"`
}

// LoadIdentities reads the mapping saved by the last import of siteName.  No file means a first
// import.
func LoadIdentities(fs billy.Filesystem, siteName string) (*IdentityMap, error) {
	m := NewIdentityMap()
	data, err := util.ReadFile(fs, identityFile(siteName))
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("localimport: couldn't read identity mapping: %w", err)
	}

	var doc identityDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("localimport: couldn't parse %s: %w", identityFile(siteName), err)
	}
	if doc.Site != siteName {
		return nil, fmt.Errorf("localimport: %s belongs to site '%s'", identityFile(siteName), doc.Site)
	}
	for _, row := range doc.Pages {
		m.records[row.Path] = Record{ID: row.ID, URL: row.URL, Hash: row.Hash}
	}
	return m, nil
}

// Save writes the mapping for the next import of siteName.
func (m *IdentityMap) Save(fs billy.Filesystem, siteName string) error {
	paths := maps.Keys(m.records)
	sort.Strings(paths)

	doc := identityDoc{Site: siteName, Pages: make([]identityRow, 0, len(paths))}
	for _, p := range paths {
		r := m.records[p]
		doc.Pages = append(doc.Pages, identityRow{Path: p, ID: r.ID, URL: r.URL, Hash: r.Hash})
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("localimport: couldn't marshal identity mapping: %w", err)
	}
	if err := localdump.WriteFile(fs, identityFile(siteName), data); err != nil {
		return fmt.Errorf("localimport: couldn't save identity mapping: %w", err)
	}
	return nil
}

// entryHash fingerprints everything an import submits for a page, so an unchanged page needs no
// remote call.
func entryHash(e site.Entry) string {
	sum := blake3.Sum256([]byte(strings.Join([]string{e.Kind.String(), e.Title, e.ParentID, e.Content}, "\x00")))
	return hex.EncodeToString(sum[:])
}
