package localdump

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/toothbrush/site-mirror/site"
)

// PageHeader is the YAML front matter at the top of every page file.
type PageHeader struct {
	Title     string    `yaml:"title"`
	Kind      string    `yaml:"kind"`
	ID        string    `yaml:"id,omitempty"`
	Revision  int       `yaml:"revision,omitempty"`
	Updated   time.Time `yaml:"updated,omitempty"`
	URL       string    `yaml:"url,omitempty"`
	Ancestors []string  `yaml:"ancestors,omitempty"`
}

func headerFor(e site.Entry, ancestors []site.Entry) PageHeader {
	h := PageHeader{
		Title:    e.Title,
		Kind:     e.Kind.String(),
		ID:       e.ID,
		Revision: e.Revision,
		Updated:  e.Updated,
		URL:      e.WebURL,
	}
	for _, a := range ancestors {
		h.Ancestors = append(h.Ancestors, a.Title)
	}
	return h
}

const frontMatterFence = "---\n"

// EncodePage renders a page file: front matter between two fences, then the content verbatim.
func EncodePage(h PageHeader, content string) ([]byte, error) {
	head, err := yaml.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("localdump: couldn't marshal header YAML: %w", err)
	}

	var b bytes.Buffer
	b.WriteString(frontMatterFence)
	b.Write(head)
	b.WriteString(frontMatterFence)
	b.WriteString(content)
	return b.Bytes(), nil
}

var ErrNoFrontMatter = errors.New("localdump: file has no front matter")

// DecodePage splits a page file into header and content.  A file that doesn't start with a fence
// comes back whole as content, alongside ErrNoFrontMatter.
func DecodePage(data []byte) (PageHeader, string, error) {
	if !bytes.HasPrefix(data, []byte(frontMatterFence)) {
		return PageHeader{}, string(data), ErrNoFrontMatter
	}

	rest := data[len(frontMatterFence)-1:]
	end := bytes.Index(rest, []byte("\n"+frontMatterFence))
	if end < 0 {
		return PageHeader{}, "", fmt.Errorf("localdump: unterminated front matter")
	}

	var h PageHeader
	if err := yaml.Unmarshal(rest[1:end+1], &h); err != nil {
		return PageHeader{}, "", fmt.Errorf("localdump: couldn't parse header: %w", err)
	}
	return h, string(rest[end+1+len(frontMatterFence):]), nil
}
