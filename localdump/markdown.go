package localdump

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	mdplugin "github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"

	"github.com/toothbrush/site-mirror/site"
)

const MarkdownExt = ".md"

// markdownLocation is where the Markdown rendition of the page at loc goes: beside it, same stem.
func markdownLocation(loc site.Location) site.Location {
	return site.Location{Dir: loc.Dir, File: loc.Stem() + MarkdownExt}
}

// newMarkdownConverter builds a converter for content that has already been localised.  Relative
// links stay relative, retargeted from page files to their Markdown renditions; root-relative ones
// are anchored on siteURL.
func newMarkdownConverter(siteURL *url.URL) *md.Converter {
	domain := ""
	if siteURL != nil {
		domain = siteURL.Host
	}

	opt := &md.Options{
		GetAbsoluteURL: func(selec *goquery.Selection, rawURL string, domain string) string {
			u, err := url.Parse(rawURL)
			if err != nil {
				// we can't do anything with this url because it is invalid
				return rawURL
			}

			if u.Scheme == "data" {
				// this is a data uri (for example an inline base64 image)
				return rawURL
			}

			if !u.IsAbs() && u.Host == "" && !strings.HasPrefix(u.Path, "/") {
				if path.Ext(u.Path) == site.PageExt && !strings.Contains(u.Path, site.RevisionsDir+"/") {
					u.Path = strings.TrimSuffix(u.Path, site.PageExt) + MarkdownExt
				}
				return u.String()
			}

			if siteURL == nil {
				return rawURL
			}
			if u.Scheme == "" {
				u.Scheme = siteURL.Scheme
			}
			if u.Host == "" {
				u.Host = domain // this comes from the first arg to md.NewConverter
			}
			return u.String()
		},
	}

	converter := md.NewConverter(domain, true, opt)
	// Github flavoured Markdown knows about tables 👍
	converter.Use(mdplugin.GitHubFlavored())
	return converter
}

// renderMarkdown produces the Markdown rendition of a page: the same front matter, then the
// converted content.
func renderMarkdown(converter *md.Converter, h PageHeader, localised string) ([]byte, error) {
	markdown, err := converter.ConvertString(localised)
	if err != nil {
		return nil, fmt.Errorf("localdump: failed to convert to Markdown: %w", err)
	}
	return EncodePage(h, markdown+"\n")
}
