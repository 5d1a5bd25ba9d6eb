package links_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toothbrush/site-mirror/links"
	"github.com/toothbrush/site-mirror/site"
)

type page struct {
	id, webURL, path string
	revision         int
}

// tree is both a LocalIndex and an IdentityLookup over the same handful of pages.
type tree struct {
	pages     []page
	withoutID map[string]bool
}

func (t tree) Lookup(ref string) (string, bool) {
	for _, p := range t.pages {
		if norm, _ := links.NormalizeRaw(p.webURL); norm == ref || p.id == ref {
			return p.id, true
		}
	}
	return "", false
}

func (t tree) PageLocation(id string) (site.Location, int, bool) {
	for _, p := range t.pages {
		if p.id == id {
			return site.LocationOf(p.path), p.revision, true
		}
	}
	return site.Location{}, 0, false
}

func (t tree) Identity(localPath string) (site.Identity, bool) {
	for _, p := range t.pages {
		if p.path == localPath && !t.withoutID[localPath] {
			return site.Identity{ID: p.id, WebURL: p.webURL}, true
		}
	}
	return site.Identity{}, false
}

func (t tree) Exists(localPath string) bool {
	for _, p := range t.pages {
		if p.path == localPath {
			return true
		}
	}
	return false
}

var sample = tree{pages: []page{
	{"home", "https://sites.example.test/site/ws/home", "home.html", 1},
	{"about", "https://sites.example.test/site/ws/home/about", "home/about.html", 3},
	{"blog", "https://sites.example.test/site/ws/home/blog", "home/blog.html", 1},
	{"post1", "https://sites.example.test/site/ws/home/blog/post1", "home/blog/post1.html", 1},
}}

func resolver() *links.Resolver {
	u, _ := url.Parse("https://sites.example.test/site/ws/")
	return &links.Resolver{SiteURL: u}
}

func TestToLocalRewritesKnownPages(t *testing.T) {
	from := site.LocationOf("home/blog/post1.html")
	in := `<p>See <a href="https://sites.example.test/site/ws/home/about#team">us</a> and ` +
		`<a href='/site/ws/home/blog/'>the blog</a>.</p>`

	out, warnings := resolver().ToLocal(in, sample, from)
	assert.Empty(t, warnings)
	assert.Equal(t, `<p>See <a href="../about.html#team">us</a> and <a href='../blog.html'>the blog</a>.</p>`, out)
}

func TestToLocalLeavesExternalLinksAlone(t *testing.T) {
	in := `<a href="https://golang.org/doc">Go</a><img src=data:image/png;base64,AAAA><a href="mailto:x@example.test">mail</a><a href="#top">top</a>`
	out, warnings := resolver().ToLocal(in, sample, site.LocationOf("home.html"))
	assert.Empty(t, warnings)
	assert.Equal(t, in, out)
}

func TestToLocalRevisionLinks(t *testing.T) {
	from := site.LocationOf("home.html")
	in := `<a href="https://sites.example.test/site/ws/home/about?revision=2">old</a>` +
		`<a href="https://sites.example.test/site/ws/home/about?revision=3">current</a>`

	out, warnings := resolver().ToLocal(in, sample, from)
	assert.Empty(t, warnings)
	assert.Equal(t, `<a href="home/_revisions/about/2.html">old</a><a href="home/about.html">current</a>`, out)
}

func TestMalformedLinksPassThroughWithWarning(t *testing.T) {
	cases := map[string]string{
		"unterminated quote": `<a href="https://sites.example.test/site/ws/home/about>About</a>`,
		"bad host":           `<a href="http://[::1/x">x</a>`,
		"empty unquoted":     `<a href= >x</a>`,
		"bad revision":       `<a href="https://sites.example.test/site/ws/home?revision=abc">x</a>`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			out, warnings := resolver().ToLocal(in, sample, site.LocationOf("home.html"))
			assert.Equal(t, in, out)
			require.NotEmpty(t, warnings)
			assert.Equal(t, "home.html", warnings[0].Source)
		})
	}
}

func TestMalformedLinkDoesNotStopLaterLinks(t *testing.T) {
	in := `<a href="http://[::1/x">x</a> <a href="https://sites.example.test/site/ws/home">home</a>`
	out, warnings := resolver().ToLocal(in, sample, site.LocationOf("home/about.html"))
	assert.Len(t, warnings, 1)
	assert.Equal(t, `<a href="http://[::1/x">x</a> <a href="../home.html">home</a>`, out)
}

func TestToRemote(t *testing.T) {
	in := `<a href="../about.html#team">us</a> <a href="../_revisions/about/2.html">old</a> ` +
		`<a href="https://golang.org">Go</a> <a href="notes.txt">notes</a>`

	out, pending, warnings := resolver().ToRemote(in, sample, "home/blog/post1.html")
	assert.Empty(t, warnings)
	assert.Empty(t, pending)
	assert.Equal(t,
		`<a href="https://sites.example.test/site/ws/home/about#team">us</a> `+
			`<a href="https://sites.example.test/site/ws/home/about?revision=2">old</a> `+
			`<a href="https://golang.org">Go</a> <a href="notes.txt">notes</a>`,
		out)
}

func TestToRemoteDefersPagesWithoutIdentity(t *testing.T) {
	partial := tree{pages: sample.pages, withoutID: map[string]bool{"home/blog/post1.html": true}}
	in := `<a href="home/blog/post1.html">first post</a>`

	out, pending, _ := resolver().ToRemote(in, partial, "home.html")
	assert.Equal(t, in, out)
	assert.Equal(t, []links.Pending{{Source: "home.html", Target: "home/blog/post1.html"}}, pending)

	out, pending, _ = resolver().ToRemote(in, sample, "home.html")
	assert.Empty(t, pending)
	assert.Equal(t, `<a href="https://sites.example.test/site/ws/home/blog/post1">first post</a>`, out)
}

func TestRoundTrip(t *testing.T) {
	in := `<div><a href="https://sites.example.test/site/ws/home/blog/post1">post</a>` +
		`<img src="https://sites.example.test/site/ws/home/about?revision=1">` +
		`<a href="https://elsewhere.example.test/">away</a></div>`
	from := site.LocationOf("home/about.html")

	local, warnings := resolver().ToLocal(in, sample, from)
	require.Empty(t, warnings)
	assert.NotEqual(t, in, local)

	remote, pending, warnings := resolver().ToRemote(local, sample, from.Path())
	require.Empty(t, warnings)
	require.Empty(t, pending)
	assert.Equal(t, in, remote)
}

func TestEscapedAmpersandsInValues(t *testing.T) {
	in := `<a href="https://sites.example.test/site/ws/home/about?a=1&amp;revision=2">old</a>`
	out, warnings := resolver().ToLocal(in, sample, site.LocationOf("home.html"))
	assert.Empty(t, warnings)
	assert.Equal(t, `<a href="home/_revisions/about/2.html">old</a>`, out)
}

func TestOnlyTagAttributesAreRewritten(t *testing.T) {
	in := `<p>Write src=https://sites.example.test/site/ws/home/about in text</p>` +
		`<!-- old: href="https://sites.example.test/site/ws/home/blog" -->` +
		`<img data-src="https://sites.example.test/site/ws/home/blog" alt='href="/site/ws/home"'>` +
		`<script>var link = '<a href="https://sites.example.test/site/ws/home">';</script>`

	out, warnings := resolver().ToLocal(in, sample, site.LocationOf("home.html"))
	assert.Empty(t, warnings)
	assert.Equal(t, in, out)

	local := `<p>see href="home/about.html"</p><!-- <a href="home/blog.html"> --><a data-href="home/about.html">x</a>`
	out, pending, warnings := resolver().ToRemote(local, sample, "home.html")
	assert.Empty(t, warnings)
	assert.Empty(t, pending)
	assert.Equal(t, local, out)
}

func TestAttributeSpellings(t *testing.T) {
	in := `<A HREF = "https://sites.example.test/site/ws/home/about">x</A>` +
		`<img class=logo SRC=https://sites.example.test/site/ws/home/blog/>` +
		`<a title="a > b" href="https://sites.example.test/site/ws/home/blog">y</a>`

	out, warnings := resolver().ToLocal(in, sample, site.LocationOf("home.html"))
	assert.Empty(t, warnings)
	assert.Equal(t,
		`<A HREF = "home/about.html">x</A>`+
			`<img class=logo SRC=home/blog.html>`+
			`<a title="a > b" href="home/blog.html">y</a>`,
		out)
}

func TestLookupRules(t *testing.T) {
	// an id that isn't an absolute URL is never matched from content.
	byID := tree{pages: []page{{"home", "https://sites.example.test/site/ws/home", "home.html", 1}, {"x", "", "x.html", 1}}}
	in := `<a href="x">x</a>`
	out, warnings := resolver().ToLocal(in, byID, site.LocationOf("home.html"))
	assert.Empty(t, warnings)
	assert.Equal(t, in, out)

	out, _, warnings = resolver().ToRemote(`<a href="home/about.html?print=1#team">us</a>`, sample, "home.html")
	assert.Empty(t, warnings)
	assert.Equal(t, `<a href="https://sites.example.test/site/ws/home/about#team">us</a>`, out)
}
