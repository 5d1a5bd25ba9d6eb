// Package links rewrites the references inside page content between the remote site's absolute
// addressing and relative paths in the local file tree.
//
// Content is treated as opaque text: only the href and src values of real start tags are touched, and
// everything else is copied through byte for byte.  Rewriting never fails; anything that can't be
// resolved is left alone and reported as a site.LinkResolutionWarning.
package links

import (
	"net/url"
	"path"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/toothbrush/site-mirror/site"
)

// LocalIndex answers where entries of the exported site live on disk.
type LocalIndex interface {
	// Lookup maps an entry id, or a normalised absolute URL, to an entry id.
	Lookup(ref string) (string, bool)
	PageLocation(id string) (loc site.Location, currentRevision int, ok bool)
}

// IdentityLookup answers which remote identity a local page has been given so far.
type IdentityLookup interface {
	Identity(localPath string) (site.Identity, bool)
	// Exists reports whether localPath is a page of the tree being imported.
	Exists(localPath string) bool
}

// Pending is a reference to a page that has no remote identity yet.
type Pending struct {
	Source string
	Target string
}

type Resolver struct {
	// SiteURL, when set, is used to resolve root-relative references such as "/site/ws/about".
	SiteURL *url.URL
}

// ToLocal rewrites references to entries known to idx into paths relative to the file at from.
// References to unknown entries are external and stay as they are.
func (r *Resolver) ToLocal(content string, idx LocalIndex, from site.Location) (string, []site.LinkResolutionWarning) {
	return transform(content, from.Path(), func(raw string) (string, bool, string) {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, "unparseable URL"
		}
		if !u.IsAbs() && u.Host == "" {
			if !strings.HasPrefix(u.Path, "/") || r.SiteURL == nil {
				return "", false, ""
			}
			u = r.SiteURL.ResolveReference(u)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", false, ""
		}

		// entry ids are absolute feed URLs, so only http(s) references can name one verbatim.
		id, ok := idx.Lookup(NormalizeURL(u))
		if !ok {
			id, ok = idx.Lookup(raw)
		}
		if !ok {
			return "", false, ""
		}
		loc, current, ok := idx.PageLocation(id)
		if !ok {
			return "", false, "entry has no local location"
		}

		target := loc
		if v := u.Query().Get("revision"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return "", false, "bad revision number"
			}
			if n != current {
				target = site.SnapshotLocation(loc, n)
			}
		}

		rel := site.RelativePath(from.Dir, target.Path())
		if u.Fragment != "" {
			rel += "#" + u.Fragment
		}
		return rel, true, ""
	})
}

// ToRemote rewrites relative paths to pages of the local tree into the absolute URLs the remote has
// assigned them.  Targets without an identity yet are returned as Pending and left unchanged, so a
// second ToRemote over the same source content can finish the job once they exist.
func (r *Resolver) ToRemote(content string, ids IdentityLookup, from string) (string, []Pending, []site.LinkResolutionWarning) {
	var pending []Pending
	out, warnings := transform(content, from, func(raw string) (string, bool, string) {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, "unparseable URL"
		}
		if u.IsAbs() || u.Host != "" || u.Path == "" || strings.HasPrefix(u.Path, "/") {
			return "", false, ""
		}

		target := path.Clean(path.Join(path.Dir(from), u.Path))
		if target == ".." || strings.HasPrefix(target, "../") {
			return "", false, ""
		}
		page, rev, isSnapshot := site.ParseSnapshotPath(target)
		if !isSnapshot {
			page = target
		}
		if !ids.Exists(page) {
			return "", false, ""
		}

		identity, ok := ids.Identity(page)
		if !ok {
			pending = append(pending, Pending{Source: from, Target: page})
			return "", false, ""
		}

		// a local page path carries nothing in its query; a revision is named by the snapshot path.
		abs := identity.WebURL
		if isSnapshot {
			abs += "?revision=" + strconv.Itoa(rev)
		}
		if u.Fragment != "" {
			abs += "#" + u.Fragment
		}
		return abs, true, ""
	})
	return out, pending, warnings
}

// NormalizeURL drops query, fragment and any trailing slash, and lowercases scheme and host, so
// different spellings of a page address compare equal.
func NormalizeURL(u *url.URL) string {
	p := strings.TrimSuffix(u.EscapedPath(), "/")
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + p
}

// NormalizeRaw is NormalizeURL for a string; ok is false when raw isn't an absolute URL.
func NormalizeRaw(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return "", false
	}
	return NormalizeURL(u), true
}

// transform feeds the value of every href and src attribute of the start tags in content through
// fn.  fn returns the replacement and whether to use it, or a non-empty warning reason when the
// value is malformed.  Text, comments and other attributes are copied through untouched.
func transform(content, source string, fn func(raw string) (string, bool, string)) (string, []site.LinkResolutionWarning) {
	var (
		b        strings.Builder
		warnings []site.LinkResolutionWarning
		copied   int
		offset   int
	)
	warn := func(ref, reason string) {
		warnings = append(warnings, site.LinkResolutionWarning{Source: source, Ref: ref, Reason: reason})
	}

	z := html.NewTokenizer(strings.NewReader(content))
	for {
		tt := z.Next()
		start := offset
		offset += len(z.Raw())

		if tt == html.ErrorToken {
			// a tag left open at the end of the content.
			if start+1 < len(content) && content[start] == '<' && isLetter(content[start+1]) {
				_, malformed := linkAttrs(content[start:])
				for _, at := range malformed {
					warn(snippet(content, start+at), "malformed attribute")
				}
			}
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		tag := content[start:offset]
		spans, malformed := linkAttrs(tag)
		for _, at := range malformed {
			warn(snippet(content, start+at), "malformed attribute")
		}
		for _, v := range spans {
			raw := html.UnescapeString(tag[v.start:v.end])
			replacement, changed, reason := fn(raw)
			if reason != "" {
				warn(raw, reason)
			}
			if !changed {
				continue
			}
			b.WriteString(content[copied : start+v.start])
			b.WriteString(html.EscapeString(replacement))
			copied = start + v.end
		}
	}

	if copied == 0 {
		return content, warnings
	}
	b.WriteString(content[copied:])
	return b.String(), warnings
}

type valueSpan struct{ start, end int }

// linkAttrs scans the start tag tag for href and src attributes.  It returns the offsets of their
// values, and the offsets of link attributes whose value is empty or unterminated.
func linkAttrs(tag string) ([]valueSpan, []int) {
	var (
		spans     []valueSpan
		malformed []int
	)
	i := 1
	for i < len(tag) && !isSpace(tag[i]) && tag[i] != '/' && tag[i] != '>' {
		i++
	}
	for {
		for i < len(tag) && (isSpace(tag[i]) || tag[i] == '/') {
			i++
		}
		if i >= len(tag) || tag[i] == '>' {
			return spans, malformed
		}

		nameStart := i
		// a leading '=' is part of the name.
		i++
		for i < len(tag) && !isSpace(tag[i]) && tag[i] != '/' && tag[i] != '>' && tag[i] != '=' {
			i++
		}
		name := tag[nameStart:i]
		link := strings.EqualFold(name, "href") || strings.EqualFold(name, "src")

		i = skipSpace(tag, i)
		if i >= len(tag) || tag[i] != '=' {
			continue
		}
		start, end, next, ok := attrValue(tag, skipSpace(tag, i+1))
		i = next
		if !link {
			continue
		}
		if !ok {
			malformed = append(malformed, nameStart)
			continue
		}
		spans = append(spans, valueSpan{start, end})
	}
}

// attrValue finds the value that starts at i: quoted, or unquoted up to whitespace or '>'.  next is
// where scanning resumes.
func attrValue(tag string, i int) (start, end, next int, ok bool) {
	if i >= len(tag) {
		return 0, 0, len(tag), false
	}
	if q := tag[i]; q == '"' || q == '\'' {
		closing := strings.IndexByte(tag[i+1:], q)
		if closing < 0 {
			return 0, 0, len(tag), false
		}
		return i + 1, i + 1 + closing, i + 2 + closing, true
	}
	end = i
	for end < len(tag) && !isSpace(tag[end]) && tag[end] != '>' {
		end++
	}
	if end == i {
		return 0, 0, i, false
	}
	return i, end, end, true
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isLetter(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func snippet(content string, i int) string {
	end := min(i+40, len(content))
	return content[i:end]
}
