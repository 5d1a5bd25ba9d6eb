package site

import (
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	PageExt      = ".html"
	RevisionsDir = "_revisions"
	HistoryFile  = "history" + PageExt
)

// Location is a slash-separated place in the output tree, relative to the site directory.
type Location struct {
	Dir  string
	File string
}

func (l Location) Path() string { return path.Join(l.Dir, l.File) }

// Stem is the file name without extension; a page's children live in a directory of this name.
func (l Location) Stem() string { return strings.TrimSuffix(l.File, path.Ext(l.File)) }

// ChildDir is the directory holding this entry's children.
func (l Location) ChildDir() string { return path.Join(l.Dir, l.Stem()) }

func LocationOf(p string) Location {
	dir, file := path.Split(path.Clean(p))
	return Location{Dir: strings.TrimSuffix(dir, "/"), File: file}
}

// SnapshotLocation is where revision n of the page at l is written.
func SnapshotLocation(l Location, n int) Location {
	return Location{
		Dir:  path.Join(l.Dir, RevisionsDir, l.Stem()),
		File: fmt.Sprintf("%d%s", n, PageExt),
	}
}

func HistoryLocation(l Location) Location {
	return Location{
		Dir:  path.Join(l.Dir, RevisionsDir, l.Stem()),
		File: HistoryFile,
	}
}

// ParseSnapshotPath recognises "<dir>/_revisions/<stem>/<n>.html" and returns the live page path
// "<dir>/<stem>.html" and n.
func ParseSnapshotPath(p string) (string, int, bool) {
	p = path.Clean(p)
	file := path.Base(p)
	if !strings.HasSuffix(file, PageExt) {
		return "", 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(file, PageExt))
	if err != nil || n < 1 {
		return "", 0, false
	}
	stemDir := path.Dir(p)
	revDir := path.Dir(stemDir)
	if path.Base(revDir) != RevisionsDir {
		return "", 0, false
	}
	page := path.Join(path.Dir(revDir), path.Base(stemDir)+PageExt)
	return page, n, true
}

// RelativePath is target expressed relative to the directory fromDir; both are slash-separated and
// relative to the same root.
func RelativePath(fromDir, target string) string {
	rel, err := filepath.Rel(filepath.FromSlash("/"+fromDir), filepath.FromSlash("/"+target))
	if err != nil {
		return target
	}
	return filepath.ToSlash(rel)
}
