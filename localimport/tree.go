package localimport

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/toothbrush/site-mirror/localdump"
	"github.com/toothbrush/site-mirror/site"
)

// Node is one page of the local tree.  Its children are the pages in the directory named after
// its file.
type Node struct {
	Path     string
	Children []*Node
}

func (n *Node) count() int {
	total := 1
	for _, c := range n.Children {
		total += c.count()
	}
	return total
}

// scanDir lists the pages in dir, recursing into their child directories.  Directories that no page
// owns are returned as orphans.
func scanDir(fs billy.Filesystem, dir string) ([]*Node, []string, error) {
	listing := dir
	if listing == "" {
		listing = "."
	}
	infos, err := fs.ReadDir(listing)
	if err != nil {
		return nil, nil, fmt.Errorf("localimport: couldn't list %s: %w", listing, err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	dirs := map[string]bool{}
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() && !strings.HasPrefix(name, ".") && name != site.RevisionsDir {
			dirs[name] = true
		}
	}

	var (
		nodes   []*Node
		orphans []string
	)
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() || strings.HasPrefix(name, ".") || path.Ext(name) != site.PageExt {
			continue
		}
		n := &Node{Path: path.Join(dir, name)}
		stem := strings.TrimSuffix(name, site.PageExt)
		if dirs[stem] {
			delete(dirs, stem)
			children, childOrphans, err := scanDir(fs, path.Join(dir, stem))
			if err != nil {
				return nil, nil, err
			}
			n.Children = children
			orphans = append(orphans, childOrphans...)
		}
		nodes = append(nodes, n)
	}

	for name := range dirs {
		orphans = append(orphans, path.Join(dir, name))
	}
	sort.Strings(orphans)
	return nodes, orphans, nil
}

// localPage is a page file as read back from disk.
type localPage struct {
	Kind    site.Kind
	Title   string
	Content string
}

// readPage parses a page file.  Files without front matter are plain web pages titled after their
// file name.
func readPage(fs billy.Filesystem, p string) (localPage, error) {
	data, err := util.ReadFile(fs, p)
	if err != nil {
		return localPage{}, fmt.Errorf("localimport: couldn't read %s: %w", p, err)
	}

	header, content, err := localdump.DecodePage(data)
	if errors.Is(err, localdump.ErrNoFrontMatter) {
		return localPage{Kind: site.WebPage, Title: titleFromName(p), Content: content}, nil
	}
	if err != nil {
		return localPage{}, fmt.Errorf("localimport: %s: %w", p, err)
	}

	kind, err := site.ParseKind(header.Kind)
	if err != nil {
		return localPage{}, fmt.Errorf("localimport: %s: %w", p, err)
	}
	title := header.Title
	if title == "" {
		title = titleFromName(p)
	}
	return localPage{Kind: kind, Title: title, Content: content}, nil
}

func titleFromName(p string) string {
	return strings.ReplaceAll(strings.TrimSuffix(path.Base(p), site.PageExt), "-", " ")
}
