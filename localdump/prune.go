package localdump

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/toothbrush/site-mirror/site"
)

// prune deletes page files under fs that keep doesn't list.  Hidden directories and revision
// directories are left alone.
func (run *exportRun) prune(fs billy.Filesystem, keep map[string]bool) (int, error) {
	stale := []string{}
	err := util.Walk(fs, ".", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("localdump: error during file tree walk: %w", err)
		}
		name := info.Name()
		if info.IsDir() {
			if p != "." && (strings.HasPrefix(name, ".") || name == site.RevisionsDir) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if ext := filepath.Ext(name); ext != site.PageExt && ext != MarkdownExt {
			return nil
		}

		relative := filepath.ToSlash(p)
		if keep[relative] {
			// file is fresh, skip!
			return nil
		}
		stale = append(stale, relative)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("localdump: failed to list page files: %w", err)
	}

	for _, file := range stale {
		// if we're here, it's a stale/unknown file.
		run.logger.Info("pruning", "path", file)
		if err := fs.Remove(file); err != nil {
			return 0, fmt.Errorf("localdump: failed to delete %s: %w", file, err)
		}
	}
	return len(stale), nil
}
