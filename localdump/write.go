package localdump

import (
	"fmt"
	"path"

	"github.com/go-git/go-billy/v5"
)

// WriteFile replaces p in one step: the data goes to a temporary file next to it, which is then
// renamed over p.  An interrupted run leaves at most a stray temporary file, never a torn page.
func WriteFile(fs billy.Filesystem, p string, data []byte) error {
	directory := path.Dir(p)
	if err := fs.MkdirAll(directory, 0o750); err != nil {
		return fmt.Errorf("localdump: couldn't create directory %s: %w", directory, err)
	}

	f, err := fs.TempFile(directory, ".tmp-"+path.Base(p)+"-")
	if err != nil {
		return fmt.Errorf("localdump: couldn't create temporary file for %s: %w", p, err)
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		fs.Remove(tmp)
		return fmt.Errorf("localdump: couldn't write to file %s: %w", p, err)
	}
	if err := f.Close(); err != nil {
		fs.Remove(tmp)
		return fmt.Errorf("localdump: couldn't close file %s: %w", p, err)
	}
	if err := fs.Rename(tmp, p); err != nil {
		fs.Remove(tmp)
		return fmt.Errorf("localdump: couldn't move %s into place: %w", p, err)
	}
	return nil
}
