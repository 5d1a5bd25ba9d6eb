package localdump_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toothbrush/site-mirror/localdump"
	"github.com/toothbrush/site-mirror/progress"
	"github.com/toothbrush/site-mirror/remote"
	"github.com/toothbrush/site-mirror/remote/remotetest"
	"github.com/toothbrush/site-mirror/site"
)

var fastRetry = remote.RetryPolicy{Attempts: 2, CallTimeout: time.Second}

func at(sec int) time.Time { return time.Date(2024, 3, 1, 0, 0, sec, 0, time.UTC) }

const ws = "https://sites.example.test/site/ws/"

func seedScenario(store *remotetest.Store) {
	store.Add("ws",
		site.Entry{ID: "home", Title: "Home", Revision: 3, Published: at(1),
			Content: `<p>Read <a href="` + ws + `about">about us</a> or the <a href="/site/ws/blog">blog</a>.</p>`},
		site.Entry{ID: "about", ParentID: "home", Title: "About", Revision: 1, Published: at(2),
			Content: `<p>We are <a href="https://elsewhere.example.test/">elsewhere</a>.</p>`},
		site.Entry{ID: "blog", ParentID: "home", Title: "Blog", Revision: 1, Published: at(3),
			Content: `<a href="` + ws + `post1">latest</a>`},
		site.Entry{ID: "post1", ParentID: "blog", Title: "Post1", Revision: 1, Published: at(4),
			Content: `<a href="` + ws + `home#top">home</a>`},
	)
}

func exporter(store remote.Store, fs billy.Filesystem) *localdump.Exporter {
	return &localdump.Exporter{
		Store:      store,
		FS:         fs,
		PageSize:   2,
		FeedPolicy: fastRetry,
	}
}

func readPage(t *testing.T, fs billy.Filesystem, p string) (localdump.PageHeader, string) {
	t.Helper()
	data, err := util.ReadFile(fs, p)
	require.NoError(t, err, p)
	h, content, err := localdump.DecodePage(data)
	require.NoError(t, err, p)
	return h, content
}

func exists(fs billy.Filesystem, p string) bool {
	_, err := fs.Stat(p)
	return err == nil
}

func TestExportScenario(t *testing.T) {
	store := remotetest.New()
	seedScenario(store)
	fs := memfs.New()

	report, err := exporter(store, fs).Export(context.Background(), site.Site{Name: "ws", Dir: "out"})
	require.NoError(t, err)
	assert.Equal(t, 4, report.PagesExported)
	assert.Empty(t, report.Skipped)

	h, content := readPage(t, fs, "out/home.html")
	assert.Equal(t, "Home", h.Title)
	assert.Equal(t, 3, h.Revision)
	assert.Equal(t, ws+"home", h.URL)
	assert.Equal(t, `<p>Read <a href="home/about.html">about us</a> or the <a href="home/blog.html">blog</a>.</p>`, content)

	_, content = readPage(t, fs, "out/home/about.html")
	assert.Contains(t, content, `href="https://elsewhere.example.test/"`)

	_, content = readPage(t, fs, "out/home/blog.html")
	assert.Equal(t, `<a href="blog/post1.html">latest</a>`, content)

	h, content = readPage(t, fs, "out/home/blog/post1.html")
	assert.Equal(t, []string{"Home", "Blog"}, h.Ancestors)
	assert.Equal(t, `<a href="../../home.html#top">home</a>`, content)

	assert.False(t, exists(fs, "out/home/about"), "leaf pages own no directory")
}

func TestExportRevisions(t *testing.T) {
	store := remotetest.New()
	seedScenario(store)
	store.Add("ws", site.Entry{ID: "logo", ParentID: "about", Kind: site.Attachment, Title: "Logo", Published: at(5)})
	live, _ := store.Entry("ws", "home")
	store.AddRevisions("ws", "home",
		site.Entry{ID: "home", Revision: 2, Title: "Home", Updated: at(20), Content: `v2 <a href="` + ws + `about">about</a>`},
		site.Entry{ID: "home", Revision: 1, Title: "Start", Updated: at(10), Content: "v1"},
		site.Entry{ID: "home", Revision: 3, Title: "Home", Updated: at(30), Content: live.Content},
	)

	x := exporter(store, memfs.New())
	x.ExportRevisions = true
	report, err := x.Export(context.Background(), site.Site{Name: "ws", Dir: "out"})
	require.NoError(t, err)
	assert.Equal(t, 2, report.RevisionsExported)

	h, content := readPage(t, x.FS, "out/_revisions/home/1.html")
	assert.Equal(t, 1, h.Revision)
	assert.Equal(t, "Start", h.Title)
	assert.Equal(t, "v1", content)

	_, content = readPage(t, x.FS, "out/_revisions/home/2.html")
	assert.Equal(t, `v2 <a href="../../home/about.html">about</a>`, content)

	assert.False(t, exists(x.FS, "out/_revisions/home/3.html"), "the live revision has no snapshot")
	// revision 3 is what the live page holds.
	_, liveContent := readPage(t, x.FS, "out/home.html")
	assert.Equal(t, `<p>Read <a href="home/about.html">about us</a> or the <a href="home/blog.html">blog</a>.</p>`, liveContent)

	history, err := util.ReadFile(x.FS, "out/_revisions/home/history.html")
	require.NoError(t, err)
	text := string(history)
	first, second, third := strings.Index(text, "Revision 1"), strings.Index(text, "Revision 2"), strings.Index(text, "Revision 3")
	require.True(t, first >= 0 && second >= 0 && third >= 0, text)
	assert.True(t, first < second && second < third, "history is oldest to newest")
	assert.Contains(t, text, `href="../../home.html"`)
	assert.Contains(t, text, `href="1.html"`)

	for _, c := range store.CallsOf("fetch") {
		if c.Target.Kind == remote.RevisionFeed {
			assert.NotEqual(t, "logo", c.Target.EntryID, "attachments carry no history")
		}
	}
}

func TestExportRevisionFailureSkipsOnlyThatHistory(t *testing.T) {
	store := remotetest.New()
	seedScenario(store)
	store.FailFetch = func(target remote.FeedTarget, token string) error {
		if target.Kind == remote.RevisionFeed && target.EntryID == "about" {
			return fmt.Errorf("403: %w", remote.ErrRejected)
		}
		return nil
	}

	x := exporter(store, memfs.New())
	x.ExportRevisions = true
	report, err := x.Export(context.Background(), site.Site{Name: "ws", Dir: "out"})
	require.NoError(t, err)
	assert.Equal(t, 4, report.PagesExported)
	assert.Positive(t, report.Warnings)
	assert.True(t, exists(x.FS, "out/_revisions/home/history.html"))
	assert.False(t, exists(x.FS, "out/home/_revisions/about/history.html"))
}

type failingFS struct {
	billy.Filesystem
	failRename string
}

func (f *failingFS) Rename(from, to string) error {
	if filepath.ToSlash(to) == f.failRename {
		return errors.New("disk full")
	}
	return f.Filesystem.Rename(from, to)
}

func TestExportWriteFailure(t *testing.T) {
	t.Run("children still placed", func(t *testing.T) {
		store := remotetest.New()
		seedScenario(store)
		fs := &failingFS{Filesystem: memfs.New(), failRename: "out/home/blog.html"}

		report, err := exporter(store, fs).Export(context.Background(), site.Site{Name: "ws", Dir: "out"})
		require.NoError(t, err)
		require.Len(t, report.Skipped, 1)
		assert.Equal(t, "home/blog.html", report.Skipped[0].Path)
		assert.Equal(t, "blog", report.Skipped[0].ID)
		assert.Contains(t, report.Skipped[0].Reason, "disk full")
		assert.Equal(t, 3, report.PagesExported)

		assert.False(t, exists(fs, "out/home/blog.html"))
		assert.True(t, exists(fs, "out/home/blog/post1.html"))
	})

	t.Run("children skipped on request", func(t *testing.T) {
		store := remotetest.New()
		seedScenario(store)
		fs := &failingFS{Filesystem: memfs.New(), failRename: "out/home/blog.html"}
		x := exporter(store, fs)
		x.SkipChildrenOfFailedPages = true

		report, err := x.Export(context.Background(), site.Site{Name: "ws", Dir: "out"})
		require.NoError(t, err)
		require.Len(t, report.Skipped, 2)
		assert.Equal(t, "home/blog.html", report.Skipped[0].Path)
		assert.Equal(t, "home/blog/post1.html", report.Skipped[1].Path)
		assert.Equal(t, "post1", report.Skipped[1].ID)
		assert.Contains(t, report.Skipped[1].Reason, "home/blog.html")
		assert.Equal(t, 2, report.PagesExported)
		assert.False(t, exists(fs, "out/home/blog/post1.html"))
	})
}

func TestExportFatalErrors(t *testing.T) {
	t.Run("dangling parent", func(t *testing.T) {
		store := remotetest.New()
		store.Add("ws", site.Entry{ID: "home"}, site.Entry{ID: "stray", ParentID: "gone"})

		_, err := exporter(store, memfs.New()).Export(context.Background(), site.Site{Name: "ws"})
		var dangling *site.DanglingParentError
		require.ErrorAs(t, err, &dangling)
		assert.Equal(t, "gone", dangling.ParentID)
		assert.True(t, site.IsFatal(err))
	})

	t.Run("feed failure", func(t *testing.T) {
		store := remotetest.New()
		seedScenario(store)
		store.FailFetch = func(remote.FeedTarget, string) error {
			return fmt.Errorf("reset: %w", remote.ErrTransient)
		}
		fs := memfs.New()

		_, err := exporter(store, fs).Export(context.Background(), site.Site{Name: "ws", Dir: "out"})
		var feedErr *site.FeedFetchError
		require.ErrorAs(t, err, &feedErr)
		assert.Equal(t, 2, feedErr.Attempts)
		assert.False(t, exists(fs, "out/home.html"), "nothing is written from a partial feed")
	})
}

func TestExportCancelled(t *testing.T) {
	store := remotetest.New()
	seedScenario(store)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exporter(store, memfs.New()).Export(ctx, site.Site{Name: "ws"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, site.IsFatal(err))
}

func TestExportMarkdown(t *testing.T) {
	store := remotetest.New()
	seedScenario(store)
	x := exporter(store, memfs.New())
	x.WriteMarkdown = true

	_, err := x.Export(context.Background(), site.Site{Name: "ws", Dir: "out"})
	require.NoError(t, err)

	h, content := readPage(t, x.FS, "out/home.md")
	assert.Equal(t, "Home", h.Title)
	assert.Contains(t, content, "[about us](home/about.md)")
	assert.Contains(t, content, "[blog](home/blog.md)")
}

func TestExportPrune(t *testing.T) {
	t.Run("stale pages removed", func(t *testing.T) {
		store := remotetest.New()
		seedScenario(store)
		fs := memfs.New()
		require.NoError(t, util.WriteFile(fs, "out/home/old.html", []byte("stale"), 0o644))
		require.NoError(t, util.WriteFile(fs, "out/notes.txt", []byte("mine"), 0o644))
		require.NoError(t, util.WriteFile(fs, "out/.site-mirror/identities.yaml", []byte("{}"), 0o644))

		x := exporter(store, fs)
		x.Prune = true
		_, err := x.Export(context.Background(), site.Site{Name: "ws", Dir: "out"})
		require.NoError(t, err)

		assert.False(t, exists(fs, "out/home/old.html"))
		assert.True(t, exists(fs, "out/notes.txt"))
		assert.True(t, exists(fs, "out/.site-mirror/identities.yaml"))
		assert.True(t, exists(fs, "out/home/blog/post1.html"))
	})

	t.Run("subtree of a failed page kept", func(t *testing.T) {
		store := remotetest.New()
		seedScenario(store)
		mem := memfs.New()
		s := site.Site{Name: "ws", Dir: "out"}

		x := exporter(store, mem)
		x.WriteMarkdown = true
		_, err := x.Export(context.Background(), s)
		require.NoError(t, err)

		fs := &failingFS{Filesystem: mem, failRename: "out/home/blog.html"}
		x = exporter(store, fs)
		x.WriteMarkdown = true
		x.Prune = true
		x.SkipChildrenOfFailedPages = true
		report, err := x.Export(context.Background(), s)
		require.NoError(t, err)
		assert.Len(t, report.Skipped, 2)

		for _, p := range []string{
			"out/home/blog.html", "out/home/blog.md",
			"out/home/blog/post1.html", "out/home/blog/post1.md",
		} {
			assert.True(t, exists(fs, p), "%s was pruned", p)
		}
		_, content := readPage(t, fs, "out/home/blog/post1.html")
		assert.Equal(t, `<a href="../../home.html#top">home</a>`, content)
	})
}

func TestExportReportsProgress(t *testing.T) {
	store := remotetest.New()
	seedScenario(store)
	events := make(chan progress.Event, 100)
	x := exporter(store, memfs.New())
	x.Events = events

	_, err := x.Export(context.Background(), site.Site{Name: "ws"})
	require.NoError(t, err)
	close(events)

	last := -1.0
	for ev := range events {
		assert.Equal(t, "ws", ev.Site)
		if ev.Fraction >= 0 {
			last = ev.Fraction
		}
	}
	assert.Equal(t, 1.0, last)
}

func TestSiblingSlugCollisions(t *testing.T) {
	store := remotetest.New()
	store.Add("ws",
		site.Entry{ID: "home", Title: "Home"},
		site.Entry{ID: "a", ParentID: "home", Title: "Notes!", Published: at(1)},
		site.Entry{ID: "b", ParentID: "home", Title: "notes", Published: at(2)},
		site.Entry{ID: "c", ParentID: "home", Title: "?", Published: at(3)},
	)
	fs := memfs.New()

	_, err := exporter(store, fs).Export(context.Background(), site.Site{Name: "ws"})
	require.NoError(t, err)

	h, _ := readPage(t, fs, "home/notes.html")
	assert.Equal(t, "Notes!", h.Title)
	h, _ = readPage(t, fs, "home/notes-2.html")
	assert.Equal(t, "notes", h.Title)
	assert.True(t, exists(fs, "home/page-c.html"), "untitled pages are named after their id")
}
