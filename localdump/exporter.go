// Package localdump mirrors a remote site into a local file tree.
//
// The content feed is read into an entrystore.Store, every entry is given a Location, and the tree
// is walked root first: each page is written with its links localised, optionally followed by its
// revision history and a Markdown rendition.
package localdump

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/helper/chroot"

	"github.com/toothbrush/site-mirror/entrystore"
	"github.com/toothbrush/site-mirror/links"
	"github.com/toothbrush/site-mirror/progress"
	"github.com/toothbrush/site-mirror/remote"
	"github.com/toothbrush/site-mirror/site"
)

const DefaultPageSize = 100

// Exporter copies sites from Store into FS.  One Exporter may run several sites concurrently; all
// per-site state lives in the call to Export.
type Exporter struct {
	Store  remote.Store
	FS     billy.Filesystem
	Logger *slog.Logger
	Events chan<- progress.Event

	PageSize   int
	FeedPolicy remote.RetryPolicy

	ExportRevisions bool
	WriteMarkdown   bool
	Prune           bool

	// SkipChildrenOfFailedPages leaves out the subtree of a page that couldn't be written.  By
	// default the children are still written into the directory the page would have owned.
	SkipChildrenOfFailedPages bool
}

type exportRun struct {
	*Exporter

	fs        billy.Filesystem
	store     *entrystore.Store
	layout    *Layout
	resolver  *links.Resolver
	revisions *RevisionHistoryExporter
	markdown  *md.Converter

	logger *slog.Logger
	events *progress.Reporter
	report *site.Report

	written map[string]bool
	done    int
}

// Export mirrors one site into s.Dir.  Feed and tree-structure errors abort the site and are
// returned; single pages that can't be written are recorded in the report as skips.
func (x *Exporter) Export(ctx context.Context, s site.Site) (site.Report, error) {
	report := site.Report{Site: s.Name}
	logger := x.rootLogger().With("site", s.Name)
	events := progress.NewReporter(s.Name, x.Events)

	reader := remote.NewReader(x.Store, x.feedPolicy(), logger)
	store := entrystore.New()

	events.Statusf("reading content feed")
	logger.Info("reading content feed")
	if err := store.Populate(ctx, reader.Read(remote.Content(s.Name), x.pageSize())); err != nil {
		return report, fmt.Errorf("localdump: couldn't read site %s: %w", s.Name, err)
	}
	layout, err := NewLayout(store)
	if err != nil {
		return report, err
	}
	logger.Info("read content feed", "entries", store.Len())

	run := &exportRun{
		Exporter: x,
		fs:       x.siteFS(s),
		store:    store,
		layout:   layout,
		resolver: &links.Resolver{SiteURL: remote.SiteURL(x.Store, s.Name)},
		logger:   logger,
		events:   events,
		report:   &report,
		written:  map[string]bool{},
	}
	if x.ExportRevisions {
		run.revisions = &RevisionHistoryExporter{
			Reader:   reader,
			Site:     s.Name,
			PageSize: x.pageSize(),
			FS:       run.fs,
			Resolver: run.resolver,
			Index:    layout,
			Logger:   logger,
		}
	}
	if x.WriteMarkdown {
		run.markdown = newMarkdownConverter(run.resolver.SiteURL)
	}

	events.Statusf("writing %d entries", store.Len())
	err = store.Walk(func(e site.Entry, depth int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return run.exportEntry(ctx, e)
	})
	if err != nil {
		return report, fmt.Errorf("localdump: export of %s stopped: %w", s.Name, err)
	}

	if x.Prune {
		pruned, err := run.prune(run.fs, run.written)
		if err != nil {
			return report, err
		}
		logger.Info("...done pruning pages.", "pruned", pruned)
	}

	events.Progress(1, 1)
	events.Statusf("exported %d pages, %d skipped", report.PagesExported, len(report.Skipped))
	logger.Info("export finished",
		"pages", report.PagesExported,
		"revisions", report.RevisionsExported,
		"skipped", len(report.Skipped),
		"warnings", report.Warnings,
	)
	return report, nil
}

func (run *exportRun) exportEntry(ctx context.Context, e site.Entry) error {
	defer func() {
		run.done++
		run.events.Progress(run.done, run.store.Len())
	}()

	loc, ok := run.layout.Location(e.ID)
	if !ok {
		return fmt.Errorf("localdump: entry %s has no location", e.ID)
	}

	if run.store.HasChildren(e.ID) {
		if err := run.fs.MkdirAll(loc.ChildDir(), 0o750); err != nil {
			run.logger.Warn("couldn't create directory", "path", loc.ChildDir(), "error", err)
		}
	}

	content, warnings := run.resolver.ToLocal(e.Content, run.layout, loc)
	run.warn(warnings)

	header := headerFor(e, run.store.Ancestors(e.ID))
	data, err := EncodePage(header, content)
	if err == nil {
		err = WriteFile(run.fs, loc.Path(), data)
	}
	if err != nil {
		werr := &site.PageWriteError{Path: loc.Path(), Err: err}
		run.report.Skip(loc.Path(), e.ID, werr)
		// keep whatever an earlier run left there out of the prune.
		run.keep(loc)
		run.logger.Warn("skipping page", "path", loc.Path(), "id", e.ID, "error", err)
		run.events.Warnf("skipped %s: %v", loc.Path(), err)
		if run.SkipChildrenOfFailedPages {
			run.skipDescendants(e, loc)
			return entrystore.SkipChildren
		}
		return nil
	}
	run.written[loc.Path()] = true
	run.report.PagesExported++
	run.logger.Debug("wrote page", "path", loc.Path(), "revision", e.Revision)

	if run.markdown != nil {
		mdLoc := markdownLocation(loc)
		run.written[mdLoc.Path()] = true
		data, err := renderMarkdown(run.markdown, header, content)
		if err == nil {
			err = WriteFile(run.fs, mdLoc.Path(), data)
		}
		if err != nil {
			run.report.Warnings++
			run.logger.Warn("couldn't write Markdown rendition", "path", mdLoc.Path(), "error", err)
		}
	}

	if run.revisions != nil && e.Kind.IsPage() {
		result, err := run.revisions.Export(ctx, e, loc)
		run.warn(result.Warnings)
		run.report.RevisionsExported += len(result.Snapshots)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			run.report.Warnings++
			run.logger.Warn("skipping revision history", "path", loc.Path(), "error", err)
			run.events.Warnf("no history for %s: %v", loc.Path(), err)
		}
	}
	return nil
}

// keep marks the files of the page at loc as belonging to this export without writing them.
func (run *exportRun) keep(loc site.Location) {
	run.written[loc.Path()] = true
	if run.markdown != nil {
		run.written[markdownLocation(loc).Path()] = true
	}
}

// skipDescendants records every page below the failed page e as skipped because of it.  Their
// previous copies stay on disk.
func (run *exportRun) skipDescendants(e site.Entry, loc site.Location) {
	for _, child := range run.store.ChildrenOf(e.ID) {
		childLoc, ok := run.layout.Location(child.ID)
		if !ok {
			continue
		}
		run.keep(childLoc)
		run.report.Skip(childLoc.Path(), child.ID, fmt.Errorf("parent %s was skipped", loc.Path()))
		run.done++
		run.skipDescendants(child, childLoc)
	}
	run.events.Progress(run.done, run.store.Len())
}

func (run *exportRun) warn(warnings []site.LinkResolutionWarning) {
	for _, w := range warnings {
		run.report.Warnings++
		run.logger.Warn("link left unresolved", "source", w.Source, "ref", w.Ref, "reason", w.Reason)
		run.events.Warnf("%s", w)
	}
}

func (x *Exporter) siteFS(s site.Site) billy.Filesystem {
	if s.Dir == "" || s.Dir == "." {
		return x.FS
	}
	return chroot.New(x.FS, s.Dir)
}

func (x *Exporter) rootLogger() *slog.Logger {
	if x.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return x.Logger
}

func (x *Exporter) pageSize() int {
	if x.PageSize <= 0 {
		return DefaultPageSize
	}
	return x.PageSize
}

func (x *Exporter) feedPolicy() remote.RetryPolicy {
	if x.FeedPolicy == (remote.RetryPolicy{}) {
		return remote.DefaultFeedPolicy()
	}
	return x.FeedPolicy
}
