// Package localimport pushes a local file tree, as laid out by localdump, back into a remote site.
//
// The tree is walked parent first so every page's remote identity exists before its children are
// submitted.  Links to pages that don't have an identity yet are left as relative paths and queued;
// once the walk is done a reconciliation pass rewrites them and updates only the pages whose content
// actually changed.
package localimport

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/helper/chroot"

	"github.com/toothbrush/site-mirror/links"
	"github.com/toothbrush/site-mirror/progress"
	"github.com/toothbrush/site-mirror/remote"
	"github.com/toothbrush/site-mirror/site"
)

type Importer struct {
	Store  remote.Store
	FS     billy.Filesystem
	Logger *slog.Logger
	Events chan<- progress.Event

	MutatePolicy remote.RetryPolicy
}

type importRun struct {
	*Importer

	site     string
	fs       billy.Filesystem
	mutator  *remote.Mutator
	resolver *links.Resolver
	ids      *IdentityMap
	pages    map[string]*Node
	pending  []deferred

	logger *slog.Logger
	events *progress.Reporter
	report *site.Report

	total, done int
}

// deferred is a page whose links couldn't all be resolved on the first pass.
type deferred struct {
	node     *Node
	page     localPage
	parentID string
	targets  []links.Pending
}

// Import pushes the tree in s.Dir into site s.Name.  Pages that can't be created or updated are
// skipped together with their subtrees and recorded in the report.  The identity mapping is saved
// when the walk completes, and also when it is interrupted.
func (im *Importer) Import(ctx context.Context, s site.Site) (site.Report, error) {
	report := site.Report{Site: s.Name}
	logger := im.rootLogger().With("site", s.Name)
	fs := im.siteFS(s)

	ids, err := LoadIdentities(fs, s.Name)
	if err != nil {
		return report, err
	}
	roots, orphans, err := scanDir(fs, "")
	if err != nil {
		return report, err
	}

	run := &importRun{
		Importer: im,
		site:     s.Name,
		fs:       fs,
		mutator:  remote.NewMutator(im.Store, im.mutatePolicy(), logger),
		resolver: &links.Resolver{},
		ids:      ids,
		pages:    map[string]*Node{},
		logger:   logger,
		events:   progress.NewReporter(s.Name, im.Events),
		report:   &report,
	}
	for _, dir := range orphans {
		report.Warnings++
		logger.Warn("ignoring directory without a page", "path", dir)
	}
	for _, n := range roots {
		run.index(n)
		run.total += n.count()
	}
	logger.Info("scanned local tree", "pages", run.total, "known", ids.Len())
	run.events.Statusf("importing %d pages", run.total)

	if err := run.walk(ctx, roots); err != nil {
		// entries created so far exist remotely; remember them so a rerun updates instead of
		// duplicating.
		if saveErr := ids.Save(fs, s.Name); saveErr != nil {
			logger.Error("couldn't save identity mapping", "error", saveErr)
		}
		return report, fmt.Errorf("localimport: import of %s stopped: %w", s.Name, err)
	}
	if err := ids.Save(fs, s.Name); err != nil {
		return report, err
	}

	run.events.Progress(1, 1)
	run.events.Statusf("imported %d, updated %d, %d skipped", report.PagesImported, report.PagesUpdated, len(report.Skipped))
	logger.Info("import finished",
		"created", report.PagesImported,
		"updated", report.PagesUpdated,
		"unchanged", report.PagesUnchanged,
		"skipped", len(report.Skipped),
		"warnings", report.Warnings,
	)
	return report, nil
}

func (run *importRun) walk(ctx context.Context, roots []*Node) error {
	for _, n := range roots {
		if err := run.visit(ctx, n, ""); err != nil {
			return err
		}
	}
	return run.reconcile(ctx)
}

func (run *importRun) index(n *Node) {
	run.pages[n.Path] = n
	for _, c := range n.Children {
		run.index(c)
	}
}

// Identity and Exists make the run the links.IdentityLookup for its own tree.
func (run *importRun) Identity(localPath string) (site.Identity, bool) {
	return run.ids.Identity(localPath)
}

func (run *importRun) Exists(localPath string) bool {
	_, ok := run.pages[localPath]
	return ok
}

func (run *importRun) visit(ctx context.Context, n *Node, parentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	id, err := run.submit(ctx, n, parentID)
	run.done++
	run.events.Progress(run.done, run.total)
	if err != nil {
		run.skipSubtree(n, err)
		return nil
	}

	for _, c := range n.Children {
		if err := run.visit(ctx, c, id); err != nil {
			return err
		}
	}
	return nil
}

// submit creates or updates the page at n and returns its remote id.
func (run *importRun) submit(ctx context.Context, n *Node, parentID string) (string, error) {
	page, err := readPage(run.fs, n.Path)
	if err != nil {
		return "", err
	}

	content, targets, warnings := run.resolver.ToRemote(page.Content, run, n.Path)
	run.warn(warnings)

	entry := site.Entry{
		Kind:     page.Kind,
		ParentID: parentID,
		Title:    page.Title,
		Content:  content,
	}
	rec, known := run.ids.Record(n.Path)
	if len(targets) > 0 {
		run.pending = append(run.pending, deferred{node: n, page: page, parentID: parentID, targets: targets})
		if known {
			// the reconciliation pass submits this page once, with every link resolved.
			return rec.ID, nil
		}
	}

	hash := entryHash(entry)
	if known && rec.Hash == hash {
		run.report.PagesUnchanged++
		run.logger.Debug("unchanged", "path", n.Path)
		return rec.ID, nil
	}

	if known {
		entry.ID = rec.ID
		updated, err := run.mutator.Update(ctx, entry)
		if err != nil {
			return "", err
		}
		run.ids.Set(n.Path, Record{ID: updated.ID, URL: updated.WebURL, Hash: hash})
		run.report.PagesUpdated++
		run.logger.Debug("updated", "path", n.Path, "id", updated.ID)
		return updated.ID, nil
	}

	created, err := run.mutator.Insert(ctx, entry, remote.Content(run.site))
	if err != nil {
		return "", err
	}
	run.ids.Set(n.Path, Record{ID: created.ID, URL: created.WebURL, Hash: hash})
	run.report.PagesImported++
	run.logger.Debug("created", "path", n.Path, "id", created.ID)
	return created.ID, nil
}

// skipSubtree records n as failed, and its descendants as skipped because of it.
func (run *importRun) skipSubtree(n *Node, err error) {
	rec, _ := run.ids.Record(n.Path)
	run.report.Skip(n.Path, rec.ID, err)
	run.logger.Warn("skipping page and its subtree", "path", n.Path, "descendants", n.count()-1, "error", err)
	run.events.Warnf("skipped %s: %v", n.Path, err)

	var skipChildren func(parent *Node)
	skipChildren = func(parent *Node) {
		for _, c := range parent.Children {
			rec, _ := run.ids.Record(c.Path)
			run.report.Skip(c.Path, rec.ID, fmt.Errorf("parent %s was skipped", parent.Path))
			run.done++
			skipChildren(c)
		}
	}
	skipChildren(n)
	run.events.Progress(run.done, run.total)
}

// reconcile resubmits the pages whose links couldn't all be resolved on the first pass.
func (run *importRun) reconcile(ctx context.Context) error {
	if len(run.pending) == 0 {
		return nil
	}
	run.events.Statusf("reconciling %d pages", len(run.pending))

	for _, d := range run.pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, ok := run.ids.Record(d.node.Path)
		if !ok {
			// never created; already reported.
			continue
		}

		run.logger.Debug("reconciling", "path", d.node.Path, "deferred", len(d.targets))
		content, unresolved, _ := run.resolver.ToRemote(d.page.Content, run, d.node.Path)
		for _, p := range unresolved {
			run.report.Warnings++
			run.logger.Warn("link target was never created", "source", p.Source, "target", p.Target)
		}

		entry := site.Entry{
			ID:       rec.ID,
			Kind:     d.page.Kind,
			ParentID: d.parentID,
			Title:    d.page.Title,
			Content:  content,
		}
		hash := entryHash(entry)
		if hash == rec.Hash {
			run.report.PagesUnchanged++
			continue
		}

		updated, err := run.mutator.Update(ctx, entry)
		if err != nil {
			run.report.Skip(d.node.Path, rec.ID, err)
			run.logger.Warn("couldn't update links", "path", d.node.Path, "error", err)
			continue
		}
		run.ids.Set(d.node.Path, Record{ID: updated.ID, URL: updated.WebURL, Hash: hash})
		run.report.PagesUpdated++
	}
	return nil
}

func (run *importRun) warn(warnings []site.LinkResolutionWarning) {
	for _, w := range warnings {
		run.report.Warnings++
		run.logger.Warn("link left unresolved", "source", w.Source, "ref", w.Ref, "reason", w.Reason)
		run.events.Warnf("%s", w)
	}
}

func (im *Importer) siteFS(s site.Site) billy.Filesystem {
	if s.Dir == "" || s.Dir == "." {
		return im.FS
	}
	return chroot.New(im.FS, s.Dir)
}

func (im *Importer) rootLogger() *slog.Logger {
	if im.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return im.Logger
}

func (im *Importer) mutatePolicy() remote.RetryPolicy {
	if im.MutatePolicy == (remote.RetryPolicy{}) {
		return remote.DefaultMutatePolicy()
	}
	return im.MutatePolicy
}
