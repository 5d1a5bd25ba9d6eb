package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/sync/errgroup"

	"github.com/toothbrush/site-mirror/localdump"
	"github.com/toothbrush/site-mirror/localimport"
	"github.com/toothbrush/site-mirror/progress"
	"github.com/toothbrush/site-mirror/remote"
	"github.com/toothbrush/site-mirror/site"
)

// siteRunner synchronizes one site, sending progress to events.
type siteRunner func(ctx context.Context, s site.Site, events chan<- progress.Event) (site.Report, error)

type siteResult struct {
	Report site.Report
	Err    error
}

type syncOptions struct {
	Mode                 string
	Revisions            bool
	Markdown             bool
	Prune                bool
	SkipChildrenOfFailed bool
	PageSize             int
}

// newRunner returns the engine for opts.Mode, working on sites below fs.
func newRunner(store remote.Store, fs billy.Filesystem, logger *slog.Logger, opts syncOptions) (siteRunner, error) {
	switch opts.Mode {
	case "export":
		return func(ctx context.Context, s site.Site, events chan<- progress.Event) (site.Report, error) {
			x := &localdump.Exporter{
				Store:                     store,
				FS:                        fs,
				Logger:                    logger,
				Events:                    events,
				PageSize:                  opts.PageSize,
				ExportRevisions:           opts.Revisions,
				WriteMarkdown:             opts.Markdown,
				Prune:                     opts.Prune,
				SkipChildrenOfFailedPages: opts.SkipChildrenOfFailed,
			}
			return x.Export(ctx, s)
		}, nil

	case "import":
		return func(ctx context.Context, s site.Site, events chan<- progress.Event) (site.Report, error) {
			im := &localimport.Importer{
				Store:  store,
				FS:     fs,
				Logger: logger,
				Events: events,
			}
			return im.Import(ctx, s)
		}, nil
	}
	return nil, fmt.Errorf("sync: unknown mode '%s', expected export or import", opts.Mode)
}

// syncSites runs every site through run, at most workers at a time.  A site failing doesn't stop
// the others; each one's outcome is in the result at the same index.
func syncSites(ctx context.Context, names []string, workers int, out io.Writer, run siteRunner) []siteResult {
	results := make([]siteResult, len(names))
	events := make(chan progress.Event, 64)

	display := newProgressDisplay(out, names)
	consumed := make(chan struct{})
	go func() {
		display.consume(events)
		close(consumed)
	}()

	var grp errgroup.Group
	grp.SetLimit(max(workers, 1))
	for i, name := range names {
		grp.Go(func() error {
			report, err := run(ctx, site.Site{Name: name, Dir: name}, events)
			results[i] = siteResult{Report: report, Err: err}
			display.finish(name, err)
			return nil
		})
	}
	grp.Wait()

	close(events)
	<-consumed
	display.wait()
	return results
}

// barScale is the resolution of the progress bars; events carry fractions.
const barScale = 1000

type siteBar struct {
	bar *mpb.Bar

	mu     sync.Mutex
	status string
}

func (b *siteBar) setStatus(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = s
}

func (b *siteBar) getStatus() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

type progressDisplay struct {
	p    *mpb.Progress
	bars map[string]*siteBar
}

func newProgressDisplay(out io.Writer, names []string) *progressDisplay {
	d := &progressDisplay{
		p:    mpb.New(mpb.WithOutput(out), mpb.WithWidth(64)),
		bars: map[string]*siteBar{},
	}
	for _, name := range names {
		sb := &siteBar{status: "waiting"}
		sb.bar = d.p.AddBar(barScale,
			mpb.PrependDecorators(
				// display our name with one space on the right
				decor.Name(fmt.Sprintf("%s:", name),
					decor.WC{C: decor.DindentRight | decor.DextraSpace}),
			),
			mpb.AppendDecorators(
				decor.NewPercentage("%d "),
				decor.Any(func(decor.Statistics) string { return sb.getStatus() }),
			),
		)
		d.bars[name] = sb
	}
	return d
}

func (d *progressDisplay) consume(events <-chan progress.Event) {
	for ev := range events {
		sb, ok := d.bars[ev.Site]
		if !ok {
			continue
		}
		if ev.Fraction >= 0 {
			sb.bar.SetCurrent(int64(ev.Fraction * barScale))
		}
		if ev.Status != "" {
			status := ev.Status
			if ev.Warning {
				status = "warning: " + status
			}
			sb.setStatus(strings.TrimSpace(status))
		}
	}
}

func (d *progressDisplay) finish(name string, err error) {
	sb := d.bars[name]
	if err != nil {
		sb.setStatus("failed")
		sb.bar.Abort(false)
		return
	}
	sb.setStatus("done")
	sb.bar.SetTotal(-1, true)
}

// wait for our bars to complete and flush
func (d *progressDisplay) wait() {
	d.p.Wait()
}

// sitesFailedError reports the sites whose run stopped with a fatal error.
type sitesFailedError struct {
	Failed []string
	Total  int
}

func (e *sitesFailedError) Error() string {
	return fmt.Sprintf("site-mirror: %d of %d sites failed: %s", len(e.Failed), e.Total, strings.Join(e.Failed, ", "))
}

func failedSites(names []string, results []siteResult) error {
	var failed []string
	for i, r := range results {
		if r.Err != nil {
			failed = append(failed, names[i])
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &sitesFailedError{Failed: failed, Total: len(names)}
}
