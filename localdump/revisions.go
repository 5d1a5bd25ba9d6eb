package localdump

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/toothbrush/site-mirror/links"
	"github.com/toothbrush/site-mirror/remote"
	"github.com/toothbrush/site-mirror/site"
)

// RevisionHistoryExporter writes the history of one page: a snapshot file per historical revision
// and a chronological history file.
type RevisionHistoryExporter struct {
	Reader   *remote.Reader
	Site     string
	PageSize int

	FS       billy.Filesystem
	Resolver *links.Resolver
	Index    links.LocalIndex
	Logger   *slog.Logger
}

type RevisionResult struct {
	Snapshots []string
	History   string
	Warnings  []site.LinkResolutionWarning
}

// Export fetches the revision feed of e, which lives at loc, and writes its history.  The revision
// matching e.Revision is the live page: it has no snapshot but is listed in the history.
func (r *RevisionHistoryExporter) Export(ctx context.Context, e site.Entry, loc site.Location) (RevisionResult, error) {
	var result RevisionResult

	entries, err := r.Reader.ReadAll(ctx, remote.Revisions(r.Site, e.ID), r.PageSize)
	if err != nil {
		return result, fmt.Errorf("localdump: couldn't read revisions of %s: %w", loc.Path(), err)
	}

	byNumber := map[int]site.Revision{}
	for _, entry := range entries {
		rev := site.RevisionFromEntry(e.ID, entry)
		if rev.Number < 1 {
			r.Logger.Warn("ignoring revision without a number", "page", loc.Path())
			continue
		}
		byNumber[rev.Number] = rev
	}
	if _, ok := byNumber[e.Revision]; !ok && e.Revision > 0 {
		byNumber[e.Revision] = site.Revision{
			PageID:    e.ID,
			Number:    e.Revision,
			Title:     e.Title,
			Content:   e.Content,
			Timestamp: e.Updated,
		}
	}

	revisions := make([]site.Revision, 0, len(byNumber))
	for _, rev := range byNumber {
		revisions = append(revisions, rev)
	}
	sort.Slice(revisions, func(i, j int) bool { return revisions[i].Number < revisions[j].Number })

	for _, rev := range revisions {
		if rev.Number == e.Revision {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		snapshot := site.SnapshotLocation(loc, rev.Number)
		content, warnings := r.Resolver.ToLocal(rev.Content, r.Index, snapshot)
		result.Warnings = append(result.Warnings, warnings...)

		data, err := EncodePage(PageHeader{
			Title:    rev.Title,
			Kind:     e.Kind.String(),
			ID:       e.ID,
			Revision: rev.Number,
			Updated:  rev.Timestamp,
			URL:      revisionURL(e.WebURL, rev.Number),
		}, content)
		if err != nil {
			return result, err
		}
		if err := WriteFile(r.FS, snapshot.Path(), data); err != nil {
			return result, &site.PageWriteError{Path: snapshot.Path(), Err: err}
		}
		result.Snapshots = append(result.Snapshots, snapshot.Path())
	}

	history := site.HistoryLocation(loc)
	data, err := renderHistory(e, loc, history, revisions)
	if err != nil {
		return result, err
	}
	if err := WriteFile(r.FS, history.Path(), data); err != nil {
		return result, &site.PageWriteError{Path: history.Path(), Err: err}
	}
	result.History = history.Path()

	r.Logger.Debug("exported revisions", "page", loc.Path(), "revisions", len(revisions))
	return result, nil
}

func revisionURL(webURL string, n int) string {
	if webURL == "" {
		return ""
	}
	return webURL + "?revision=" + strconv.Itoa(n)
}

var historyTemplate = template.Must(template.New("history").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>History of {{.Title}}</title>
</head>
<body>
<h1>History of <a href="{{.Live}}">{{.Title}}</a></h1>
<ol>
{{- range .Revisions}}
<li value="{{.Number}}"><a href="{{.Href}}">Revision {{.Number}}</a>{{if .Current}} (current){{end}}: {{.Title}}{{if .When}} <time>{{.When}}</time>{{end}}</li>
{{- end}}
</ol>
</body>
</html>
`))

type historyRow struct {
	Number  int
	Title   string
	Href    string
	When    string
	Current bool
}

// renderHistory lists revisions oldest to newest; each links to its snapshot, or to the live page
// for the current one.
func renderHistory(e site.Entry, live, history site.Location, revisions []site.Revision) ([]byte, error) {
	livePath := site.RelativePath(history.Dir, live.Path())
	rows := make([]historyRow, 0, len(revisions))
	for _, rev := range revisions {
		row := historyRow{
			Number: rev.Number,
			Title:  rev.Title,
			Href:   site.SnapshotLocation(live, rev.Number).File,
		}
		if !rev.Timestamp.IsZero() {
			row.When = rev.Timestamp.UTC().Format(time.RFC3339)
		}
		if rev.Number == e.Revision {
			row.Href = livePath
			row.Current = true
		}
		rows = append(rows, row)
	}

	var b bytes.Buffer
	err := historyTemplate.Execute(&b, map[string]any{
		"Title":     e.Title,
		"Live":      livePath,
		"Revisions": rows,
	})
	if err != nil {
		return nil, fmt.Errorf("localdump: couldn't render history of %s: %w", live.Path(), err)
	}
	return b.Bytes(), nil
}
