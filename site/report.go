package site

// Skip records a node that was left out of a run, and why.
type Skip struct {
	Path   string
	ID     string
	Reason string
}

// Report holds per-run totals for one site.
type Report struct {
	Site string

	PagesExported     int
	RevisionsExported int

	PagesImported  int // created remotely
	PagesUpdated   int
	PagesUnchanged int

	Warnings int
	Skipped  []Skip
}

func (r *Report) Skip(p, id string, err error) {
	r.Skipped = append(r.Skipped, Skip{Path: p, ID: id, Reason: err.Error()})
}
