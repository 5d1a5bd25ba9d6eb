package main

import (
	"fmt"
	"io"

	"github.com/toothbrush/site-mirror/internal/termfmt"
)

// printSummary writes one block per site: totals, then every skipped node with its reason.
func printSummary(w io.Writer, mode string, names []string, results []siteResult) {
	fmt.Fprintln(w)
	for i, r := range results {
		fmt.Fprintf(w, "%s: ", termfmt.Bold().V(names[i]))
		if r.Err != nil {
			fmt.Fprintf(w, "%s\n", termfmt.Fg(termfmt.Red).V("failed: "+r.Err.Error()))
			continue
		}

		rep := r.Report
		if mode == "export" {
			fmt.Fprintf(w, "%d pages, %d revisions", rep.PagesExported, rep.RevisionsExported)
		} else {
			fmt.Fprintf(w, "%d created, %d updated, %d unchanged", rep.PagesImported, rep.PagesUpdated, rep.PagesUnchanged)
		}
		if rep.Warnings > 0 {
			fmt.Fprintf(w, ", %d warnings", termfmt.Fg(termfmt.Yellow).V(rep.Warnings))
		}
		if len(rep.Skipped) > 0 {
			fmt.Fprintf(w, ", %d skipped", termfmt.Fg(termfmt.Yellow).V(len(rep.Skipped)))
		}
		fmt.Fprintln(w)

		for _, skip := range rep.Skipped {
			fmt.Fprintf(w, "  - %s: %s\n", skip.Path, termfmt.Fg(termfmt.DarkGrey).V(skip.Reason))
		}
	}
}
