/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
	"gopkg.in/dnaeon/go-vcr.v3/cassette"
	"gopkg.in/dnaeon/go-vcr.v3/recorder"

	"github.com/toothbrush/site-mirror/internal/termfmt"
	"github.com/toothbrush/site-mirror/localdump"
	"github.com/toothbrush/site-mirror/sites"
)

// allSites stands for every site of the domain.
const allSites = "ALL"

var syncUsage = strings.TrimSpace(`
Export sites into the local store, or import local trees back into sites.  Name the sites with
--sites or as arguments; ALL means every site of --domain.  Each site lives in its own directory
below the store.

Exits with status 2 if any site failed outright.  Pages that were skipped are listed in the summary
but don't count as failures.
`)

var syncCmd = &cobra.Command{
	Use:   "sync [site...]",
	Short: "Export sites to local files, or import them back",
	Long:  syncUsage,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, args)
	},
}

var (
	Mode                 string
	SiteNames            []string
	WithVCR              bool
	Revisions            bool
	Markdown             bool
	Prune                bool
	DatedOutput          bool
	SkipChildrenOfFailed bool
	Workers              int
	PageSize             int
)

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringVar(&Mode, "mode", "export", "export (remote to local) or import (local to remote)")
	syncCmd.Flags().StringSliceVar(&SiteNames, "sites", []string{}, "sites to synchronize, or ALL")
	syncCmd.Flags().BoolVar(&WithVCR, "with-vcr", false, "use go-vcr to cache responses (export only)")
	syncCmd.Flags().BoolVar(&Revisions, "revisions", false, "export every page's revision history")
	syncCmd.Flags().BoolVar(&Markdown, "markdown", false, "write a Markdown rendition next to every exported page")
	syncCmd.Flags().BoolVar(&Prune, "prune", false, "delete local pages that no longer exist remotely")
	syncCmd.Flags().BoolVar(&DatedOutput, "dated-output", false, "export below a directory named after today's date")
	syncCmd.Flags().BoolVar(&SkipChildrenOfFailed, "skip-children-of-failed", false, "leave out the subtree of a page that couldn't be written")
	syncCmd.Flags().IntVar(&Workers, "workers", 4, "number of sites to synchronize in parallel")
	syncCmd.Flags().IntVar(&PageSize, "page-size", localdump.DefaultPageSize, "entries to request per feed page")
}

func runSync(cmd *cobra.Command, args []string) error {
	opts := syncOptions{
		Mode:                 Mode,
		Revisions:            Revisions,
		Markdown:             Markdown,
		Prune:                Prune,
		SkipChildrenOfFailed: SkipChildrenOfFailed,
		PageSize:             PageSize,
	}
	if opts.Mode != "export" && opts.Mode != "import" {
		return fmt.Errorf("sync: unknown mode '%s', expected export or import", opts.Mode)
	}
	if WithVCR && opts.Mode == "import" {
		return fmt.Errorf("sync: --with-vcr would replay writes, it only works with --mode export")
	}

	if LocalStore == "" {
		return fmt.Errorf("sync: no location set for the local store.  Use --store or set it in your config file")
	}
	storePath, err := homedir.Expand(LocalStore)
	if err != nil {
		return fmt.Errorf("sync: couldn't expand homedir: %w", err)
	}
	if _, err := os.Stat(storePath); err != nil {
		return fmt.Errorf("sync: couldn't stat store %s: %w", storePath, err)
	}
	if DatedOutput && opts.Mode == "export" {
		storePath = filepath.Join(storePath, time.Now().Format(time.DateOnly))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	api, err := newAPI()
	if err != nil {
		return err
	}
	if WithVCR {
		r, err := vcrRecorder()
		if err != nil {
			return err
		}
		defer r.Stop() // Make sure recorder is stopped once done with it
		api.Client = r.GetDefaultClient()
	}

	names, err := siteNames(ctx, api, append(append([]string{}, SiteNames...), args...))
	if err != nil {
		return err
	}

	run, err := newRunner(api, osfs.New(storePath), slog.Default(), opts)
	if err != nil {
		return err
	}

	slog.Info("starting sync", "mode", opts.Mode, "sites", len(names), "store", storePath)
	results := syncSites(ctx, names, Workers, cmd.ErrOrStderr(), run)

	termfmt.Auto(cmd.OutOrStdout())
	printSummary(cmd.OutOrStdout(), opts.Mode, names, results)

	return failedSites(names, results)
}

// siteNames expands ALL and drops duplicates, keeping the order the sites were named in.
func siteNames(ctx context.Context, api *sites.API, requested []string) ([]string, error) {
	var names []string
	seen := map[string]bool{}
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	for _, name := range requested {
		if name != allSites {
			add(name)
			continue
		}
		listed, err := api.ListAllSites(ctx)
		if err != nil {
			return nil, fmt.Errorf("sync: couldn't list sites: %w", err)
		}
		all := maps.Keys(listed)
		sort.Strings(all)
		for _, n := range all {
			add(n)
		}
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("sync: no sites given.  Use --sites, arguments, or set sites in your config file")
	}
	return names, nil
}

func vcrRecorder() (*recorder.Recorder, error) {
	opts := &recorder.Options{
		CassetteName:       "fixtures/site-mirror",
		Mode:               recorder.ModeReplayWithNewEpisodes,
		SkipRequestLatency: true,
		RealTransport:      http.DefaultTransport,
	}
	r, err := recorder.NewWithOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("sync: couldn't set up go-vcr recording: %w", err)
	}

	// Add a hook which removes Authorization headers from all requests
	hook := func(i *cassette.Interaction) error {
		delete(i.Request.Headers, "Authorization")
		return nil
	}
	r.AddHook(hook, recorder.AfterCaptureHook)
	r.SetReplayableInteractions(true)
	return r, nil
}
