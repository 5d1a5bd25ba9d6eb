/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
)

var listSitesUsage = strings.TrimSpace(`
If you want to find out what sites your domain has, use this command.  Consumer sites can't be
listed; pass them by name to sync instead.
`)

var listSitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "Print list of sites",
	Long:  listSitesUsage,
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		api, err := newAPI()
		if err != nil {
			return err
		}

		slog.Info("listing sites", "domain", Domain)
		remoteSites, err := api.ListAllSites(ctx)
		if err != nil {
			return fmt.Errorf("list sites: couldn't list sites: %w", err)
		}
		slog.Info("listed sites", "domain", Domain, "count", len(remoteSites))

		names := maps.Keys(remoteSites)
		sort.Strings(names)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "sites:\n")
		for _, name := range names {
			fmt.Fprintf(out, "  - %s: %s\n", name, remoteSites[name].Title)
		}

		return nil
	},
}

func init() {
	listCmd.AddCommand(listSitesCmd)
}
