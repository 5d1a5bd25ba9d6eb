/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var configUsage = strings.TrimSpace(`
site-mirror reads its defaults from a YAML file, by default ~/.config/site-mirror.yaml or whatever
SITE_MIRROR_CONFIG or --config names.  Any key in it (host, domain, store, sites, mode, workers and
so on) sets the flag of the same name unless that flag is given on the command line.

Use these commands to see the values a sync would run with, and which file they came from.
`)

// configCmd groups the commands that inspect the YAML config file.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the site-mirror config file",
	Long:  configUsage,
}

func init() {
	rootCmd.AddCommand(configCmd)
}
