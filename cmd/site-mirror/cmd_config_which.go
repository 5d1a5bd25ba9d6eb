/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var whichCmd = &cobra.Command{
	Use:   "which",
	Short: "Tell me the resolved config path",
	Long: `
Output the filename that's being used to store your config.
`,
	Args: cobra.ExactArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Config path: %s\n", Config)
		if _, err := os.Stat(Config); errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(out, "  (does not exist; only flags are in effect)\n")
		}
	},
}

func init() {
	configCmd.AddCommand(whichCmd)
}
