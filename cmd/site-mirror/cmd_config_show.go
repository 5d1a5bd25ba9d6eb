/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Output current config",
	Long: `
Is something not working for you?  Have a look whether your config is as you expect.
`,
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		// Note, you can only talk about persistent flags here.  Command-specific ones won't be
		// visible.
		fmt.Fprintf(out, "Dump current config state:\n\n")

		fmt.Fprintf(out, "  Config file: %s\n", Config)
		fmt.Fprintf(out, "  Debug: %v\n", Debug)
		fmt.Fprintf(out, "  Host: %s\n", Host)
		fmt.Fprintf(out, "  Domain: %s\n", Domain)
		fmt.Fprintf(out, "  LocalStore: %s\n", LocalStore)
		fmt.Fprintf(out, "  AuthTokenCmd: %v\n", AuthTokenCmd)
		fmt.Fprintln(out)

		parsed, err := yaml.Marshal(ParsedConfig)
		if err != nil {
			return fmt.Errorf("config show: couldn't render parsed config: %w", err)
		}
		fmt.Fprintf(out, "  Parsed YAML:\n%s", parsed)
		return nil
	},
}

func init() {
	configCmd.AddCommand(showCmd)
}
