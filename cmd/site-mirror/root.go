/*
Copyright © 2024 paul <paul@denknerd.org>
*/

package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"reflect"
	"strconv"
	"strings"

	"github.com/fatih/structs"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/toothbrush/site-mirror/sites"
)

var (
	// Store the result of binding cobra flags
	Config string
	Debug  bool

	// Command to run to retrieve the service's access token
	AuthTokenCmd []string

	Host       string
	Domain     string
	LocalStore string

	ParsedConfig YamlConfig
)

// Build the cobra command that handles our command line tool.
var rootCmd = &cobra.Command{
	Use:   "site-mirror",
	Short: "Mirror hosted sites to a local directory tree, and back",
	Long: `
Have you ever wanted to keep a hosted site in version control, grep through it, or move it to
another site?  This tool exports every page of a site, with its revision history, to a tree of
local HTML files, and can import such a tree into a (possibly different) site.
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(cmd); err != nil {
			return fmt.Errorf("site-mirror: failed to initialise config: %w", err)
		}
		setupLogging(cmd.ErrOrStderr())
		return nil
	},
}

func init() {
	// Define cobra flags, the default value has the lowest (least significant) precedence
	rootCmd.PersistentFlags().StringVar(&Config, "config", "", "config file location (default: ~/.config/site-mirror.yaml, respects SITE_MIRROR_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "display debug output")
	rootCmd.PersistentFlags().StringSliceVar(&AuthTokenCmd, "auth-token-cmd", []string{}, "shell command to retrieve an access token")
	rootCmd.PersistentFlags().StringVar(&LocalStore, "store", "", "location to keep local copies of sites")
	rootCmd.PersistentFlags().StringVar(&Host, "host", "sites.google.com", "host serving the sites")
	rootCmd.PersistentFlags().StringVar(&Domain, "domain", "", "hosted domain the sites belong to; empty for consumer sites")
}

func initializeConfig(cmd *cobra.Command) error {
	if Config == "" {
		// Did the user provide an ENV?
		if envConfig := os.Getenv("SITE_MIRROR_CONFIG"); envConfig != "" {
			Config = envConfig
		} else {
			// As fallback, search for config in home XDG-ish directory
			Config = "~/.config/site-mirror.yaml"
		}
	}
	config, err := homedir.Expand(Config)
	if err != nil {
		return fmt.Errorf("site-mirror: unable to expand homedir: %w", err)
	}
	Config = config

	yamlFile, err := os.ReadFile(Config)
	if errors.Is(err, os.ErrNotExist) {
		// flags alone are enough to get going.
		return nil
	}
	if err != nil {
		return fmt.Errorf("site-mirror: error reading config file: %w", err)
	}

	// I'd like to bark if a user sets a flag we don't recognise:
	if err := yaml.UnmarshalStrict(yamlFile, &ParsedConfig); err != nil {
		return fmt.Errorf("site-mirror: issue parsing config file: %w", err)
	}

	if err := bindFlags(cmd, ParsedConfig); err != nil {
		return fmt.Errorf("site-mirror: failed to bind flags: %w", err)
	}

	return nil
}

type YamlConfig struct {
	WithVCR              *bool `yaml:"with-vcr"`
	Revisions            *bool `yaml:"revisions"`
	Markdown             *bool `yaml:"markdown"`
	Prune                *bool `yaml:"prune"`
	DatedOutput          *bool `yaml:"dated-output"`
	SkipChildrenOfFailed *bool `yaml:"skip-children-of-failed"`

	Workers  int `yaml:"workers"`
	PageSize int `yaml:"page-size"`

	Host         string   `yaml:"host"`
	Domain       string   `yaml:"domain"`
	StorePath    string   `yaml:"store"`
	Mode         string   `yaml:"mode"`
	AuthTokenCmd []string `yaml:"auth-token-cmd"`
	Sites        []string `yaml:"sites"`
}

// Apply each config file value to its cobra flag, unless the flag was given on the command line.
func bindFlags(cmd *cobra.Command, v YamlConfig) error {
	for _, field := range structs.Fields(v) {
		key := field.Tag("yaml")
		if key == "" {
			return fmt.Errorf("site-mirror: could not retrieve struct tag 'yaml'")
		}
		if flag := cmd.Flag(key); flag == nil {
			// the flag is unknown.  that can legitimately happen if you're running e.g. `list
			// sites`, which has no `prune` flag, but your YAML file does set it.
			continue
		}
		if cmd.Flags().Changed(key) {
			continue
		}

		switch field.Kind() {
		case reflect.Ptr:
			// YamlConfig only uses pointers for bools, so that "false" can be told apart from unset.
			b, ok := field.Value().(*bool)
			if !ok {
				return fmt.Errorf("site-mirror: found unrecognised field: %+v", field)
			}
			if b != nil {
				cmd.Flags().Set(key, strconv.FormatBool(*b))
			}

		case reflect.Int:
			n, ok := field.Value().(int)
			if !ok {
				return fmt.Errorf("site-mirror: found unrecognised field: %+v", field)
			}
			if n != 0 {
				cmd.Flags().Set(key, strconv.Itoa(n))
			}

		case reflect.String:
			s, ok := field.Value().(string)
			if !ok {
				return fmt.Errorf("site-mirror: found unrecognised field: %+v", field)
			}
			if s != "" {
				cmd.Flags().Set(key, s)
			}

		case reflect.Slice:
			ss, ok := field.Value().([]string)
			if !ok {
				return fmt.Errorf("site-mirror: found unrecognised field: %+v", field)
			}
			for _, s := range ss {
				// yes, repeatedly calling Set() appends to the slice...
				cmd.Flags().Set(key, s)
			}

		default:
			return fmt.Errorf("site-mirror: found unrecognised field: %+v", field)
		}
	}

	return nil
}

// authToken runs auth-token-cmd and returns the first line it prints.  Without a command, requests
// go out unauthenticated, which is enough for public sites.
func authToken() (string, error) {
	if len(AuthTokenCmd) < 1 {
		return "", nil
	}
	out, err := exec.Command(AuthTokenCmd[0], AuthTokenCmd[1:]...).Output()
	if err != nil {
		return "", fmt.Errorf("site-mirror: couldn't execute auth-token-cmd '%v': %w", AuthTokenCmd, err)
	}
	return strings.Split(string(out), "\n")[0], nil
}

func newAPI() (*sites.API, error) {
	token, err := authToken()
	if err != nil {
		return nil, err
	}
	api, err := sites.NewAPI(Host, Domain, token)
	if err != nil {
		return nil, fmt.Errorf("site-mirror: couldn't instantiate API client: %w", err)
	}
	return api, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		var failed *sitesFailedError
		if errors.As(err, &failed) {
			return err
		}
		return fmt.Errorf("site-mirror: execution error: %w", err)
	}

	return nil
}
