package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/landmarks/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type rootFlags struct {
	config string
	dotenv string
}

func (f *rootFlags) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.Context(), config.Options{Path: f.config, DotEnv: f.dotenv})
	if err != nil {
		return config.Config{}, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "landmarkd",
		Short:         "Nearby landmark aggregation service",
		Long:          "landmarkd answers nearby-landmark lookups from the MediaWiki geosearch API, classified and cached for an hour.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&flags.config, "config", "", "path to config file (default $XDG_CONFIG_HOME/landmarks/config.yaml)")
	root.PersistentFlags().StringVar(&flags.dotenv, "env-file", "", "path to .env file (default ./.env)")

	root.AddCommand(
		newServeCmd(flags),
		newLookupCmd(flags),
		newCacheCmd(flags),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "landmarkd %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
