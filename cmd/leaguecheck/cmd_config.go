package main

import (
	"errors"
	"fmt"

	"leaguecheck/internal/config"

	"github.com/spf13/cobra"
)

const defaultConfigFile = "leaguecheck.yaml"

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(newConfigInitCmd(a))
	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config file with the default settings",
		Long: `Writes the default configuration as YAML to path, or to the --config path,
or to ./leaguecheck.yaml. An existing file is kept unless --force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				path = defaultConfigFile
			}

			if err := config.DefaultConfig().Save(path, force); err != nil {
				if errors.Is(err, config.ErrConfigExists) {
					return &ExitError{Code: 1, Message: err.Error() + " (use --force to replace it)"}
				}
				return &ExitError{Code: 1, Message: err.Error()}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing file")
	return cmd
}
