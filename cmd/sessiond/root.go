// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sessiond Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/sessiond/sessiond/internal/xdg"
)

// NewRootCmd creates the root command for the sessiond CLI.
func NewRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "sessiond",
		Short: "sessiond - email and password authentication with single live sessions",
		Long: `sessiond registers identities, issues signed bearer tokens and keeps exactly
one live session per account in Redis, backed by PostgreSQL.`,
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML, default $XDG_CONFIG_HOME/sessiond/config.yaml if present)")

	cmd.AddCommand(NewServeCmd(&configFile, nil))
	cmd.AddCommand(NewMigrateCmd(&configFile, nil))
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// NewVersionCmd prints build information.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("sessiond " + versionString())
		},
	}
}

// resolveConfigFile returns the --config value, or the XDG config file when
// the flag is unset. An empty result means no file.
func resolveConfigFile(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return xdg.ConfigFile()
}
