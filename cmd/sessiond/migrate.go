// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sessiond Contributors

package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sessiond/sessiond/internal/config"
)

// NewMigrateCmd creates the migrate command and its subcommands.
func NewMigrateCmd(configFile *string, deps *MigrateDeps) *cobra.Command {
	newMigrator := defaultNewMigrator
	if deps != nil && deps.NewMigrator != nil {
		newMigrator = deps.NewMigrator
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Apply, roll back or inspect schema migrations.

The database URL comes from --database-url, the DATABASE_URL environment
variable, or the config file, in that order.`,
	}
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection URL")

	open := func(cmd *cobra.Command) (Migrator, error) {
		url, err := resolveDatabaseURL(*configFile, cmd.Flags())
		if err != nil {
			return nil, err
		}
		return newMigrator(url)
	}

	cmd.AddCommand(
		newMigrateUpCmd(open),
		newMigrateDownCmd(open),
		newMigrateStatusCmd(open),
		newMigrateForceCmd(open),
	)
	return cmd
}

type openMigrator func(cmd *cobra.Command) (Migrator, error)

func newMigrateUpCmd(open openMigrator) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, open, func(m Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				return printVersion(cmd.OutOrStdout(), m)
			})
		},
	}
}

func newMigrateDownCmd(open openMigrator) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		Long:  "Roll back every applied migration. This drops all identity data and requires --yes.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return oops.Code("CONFIRMATION_REQUIRED").Errorf("migrate down drops all data; rerun with --yes")
			}
			return withMigrator(cmd, open, func(m Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				return printVersion(cmd.OutOrStdout(), m)
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the rollback")
	return cmd
}

func newMigrateStatusCmd(open openMigrator) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, open, func(m Migrator) error {
				st, err := m.Status()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "version: %d\n", st.Version)
				if st.Dirty {
					fmt.Fprintln(out, "dirty: true (fix the schema, then run migrate force)")
				}
				for _, ms := range st.Migrations {
					state := "pending"
					if ms.Applied {
						state = "applied"
					}
					fmt.Fprintf(out, "%06d %-40s %s\n", ms.Version, ms.Name, state)
				}
				return nil
			})
		},
	}
}

func newMigrateForceCmd(open openMigrator) *cobra.Command {
	return &cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Long:  "Mark VERSION as applied and clear the dirty flag. Use after repairing a failed migration by hand.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return oops.Code("INVALID_VERSION").With("version", args[0]).Errorf("version must be an integer")
			}
			return withMigrator(cmd, open, func(m Migrator) error {
				if err := m.Force(v); err != nil {
					return err
				}
				return printVersion(cmd.OutOrStdout(), m)
			})
		},
	}
}

func withMigrator(cmd *cobra.Command, open openMigrator, fn func(Migrator) error) (err error) {
	m, err := open(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(m)
}

func printVersion(w io.Writer, m Migrator) error {
	st, err := m.Status()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "schema version %d (%d pending)\n", st.Version, len(st.Pending()))
	return nil
}

// resolveDatabaseURL loads only the database URL, so migrate works without
// the rest of the serve configuration.
func resolveDatabaseURL(configFile string, flags *pflag.FlagSet) (string, error) {
	fs := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	if f := flags.Lookup("database-url"); f != nil && f.Changed {
		if err := fs.Set("database-url", f.Value.String()); err != nil {
			return "", oops.Code("CONFIG_INVALID").Wrap(err)
		}
	}

	path, err := resolveConfigFile(configFile)
	if err != nil {
		return "", err
	}
	cfg, err := config.Load(path, fs)
	if err != nil {
		return "", err
	}
	if cfg.DatabaseURL == "" {
		return "", oops.Code("CONFIG_INVALID").Errorf("database_url is required (--database-url or DATABASE_URL)")
	}
	return cfg.DatabaseURL, nil
}
