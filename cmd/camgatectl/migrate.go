package main

import (
	"fmt"
	"strconv"
	"strings"

	"camgate-go/internal/migrations"
	"github.com/spf13/cobra"
)

func newMigrateCmd(flags *globalFlags) *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL camera schema",
	}
	cmd.PersistentFlags().StringVar(&dsn, "dsn", "", "PostgreSQL connection string (default storage.postgres_dsn)")

	open := func() (*migrations.Schema, error) {
		target := strings.TrimSpace(dsn)
		if target == "" {
			cfg, err := loadConfig(flags.configPath)
			if err != nil {
				return nil, err
			}
			target = strings.TrimSpace(cfg.Storage.PostgresDSN)
		}
		if target == "" {
			return nil, fmt.Errorf("no PostgreSQL DSN: pass --dsn or set storage.postgres_dsn")
		}
		return migrations.OpenPostgres(target)
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := open()
			if err != nil {
				return err
			}
			defer schema.Close()
			v, err := schema.Up()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", v)
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := open()
			if err != nil {
				return err
			}
			defer schema.Close()
			if err := schema.Down(steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d step(s)\n", max(steps, 1))
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	version := &cobra.Command{
		Use:   "version",
		Short: "Show the applied and the latest embedded schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			latest, err := migrations.Latest()
			if err != nil {
				return err
			}
			schema, err := open()
			if err != nil {
				return err
			}
			defer schema.Close()
			v, dirty, err := schema.Version()
			if err != nil {
				return err
			}
			state := "clean"
			if dirty {
				state = "dirty"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "current version: %d (%s), latest: %d\n", v, state, latest)
			return nil
		},
	}

	force := &cobra.Command{
		Use:   "force <version>",
		Short: "Mark a version as applied and clear the dirty flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < 0 {
				return fmt.Errorf("invalid version %q", args[0])
			}
			schema, err := open()
			if err != nil {
				return err
			}
			defer schema.Close()
			if err := schema.Force(v); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "forced version %d\n", v)
			return nil
		},
	}

	cmd.AddCommand(up, down, version, force)
	return cmd
}
