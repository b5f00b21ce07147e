package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/retailops-backend/pkg/config"
	"github.com/angelmondragon/retailops-backend/pkg/db"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
	"github.com/angelmondragon/retailops-backend/pkg/migrate"
)

func newMigrateCmd(d deps) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, inspect and author goose schema migrations",
		Long: `Schema commands run the migrations compiled into opsctl unless --dir
points at a directory on disk. create and validate never touch the database.`,
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "read migrations from this directory instead of the embedded set")
	source := func() migrate.Source { return migrate.Source{Dir: dir} }

	for _, c := range []struct {
		command migrate.Command
		short   string
	}{
		{migrate.CommandUp, "Apply all pending migrations"},
		{migrate.CommandDown, "Roll back the most recent migration"},
		{migrate.CommandRedo, "Roll back and re-apply the most recent migration"},
		{migrate.CommandStatus, "Print applied and pending migrations"},
	} {
		cmd.AddCommand(&cobra.Command{
			Use:   string(c.command),
			Short: c.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return d.withSQL(cmd.Context(), func(ctx context.Context, sqlDB *sql.DB) error {
					return migrate.Run(ctx, sqlDB, source(), c.command)
				})
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "to <version>",
		Short:   "Migrate up or down to an exact version",
		Example: "  opsctl migrate to 20261001090300",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("version %q is not a YYYYMMDDHHMMSS number", args[0])
			}
			return d.withSQL(cmd.Context(), func(ctx context.Context, sqlDB *sql.DB) error {
				return migrate.To(ctx, sqlDB, source(), target)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return d.withSQL(cmd.Context(), func(ctx context.Context, sqlDB *sql.DB) error {
				v, err := migrate.Version(ctx, sqlDB)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), v)
				return err
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Write an empty timestamped migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := dir
			if target == "" {
				target = migrate.DefaultDir
			}
			path, err := migrate.NewFile(target, args[0], d.now())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check migration names, versions and goose markers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if dir == "" {
				err = migrate.Validate(migrate.Embedded())
			} else {
				err = migrate.ValidateDir(dir)
			}
			if err != nil {
				return fmt.Errorf("migrations invalid: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "migrations in %s are valid\n", source())
			return err
		},
	})
	return cmd
}

// withSQL loads config, opens the database and hands fn the raw handle goose
// needs.
func (d deps) withSQL(ctx context.Context, fn func(context.Context, *sql.DB) error) error {
	cfg, err := d.loadConfig()
	if err != nil {
		return err
	}
	logg := commandLogger(cfg)
	sqlDB, closeFn, err := d.sqlDB(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(logg.WithField(ctx, "command", "migrate"), sqlDB)
}

func openSQL(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*sql.DB, func(), error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		_ = dbClient.Close()
		return nil, nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}
	return sqlDB, func() { _ = dbClient.Close() }, nil
}
