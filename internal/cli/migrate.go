package cli

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"dsa-quiz-service/internal/config"
	"dsa-quiz-service/internal/logger"
	pgmigrations "dsa-quiz-service/internal/infra/postgres/migrations"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var rollback bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(*configPath)
			if err != nil {
				return err
			}
			logger.Init(cfg.Log.Level, cfg.Log.Format)
			if rollback {
				return rollbackMigrations(cmd.Context(), cfg)
			}
			return runMigrationsWithConfig(cmd.Context(), cfg)
		},
	}
	cmd.Flags().BoolVar(&rollback, "rollback", false, "roll back the last migration group")
	return cmd
}

var errNoPostgres = errors.New("postgres url not configured")

func newMigrator(cfg config.Config) (*migrate.Migrator, *bun.DB, error) {
	if cfg.Postgres.URL == "" {
		return nil, nil, errNoPostgres
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return migrate.NewMigrator(db, pgmigrations.Migrations), db, nil
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config) error {
	migrator, db, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrator.Init(ctx); err != nil {
		return err
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		slog.Info("no new migrations")
		return nil
	}
	slog.Info("migrations applied", "group", group.String())
	return nil
}

func rollbackMigrations(ctx context.Context, cfg config.Config) error {
	migrator, db, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrator.Init(ctx); err != nil {
		return err
	}
	group, err := migrator.Rollback(ctx)
	if err != nil {
		return err
	}
	slog.Info("migrations rolled back", "group", group.String())
	return nil
}
