package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kexinhan12/creativeBucketDice/internal/calendar"
	"github.com/kexinhan12/creativeBucketDice/internal/config"
	"github.com/kexinhan12/creativeBucketDice/internal/db"
	"github.com/kexinhan12/creativeBucketDice/internal/engine"
	"github.com/kexinhan12/creativeBucketDice/internal/migrate"
	"github.com/kexinhan12/creativeBucketDice/internal/repo"
)

// Workspace is an opened store plus the engine bound to it. Close releases the database.
type Workspace struct {
	Engine engine.Engine
	conn   *sql.DB
}

func (w *Workspace) Close() error {
	if w == nil || w.conn == nil {
		return nil
	}
	return w.conn.Close()
}

// Open migrates the workspace database, loads cbd.yml (defaults when absent) and
// seeds a fresh store with settings and, if configured, the example catalog.
func Open(ctx context.Context, workspace string, logger *zap.Logger) (*Workspace, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	version, err := migrate.Migrate(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Debug("workspace opened", zap.String("db", db.Path(workspace)), zap.Int("schema_version", version))
	e := engine.New(conn, cfg, logger)
	if err := Bootstrap(ctx, e); err != nil {
		conn.Close()
		return nil, err
	}
	return &Workspace{Engine: e, conn: conn}, nil
}

// Bootstrap stores the configured settings on first use and seeds examples into an
// empty catalog when the config asks for them. Later runs leave stored data alone.
func Bootstrap(ctx context.Context, e engine.Engine) error {
	_, err := e.Repo.GetSettings(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.UpsertSettings(ctx, tx, e.Config.Settings, calendar.FormatISO(e.Now())); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if !e.Config.Catalog.SeedExamples {
		return nil
	}
	seeded, err := e.SeedExamples(ctx)
	if err != nil {
		return fmt.Errorf("seed examples: %w", err)
	}
	if seeded {
		e.Logger.Info("seeded example catalog")
	}
	return nil
}
