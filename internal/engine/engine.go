package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kexinhan12/creativeBucketDice/internal/config"
	"github.com/kexinhan12/creativeBucketDice/internal/domain"
	"github.com/kexinhan12/creativeBucketDice/internal/events"
	"github.com/kexinhan12/creativeBucketDice/internal/repo"
	"github.com/kexinhan12/creativeBucketDice/internal/selector"
)

// Engine owns the workspace store and is the only writer of it. All generation logic
// lives in the selector package; Engine loads its inputs and persists its results.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Logger *zap.Logger
	Now    func() time.Time
	NewID  func() string
}

func New(db *sql.DB, cfg *config.Config, logger *zap.Logger) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Logger: logger,
		Now:    time.Now,
		NewID:  uuid.NewString,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

func (e Engine) log() *zap.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return zap.NewNop()
}

// ErrArchivedInstead is returned by RemovePath when the path has logs.
var ErrArchivedInstead = errors.New("path has logs; archived instead")

// ValidationError rejects user input.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e Engine) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Settings returns the stored settings, falling back to the config defaults.
func (e Engine) Settings(ctx context.Context) (domain.Settings, error) {
	s, err := e.Repo.GetSettings(ctx)
	if errors.Is(err, repo.ErrNotFound) {
		return e.Config.Settings, nil
	}
	return s, err
}

// LoadState reads everything a generation needs.
func (e Engine) LoadState(ctx context.Context) (selector.State, error) {
	var st selector.State
	var err error
	if st.Catalog, err = e.Repo.LoadCatalog(ctx); err != nil {
		return st, err
	}
	if st.Logs, err = e.Repo.ListLogs(ctx, repo.LogFilters{}); err != nil {
		return st, fmt.Errorf("list logs: %w", err)
	}
	if st.Settings, err = e.Settings(ctx); err != nil {
		return st, fmt.Errorf("load settings: %w", err)
	}
	return st, nil
}

func (e Engine) record(ctx context.Context, tx *sql.Tx, evtType, entityKind, entityID string, payload events.EventPayload) error {
	w := e.Events
	w.Now = e.now
	if err := w.Append(ctx, tx, evtType, entityKind, entityID, payload); err != nil {
		return fmt.Errorf("append %s event: %w", evtType, err)
	}
	return nil
}
