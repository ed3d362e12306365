package engine

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kexinhan12/creativeBucketDice/internal/domain"
	"github.com/kexinhan12/creativeBucketDice/internal/events"
	"github.com/kexinhan12/creativeBucketDice/internal/repo"
)

// LogInput records a session. PromptID may be empty for ad-hoc sessions; PathID may be
// empty when the prompt names it.
type LogInput struct {
	PromptID    string
	PathID      string
	StartedAt   time.Time
	EndedAt     *time.Time
	DurationMin *int
	Outcome     domain.Outcome
	ExportURI   string
	Notes       string
}

func (e Engine) SaveLog(ctx context.Context, in LogInput) (domain.Log, error) {
	l := domain.Log{
		ID:          e.newID(),
		PromptID:    strings.TrimSpace(in.PromptID),
		PathID:      strings.TrimSpace(in.PathID),
		StartedAt:   in.StartedAt,
		EndedAt:     in.EndedAt,
		DurationMin: in.DurationMin,
		Outcome:     in.Outcome,
		ExportURI:   strings.TrimSpace(in.ExportURI),
		Notes:       in.Notes,
	}
	if l.StartedAt.IsZero() {
		l.StartedAt = e.now()
	}
	if l.Outcome == "" {
		l.Outcome = domain.OutcomeCompleted
	}
	if !l.Outcome.Valid() {
		return domain.Log{}, ValidationError{Field: "outcome", Message: "must be completed, aborted or skipped"}
	}
	if l.PromptID != "" {
		p, err := e.Repo.GetPrompt(ctx, l.PromptID)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			if l.PathID == "" {
				return domain.Log{}, ValidationError{Field: "prompt_id", Message: "unknown prompt"}
			}
		case err != nil:
			return domain.Log{}, err
		case l.PathID == "":
			l.PathID = p.PathID
		}
	} else {
		l.PromptID = e.newID()
	}
	if l.PathID == "" {
		return domain.Log{}, ValidationError{Field: "path_id", Message: "required"}
	}
	if _, err := e.Repo.GetPath(ctx, l.PathID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Log{}, ValidationError{Field: "path_id", Message: "unknown path"}
		}
		return domain.Log{}, err
	}
	if l.EndedAt != nil {
		if l.EndedAt.Before(l.StartedAt) {
			return domain.Log{}, ValidationError{Field: "ended_at", Message: "before started_at"}
		}
		if l.DurationMin == nil {
			d := int(l.EndedAt.Sub(l.StartedAt).Round(time.Minute) / time.Minute)
			l.DurationMin = &d
		}
	}
	if l.DurationMin != nil && *l.DurationMin < 0 {
		return domain.Log{}, ValidationError{Field: "duration_min", Message: "must be zero or positive"}
	}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertLog(ctx, tx, l); err != nil {
			return err
		}
		return e.record(ctx, tx, events.LogRecorded, "log", l.ID, events.EventPayload{
			"path_id": l.PathID,
			"outcome": l.Outcome,
		})
	})
	if err != nil {
		return domain.Log{}, err
	}
	e.log().Info("log recorded", zap.String("log_id", l.ID), zap.String("path_id", l.PathID), zap.String("outcome", string(l.Outcome)))
	return l, nil
}

// DeleteLog removes a log, which reopens the daily and weekly gates it counted toward.
func (e Engine) DeleteLog(ctx context.Context, id string) error {
	return e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.DeleteLog(ctx, tx, id); err != nil {
			return err
		}
		return e.record(ctx, tx, events.LogDeleted, "log", id, nil)
	})
}

func (e Engine) ListLogs(ctx context.Context, f repo.LogFilters) ([]domain.Log, error) {
	if f.Outcome != "" && !domain.Outcome(f.Outcome).Valid() {
		return nil, ValidationError{Field: "outcome", Message: "must be completed, aborted or skipped"}
	}
	return e.Repo.ListLogs(ctx, f)
}
