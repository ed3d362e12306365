package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kexinhan12/creativeBucketDice/internal/domain"
	"github.com/kexinhan12/creativeBucketDice/internal/events"
	"github.com/kexinhan12/creativeBucketDice/internal/repo"
	"github.com/kexinhan12/creativeBucketDice/internal/selector"
)

// Generate rolls a prompt for now. With commit false nothing is written, so the
// result is a preview; blocks are journaled only when committing.
func (e Engine) Generate(ctx context.Context, now time.Time, commit bool) (selector.Outcome, error) {
	if now.IsZero() {
		now = e.now()
	}
	st, err := e.LoadState(ctx)
	if err != nil {
		return selector.Outcome{}, err
	}
	out, err := selector.Generate(st, now, selector.WithIDs(e.newID))
	if err != nil {
		return out, fmt.Errorf("generate: %w", err)
	}
	if !commit {
		return out, nil
	}
	if out.IsBlocked() {
		b := out.Blocked
		e.log().Info("prompt blocked", zap.String("kind", string(b.Kind)), zap.Strings("paths_used_today", b.PathsUsedToday))
		err = e.inTx(ctx, func(tx *sql.Tx) error {
			return e.record(ctx, tx, events.PromptBlocked, "prompt", "", events.EventPayload{"reason": b})
		})
		return out, err
	}
	p := *out.Prompt
	err = e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertPrompt(ctx, tx, p); err != nil {
			return fmt.Errorf("insert prompt: %w", err)
		}
		return e.record(ctx, tx, events.PromptGenerated, "prompt", p.ID, events.EventPayload{
			"path_id":      p.PathID,
			"container_id": p.ContainerID,
			"seed":         p.Seed,
		})
	})
	if err != nil {
		return out, err
	}
	e.log().Info("prompt generated",
		zap.String("prompt_id", p.ID),
		zap.String("path_id", p.PathID),
		zap.Int("limits", len(p.LimitIDs)),
		zap.String("seed", p.Seed))
	return out, nil
}

// LastPrompt returns the most recently stored prompt, or repo.ErrNotFound.
func (e Engine) LastPrompt(ctx context.Context) (domain.Prompt, error) {
	prompts, err := e.Repo.ListPrompts(ctx, 1)
	if err != nil {
		return domain.Prompt{}, err
	}
	if len(prompts) == 0 {
		return domain.Prompt{}, repo.ErrNotFound
	}
	return prompts[0], nil
}

func (e Engine) ListPrompts(ctx context.Context, limit int) ([]domain.Prompt, error) {
	return e.Repo.ListPrompts(ctx, limit)
}

// IsNotFound reports whether err means a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, repo.ErrNotFound)
}
