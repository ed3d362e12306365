package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kexinhan12/creativeBucketDice/internal/calendar"
	"github.com/kexinhan12/creativeBucketDice/internal/domain"
	"github.com/kexinhan12/creativeBucketDice/internal/events"
	"github.com/kexinhan12/creativeBucketDice/internal/repo"
)

// PathInput describes a new path. WeeklyTarget nil means the default target.
type PathInput struct {
	Name         string
	Color        string
	WeeklyTarget *int
}

func (e Engine) ensureUniqueName(ctx context.Context, name, excludeID string) error {
	paths, err := e.Repo.ListPaths(ctx)
	if err != nil {
		return err
	}
	key := domain.NormalizeName(name)
	for _, p := range paths {
		if p.ID != excludeID && domain.NormalizeName(p.Name) == key {
			return ValidationError{Field: "name", Message: "path name must be unique"}
		}
	}
	return nil
}

func validateTarget(target *int) error {
	if target != nil && *target < 0 {
		return ValidationError{Field: "weekly_target", Message: "must be zero or positive"}
	}
	return nil
}

func validateColor(color *string) error {
	if color != nil && domain.ValidateColor(*color) != nil {
		return ValidationError{Field: "color", Message: fmt.Sprintf("%q is not a hex color like #0ea5e9", *color)}
	}
	return nil
}

func (e Engine) AddPath(ctx context.Context, in PathInput) (domain.Path, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Path{}, ValidationError{Field: "name", Message: "required"}
	}
	if err := validateColor(&in.Color); err != nil {
		return domain.Path{}, err
	}
	if err := validateTarget(in.WeeklyTarget); err != nil {
		return domain.Path{}, err
	}
	if err := e.ensureUniqueName(ctx, name, ""); err != nil {
		return domain.Path{}, err
	}
	target := domain.DefaultWeeklyTarget
	if in.WeeklyTarget != nil {
		target = *in.WeeklyTarget
	}
	p := domain.Path{
		ID:           e.newID(),
		Name:         name,
		Color:        in.Color,
		Active:       true,
		WeeklyTarget: &target,
	}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertPath(ctx, tx, p, e.now()); err != nil {
			return fmt.Errorf("insert path: %w", err)
		}
		return e.record(ctx, tx, events.PathCreated, "path", p.ID, events.EventPayload{"name": p.Name})
	})
	if err != nil {
		return domain.Path{}, err
	}
	e.log().Info("path created", zap.String("path_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

func (e Engine) UpdatePath(ctx context.Context, id string, u repo.PathUpdate) (domain.Path, error) {
	if u.Name != nil {
		trimmed := strings.TrimSpace(*u.Name)
		if trimmed == "" {
			return domain.Path{}, ValidationError{Field: "name", Message: "required"}
		}
		if err := e.ensureUniqueName(ctx, trimmed, id); err != nil {
			return domain.Path{}, err
		}
		u.Name = &trimmed
	}
	if err := validateTarget(u.WeeklyTarget); err != nil {
		return domain.Path{}, err
	}
	if err := validateColor(u.Color); err != nil {
		return domain.Path{}, err
	}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.UpdatePath(ctx, tx, id, u); err != nil {
			return err
		}
		return e.record(ctx, tx, events.PathUpdated, "path", id, nil)
	})
	if err != nil {
		return domain.Path{}, err
	}
	return e.Repo.GetPath(ctx, id)
}

func (e Engine) ArchivePath(ctx context.Context, id string) error {
	inactive := false
	return e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.UpdatePath(ctx, tx, id, repo.PathUpdate{Active: &inactive}); err != nil {
			return err
		}
		return e.record(ctx, tx, events.PathArchived, "path", id, nil)
	})
}

// RemovePath deletes a path and everything it owns. A path with logs is archived
// instead, and ErrArchivedInstead reports that.
func (e Engine) RemovePath(ctx context.Context, id string) error {
	archived := false
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		n, err := e.Repo.CountLogsForPath(ctx, tx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			inactive := false
			if err := e.Repo.UpdatePath(ctx, tx, id, repo.PathUpdate{Active: &inactive}); err != nil {
				return err
			}
			archived = true
			return e.record(ctx, tx, events.PathArchived, "path", id, events.EventPayload{"logs": n})
		}
		if err := e.Repo.DeletePath(ctx, tx, id); err != nil {
			return err
		}
		return e.record(ctx, tx, events.PathRemoved, "path", id, nil)
	})
	if err != nil {
		return err
	}
	if archived {
		return ErrArchivedInstead
	}
	return nil
}

// activePath rejects children for missing or archived paths.
func (e Engine) activePath(ctx context.Context, pathID string) error {
	p, err := e.Repo.GetPath(ctx, pathID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && !p.Active) {
		return ValidationError{Field: "path_id", Message: "path inactive or missing"}
	}
	return err
}

// ChildInput names a container, entry point or limit. Detail is the description, or
// the formula for limits.
type ChildInput struct {
	Name   string
	Detail string
}

func (in ChildInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ValidationError{Field: "name", Message: "required"}
	}
	return nil
}

func (e Engine) AddContainer(ctx context.Context, pathID string, in ChildInput) (domain.Container, error) {
	if err := in.validate(); err != nil {
		return domain.Container{}, err
	}
	if err := e.activePath(ctx, pathID); err != nil {
		return domain.Container{}, err
	}
	c := domain.Container{ID: e.newID(), PathID: pathID, Name: strings.TrimSpace(in.Name), Description: in.Detail}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertContainer(ctx, tx, c); err != nil {
			return err
		}
		return e.record(ctx, tx, events.ChildAdded, "container", c.ID, events.EventPayload{"path_id": pathID})
	})
	return c, err
}

func (e Engine) AddEntryPoint(ctx context.Context, pathID string, in ChildInput) (domain.EntryPoint, error) {
	if err := in.validate(); err != nil {
		return domain.EntryPoint{}, err
	}
	if err := e.activePath(ctx, pathID); err != nil {
		return domain.EntryPoint{}, err
	}
	ep := domain.EntryPoint{ID: e.newID(), PathID: pathID, Name: strings.TrimSpace(in.Name), Description: in.Detail}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertEntryPoint(ctx, tx, ep); err != nil {
			return err
		}
		return e.record(ctx, tx, events.ChildAdded, "entry_point", ep.ID, events.EventPayload{"path_id": pathID})
	})
	return ep, err
}

func (e Engine) AddLimit(ctx context.Context, scope domain.LimitScope, in ChildInput) (domain.Limit, error) {
	if err := in.validate(); err != nil {
		return domain.Limit{}, err
	}
	if !scope.IsGlobal() {
		if err := e.activePath(ctx, scope.PathID()); err != nil {
			return domain.Limit{}, err
		}
	}
	l := domain.Limit{ID: e.newID(), Scope: scope, Name: strings.TrimSpace(in.Name), Formula: in.Detail}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertLimit(ctx, tx, l); err != nil {
			return err
		}
		return e.record(ctx, tx, events.ChildAdded, "limit", l.ID, events.EventPayload{"scope": scope.String()})
	})
	return l, err
}

func (e Engine) RemoveContainer(ctx context.Context, id string) error {
	return e.removeChild(ctx, "container", id, e.Repo.DeleteContainer)
}

func (e Engine) RemoveEntryPoint(ctx context.Context, id string) error {
	return e.removeChild(ctx, "entry_point", id, e.Repo.DeleteEntryPoint)
}

func (e Engine) RemoveLimit(ctx context.Context, id string) error {
	return e.removeChild(ctx, "limit", id, e.Repo.DeleteLimit)
}

func (e Engine) removeChild(ctx context.Context, kind, id string, del func(context.Context, *sql.Tx, string) error) error {
	return e.inTx(ctx, func(tx *sql.Tx) error {
		if err := del(ctx, tx, id); err != nil {
			return err
		}
		return e.record(ctx, tx, events.ChildRemoved, kind, id, nil)
	})
}

// SettingsPatch changes only the non-nil fields.
type SettingsPatch struct {
	Seed                  *string
	DailyMaxPaths         *int
	RequireWeeklyCoverage *bool
	WeekStartsOn          *int
	LimitsMin             *int
	LimitsMax             *int
}

func (e Engine) SetSettings(ctx context.Context, patch SettingsPatch) (domain.Settings, error) {
	s, err := e.Settings(ctx)
	if err != nil {
		return s, err
	}
	if patch.Seed != nil {
		s.Seed = strings.TrimSpace(*patch.Seed)
	}
	if patch.DailyMaxPaths != nil {
		s.DailyMaxPaths = *patch.DailyMaxPaths
	}
	if patch.RequireWeeklyCoverage != nil {
		s.RequireWeeklyCoverage = *patch.RequireWeeklyCoverage
	}
	if patch.WeekStartsOn != nil {
		s.WeekStartsOn = time.Weekday(*patch.WeekStartsOn)
	}
	if patch.LimitsMin != nil {
		s.LimitsPerPrompt.Min = *patch.LimitsMin
	}
	if patch.LimitsMax != nil {
		s.LimitsPerPrompt.Max = *patch.LimitsMax
	}
	if err := s.Validate(); err != nil {
		return s, ValidationError{Field: "settings", Message: err.Error()}
	}
	err = e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.UpsertSettings(ctx, tx, s, calendar.FormatISO(e.now())); err != nil {
			return err
		}
		return e.record(ctx, tx, events.SettingsUpdated, "settings", "", events.EventPayload{"settings": s})
	})
	return s, err
}
