package domain

import (
	"time"
)

// Placeholder stands in for an absent value in rendered text.
const Placeholder = "—"

type Path struct {
	ID           string `json:"id" validate:"required"`
	Name         string `json:"name" validate:"required"`
	Color        string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Active       bool   `json:"is_active"`
	WeeklyTarget *int   `json:"weekly_target,omitempty" validate:"omitempty,gte=0"`
}

// DefaultWeeklyTarget applies to paths created without an explicit target.
const DefaultWeeklyTarget = 1

// EffectiveWeeklyTarget returns the path's own target, or DefaultWeeklyTarget when unset.
func (p Path) EffectiveWeeklyTarget() int {
	if p.WeeklyTarget == nil {
		return DefaultWeeklyTarget
	}
	return *p.WeeklyTarget
}

type Container struct {
	ID          string `json:"id" validate:"required"`
	PathID      string `json:"path_id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
}

type EntryPoint struct {
	ID          string `json:"id" validate:"required"`
	PathID      string `json:"path_id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
}

type Limit struct {
	ID      string     `json:"id" validate:"required"`
	Scope   LimitScope `json:"path_id"`
	Name    string     `json:"name" validate:"required"`
	Formula string     `json:"formula,omitempty"`
}

type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeAborted   Outcome = "aborted"
	OutcomeSkipped   Outcome = "skipped"
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeCompleted, OutcomeAborted, OutcomeSkipped:
		return true
	}
	return false
}

// Log records one session against a prompt. Logs are never edited, only appended or deleted.
type Log struct {
	ID          string     `json:"id" validate:"required"`
	PromptID    string     `json:"prompt_id" validate:"required"`
	PathID      string     `json:"path_id"`
	StartedAt   time.Time  `json:"started_at" validate:"required"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	DurationMin *int       `json:"duration_min,omitempty" validate:"omitempty,gte=0"`
	Outcome     Outcome    `json:"outcome" validate:"oneof=completed aborted skipped"`
	ExportURI   string     `json:"export_uri,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

// ConstraintSnapshot captures the gates that were in force when a prompt was generated.
type ConstraintSnapshot struct {
	MaxPathsPerDay         int      `json:"max_paths_per_day"`
	PathsUsedToday         []string `json:"paths_used_today"`
	WeeklyCoverageRequired []string `json:"weekly_coverage_required"`
}

type Prompt struct {
	ID           string             `json:"id" validate:"required"`
	CreatedAt    time.Time          `json:"created_at"`
	Seed         string             `json:"seed"`
	PathID       string             `json:"path_id" validate:"required"`
	ContainerID  string             `json:"container_id" validate:"required"`
	EntryPointID string             `json:"entry_point_id,omitempty"`
	LimitIDs     []string           `json:"limit_ids"`
	Text         string             `json:"text"`
	Constraints  ConstraintSnapshot `json:"constraints_applied"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}
