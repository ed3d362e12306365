package domain

import (
	"fmt"
	"strings"
	"time"
)

// LimitRange is the inclusive [Min, Max] number of limits attached per prompt.
type LimitRange struct {
	Min int `json:"min" yaml:"min" validate:"gte=0"`
	Max int `json:"max" yaml:"max" validate:"gte=0,gtefield=Min"`
}

type Settings struct {
	Seed                  string       `json:"seed,omitempty" yaml:"seed"`
	DailyMaxPaths         int          `json:"daily_max_paths" yaml:"daily_max_paths" validate:"gte=0"`
	RequireWeeklyCoverage bool         `json:"require_weekly_coverage" yaml:"require_weekly_coverage"`
	WeekStartsOn          time.Weekday `json:"week_starts_on" yaml:"week_starts_on" validate:"oneof=0 1"`
	LimitsPerPrompt       LimitRange   `json:"limits_per_prompt" yaml:"limits_per_prompt"`
}

// DefaultSettings are used for fresh workspaces and to fill keys missing from imports.
func DefaultSettings() Settings {
	return Settings{
		DailyMaxPaths:         2,
		RequireWeeklyCoverage: true,
		WeekStartsOn:          time.Monday,
		LimitsPerPrompt:       LimitRange{Min: 2, Max: 3},
	}
}

// Validate checks the settings ranges.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

type BlockKind string

const (
	BlockNeedsData     BlockKind = "NEEDS_DATA"
	BlockNoActivePaths BlockKind = "NO_ACTIVE_PATHS"
	BlockDailyCap      BlockKind = "DAILY_CAP"
	BlockNoContainers  BlockKind = "NO_CONTAINERS"
)

// BlockedReason explains why no prompt could be generated.
type BlockedReason struct {
	Kind           BlockKind `json:"type"`
	PathsUsedToday []string  `json:"paths_used_today,omitempty"`
	PathID         string    `json:"path_id,omitempty"`
	Missing        []string  `json:"missing,omitempty"`
}

// Message renders user guidance. names maps path ids to display names; unknown ids print as-is.
func (b BlockedReason) Message(names map[string]string) string {
	switch b.Kind {
	case BlockDailyCap:
		used := make([]string, 0, len(b.PathsUsedToday))
		for _, id := range b.PathsUsedToday {
			if n, ok := names[id]; ok && n != "" {
				used = append(used, n)
				continue
			}
			used = append(used, id)
		}
		return fmt.Sprintf("Daily cap hit. Paths already used today: %s.", strings.Join(used, ", "))
	case BlockNoContainers:
		return "Selected path has no containers. Add a container for this path and try again."
	case BlockNoActivePaths:
		return "No active paths. Activate or create a path first."
	default:
		return "Add at least one path and container to generate prompts."
	}
}
