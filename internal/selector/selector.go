// Package selector turns the catalog, the log history and the settings into either a
// new prompt or the reason none can be produced. Generate reads its inputs only; the
// caller owns persisting the result.
package selector

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kexinhan12/creativeBucketDice/internal/calendar"
	"github.com/kexinhan12/creativeBucketDice/internal/coverage"
	"github.com/kexinhan12/creativeBucketDice/internal/domain"
	"github.com/kexinhan12/creativeBucketDice/internal/rng"
)

// EntryChance is the probability of attaching an entry point when the path has any.
const EntryChance = 0.5

// State bundles everything a generation reads.
type State struct {
	Catalog  domain.Catalog
	Logs     []domain.Log
	Settings domain.Settings
}

// Outcome holds exactly one of Prompt or Blocked.
type Outcome struct {
	Prompt  *domain.Prompt        `json:"prompt,omitempty"`
	Blocked *domain.BlockedReason `json:"blocked,omitempty"`
}

func (o Outcome) IsBlocked() bool { return o.Blocked != nil }

func blocked(b domain.BlockedReason) (Outcome, error) {
	return Outcome{Blocked: &b}, nil
}

type options struct {
	newID     func() string
	newSource func(seed string) rng.Source
}

type Option func(*options)

// WithIDs overrides the prompt id generator.
func WithIDs(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}

// WithSource overrides how the generator is built from the seed string.
func WithSource(fn func(seed string) rng.Source) Option {
	return func(o *options) { o.newSource = fn }
}

// Seed folds now into the configured seed. A pinned seed therefore only reproduces a
// prompt when now is pinned too.
func Seed(configured string, now time.Time) string {
	iso := calendar.FormatISO(now)
	if configured == "" {
		return iso
	}
	return configured + "-" + iso
}

// Generate runs the gates in order and, if none blocks, picks path, container,
// optional entry point and limits from one seeded generator. The error return is
// reserved for invariant violations (rng.ErrEmptyPool); blocks are Outcome values.
func Generate(state State, now time.Time, opts ...Option) (Outcome, error) {
	o := options{newID: uuid.NewString, newSource: rng.New}
	for _, fn := range opts {
		fn(&o)
	}
	cat := state.Catalog
	settings := state.Settings

	if len(cat.Paths) == 0 {
		return blocked(domain.BlockedReason{Kind: domain.BlockNeedsData, Missing: []string{"paths", "containers"}})
	}

	seed := Seed(settings.Seed, now)
	src := o.newSource(seed)

	active := cat.ActivePaths()
	if len(active) == 0 {
		return blocked(domain.BlockedReason{Kind: domain.BlockNoActivePaths})
	}

	usedToday := coverage.PathsUsedToday(state.Logs, now)
	if len(usedToday) >= settings.DailyMaxPaths {
		return blocked(domain.BlockedReason{Kind: domain.BlockDailyCap, PathsUsedToday: usedToday})
	}

	weekly := coverage.WeeklyCoverage(active, state.Logs, settings, now)
	pool := active
	required := []string{}
	if settings.RequireWeeklyCoverage && len(weekly.Missing) > 0 {
		pool = weekly.Missing
		required = weekly.MissingIDs()
	}
	if len(pool) == 0 {
		return blocked(domain.BlockedReason{Kind: domain.BlockNoActivePaths})
	}

	path, err := rng.PickUniform(src, pool)
	if err != nil {
		return Outcome{}, fmt.Errorf("pick path: %w", err)
	}
	containers := cat.ContainersOf(path.ID)
	if len(containers) == 0 {
		return blocked(domain.BlockedReason{Kind: domain.BlockNoContainers, PathID: path.ID})
	}
	container, err := rng.PickUniform(src, containers)
	if err != nil {
		return Outcome{}, fmt.Errorf("pick container: %w", err)
	}

	var entry *domain.EntryPoint
	if entries := cat.EntryPointsOf(path.ID); len(entries) > 0 && rng.Chance(src, EntryChance) {
		e, err := rng.PickUniform(src, entries)
		if err != nil {
			return Outcome{}, fmt.Errorf("pick entry point: %w", err)
		}
		entry = &e
	}

	desired := rng.RandInt(src, settings.LimitsPerPrompt.Min, settings.LimitsPerPrompt.Max)
	limits := rng.SampleWithoutReplacement(src, cat.LimitsFor(path.ID), desired)

	p := &domain.Prompt{
		ID:          o.newID(),
		CreatedAt:   now,
		Seed:        seed,
		PathID:      path.ID,
		ContainerID: container.ID,
		LimitIDs:    make([]string, 0, len(limits)),
		Text:        Render(path, container, entry, limits),
		Constraints: domain.ConstraintSnapshot{
			MaxPathsPerDay:         settings.DailyMaxPaths,
			PathsUsedToday:         usedToday,
			WeeklyCoverageRequired: required,
		},
	}
	if entry != nil {
		p.EntryPointID = entry.ID
	}
	for _, l := range limits {
		p.LimitIDs = append(p.LimitIDs, l.ID)
	}
	return Outcome{Prompt: p}, nil
}
