package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/kexinhan12/creativeBucketDice/internal/calendar"
	"github.com/kexinhan12/creativeBucketDice/internal/domain"
	"github.com/kexinhan12/creativeBucketDice/internal/events"
	"github.com/kexinhan12/creativeBucketDice/internal/repo"
)

// Export reads the whole data set. Prompts and logs are newest first.
func (e Engine) Export(ctx context.Context) (domain.Snapshot, error) {
	var snap domain.Snapshot
	var err error
	if snap.Catalog, err = e.Repo.LoadCatalog(ctx); err != nil {
		return snap, err
	}
	if snap.Prompts, err = e.Repo.ListPrompts(ctx, 0); err != nil {
		return snap, fmt.Errorf("list prompts: %w", err)
	}
	if snap.Logs, err = e.Repo.ListLogs(ctx, repo.LogFilters{}); err != nil {
		return snap, fmt.Errorf("list logs: %w", err)
	}
	if snap.Settings, err = e.Settings(ctx); err != nil {
		return snap, err
	}
	return snap, nil
}

// DecodeSnapshot parses an exported document. Settings keys missing from the
// document keep their default values.
func DecodeSnapshot(r io.Reader) (domain.Snapshot, error) {
	snap := domain.Snapshot{Settings: domain.DefaultSettings()}
	dec := json.NewDecoder(r)
	if err := dec.Decode(&snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Import replaces every path, record, prompt, log and the settings with snap.
func (e Engine) Import(ctx context.Context, snap domain.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return ValidationError{Field: "snapshot", Message: err.Error()}
	}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.ClearAll(ctx, tx); err != nil {
			return err
		}
		if err := e.insertSnapshot(ctx, tx, snap); err != nil {
			return err
		}
		return e.record(ctx, tx, events.DataImported, "workspace", "", events.EventPayload{
			"paths":   len(snap.Paths),
			"prompts": len(snap.Prompts),
			"logs":    len(snap.Logs),
		})
	})
	if err != nil {
		return err
	}
	e.log().Info("data imported", zap.Int("paths", len(snap.Paths)), zap.Int("logs", len(snap.Logs)))
	return nil
}

// Reset wipes the workspace back to the example catalog and the configured default settings.
func (e Engine) Reset(ctx context.Context) error {
	snap := domain.Snapshot{Catalog: ExampleCatalog(), Settings: e.Config.Settings}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.ClearAll(ctx, tx); err != nil {
			return err
		}
		if err := e.insertSnapshot(ctx, tx, snap); err != nil {
			return err
		}
		return e.record(ctx, tx, events.DataReset, "workspace", "", nil)
	})
	if err != nil {
		return err
	}
	e.log().Info("workspace reset to examples")
	return nil
}

// SeedExamples loads the example catalog into an empty workspace. It reports whether
// anything was written.
func (e Engine) SeedExamples(ctx context.Context) (bool, error) {
	paths, err := e.Repo.ListPaths(ctx)
	if err != nil {
		return false, err
	}
	if len(paths) > 0 {
		return false, nil
	}
	err = e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.insertSnapshot(ctx, tx, domain.Snapshot{Catalog: ExampleCatalog()}); err != nil {
			return err
		}
		return e.record(ctx, tx, events.DataReset, "workspace", "", events.EventPayload{"seeded": true})
	})
	return err == nil, err
}

// insertSnapshot writes snap into an emptied store. Zero settings are left unwritten.
func (e Engine) insertSnapshot(ctx context.Context, tx *sql.Tx, snap domain.Snapshot) error {
	now := e.now()
	for _, p := range snap.Paths {
		if err := e.Repo.InsertPath(ctx, tx, p, now); err != nil {
			return fmt.Errorf("insert path %s: %w", p.ID, err)
		}
	}
	for _, c := range snap.Containers {
		if err := e.Repo.InsertContainer(ctx, tx, c); err != nil {
			return fmt.Errorf("insert container %s: %w", c.ID, err)
		}
	}
	for _, ep := range snap.EntryPoints {
		if err := e.Repo.InsertEntryPoint(ctx, tx, ep); err != nil {
			return fmt.Errorf("insert entry point %s: %w", ep.ID, err)
		}
	}
	for _, l := range snap.Limits {
		if err := e.Repo.InsertLimit(ctx, tx, l); err != nil {
			return fmt.Errorf("insert limit %s: %w", l.ID, err)
		}
	}
	for _, p := range snap.Prompts {
		if err := e.Repo.InsertPrompt(ctx, tx, p); err != nil {
			return fmt.Errorf("insert prompt %s: %w", p.ID, err)
		}
	}
	for _, l := range snap.Logs {
		if err := e.Repo.InsertLog(ctx, tx, l); err != nil {
			return fmt.Errorf("insert log %s: %w", l.ID, err)
		}
	}
	if snap.Settings == (domain.Settings{}) {
		return nil
	}
	return e.Repo.UpsertSettings(ctx, tx, snap.Settings, calendar.FormatISO(now))
}

// ExampleCatalog is the starter catalog: five paths with one container, entry point
// and limit each, plus one global limit.
func ExampleCatalog() domain.Catalog {
	target := func() *int { t := domain.DefaultWeeklyTarget; return &t }
	path := func(id, name, color string) domain.Path {
		return domain.Path{ID: id, Name: name, Color: color, Active: true, WeeklyTarget: target()}
	}
	return domain.Catalog{
		Paths: []domain.Path{
			path("p-writing", "Writing", "#6b7280"),
			path("p-visual", "Visual", "#0ea5e9"),
			path("p-music", "Music", "#22c55e"),
			path("p-tech", "Tech", "#eab308"),
			path("p-brand", "Brand", "#ef4444"),
		},
		Containers: []domain.Container{
			{ID: "c-writing-tile", PathID: "p-writing", Name: "Tile 300–500 words", Description: "Write 300–500 words around a vivid beat."},
			{ID: "c-visual-a5", PathID: "p-visual", Name: "A5 sketch", Description: "One A5 frame with a clear focal point."},
			{ID: "c-music-songlet", PathID: "p-music", Name: "Songlet (60–90 sec)", Description: "3-section sketch: drums(8) + bass(8) + hook(8)."},
			{ID: "c-tech-demo", PathID: "p-tech", Name: "Demo spike", Description: "Prototype one interaction in 120 minutes."},
			{ID: "c-brand-waistband", PathID: "p-brand", Name: "Waistband concept", Description: "Name + single visual for a micro-brand."},
		},
		EntryPoints: []domain.EntryPoint{
			{ID: "e-writing-frag", PathID: "p-writing", Name: "Fragment sweep 10 min", Description: "Free-write fragments for 10 minutes."},
			{ID: "e-visual-transfer", PathID: "p-visual", Name: "Transfer rip", Description: "Trace a photo for 5 minutes, then remix."},
			{ID: "e-music-mimic", PathID: "p-music", Name: "Mimic 45s", Description: "Sing along a similar mood track, then record first take."},
			{ID: "e-tech-openproj", PathID: "p-tech", Name: "Open project", Description: "Open a dusty repo, make one visible win."},
			{ID: "e-brand-flatlay", PathID: "p-brand", Name: "Flatlay scan", Description: "Collect 5 artifacts, sketch the brand feel."},
		},
		Limits: []domain.Limit{
			{ID: "l-global-delete10", Scope: domain.GlobalScope(), Name: "Delete last 10%"},
			{ID: "l-writing-no-adv", Scope: domain.PathScope("p-writing"), Name: "No adverbs"},
			{ID: "l-visual-3colors", Scope: domain.PathScope("p-visual"), Name: "Use max 3 colors"},
			{ID: "l-music-92bpm", Scope: domain.PathScope("p-music"), Name: "92 BPM"},
			{ID: "l-tech-120min", Scope: domain.PathScope("p-tech"), Name: "120-min cap"},
			{ID: "l-brand-5plus5", Scope: domain.PathScope("p-brand"), Name: "5+5 brainstorm"},
		},
	}
}
