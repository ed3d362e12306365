package engine_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kexinhan12/creativeBucketDice/internal/config"
	"github.com/kexinhan12/creativeBucketDice/internal/db"
	"github.com/kexinhan12/creativeBucketDice/internal/domain"
	"github.com/kexinhan12/creativeBucketDice/internal/engine"
	"github.com/kexinhan12/creativeBucketDice/internal/events"
	"github.com/kexinhan12/creativeBucketDice/internal/migrate"
	"github.com/kexinhan12/creativeBucketDice/internal/repo"
)

// Wednesday.
var fixedNow = time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	ctx := context.Background()
	_, err = migrate.Migrate(ctx, conn)
	require.NoError(t, err)
	eng := engine.New(conn, config.Default(), zaptest.NewLogger(t))
	eng.Now = func() time.Time { return fixedNow }
	return testEnv{Engine: eng, Ctx: ctx}
}

func seededEnv(t *testing.T) testEnv {
	t.Helper()
	env := newTestEnv(t)
	seeded, err := env.Engine.SeedExamples(env.Ctx)
	require.NoError(t, err)
	require.True(t, seeded)
	return env
}

func intPtr(v int) *int { return &v }

func TestAddPathEnforcesUniqueNames(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.Engine.AddPath(env.Ctx, engine.PathInput{Name: "  Writing "})
	require.NoError(t, err)
	assert.Equal(t, "Writing", p.Name)
	assert.True(t, p.Active)
	assert.Equal(t, 1, p.EffectiveWeeklyTarget())

	_, err = env.Engine.AddPath(env.Ctx, engine.PathInput{Name: "writing"})
	var verr engine.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)

	other, err := env.Engine.AddPath(env.Ctx, engine.PathInput{Name: "Music", WeeklyTarget: intPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, other.EffectiveWeeklyTarget())

	rename := "WRITING"
	_, err = env.Engine.UpdatePath(env.Ctx, other.ID, repo.PathUpdate{Name: &rename})
	require.ErrorAs(t, err, &verr)

	color := "#112233"
	updated, err := env.Engine.UpdatePath(env.Ctx, other.ID, repo.PathUpdate{Color: &color})
	require.NoError(t, err)
	assert.Equal(t, "#112233", updated.Color)

	_, err = env.Engine.UpdatePath(env.Ctx, "missing", repo.PathUpdate{Color: &color})
	assert.True(t, engine.IsNotFound(err))
}

func TestPathColorMustBeHex(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.AddPath(env.Ctx, engine.PathInput{Name: "Writing", Color: "red"})
	var verr engine.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "color", verr.Field)

	p, err := env.Engine.AddPath(env.Ctx, engine.PathInput{Name: "Writing", Color: "#0ea5e9"})
	require.NoError(t, err)

	bad := "blue"
	_, err = env.Engine.UpdatePath(env.Ctx, p.ID, repo.PathUpdate{Color: &bad})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "color", verr.Field)

	cleared := ""
	_, err = env.Engine.UpdatePath(env.Ctx, p.ID, repo.PathUpdate{Color: &cleared})
	require.NoError(t, err)
	short := "#abc"
	_, err = env.Engine.UpdatePath(env.Ctx, p.ID, repo.PathUpdate{Color: &short})
	require.NoError(t, err)

	snap, err := env.Engine.Export(env.Ctx)
	require.NoError(t, err)
	require.NoError(t, env.Engine.Import(env.Ctx, snap))
	cat, err := env.Engine.Repo.LoadCatalog(env.Ctx)
	require.NoError(t, err)
	require.Len(t, cat.Paths, 1)
	assert.Equal(t, "#abc", cat.Paths[0].Color)
}

func TestChildrenRequireActivePath(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.Engine.AddPath(env.Ctx, engine.PathInput{Name: "Visual"})
	require.NoError(t, err)

	_, err = env.Engine.AddContainer(env.Ctx, p.ID, engine.ChildInput{Name: "A5 sketch"})
	require.NoError(t, err)
	_, err = env.Engine.AddLimit(env.Ctx, domain.GlobalScope(), engine.ChildInput{Name: "Delete last 10%"})
	require.NoError(t, err)

	require.NoError(t, env.Engine.ArchivePath(env.Ctx, p.ID))
	_, err = env.Engine.AddContainer(env.Ctx, p.ID, engine.ChildInput{Name: "Another"})
	var verr engine.ValidationError
	require.ErrorAs(t, err, &verr)
	_, err = env.Engine.AddEntryPoint(env.Ctx, "nope", engine.ChildInput{Name: "Entry"})
	require.ErrorAs(t, err, &verr)
	_, err = env.Engine.AddLimit(env.Ctx, domain.PathScope(p.ID), engine.ChildInput{Name: "92 BPM"})
	require.ErrorAs(t, err, &verr)
	_, err = env.Engine.AddContainer(env.Ctx, p.ID, engine.ChildInput{Name: "  "})
	require.ErrorAs(t, err, &verr)
}

func TestRemovePathArchivesWhenLogged(t *testing.T) {
	env := seededEnv(t)
	_, err := env.Engine.SaveLog(env.Ctx, engine.LogInput{PathID: "p-music"})
	require.NoError(t, err)

	err = env.Engine.RemovePath(env.Ctx, "p-music")
	require.ErrorIs(t, err, engine.ErrArchivedInstead)
	p, err := env.Engine.Repo.GetPath(env.Ctx, "p-music")
	require.NoError(t, err)
	assert.False(t, p.Active)

	require.NoError(t, env.Engine.RemovePath(env.Ctx, "p-tech"))
	_, err = env.Engine.Repo.GetPath(env.Ctx, "p-tech")
	require.ErrorIs(t, err, repo.ErrNotFound)
	cat, err := env.Engine.Repo.LoadCatalog(env.Ctx)
	require.NoError(t, err)
	assert.Empty(t, cat.ContainersOf("p-tech"))
	assert.Empty(t, cat.EntryPointsOf("p-tech"))
	for _, l := range cat.Limits {
		assert.NotEqual(t, "p-tech", l.Scope.PathID())
	}
}

func TestGenerateCommitPersistsPrompt(t *testing.T) {
	env := seededEnv(t)

	preview, err := env.Engine.Generate(env.Ctx, fixedNow, false)
	require.NoError(t, err)
	require.False(t, preview.IsBlocked())
	prompts, err := env.Engine.ListPrompts(env.Ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, prompts)

	out, err := env.Engine.Generate(env.Ctx, fixedNow, true)
	require.NoError(t, err)
	require.NotNil(t, out.Prompt)
	assert.Equal(t, preview.Prompt.PathID, out.Prompt.PathID, "same instant and seed pick the same path")

	last, err := env.Engine.LastPrompt(env.Ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(*out.Prompt, last); diff != "" {
		t.Fatalf("stored prompt mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, last.Constraints.WeeklyCoverageRequired, 5)
	assert.Equal(t, 2, last.Constraints.MaxPathsPerDay)

	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 5, events.PromptGenerated)
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Equal(t, out.Prompt.ID, evts[0].EntityID)
}

func TestGenerateBlockedIsJournaled(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.Engine.Generate(env.Ctx, fixedNow, true)
	require.NoError(t, err)
	require.True(t, out.IsBlocked())
	assert.Equal(t, domain.BlockNeedsData, out.Blocked.Kind)

	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 5, events.PromptBlocked)
	require.NoError(t, err)
	assert.Len(t, evts, 1)
	_, err = env.Engine.LastPrompt(env.Ctx)
	assert.True(t, engine.IsNotFound(err))
}

func TestDeletingLogReopensDailyCap(t *testing.T) {
	env := seededEnv(t)
	_, err := env.Engine.SetSettings(env.Ctx, engine.SettingsPatch{DailyMaxPaths: intPtr(1)})
	require.NoError(t, err)

	l, err := env.Engine.SaveLog(env.Ctx, engine.LogInput{PathID: "p-writing", StartedAt: fixedNow.Add(-time.Hour)})
	require.NoError(t, err)

	out, err := env.Engine.Generate(env.Ctx, fixedNow, true)
	require.NoError(t, err)
	require.True(t, out.IsBlocked())
	assert.Equal(t, domain.BlockDailyCap, out.Blocked.Kind)
	assert.Equal(t, []string{"p-writing"}, out.Blocked.PathsUsedToday)

	require.NoError(t, env.Engine.DeleteLog(env.Ctx, l.ID))
	out, err = env.Engine.Generate(env.Ctx, fixedNow, true)
	require.NoError(t, err)
	assert.False(t, out.IsBlocked())

	assert.True(t, engine.IsNotFound(env.Engine.DeleteLog(env.Ctx, l.ID)))
}

func TestSaveLog(t *testing.T) {
	env := seededEnv(t)
	out, err := env.Engine.Generate(env.Ctx, fixedNow, true)
	require.NoError(t, err)
	require.NotNil(t, out.Prompt)

	ended := fixedNow.Add(45 * time.Minute)
	l, err := env.Engine.SaveLog(env.Ctx, engine.LogInput{PromptID: out.Prompt.ID, StartedAt: fixedNow, EndedAt: &ended})
	require.NoError(t, err)
	assert.Equal(t, out.Prompt.PathID, l.PathID)
	assert.Equal(t, domain.OutcomeCompleted, l.Outcome)
	require.NotNil(t, l.DurationMin)
	assert.Equal(t, 45, *l.DurationMin)

	adhoc, err := env.Engine.SaveLog(env.Ctx, engine.LogInput{PathID: "p-brand", Outcome: domain.OutcomeSkipped})
	require.NoError(t, err)
	assert.NotEmpty(t, adhoc.PromptID)
	assert.True(t, adhoc.StartedAt.Equal(fixedNow))

	var verr engine.ValidationError
	early := fixedNow.Add(-time.Minute)
	_, err = env.Engine.SaveLog(env.Ctx, engine.LogInput{PathID: "p-brand", StartedAt: fixedNow, EndedAt: &early})
	require.ErrorAs(t, err, &verr)
	_, err = env.Engine.SaveLog(env.Ctx, engine.LogInput{PathID: "p-brand", Outcome: "finished"})
	require.ErrorAs(t, err, &verr)
	_, err = env.Engine.SaveLog(env.Ctx, engine.LogInput{})
	require.ErrorAs(t, err, &verr)
	_, err = env.Engine.SaveLog(env.Ctx, engine.LogInput{PathID: "p-none"})
	require.ErrorAs(t, err, &verr)

	logs, err := env.Engine.ListLogs(env.Ctx, repo.LogFilters{Outcome: "skipped"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, adhoc.ID, logs[0].ID)
}

func TestSetSettingsValidates(t *testing.T) {
	env := newTestEnv(t)
	s, err := env.Engine.SetSettings(env.Ctx, engine.SettingsPatch{LimitsMin: intPtr(1), WeekStartsOn: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, 1, s.LimitsPerPrompt.Min)
	assert.Equal(t, time.Sunday, s.WeekStartsOn)

	_, err = env.Engine.SetSettings(env.Ctx, engine.SettingsPatch{LimitsMin: intPtr(5)})
	var verr engine.ValidationError
	require.ErrorAs(t, err, &verr)
	_, err = env.Engine.SetSettings(env.Ctx, engine.SettingsPatch{WeekStartsOn: intPtr(3)})
	require.ErrorAs(t, err, &verr)

	stored, err := env.Engine.Settings(env.Ctx)
	require.NoError(t, err)
	assert.Equal(t, s, stored)
}

func TestExportImportRoundTrip(t *testing.T) {
	env := seededEnv(t)
	out, err := env.Engine.Generate(env.Ctx, fixedNow, true)
	require.NoError(t, err)
	_, err = env.Engine.SaveLog(env.Ctx, engine.LogInput{PromptID: out.Prompt.ID, ExportURI: "file:///tmp/a.png"})
	require.NoError(t, err)

	before, err := env.Engine.Export(env.Ctx)
	require.NoError(t, err)
	require.NoError(t, env.Engine.Reset(env.Ctx))
	reset, err := env.Engine.Export(env.Ctx)
	require.NoError(t, err)
	assert.Empty(t, reset.Logs)
	assert.Empty(t, reset.Prompts)

	require.NoError(t, env.Engine.Import(env.Ctx, before))
	after, err := env.Engine.Export(env.Ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestImportRejectsDanglingRecords(t *testing.T) {
	env := seededEnv(t)
	snap := domain.Snapshot{
		Catalog: domain.Catalog{
			Containers: []domain.Container{{ID: "c1", PathID: "ghost", Name: "Orphan"}},
		},
		Settings: domain.DefaultSettings(),
	}
	var verr engine.ValidationError
	require.ErrorAs(t, env.Engine.Import(env.Ctx, snap), &verr)

	cat, err := env.Engine.Repo.LoadCatalog(env.Ctx)
	require.NoError(t, err)
	assert.Len(t, cat.Paths, 5, "failed import leaves data untouched")
}

func TestDecodeSnapshotMergesSettingsOverDefaults(t *testing.T) {
	doc := `{"paths":[{"id":"p1","name":"Writing","is_active":true}],"settings":{"daily_max_paths":4}}`
	snap, err := engine.DecodeSnapshot(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Settings.DailyMaxPaths)
	assert.Equal(t, time.Monday, snap.Settings.WeekStartsOn)
	assert.True(t, snap.Settings.RequireWeeklyCoverage)
	assert.Equal(t, domain.LimitRange{Min: 2, Max: 3}, snap.Settings.LimitsPerPrompt)
	require.NoError(t, snap.Validate())

	_, err = engine.DecodeSnapshot(strings.NewReader("{"))
	assert.Error(t, err)
}

func TestResetRestoresExamples(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.AddPath(env.Ctx, engine.PathInput{Name: "Scratch"})
	require.NoError(t, err)
	require.NoError(t, env.Engine.Reset(env.Ctx))

	cat, err := env.Engine.Repo.LoadCatalog(env.Ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(engine.ExampleCatalog(), cat); diff != "" {
		t.Fatalf("catalog mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, cat.LimitsFor("p-writing"), 2)

	seeded, err := env.Engine.SeedExamples(env.Ctx)
	require.NoError(t, err)
	assert.False(t, seeded)
}

func TestWeeklySummary(t *testing.T) {
	env := seededEnv(t)
	lastWeek := fixedNow.AddDate(0, 0, -7)
	for _, id := range []string{"p-writing", "p-visual", "p-music", "p-tech", "p-brand"} {
		_, err := env.Engine.SaveLog(env.Ctx, engine.LogInput{PathID: id, StartedAt: lastWeek})
		require.NoError(t, err)
	}
	_, err := env.Engine.SaveLog(env.Ctx, engine.LogInput{PathID: "p-writing", StartedAt: fixedNow.Add(-2 * time.Hour)})
	require.NoError(t, err)

	s, err := env.Engine.WeeklySummary(env.Ctx, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-writing"}, s.PathsUsedToday)
	assert.Equal(t, 1, s.RemainingToday)
	assert.Equal(t, 1, s.FullCoverageWeeks)
	assert.ElementsMatch(t, []string{"p-visual", "p-music", "p-tech", "p-brand"}, s.Missing)
	require.Len(t, s.Paths, 5)
	assert.Equal(t, "p-writing", s.Paths[0].Path.ID)
	assert.True(t, s.Paths[0].Met())
	assert.False(t, s.Paths[1].Met())
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), s.Week.Start)
}

func TestLogsCSV(t *testing.T) {
	env := seededEnv(t)
	_, err := env.Engine.SetSettings(env.Ctx, engine.SettingsPatch{LimitsMin: intPtr(2), LimitsMax: intPtr(2)})
	require.NoError(t, err)
	out, err := env.Engine.Generate(env.Ctx, fixedNow, true)
	require.NoError(t, err)
	_, err = env.Engine.SaveLog(env.Ctx, engine.LogInput{PromptID: out.Prompt.ID, StartedAt: fixedNow, DurationMin: intPtr(30), ExportURI: "https://example.com/x"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, env.Engine.LogsCSV(env.Ctx, &buf))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"date", "path", "container", "limits", "outcome", "duration", "exportUri"}, records[0])
	row := records[1]
	assert.Equal(t, "2024-01-03T10:00:00.000Z", row[0])
	assert.NotEmpty(t, row[1])
	assert.NotEmpty(t, row[2])
	assert.Len(t, strings.Split(row[3], " | "), 2)
	assert.Equal(t, []string{"completed", "30", "https://example.com/x"}, row[4:])
}
