package selector

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kexinhan12/creativeBucketDice/internal/domain"
	"github.com/kexinhan12/creativeBucketDice/internal/rng"
)

func intPtr(v int) *int { return &v }

func baseSettings() domain.Settings {
	return domain.Settings{
		DailyMaxPaths:         2,
		RequireWeeklyCoverage: true,
		WeekStartsOn:          time.Monday,
		LimitsPerPrompt:       domain.LimitRange{Min: 1, Max: 2},
	}
}

func makeState() State {
	return State{
		Catalog: domain.Catalog{
			Paths: []domain.Path{
				{ID: "p-a", Name: "A", Active: true, WeeklyTarget: intPtr(1)},
				{ID: "p-b", Name: "B", Active: true, WeeklyTarget: intPtr(1)},
			},
			Containers: []domain.Container{
				{ID: "c-a", PathID: "p-a", Name: "Container A"},
				{ID: "c-b", PathID: "p-b", Name: "Container B"},
			},
		},
		Settings: baseSettings(),
	}
}

func logAt(id, pathID string, ts time.Time) domain.Log {
	return domain.Log{ID: id, PromptID: "pr-" + id, PathID: pathID, StartedAt: ts, Outcome: domain.OutcomeCompleted}
}

// counting wraps a Source and records how many draws were taken.
type counting struct {
	src rng.Source
	n   int
}

func (c *counting) Float64() float64 {
	c.n++
	return c.src.Float64()
}

// fixed replays the same draw forever.
type fixed float64

func (f fixed) Float64() float64 { return float64(f) }

func fixedIDs() Option { return WithIDs(func() string { return "prompt-1" }) }

func TestEmptyCatalogNeedsData(t *testing.T) {
	out, err := Generate(State{Settings: baseSettings()}, time.Now())
	require.NoError(t, err)
	require.True(t, out.IsBlocked())
	assert.Equal(t, domain.BlockNeedsData, out.Blocked.Kind)
	assert.Equal(t, []string{"paths", "containers"}, out.Blocked.Missing)
}

func TestNoActivePaths(t *testing.T) {
	state := makeState()
	for i := range state.Catalog.Paths {
		state.Catalog.Paths[i].Active = false
	}
	out, err := Generate(state, time.Now())
	require.NoError(t, err)
	require.NotNil(t, out.Blocked)
	assert.Equal(t, domain.BlockNoActivePaths, out.Blocked.Kind)
}

func TestBlocksWhenDailyCapReached(t *testing.T) {
	state := makeState()
	today := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	state.Logs = []domain.Log{
		logAt("l1", "p-a", today),
		logAt("l2", "p-b", today),
		logAt("l3", "p-b", today.Add(-time.Hour)),
	}
	out, err := Generate(state, today)
	require.NoError(t, err)
	require.True(t, out.IsBlocked())
	assert.Equal(t, domain.BlockDailyCap, out.Blocked.Kind)
	assert.ElementsMatch(t, []string{"p-a", "p-b"}, out.Blocked.PathsUsedToday)
}

func TestDailyCapCountsDistinctPaths(t *testing.T) {
	state := makeState()
	today := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	state.Logs = []domain.Log{
		logAt("l1", "p-a", today.Add(-3*time.Hour)),
		logAt("l2", "p-a", today.Add(-2*time.Hour)),
		logAt("l3", "p-a", today.Add(-time.Hour)),
	}
	out, err := Generate(state, today)
	require.NoError(t, err)
	require.False(t, out.IsBlocked(), "three logs on one path is one distinct path")
	assert.Equal(t, []string{"p-a"}, out.Prompt.Constraints.PathsUsedToday)
}

func TestBiasesTowardMissingWeeklyCoverage(t *testing.T) {
	state := makeState()
	logged := time.Date(2024, 12, 30, 9, 0, 0, 0, time.UTC)
	state.Logs = []domain.Log{logAt("l1", "p-a", logged)}

	for i := 0; i < 40; i++ {
		now := logged.Add(time.Duration(i)*3*time.Hour + 17*time.Minute)
		if now.Weekday() == time.Monday && now.Day() != logged.Day() {
			break
		}
		out, err := Generate(state, now)
		require.NoError(t, err)
		require.False(t, out.IsBlocked(), "at %s", now)
		assert.Equal(t, "p-b", out.Prompt.PathID, "at %s", now)
		assert.Equal(t, []string{"p-b"}, out.Prompt.Constraints.WeeklyCoverageRequired)
	}
}

func TestCoverageMetFallsBackToAllActive(t *testing.T) {
	state := makeState()
	monday := time.Date(2024, 12, 30, 9, 0, 0, 0, time.UTC)
	state.Logs = []domain.Log{logAt("l1", "p-a", monday), logAt("l2", "p-b", monday)}

	seen := map[string]bool{}
	for i := 1; i <= 40; i++ {
		out, err := Generate(state, monday.Add(24*time.Hour+time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.NotNil(t, out.Prompt)
		assert.Empty(t, out.Prompt.Constraints.WeeklyCoverageRequired)
		seen[out.Prompt.PathID] = true
	}
	assert.Len(t, seen, 2)
}

func TestNoContainersDegradesGracefully(t *testing.T) {
	state := makeState()
	state.Catalog.Paths = append(state.Catalog.Paths, domain.Path{ID: "p-empty", Name: "Empty", Active: true, WeeklyTarget: intPtr(1)})
	state.Settings.RequireWeeklyCoverage = false

	// 0.99 lands on the last pool entry, which is the container-less path.
	out, err := Generate(state, time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC),
		WithSource(func(string) rng.Source { return fixed(0.99) }))
	require.NoError(t, err)
	require.True(t, out.IsBlocked())
	assert.Equal(t, domain.BlockNoContainers, out.Blocked.Kind)
	assert.Equal(t, "p-empty", out.Blocked.PathID)

	for i := 0; i < 30; i++ {
		out, err := Generate(state, time.Date(2025, 1, 5, 10, i, 0, 0, time.UTC))
		require.NoError(t, err)
		if out.IsBlocked() {
			assert.Equal(t, domain.BlockNoContainers, out.Blocked.Kind)
			continue
		}
		assert.NotEmpty(t, out.Prompt.ContainerID)
	}
}

func TestDeterministicForFixedInputs(t *testing.T) {
	state := richState()
	state.Settings.Seed = "pinned"
	now := time.Date(2025, 2, 12, 8, 30, 0, 0, time.UTC)

	a, err := Generate(state, now, fixedIDs())
	require.NoError(t, err)
	b, err := Generate(state, now, fixedIDs())
	require.NoError(t, err)
	require.NotNil(t, a.Prompt)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("generate not deterministic (-first +second):\n%s", diff)
	}
	assert.Equal(t, "pinned-2025-02-12T08:30:00.000Z", a.Prompt.Seed)
}

// The instant is folded into the seed even when a seed is configured, so a pinned
// seed alone does not pin the prompt. This records the behaviour as it stands.
func TestPinnedSeedStillVariesWithInstant(t *testing.T) {
	now := time.Date(2025, 2, 12, 8, 30, 0, 0, time.UTC)
	later := now.Add(time.Millisecond)
	assert.NotEqual(t, Seed("pinned", now), Seed("pinned", later))
	assert.Equal(t, Seed("pinned", now), Seed("pinned", now.In(time.FixedZone("X", 3600))))
	assert.Equal(t, "2025-02-12T08:30:00.000Z", Seed("", now))

	state := richState()
	state.Settings.Seed = "pinned"
	a, err := Generate(state, now)
	require.NoError(t, err)
	b, err := Generate(state, later)
	require.NoError(t, err)
	assert.NotEqual(t, a.Prompt.Seed, b.Prompt.Seed)
}

func TestNoEntryPointsConsumesNoCoinFlip(t *testing.T) {
	state := makeState()
	state.Settings.RequireWeeklyCoverage = false
	state.Settings.LimitsPerPrompt = domain.LimitRange{Min: 0, Max: 0}

	var src *counting
	out, err := Generate(state, time.Date(2025, 1, 7, 10, 0, 0, 0, time.UTC),
		WithSource(func(seed string) rng.Source {
			src = &counting{src: rng.New(seed)}
			return src
		}))
	require.NoError(t, err)
	require.NotNil(t, out.Prompt)
	assert.Empty(t, out.Prompt.EntryPointID)
	// path, container, limit count; no coin flip and an empty sample.
	assert.Equal(t, 3, src.n)
}

func TestEntryPointCoinFlip(t *testing.T) {
	state := makeState()
	state.Settings.RequireWeeklyCoverage = false
	state.Catalog.EntryPoints = []domain.EntryPoint{
		{ID: "e-a", PathID: "p-a", Name: "Warmup", Description: "Stretch first."},
	}
	now := time.Date(2025, 1, 7, 10, 0, 0, 0, time.UTC)

	out, err := Generate(state, now, WithSource(func(string) rng.Source { return fixed(0.1) }))
	require.NoError(t, err)
	require.NotNil(t, out.Prompt)
	assert.Equal(t, "p-a", out.Prompt.PathID)
	assert.Equal(t, "e-a", out.Prompt.EntryPointID)
	assert.Contains(t, out.Prompt.Text, "- Start with: Stretch first.")

	out, err = Generate(state, now, WithSource(func(string) rng.Source { return fixed(0.4) }))
	require.NoError(t, err)
	assert.Equal(t, "p-a", out.Prompt.PathID)
	assert.Equal(t, "e-a", out.Prompt.EntryPointID)

	state.Catalog.Paths[1].Active = false
	out, err = Generate(state, now, WithSource(func(string) rng.Source { return fixed(0.7) }))
	require.NoError(t, err)
	assert.Empty(t, out.Prompt.EntryPointID, "draw above 0.5 skips the entry point")
}

func richState() State {
	state := makeState()
	state.Settings.RequireWeeklyCoverage = false
	state.Catalog.EntryPoints = []domain.EntryPoint{
		{ID: "e-a1", PathID: "p-a", Name: "Sweep"},
		{ID: "e-b1", PathID: "p-b", Name: "Scan", Description: "Collect five artifacts."},
	}
	state.Catalog.Limits = []domain.Limit{
		{ID: "l-g1", Scope: domain.GlobalScope(), Name: "Delete last 10%"},
		{ID: "l-g2", Scope: domain.GlobalScope(), Name: "No undo"},
		{ID: "l-a1", Scope: domain.PathScope("p-a"), Name: "No adverbs"},
		{ID: "l-a2", Scope: domain.PathScope("p-a"), Name: "Present tense"},
		{ID: "l-b1", Scope: domain.PathScope("p-b"), Name: "Max 3 colors"},
	}
	return state
}

func TestLimitsSamplingBounds(t *testing.T) {
	for _, r := range []domain.LimitRange{{Min: 0, Max: 0}, {Min: 1, Max: 2}, {Min: 2, Max: 3}, {Min: 3, Max: 9}} {
		t.Run(fmt.Sprintf("%d-%d", r.Min, r.Max), func(t *testing.T) {
			state := richState()
			state.Settings.LimitsPerPrompt = r
			base := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
			for i := 0; i < 60; i++ {
				out, err := Generate(state, base.Add(time.Duration(i)*time.Second))
				require.NoError(t, err)
				require.NotNil(t, out.Prompt)
				eligible := map[string]bool{}
				for _, l := range state.Catalog.LimitsFor(out.Prompt.PathID) {
					eligible[l.ID] = true
				}
				pool := len(eligible)
				got := out.Prompt.LimitIDs
				assert.GreaterOrEqual(t, len(got), min(r.Min, pool))
				assert.LessOrEqual(t, len(got), min(r.Max, pool))
				seen := map[string]bool{}
				for _, id := range got {
					assert.True(t, eligible[id], "limit %s not eligible for %s", id, out.Prompt.PathID)
					assert.False(t, seen[id], "duplicate limit %s", id)
					seen[id] = true
				}
			}
		})
	}
}

func TestRender(t *testing.T) {
	path := domain.Path{ID: "p", Name: "Writing"}
	container := domain.Container{ID: "c", Name: "Tile", Description: "Write 300 words"}
	entry := &domain.EntryPoint{ID: "e", Name: "Fragment sweep", Description: "Free-write fragments."}
	limits := []domain.Limit{{ID: "l1", Name: "No adverbs"}, {ID: "l2", Name: "Delete last 10%"}}

	want := "Path: Writing\n" +
		"Container: Tile\n" +
		"Entry: Fragment sweep\n" +
		"Limits: No adverbs · Delete last 10%\n" +
		"\n" +
		"Creative Prompt:\n" +
		"- Start with: Free-write fragments.\n" +
		"- Deliver a Write 300 words.\n" +
		"- Obey strictly: No adverbs; Delete last 10%"
	assert.Equal(t, want, Render(path, container, entry, limits))

	bare := Render(path, domain.Container{Name: "Tile"}, nil, nil)
	assert.Equal(t, "Path: Writing\n"+
		"Container: Tile\n"+
		"Entry: —\n"+
		"Limits: —\n"+
		"\n"+
		"Creative Prompt:\n"+
		"- Start with: Use your usual entry.\n"+
		"- Deliver a Tile.\n"+
		"- Obey strictly: —", bare)
}
