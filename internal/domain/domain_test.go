package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitScopeJSON(t *testing.T) {
	b, err := json.Marshal([]Limit{
		{ID: "l1", Scope: GlobalScope(), Name: "Delete last 10%"},
		{ID: "l2", Scope: PathScope("p-music"), Name: "92 BPM"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"l1","path_id":"GLOBAL","name":"Delete last 10%"},{"id":"l2","path_id":"p-music","name":"92 BPM"}]`, string(b))

	var back []Limit
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back[0].Scope.IsGlobal())
	assert.Equal(t, "p-music", back[1].Scope.PathID())
	assert.True(t, back[0].Scope.AppliesTo("anything"))
	assert.False(t, back[1].Scope.AppliesTo("p-writing"))
}

func TestLimitsForOrdersGlobalFirst(t *testing.T) {
	c := Catalog{Limits: []Limit{
		{ID: "own-1", Scope: PathScope("p1"), Name: "a"},
		{ID: "g-1", Scope: GlobalScope(), Name: "b"},
		{ID: "other", Scope: PathScope("p2"), Name: "c"},
		{ID: "g-2", Scope: GlobalScope(), Name: "d"},
	}}
	var ids []string
	for _, l := range c.LimitsFor("p1") {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []string{"g-1", "g-2", "own-1"}, ids)
}

func TestCatalogValidate(t *testing.T) {
	valid := Catalog{
		Paths:      []Path{{ID: "p1", Name: "Writing", Color: "#6b7280", Active: true}},
		Containers: []Container{{ID: "c1", PathID: "p1", Name: "Tile"}},
		Limits:     []Limit{{ID: "l1", Name: "Global"}},
	}
	require.NoError(t, valid.Validate())

	dupName := valid
	dupName.Paths = append([]Path{}, valid.Paths...)
	dupName.Paths = append(dupName.Paths, Path{ID: "p2", Name: " writing "})
	assert.ErrorContains(t, dupName.Validate(), "duplicate path name")

	orphan := valid
	orphan.EntryPoints = []EntryPoint{{ID: "e1", PathID: "ghost", Name: "Warm-up"}}
	assert.ErrorContains(t, orphan.Validate(), "unknown path ghost")

	badColor := valid
	badColor.Paths = []Path{{ID: "p1", Name: "Writing", Color: "teal"}}
	assert.Error(t, badColor.Validate())
}

func TestValidateColor(t *testing.T) {
	for _, ok := range []string{"", "#abc", "#0EA5E9"} {
		assert.NoError(t, ValidateColor(ok), ok)
	}
	for _, bad := range []string{"red", "0ea5e9", "#12345"} {
		assert.Error(t, ValidateColor(bad), bad)
	}
}

func TestSettingsValidate(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())

	s := DefaultSettings()
	s.LimitsPerPrompt = LimitRange{Min: 3, Max: 2}
	assert.Error(t, s.Validate())

	s = DefaultSettings()
	s.WeekStartsOn = time.Wednesday
	assert.Error(t, s.Validate())

	s = DefaultSettings()
	s.DailyMaxPaths = 0
	assert.NoError(t, s.Validate(), "a zero cap is allowed and blocks every roll")
}

func TestBlockedReasonMessage(t *testing.T) {
	names := map[string]string{"p1": "Writing"}
	b := BlockedReason{Kind: BlockDailyCap, PathsUsedToday: []string{"p1", "p9"}}
	assert.Equal(t, "Daily cap hit. Paths already used today: Writing, p9.", b.Message(names))
	assert.Equal(t, "Add at least one path and container to generate prompts.", BlockedReason{Kind: BlockNeedsData}.Message(nil))
	assert.Contains(t, BlockedReason{Kind: BlockNoContainers, PathID: "p1"}.Message(names), "no containers")
}

func TestEffectiveWeeklyTarget(t *testing.T) {
	zero := 0
	assert.Equal(t, DefaultWeeklyTarget, Path{}.EffectiveWeeklyTarget())
	assert.Equal(t, 0, Path{WeeklyTarget: &zero}.EffectiveWeeklyTarget())
	assert.True(t, OutcomeSkipped.Valid())
	assert.False(t, Outcome("done").Valid())
}
