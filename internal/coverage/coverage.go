// Package coverage derives daily usage and weekly quota state from the log history.
package coverage

import (
	"time"

	"github.com/kexinhan12/creativeBucketDice/internal/calendar"
	"github.com/kexinhan12/creativeBucketDice/internal/domain"
)

// PathsUsedToday returns the distinct path ids, in first-seen order, of logs that
// started on the same local calendar day as ref.
func PathsUsedToday(logs []domain.Log, ref time.Time) []string {
	seen := map[string]bool{}
	res := []string{}
	for _, l := range logs {
		if !calendar.SameLocalDay(l.StartedAt, ref) || seen[l.PathID] {
			continue
		}
		seen[l.PathID] = true
		res = append(res, l.PathID)
	}
	return res
}

// Weekly is the quota state for the week containing the reference instant.
type Weekly struct {
	Missing  []domain.Path     `json:"missing"`
	Counts   map[string]int    `json:"counts"`
	Interval calendar.Interval `json:"interval"`
}

// MissingIDs returns the ids of Missing in order.
func (w Weekly) MissingIDs() []string {
	ids := make([]string, 0, len(w.Missing))
	for _, p := range w.Missing {
		ids = append(ids, p.ID)
	}
	return ids
}

// WeeklyCoverage counts logs per path inside the settings' week interval around ref and
// lists the active paths whose count is still below their weekly target.
func WeeklyCoverage(paths []domain.Path, logs []domain.Log, settings domain.Settings, ref time.Time) Weekly {
	iv := calendar.WeekInterval(ref, settings.WeekStartsOn)
	counts := map[string]int{}
	for _, l := range logs {
		if iv.Contains(l.StartedAt) {
			counts[l.PathID]++
		}
	}
	missing := []domain.Path{}
	for _, p := range paths {
		target := p.EffectiveWeeklyTarget()
		if !p.Active || target <= 0 {
			continue
		}
		if counts[p.ID] < target {
			missing = append(missing, p)
		}
	}
	return Weekly{Missing: missing, Counts: counts, Interval: iv}
}
