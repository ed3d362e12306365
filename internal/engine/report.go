package engine

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kexinhan12/creativeBucketDice/internal/calendar"
	"github.com/kexinhan12/creativeBucketDice/internal/coverage"
	"github.com/kexinhan12/creativeBucketDice/internal/domain"
)

type PathProgress struct {
	Path   domain.Path `json:"path"`
	Count  int         `json:"count"`
	Target int         `json:"target"`
}

func (p PathProgress) Met() bool { return p.Count >= p.Target }

// Summary is the dashboard view for the week containing Now.
type Summary struct {
	Now               time.Time         `json:"now"`
	Week              calendar.Interval `json:"week"`
	Paths             []PathProgress    `json:"paths"`
	Missing           []string          `json:"missing"`
	PathsUsedToday    []string          `json:"paths_used_today"`
	DailyMaxPaths     int               `json:"daily_max_paths"`
	RemainingToday    int               `json:"remaining_today"`
	FullCoverageWeeks int               `json:"full_coverage_weeks"`
}

func (e Engine) WeeklySummary(ctx context.Context, now time.Time) (Summary, error) {
	if now.IsZero() {
		now = e.now()
	}
	st, err := e.LoadState(ctx)
	if err != nil {
		return Summary{}, err
	}
	active := st.Catalog.ActivePaths()
	weekly := coverage.WeeklyCoverage(active, st.Logs, st.Settings, now)
	used := coverage.PathsUsedToday(st.Logs, now)
	s := Summary{
		Now:               now,
		Week:              weekly.Interval,
		Missing:           weekly.MissingIDs(),
		PathsUsedToday:    used,
		DailyMaxPaths:     st.Settings.DailyMaxPaths,
		RemainingToday:    max(st.Settings.DailyMaxPaths-len(used), 0),
		FullCoverageWeeks: FullCoverageWeeks(active, st.Logs, st.Settings.WeekStartsOn, now.Location()),
	}
	for _, p := range active {
		s.Paths = append(s.Paths, PathProgress{Path: p, Count: weekly.Counts[p.ID], Target: p.EffectiveWeeklyTarget()})
	}
	return s, nil
}

// FullCoverageWeeks counts the weeks in which every given path has at least one log.
// Weeks are computed in loc.
func FullCoverageWeeks(active []domain.Path, logs []domain.Log, weekStart time.Weekday, loc *time.Location) int {
	if len(active) == 0 {
		return 0
	}
	weeks := map[string]map[string]bool{}
	for _, l := range logs {
		key := calendar.StartOfWeek(l.StartedAt.In(loc), weekStart).Format(time.DateOnly)
		if weeks[key] == nil {
			weeks[key] = map[string]bool{}
		}
		weeks[key][l.PathID] = true
	}
	n := 0
	for _, seen := range weeks {
		full := true
		for _, p := range active {
			if !seen[p.ID] {
				full = false
				break
			}
		}
		if full {
			n++
		}
	}
	return n
}

var csvHeader = []string{"date", "path", "container", "limits", "outcome", "duration", "exportUri"}

// LogsCSV writes every log, newest first. Names that no longer resolve are left blank.
func (e Engine) LogsCSV(ctx context.Context, w io.Writer) error {
	snap, err := e.Export(ctx)
	if err != nil {
		return err
	}
	return WriteLogsCSV(w, snap)
}

func WriteLogsCSV(w io.Writer, snap domain.Snapshot) error {
	prompts := make(map[string]domain.Prompt, len(snap.Prompts))
	for _, p := range snap.Prompts {
		prompts[p.ID] = p
	}
	containers := map[string]string{}
	for _, c := range snap.Containers {
		containers[c.ID] = c.Name
	}
	limits := map[string]string{}
	for _, l := range snap.Limits {
		limits[l.ID] = l.Name
	}
	paths := snap.PathNames()

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, l := range snap.Logs {
		var container, limitNames string
		if p, ok := prompts[l.PromptID]; ok {
			container = containers[p.ContainerID]
			var names []string
			for _, id := range p.LimitIDs {
				if n := limits[id]; n != "" {
					names = append(names, n)
				}
			}
			limitNames = strings.Join(names, " | ")
		}
		duration := ""
		if l.DurationMin != nil {
			duration = strconv.Itoa(*l.DurationMin)
		}
		row := []string{calendar.FormatISO(l.StartedAt), paths[l.PathID], container, limitNames, string(l.Outcome), duration, l.ExportURI}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write log %s: %w", l.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
