// Package ux styles terminal output for the cbd CLI.
package ux

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kexinhan12/creativeBucketDice/internal/domain"
)

var (
	ColorAccent  = lipgloss.Color("#0EA5E9")
	ColorSuccess = lipgloss.Color("#22C55E")
	ColorWarning = lipgloss.Color("#EAB308")
	ColorMuted   = lipgloss.Color("#6B7280")
)

var Styles = struct {
	Title      lipgloss.Style
	Muted      lipgloss.Style
	Success    lipgloss.Style
	Warning    lipgloss.Style
	PromptBox  lipgloss.Style
	WarningBox lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorAccent),
	Muted:   lipgloss.NewStyle().Foreground(ColorMuted),
	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	PromptBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorAccent).
		Padding(0, 1),
	WarningBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorWarning).
		Padding(0, 1),
}

// PathName renders the name in the path's own color, or plain when it has none.
func PathName(p domain.Path) string {
	if p.Color == "" {
		return p.Name
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.Color)).Render(p.Name)
}

// Prompt frames prompt text under the path name.
func Prompt(p domain.Path, text string) string {
	return Styles.PromptBox.Render(PathName(p) + "\n\n" + text)
}

func Blocked(msg string) string {
	return Styles.WarningBox.Render(Styles.Warning.Render("Blocked") + "\n" + msg)
}

// Progress renders count/target with a check once the target is met.
func Progress(count, target int) string {
	s := fmt.Sprintf("%d/%d", count, target)
	if count >= target {
		return Styles.Success.Render(s + " ✓")
	}
	return s
}

// Pips draws used slots out of max, e.g. ●●○.
func Pips(used, max int) string {
	if max <= 0 {
		return Styles.Muted.Render("-")
	}
	used = min(used, max)
	return strings.Repeat("●", used) + Styles.Muted.Render(strings.Repeat("○", max-used))
}

// FormatDate renders the local date of t, or domain.Placeholder when unset.
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return domain.Placeholder
	}
	return t.Local().Format(time.DateOnly)
}

// FormatDateTime renders the local date and minute of t.
func FormatDateTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return domain.Placeholder
	}
	return t.Local().Format("2006-01-02 15:04")
}
