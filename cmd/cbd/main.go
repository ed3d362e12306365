package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kexinhan12/creativeBucketDice/internal/app"
	"github.com/kexinhan12/creativeBucketDice/internal/db"
	"github.com/kexinhan12/creativeBucketDice/internal/domain"
	"github.com/kexinhan12/creativeBucketDice/internal/engine"
	"github.com/kexinhan12/creativeBucketDice/internal/logging"
	"github.com/kexinhan12/creativeBucketDice/internal/ux"
)

var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "cbd",
	Short: "Creative bucket dice",
	Long: `cbd rolls short creative practice prompts from your own catalog.
Core concepts:
- Path: a creative discipline (Writing, Music, ...) with an optional weekly target.
- Container: the shape of the output for a path (a 300 word tile, an A5 sketch).
- Entry point: an optional warm-up; attached to about half of the prompts.
- Limit: a constraint, either for one path or GLOBAL for every path.
- Daily cap: at most N distinct paths per local day, counted from logs.
- Weekly coverage: when required, the dice only land on paths still short of their target.
- Logs: what you actually did; deleting a log reopens the gates it counted toward.
- Event log: journal of changes, view with 'cbd events tail'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(viper.GetString("log-level"), viper.GetBool("verbose"))
		if err != nil {
			return err
		}
		logger = l
		_, err = db.EnsureWorkspace(viper.GetString("workspace"))
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("CBD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging to stderr")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(pathCmd())
	rootCmd.AddCommand(containerCmd())
	rootCmd.AddCommand(entryCmd())
	rootCmd.AddCommand(limitCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(promptCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(dataCmd())
	rootCmd.AddCommand(eventsCmd())
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	ws, err := app.Open(ctx, viper.GetString("workspace"), logger)
	if err != nil {
		return err
	}
	defer ws.Close()
	return fn(ctx, ws.Engine)
}

// printRecord prints v as JSON with --json, otherwise rows as a field/value table.
func printRecord(v any, rows ...table.Row) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Field", "Value"})
	tw.AppendRows(rows)
	tw.Render()
	return nil
}

func pathRows(p domain.Path) []table.Row {
	return []table.Row{
		{"id", p.ID},
		{"name", ux.PathName(p)},
		{"active", p.Active},
		{"weekly target", p.EffectiveWeeklyTarget()},
	}
}

func logRows(l domain.Log) []table.Row {
	minutes := domain.Placeholder
	if l.DurationMin != nil {
		minutes = fmt.Sprint(*l.DurationMin)
	}
	started := l.StartedAt
	return []table.Row{
		{"id", l.ID},
		{"prompt", l.PromptID},
		{"path", l.PathID},
		{"started", ux.FormatDateTime(&started)},
		{"ended", ux.FormatDateTime(l.EndedAt)},
		{"minutes", minutes},
		{"outcome", l.Outcome},
		{"export", l.ExportURI},
	}
}

func printJSON(v any) error {
	return writeJSON(os.Stdout, v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseTime accepts RFC 3339, or a local "2006-01-02 15:04" / "2006-01-02".
// The result is always in the local zone so day and week boundaries are local.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.Local(), nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04", time.DateOnly} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (use RFC 3339 or 2006-01-02 15:04)", s)
}

// nowFlag resolves an optional --now override; empty means the wall clock.
func nowFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	return parseTime(s)
}

func optionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseWeekday(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "sun", "sunday":
		return 0, nil
	case "1", "mon", "monday":
		return 1, nil
	}
	return 0, fmt.Errorf("week start must be sunday or monday, got %q", s)
}
