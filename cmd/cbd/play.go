package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kexinhan12/creativeBucketDice/internal/domain"
	"github.com/kexinhan12/creativeBucketDice/internal/engine"
	"github.com/kexinhan12/creativeBucketDice/internal/repo"
	"github.com/kexinhan12/creativeBucketDice/internal/ux"
)

func generateCmd() *cobra.Command {
	var dryRun bool
	var nowStr string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Roll a prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := nowFlag(nowStr)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				out, err := e.Generate(ctx, now, !dryRun)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				cat, err := e.Repo.LoadCatalog(ctx)
				if err != nil {
					return err
				}
				if out.IsBlocked() {
					fmt.Println(ux.Blocked(out.Blocked.Message(cat.PathNames())))
					return nil
				}
				p, _ := cat.Path(out.Prompt.PathID)
				fmt.Println(ux.Prompt(p, out.Prompt.Text))
				if dryRun {
					fmt.Println(ux.Styles.Muted.Render("preview only; nothing saved"))
				} else {
					fmt.Println(ux.Styles.Muted.Render("prompt " + out.Prompt.ID))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview without saving")
	cmd.Flags().StringVar(&nowStr, "now", "", "generate as of this instant")
	return cmd
}

func promptCmd() *cobra.Command {
	p := &cobra.Command{Use: "prompt", Short: "Inspect generated prompts"}
	var n int
	list := &cobra.Command{
		Use:   "list",
		Short: "List prompts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				prompts, err := e.ListPrompts(ctx, n)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(prompts)
				}
				names, err := pathNames(ctx, e)
				if err != nil {
					return err
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Created", "Path", "Limits", "Seed"})
				for _, pr := range prompts {
					created := pr.CreatedAt
					tw.AppendRow(table.Row{pr.ID, ux.FormatDateTime(&created), names[pr.PathID], len(pr.LimitIDs), pr.Seed})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().IntVar(&n, "n", 20, "number of prompts (0 for all)")
	show := &cobra.Command{
		Use:   "last",
		Short: "Show the most recent prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				pr, err := e.LastPrompt(ctx)
				if engine.IsNotFound(err) {
					return fmt.Errorf("no prompts yet; run cbd generate")
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(pr)
				}
				cat, err := e.Repo.LoadCatalog(ctx)
				if err != nil {
					return err
				}
				path, _ := cat.Path(pr.PathID)
				fmt.Println(ux.Prompt(path, pr.Text))
				return nil
			})
		},
	}
	p.AddCommand(list, show)
	return p
}

func logCmd() *cobra.Command {
	l := &cobra.Command{Use: "log", Short: "Record and review sessions"}
	l.AddCommand(logAddCmd())
	l.AddCommand(logListCmd())
	l.AddCommand(logDeleteCmd())
	l.AddCommand(logCSVCmd())
	return l
}

func logAddCmd() *cobra.Command {
	var promptID, pathID, started, ended, outcome, exportURI, notes string
	var duration int
	var last bool
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Log a session against a prompt or a path",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := engine.LogInput{PromptID: promptID, PathID: pathID, Outcome: domain.Outcome(outcome), ExportURI: exportURI, Notes: notes}
			if started != "" {
				t, err := parseTime(started)
				if err != nil {
					return err
				}
				in.StartedAt = t
			}
			var err error
			if in.EndedAt, err = optionalTime(ended); err != nil {
				return err
			}
			if cmd.Flags().Changed("duration") {
				in.DurationMin = &duration
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if last && in.PromptID == "" {
					pr, err := e.LastPrompt(ctx)
					if err != nil && !engine.IsNotFound(err) {
						return err
					}
					in.PromptID = pr.ID
				}
				saved, err := e.SaveLog(ctx, in)
				if err != nil {
					return err
				}
				return printRecord(saved, logRows(saved)...)
			})
		},
	}
	cmd.Flags().StringVar(&promptID, "prompt", "", "prompt id")
	cmd.Flags().BoolVar(&last, "last", false, "log against the most recent prompt")
	cmd.Flags().StringVar(&pathID, "path", "", "path id (defaults to the prompt's path)")
	cmd.Flags().StringVar(&started, "started", "", "start time (default now)")
	cmd.Flags().StringVar(&ended, "ended", "", "end time")
	cmd.Flags().IntVar(&duration, "duration", 0, "duration in minutes")
	cmd.Flags().StringVar(&outcome, "outcome", string(domain.OutcomeCompleted), "completed, aborted or skipped")
	cmd.Flags().StringVar(&exportURI, "export-uri", "", "link to the produced artifact")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	return cmd
}

func logListCmd() *cobra.Command {
	var f repo.LogFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List logs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				logs, err := e.ListLogs(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(logs)
				}
				names, err := pathNames(ctx, e)
				if err != nil {
					return err
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Started", "Path", "Outcome", "Minutes", "Export"})
				for _, l := range logs {
					started := l.StartedAt
					minutes := domain.Placeholder
					if l.DurationMin != nil {
						minutes = fmt.Sprint(*l.DurationMin)
					}
					tw.AppendRow(table.Row{l.ID, ux.FormatDateTime(&started), names[l.PathID], l.Outcome, minutes, l.ExportURI})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.PathID, "path", "", "path filter")
	cmd.Flags().StringVar(&f.Outcome, "outcome", "", "outcome filter")
	return cmd
}

func logDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a log; this reopens the daily and weekly gates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteLog(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
}

func logCSVCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Export logs as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if out == "" || out == "-" {
					return e.LogsCSV(ctx, os.Stdout)
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				if err := e.LogsCSV(ctx, f); err != nil {
					f.Close()
					return err
				}
				return f.Close()
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func summaryCmd() *cobra.Command {
	var nowStr string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Weekly coverage and today's usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := nowFlag(nowStr)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.WeeklySummary(ctx, now)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(s)
				}
				start, end := s.Week.Start, s.Week.End
				fmt.Println(ux.Styles.Title.Render(fmt.Sprintf("Week %s to %s", ux.FormatDate(&start), ux.FormatDate(&end))))
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Path", "This week"})
				for _, p := range s.Paths {
					tw.AppendRow(table.Row{ux.PathName(p.Path), ux.Progress(p.Count, p.Target)})
				}
				tw.Render()
				names, err := pathNames(ctx, e)
				if err != nil {
					return err
				}
				used := make([]string, 0, len(s.PathsUsedToday))
				for _, id := range s.PathsUsedToday {
					used = append(used, names[id])
				}
				fmt.Printf("Today %s %d/%d paths used", ux.Pips(len(s.PathsUsedToday), s.DailyMaxPaths), len(s.PathsUsedToday), s.DailyMaxPaths)
				if len(used) > 0 {
					fmt.Printf(" (%s)", strings.Join(used, ", "))
				}
				fmt.Println()
				fmt.Printf("Full-coverage weeks: %d\n", s.FullCoverageWeeks)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&nowStr, "now", "", "summarise as of this instant")
	return cmd
}

func pathNames(ctx context.Context, e engine.Engine) (map[string]string, error) {
	cat, err := e.Repo.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return cat.PathNames(), nil
}
