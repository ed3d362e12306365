package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kexinhan12/creativeBucketDice/internal/config"
	"github.com/kexinhan12/creativeBucketDice/internal/db"
	"github.com/kexinhan12/creativeBucketDice/internal/domain"
	"github.com/kexinhan12/creativeBucketDice/internal/engine"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the workspace database and a commented cbd.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
					return err
				}
				fmt.Println("wrote", path)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				cat, err := e.Repo.LoadCatalog(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"db": db.Path(workspace), "config": path, "paths": len(cat.Paths)})
				}
				fmt.Printf("workspace ready: %s (%d paths)\n", db.Path(workspace), len(cat.Paths))
				return nil
			})
		},
	}
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect cbd.yml",
		Long:  "cbd.yml seeds a fresh workspace: default settings and whether to load the example catalog. Once the database holds settings, use 'cbd settings' to change them.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective config (defaults when cbd.yml is absent)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			out, err := cfg.Marshal()
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate cbd.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.Load(viper.GetString("workspace"))
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func settingsCmd() *cobra.Command {
	s := &cobra.Command{Use: "settings", Short: "Show or change generation settings"}
	s.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show stored settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				st, err := e.Settings(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(st)
				}
				printSettings(st)
				return nil
			})
		},
	})
	s.AddCommand(settingsSetCmd())
	return s
}

func settingsSetCmd() *cobra.Command {
	var seed, weekStart string
	var dailyMax, limitsMin, limitsMax int
	var requireCoverage bool
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change settings; only the given flags are updated",
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch engine.SettingsPatch
			flags := cmd.Flags()
			if flags.Changed("seed") {
				patch.Seed = &seed
			}
			if flags.Changed("daily-max") {
				patch.DailyMaxPaths = &dailyMax
			}
			if flags.Changed("require-coverage") {
				patch.RequireWeeklyCoverage = &requireCoverage
			}
			if flags.Changed("week-starts-on") {
				wd, err := parseWeekday(weekStart)
				if err != nil {
					return err
				}
				patch.WeekStartsOn = &wd
			}
			if flags.Changed("limits-min") {
				patch.LimitsMin = &limitsMin
			}
			if flags.Changed("limits-max") {
				patch.LimitsMax = &limitsMax
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				st, err := e.SetSettings(ctx, patch)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(st)
				}
				printSettings(st)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&seed, "seed", "", "seed folded into every roll; empty clears it")
	cmd.Flags().IntVar(&dailyMax, "daily-max", 2, "distinct paths per day")
	cmd.Flags().BoolVar(&requireCoverage, "require-coverage", true, "bias toward paths short of their weekly target")
	cmd.Flags().StringVar(&weekStart, "week-starts-on", "monday", "monday or sunday")
	cmd.Flags().IntVar(&limitsMin, "limits-min", 2, "minimum limits per prompt")
	cmd.Flags().IntVar(&limitsMax, "limits-max", 3, "maximum limits per prompt")
	return cmd
}

func printSettings(s domain.Settings) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Setting", "Value"})
	seed := s.Seed
	if seed == "" {
		seed = "(time only)"
	}
	tw.AppendRows([]table.Row{
		{"seed", seed},
		{"daily max paths", s.DailyMaxPaths},
		{"require weekly coverage", s.RequireWeeklyCoverage},
		{"week starts on", s.WeekStartsOn},
		{"limits per prompt", fmt.Sprintf("%d-%d", s.LimitsPerPrompt.Min, s.LimitsPerPrompt.Max)},
	})
	tw.Render()
}

func dataCmd() *cobra.Command {
	d := &cobra.Command{Use: "data", Short: "Export, import or reset all workspace data"}

	var out string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				snap, err := e.Export(ctx)
				if err != nil {
					return err
				}
				if out == "" || out == "-" {
					return printJSON(snap)
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				return writeJSON(f, snap)
			})
		},
	}
	export.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")

	importCmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace all data with a JSON snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = os.Stdin
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			snap, err := engine.DecodeSnapshot(r)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.Import(ctx, snap); err != nil {
					return err
				}
				fmt.Printf("imported %d paths, %d prompts, %d logs\n", len(snap.Paths), len(snap.Prompts), len(snap.Logs))
				return nil
			})
		},
	}

	var yes bool
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Delete everything and restore the example catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("reset deletes all paths, prompts and logs; pass --yes to confirm")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.Reset(ctx); err != nil {
					return err
				}
				fmt.Println("workspace reset")
				return nil
			})
		},
	}
	reset.Flags().BoolVar(&yes, "yes", false, "confirm")

	d.AddCommand(export, importCmd, reset)
	return d
}

func eventsCmd() *cobra.Command {
	ev := &cobra.Command{Use: "events", Short: "Inspect the event journal"}
	var n int
	var evtType string
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show recent events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.LatestEvents(ctx, n, evtType)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"#", "TS", "Type", "Entity", "Payload"})
				for _, evt := range events {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, evt.EntityKind + " " + evt.EntityID, evt.Payload})
				}
				tw.Render()
				return nil
			})
		},
	}
	tail.Flags().IntVar(&n, "n", 20, "number of events")
	tail.Flags().StringVar(&evtType, "type", "", "event type filter")
	ev.AddCommand(tail)
	return ev
}
