package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kexinhan12/creativeBucketDice/internal/domain"
	"github.com/kexinhan12/creativeBucketDice/internal/engine"
	"github.com/kexinhan12/creativeBucketDice/internal/repo"
	"github.com/kexinhan12/creativeBucketDice/internal/ux"
)

func pathCmd() *cobra.Command {
	p := &cobra.Command{Use: "path", Short: "Manage paths"}
	p.AddCommand(pathListCmd())
	p.AddCommand(pathAddCmd())
	p.AddCommand(pathUpdateCmd())
	p.AddCommand(pathArchiveCmd())
	p.AddCommand(pathRemoveCmd())
	return p
}

func pathListCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List paths with their containers, entry points and limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				cat, err := e.Repo.LoadCatalog(ctx)
				if err != nil {
					return err
				}
				paths := cat.Paths
				if !all {
					paths = cat.ActivePaths()
				}
				if viper.GetBool("json") {
					if all {
						return printJSON(cat)
					}
					return printJSON(paths)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Active", "Target", "Containers", "Entries", "Limits"})
				for _, p := range paths {
					tw.AppendRow(table.Row{
						p.ID, ux.PathName(p), p.Active, p.EffectiveWeeklyTarget(),
						len(cat.ContainersOf(p.ID)), len(cat.EntryPointsOf(p.ID)), len(cat.LimitsFor(p.ID)),
					})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include archived paths")
	return cmd
}

func pathAddCmd() *cobra.Command {
	var name, color string
	var target int
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a path",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := engine.PathInput{Name: name, Color: color}
			if cmd.Flags().Changed("target") {
				in.WeeklyTarget = &target
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.AddPath(ctx, in)
				if err != nil {
					return err
				}
				return printRecord(p, pathRows(p)...)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "path name (unique, case-insensitive)")
	cmd.Flags().StringVar(&color, "color", "", "hex color, e.g. #0ea5e9")
	cmd.Flags().IntVar(&target, "target", domain.DefaultWeeklyTarget, "weekly target")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func pathUpdateCmd() *cobra.Command {
	var name, color string
	var target int
	var active bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var u repo.PathUpdate
			if cmd.Flags().Changed("name") {
				u.Name = &name
			}
			if cmd.Flags().Changed("color") {
				u.Color = &color
			}
			if cmd.Flags().Changed("target") {
				u.WeeklyTarget = &target
			}
			if cmd.Flags().Changed("active") {
				u.Active = &active
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.UpdatePath(ctx, args[0], u)
				if err != nil {
					return err
				}
				return printRecord(p, pathRows(p)...)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&color, "color", "", "hex color")
	cmd.Flags().IntVar(&target, "target", 0, "weekly target")
	cmd.Flags().BoolVar(&active, "active", true, "reactivate (true) or archive (false)")
	return cmd
}

func pathArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <id>",
		Short: "Deactivate a path, keeping its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.ArchivePath(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("archived", args[0])
				return nil
			})
		},
	}
}

func pathRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a path and its records; paths with logs are archived instead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				err := e.RemovePath(ctx, args[0])
				if errors.Is(err, engine.ErrArchivedInstead) {
					fmt.Println(ux.Styles.Warning.Render("Path has logs; archived instead."))
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Println("removed", args[0])
				return nil
			})
		},
	}
}

// childCmd builds the add/remove pair shared by containers and entry points.
func childCmd(use, short, detailFlag string,
	add func(context.Context, engine.Engine, string, engine.ChildInput) (any, []table.Row, error),
	remove func(engine.Engine) func(context.Context, string) error,
) *cobra.Command {
	parent := &cobra.Command{Use: use, Short: short}

	var pathID, name, detail string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add to a path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rec, rows, err := add(ctx, e, pathID, engine.ChildInput{Name: name, Detail: detail})
				if err != nil {
					return err
				}
				return printRecord(rec, rows...)
			})
		},
	}
	addCmd.Flags().StringVar(&pathID, "path", "", "owning path id")
	addCmd.Flags().StringVar(&name, "name", "", "name")
	addCmd.Flags().StringVar(&detail, detailFlag, "", detailFlag)
	_ = addCmd.MarkFlagRequired("name")

	removeCmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := remove(e)(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("removed", args[0])
				return nil
			})
		},
	}
	parent.AddCommand(addCmd, removeCmd)
	return parent
}

func containerCmd() *cobra.Command {
	cmd := childCmd("container", "Manage containers", "description",
		func(ctx context.Context, e engine.Engine, pathID string, in engine.ChildInput) (any, []table.Row, error) {
			c, err := e.AddContainer(ctx, pathID, in)
			return c, childRows(c.ID, c.PathID, c.Name, "description", c.Description), err
		},
		func(e engine.Engine) func(context.Context, string) error { return e.RemoveContainer },
	)
	markPathRequired(cmd)
	return cmd
}

func entryCmd() *cobra.Command {
	cmd := childCmd("entry", "Manage entry points", "description",
		func(ctx context.Context, e engine.Engine, pathID string, in engine.ChildInput) (any, []table.Row, error) {
			ep, err := e.AddEntryPoint(ctx, pathID, in)
			return ep, childRows(ep.ID, ep.PathID, ep.Name, "description", ep.Description), err
		},
		func(e engine.Engine) func(context.Context, string) error { return e.RemoveEntryPoint },
	)
	markPathRequired(cmd)
	return cmd
}

// limitCmd scopes new limits with --path; GLOBAL or an omitted flag means every path.
func limitCmd() *cobra.Command {
	cmd := childCmd("limit", "Manage limits", "formula",
		func(ctx context.Context, e engine.Engine, pathID string, in engine.ChildInput) (any, []table.Row, error) {
			l, err := e.AddLimit(ctx, domain.ParseLimitScope(pathID), in)
			scope := l.Scope.PathID()
			if l.Scope.IsGlobal() {
				scope = domain.GlobalScopeID
			}
			return l, childRows(l.ID, scope, l.Name, "formula", l.Formula), err
		},
		func(e engine.Engine) func(context.Context, string) error { return e.RemoveLimit },
	)
	for _, c := range cmd.Commands() {
		if f := c.Flags().Lookup("path"); f != nil {
			f.Usage = "owning path id, or GLOBAL"
		}
	}
	return cmd
}

func childRows(id, pathID, name, detailLabel, detail string) []table.Row {
	return []table.Row{{"id", id}, {"path", pathID}, {"name", name}, {detailLabel, detail}}
}

func markPathRequired(parent *cobra.Command) {
	for _, c := range parent.Commands() {
		if c.Flags().Lookup("path") != nil {
			_ = c.MarkFlagRequired("path")
		}
	}
}
