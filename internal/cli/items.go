package cli

import (
	"context"
	"fmt"
	"strings"

	"tension-cli/internal/model"
	"tension-cli/internal/persist"

	"github.com/spf13/cobra"
)

func newAddCmd(app *App) *cobra.Command {
	var (
		area        string
		due         string
		tension     string
		description string
		status      string
		visions     []string
		realities   []string
	)

	cmd := &cobra.Command{
		Use:   "add <vision|reality|tension|action> <title>",
		Short: "Add an item at the end of its partition",
		Example: strings.TrimSpace(`
  tension add vision "Run a marathon" --area Health
  tension add reality "Can run 5k" --due 2026-11-01
  tension add tension "Build endurance" --vision vis-7fj2k9qa --reality rea-0c3m1d8e
  tension add action "Buy shoes" --tension ten-3hw8c1vd
`),
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, ok := model.ParseTable(args[0])
			if !ok || table == model.TableAreas {
				return writeErr(cmd, fmt.Errorf("unknown kind %q (expected vision|reality|tension|action)", args[0]))
			}

			ctx := context.Background()
			s, err := openSession(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()

			snap := s.board.Snapshot()
			f := persist.Fields{
				Title:       strings.Join(args[1:], " "),
				Description: description,
				Status:      status,
				VisionIDs:   visions,
				RealityIDs:  realities,
				TensionID:   model.StrPtr(tension),
				DueDate:     model.StrPtr(due),
			}
			if f.AreaID, err = resolveArea(snap, area); err != nil {
				return writeErr(cmd, err)
			}

			p, err := s.sync.Create(ctx, table, f)
			if err != nil {
				return writeErr(cmd, err)
			}
			out, err := s.settle(p)
			if err != nil {
				return writeErr(cmd, err)
			}
			res := resultOf(out)
			res.Item = entityView(s.board.Snapshot(), out.CreatedID)
			return writeOut(cmd, app, envelope{Data: res})
		},
	}

	cmd.Flags().StringVar(&area, "area", "", "Area id or name")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD); dated items sort by date")
	cmd.Flags().StringVar(&tension, "tension", "", "Owning tension (actions only)")
	cmd.Flags().StringVar(&description, "description", "", "Description, markdown (tensions only)")
	cmd.Flags().StringVar(&status, "status", "", "Status (tensions only): active|resolved")
	cmd.Flags().StringSliceVar(&visions, "vision", nil, "Linked vision id (tensions only; repeatable)")
	cmd.Flags().StringSliceVar(&realities, "reality", nil, "Linked reality id (tensions only; repeatable)")
	return cmd
}

func newEditCmd(app *App) *cobra.Command {
	var (
		title       string
		due         string
		clearDue    bool
		status      string
		done        bool
		description string
		name        string
		color       string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit fields of an item",
		Long: strings.TrimSpace(`
Edit fields of an item. Only flags that are given are changed.

Clearing the due date of an item moves it to the end of its undated list.
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch persist.Patch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("status") {
				patch.Status = &status
			}
			if flags.Changed("done") {
				patch.Done = &done
			}
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("color") {
				patch.Color = &color
			}
			switch {
			case clearDue && flags.Changed("due"):
				return writeErr(cmd, fmt.Errorf("--due and --clear-due are mutually exclusive"))
			case clearDue:
				patch.SetDueDate = true
			case flags.Changed("due"):
				patch.SetDueDate = true
				patch.DueDate = model.StrPtr(due)
			}

			ctx := context.Background()
			s, err := openSession(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()

			p, err := s.sync.Edit(ctx, args[0], patch)
			if err != nil {
				return writeErr(cmd, err)
			}
			out, err := s.settle(p)
			if err != nil {
				return writeErr(cmd, err)
			}
			res := resultOf(out)
			if res.Changed {
				res.Item = entityView(s.board.Snapshot(), args[0])
			}
			return writeOut(cmd, app, envelope{Data: res})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "Remove the due date")
	cmd.Flags().StringVar(&status, "status", "", "Tension status: active|resolved")
	cmd.Flags().BoolVar(&done, "done", false, "Mark an action done (--done=false to reopen)")
	cmd.Flags().StringVar(&description, "description", "", "Tension description (markdown)")
	cmd.Flags().StringVar(&name, "name", "", "Area name")
	cmd.Flags().StringVar(&color, "color", "", "Area color")
	return cmd
}
