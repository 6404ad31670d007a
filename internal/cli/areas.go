package cli

import (
	"context"
	"strconv"
	"strings"

	"tension-cli/internal/model"
	"tension-cli/internal/partition"
	"tension-cli/internal/persist"

	"github.com/spf13/cobra"
)

type areaList []model.Area

func (l areaList) TableHeader() []string { return []string{"ID", "NAME", "COLOR", "ORDER"} }

func (l areaList) TableRows() [][]string {
	out := make([][]string, 0, len(l))
	for _, a := range l {
		out = append(out, []string{a.ID, a.Name, a.Color, strconv.Itoa(a.SortOrder)})
	}
	return out
}

func newAreasCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "areas",
		Short: "Manage the areas of the current chart",
	}
	cmd.AddCommand(newAreasListCmd(app))
	cmd.AddCommand(newAreasAddCmd(app))
	cmd.AddCommand(newAreasRenameCmd(app))
	cmd.AddCommand(newAreasDeleteCmd(app))
	return cmd
}

func newAreasListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List areas in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(context.Background(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()

			snap := s.board.Snapshot()
			out := areaList{}
			for _, m := range partition.Members(snap, partition.Key{Table: model.TableAreas, Group: snap.ChartID}, s.dueOrder()) {
				if a, ok := snap.FindArea(m.Ref.ID); ok {
					out = append(out, a)
				}
			}
			return writeOut(cmd, app, envelope{Data: out})
		},
	}
}

func newAreasAddCmd(app *App) *cobra.Command {
	var color string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an area at the end of the list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, err := openSession(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()

			p, err := s.sync.Create(ctx, model.TableAreas, persist.Fields{Name: strings.Join(args, " "), Color: color})
			if err != nil {
				return writeErr(cmd, err)
			}
			out, err := s.settle(p)
			if err != nil {
				return writeErr(cmd, err)
			}
			res := resultOf(out)
			if a, ok := s.board.Snapshot().FindArea(out.CreatedID); ok {
				res.Item = a
			}
			return writeOut(cmd, app, envelope{Data: res})
		},
	}
	cmd.Flags().StringVar(&color, "color", "", "Display color (lipgloss color, e.g. \"#7D56F4\" or \"205\")")
	return cmd
}

func newAreasRenameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <area> <name>",
		Short: "Rename an area (by id or current name)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, err := openSession(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()

			id, err := resolveArea(s.board.Snapshot(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if id == nil {
				return writeErr(cmd, persist.NotFoundError{Table: model.TableAreas, ID: args[0]})
			}
			name := strings.Join(args[1:], " ")
			p, err := s.sync.Edit(ctx, *id, persist.Patch{Name: &name})
			if err != nil {
				return writeErr(cmd, err)
			}
			out, err := s.settle(p)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: resultOf(out)})
		},
	}
}

func newAreasDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <area>",
		Short: "Delete an area; its items become uncategorized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, err := openSession(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()

			id, err := resolveArea(s.board.Snapshot(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if id == nil {
				return writeErr(cmd, persist.NotFoundError{Table: model.TableAreas, ID: args[0]})
			}
			h, err := s.sched.Schedule(*id)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := s.sched.Flush(ctx); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: map[string]any{"deleted": h.Ref}})
		},
	}
}
