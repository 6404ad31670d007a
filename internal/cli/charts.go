package cli

import (
	"context"
	"strings"

	"tension-cli/internal/model"

	"github.com/spf13/cobra"
)

type chartList struct {
	Current string        `json:"current"`
	Charts  []model.Chart `json:"charts"`
}

func (l chartList) TableHeader() []string { return []string{"", "ID", "TITLE", "PARENT TENSION"} }

func (l chartList) TableRows() [][]string {
	out := make([][]string, 0, len(l.Charts))
	for _, c := range l.Charts {
		mark := ""
		if c.ID == l.Current {
			mark = "*"
		}
		out = append(out, []string{mark, c.ID, c.Title, model.Deref(c.ParentTensionID)})
	}
	return out
}

func newChartsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "charts",
		Short: "List, add and switch charts",
	}
	cmd.AddCommand(newChartsListCmd(app))
	cmd.AddCommand(newChartsAddCmd(app))
	cmd.AddCommand(newChartsUseCmd(app))
	return cmd
}

func newChartsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List charts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, err := openSession(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()

			charts, err := s.db.Charts(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: chartList{Current: s.chart.ID, Charts: charts}})
		},
	}
}

func newChartsAddCmd(app *App) *cobra.Command {
	var (
		parent string
		use    bool
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a chart, optionally as the breakdown of a tension",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, err := openSession(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()

			c, err := s.db.CreateChart(ctx, strings.Join(args, " "), model.StrPtr(parent))
			if err != nil {
				return writeErr(cmd, err)
			}
			if use {
				if err := s.db.SetCurrentChart(ctx, c.ID); err != nil {
					return writeErr(cmd, err)
				}
			}
			return writeOut(cmd, app, envelope{Data: c})
		},
	}
	cmd.Flags().StringVar(&parent, "tension", "", "Parent tension id (the chart breaks that tension down)")
	cmd.Flags().BoolVar(&use, "use", false, "Make the new chart current")
	return cmd
}

func newChartsUseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "use <chart-id>",
		Short: "Set the current chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, err := openSession(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()

			if err := s.db.SetCurrentChart(ctx, args[0]); err != nil {
				return writeErr(cmd, err)
			}
			c, err := s.db.Chart(ctx, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: c})
		},
	}
}
