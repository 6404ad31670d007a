package cli

import (
	"context"
	"log/slog"

	"tension-cli/internal/tui"

	"github.com/spf13/cobra"
)

func newTUICmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive board (also the default with no command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}
}

func runTUI(cmd *cobra.Command, app *App) error {
	// Log lines would tear the alternate screen; failures show in the status line.
	if app.LogLevel == "" {
		app.log = slog.New(slog.DiscardHandler)
	}
	s, err := openSession(context.Background(), app)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer s.close()

	m := tui.New(tui.Deps{
		Sync:          s.sync,
		Sched:         s.sched,
		Title:         s.chart.Title,
		Order:         s.dueOrder(),
		Cascade:       app.cfg.CascadeArea,
		Glyphs:        app.cfg.Glyphs(),
		MarkdownStyle: tui.DefaultMarkdownStyle(),
	})
	s.setFailureHook(m.Notify)
	return tui.Run(m)
}
