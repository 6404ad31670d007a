package cli

import (
	"context"
	"fmt"

	"tension-cli/internal/render"

	"github.com/spf13/cobra"
)

func newRenderCmd(app *App) *cobra.Command {
	var (
		raw   bool
		width int
		style string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the current chart as markdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(context.Background(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()

			md := render.ChartMarkdown(s.chart.Title, s.board.Snapshot(), s.dueOrder())
			if raw {
				_, err = fmt.Fprint(cmd.OutOrStdout(), md)
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), render.Markdown(md, width, style))
			return err
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the markdown source")
	cmd.Flags().IntVar(&width, "width", 80, "Wrap width")
	cmd.Flags().StringVar(&style, "style", "dark", "Glamour style (dark|light|notty|ascii|dracula)")
	return cmd
}
