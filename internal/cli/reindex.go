package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newReindexCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Renumber every ordered partition to 0..n-1",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, err := openSession(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()

			out, err := s.settle(s.sync.Reindex(ctx))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: resultOf(out)})
		},
	}
}
