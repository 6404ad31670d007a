package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"tension-cli/internal/board"

	"github.com/spf13/cobra"
)

type deleteResult struct {
	Deleted *board.Ref `json:"deleted,omitempty"`
	Undone  *board.Ref `json:"undone,omitempty"`
	Grace   string     `json:"grace,omitempty"`
}

func newDeleteCmd(app *App) *cobra.Command {
	var (
		now   bool
		grace time.Duration
	)

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an item after a grace window (Ctrl-C undoes)",
		Long: `Delete an item. The item disappears at once but is only removed from the
store when the grace window ends; interrupting the command (Ctrl-C) before
that puts it back. Deleting a tension deletes its actions too.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, err := openSession(ctx, app, withGrace(grace))
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()

			h, err := s.sched.Schedule(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			ref := h.Ref

			if now {
				if err := s.sched.Flush(ctx); err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, envelope{Data: deleteResult{Deleted: &ref}})
			}

			grace := s.sched.Grace()
			fmt.Fprintf(cmd.ErrOrStderr(), "deleting %s in %s; press Ctrl-C to undo\n", ref, grace)
			sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()

			for {
				select {
				case <-sigCtx.Done():
					if h.Cancel() {
						return writeOut(cmd, app, envelope{Data: deleteResult{Undone: &ref}})
					}
					// Interrupted after the commit started; wait for it to settle.
					sigCtx = context.Background()
				case r := <-s.settled:
					if r.Ref.ID != ref.ID {
						continue
					}
					if r.Failure != nil {
						return writeErr(cmd, *r.Failure)
					}
					return writeOut(cmd, app, envelope{Data: deleteResult{Deleted: &ref, Grace: grace.String()}})
				}
			}
		},
	}

	cmd.Flags().BoolVar(&now, "now", false, "Delete without a grace window")
	cmd.Flags().DurationVar(&grace, "grace", 0, "Grace window (default from config graceWindow)")
	return cmd
}
