package cli

import (
	"context"
	"errors"
	"strings"

	"tension-cli/internal/partition"
	"tension-cli/internal/reorder"

	"github.com/spf13/cobra"
)

func newDragCmd(app *App) *cobra.Command {
	var (
		onto      string
		zone      string
		cascade   bool
		clearArea bool
	)

	cmd := &cobra.Command{
		Use:   "drag <id>",
		Short: "Drop an item onto another item or into a zone",
		Long: strings.TrimSpace(`
Drop an item onto another item (--onto) or into a zone (--zone).

Dropping onto an item of the same partition reorders; dropping onto an item of
another partition (or into a zone) moves it to the end of that partition.
Dropping an action onto a tension moves the action into the tension; dropping
anything onto an area header moves it into that area.

Zones are partition keys:
  visions:<area-id|uncategorized>
  realities:<area-id|uncategorized>
  tensions:<area-id|uncategorized>
  actions:<tension-id>
  actions:loose[@<area-id|uncategorized>]

A drop that changes nothing prints {"changed": false}.
`),
		Example: strings.TrimSpace(`
  tension drag vis-7fj2k9qa --onto vis-0c3m1d8e
  tension drag act-k2m4q7xa --zone actions:loose@area-2b9xq4ce
  tension drag ten-3hw8c1vd --zone tensions:area-2b9xq4ce --cascade
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (onto == "") == (zone == "") {
				return writeErr(cmd, errors.New("exactly one of --onto or --zone is required"))
			}
			ev := reorder.Event{DraggedID: strings.TrimSpace(args[0]), DropTargetID: strings.TrimSpace(onto), ClearArea: clearArea}
			if zone != "" {
				k, err := partition.ParseKey(zone)
				if err != nil {
					return writeErr(cmd, err)
				}
				ev.Zone = &k
			}

			ctx := context.Background()
			s, err := openSession(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()

			ev.Cascade = app.cfg.CascadeArea
			if cmd.Flags().Changed("cascade") {
				ev.Cascade = cascade
			}
			out, err := s.settle(s.sync.Drop(ctx, ev))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: resultOf(out)})
		},
	}

	cmd.Flags().StringVar(&onto, "onto", "", "Drop target id")
	cmd.Flags().StringVar(&zone, "zone", "", "Drop zone (partition key)")
	cmd.Flags().BoolVar(&cascade, "cascade", false, "Carry a tension's new area to its actions and child chart visions (default from config cascadeArea)")
	cmd.Flags().BoolVar(&clearArea, "clear-area", false, "When an action leaves its tension for the loose zone, drop its area")
	return cmd
}
