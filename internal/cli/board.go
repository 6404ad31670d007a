package cli

import (
	"context"
	"strconv"
	"strings"

	"tension-cli/internal/board"
	"tension-cli/internal/model"
	"tension-cli/internal/partition"
	"tension-cli/internal/persist"
	"tension-cli/internal/render"

	"github.com/spf13/cobra"
)

type boardView struct {
	Chart    model.Chart    `json:"chart"`
	Snapshot board.Snapshot `json:"snapshot"`
	Rows     []render.Row   `json:"rows"`
}

func (v boardView) TableHeader() []string {
	return []string{"ID", "TITLE", "PARTITION", "ORDER", "DUE"}
}

func (v boardView) TableRows() [][]string {
	var out [][]string
	for _, r := range v.Rows {
		switch r.Kind {
		case render.RowArea:
			out = append(out, []string{r.Ref.ID, "[" + r.Title + "]", "", "", ""})
		case render.RowItem:
			title := strings.Repeat("  ", r.Depth) + r.Title
			if r.Done || r.Status == string(model.TensionResolved) {
				title += " ✓"
			}
			order := ""
			if r.Partition.Ordered() {
				order = strconv.Itoa(r.SortOrder)
			}
			out = append(out, []string{r.Ref.ID, title, r.Partition.String(), order, r.DueDate})
		}
	}
	return out
}

func newBoardCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Show the current chart grouped by area",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(context.Background(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()

			snap := s.board.Snapshot()
			return writeOut(cmd, app, envelope{
				Data: boardView{Chart: s.chart, Snapshot: snap, Rows: render.Rows(snap, s.dueOrder())},
				Meta: map[string]any{"items": snap.Len()},
			})
		},
	}
}

// entityDetail is one entity with where it sits on the board.
type entityDetail struct {
	Ref       board.Ref          `json:"ref"`
	Partition string             `json:"partition"`
	Index     int                `json:"index"`
	Members   []partition.Member `json:"siblings,omitempty"`
	Area      *model.Area        `json:"area,omitempty"`
	Tension   *model.Tension     `json:"tension,omitempty"`
	Item      *model.Item        `json:"item,omitempty"`
}

func entityView(snap board.Snapshot, id string) any {
	d, ok := describe(snap, id, partition.DueAscending)
	if !ok {
		return nil
	}
	d.Members = nil
	return d
}

func describe(snap board.Snapshot, id string, order partition.DueOrder) (entityDetail, bool) {
	loc, ok := snap.Locate(id)
	if !ok {
		return entityDetail{}, false
	}
	k, _ := partition.Resolve(snap, id)
	ms := partition.Members(snap, k, order)
	d := entityDetail{Ref: loc.Ref, Partition: k.String(), Index: partition.IndexOf(ms, id), Members: ms}
	switch loc.Ref.Table {
	case model.TableAreas:
		a := snap.Areas[loc.Index]
		d.Area = &a
	case model.TableTensions:
		t := snap.Tensions[loc.Index]
		d.Tension = &t
	default:
		it, _ := snap.Item(loc)
		d.Item = &it
	}
	return d, true
}

func newShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one item and its partition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(context.Background(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()

			d, ok := describe(s.board.Snapshot(), args[0], s.dueOrder())
			if !ok {
				return writeErr(cmd, persist.NotFoundError{Table: "items", ID: args[0]})
			}
			return writeOut(cmd, app, envelope{Data: d})
		},
	}
}
