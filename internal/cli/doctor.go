package cli

import (
	"context"
	"errors"
	"fmt"

	"tension-cli/internal/board"
	"tension-cli/internal/model"
	"tension-cli/internal/partition"

	"github.com/spf13/cobra"
)

var errDoctorIssuesFound = errors.New("doctor found issues")

type doctorIssue struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	IDs     []string `json:"ids"`
}

type doctorReport struct {
	Issues []doctorIssue `json:"issues"`
}

func (r doctorReport) TableHeader() []string { return []string{"KIND", "MESSAGE"} }

func (r doctorReport) TableRows() [][]string {
	out := make([][]string, 0, len(r.Issues))
	for _, is := range r.Issues {
		out = append(out, []string{is.Kind, is.Message})
	}
	return out
}

// diagnose checks ordering-key uniqueness and references that no longer
// resolve. Dangling references are harmless (they fall back to the
// uncategorized or loose groups) but worth knowing about.
func diagnose(s board.Snapshot) doctorReport {
	r := doctorReport{Issues: []doctorIssue{}}
	for _, v := range partition.Validate(s) {
		r.Issues = append(r.Issues, doctorIssue{
			Kind:    "duplicateOrder",
			Message: fmt.Sprintf("%s: sort order %d shared by %d items", v.Key, v.SortOrder, len(v.IDs)),
			IDs:     v.IDs,
		})
	}
	danglingArea := func(table model.Table, id string, area *string) {
		if a := model.Deref(area); a != "" && !s.HasArea(a) {
			r.Issues = append(r.Issues, doctorIssue{
				Kind:    "danglingArea",
				Message: fmt.Sprintf("%s/%s refers to missing area %s", table, id, a),
				IDs:     []string{id},
			})
		}
	}
	for _, it := range s.Visions {
		danglingArea(model.TableVisions, it.ID, it.AreaID)
	}
	for _, it := range s.Realities {
		danglingArea(model.TableRealities, it.ID, it.AreaID)
	}
	for _, it := range s.LooseActions {
		danglingArea(model.TableActions, it.ID, it.AreaID)
	}
	for _, t := range s.Tensions {
		danglingArea(model.TableTensions, t.ID, t.AreaID)
		for _, it := range t.Actions {
			danglingArea(model.TableActions, it.ID, it.AreaID)
		}
		for _, vid := range t.VisionIDs {
			if _, loc, ok := s.FindItem(vid); !ok || loc.Ref.Table != model.TableVisions {
				r.Issues = append(r.Issues, doctorIssue{Kind: "danglingLink", Message: fmt.Sprintf("tension %s links missing vision %s", t.ID, vid), IDs: []string{t.ID}})
			}
		}
		for _, rid := range t.RealityIDs {
			if _, loc, ok := s.FindItem(rid); !ok || loc.Ref.Table != model.TableRealities {
				r.Issues = append(r.Issues, doctorIssue{Kind: "danglingLink", Message: fmt.Sprintf("tension %s links missing reality %s", t.ID, rid), IDs: []string{t.ID}})
			}
		}
	}
	return r
}

func newDoctorCmd(app *App) *cobra.Command {
	var fail bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check ordering keys and references of the current chart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(context.Background(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()

			report := diagnose(s.board.Snapshot())
			hints := []string{}
			for _, is := range report.Issues {
				if is.Kind == "duplicateOrder" {
					hints = append(hints, "tension reindex")
					break
				}
			}
			if err := writeOut(cmd, app, envelope{
				Data:  report,
				Meta:  map[string]any{"issues": len(report.Issues)},
				Hints: hints,
			}); err != nil {
				return err
			}
			if fail && len(report.Issues) > 0 {
				return errDoctorIssuesFound
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fail, "fail", false, "Exit with non-zero status if issues are found")
	return cmd
}
