package reorder

import (
	"tension-cli/internal/board"
	"tension-cli/internal/model"
	"tension-cli/internal/persist"
)

// cascadeRule propagates a tension's new area to one dependent table. Rules
// never trigger further rules, so a move touches at most two hops:
// tension → its actions, tension → the visions of its child chart.
type cascadeRule struct {
	From  model.Table
	To    model.Table
	apply func(s *board.Snapshot, t model.Tension, area *string) []persist.Call
}

var cascades = []cascadeRule{
	{From: model.TableTensions, To: model.TableActions, apply: cascadeActions},
	{From: model.TableTensions, To: model.TableVisions, apply: cascadeChildVisions},
}

func applyCascades(s *board.Snapshot, tensionID string, area *string) []persist.Call {
	t, ok := s.FindTension(tensionID)
	if !ok {
		return nil
	}
	var calls []persist.Call
	for _, r := range cascades {
		if r.From != model.TableTensions {
			continue
		}
		calls = append(calls, r.apply(s, t, area)...)
	}
	return calls
}

func cascadeActions(s *board.Snapshot, t model.Tension, area *string) []persist.Call {
	var calls []persist.Call
	for i := range t.Actions {
		if model.SameID(t.Actions[i].AreaID, area) {
			continue
		}
		t.Actions[i].AreaID = model.StrPtr(model.Deref(area))
		calls = append(calls, moveCall(board.Ref{Table: model.TableActions, ID: t.Actions[i].ID}, persist.GroupFields{
			AreaID: t.Actions[i].AreaID, SetArea: true,
		}))
	}
	if len(calls) > 0 {
		s.SetTension(t)
	}
	return calls
}

func cascadeChildVisions(s *board.Snapshot, t model.Tension, area *string) []persist.Call {
	child := model.Deref(t.ChildChartID)
	if child == "" {
		return nil
	}
	var calls []persist.Call
	for i := range s.ChildVisions {
		v := &s.ChildVisions[i]
		if v.ChartID != child || model.SameID(v.AreaID, area) {
			continue
		}
		v.AreaID = model.StrPtr(model.Deref(area))
		calls = append(calls, moveCall(board.Ref{Table: model.TableVisions, ID: v.ID}, persist.GroupFields{
			AreaID: v.AreaID, SetArea: true,
		}))
	}
	return calls
}
