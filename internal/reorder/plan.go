// Package reorder turns drag, edit and create events into the next board
// snapshot plus the persistence calls that make it durable. Planning is pure:
// nothing here touches the board or the store.
package reorder

import (
	"strings"

	"tension-cli/internal/board"
	"tension-cli/internal/model"
	"tension-cli/internal/partition"
	"tension-cli/internal/persist"
)

type Kind string

const (
	Noop    Kind = "noop"
	Reorder Kind = "reorder"
	Move    Kind = "move"
	Edit    Kind = "edit"
	Create  Kind = "create"
	Reindex Kind = "reindex"
)

// Event is a drop. Zone, when set, wins over DropTargetID.
type Event struct {
	DraggedID    string
	DropTargetID string
	Zone         *partition.Key

	// Cascade propagates a tension's new area to its actions and to the
	// visions of its child chart.
	Cascade bool
	// ClearArea drops the area of an action that leaves its tension for a
	// loose zone without an area of its own.
	ClearArea bool
}

// Creation carries what the synchronizer needs to persist a new entity and
// swap its temporary id.
type Creation struct {
	Table  model.Table    `json:"table"`
	TempID string         `json:"tempId"`
	Fields persist.Fields `json:"fields"`
}

type Plan struct {
	Kind   Kind          `json:"kind"`
	Reason string        `json:"reason,omitempty"`
	Ref    board.Ref     `json:"ref,omitempty"`
	From   partition.Key `json:"from,omitempty"`
	To     partition.Key `json:"to,omitempty"`

	Next   board.Snapshot `json:"-"`
	Calls  []persist.Call `json:"calls,omitempty"`
	Create *Creation      `json:"create,omitempty"`
}

func (p Plan) Changed() bool { return p.Kind != Noop }

func noop(reason string) Plan { return Plan{Kind: Noop, Reason: reason} }

// PlanDrop classifies ev against s and computes the resulting snapshot.
func PlanDrop(s board.Snapshot, ev Event) Plan {
	draggedID := strings.TrimSpace(ev.DraggedID)
	targetID := strings.TrimSpace(ev.DropTargetID)
	if draggedID == "" {
		return noop("nothing dragged")
	}
	if ev.Zone == nil && draggedID == targetID {
		return noop("dropped onto itself")
	}
	loc, ok := s.Locate(draggedID)
	if !ok {
		return noop("dragged item not found")
	}
	from, ok := partition.Resolve(s, draggedID)
	if !ok {
		return noop("dragged item not found")
	}
	if !from.Ordered() {
		return noop("dated items are ordered by due date")
	}

	to, insertAt, reason := target(s, loc, from, ev)
	if reason != "" {
		return noop(reason)
	}
	if to == from {
		return planReorder(s, loc.Ref, from, insertAt)
	}
	return planMove(s, loc, from, to, ev)
}

// target works out the destination partition and, for same-partition drops,
// the target's display index (-1 means "append").
func target(s board.Snapshot, loc board.Location, from partition.Key, ev Event) (partition.Key, int, string) {
	if ev.Zone != nil {
		to := ev.Zone.Undated()
		if to.Table != loc.Ref.Table {
			return partition.Key{}, 0, "zone does not accept " + string(loc.Ref.Table)
		}
		to, reason := normalizeZone(s, loc, to, ev)
		return to, -1, reason
	}
	targetID := strings.TrimSpace(ev.DropTargetID)
	if targetID == "" {
		return partition.Key{}, 0, "no drop target"
	}
	tloc, ok := s.Locate(targetID)
	if !ok {
		return partition.Key{}, 0, "drop target not found"
	}

	switch {
	case tloc.Ref.Table == loc.Ref.Table:
		to, _ := partition.Resolve(s, targetID)
		to = to.Undated()
		idx := -1
		if to == from {
			idx = partition.IndexOf(partition.Members(s, to, partition.DueAscending), targetID)
		}
		return to, idx, ""
	case tloc.Ref.Table == model.TableTensions && loc.Ref.Table == model.TableActions:
		return partition.Key{Table: model.TableActions, Group: targetID, Bucket: partition.BucketUndated}, -1, ""
	case tloc.Ref.Table == model.TableAreas && loc.Ref.Table != model.TableAreas:
		// An area header behaves like that area's zone.
		k := partition.Key{Table: loc.Ref.Table, Group: targetID}
		if loc.Ref.Table == model.TableActions {
			k = partition.Key{Table: model.TableActions, Group: partition.Loose, Area: targetID}
		}
		if loc.Ref.Table != model.TableTensions {
			k.Bucket = partition.BucketUndated
		}
		k, reason := normalizeZone(s, loc, k, ev)
		return k, -1, reason
	default:
		return partition.Key{}, 0, "cannot drop " + string(loc.Ref.Table) + " onto " + string(tloc.Ref.Table)
	}
}

// normalizeZone checks that a declared zone names something that exists and
// resolves a loose-action zone without an area to the action's current area.
func normalizeZone(s board.Snapshot, loc board.Location, to partition.Key, ev Event) (partition.Key, string) {
	validArea := func(g string) bool { return g == partition.Uncategorized || s.HasArea(g) }
	switch to.Table {
	case model.TableAreas:
		if to.Group != s.ChartID {
			return to, "areas cannot leave their chart"
		}
	case model.TableActions:
		if to.Group == partition.Loose {
			if to.Area == "" {
				to.Area = partition.Uncategorized
				if !ev.ClearArea {
					it, _ := s.Item(loc)
					to.Area = partition.AreaGroup(s, it.AreaID)
				}
			}
			if !validArea(to.Area) {
				return to, "unknown area " + to.Area
			}
			return to, ""
		}
		if _, ok := s.FindTension(to.Group); !ok {
			return to, "unknown tension " + to.Group
		}
	default:
		if !validArea(to.Group) {
			return to, "unknown area " + to.Group
		}
	}
	return to, ""
}

// planReorder removes the dragged entity from its partition, reinserts it at
// insertAt (the end when negative) and renumbers the partition 0..n-1.
func planReorder(s board.Snapshot, ref board.Ref, k partition.Key, insertAt int) Plan {
	ms := partition.Members(s, k, partition.DueAscending)
	cur := partition.IndexOf(ms, ref.ID)
	if cur < 0 {
		return noop("dragged item not found")
	}
	moved := ms[cur]
	rest := append(append([]partition.Member{}, ms[:cur]...), ms[cur+1:]...)
	if insertAt < 0 || insertAt > len(rest) {
		insertAt = len(rest)
	}
	final := make([]partition.Member, 0, len(ms))
	final = append(final, rest[:insertAt]...)
	final = append(final, moved)
	final = append(final, rest[insertAt:]...)

	if insertAt == cur && isDense(ms) {
		return noop("already in place")
	}

	next := s.Clone()
	orders := make([]persist.OrderEntry, 0, len(final))
	for i, m := range final {
		setSortOrder(&next, m.Ref, i)
		orders = append(orders, persist.OrderEntry{ID: m.Ref.ID, SortOrder: i})
	}
	return Plan{
		Kind:  Reorder,
		Ref:   ref,
		From:  k,
		To:    k,
		Next:  next,
		Calls: []persist.Call{{Kind: persist.CallSetOrder, Table: k.Table, Orders: orders, Filter: filterFor(s, k)}},
	}
}

func isDense(ms []partition.Member) bool {
	for i, m := range ms {
		if m.SortOrder != i {
			return false
		}
	}
	return true
}

// AppendKey is the ordering key for an entity joining partition k: one past
// the current maximum, or 1 when k is empty.
func AppendKey(s board.Snapshot, k partition.Key) int {
	hi, ok := partition.MaxSortOrder(s, k.Undated())
	if !ok {
		return 1
	}
	return hi + 1
}

func planMove(s board.Snapshot, loc board.Location, from, to partition.Key, ev Event) Plan {
	key := AppendKey(s, to)
	next := s.Clone()
	p := Plan{Kind: Move, Ref: loc.Ref, From: from, To: to}

	switch loc.Ref.Table {
	case model.TableVisions, model.TableRealities:
		it, _ := next.Item(loc)
		it.AreaID = areaPtr(to.Group)
		it.SortOrder = key
		next.SetItem(loc, it)
		p.Calls = append(p.Calls, moveCall(loc.Ref, persist.GroupFields{
			AreaID: it.AreaID, SetArea: true, SortOrder: key, SetSortOrder: true,
		}))

	case model.TableActions:
		it, _ := next.Item(loc)
		var toTension string
		if to.Group == partition.Loose {
			it.TensionID = nil
			it.AreaID = areaPtr(to.Area)
		} else {
			toTension = to.Group
			t, _ := next.FindTension(toTension)
			it.TensionID = model.StrPtr(toTension)
			it.AreaID = model.StrPtr(partition.EffectiveAreaID(next, t))
		}
		it.SortOrder = key
		if _, ok := next.MoveAction(loc, toTension, it); !ok {
			return noop("dragged item not found")
		}
		p.Calls = append(p.Calls, moveCall(loc.Ref, persist.GroupFields{
			AreaID: it.AreaID, SetArea: true,
			TensionID: it.TensionID, SetTension: true,
			SortOrder: key, SetSortOrder: true,
		}))

	case model.TableTensions:
		t, _ := next.FindTension(loc.Ref.ID)
		prevArea := t.AreaID
		t.AreaID = areaPtr(to.Group)
		next.SetTension(t)
		// Without an own area the tension inherits one from its links, so it
		// may land somewhere other than the zone it was dropped on.
		landed := partition.ForTension(next, t)
		if landed == from && model.SameID(prevArea, t.AreaID) {
			return noop("tension keeps its inherited area")
		}
		t.SortOrder = appendKeyExcluding(next, landed, t.ID)
		next.SetTension(t)
		p.To = landed
		p.Calls = append(p.Calls, moveCall(loc.Ref, persist.GroupFields{
			AreaID: t.AreaID, SetArea: true, SortOrder: t.SortOrder, SetSortOrder: true,
		}))
		if ev.Cascade {
			area := model.StrPtr(partition.EffectiveAreaID(next, t))
			p.Calls = append(p.Calls, applyCascades(&next, t.ID, area)...)
		}

	default:
		return noop(string(loc.Ref.Table) + " cannot change partition")
	}
	p.Next = next
	return p
}

func moveCall(ref board.Ref, f persist.GroupFields) persist.Call {
	return persist.Call{Kind: persist.CallMove, Table: ref.Table, ID: ref.ID, Fields: f}
}

func areaPtr(group string) *string {
	if group == partition.Uncategorized {
		return nil
	}
	return model.StrPtr(group)
}

// filterFor narrows a SetOrder call to the partition's stored columns where
// those are unambiguous.
func filterFor(s board.Snapshot, k partition.Key) persist.GroupFilter {
	f := persist.GroupFilter{ChartID: s.ChartID}
	switch k.Table {
	case model.TableActions:
		f.ByTension = true
		if k.Group != partition.Loose {
			f.TensionID = model.StrPtr(k.Group)
		}
	case model.TableVisions, model.TableRealities:
		if k.Group != partition.Uncategorized {
			f.ByArea = true
			f.AreaID = model.StrPtr(k.Group)
		}
	}
	return f
}

// setSortOrder writes n as the ordering key of ref in s.
func setSortOrder(s *board.Snapshot, ref board.Ref, n int) bool {
	switch ref.Table {
	case model.TableAreas:
		a, ok := s.FindArea(ref.ID)
		if !ok {
			return false
		}
		a.SortOrder = n
		return s.SetArea(a)
	case model.TableTensions:
		t, ok := s.FindTension(ref.ID)
		if !ok {
			return false
		}
		t.SortOrder = n
		return s.SetTension(t)
	default:
		it, loc, ok := s.FindItem(ref.ID)
		if !ok {
			return false
		}
		it.SortOrder = n
		return s.SetItem(loc, it)
	}
}
