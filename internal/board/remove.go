package board

import (
	"tension-cli/internal/model"
)

// Removed is everything needed to put an entity back where it was.
type Removed struct {
	Location Location      `json:"location"`
	Item     model.Item    `json:"item,omitempty"`
	Tension  model.Tension `json:"tension,omitempty"`
	Area     model.Area    `json:"area,omitempty"`
}

func removeAt[T any](xs []T, i int) []T {
	if len(xs) == 1 {
		return nil
	}
	out := make([]T, 0, len(xs)-1)
	out = append(out, xs[:i]...)
	return append(out, xs[i+1:]...)
}

func insertAt[T any](xs []T, i int, v T) []T {
	if i < 0 {
		i = 0
	}
	if i > len(xs) {
		i = len(xs)
	}
	out := make([]T, 0, len(xs)+1)
	out = append(out, xs[:i]...)
	out = append(out, v)
	return append(out, xs[i:]...)
}

// Remove returns a copy of s without the entity id. Removing an area leaves
// items that reference it alone; they resolve to "uncategorized" from then on.
func (s Snapshot) Remove(id string) (Snapshot, Removed, bool) {
	loc, ok := s.Locate(id)
	if !ok {
		return s, Removed{}, false
	}
	next := s.Clone()
	rm := Removed{Location: loc}
	switch loc.Ref.Table {
	case model.TableAreas:
		rm.Area = next.Areas[loc.Index]
		next.Areas = removeAt(next.Areas, loc.Index)
	case model.TableTensions:
		rm.Tension = next.Tensions[loc.Index]
		next.Tensions = removeAt(next.Tensions, loc.Index)
	default:
		xs := next.itemSlice(loc)
		if xs == nil {
			return s, Removed{}, false
		}
		rm.Item = (*xs)[loc.Index]
		*xs = removeAt(*xs, loc.Index)
	}
	return next, rm, true
}

// Restore puts a removed entity back at its previous container and index
// (clamped). An action whose tension disappeared in the meantime comes back
// as a loose action.
func (s Snapshot) Restore(rm Removed) Snapshot {
	if _, exists := s.Locate(rm.Location.Ref.ID); exists {
		return s
	}
	next := s.Clone()
	loc := rm.Location
	switch loc.Ref.Table {
	case model.TableAreas:
		next.Areas = insertAt(next.Areas, loc.Index, rm.Area)
	case model.TableTensions:
		next.Tensions = insertAt(next.Tensions, loc.Index, cloneTension(rm.Tension))
	case model.TableVisions:
		next.Visions = insertAt(next.Visions, loc.Index, cloneItem(rm.Item))
	case model.TableRealities:
		next.Realities = insertAt(next.Realities, loc.Index, cloneItem(rm.Item))
	case model.TableActions:
		it := cloneItem(rm.Item)
		if loc.TensionID != "" {
			if ti := next.tensionIndex(loc.TensionID); ti >= 0 {
				next.Tensions[ti].Actions = insertAt(next.Tensions[ti].Actions, loc.Index, it)
				return next
			}
			it.TensionID = nil
			next.LooseActions = append(next.LooseActions, it)
			return next
		}
		next.LooseActions = insertAt(next.LooseActions, loc.Index, it)
	}
	return next
}

// Insert adds a new entity. Actions go into their tension when it exists,
// otherwise into the loose list.
func (s Snapshot) Insert(table model.Table, it model.Item, t model.Tension, a model.Area) Snapshot {
	next := s.Clone()
	switch table {
	case model.TableAreas:
		next.Areas = append(next.Areas, a)
	case model.TableTensions:
		next.Tensions = append(next.Tensions, cloneTension(t))
	case model.TableVisions:
		next.Visions = append(next.Visions, cloneItem(it))
	case model.TableRealities:
		next.Realities = append(next.Realities, cloneItem(it))
	case model.TableActions:
		it = cloneItem(it)
		if tid := model.Deref(it.TensionID); tid != "" {
			if ti := next.tensionIndex(tid); ti >= 0 {
				next.Tensions[ti].Actions = append(next.Tensions[ti].Actions, it)
				return next
			}
			it.TensionID = nil
		}
		next.LooseActions = append(next.LooseActions, it)
	}
	return next
}

// ReplaceID renames an entity and every reference to it. Used to swap a
// temporary local id for the persisted one.
func (s Snapshot) ReplaceID(oldID, newID string) Snapshot {
	if oldID == newID {
		return s
	}
	loc, ok := s.Locate(oldID)
	if !ok {
		return s
	}
	next := s.Clone()
	swap := func(p *string) *string {
		if p != nil && *p == oldID {
			v := newID
			return &v
		}
		return p
	}
	swapAll := func(ids []string) {
		for i := range ids {
			if ids[i] == oldID {
				ids[i] = newID
			}
		}
	}
	switch loc.Ref.Table {
	case model.TableAreas:
		next.Areas[loc.Index].ID = newID
		for i := range next.Visions {
			next.Visions[i].AreaID = swap(next.Visions[i].AreaID)
		}
		for i := range next.Realities {
			next.Realities[i].AreaID = swap(next.Realities[i].AreaID)
		}
		for i := range next.LooseActions {
			next.LooseActions[i].AreaID = swap(next.LooseActions[i].AreaID)
		}
		for i := range next.Tensions {
			next.Tensions[i].AreaID = swap(next.Tensions[i].AreaID)
			for j := range next.Tensions[i].Actions {
				next.Tensions[i].Actions[j].AreaID = swap(next.Tensions[i].Actions[j].AreaID)
			}
		}
	case model.TableTensions:
		t := &next.Tensions[loc.Index]
		t.ID = newID
		for j := range t.Actions {
			t.Actions[j].TensionID = swap(t.Actions[j].TensionID)
		}
	case model.TableVisions:
		next.Visions[loc.Index].ID = newID
		for i := range next.Tensions {
			swapAll(next.Tensions[i].VisionIDs)
		}
	case model.TableRealities:
		next.Realities[loc.Index].ID = newID
		for i := range next.Tensions {
			swapAll(next.Tensions[i].RealityIDs)
		}
	case model.TableActions:
		xs := next.itemSlice(loc)
		(*xs)[loc.Index].ID = newID
	}
	return next
}
