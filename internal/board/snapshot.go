package board

import (
	"strings"

	"tension-cli/internal/model"
)

// Ref identifies an entity by table and id.
type Ref struct {
	Table model.Table `json:"table"`
	ID    string      `json:"id"`
}

func (r Ref) String() string { return string(r.Table) + "/" + r.ID }

func (r Ref) IsZero() bool { return strings.TrimSpace(r.ID) == "" }

// Snapshot is one immutable-by-convention view of a chart. Code that wants to
// change it works on Clone() and hands the result to Board.Update.
type Snapshot struct {
	ChartID      string          `json:"chartId"`
	Areas        []model.Area    `json:"areas"`
	Visions      []model.Item    `json:"visions"`
	Realities    []model.Item    `json:"realities"`
	Tensions     []model.Tension `json:"tensions"`
	LooseActions []model.Item    `json:"looseActions"`

	// ChildVisions are visions of charts spawned from this chart's tensions.
	// They are not displayed or partitioned here; they only receive area
	// cascades from their parent tension.
	ChildVisions []model.Item `json:"childVisions,omitempty"`
}

// Location pins an entity inside a snapshot. TensionID is the owning tension
// for actions ("" for loose actions and every other table).
type Location struct {
	Ref       Ref    `json:"ref"`
	TensionID string `json:"tensionId,omitempty"`
	Index     int    `json:"index"`
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneItem(it model.Item) model.Item {
	it.AreaID = cloneStr(it.AreaID)
	it.DueDate = cloneStr(it.DueDate)
	it.TensionID = cloneStr(it.TensionID)
	return it
}

func cloneItems(xs []model.Item) []model.Item {
	if xs == nil {
		return nil
	}
	out := make([]model.Item, len(xs))
	for i := range xs {
		out[i] = cloneItem(xs[i])
	}
	return out
}

func cloneTension(t model.Tension) model.Tension {
	t.AreaID = cloneStr(t.AreaID)
	t.ChildChartID = cloneStr(t.ChildChartID)
	t.Actions = cloneItems(t.Actions)
	if t.VisionIDs != nil {
		t.VisionIDs = append([]string{}, t.VisionIDs...)
	}
	if t.RealityIDs != nil {
		t.RealityIDs = append([]string{}, t.RealityIDs...)
	}
	return t
}

// Clone returns a deep copy that shares no mutable state with s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{ChartID: s.ChartID}
	if s.Areas != nil {
		out.Areas = append([]model.Area{}, s.Areas...)
	}
	out.Visions = cloneItems(s.Visions)
	out.Realities = cloneItems(s.Realities)
	out.LooseActions = cloneItems(s.LooseActions)
	out.ChildVisions = cloneItems(s.ChildVisions)
	if s.Tensions != nil {
		out.Tensions = make([]model.Tension, len(s.Tensions))
		for i := range s.Tensions {
			out.Tensions[i] = cloneTension(s.Tensions[i])
		}
	}
	return out
}

func (s Snapshot) FindArea(id string) (model.Area, bool) {
	id = strings.TrimSpace(id)
	for _, a := range s.Areas {
		if a.ID == id {
			return a, true
		}
	}
	return model.Area{}, false
}

// HasArea reports whether id names an area that still exists.
func (s Snapshot) HasArea(id string) bool {
	if strings.TrimSpace(id) == "" {
		return false
	}
	_, ok := s.FindArea(id)
	return ok
}

func (s Snapshot) FindTension(id string) (model.Tension, bool) {
	id = strings.TrimSpace(id)
	for _, t := range s.Tensions {
		if t.ID == id {
			return t, true
		}
	}
	return model.Tension{}, false
}

func (s Snapshot) tensionIndex(id string) int {
	for i := range s.Tensions {
		if s.Tensions[i].ID == id {
			return i
		}
	}
	return -1
}

// Locate finds any entity by id. Ids are unique across tables.
func (s Snapshot) Locate(id string) (Location, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Location{}, false
	}
	for i := range s.Areas {
		if s.Areas[i].ID == id {
			return Location{Ref: Ref{Table: model.TableAreas, ID: id}, Index: i}, true
		}
	}
	for i := range s.Visions {
		if s.Visions[i].ID == id {
			return Location{Ref: Ref{Table: model.TableVisions, ID: id}, Index: i}, true
		}
	}
	for i := range s.Realities {
		if s.Realities[i].ID == id {
			return Location{Ref: Ref{Table: model.TableRealities, ID: id}, Index: i}, true
		}
	}
	for i := range s.Tensions {
		t := s.Tensions[i]
		if t.ID == id {
			return Location{Ref: Ref{Table: model.TableTensions, ID: id}, Index: i}, true
		}
		for j := range t.Actions {
			if t.Actions[j].ID == id {
				return Location{Ref: Ref{Table: model.TableActions, ID: id}, TensionID: t.ID, Index: j}, true
			}
		}
	}
	for i := range s.LooseActions {
		if s.LooseActions[i].ID == id {
			return Location{Ref: Ref{Table: model.TableActions, ID: id}, Index: i}, true
		}
	}
	return Location{}, false
}

// Item returns the vision, reality or action at loc.
func (s Snapshot) Item(loc Location) (model.Item, bool) {
	xs := s.itemSlice(loc)
	if xs == nil || loc.Index < 0 || loc.Index >= len(*xs) {
		return model.Item{}, false
	}
	return (*xs)[loc.Index], true
}

// FindItem looks up a vision, reality or action by id.
func (s Snapshot) FindItem(id string) (model.Item, Location, bool) {
	loc, ok := s.Locate(id)
	if !ok {
		return model.Item{}, Location{}, false
	}
	it, ok := s.Item(loc)
	return it, loc, ok
}

func (s *Snapshot) itemSlice(loc Location) *[]model.Item {
	switch loc.Ref.Table {
	case model.TableVisions:
		return &s.Visions
	case model.TableRealities:
		return &s.Realities
	case model.TableActions:
		if loc.TensionID == "" {
			return &s.LooseActions
		}
		ti := s.tensionIndex(loc.TensionID)
		if ti < 0 {
			return nil
		}
		return &s.Tensions[ti].Actions
	default:
		return nil
	}
}

// SetItem overwrites the vision, reality or action at loc in place. Only call
// it on a snapshot you own (a Clone).
func (s *Snapshot) SetItem(loc Location, it model.Item) bool {
	xs := s.itemSlice(loc)
	if xs == nil || loc.Index < 0 || loc.Index >= len(*xs) {
		return false
	}
	(*xs)[loc.Index] = it
	return true
}

// SetTension overwrites the tension with the same id in place.
func (s *Snapshot) SetTension(t model.Tension) bool {
	i := s.tensionIndex(t.ID)
	if i < 0 {
		return false
	}
	s.Tensions[i] = t
	return true
}

func (s *Snapshot) SetArea(a model.Area) bool {
	for i := range s.Areas {
		if s.Areas[i].ID == a.ID {
			s.Areas[i] = a
			return true
		}
	}
	return false
}

// MoveAction detaches the action at loc and appends it to the container named
// by toTensionID ("" for loose). The returned location is the new one.
func (s *Snapshot) MoveAction(loc Location, toTensionID string, it model.Item) (Location, bool) {
	from := s.itemSlice(loc)
	if from == nil || loc.Index < 0 || loc.Index >= len(*from) {
		return Location{}, false
	}
	toLoc := Location{Ref: loc.Ref, TensionID: toTensionID}
	to := s.itemSlice(toLoc)
	if to == nil {
		return Location{}, false
	}
	*from = append((*from)[:loc.Index:loc.Index], (*from)[loc.Index+1:]...)
	// The tension slice may have been reallocated by the removal above.
	to = s.itemSlice(toLoc)
	*to = append(*to, it)
	toLoc.Index = len(*to) - 1
	return toLoc, true
}

// AllActions returns every action, tension-owned first, then loose ones.
func (s Snapshot) AllActions() []model.Item {
	var out []model.Item
	for _, t := range s.Tensions {
		out = append(out, t.Actions...)
	}
	out = append(out, s.LooseActions...)
	return out
}

// Len returns the number of entities of any kind, used by callers that want a
// cheap change indicator.
func (s Snapshot) Len() int {
	n := len(s.Areas) + len(s.Visions) + len(s.Realities) + len(s.Tensions) + len(s.LooseActions)
	for _, t := range s.Tensions {
		n += len(t.Actions)
	}
	return n
}
