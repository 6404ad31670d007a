package partition

import (
	"errors"
	"fmt"
	"strings"

	"tension-cli/internal/board"
	"tension-cli/internal/model"
)

const (
	// Uncategorized is the group for items without a (live) area.
	Uncategorized = "uncategorized"
	// Loose is the group for actions without a tension.
	Loose = "loose"
)

type Bucket string

const (
	BucketNone    Bucket = ""
	BucketUndated Bucket = "undated"
	BucketDated   Bucket = "dated"
)

// Key is the scope inside which ordering keys must be unique.
//
// Area is only set for loose actions: loose actions of different areas are
// ordered independently, while actions inside a tension ignore their area.
type Key struct {
	Table  model.Table `json:"table"`
	Group  string      `json:"group"`
	Area   string      `json:"area,omitempty"`
	Bucket Bucket      `json:"bucket,omitempty"`
}

func (k Key) String() string {
	var b strings.Builder
	b.WriteString(string(k.Table))
	b.WriteByte(':')
	b.WriteString(k.Group)
	if k.Area != "" {
		b.WriteByte('@')
		b.WriteString(k.Area)
	}
	if k.Bucket == BucketDated {
		b.WriteString(":dated")
	}
	return b.String()
}

// Ordered reports whether ordering keys are meaningful in this partition.
func (k Key) Ordered() bool { return k.Bucket != BucketDated }

// Undated returns k moved to the undated bucket of the same group.
func (k Key) Undated() Key {
	if k.Bucket == BucketDated {
		k.Bucket = BucketUndated
	}
	return k
}

// ParseKey parses the String() form, e.g. "actions:loose@area-b",
// "tensions:area-a" or "visions:uncategorized". The bucket defaults to
// undated for bucketed tables. "actions:loose" without an area is left
// unresolved; the reorder engine fills in the dragged action's own area.
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Key{}, fmt.Errorf("invalid partition %q (expected <table>:<group>[@area][:dated])", s)
	}
	table, ok := model.ParseTable(parts[0])
	if !ok {
		return Key{}, fmt.Errorf("invalid partition table %q", parts[0])
	}
	k := Key{Table: table, Group: strings.TrimSpace(parts[1])}
	if i := strings.Index(k.Group, "@"); i >= 0 {
		k.Area = strings.TrimSpace(k.Group[i+1:])
		k.Group = strings.TrimSpace(k.Group[:i])
	}
	if k.Group == "" {
		return Key{}, errors.New("invalid partition: empty group")
	}
	if k.Area != "" && !(table == model.TableActions && k.Group == Loose) {
		return Key{}, errors.New("invalid partition: @area is only valid for loose actions")
	}
	if bucketed(table) {
		k.Bucket = BucketUndated
	}
	if len(parts) == 3 {
		if strings.TrimSpace(parts[2]) != "dated" || !bucketed(table) {
			return Key{}, fmt.Errorf("invalid partition bucket %q", parts[2])
		}
		k.Bucket = BucketDated
	}
	return k, nil
}

func bucketed(t model.Table) bool {
	switch t {
	case model.TableVisions, model.TableRealities, model.TableActions:
		return true
	default:
		return false
	}
}

func bucketOf(it model.Item) Bucket {
	if it.HasDueDate() {
		return BucketDated
	}
	return BucketUndated
}

// AreaGroup maps an optional area reference to its group, falling back to
// Uncategorized when the area is unset or no longer exists.
func AreaGroup(s board.Snapshot, areaID *string) string {
	id := model.Deref(areaID)
	if id == "" || !s.HasArea(id) {
		return Uncategorized
	}
	return id
}

// EffectiveAreaID returns the tension's own area when set, else the area of
// the first linked vision that has one, else the first linked reality's.
// Returns "" when nothing resolves. It never writes anything back.
func EffectiveAreaID(s board.Snapshot, t model.Tension) string {
	if id := model.Deref(t.AreaID); id != "" && s.HasArea(id) {
		return id
	}
	for _, vid := range t.VisionIDs {
		it, loc, ok := s.FindItem(vid)
		if !ok || loc.Ref.Table != model.TableVisions {
			continue
		}
		if id := model.Deref(it.AreaID); id != "" && s.HasArea(id) {
			return id
		}
	}
	for _, rid := range t.RealityIDs {
		it, loc, ok := s.FindItem(rid)
		if !ok || loc.Ref.Table != model.TableRealities {
			continue
		}
		if id := model.Deref(it.AreaID); id != "" && s.HasArea(id) {
			return id
		}
	}
	return ""
}

// ForItem resolves the partition of a vision, reality or action.
func ForItem(s board.Snapshot, table model.Table, it model.Item) Key {
	k := Key{Table: table, Bucket: bucketOf(it)}
	if table == model.TableActions {
		tid := model.Deref(it.TensionID)
		if tid != "" {
			if _, ok := s.FindTension(tid); ok {
				k.Group = tid
				return k
			}
		}
		k.Group = Loose
		k.Area = AreaGroup(s, it.AreaID)
		return k
	}
	k.Group = AreaGroup(s, it.AreaID)
	return k
}

func ForTension(s board.Snapshot, t model.Tension) Key {
	g := EffectiveAreaID(s, t)
	if g == "" {
		g = Uncategorized
	}
	return Key{Table: model.TableTensions, Group: g}
}

func ForArea(a model.Area) Key {
	return Key{Table: model.TableAreas, Group: a.ChartID}
}

// Resolve returns the partition of the entity with the given id.
func Resolve(s board.Snapshot, id string) (Key, bool) {
	loc, ok := s.Locate(id)
	if !ok {
		return Key{}, false
	}
	return resolveLocation(s, loc)
}

func resolveLocation(s board.Snapshot, loc board.Location) (Key, bool) {
	switch loc.Ref.Table {
	case model.TableAreas:
		return ForArea(s.Areas[loc.Index]), true
	case model.TableTensions:
		return ForTension(s, s.Tensions[loc.Index]), true
	default:
		it, ok := s.Item(loc)
		if !ok {
			return Key{}, false
		}
		return ForItem(s, loc.Ref.Table, it), true
	}
}
