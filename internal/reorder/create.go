package reorder

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tension-cli/internal/board"
	"tension-cli/internal/model"
	"tension-cli/internal/partition"
	"tension-cli/internal/persist"
)

// TempIDPrefix marks ids that exist only on the board until the store
// confirms the creation.
const TempIDPrefix = "tmp-"

func IsTempID(id string) bool { return strings.HasPrefix(id, TempIDPrefix) }

func newTempID() string { return TempIDPrefix + uuid.New().String() }

// PlanCreate inserts a new entity under a temporary id at the end of its
// partition. The returned plan carries the fields to persist.
func PlanCreate(s board.Snapshot, table model.Table, f persist.Fields, now time.Time) (Plan, error) {
	f.ChartID = s.ChartID
	f.Title = strings.TrimSpace(f.Title)
	f.Name = strings.TrimSpace(f.Name)
	if table == model.TableAreas {
		if f.Name == "" {
			f.Name = f.Title
		}
		if f.Name == "" {
			return Plan{}, errors.New("area name is required")
		}
	} else if f.Title == "" {
		return Plan{}, errors.New("title is required")
	}
	if f.AreaID != nil && !s.HasArea(*f.AreaID) {
		return Plan{}, persist.NotFoundError{Table: model.TableAreas, ID: *f.AreaID}
	}
	if f.DueDate != nil {
		d, err := ParseDueDate(*f.DueDate)
		if err != nil {
			return Plan{}, err
		}
		f.DueDate = &d
	}

	id := newTempID()
	var (
		it model.Item
		t  model.Tension
		a  model.Area
		k  partition.Key
	)
	switch table {
	case model.TableAreas:
		a = model.Area{ID: id, ChartID: s.ChartID, Name: f.Name, Color: f.Color}
		k = partition.ForArea(a)
		a.SortOrder = appendOrZero(s, k)
		f.SortOrder = a.SortOrder

	case model.TableTensions:
		st := model.TensionActive
		if f.Status != "" {
			var ok bool
			if st, ok = model.ParseTensionStatus(f.Status); !ok {
				return Plan{}, fmt.Errorf("invalid status %q (expected active|resolved)", f.Status)
			}
		}
		f.Status = string(st)
		for _, vid := range f.VisionIDs {
			if _, loc, ok := s.FindItem(vid); !ok || loc.Ref.Table != model.TableVisions {
				return Plan{}, persist.NotFoundError{Table: model.TableVisions, ID: vid}
			}
		}
		for _, rid := range f.RealityIDs {
			if _, loc, ok := s.FindItem(rid); !ok || loc.Ref.Table != model.TableRealities {
				return Plan{}, persist.NotFoundError{Table: model.TableRealities, ID: rid}
			}
		}
		t = model.Tension{
			ID:          id,
			ChartID:     s.ChartID,
			Title:       f.Title,
			Description: f.Description,
			Status:      st,
			AreaID:      f.AreaID,
			VisionIDs:   append([]string{}, f.VisionIDs...),
			RealityIDs:  append([]string{}, f.RealityIDs...),
			CreatedAt:   now,
		}
		k = partition.ForTension(s, t)
		t.SortOrder = appendOrZero(s, k)
		f.SortOrder = t.SortOrder

	case model.TableVisions, model.TableRealities, model.TableActions:
		if table == model.TableActions && f.TensionID != nil {
			ten, ok := s.FindTension(*f.TensionID)
			if !ok {
				return Plan{}, persist.NotFoundError{Table: model.TableTensions, ID: *f.TensionID}
			}
			if f.AreaID == nil {
				f.AreaID = model.StrPtr(partition.EffectiveAreaID(s, ten))
			}
		} else {
			f.TensionID = nil
		}
		it = model.Item{
			ID:        id,
			ChartID:   s.ChartID,
			Title:     f.Title,
			AreaID:    f.AreaID,
			DueDate:   f.DueDate,
			TensionID: f.TensionID,
			CreatedAt: now,
		}
		k = partition.ForItem(s, table, it)
		if k.Ordered() {
			it.SortOrder = appendOrZero(s, k)
		}
		f.SortOrder = it.SortOrder

	default:
		return Plan{}, fmt.Errorf("cannot create %s", table)
	}

	return Plan{
		Kind:   Create,
		Ref:    board.Ref{Table: table, ID: id},
		To:     k,
		Next:   s.Insert(table, it, t, a),
		Create: &Creation{Table: table, TempID: id, Fields: f},
	}, nil
}

// appendOrZero starts an empty partition at 0 and otherwise appends after the
// current maximum.
func appendOrZero(s board.Snapshot, k partition.Key) int {
	if _, ok := partition.MaxSortOrder(s, k); !ok {
		return 0
	}
	return AppendKey(s, k)
}
