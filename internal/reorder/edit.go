package reorder

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tension-cli/internal/board"
	"tension-cli/internal/model"
	"tension-cli/internal/partition"
	"tension-cli/internal/persist"
)

// ParseDueDate accepts YYYY-MM-DD and returns it normalized.
func ParseDueDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return "", fmt.Errorf("invalid due date %q (expected YYYY-MM-DD)", s)
	}
	return t.Format("2006-01-02"), nil
}

// PlanEdit applies a field patch to the entity id. An item that loses its due
// date rejoins the undated bucket at the end; one that gains a due date simply
// leaves it.
func PlanEdit(s board.Snapshot, id string, patch persist.Patch) (Plan, error) {
	loc, ok := s.Locate(id)
	if !ok {
		return Plan{}, persist.NotFoundError{Table: "items", ID: strings.TrimSpace(id)}
	}
	if patch.IsZero() {
		return noop("nothing to change"), nil
	}
	if patch.SetDueDate && patch.DueDate != nil {
		d, err := ParseDueDate(*patch.DueDate)
		if err != nil {
			return Plan{}, err
		}
		patch.DueDate = &d
	}

	next := s.Clone()
	p := Plan{Kind: Edit, Ref: loc.Ref}
	changed := false

	switch loc.Ref.Table {
	case model.TableAreas:
		if patch.Title != nil || patch.Description != nil || patch.Status != nil || patch.Done != nil || patch.SetDueDate {
			return Plan{}, errors.New("areas only have a name and a color")
		}
		a := next.Areas[loc.Index]
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return Plan{}, errors.New("area name is required")
			}
			changed = changed || a.Name != name
			a.Name = name
		}
		if patch.Color != nil {
			changed = changed || a.Color != *patch.Color
			a.Color = *patch.Color
		}
		next.SetArea(a)

	case model.TableTensions:
		if patch.Done != nil || patch.SetDueDate || patch.Name != nil || patch.Color != nil {
			return Plan{}, errors.New("tensions have a title, a description and a status")
		}
		t := next.Tensions[loc.Index]
		if patch.Title != nil {
			title := strings.TrimSpace(*patch.Title)
			if title == "" {
				return Plan{}, errors.New("title is required")
			}
			changed = changed || t.Title != title
			t.Title = title
		}
		if patch.Description != nil {
			changed = changed || t.Description != *patch.Description
			t.Description = *patch.Description
		}
		if patch.Status != nil {
			st, ok := model.ParseTensionStatus(*patch.Status)
			if !ok {
				return Plan{}, fmt.Errorf("invalid status %q (expected active|resolved)", *patch.Status)
			}
			norm := string(st)
			patch.Status = &norm
			changed = changed || t.Status != st
			t.Status = st
		}
		next.SetTension(t)

	default:
		if patch.Description != nil || patch.Status != nil || patch.Name != nil || patch.Color != nil {
			return Plan{}, fmt.Errorf("%s only have a title, a due date and a done flag", loc.Ref.Table)
		}
		if patch.Done != nil && loc.Ref.Table != model.TableActions {
			return Plan{}, errors.New("only actions can be marked done")
		}
		it, _ := next.Item(loc)
		if patch.Title != nil {
			title := strings.TrimSpace(*patch.Title)
			if title == "" {
				return Plan{}, errors.New("title is required")
			}
			changed = changed || it.Title != title
			it.Title = title
		}
		if patch.Done != nil {
			changed = changed || it.Done != *patch.Done
			it.Done = *patch.Done
		}
		if patch.SetDueDate {
			wasDated := it.HasDueDate()
			if model.Deref(it.DueDate) != model.Deref(patch.DueDate) {
				changed = true
			}
			it.DueDate = model.StrPtr(model.Deref(patch.DueDate))
			if wasDated && !it.HasDueDate() {
				// Compute against the snapshot without this item's old key.
				probe := s.Clone()
				probe.SetItem(loc, it)
				k := partition.ForItem(probe, loc.Ref.Table, it)
				it.SortOrder = appendKeyExcluding(probe, k, it.ID)
				p.Calls = append(p.Calls, moveCall(loc.Ref, persist.GroupFields{SortOrder: it.SortOrder, SetSortOrder: true}))
			}
		}
		next.SetItem(loc, it)
	}

	if !changed {
		return noop("nothing to change"), nil
	}
	p.Next = next
	p.Calls = append([]persist.Call{{Kind: persist.CallUpdate, Table: loc.Ref.Table, ID: loc.Ref.ID, Patch: patch}}, p.Calls...)
	return p, nil
}

func appendKeyExcluding(s board.Snapshot, k partition.Key, id string) int {
	hi, found := 0, false
	for _, m := range partition.Members(s, k, partition.DueAscending) {
		if m.Ref.ID == id {
			continue
		}
		if !found || m.SortOrder > hi {
			hi, found = m.SortOrder, true
		}
	}
	if !found {
		return 1
	}
	return hi + 1
}
