package partition

import (
	"sort"
	"strings"
	"time"

	"tension-cli/internal/board"
	"tension-cli/internal/model"
)

// DueOrder is the caller's policy for dated buckets.
type DueOrder int

const (
	DueAscending DueOrder = iota
	DueDescending
)

func ParseDueOrder(s string) DueOrder {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desc", "descending":
		return DueDescending
	default:
		return DueAscending
	}
}

// Member is one entry of a partition in display order.
type Member struct {
	Ref       board.Ref `json:"ref"`
	Title     string    `json:"title"`
	SortOrder int       `json:"sortOrder"`
	DueDate   string    `json:"dueDate,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func itemMember(table model.Table, it model.Item) Member {
	return Member{
		Ref:       board.Ref{Table: table, ID: it.ID},
		Title:     it.Title,
		SortOrder: it.SortOrder,
		DueDate:   model.Deref(it.DueDate),
		CreatedAt: it.CreatedAt,
	}
}

// Members lists the entities of partition k in display order.
func Members(s board.Snapshot, k Key, order DueOrder) []Member {
	var out []Member
	switch k.Table {
	case model.TableAreas:
		for _, a := range s.Areas {
			if ForArea(a) == k {
				out = append(out, Member{Ref: board.Ref{Table: model.TableAreas, ID: a.ID}, Title: a.Name, SortOrder: a.SortOrder})
			}
		}
	case model.TableTensions:
		for _, t := range s.Tensions {
			if ForTension(s, t) == k {
				out = append(out, Member{Ref: board.Ref{Table: model.TableTensions, ID: t.ID}, Title: t.Title, SortOrder: t.SortOrder, CreatedAt: t.CreatedAt})
			}
		}
	case model.TableVisions:
		out = collect(s, k, model.TableVisions, s.Visions)
	case model.TableRealities:
		out = collect(s, k, model.TableRealities, s.Realities)
	case model.TableActions:
		if k.Group == Loose {
			out = collect(s, k, model.TableActions, s.LooseActions)
		} else if t, ok := s.FindTension(k.Group); ok {
			out = collect(s, k, model.TableActions, t.Actions)
		}
	}
	SortMembers(out, k.Bucket == BucketDated, order)
	return out
}

func collect(s board.Snapshot, k Key, table model.Table, xs []model.Item) []Member {
	var out []Member
	for _, it := range xs {
		if ForItem(s, table, it) == k {
			out = append(out, itemMember(table, it))
		}
	}
	return out
}

// SortMembers orders undated members by ordering key, then creation time,
// then id; dated members strictly by due date (ties by creation time, id).
func SortMembers(xs []Member, dated bool, order DueOrder) {
	sort.SliceStable(xs, func(i, j int) bool {
		a, b := xs[i], xs[j]
		if dated {
			if a.DueDate != b.DueDate {
				if order == DueDescending {
					return a.DueDate > b.DueDate
				}
				return a.DueDate < b.DueDate
			}
		} else if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Ref.ID < b.Ref.ID
	})
}

// MaxSortOrder returns the largest ordering key in k, and false when k is empty.
func MaxSortOrder(s board.Snapshot, k Key) (int, bool) {
	ms := Members(s, k, DueAscending)
	if len(ms) == 0 {
		return 0, false
	}
	hi := ms[0].SortOrder
	for _, m := range ms[1:] {
		if m.SortOrder > hi {
			hi = m.SortOrder
		}
	}
	return hi, true
}

// IndexOf returns the display index of id within k, or -1.
func IndexOf(ms []Member, id string) int {
	for i := range ms {
		if ms[i].Ref.ID == id {
			return i
		}
	}
	return -1
}

// Keys returns every non-empty partition of s in a stable order.
func Keys(s board.Snapshot) []Key {
	seen := map[Key]bool{}
	var out []Key
	add := func(k Key) {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, a := range s.Areas {
		add(ForArea(a))
	}
	for _, it := range s.Visions {
		add(ForItem(s, model.TableVisions, it))
	}
	for _, it := range s.Realities {
		add(ForItem(s, model.TableRealities, it))
	}
	for _, t := range s.Tensions {
		add(ForTension(s, t))
		for _, it := range t.Actions {
			add(ForItem(s, model.TableActions, it))
		}
	}
	for _, it := range s.LooseActions {
		add(ForItem(s, model.TableActions, it))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Violation is an ordering key shared by more than one member of a partition.
type Violation struct {
	Key       Key      `json:"partition"`
	SortOrder int      `json:"sortOrder"`
	IDs       []string `json:"ids"`
}

// Validate checks that ordering keys are unique in every ordered partition.
func Validate(s board.Snapshot) []Violation {
	var out []Violation
	for _, k := range Keys(s) {
		if !k.Ordered() {
			continue
		}
		byOrder := map[int][]string{}
		var orders []int
		for _, m := range Members(s, k, DueAscending) {
			if _, ok := byOrder[m.SortOrder]; !ok {
				orders = append(orders, m.SortOrder)
			}
			byOrder[m.SortOrder] = append(byOrder[m.SortOrder], m.Ref.ID)
		}
		sort.Ints(orders)
		for _, o := range orders {
			if ids := byOrder[o]; len(ids) > 1 {
				out = append(out, Violation{Key: k, SortOrder: o, IDs: ids})
			}
		}
	}
	return out
}
