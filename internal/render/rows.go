// Package render lays a board snapshot out as display rows and renders it as
// markdown, for the CLI and the TUI alike.
package render

import (
	"tension-cli/internal/board"
	"tension-cli/internal/model"
	"tension-cli/internal/partition"
)

type RowKind string

const (
	RowArea    RowKind = "area"
	RowSection RowKind = "section"
	RowItem    RowKind = "item"
)

// Row is one line of the board. Area and section rows carry the zone a drop
// on them should land in; item rows carry the partition they live in.
type Row struct {
	Kind      RowKind        `json:"kind"`
	Ref       board.Ref      `json:"ref,omitempty"`
	Depth     int            `json:"depth"`
	Title     string         `json:"title"`
	Group     string         `json:"group"`
	Partition partition.Key  `json:"partition,omitempty"`
	Zone      *partition.Key `json:"zone,omitempty"`
	SortOrder int            `json:"sortOrder"`
	DueDate   string         `json:"dueDate,omitempty"`
	Done      bool           `json:"done,omitempty"`
	Status    string         `json:"status,omitempty"`
	Color     string         `json:"color,omitempty"`
}

// Selectable reports whether the row is an entity that can be picked up.
func (r Row) Selectable() bool { return r.Kind == RowItem || (r.Kind == RowArea && r.Ref.ID != "") }

const (
	SectionVisions   = "Vision"
	SectionRealities = "Current reality"
	SectionTensions  = "Tensions"
	SectionLoose     = "Loose actions"
)

// Rows flattens s into area groups (areas in order, then uncategorized). Each
// group lists visions, realities, tensions with their actions, and loose
// actions; undated items come first, dated ones after them by due date.
func Rows(s board.Snapshot, order partition.DueOrder) []Row {
	var out []Row
	for _, g := range groups(s) {
		head := Row{Kind: RowArea, Title: "Uncategorized", Group: g}
		if a, ok := s.FindArea(g); ok {
			head.Ref = board.Ref{Table: model.TableAreas, ID: a.ID}
			head.Title = a.Name
			head.Color = a.Color
			head.SortOrder = a.SortOrder
			head.Partition = partition.ForArea(a)
		}
		out = append(out, head)

		out = appendItems(out, s, order, g, model.TableVisions, partition.Key{Table: model.TableVisions, Group: g}, SectionVisions)
		out = appendItems(out, s, order, g, model.TableRealities, partition.Key{Table: model.TableRealities, Group: g}, SectionRealities)

		tk := partition.Key{Table: model.TableTensions, Group: g}
		out = append(out, section(g, SectionTensions, tk))
		for _, m := range partition.Members(s, tk, order) {
			t, _ := s.FindTension(m.Ref.ID)
			out = append(out, Row{
				Kind: RowItem, Ref: m.Ref, Depth: 1, Title: t.Title, Group: g, Partition: tk,
				SortOrder: t.SortOrder, Status: string(t.Status),
			})
			for _, k := range buckets(partition.Key{Table: model.TableActions, Group: t.ID}) {
				for _, am := range partition.Members(s, k, order) {
					out = append(out, itemRow(s, am, 2, g, k))
				}
			}
		}

		out = appendItems(out, s, order, g, model.TableActions, partition.Key{Table: model.TableActions, Group: partition.Loose, Area: g}, SectionLoose)
	}
	return out
}

func groups(s board.Snapshot) []string {
	var out []string
	for _, m := range partition.Members(s, partition.Key{Table: model.TableAreas, Group: s.ChartID}, partition.DueAscending) {
		out = append(out, m.Ref.ID)
	}
	// Areas created for another chart id (should not happen) still get a group.
	seen := map[string]bool{}
	for _, id := range out {
		seen[id] = true
	}
	for _, a := range s.Areas {
		if !seen[a.ID] {
			out = append(out, a.ID)
		}
	}
	return append(out, partition.Uncategorized)
}

func buckets(k partition.Key) []partition.Key {
	undated, dated := k, k
	undated.Bucket = partition.BucketUndated
	dated.Bucket = partition.BucketDated
	return []partition.Key{undated, dated}
}

func section(g, title string, zone partition.Key) Row {
	z := zone
	return Row{Kind: RowSection, Title: title, Group: g, Depth: 1, Zone: &z}
}

func appendItems(out []Row, s board.Snapshot, order partition.DueOrder, g string, table model.Table, base partition.Key, title string) []Row {
	ks := buckets(base)
	out = append(out, section(g, title, ks[0]))
	for _, k := range ks {
		for _, m := range partition.Members(s, k, order) {
			out = append(out, itemRow(s, m, 1, g, k))
		}
	}
	return out
}

func itemRow(s board.Snapshot, m partition.Member, depth int, g string, k partition.Key) Row {
	r := Row{Kind: RowItem, Ref: m.Ref, Depth: depth, Title: m.Title, Group: g, Partition: k, SortOrder: m.SortOrder, DueDate: m.DueDate}
	if it, _, ok := s.FindItem(m.Ref.ID); ok {
		r.Done = it.Done
	}
	return r
}

// Empty reports whether the group starting at rows[i] (an area row) has no items.
func Empty(rows []Row, i int) bool {
	for j := i + 1; j < len(rows) && rows[j].Kind != RowArea; j++ {
		if rows[j].Kind == RowItem {
			return false
		}
	}
	return true
}
