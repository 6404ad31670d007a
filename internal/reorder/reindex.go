package reorder

import (
	"tension-cli/internal/board"
	"tension-cli/internal/partition"
	"tension-cli/internal/persist"
)

// PlanReindex renumbers every ordered partition 0..n-1 in its current display
// order. Partitions that are already dense produce no call.
func PlanReindex(s board.Snapshot) Plan {
	next := s.Clone()
	var calls []persist.Call
	for _, k := range partition.Keys(s) {
		if !k.Ordered() {
			continue
		}
		ms := partition.Members(s, k, partition.DueAscending)
		if isDense(ms) {
			continue
		}
		orders := make([]persist.OrderEntry, 0, len(ms))
		for i, m := range ms {
			setSortOrder(&next, m.Ref, i)
			orders = append(orders, persist.OrderEntry{ID: m.Ref.ID, SortOrder: i})
		}
		calls = append(calls, persist.Call{Kind: persist.CallSetOrder, Table: k.Table, Orders: orders, Filter: filterFor(s, k)})
	}
	if len(calls) == 0 {
		return noop("already dense")
	}
	return Plan{Kind: Reindex, Next: next, Calls: calls}
}
