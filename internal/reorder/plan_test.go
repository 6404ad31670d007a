package reorder

import (
	"errors"
	"strings"
	"testing"
	"time"

	"tension-cli/internal/board"
	"tension-cli/internal/model"
	"tension-cli/internal/partition"
	"tension-cli/internal/persist"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sp(s string) *string { return &s }

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func fixture() board.Snapshot {
	return board.Snapshot{
		ChartID: "chart-1",
		Areas: []model.Area{
			{ID: "area-a", ChartID: "chart-1", Name: "A"},
			{ID: "area-b", ChartID: "chart-1", Name: "B", SortOrder: 1},
		},
		Visions: []model.Item{
			{ID: "vis-1", ChartID: "chart-1", AreaID: sp("area-a"), SortOrder: 0, CreatedAt: t0},
			{ID: "vis-2", ChartID: "chart-1", AreaID: sp("area-a"), SortOrder: 1, CreatedAt: t0},
			{ID: "vis-d", ChartID: "chart-1", AreaID: sp("area-a"), SortOrder: 0, DueDate: sp("2026-03-01"), CreatedAt: t0},
		},
		Tensions: []model.Tension{
			{
				ID: "ten-1", ChartID: "chart-1", Title: "T1", AreaID: sp("area-a"), SortOrder: 0, CreatedAt: t0,
				ChildChartID: sp("chart-2"),
				Actions: []model.Item{
					{ID: "act-x", TensionID: sp("ten-1"), AreaID: sp("area-a"), SortOrder: 0, CreatedAt: t0},
					{ID: "act-y", TensionID: sp("ten-1"), AreaID: sp("area-a"), SortOrder: 1, CreatedAt: t0},
					{ID: "act-z", TensionID: sp("ten-1"), AreaID: sp("area-a"), SortOrder: 2, CreatedAt: t0},
				},
			},
			{ID: "ten-2", ChartID: "chart-1", Title: "T2", AreaID: sp("area-a"), SortOrder: 1, CreatedAt: t0},
		},
		LooseActions: []model.Item{
			{ID: "act-b1", AreaID: sp("area-b"), SortOrder: 3, CreatedAt: t0},
			{ID: "act-b2", AreaID: sp("area-b"), SortOrder: 1, CreatedAt: t0},
			{ID: "act-a1", AreaID: sp("area-a"), SortOrder: 7, CreatedAt: t0},
		},
		ChildVisions: []model.Item{
			{ID: "vis-c1", ChartID: "chart-2"},
			{ID: "vis-c2", ChartID: "chart-3"},
		},
	}
}

func zone(t *testing.T, s string) *partition.Key {
	t.Helper()
	k, err := partition.ParseKey(s)
	require.NoError(t, err)
	return &k
}

func TestPlanDrop_ReorderTensionsWithinArea(t *testing.T) {
	s := fixture()
	p := PlanDrop(s, Event{DraggedID: "ten-2", DropTargetID: "ten-1"})

	require.Equal(t, Reorder, p.Kind)
	t1, _ := p.Next.FindTension("ten-1")
	t2, _ := p.Next.FindTension("ten-2")
	assert.Equal(t, 1, t1.SortOrder)
	assert.Equal(t, 0, t2.SortOrder)

	require.Len(t, p.Calls, 1)
	assert.Equal(t, persist.CallSetOrder, p.Calls[0].Kind)
	assert.Equal(t, []persist.OrderEntry{{ID: "ten-2", SortOrder: 0}, {ID: "ten-1", SortOrder: 1}}, p.Calls[0].Orders)

	orig, _ := s.FindTension("ten-1")
	assert.Equal(t, 0, orig.SortOrder, "planning must not touch its input")
}

func TestPlanDrop_ActionToLooseZoneOfOtherArea(t *testing.T) {
	s := fixture()
	p := PlanDrop(s, Event{DraggedID: "act-x", Zone: zone(t, "actions:loose@area-b")})

	require.Equal(t, Move, p.Kind)
	it, loc, ok := p.Next.FindItem("act-x")
	require.True(t, ok)
	assert.Equal(t, "", loc.TensionID)
	assert.Nil(t, it.TensionID)
	assert.Equal(t, "area-b", model.Deref(it.AreaID))
	assert.Equal(t, 4, it.SortOrder)

	t1, _ := p.Next.FindTension("ten-1")
	assert.Len(t, t1.Actions, 2)

	require.Len(t, p.Calls, 1)
	c := p.Calls[0]
	assert.Equal(t, persist.CallMove, c.Kind)
	assert.True(t, c.Fields.SetTension)
	assert.Nil(t, c.Fields.TensionID)
	assert.Equal(t, "area-b", model.Deref(c.Fields.AreaID))
	assert.Equal(t, 4, c.Fields.SortOrder)
	assert.Empty(t, partition.Validate(p.Next))
}

func TestPlanDrop_AreaHeaderActsAsZone(t *testing.T) {
	p := PlanDrop(fixture(), Event{DraggedID: "act-x", DropTargetID: "area-b"})
	require.Equal(t, Move, p.Kind)
	it, _, _ := p.Next.FindItem("act-x")
	assert.Equal(t, "area-b", model.Deref(it.AreaID))
	assert.Equal(t, 4, it.SortOrder)
	assert.Empty(t, partition.Validate(p.Next))
}

func TestPlanDrop_LooseZoneWithoutAreaKeepsLastArea(t *testing.T) {
	p := PlanDrop(fixture(), Event{DraggedID: "act-x", Zone: zone(t, "actions:loose")})
	require.Equal(t, Move, p.Kind)
	it, _, _ := p.Next.FindItem("act-x")
	assert.Equal(t, "area-a", model.Deref(it.AreaID))
	assert.Equal(t, 8, it.SortOrder)

	p = PlanDrop(fixture(), Event{DraggedID: "act-x", Zone: zone(t, "actions:loose"), ClearArea: true})
	require.Equal(t, Move, p.Kind)
	it, _, _ = p.Next.FindItem("act-x")
	assert.Nil(t, it.AreaID)
	assert.Equal(t, 1, it.SortOrder, "empty target partition starts at 1")
	assert.Empty(t, partition.Validate(p.Next))
}

func TestPlanDrop_ActionOntoTensionAdoptsEffectiveArea(t *testing.T) {
	p := PlanDrop(fixture(), Event{DraggedID: "act-b1", DropTargetID: "ten-2"})
	require.Equal(t, Move, p.Kind)
	it, loc, ok := p.Next.FindItem("act-b1")
	require.True(t, ok)
	assert.Equal(t, "ten-2", loc.TensionID)
	assert.Equal(t, "ten-2", model.Deref(it.TensionID))
	assert.Equal(t, "area-a", model.Deref(it.AreaID))
	assert.Equal(t, 1, it.SortOrder)
	assert.Empty(t, partition.Validate(p.Next))
}

func TestPlanDrop_TensionMoveCascadesOnlyWhenAsked(t *testing.T) {
	s := fixture()

	p := PlanDrop(s, Event{DraggedID: "ten-1", Zone: zone(t, "tensions:area-b")})
	require.Equal(t, Move, p.Kind)
	require.Len(t, p.Calls, 1)
	t1, _ := p.Next.FindTension("ten-1")
	assert.Equal(t, "area-b", model.Deref(t1.AreaID))
	assert.Equal(t, 1, t1.SortOrder)
	assert.Equal(t, "area-a", model.Deref(t1.Actions[0].AreaID))

	p = PlanDrop(s, Event{DraggedID: "ten-1", Zone: zone(t, "tensions:area-b"), Cascade: true})
	require.Equal(t, Move, p.Kind)
	require.Len(t, p.Calls, 5)
	t1, _ = p.Next.FindTension("ten-1")
	for _, a := range t1.Actions {
		assert.Equal(t, "area-b", model.Deref(a.AreaID), a.ID)
	}
	assert.Equal(t, "area-b", model.Deref(p.Next.ChildVisions[0].AreaID))
	assert.Nil(t, p.Next.ChildVisions[1].AreaID, "visions of unrelated charts stay put")
	assert.Equal(t, "vis-c1", p.Calls[4].ID)
	assert.Empty(t, partition.Validate(p.Next))
}

// inheritingFixture adds area-b tensions and ten-x, which has its own area-a
// but links a vision of area-b.
func inheritingFixture() board.Snapshot {
	s := fixture()
	s.Visions = append(s.Visions, model.Item{ID: "vis-b", ChartID: "chart-1", AreaID: sp("area-b"), SortOrder: 0, CreatedAt: t0})
	s.Tensions = append(s.Tensions,
		model.Tension{ID: "ten-b0", ChartID: "chart-1", AreaID: sp("area-b"), SortOrder: 0, CreatedAt: t0},
		model.Tension{ID: "ten-b1", ChartID: "chart-1", AreaID: sp("area-b"), SortOrder: 1, CreatedAt: t0},
		model.Tension{
			ID: "ten-x", ChartID: "chart-1", AreaID: sp("area-a"), SortOrder: 2, CreatedAt: t0,
			VisionIDs: []string{"vis-b"},
			Actions:   []model.Item{{ID: "act-q", TensionID: sp("ten-x"), AreaID: sp("area-a"), SortOrder: 0, CreatedAt: t0}},
		},
		model.Tension{ID: "ten-i", ChartID: "chart-1", VisionIDs: []string{"vis-b"}, SortOrder: 2, CreatedAt: t0},
	)
	return s
}

func TestPlanDrop_TensionToUncategorizedLandsInInheritedArea(t *testing.T) {
	s := inheritingFixture()
	require.Empty(t, partition.Validate(s))

	p := PlanDrop(s, Event{DraggedID: "ten-x", Zone: zone(t, "tensions:uncategorized")})
	require.Equal(t, Move, p.Kind)
	assert.Equal(t, "tensions:area-b", p.To.String())

	x, _ := p.Next.FindTension("ten-x")
	assert.Nil(t, x.AreaID)
	assert.Equal(t, 3, x.SortOrder, "appended after the tensions already inheriting area-b")
	k, _ := partition.Resolve(p.Next, "ten-x")
	assert.Equal(t, p.To, k)
	assert.Empty(t, partition.Validate(p.Next))

	require.Len(t, p.Calls, 1)
	assert.Nil(t, p.Calls[0].Fields.AreaID)
	assert.Equal(t, 3, p.Calls[0].Fields.SortOrder)
}

func TestPlanDrop_CascadeCarriesEffectiveArea(t *testing.T) {
	p := PlanDrop(inheritingFixture(), Event{DraggedID: "ten-x", Zone: zone(t, "tensions:uncategorized"), Cascade: true})
	require.Equal(t, Move, p.Kind)
	x, _ := p.Next.FindTension("ten-x")
	require.Len(t, x.Actions, 1)
	assert.Equal(t, "area-b", model.Deref(x.Actions[0].AreaID))
	assert.Empty(t, partition.Validate(p.Next))
}

func TestPlanDrop_InheritingTensionToOtherArea(t *testing.T) {
	p := PlanDrop(inheritingFixture(), Event{DraggedID: "ten-i", Zone: zone(t, "tensions:area-a")})
	require.Equal(t, Move, p.Kind)
	i, _ := p.Next.FindTension("ten-i")
	assert.Equal(t, "area-a", model.Deref(i.AreaID))
	assert.Equal(t, 3, i.SortOrder)
	assert.Equal(t, "tensions:area-a", p.To.String())
	assert.Empty(t, partition.Validate(p.Next))
}

func TestPlanDrop_InheritingTensionToUncategorizedIsNoop(t *testing.T) {
	p := PlanDrop(inheritingFixture(), Event{DraggedID: "ten-i", Zone: zone(t, "tensions:uncategorized")})
	assert.Equal(t, Noop, p.Kind)
	assert.Empty(t, p.Calls)
}

func TestPlanDrop_Noops(t *testing.T) {
	s := fixture()
	cases := []struct {
		name string
		ev   Event
	}{
		{"onto itself", Event{DraggedID: "ten-1", DropTargetID: "ten-1"}},
		{"unknown dragged", Event{DraggedID: "nope", DropTargetID: "ten-1"}},
		{"no target", Event{DraggedID: "ten-1"}},
		{"unknown target", Event{DraggedID: "ten-1", DropTargetID: "nope"}},
		{"dated dragged", Event{DraggedID: "vis-d", DropTargetID: "vis-1"}},
		{"zone of other table", Event{DraggedID: "vis-1", Zone: zone(t, "realities:area-a")}},
		{"zone of unknown area", Event{DraggedID: "vis-1", Zone: zone(t, "visions:area-zzz")}},
		{"tension onto action", Event{DraggedID: "ten-1", DropTargetID: "act-x"}},
		{"already in place", Event{DraggedID: "ten-2", Zone: zone(t, "tensions:area-a")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := PlanDrop(s, tc.ev)
			assert.Equal(t, Noop, p.Kind)
			assert.NotEmpty(t, p.Reason)
			assert.Empty(t, p.Calls)
		})
	}
}

func TestPlanDrop_DatedTargetNormalizesToUndatedBucket(t *testing.T) {
	p := PlanDrop(fixture(), Event{DraggedID: "vis-1", DropTargetID: "vis-d"})
	require.Equal(t, Reorder, p.Kind)

	undated := partition.Members(p.Next, partition.Key{Table: model.TableVisions, Group: "area-a", Bucket: partition.BucketUndated}, partition.DueAscending)
	assert.Equal(t, []string{"vis-2", "vis-1"}, memberIDs(undated))
	d, _, _ := p.Next.FindItem("vis-d")
	assert.Equal(t, 0, d.SortOrder)
	assert.Empty(t, partition.Validate(p.Next))
}

func TestPlanDrop_DenseReindexAndUniqueness(t *testing.T) {
	s := fixture()
	// Start from sparse keys.
	s.Tensions[0].Actions[0].SortOrder = 5
	s.Tensions[0].Actions[1].SortOrder = 9
	s.Tensions[0].Actions[2].SortOrder = 20
	k := partition.Key{Table: model.TableActions, Group: "ten-1", Bucket: partition.BucketUndated}

	ids := []string{"act-x", "act-y", "act-z"}
	for _, dragged := range ids {
		for _, target := range ids {
			if dragged == target {
				continue
			}
			targetIdx := partition.IndexOf(partition.Members(s, k, partition.DueAscending), target)
			p := PlanDrop(s, Event{DraggedID: dragged, DropTargetID: target})
			require.Equal(t, Reorder, p.Kind, "%s onto %s", dragged, target)

			ms := partition.Members(p.Next, k, partition.DueAscending)
			for i, m := range ms {
				assert.Equal(t, i, m.SortOrder)
			}
			assert.Equal(t, targetIdx, partition.IndexOf(ms, dragged))
			assert.Empty(t, partition.Validate(p.Next))
			s = p.Next
		}
	}
}

func TestPlanEdit_DueDateTransitions(t *testing.T) {
	s := fixture()

	p, err := PlanEdit(s, "vis-d", persist.Patch{SetDueDate: true})
	require.NoError(t, err)
	require.Equal(t, Edit, p.Kind)
	it, _, _ := p.Next.FindItem("vis-d")
	assert.False(t, it.HasDueDate())
	assert.Equal(t, 2, it.SortOrder)
	require.Len(t, p.Calls, 2)
	assert.Equal(t, persist.CallUpdate, p.Calls[0].Kind)
	assert.Equal(t, persist.CallMove, p.Calls[1].Kind)
	assert.Empty(t, partition.Validate(p.Next))

	p, err = PlanEdit(s, "vis-1", persist.Patch{SetDueDate: true, DueDate: sp("2026-05-01")})
	require.NoError(t, err)
	require.Len(t, p.Calls, 1)
	k, _ := partition.Resolve(p.Next, "vis-1")
	assert.Equal(t, partition.BucketDated, k.Bucket)
}

func TestPlanEdit_Errors(t *testing.T) {
	s := fixture()

	_, err := PlanEdit(s, "missing", persist.Patch{Title: sp("x")})
	assert.True(t, errors.Is(err, persist.ErrNotFound))

	_, err = PlanEdit(s, "vis-1", persist.Patch{SetDueDate: true, DueDate: sp("tomorrow")})
	assert.Error(t, err)

	_, err = PlanEdit(s, "ten-1", persist.Patch{Status: sp("maybe")})
	assert.Error(t, err)

	_, err = PlanEdit(s, "vis-1", persist.Patch{Done: boolPtr(true)})
	assert.Error(t, err)

	p, err := PlanEdit(s, "ten-1", persist.Patch{Title: sp("T1")})
	require.NoError(t, err)
	assert.Equal(t, Noop, p.Kind)

	p, err = PlanEdit(s, "area-a", persist.Patch{Name: sp("Alpha")})
	require.NoError(t, err)
	a, _ := p.Next.FindArea("area-a")
	assert.Equal(t, "Alpha", a.Name)
}

func TestPlanCreate(t *testing.T) {
	s := fixture()

	p, err := PlanCreate(s, model.TableActions, persist.Fields{Title: "new", TensionID: sp("ten-1")}, t0)
	require.NoError(t, err)
	require.Equal(t, Create, p.Kind)
	require.NotNil(t, p.Create)
	assert.True(t, strings.HasPrefix(p.Create.TempID, TempIDPrefix))
	it, loc, ok := p.Next.FindItem(p.Create.TempID)
	require.True(t, ok)
	assert.Equal(t, "ten-1", loc.TensionID)
	assert.Equal(t, 3, it.SortOrder)
	assert.Equal(t, "area-a", model.Deref(it.AreaID))
	assert.Equal(t, 3, p.Create.Fields.SortOrder)

	p, err = PlanCreate(s, model.TableAreas, persist.Fields{Name: "C"}, t0)
	require.NoError(t, err)
	a, ok := p.Next.FindArea(p.Create.TempID)
	require.True(t, ok)
	assert.Equal(t, 2, a.SortOrder)

	p, err = PlanCreate(s, model.TableVisions, persist.Fields{Title: "v", AreaID: sp("area-b")}, t0)
	require.NoError(t, err)
	it, _, _ = p.Next.FindItem(p.Create.TempID)
	assert.Equal(t, 0, it.SortOrder)

	_, err = PlanCreate(s, model.TableActions, persist.Fields{Title: "x", TensionID: sp("ten-404")}, t0)
	assert.True(t, errors.Is(err, persist.ErrNotFound))

	_, err = PlanCreate(s, model.TableTensions, persist.Fields{Title: " "}, t0)
	assert.Error(t, err)
}

func TestPlanReindex(t *testing.T) {
	s := fixture()
	p := PlanReindex(s)
	require.Equal(t, Reindex, p.Kind)
	for _, k := range partition.Keys(p.Next) {
		if !k.Ordered() {
			continue
		}
		for i, m := range partition.Members(p.Next, k, partition.DueAscending) {
			assert.Equal(t, i, m.SortOrder, k.String())
		}
	}
	assert.Equal(t, Noop, PlanReindex(p.Next).Kind)
}

func memberIDs(ms []partition.Member) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Ref.ID)
	}
	return out
}

func boolPtr(b bool) *bool { return &b }
