package board

import (
	"testing"

	"tension-cli/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() Snapshot {
	area := "area-a"
	ten := "ten-1"
	return Snapshot{
		ChartID: "chart-1",
		Areas:   []model.Area{{ID: area, ChartID: "chart-1", Name: "A"}},
		Visions: []model.Item{
			{ID: "vis-1", ChartID: "chart-1", Title: "V1", AreaID: &area},
			{ID: "vis-2", ChartID: "chart-1", Title: "V2", SortOrder: 1},
		},
		Tensions: []model.Tension{{
			ID:        ten,
			ChartID:   "chart-1",
			Title:     "T1",
			Status:    model.TensionActive,
			VisionIDs: []string{"vis-1"},
			Actions: []model.Item{
				{ID: "act-1", ChartID: "chart-1", TensionID: &ten},
				{ID: "act-2", ChartID: "chart-1", TensionID: &ten, SortOrder: 1},
			},
		}},
		LooseActions: []model.Item{{ID: "act-3", ChartID: "chart-1", AreaID: &area}},
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := fixture()
	c := s.Clone()
	require.Equal(t, s, c)

	*c.Visions[0].AreaID = "changed"
	c.Tensions[0].Actions[0].Title = "changed"
	c.Tensions[0].VisionIDs[0] = "changed"

	assert.Equal(t, "area-a", *s.Visions[0].AreaID)
	assert.Equal(t, "", s.Tensions[0].Actions[0].Title)
	assert.Equal(t, "vis-1", s.Tensions[0].VisionIDs[0])
}

func TestLocate(t *testing.T) {
	s := fixture()

	loc, ok := s.Locate("act-2")
	require.True(t, ok)
	assert.Equal(t, Location{Ref: Ref{Table: model.TableActions, ID: "act-2"}, TensionID: "ten-1", Index: 1}, loc)

	loc, ok = s.Locate("act-3")
	require.True(t, ok)
	assert.Equal(t, "", loc.TensionID)

	_, ok = s.Locate("nope")
	assert.False(t, ok)
}

func TestRemoveRestore_RoundTrip(t *testing.T) {
	s := fixture()
	for _, id := range []string{"vis-1", "act-1", "act-3", "ten-1", "area-a"} {
		next, rm, ok := s.Remove(id)
		require.True(t, ok, id)
		_, still := next.Locate(id)
		require.False(t, still, id)

		back := next.Restore(rm)
		assert.Equal(t, s, back, id)
	}
}

func TestRestore_ActionOfVanishedTensionBecomesLoose(t *testing.T) {
	s := fixture()
	s1, rm, ok := s.Remove("act-1")
	require.True(t, ok)
	s2, _, ok := s1.Remove("ten-1")
	require.True(t, ok)

	s3 := s2.Restore(rm)
	it, loc, ok := s3.FindItem("act-1")
	require.True(t, ok)
	assert.Nil(t, it.TensionID)
	assert.Equal(t, "", loc.TensionID)
}

func TestReplaceID_RewritesReferences(t *testing.T) {
	s := fixture()

	s1 := s.ReplaceID("ten-1", "ten-real")
	tn, ok := s1.FindTension("ten-real")
	require.True(t, ok)
	for _, a := range tn.Actions {
		assert.Equal(t, "ten-real", *a.TensionID)
	}

	s2 := s.ReplaceID("vis-1", "vis-real")
	assert.Equal(t, []string{"vis-real"}, s2.Tensions[0].VisionIDs)

	s3 := s.ReplaceID("area-a", "area-real")
	assert.Equal(t, "area-real", *s3.Visions[0].AreaID)
	assert.Equal(t, "area-real", *s3.LooseActions[0].AreaID)

	// Original untouched.
	assert.Equal(t, "area-a", *s.Visions[0].AreaID)
}

func TestMoveAction_BetweenContainers(t *testing.T) {
	s := fixture().Clone()
	loc, _ := s.Locate("act-1")
	it, _ := s.Item(loc)
	it.TensionID = nil

	newLoc, ok := s.MoveAction(loc, "", it)
	require.True(t, ok)
	assert.Equal(t, "", newLoc.TensionID)
	assert.Len(t, s.Tensions[0].Actions, 1)
	assert.Len(t, s.LooseActions, 2)
	assert.Equal(t, "act-1", s.LooseActions[newLoc.Index].ID)
}

func TestBoard_UpdateNotifiesInVersionOrder(t *testing.T) {
	b := New(fixture())

	var got []uint64
	cancel := b.Subscribe(func(ch Change) { got = append(got, ch.Version) })

	prev, next, changed := b.Update(func(cur Snapshot) (Snapshot, bool) {
		cur.Visions[0].Title = "renamed"
		return cur, true
	})
	require.True(t, changed)
	assert.Equal(t, "V1", prev.Visions[0].Title)
	assert.Equal(t, "renamed", next.Visions[0].Title)

	_, _, changed = b.Update(func(cur Snapshot) (Snapshot, bool) { return cur, false })
	assert.False(t, changed)

	b.Replace(prev)
	assert.Equal(t, "V1", b.Snapshot().Visions[0].Title)

	cancel()
	b.Replace(next)
	assert.Equal(t, []uint64{1, 2}, got)
	assert.Equal(t, uint64(3), b.Version())
}
