package tui

import (
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tension-cli/internal/board"
	"tension-cli/internal/deletion"
	"tension-cli/internal/model"
	"tension-cli/internal/mutation"
	"tension-cli/internal/partition"
	"tension-cli/internal/persist"
	"tension-cli/internal/persist/persisttest"
	"tension-cli/internal/render"
)

// stillClock never fires, so deletions stay pending until undone or flushed.
type stillClock struct{}

type stillTimer struct{}

func (stillTimer) Stop() bool { return true }

func (stillClock) AfterFunc(time.Duration, func()) deletion.Timer { return stillTimer{} }

func sp(s string) *string { return &s }

func seed() board.Snapshot {
	return board.Snapshot{
		ChartID: "chart-1",
		Areas:   []model.Area{{ID: "area-a", ChartID: "chart-1", Name: "Home"}},
		Tensions: []model.Tension{
			{
				ID: "ten-1", ChartID: "chart-1", Title: "Tidy flat", Status: model.TensionActive, AreaID: sp("area-a"),
				Description: "Keep the **kitchen** clear",
				Actions: []model.Item{
					{ID: "act-x", Title: "Wash dishes", TensionID: sp("ten-1"), AreaID: sp("area-a"), SortOrder: 0},
					{ID: "act-y", Title: "Sweep floor", TensionID: sp("ten-1"), AreaID: sp("area-a"), SortOrder: 1},
					{ID: "act-z", Title: "Take out bins", TensionID: sp("ten-1"), AreaID: sp("area-a"), SortOrder: 2},
				},
			},
			{ID: "ten-2", ChartID: "chart-1", Title: "Fix bike", Status: model.TensionActive, AreaID: sp("area-a"), SortOrder: 1},
		},
		LooseActions: []model.Item{{ID: "act-l", Title: "Call plumber", AreaID: sp("area-a"), SortOrder: 0}},
	}
}

type fixture struct {
	rec      *persisttest.Recorder
	sync     *mutation.Synchronizer
	sched    *deletion.Scheduler
	mu       sync.Mutex
	failures []mutation.Failure
}

func newFixture(t *testing.T, rec *persisttest.Recorder) (*fixture, Model) {
	t.Helper()
	if rec == nil {
		rec = &persisttest.Recorder{}
	}
	f := &fixture{rec: rec}
	b := board.New(seed())
	f.sync = mutation.New(b, rec, mutation.Options{OnFailure: f.fail})
	f.sched = deletion.NewScheduler(b, rec, deletion.Options{Clock: stillClock{}, OnFailure: f.fail})
	m := New(Deps{Sync: f.sync, Sched: f.sched, Title: "Main", Order: partition.DueAscending})
	t.Cleanup(m.Close)
	return f, m
}

func (f *fixture) fail(x mutation.Failure) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, x)
}

func (f *fixture) lastFailure(t *testing.T) mutation.Failure {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.failures)
	return f.failures[len(f.failures)-1]
}

func send(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		switch k {
		case "enter":
			m = send(m, tea.KeyMsg{Type: tea.KeyEnter})
		case "esc":
			m = send(m, tea.KeyMsg{Type: tea.KeyEsc})
		default:
			m = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
		}
	}
	return m
}

func focus(t *testing.T, m Model, id string) Model {
	t.Helper()
	for i, r := range m.rows {
		if r.Ref.ID == id {
			m.cursor = i
			m.clamp()
			return m
		}
	}
	t.Fatalf("no row for %s", id)
	return m
}

func itemIDs(m Model) []string {
	var out []string
	for _, r := range m.rows {
		if r.Kind == render.RowItem {
			out = append(out, r.Ref.ID)
		}
	}
	return out
}

func TestMoveDown_ReordersWithinPartitionAndPersists(t *testing.T) {
	f, m := newFixture(t, nil)
	m = focus(t, m, "act-x")

	m = press(m, "J")

	assert.Equal(t, []string{"ten-1", "act-y", "act-x", "act-z", "ten-2", "act-l"}, itemIDs(m))
	cur, ok := m.current()
	require.True(t, ok)
	assert.Equal(t, "act-x", cur.Ref.ID, "cursor follows the moved item")

	f.sync.Wait()
	require.Len(t, f.rec.CallsOf(persist.CallSetOrder), 1)
}

func TestMoveUp_AtTopOfPartitionIsNoop(t *testing.T) {
	f, m := newFixture(t, nil)
	m = focus(t, m, "act-x")

	m = press(m, "K")

	assert.Equal(t, []string{"ten-1", "act-x", "act-y", "act-z", "ten-2", "act-l"}, itemIDs(m))
	f.sync.Wait()
	assert.Empty(t, f.rec.Calls())
}

func TestPickAndDrop_ActionOntoTension(t *testing.T) {
	f, m := newFixture(t, nil)
	m = focus(t, m, "act-l")
	m = press(m, "m")
	require.NotNil(t, m.picked)
	assert.Contains(t, m.View(), "moving Call plumber")

	m = focus(t, m, "ten-2")
	m = press(m, "enter")

	assert.Nil(t, m.picked)
	ten, ok := m.snap.FindTension("ten-2")
	require.True(t, ok)
	require.Len(t, ten.Actions, 1)
	assert.Equal(t, "act-l", ten.Actions[0].ID)
	assert.Empty(t, m.snap.LooseActions)

	f.sync.Wait()
	assert.NotEmpty(t, f.rec.CallsOf(persist.CallMove))
}

func TestPick_EscCancels(t *testing.T) {
	_, m := newFixture(t, nil)
	m = focus(t, m, "act-l")
	m = press(m, "m", "esc")
	assert.Nil(t, m.picked)
}

func TestDeleteThenUndo(t *testing.T) {
	f, m := newFixture(t, nil)
	m = focus(t, m, "act-y")

	m = press(m, "d")
	assert.NotContains(t, itemIDs(m), "act-y")
	assert.Contains(t, m.status, "u to undo")
	assert.Equal(t, []board.Ref{{Table: model.TableActions, ID: "act-y"}}, f.sched.Pending())

	m = press(m, "u")
	assert.Equal(t, []string{"ten-1", "act-x", "act-y", "act-z", "ten-2", "act-l"}, itemIDs(m))
	assert.Empty(t, f.sched.Pending())
	assert.Empty(t, f.rec.CallsOf(persist.CallDelete))

	m = press(m, "u")
	assert.Equal(t, "nothing to undo", m.status)
}

func TestFailedReorder_RevertsAndShowsError(t *testing.T) {
	rec := &persisttest.Recorder{FailOn: func(c persist.Call) bool { return c.Kind == persist.CallSetOrder }}
	f, m := newFixture(t, rec)
	m = focus(t, m, "act-x")

	m = press(m, "J")
	f.sync.Wait()

	m = send(m, failureMsg{f.lastFailure(t)})
	assert.True(t, m.statusErr)
	assert.NotEmpty(t, m.status)
	assert.Equal(t, []string{"ten-1", "act-x", "act-y", "act-z", "ten-2", "act-l"}, itemIDs(m))
	assert.Contains(t, m.View(), "could not save")
}

func TestEditTitle(t *testing.T) {
	f, m := newFixture(t, nil)
	m = focus(t, m, "ten-2")

	m = press(m, "e")
	require.True(t, m.editing)
	assert.Equal(t, "Fix bike", m.input.Value())

	m.input.SetValue("Service bike")
	m = press(m, "enter")

	assert.False(t, m.editing)
	ten, ok := m.snap.FindTension("ten-2")
	require.True(t, ok)
	assert.Equal(t, "Service bike", ten.Title)
	f.sync.Wait()
	assert.Len(t, f.rec.CallsOf(persist.CallUpdate), 1)
}

func TestEditEscLeavesTitle(t *testing.T) {
	_, m := newFixture(t, nil)
	m = focus(t, m, "ten-2")
	m = press(m, "e")
	m.input.SetValue("Nope")
	m = press(m, "esc")

	ten, _ := m.snap.FindTension("ten-2")
	assert.Equal(t, "Fix bike", ten.Title)
}

func TestCascadeToggle(t *testing.T) {
	_, m := newFixture(t, nil)
	m = press(m, "c")
	assert.True(t, m.cascade)
	assert.Contains(t, m.View(), "cascade")
	m = press(m, "c")
	assert.False(t, m.cascade)
}

func TestBoardChange_FromElsewhereRefreshes(t *testing.T) {
	f, m := newFixture(t, nil)
	f.sync.Board().Update(func(cur board.Snapshot) (board.Snapshot, bool) {
		cur = cur.Clone()
		cur.LooseActions = append(cur.LooseActions, model.Item{ID: "act-n", Title: "Water plants", AreaID: sp("area-a"), SortOrder: 1})
		return cur, true
	})
	assert.NotContains(t, itemIDs(m), "act-n")

	m = send(m, boardChangedMsg{})
	assert.Contains(t, itemIDs(m), "act-n")
}

func TestView_ShowsSectionsAndDescription(t *testing.T) {
	_, m := newFixture(t, nil)
	m = send(m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m = focus(t, m, "ten-1")

	v := m.View()
	for _, want := range []string{"Main", "Home", render.SectionTensions, "Tidy flat", "Wash dishes", render.SectionLoose, "Call plumber", "kitchen"} {
		assert.Contains(t, v, want)
	}
	assert.LessOrEqual(t, strings.Count(v, "\n"), 40)
}
