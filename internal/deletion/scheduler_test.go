package deletion

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"tension-cli/internal/board"
	"tension-cli/internal/model"
	"tension-cli/internal/mutation"
	"tension-cli/internal/partition"
	"tension-cli/internal/persist"
	"tension-cli/internal/persist/persisttest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualClock fires timers synchronously from Advance.
type manualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	c       *manualClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{c: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

func sp(s string) *string { return &s }

func seed() board.Snapshot {
	return board.Snapshot{
		ChartID: "chart-1",
		Areas:   []model.Area{{ID: "area-a", ChartID: "chart-1", Name: "A"}},
		Visions: []model.Item{
			{ID: "vis-1", AreaID: sp("area-a"), SortOrder: 0},
			{ID: "vis-v", AreaID: sp("area-a"), SortOrder: 1},
			{ID: "vis-3", AreaID: sp("area-a"), SortOrder: 2},
		},
		Tensions: []model.Tension{{
			ID: "ten-1", AreaID: sp("area-a"),
			Actions: []model.Item{{ID: "act-1", TensionID: sp("ten-1"), SortOrder: 0}},
		}},
	}
}

type harness struct {
	b     *board.Board
	rec   *persisttest.Recorder
	clock *manualClock
	s     *Scheduler

	mu       sync.Mutex
	failures []mutation.Failure
}

func newHarness(rec *persisttest.Recorder) *harness {
	h := &harness{b: board.New(seed()), rec: rec, clock: &manualClock{}}
	h.s = NewScheduler(h.b, rec, Options{
		Grace: 15 * time.Second,
		Clock: h.clock,
		OnFailure: func(f mutation.Failure) {
			h.mu.Lock()
			h.failures = append(h.failures, f)
			h.mu.Unlock()
		},
	})
	return h
}

func (h *harness) failureCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.failures)
}

func TestUndoBeforeExpiryRestoresOriginalPosition(t *testing.T) {
	h := newHarness(&persisttest.Recorder{})
	before := h.b.Snapshot()
	loc, _ := before.Locate("vis-v")
	key, _ := partition.Resolve(before, "vis-v")

	_, err := h.s.Schedule("vis-v")
	require.NoError(t, err)
	_, present := h.b.Snapshot().Locate("vis-v")
	assert.False(t, present)

	h.clock.Advance(5 * time.Second)
	require.True(t, h.s.Undo("vis-v"))

	after := h.b.Snapshot()
	assert.Equal(t, before, after)
	gotLoc, ok := after.Locate("vis-v")
	require.True(t, ok)
	assert.Equal(t, loc, gotLoc)
	gotKey, _ := partition.Resolve(after, "vis-v")
	assert.Equal(t, key, gotKey)

	h.clock.Advance(20 * time.Second)
	assert.Empty(t, h.rec.CallsOf(persist.CallDelete))
	assert.False(t, h.s.Undo("vis-v"))
}

func TestExpiryCommitsExactlyOnce(t *testing.T) {
	h := newHarness(&persisttest.Recorder{})
	_, err := h.s.Schedule("vis-v")
	require.NoError(t, err)

	h.clock.Advance(20 * time.Second)
	_, present := h.b.Snapshot().Locate("vis-v")
	assert.False(t, present)
	calls := h.rec.CallsOf(persist.CallDelete)
	require.Len(t, calls, 1)
	assert.Equal(t, model.TableVisions, calls[0].Table)
	assert.Equal(t, "vis-v", calls[0].ID)

	h.clock.Advance(time.Minute)
	assert.Len(t, h.rec.CallsOf(persist.CallDelete), 1)
	assert.False(t, h.s.Undo("vis-v"))
	assert.Empty(t, h.s.Pending())
}

func TestRescheduleRestartsTimerAndCommitsOnce(t *testing.T) {
	h := newHarness(&persisttest.Recorder{})
	_, err := h.s.Schedule("vis-v")
	require.NoError(t, err)

	h.clock.Advance(10 * time.Second)
	hd, err := h.s.Schedule("vis-v")
	require.NoError(t, err)
	assert.Equal(t, board.Ref{Table: model.TableVisions, ID: "vis-v"}, hd.Ref)

	h.clock.Advance(10 * time.Second)
	assert.Empty(t, h.rec.CallsOf(persist.CallDelete), "first timer must have been stopped")

	h.clock.Advance(5 * time.Second)
	assert.Len(t, h.rec.CallsOf(persist.CallDelete), 1)
}

func TestCommitFailureRestoresItem(t *testing.T) {
	h := newHarness(&persisttest.Recorder{FailOn: func(c persist.Call) bool { return c.Kind == persist.CallDelete }})
	before := h.b.Snapshot()

	_, err := h.s.Schedule("vis-v")
	require.NoError(t, err)
	h.clock.Advance(15 * time.Second)

	assert.Equal(t, before, h.b.Snapshot())
	assert.Equal(t, 1, h.failureCount())
	assert.Empty(t, h.s.Pending())
	assert.ErrorIs(t, h.failures[0].Err, persisttest.ErrInjected)
	assert.Equal(t, "delete", h.failures[0].Op)
}

func TestFlushFailureIsReturnedAndReportedOnce(t *testing.T) {
	h := newHarness(&persisttest.Recorder{FailOn: func(c persist.Call) bool { return c.Kind == persist.CallDelete }})
	before := h.b.Snapshot()
	_, err := h.s.Schedule("vis-v")
	require.NoError(t, err)

	err = h.s.Flush(context.Background())
	require.ErrorIs(t, err, persisttest.ErrInjected)
	assert.Equal(t, 1, h.failureCount())
	assert.Equal(t, before, h.b.Snapshot())

	h.clock.Advance(time.Minute)
	assert.Equal(t, 1, h.failureCount(), "the stopped timer must not report again")
}

func TestIndependentItemsDoNotInterfere(t *testing.T) {
	h := newHarness(&persisttest.Recorder{})
	_, err := h.s.Schedule("vis-1")
	require.NoError(t, err)
	h.clock.Advance(5 * time.Second)
	hb, err := h.s.Schedule("vis-3")
	require.NoError(t, err)

	assert.Len(t, h.s.Pending(), 2)
	assert.True(t, hb.Cancel())

	h.clock.Advance(30 * time.Second)
	calls := h.rec.CallsOf(persist.CallDelete)
	require.Len(t, calls, 1)
	assert.Equal(t, "vis-1", calls[0].ID)
	_, ok := h.b.Snapshot().Locate("vis-3")
	assert.True(t, ok)
}

func TestDeletingTensionHidesAndRestoresItsActions(t *testing.T) {
	h := newHarness(&persisttest.Recorder{})
	_, err := h.s.Schedule("ten-1")
	require.NoError(t, err)
	_, ok := h.b.Snapshot().Locate("act-1")
	assert.False(t, ok)

	ref, ok := h.s.UndoLast()
	require.True(t, ok)
	assert.Equal(t, "ten-1", ref.ID)
	_, loc, ok := h.b.Snapshot().FindItem("act-1")
	require.True(t, ok)
	assert.Equal(t, "ten-1", loc.TensionID)
}

func TestFlushCommitsPendingNow(t *testing.T) {
	h := newHarness(&persisttest.Recorder{})
	_, err := h.s.Schedule("vis-1")
	require.NoError(t, err)
	_, err = h.s.Schedule("vis-3")
	require.NoError(t, err)

	require.NoError(t, h.s.Flush(context.Background()))
	assert.Len(t, h.rec.CallsOf(persist.CallDelete), 2)

	h.clock.Advance(time.Minute)
	assert.Len(t, h.rec.CallsOf(persist.CallDelete), 2)
}

func TestScheduleUnknownItem(t *testing.T) {
	h := newHarness(&persisttest.Recorder{})
	_, err := h.s.Schedule("nope")
	assert.True(t, errors.Is(err, persist.ErrNotFound))
}
