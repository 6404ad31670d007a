// Package deletion removes items from the board immediately and commits the
// deletion to the store only after a grace window during which it can be
// undone.
package deletion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"tension-cli/internal/board"
	"tension-cli/internal/mutation"
	"tension-cli/internal/persist"
)

const DefaultGrace = 5 * time.Second

type Options struct {
	Grace     time.Duration
	Clock     Clock
	Logger    *slog.Logger
	OnFailure func(mutation.Failure)
	// OnCommit is called after a deletion reached the store.
	OnCommit func(board.Ref)
}

type entry struct {
	removed board.Removed
	timer   Timer
	gen     uint64
}

type Scheduler struct {
	board     *board.Board
	store     persist.Persister
	grace     time.Duration
	clock     Clock
	log       *slog.Logger
	onFailure func(mutation.Failure)
	onCommit  func(board.Ref)

	mu      sync.Mutex
	pending map[string]*entry
	gen     uint64

	commits sync.WaitGroup
}

func NewScheduler(b *board.Board, store persist.Persister, opts Options) *Scheduler {
	s := &Scheduler{
		board:     b,
		store:     store,
		grace:     opts.Grace,
		clock:     opts.Clock,
		log:       opts.Logger,
		onFailure: opts.OnFailure,
		onCommit:  opts.OnCommit,
		pending:   map[string]*entry{},
	}
	if s.grace <= 0 {
		s.grace = DefaultGrace
	}
	if s.clock == nil {
		s.clock = SystemClock
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	return s
}

func (s *Scheduler) Grace() time.Duration { return s.grace }

// Handle refers to one scheduled deletion.
type Handle struct {
	s   *Scheduler
	Ref board.Ref
}

// Cancel undoes the deletion if it has not been committed yet.
func (h *Handle) Cancel() bool {
	if h == nil || h.s == nil {
		return false
	}
	return h.s.Undo(h.Ref.ID)
}

// Schedule hides id from the board and arms its grace timer. Scheduling an
// item that is already pending restarts its timer; it is still committed once.
func (s *Scheduler) Schedule(id string) (*Handle, error) {
	id = strings.TrimSpace(id)

	s.mu.Lock()
	if e, ok := s.pending[id]; ok {
		e.timer.Stop()
		s.arm(id, e)
		ref := e.removed.Location.Ref
		s.mu.Unlock()
		s.log.Debug("delete re-armed", slog.String("id", id))
		return &Handle{s: s, Ref: ref}, nil
	}
	s.mu.Unlock()

	var rm board.Removed
	_, _, ok := s.board.Update(func(cur board.Snapshot) (board.Snapshot, bool) {
		next, r, ok := cur.Remove(id)
		rm = r
		return next, ok
	})
	if !ok {
		return nil, persist.NotFoundError{Table: "items", ID: id}
	}

	s.mu.Lock()
	e := &entry{removed: rm}
	s.pending[id] = e
	s.arm(id, e)
	s.mu.Unlock()

	s.log.Debug("delete scheduled", slog.String("table", string(rm.Location.Ref.Table)), slog.String("id", id), slog.Duration("grace", s.grace))
	return &Handle{s: s, Ref: rm.Location.Ref}, nil
}

// arm starts a fresh timer for e. Caller holds s.mu.
func (s *Scheduler) arm(id string, e *entry) {
	s.gen++
	gen := s.gen
	e.gen = gen
	e.timer = s.clock.AfterFunc(s.grace, func() { s.fire(id, gen) })
}

// claim removes and returns the pending entry for id. gen 0 matches any
// generation. Caller must not hold s.mu.
func (s *Scheduler) claim(id string, gen uint64) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pending[id]
	if !ok || (gen != 0 && e.gen != gen) {
		return nil, false
	}
	delete(s.pending, id)
	return e, true
}

func (s *Scheduler) fire(id string, gen uint64) {
	e, ok := s.claim(id, gen)
	if !ok {
		return
	}
	s.commits.Add(1)
	defer s.commits.Done()
	s.report(e, s.commit(context.Background(), e))
}

// commit deletes the item from the store, putting it back on the board when
// that fails.
func (s *Scheduler) commit(ctx context.Context, e *entry) error {
	ref := e.removed.Location.Ref
	if err := s.store.DeleteItem(ctx, ref.Table, ref.ID); err != nil {
		s.restore(e.removed)
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	return nil
}

// report logs the result of commit and hands it to the callbacks.
func (s *Scheduler) report(e *entry, err error) {
	ref := e.removed.Location.Ref
	if err == nil {
		s.log.Debug("delete committed", slog.String("table", string(ref.Table)), slog.String("id", ref.ID))
		if s.onCommit != nil {
			s.onCommit(ref)
		}
		return
	}
	s.log.Warn("delete failed, item restored", slog.String("table", string(ref.Table)), slog.String("id", ref.ID), slog.String("err", err.Error()))
	if s.onFailure != nil {
		cause := errors.Unwrap(err)
		s.onFailure(mutation.Failure{
			Op:      "delete",
			Ref:     ref,
			Message: fmt.Sprintf("could not delete %s: %v", ref.ID, cause),
			Err:     cause,
		})
	}
}

func (s *Scheduler) restore(rm board.Removed) {
	s.board.Update(func(cur board.Snapshot) (board.Snapshot, bool) {
		if _, exists := cur.Locate(rm.Location.Ref.ID); exists {
			return cur, false
		}
		return cur.Restore(rm), true
	})
}

// Undo cancels a pending deletion and puts the item back where it was.
func (s *Scheduler) Undo(id string) bool {
	e, ok := s.claim(strings.TrimSpace(id), 0)
	if !ok {
		return false
	}
	e.timer.Stop()
	s.restore(e.removed)
	s.log.Debug("delete undone", slog.String("id", id))
	return true
}

// UndoLast undoes the most recently scheduled pending deletion.
func (s *Scheduler) UndoLast() (board.Ref, bool) {
	s.mu.Lock()
	var (
		last *entry
		id   string
	)
	for k, e := range s.pending {
		if last == nil || e.gen > last.gen {
			last, id = e, k
		}
	}
	s.mu.Unlock()
	if last == nil {
		return board.Ref{}, false
	}
	if !s.Undo(id) {
		return board.Ref{}, false
	}
	return last.removed.Location.Ref, true
}

// Pending lists items whose deletion has not been committed, by id.
func (s *Scheduler) Pending() []board.Ref {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]board.Ref, 0, len(s.pending))
	for _, e := range s.pending {
		out = append(out, e.removed.Location.Ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Flush commits every pending deletion now, without waiting for the timers.
func (s *Scheduler) Flush(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Strings(ids)

	var errs []error
	for _, id := range ids {
		e, ok := s.claim(id, 0)
		if !ok {
			continue
		}
		e.timer.Stop()
		err := s.commit(ctx, e)
		s.report(e, err)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Wait blocks until timer-driven commits in flight have finished.
func (s *Scheduler) Wait() { s.commits.Wait() }
