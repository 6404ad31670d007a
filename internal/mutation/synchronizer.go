// Package mutation is the single optimistic entry point: it swaps a planned
// snapshot into the board, persists it in the background and reverts the
// board as a whole when persistence fails.
package mutation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tension-cli/internal/board"
	"tension-cli/internal/model"
	"tension-cli/internal/persist"
	"tension-cli/internal/reorder"
)

// Failure is raised once per failed mutation, after the board was reverted.
type Failure struct {
	Op      string    `json:"op"`
	Ref     board.Ref `json:"ref,omitempty"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (f Failure) Error() string { return f.Message }

func (f Failure) Unwrap() error { return f.Err }

// Outcome is the settled result of one mutation.
type Outcome struct {
	Plan      reorder.Plan `json:"plan"`
	Err       error        `json:"-"`
	Reverted  bool         `json:"reverted,omitempty"`
	CreatedID string       `json:"createdId,omitempty"`
}

// Pending resolves when the persistence calls of a mutation have settled.
type Pending struct {
	done chan struct{}
	out  Outcome
}

func newPending() *Pending { return &Pending{done: make(chan struct{})} }

func settled(out Outcome) *Pending {
	p := newPending()
	p.resolve(out)
	return p
}

func (p *Pending) resolve(out Outcome) {
	p.out = out
	close(p.done)
}

func (p *Pending) Done() <-chan struct{} { return p.done }

func (p *Pending) Wait() Outcome {
	<-p.done
	return p.out
}

type Options struct {
	Logger    *slog.Logger
	OnFailure func(Failure)
	// Parallel issues the calls of one mutation concurrently.
	Parallel bool
	Now      func() time.Time
}

type Synchronizer struct {
	board     *board.Board
	store     persist.Persister
	log       *slog.Logger
	onFailure func(Failure)
	parallel  bool
	now       func() time.Time

	inflight sync.WaitGroup
}

func New(b *board.Board, store persist.Persister, opts Options) *Synchronizer {
	s := &Synchronizer{
		board:     b,
		store:     store,
		log:       opts.Logger,
		onFailure: opts.OnFailure,
		parallel:  opts.Parallel,
		now:       opts.Now,
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Synchronizer) Board() *board.Board { return s.board }

// Apply plans against the live snapshot and installs the result inside the
// board's critical section, so the snapshot kept for a revert is exactly the
// one the plan was computed from. Planning errors are returned synchronously
// and leave the board untouched.
func (s *Synchronizer) Apply(ctx context.Context, plan func(cur board.Snapshot) (reorder.Plan, error)) (*Pending, error) {
	var (
		planned reorder.Plan
		planErr error
	)
	prev, _, changed := s.board.Update(func(cur board.Snapshot) (board.Snapshot, bool) {
		planned, planErr = plan(cur)
		if planErr != nil || !planned.Changed() {
			return cur, false
		}
		return planned.Next, true
	})
	if planErr != nil {
		return nil, planErr
	}
	if !changed {
		s.log.Debug("mutation skipped", slog.String("reason", planned.Reason))
		return settled(Outcome{Plan: planned}), nil
	}

	p := newPending()
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		p.resolve(s.commit(ctx, prev, planned))
	}()
	return p, nil
}

// Drop applies a drag-and-drop event.
func (s *Synchronizer) Drop(ctx context.Context, ev reorder.Event) *Pending {
	p, _ := s.Apply(ctx, func(cur board.Snapshot) (reorder.Plan, error) {
		return reorder.PlanDrop(cur, ev), nil
	})
	return p
}

func (s *Synchronizer) Edit(ctx context.Context, id string, patch persist.Patch) (*Pending, error) {
	return s.Apply(ctx, func(cur board.Snapshot) (reorder.Plan, error) {
		return reorder.PlanEdit(cur, id, patch)
	})
}

func (s *Synchronizer) Create(ctx context.Context, table model.Table, f persist.Fields) (*Pending, error) {
	now := s.now()
	return s.Apply(ctx, func(cur board.Snapshot) (reorder.Plan, error) {
		return reorder.PlanCreate(cur, table, f, now)
	})
}

func (s *Synchronizer) Reindex(ctx context.Context) *Pending {
	p, _ := s.Apply(ctx, func(cur board.Snapshot) (reorder.Plan, error) {
		return reorder.PlanReindex(cur), nil
	})
	return p
}

// Wait blocks until every mutation started so far has settled.
func (s *Synchronizer) Wait() { s.inflight.Wait() }

func (s *Synchronizer) commit(ctx context.Context, prev board.Snapshot, p reorder.Plan) Outcome {
	out := Outcome{Plan: p}
	if c := p.Create; c != nil {
		id, err := s.store.CreateItem(ctx, c.Table, c.Fields)
		if err != nil {
			s.board.Update(func(cur board.Snapshot) (board.Snapshot, bool) {
				next, _, ok := cur.Remove(c.TempID)
				return next, ok
			})
			out.Err, out.Reverted = err, true
			s.fail(p, fmt.Sprintf("could not create %s: %v", singular(c.Table), err), err)
			return out
		}
		s.board.Update(func(cur board.Snapshot) (board.Snapshot, bool) {
			if _, ok := cur.Locate(c.TempID); !ok {
				return cur, false
			}
			return cur.ReplaceID(c.TempID, id), true
		})
		out.CreatedID = id
		s.log.Debug("created", slog.String("table", string(c.Table)), slog.String("id", id))
		return out
	}

	if err := s.dispatch(ctx, p.Calls); err != nil {
		s.board.Replace(prev)
		out.Err, out.Reverted = err, true
		s.fail(p, fmt.Sprintf("could not save %s of %s: %v", p.Kind, p.Ref.ID, err), err)
		return out
	}
	s.log.Debug("mutation persisted", slog.String("op", string(p.Kind)), slog.String("id", p.Ref.ID), slog.Int("calls", len(p.Calls)))
	return out
}

func (s *Synchronizer) dispatch(ctx context.Context, calls []persist.Call) error {
	if !s.parallel || len(calls) < 2 {
		for _, c := range calls {
			if err := persist.Do(ctx, s.store, c); err != nil {
				return fmt.Errorf("%s: %w", c, err)
			}
		}
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range calls {
		g.Go(func() error {
			if err := persist.Do(gctx, s.store, c); err != nil {
				return fmt.Errorf("%s: %w", c, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Synchronizer) fail(p reorder.Plan, msg string, err error) {
	s.log.Warn("mutation reverted",
		slog.String("op", string(p.Kind)),
		slog.String("table", string(p.Ref.Table)),
		slog.String("id", p.Ref.ID),
		slog.String("err", err.Error()),
	)
	if s.onFailure != nil {
		s.onFailure(Failure{Op: string(p.Kind), Ref: p.Ref, Message: msg, Err: err})
	}
}

func singular(t model.Table) string {
	switch t {
	case model.TableRealities:
		return "reality"
	case model.TableAreas:
		return "area"
	default:
		s := string(t)
		if len(s) > 1 {
			return s[:len(s)-1]
		}
		return s
	}
}
