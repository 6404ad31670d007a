package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tension-cli/internal/board"
	"tension-cli/internal/deletion"
	"tension-cli/internal/model"
	"tension-cli/internal/mutation"
	"tension-cli/internal/partition"
	"tension-cli/internal/persist"
	"tension-cli/internal/store"
)

// session is one opened chart: the store, the live board and the two
// mutation paths that write through to the store.
type session struct {
	app   *App
	dir   string
	db    *store.DB
	chart model.Chart
	board *board.Board
	sync  *mutation.Synchronizer
	sched *deletion.Scheduler

	// settled receives every committed or failed deletion.
	settled chan deletionResult

	mu       sync.Mutex
	failures []mutation.Failure
	hook     func(mutation.Failure)
}

type deletionResult struct {
	Ref     board.Ref
	Failure *mutation.Failure
}

type sessionOptions struct {
	grace time.Duration
}

type sessionOption func(*sessionOptions)

// withGrace overrides the configured grace window; zero keeps it.
func withGrace(d time.Duration) sessionOption {
	return func(o *sessionOptions) {
		if d > 0 {
			o.grace = d
		}
	}
}

func openSession(ctx context.Context, app *App, opts ...sessionOption) (*session, error) {
	dir, err := resolveDir(app)
	if err != nil {
		return nil, err
	}
	st := store.Store{Dir: dir}
	if !st.Exists() {
		return nil, fmt.Errorf("no workspace at %s; run `tension init`", dir)
	}
	db, err := st.Open(ctx)
	if err != nil {
		return nil, err
	}
	s, err := newSession(ctx, app, dir, db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func newSession(ctx context.Context, app *App, dir string, db *store.DB, opts ...sessionOption) (*session, error) {
	o := sessionOptions{grace: time.Duration(app.cfg.GraceWindow)}
	for _, opt := range opts {
		opt(&o)
	}

	chart, err := resolveChart(ctx, app, db)
	if err != nil {
		return nil, err
	}
	snap, err := db.Load(ctx, chart.ID)
	if err != nil {
		return nil, err
	}

	var p persist.Persister = db
	if strings.TrimSpace(app.FailPersist) != "" {
		ops, err := store.ParseFaultSpec(app.FailPersist)
		if err != nil {
			return nil, fmt.Errorf("--fail-persist: %w", err)
		}
		p = store.Faulty{Next: db, Fail: ops}
	}

	s := &session{
		app:     app,
		dir:     dir,
		db:      db,
		chart:   chart,
		board:   board.New(snap),
		settled: make(chan deletionResult, 64),
	}
	s.sync = mutation.New(s.board, p, mutation.Options{
		Logger:    app.log,
		OnFailure: s.recordFailure,
		Parallel:  app.cfg.ParallelPersist,
	})
	s.sched = deletion.NewScheduler(s.board, p, deletion.Options{
		Grace:  o.grace,
		Logger: app.log,
		OnFailure: func(f mutation.Failure) {
			s.recordFailure(f)
			s.notifySettled(deletionResult{Ref: f.Ref, Failure: &f})
		},
		OnCommit: func(ref board.Ref) { s.notifySettled(deletionResult{Ref: ref}) },
	})
	return s, nil
}

func resolveChart(ctx context.Context, app *App, db *store.DB) (model.Chart, error) {
	id := strings.TrimSpace(app.Chart)
	if id == "" && app.cfg != nil {
		id = app.cfg.Chart
	}
	if id != "" {
		return db.Chart(ctx, id)
	}
	return db.Init(ctx, "")
}

func (s *session) notifySettled(r deletionResult) {
	select {
	case s.settled <- r:
	default:
	}
}

func (s *session) recordFailure(f mutation.Failure) {
	s.mu.Lock()
	s.failures = append(s.failures, f)
	hook := s.hook
	s.mu.Unlock()
	if hook != nil {
		hook(f)
	}
}

func (s *session) setFailureHook(fn func(mutation.Failure)) {
	s.mu.Lock()
	s.hook = fn
	s.mu.Unlock()
}

func (s *session) lastFailure() (mutation.Failure, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.failures) == 0 {
		return mutation.Failure{}, false
	}
	return s.failures[len(s.failures)-1], true
}

// close waits for background writes, commits pending deletions and closes
// the database.
func (s *session) close() error {
	s.sync.Wait()
	s.sched.Wait()
	err := s.sched.Flush(context.Background())
	return errors.Join(err, s.db.Close())
}

func (s *session) dueOrder() partition.DueOrder {
	return partition.ParseDueOrder(s.app.cfg.DueOrder)
}

// settle waits for a mutation and turns a reverted one into its failure.
func (s *session) settle(p *mutation.Pending) (mutation.Outcome, error) {
	out := p.Wait()
	if out.Err == nil {
		return out, nil
	}
	if f, ok := s.lastFailure(); ok {
		return out, f
	}
	return out, out.Err
}

// resolveArea accepts an area id or a (case-insensitive) area name.
func resolveArea(snap board.Snapshot, v string) (*string, error) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, partition.Uncategorized) {
		return nil, nil
	}
	if a, ok := snap.FindArea(v); ok {
		return &a.ID, nil
	}
	for _, a := range snap.Areas {
		if strings.EqualFold(a.Name, v) {
			id := a.ID
			return &id, nil
		}
	}
	return nil, persist.NotFoundError{Table: model.TableAreas, ID: v}
}

// mutationResult is the CLI view of a settled mutation.
type mutationResult struct {
	Changed bool       `json:"changed"`
	Kind    string     `json:"kind,omitempty"`
	Reason  string     `json:"reason,omitempty"`
	Ref     *board.Ref `json:"ref,omitempty"`
	From    string     `json:"from,omitempty"`
	To      string     `json:"to,omitempty"`
	Calls   []string   `json:"calls,omitempty"`
	ID      string     `json:"id,omitempty"`
	Item    any        `json:"item,omitempty"`
}

func resultOf(out mutation.Outcome) mutationResult {
	p := out.Plan
	r := mutationResult{Changed: p.Changed(), Kind: string(p.Kind), Reason: p.Reason, ID: out.CreatedID}
	if !r.Changed {
		r.Kind = ""
		return r
	}
	if !p.Ref.IsZero() {
		ref := p.Ref
		if out.CreatedID != "" {
			ref.ID = out.CreatedID
		}
		r.Ref = &ref
	}
	if p.From.Table != "" {
		r.From = p.From.String()
	}
	if p.To.Table != "" {
		r.To = p.To.String()
	}
	for _, c := range p.Calls {
		r.Calls = append(r.Calls, c.String())
	}
	return r
}
