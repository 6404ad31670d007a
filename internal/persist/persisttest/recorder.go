// Package persisttest provides an in-memory persist.Persister that records
// calls and fails on demand.
package persisttest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"tension-cli/internal/model"
	"tension-cli/internal/persist"
)

var ErrInjected = errors.New("injected persistence failure")

// Recorder records every call. FailOn, when set, decides per call whether to
// fail with ErrInjected. Gate, when set, blocks each call until it is closed
// or receives a value.
type Recorder struct {
	mu     sync.Mutex
	calls  []persist.Call
	nextID int

	FailOn func(persist.Call) bool
	Gate   chan struct{}
}

func (r *Recorder) record(ctx context.Context, c persist.Call) error {
	if r.Gate != nil {
		select {
		case <-r.Gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	if r.FailOn != nil && r.FailOn(c) {
		return ErrInjected
	}
	return nil
}

// Calls returns a copy of the recorded calls in arrival order.
func (r *Recorder) Calls() []persist.Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]persist.Call{}, r.calls...)
}

func (r *Recorder) CallsOf(kind persist.CallKind) []persist.Call {
	var out []persist.Call
	for _, c := range r.Calls() {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (r *Recorder) SetOrder(ctx context.Context, table model.Table, items []persist.OrderEntry, filter persist.GroupFilter) error {
	return r.record(ctx, persist.Call{Kind: persist.CallSetOrder, Table: table, Orders: append([]persist.OrderEntry{}, items...), Filter: filter})
}

func (r *Recorder) MoveItem(ctx context.Context, table model.Table, id string, fields persist.GroupFields) error {
	return r.record(ctx, persist.Call{Kind: persist.CallMove, Table: table, ID: id, Fields: fields})
}

func (r *Recorder) DeleteItem(ctx context.Context, table model.Table, id string) error {
	return r.record(ctx, persist.Call{Kind: persist.CallDelete, Table: table, ID: id})
}

func (r *Recorder) UpdateItem(ctx context.Context, table model.Table, id string, patch persist.Patch) error {
	return r.record(ctx, persist.Call{Kind: persist.CallUpdate, Table: table, ID: id, Patch: patch})
}

// CreateItem is recorded as a call of kind "createItem" with the new id.
func (r *Recorder) CreateItem(ctx context.Context, table model.Table, fields persist.Fields) (string, error) {
	r.mu.Lock()
	r.nextID++
	id := fmt.Sprintf("%s-%d", table.IDPrefix(), r.nextID)
	r.mu.Unlock()
	if err := r.record(ctx, persist.Call{Kind: "createItem", Table: table, ID: id}); err != nil {
		return "", err
	}
	return id, nil
}
