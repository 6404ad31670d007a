package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tension-cli/internal/model"
	"tension-cli/internal/persist"
)

var ErrInjected = errors.New("injected failure")

// Faulty wraps a persister and fails the selected operations. It backs the
// --fail-persist flag used to exercise the revert paths by hand.
type Faulty struct {
	Next persist.Persister
	Fail map[string]bool
}

// ParseFaultSpec parses "all" or a comma list of operations: setOrder,
// moveItem, deleteItem, createItem, updateItem.
func ParseFaultSpec(spec string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, part := range strings.Split(spec, ",") {
		op := strings.TrimSpace(part)
		switch op {
		case "":
			continue
		case "all":
			for _, k := range faultOps {
				out[k] = true
			}
		default:
			if !knownFaultOp(op) {
				return nil, fmt.Errorf("unknown operation %q (expected all|%s)", op, strings.Join(faultOps, "|"))
			}
			out[op] = true
		}
	}
	return out, nil
}

var faultOps = []string{
	string(persist.CallSetOrder),
	string(persist.CallMove),
	string(persist.CallDelete),
	"createItem",
	string(persist.CallUpdate),
}

func knownFaultOp(op string) bool {
	for _, k := range faultOps {
		if k == op {
			return true
		}
	}
	return false
}

func (f Faulty) check(op string) error {
	if f.Fail[op] {
		return fmt.Errorf("%s: %w", op, ErrInjected)
	}
	return nil
}

func (f Faulty) SetOrder(ctx context.Context, table model.Table, items []persist.OrderEntry, filter persist.GroupFilter) error {
	if err := f.check(string(persist.CallSetOrder)); err != nil {
		return err
	}
	return f.Next.SetOrder(ctx, table, items, filter)
}

func (f Faulty) MoveItem(ctx context.Context, table model.Table, id string, fields persist.GroupFields) error {
	if err := f.check(string(persist.CallMove)); err != nil {
		return err
	}
	return f.Next.MoveItem(ctx, table, id, fields)
}

func (f Faulty) DeleteItem(ctx context.Context, table model.Table, id string) error {
	if err := f.check(string(persist.CallDelete)); err != nil {
		return err
	}
	return f.Next.DeleteItem(ctx, table, id)
}

func (f Faulty) CreateItem(ctx context.Context, table model.Table, fields persist.Fields) (string, error) {
	if err := f.check("createItem"); err != nil {
		return "", err
	}
	return f.Next.CreateItem(ctx, table, fields)
}

func (f Faulty) UpdateItem(ctx context.Context, table model.Table, id string, patch persist.Patch) error {
	if err := f.check(string(persist.CallUpdate)); err != nil {
		return err
	}
	return f.Next.UpdateItem(ctx, table, id, patch)
}
