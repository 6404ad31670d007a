// Package persist describes the backing-store collaborator the optimistic core
// talks to, and the call descriptors the planner hands to it.
package persist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tension-cli/internal/model"
)

var ErrNotFound = errors.New("not found")

type NotFoundError struct {
	Table model.Table
	ID    string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", strings.TrimSuffix(string(e.Table), "s"), e.ID)
}

func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

type OrderEntry struct {
	ID        string `json:"id"`
	SortOrder int    `json:"sortOrder"`
}

// GroupFilter narrows a SetOrder call to one partition so the store can
// refuse updates for rows that moved elsewhere in the meantime.
type GroupFilter struct {
	ChartID   string  `json:"chartId,omitempty"`
	AreaID    *string `json:"areaId,omitempty"`
	TensionID *string `json:"tensionId,omitempty"`
	// ByArea/ByTension say which of the pointers above are meaningful
	// (a nil pointer then means "IS NULL").
	ByArea    bool `json:"byArea,omitempty"`
	ByTension bool `json:"byTension,omitempty"`
}

// GroupFields are the group-defining columns of a move. Only fields whose Set*
// flag is true are written.
type GroupFields struct {
	AreaID       *string `json:"areaId,omitempty"`
	SetArea      bool    `json:"setArea,omitempty"`
	TensionID    *string `json:"tensionId,omitempty"`
	SetTension   bool    `json:"setTension,omitempty"`
	SortOrder    int     `json:"sortOrder,omitempty"`
	SetSortOrder bool    `json:"setSortOrder,omitempty"`
}

// Patch is a field-level update. Nil pointers leave the column alone.
type Patch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Done        *bool   `json:"done,omitempty"`
	Name        *string `json:"name,omitempty"`
	Color       *string `json:"color,omitempty"`

	// DueDate is applied when SetDueDate is true; nil clears it.
	DueDate    *string `json:"dueDate,omitempty"`
	SetDueDate bool    `json:"setDueDate,omitempty"`
}

func (p Patch) IsZero() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Done == nil &&
		p.Name == nil && p.Color == nil && !p.SetDueDate
}

// Fields describe a new entity. Which ones matter depends on the table.
type Fields struct {
	ChartID     string   `json:"chartId"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Name        string   `json:"name,omitempty"`
	Color       string   `json:"color,omitempty"`
	AreaID      *string  `json:"areaId,omitempty"`
	TensionID   *string  `json:"tensionId,omitempty"`
	DueDate     *string  `json:"dueDate,omitempty"`
	SortOrder   int      `json:"sortOrder"`
	Status      string   `json:"status,omitempty"`
	VisionIDs   []string `json:"visionIds,omitempty"`
	RealityIDs  []string `json:"realityIds,omitempty"`
}

// Persister is the backing store. Every method succeeds or fails as a whole.
type Persister interface {
	SetOrder(ctx context.Context, table model.Table, items []OrderEntry, filter GroupFilter) error
	MoveItem(ctx context.Context, table model.Table, id string, fields GroupFields) error
	DeleteItem(ctx context.Context, table model.Table, id string) error
	CreateItem(ctx context.Context, table model.Table, fields Fields) (string, error)
	UpdateItem(ctx context.Context, table model.Table, id string, patch Patch) error
}

type CallKind string

const (
	CallSetOrder CallKind = "setOrder"
	CallMove     CallKind = "moveItem"
	CallDelete   CallKind = "deleteItem"
	CallUpdate   CallKind = "updateItem"
)

// Call is one planned persistence operation. Creation is not a Call because
// it returns an id the caller must feed back into the board.
type Call struct {
	Kind   CallKind     `json:"kind"`
	Table  model.Table  `json:"table"`
	ID     string       `json:"id,omitempty"`
	Orders []OrderEntry `json:"orders,omitempty"`
	Filter GroupFilter  `json:"filter,omitempty"`
	Fields GroupFields  `json:"fields,omitempty"`
	Patch  Patch        `json:"patch,omitempty"`
}

func (c Call) String() string {
	switch c.Kind {
	case CallSetOrder:
		return fmt.Sprintf("%s %s (%d rows)", c.Kind, c.Table, len(c.Orders))
	default:
		return fmt.Sprintf("%s %s/%s", c.Kind, c.Table, c.ID)
	}
}

// Do dispatches c to p.
func Do(ctx context.Context, p Persister, c Call) error {
	switch c.Kind {
	case CallSetOrder:
		return p.SetOrder(ctx, c.Table, c.Orders, c.Filter)
	case CallMove:
		return p.MoveItem(ctx, c.Table, c.ID, c.Fields)
	case CallDelete:
		return p.DeleteItem(ctx, c.Table, c.ID)
	case CallUpdate:
		return p.UpdateItem(ctx, c.Table, c.ID, c.Patch)
	default:
		return fmt.Errorf("unknown persistence call %q", c.Kind)
	}
}
