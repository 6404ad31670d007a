package model

import (
	"strings"
	"time"
)

// Table names the backing collection an entity lives in. It doubles as the
// persistence table name and the first component of a partition key.
type Table string

const (
	TableVisions   Table = "visions"
	TableRealities Table = "realities"
	TableTensions  Table = "tensions"
	TableActions   Table = "actions"
	TableAreas     Table = "areas"
)

func ParseTable(s string) (Table, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vision", "visions":
		return TableVisions, true
	case "reality", "realities":
		return TableRealities, true
	case "tension", "tensions":
		return TableTensions, true
	case "action", "actions":
		return TableActions, true
	case "area", "areas":
		return TableAreas, true
	default:
		return "", false
	}
}

// IDPrefix returns the readable prefix used for persisted ids of this table.
func (t Table) IDPrefix() string {
	switch t {
	case TableVisions:
		return "vis"
	case TableRealities:
		return "rea"
	case TableTensions:
		return "ten"
	case TableActions:
		return "act"
	case TableAreas:
		return "area"
	default:
		return "obj"
	}
}

type TensionStatus string

const (
	TensionActive   TensionStatus = "active"
	TensionResolved TensionStatus = "resolved"
)

func ParseTensionStatus(s string) (TensionStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active", "open":
		return TensionActive, true
	case "resolved", "done", "closed":
		return TensionResolved, true
	default:
		return "", false
	}
}

type Chart struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	ParentTensionID *string   `json:"parentTensionId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Area is a user-defined grouping tag. A nil AreaID on an item means
// "uncategorized", which is a partition of its own.
type Area struct {
	ID        string `json:"id"`
	ChartID   string `json:"chartId"`
	Name      string `json:"name"`
	Color     string `json:"color,omitempty"`
	SortOrder int    `json:"sortOrder"`
}

// Item is the shared shape of Visions, Realities and Actions.
type Item struct {
	ID      string  `json:"id"`
	ChartID string  `json:"chartId"`
	Title   string  `json:"title"`
	AreaID  *string `json:"areaId,omitempty"`

	// DueDate is YYYY-MM-DD. Dated items are ordered by date, not SortOrder.
	DueDate   *string `json:"dueDate,omitempty"`
	SortOrder int     `json:"sortOrder"`

	// TensionID is only meaningful for actions; nil means "loose".
	TensionID *string `json:"tensionId,omitempty"`
	Done      bool    `json:"done,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

func (it Item) HasDueDate() bool {
	return it.DueDate != nil && strings.TrimSpace(*it.DueDate) != ""
}

type Tension struct {
	ID          string        `json:"id"`
	ChartID     string        `json:"chartId"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Status      TensionStatus `json:"status"`
	AreaID      *string       `json:"areaId,omitempty"`
	SortOrder   int           `json:"sortOrder"`

	// Actions are owned by the tension, in display order.
	Actions []Item `json:"actions"`

	VisionIDs  []string `json:"visionIds,omitempty"`
	RealityIDs []string `json:"realityIds,omitempty"`

	// ChildChartID is set when the tension has been broken down into its own chart.
	ChildChartID *string `json:"childChartId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// StrPtr returns nil for blank strings so optional ids stay canonical.
func StrPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns "" for nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

// SameID reports whether two optional ids are equal, treating nil and "" alike.
func SameID(a, b *string) bool {
	return Deref(a) == Deref(b)
}
