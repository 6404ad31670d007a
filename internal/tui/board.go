package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"tension-cli/internal/board"
	"tension-cli/internal/deletion"
	"tension-cli/internal/model"
	"tension-cli/internal/mutation"
	"tension-cli/internal/partition"
	"tension-cli/internal/persist"
	"tension-cli/internal/render"
	"tension-cli/internal/reorder"
)

const statusTTL = 4 * time.Second

type Deps struct {
	Sync  *mutation.Synchronizer
	Sched *deletion.Scheduler
	Title string
	Order partition.DueOrder
	// Cascade is the initial state of the cascade toggle.
	Cascade bool
	Glyphs  string
	// MarkdownStyle is the glamour style for tension descriptions.
	MarkdownStyle string
}

type boardChangedMsg struct{}

type failureMsg struct{ mutation.Failure }

type clearStatusMsg struct{ seq int }

// bridge carries board notifications and failures from other goroutines into
// the bubbletea loop. It is shared by every copy of the model.
type bridge struct {
	changed  chan struct{}
	failures chan mutation.Failure
	unsub    func()
}

func (b *bridge) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-b.changed:
			return boardChangedMsg{}
		case f := <-b.failures:
			return failureMsg{f}
		}
	}
}

type Model struct {
	deps   Deps
	bridge *bridge
	keys   keyMap
	help   help.Model
	glyphs glyphSet

	snap    board.Snapshot
	rows    []render.Row
	cursor  int
	offset  int
	width   int
	height  int
	picked  *board.Ref
	cascade bool

	editing bool
	editRef board.Ref
	input   textinput.Model

	status    string
	statusErr bool
	statusSeq int
}

func New(deps Deps) Model {
	b := &bridge{changed: make(chan struct{}, 1), failures: make(chan mutation.Failure, 16)}
	b.unsub = deps.Sync.Board().Subscribe(func(board.Change) {
		select {
		case b.changed <- struct{}{}:
		default:
		}
	})
	if deps.MarkdownStyle == "" {
		deps.MarkdownStyle = "notty"
	}
	in := textinput.New()
	in.Prompt = "title: "
	in.CharLimit = 200

	m := Model{
		deps:    deps,
		bridge:  b,
		keys:    defaultKeys(),
		help:    help.New(),
		glyphs:  glyphsFor(deps.Glyphs),
		cascade: deps.Cascade,
		input:   in,
		width:   80,
		height:  24,
	}
	m.refresh()
	return m
}

// Notify delivers a mutation failure to the model from any goroutine.
func (m Model) Notify(f mutation.Failure) {
	select {
	case m.bridge.failures <- f:
	default:
	}
}

// Close stops the board subscription.
func (m Model) Close() {
	if m.bridge.unsub != nil {
		m.bridge.unsub()
	}
}

func (m Model) Init() tea.Cmd {
	return m.bridge.wait()
}

// refresh re-reads the board and keeps the cursor on the same entity.
func (m *Model) refresh() {
	var keep board.Ref
	if r, ok := m.current(); ok {
		keep = r.Ref
	}
	m.snap = m.deps.Sync.Board().Snapshot()
	m.rows = render.Rows(m.snap, m.deps.Order)
	if !keep.IsZero() {
		for i, r := range m.rows {
			if r.Ref == keep {
				m.cursor = i
				break
			}
		}
	}
	if m.picked != nil {
		if _, ok := m.snap.Locate(m.picked.ID); !ok {
			m.picked = nil
		}
	}
	m.clamp()
}

func (m *Model) clamp() {
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m Model) current() (render.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return render.Row{}, false
	}
	return m.rows[m.cursor], true
}

func (m *Model) setStatus(msg string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.status, m.statusErr = msg, isErr
	seq := m.statusSeq
	return tea.Tick(statusTTL, func(time.Time) tea.Msg { return clearStatusMsg{seq: seq} })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.clamp()
		return m, nil

	case boardChangedMsg:
		m.refresh()
		return m, m.bridge.wait()

	case failureMsg:
		m.refresh()
		cmd := m.setStatus(msg.Message, true)
		return m, tea.Batch(cmd, m.bridge.wait())

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status, m.statusErr = "", false
		}
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.clamp()
	case key.Matches(msg, m.keys.Down):
		m.cursor++
		m.clamp()
	case key.Matches(msg, m.keys.Up):
		m.cursor--
		m.clamp()
	case key.Matches(msg, m.keys.MoveDown):
		return m, m.shift(+1)
	case key.Matches(msg, m.keys.MoveUp):
		return m, m.shift(-1)
	case key.Matches(msg, m.keys.Pick):
		r, ok := m.current()
		if !ok || !r.Selectable() {
			return m, nil
		}
		if m.picked != nil && *m.picked == r.Ref {
			m.picked = nil
			return m, nil
		}
		ref := r.Ref
		m.picked = &ref
		return m, m.setStatus(fmt.Sprintf("moving %q: enter drops on the row under the cursor", r.Title), false)
	case key.Matches(msg, m.keys.Cancel):
		m.picked = nil
	case key.Matches(msg, m.keys.Drop):
		return m, m.drop()
	case key.Matches(msg, m.keys.Cascade):
		m.cascade = !m.cascade
		state := "off"
		if m.cascade {
			state = "on"
		}
		return m, m.setStatus("cascade "+state, false)
	case key.Matches(msg, m.keys.Edit):
		r, ok := m.current()
		if !ok || !r.Selectable() {
			return m, nil
		}
		m.editing, m.editRef = true, r.Ref
		m.input.SetValue(r.Title)
		m.input.CursorEnd()
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Delete):
		return m, m.delete()
	case key.Matches(msg, m.keys.Undo):
		ref, ok := m.deps.Sched.UndoLast()
		m.refresh()
		if !ok {
			return m, m.setStatus("nothing to undo", false)
		}
		return m, m.setStatus("restored "+ref.ID, false)
	}
	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.editing = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.editing = false
		m.input.Blur()
		v := strings.TrimSpace(m.input.Value())
		var patch persist.Patch
		if m.editRef.Table == model.TableAreas {
			patch.Name = &v
		} else {
			patch.Title = &v
		}
		if _, err := m.deps.Sync.Edit(context.Background(), m.editRef.ID, patch); err != nil {
			return m, m.setStatus(err.Error(), true)
		}
		m.refresh()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// shift moves the selected item one place within its partition by dropping
// it on its neighbour.
func (m *Model) shift(dir int) tea.Cmd {
	r, ok := m.current()
	if !ok || r.Kind != render.RowItem && r.Kind != render.RowArea {
		return nil
	}
	if !r.Partition.Ordered() {
		return m.setStatus("dated items are ordered by due date", false)
	}
	ms := partition.Members(m.snap, r.Partition, m.deps.Order)
	i := partition.IndexOf(ms, r.Ref.ID)
	j := i + dir
	if i < 0 || j < 0 || j >= len(ms) {
		return nil
	}
	m.apply(reorder.Event{DraggedID: r.Ref.ID, DropTargetID: ms[j].Ref.ID})
	return nil
}

func (m *Model) drop() tea.Cmd {
	if m.picked == nil {
		return nil
	}
	r, ok := m.current()
	if !ok {
		return nil
	}
	ev := reorder.Event{DraggedID: m.picked.ID, Cascade: m.cascade}
	switch {
	case r.Zone != nil:
		z := *r.Zone
		ev.Zone = &z
	case r.Kind == render.RowArea && r.Ref.ID == "":
		z, ok := uncategorizedZone(m.picked.Table)
		if !ok {
			return m.setStatus("areas cannot be uncategorized", true)
		}
		ev.Zone = &z
	default:
		ev.DropTargetID = r.Ref.ID
	}
	m.picked = nil
	m.cascade = m.deps.Cascade
	if p := m.apply(ev); !p.Changed() {
		return m.setStatus("nothing changed: "+p.Reason, false)
	}
	return nil
}

func uncategorizedZone(t model.Table) (partition.Key, bool) {
	switch t {
	case model.TableActions:
		return partition.Key{Table: t, Group: partition.Loose, Area: partition.Uncategorized, Bucket: partition.BucketUndated}, true
	case model.TableVisions, model.TableRealities:
		return partition.Key{Table: t, Group: partition.Uncategorized, Bucket: partition.BucketUndated}, true
	case model.TableTensions:
		return partition.Key{Table: t, Group: partition.Uncategorized}, true
	default:
		return partition.Key{}, false
	}
}

// apply runs the drop through the synchronizer; the board is updated before
// it returns, so the view is refreshed right away.
func (m *Model) apply(ev reorder.Event) reorder.Plan {
	var planned reorder.Plan
	_, _ = m.deps.Sync.Apply(context.Background(), func(cur board.Snapshot) (reorder.Plan, error) {
		planned = reorder.PlanDrop(cur, ev)
		return planned, nil
	})
	m.refresh()
	return planned
}

func (m *Model) delete() tea.Cmd {
	r, ok := m.current()
	if !ok || !r.Selectable() {
		return nil
	}
	if _, err := m.deps.Sched.Schedule(r.Ref.ID); err != nil {
		return m.setStatus(err.Error(), true)
	}
	m.refresh()
	return m.setStatus(fmt.Sprintf("deleted %q (u to undo within %s)", r.Title, m.deps.Sched.Grace()), false)
}
