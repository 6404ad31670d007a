package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"tension-cli/internal/model"
	"tension-cli/internal/render"
)

const detailLines = 6

func (m Model) listHeight() int {
	// title + blank, status + help at the bottom.
	h := m.height - 4 - m.detailHeight()
	if m.help.ShowAll {
		h -= 4
	}
	if h < 3 {
		h = 3
	}
	return h
}

func (m Model) detailHeight() int {
	if d := m.detail(); d != "" {
		return min(strings.Count(d, "\n")+2, detailLines+1)
	}
	return 0
}

// detail is the rendered description of the selected tension.
func (m Model) detail() string {
	r, ok := m.current()
	if !ok || r.Ref.Table != model.TableTensions {
		return ""
	}
	t, ok := m.snap.FindTension(r.Ref.ID)
	if !ok || strings.TrimSpace(t.Description) == "" {
		return ""
	}
	out := render.Markdown(t.Description, max(m.width-4, 10), m.deps.MarkdownStyle)
	lines := strings.Split(out, "\n")
	if len(lines) > detailLines {
		lines = lines[:detailLines]
	}
	return strings.Join(lines, "\n")
}

func (m Model) View() string {
	var b strings.Builder

	header := styleTitle.Render(m.deps.Title)
	var modes []string
	if m.picked != nil {
		if it, ok := m.titleOf(m.picked.ID); ok {
			modes = append(modes, stylePicked.Render(m.glyphs.picked+" moving "+it))
		}
	}
	if m.cascade {
		modes = append(modes, styleMode.Render("cascade"))
	}
	if len(modes) > 0 {
		header += "  " + strings.Join(modes, "  ")
	}
	b.WriteString(m.fit(header))
	b.WriteString("\n\n")

	h := m.listHeight()
	end := min(m.offset+h, len(m.rows))
	for i := m.offset; i < end; i++ {
		b.WriteString(m.fit(m.renderRow(i)))
		b.WriteByte('\n')
	}
	for i := end - m.offset; i < h; i++ {
		b.WriteByte('\n')
	}

	if d := m.detail(); d != "" {
		b.WriteString(styleMuted.Render(strings.Repeat("─", max(m.width, 10))))
		b.WriteByte('\n')
		b.WriteString(d)
		b.WriteByte('\n')
	}

	if m.editing {
		b.WriteString(m.fit(m.input.View()))
	} else if m.status != "" {
		st := styleMuted
		if m.statusErr {
			st = styleError
		}
		b.WriteString(m.fit(st.Render(m.status)))
	}
	b.WriteByte('\n')
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) titleOf(id string) (string, bool) {
	for _, r := range m.rows {
		if r.Ref.ID == id {
			return r.Title, true
		}
	}
	return "", false
}

func (m Model) renderRow(i int) string {
	r := m.rows[i]
	selected := i == m.cursor
	cursor := strings.Repeat(" ", lipgloss.Width(m.glyphs.cursor))
	if selected {
		cursor = m.glyphs.cursor
	}
	indent := strings.Repeat("  ", r.Depth)

	var line string
	switch r.Kind {
	case render.RowArea:
		line = areaStyle(r.Color).Render(r.Title)
	case render.RowSection:
		line = indent + styleSection.Render(r.Title)
	default:
		title := r.Title
		if r.Done || r.Status == string(model.TensionResolved) {
			title = styleDone.Render(title)
		}
		line = indent + m.glyphs.bullet(r.Ref.Table, r.Done, r.Status) + " " + title
		if r.DueDate != "" {
			line += " " + styleDue.Render(r.DueDate)
		}
		if m.picked != nil && *m.picked == r.Ref {
			line = stylePicked.Render(m.glyphs.picked) + " " + line
		}
	}
	line = cursor + " " + line
	if selected {
		return styleSelected.Render(line)
	}
	return line
}

func (m Model) fit(s string) string {
	if m.width <= 0 {
		return s
	}
	return xansi.Truncate(s, m.width, "…")
}
