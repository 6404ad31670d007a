package render

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"tension-cli/internal/board"
	"tension-cli/internal/model"
	"tension-cli/internal/partition"
)

// ChartMarkdown renders the chart as a markdown document, one section per
// non-empty area group.
func ChartMarkdown(title string, s board.Snapshot, order partition.DueOrder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", strings.TrimSpace(title))

	rows := Rows(s, order)
	for i := 0; i < len(rows); i++ {
		r := rows[i]
		switch r.Kind {
		case RowArea:
			if Empty(rows, i) {
				// Skip to the next group.
				for i+1 < len(rows) && rows[i+1].Kind != RowArea {
					i++
				}
				continue
			}
			fmt.Fprintf(&b, "\n## %s\n", r.Title)
		case RowSection:
			if i+1 < len(rows) && rows[i+1].Kind == RowItem {
				fmt.Fprintf(&b, "\n### %s\n\n", r.Title)
			}
		case RowItem:
			b.WriteString(itemLine(s, r))
		}
	}
	return b.String()
}

func itemLine(s board.Snapshot, r Row) string {
	indent := strings.Repeat("  ", max(r.Depth-1, 0))
	var line string
	switch r.Ref.Table {
	case model.TableActions:
		box := "[ ]"
		if r.Done {
			box = "[x]"
		}
		line = fmt.Sprintf("%s- %s %s", indent, box, r.Title)
	case model.TableTensions:
		line = fmt.Sprintf("%s- **%s**", indent, r.Title)
		if r.Status == string(model.TensionResolved) {
			line += " _(resolved)_"
		}
	default:
		line = fmt.Sprintf("%s- %s", indent, r.Title)
	}
	if r.DueDate != "" {
		line += " · due " + r.DueDate
	}
	line += "\n"
	if r.Ref.Table == model.TableTensions {
		if t, ok := s.FindTension(r.Ref.ID); ok && strings.TrimSpace(t.Description) != "" {
			for _, l := range strings.Split(strings.TrimSpace(t.Description), "\n") {
				line += indent + "  > " + l + "\n"
			}
		}
	}
	return line
}

var (
	mdRendererMu sync.Mutex
	// Renderers are cached per style and width; building one is not cheap.
	mdRenderers = map[string]*glamour.TermRenderer{}
)

// Markdown renders md for a terminal with a fixed glamour style ("dark",
// "light", "notty", ...). On any renderer error the source is returned.
func Markdown(md string, width int, style string) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}
	if style == "" {
		style = "dark"
	}

	key := style + ":" + strconv.Itoa(width)
	mdRendererMu.Lock()
	r := mdRenderers[key]
	mdRendererMu.Unlock()

	if r == nil {
		rr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return md
		}
		mdRendererMu.Lock()
		if existing := mdRenderers[key]; existing != nil {
			r = existing
		} else {
			mdRenderers[key] = rr
			r = rr
		}
		mdRendererMu.Unlock()
	}

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
