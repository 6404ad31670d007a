package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"tension-cli/internal/model"
)

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

var (
	colorMuted      = ac("240", "243")
	colorSelectedBg = ac("#e9e9e9", "#262626")
	colorSelectedFg = ac("235", "255")
	colorAccent     = ac("27", "62")
	colorError      = ac("160", "203")
	colorDue        = ac("130", "214")

	styleTitle    = lipgloss.NewStyle().Bold(true)
	styleMuted    = lipgloss.NewStyle().Foreground(colorMuted)
	styleSection  = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	styleSelected = lipgloss.NewStyle().Background(colorSelectedBg).Foreground(colorSelectedFg)
	stylePicked   = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	styleMode     = lipgloss.NewStyle().Foreground(colorAccent)
	styleError    = lipgloss.NewStyle().Foreground(colorError)
	styleDue      = lipgloss.NewStyle().Foreground(colorDue)
	styleDone     = lipgloss.NewStyle().Foreground(colorMuted).Strikethrough(true)
)

// areaStyle colors an area header with the area's own color when it has one.
func areaStyle(color string) lipgloss.Style {
	st := lipgloss.NewStyle().Bold(true)
	if c := strings.TrimSpace(color); c != "" {
		st = st.Foreground(lipgloss.Color(c))
	}
	return st
}

// markdownStyle picks the glamour style matching the terminal background.
// It queries the terminal, so it is only called once at startup.
func markdownStyle() string {
	if termenv.EnvNoColor() {
		return "notty"
	}
	if termenv.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

type glyphSet struct {
	vision, reality, tension, resolved, todo, done, picked, cursor string
}

var (
	glyphsUnicode = glyphSet{vision: "◇", reality: "◆", tension: "⇅", resolved: "✓", todo: "☐", done: "☑", picked: "»", cursor: "›"}
	glyphsASCII   = glyphSet{vision: "v", reality: "r", tension: "t", resolved: "ok", todo: "[ ]", done: "[x]", picked: ">>", cursor: ">"}
)

func glyphsFor(name string) glyphSet {
	if strings.EqualFold(strings.TrimSpace(name), "ascii") {
		return glyphsASCII
	}
	return glyphsUnicode
}

func (g glyphSet) bullet(table model.Table, done bool, status string) string {
	switch table {
	case model.TableVisions:
		return g.vision
	case model.TableRealities:
		return g.reality
	case model.TableTensions:
		if status == string(model.TensionResolved) {
			return g.resolved
		}
		return g.tension
	case model.TableActions:
		if done {
			return g.done
		}
		return g.todo
	default:
		return ""
	}
}
