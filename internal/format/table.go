package format

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
)

// Tabular is implemented by CLI payloads that have a table rendering.
type Tabular interface {
	TableHeader() []string
	TableRows() [][]string
}

func WriteTable(w io.Writer, t Tabular) error {
	bold := color.New(color.Bold)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	if h := t.TableHeader(); len(h) > 0 {
		tbl.AddRow(cells(h, bold.Sprint)...)
	}
	for _, r := range t.TableRows() {
		tbl.AddRow(cells(r, fmt.Sprint)...)
	}
	_, err := fmt.Fprintln(w, tbl)
	return err
}

func cells(xs []string, render func(...any) string) []any {
	out := make([]any, len(xs))
	for i, s := range xs {
		out[i] = render(s)
	}
	return out
}
