package format

import (
	"encoding/json"
	"fmt"
	"io"
)

// Write writes v in one of the CLI output formats: json (default), edn or
// table. Values that cannot be shown as a table fall back to JSON.
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch format {
	case "", "json":
		return WriteJSON(w, v, pretty)
	case "edn":
		return WriteEDN(w, v, pretty)
	case "table":
		if t, ok := v.(Tabular); ok {
			return WriteTable(w, t)
		}
		return WriteJSON(w, v, true)
	default:
		return fmt.Errorf("unknown format: %s (expected json|edn|table)", format)
	}
}

func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}
