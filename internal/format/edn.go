package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// WriteEDN writes v as EDN. Values go through their JSON form first, so json
// tags decide the keyword names; numbers keep their exact JSON spelling.
func WriteEDN(w io.Writer, v any, pretty bool) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return err
	}

	var sb strings.Builder
	e := ednWriter{sb: &sb, pretty: pretty}
	e.value(x, 0)
	sb.WriteByte('\n')
	_, err = io.WriteString(w, sb.String())
	return err
}

type ednWriter struct {
	sb     *strings.Builder
	pretty bool
}

func (e ednWriter) value(v any, depth int) {
	switch t := v.(type) {
	case nil:
		e.sb.WriteString("nil")
	case bool:
		e.sb.WriteString(strconv.FormatBool(t))
	case string:
		e.sb.WriteString(strconv.Quote(t))
	case json.Number:
		e.sb.WriteString(t.String())
	case []any:
		e.seq('[', ']', len(t), depth, func(i int) { e.value(t[i], depth+1) })
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		e.seq('{', '}', len(keys), depth, func(i int) {
			e.sb.WriteByte(':')
			e.sb.WriteString(keyword(keys[i]))
			e.sb.WriteByte(' ')
			e.value(t[keys[i]], depth+1)
		})
	default:
		e.sb.WriteString(strconv.Quote(fmt.Sprint(v)))
	}
}

func (e ednWriter) seq(open, close byte, n, depth int, item func(i int)) {
	e.sb.WriteByte(open)
	if n == 0 {
		e.sb.WriteByte(close)
		return
	}
	for i := 0; i < n; i++ {
		switch {
		case e.pretty:
			e.sb.WriteByte('\n')
			e.sb.WriteString(strings.Repeat("  ", depth+1))
		case i > 0:
			e.sb.WriteByte(' ')
		}
		item(i)
	}
	if e.pretty {
		e.sb.WriteByte('\n')
		e.sb.WriteString(strings.Repeat("  ", depth))
	}
	e.sb.WriteByte(close)
}

func keyword(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), " ", "-")
}
