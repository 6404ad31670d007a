package main

import (
	"reflect"
	"testing"
)

func TestRewriteDirectLookupArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"tension"},
			want: []string{"tension"},
		},
		{
			name: "vision id first token",
			in:   []string{"tension", "vis-7fj2k9qa"},
			want: []string{"tension", "show", "vis-7fj2k9qa"},
		},
		{
			name: "area id",
			in:   []string{"tension", "area-2b9xq4ce"},
			want: []string{"tension", "show", "area-2b9xq4ce"},
		},
		{
			name: "id after value flag",
			in:   []string{"tension", "--dir", "./ws", "act-k2m4q7xa"},
			want: []string{"tension", "--dir", "./ws", "show", "act-k2m4q7xa"},
		},
		{
			name: "id after equals flag",
			in:   []string{"tension", "--chart=chart-1", "ten-3hw8c1vd"},
			want: []string{"tension", "--chart=chart-1", "show", "ten-3hw8c1vd"},
		},
		{
			name: "id after bool flag",
			in:   []string{"tension", "--pretty", "rea-0c3m1d8e"},
			want: []string{"tension", "--pretty", "show", "rea-0c3m1d8e"},
		},
		{
			name: "id after double dash",
			in:   []string{"tension", "--dir", "./ws", "--", "vis-7fj2k9qa"},
			want: []string{"tension", "--dir", "./ws", "show", "--", "vis-7fj2k9qa"},
		},
		{
			name: "value flag that looks like an id is skipped",
			in:   []string{"tension", "--chart", "ten-child", "board"},
			want: []string{"tension", "--chart", "ten-child", "board"},
		},
		{
			name: "subcommand not rewritten",
			in:   []string{"tension", "drag", "vis-7fj2k9qa", "--onto", "vis-0c3m1d8e"},
			want: []string{"tension", "drag", "vis-7fj2k9qa", "--onto", "vis-0c3m1d8e"},
		},
		{
			name: "bare prefix is not an id",
			in:   []string{"tension", "vis-"},
			want: []string{"tension", "vis-"},
		},
		{
			name: "temporary ids are not looked up",
			in:   []string{"tension", "tmp-1234"},
			want: []string{"tension", "tmp-1234"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteDirectLookupArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteDirectLookupArgs:\n got: %#v\nwant: %#v", got, tt.want)
			}
		})
	}
}
