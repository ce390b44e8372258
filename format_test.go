package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_Markdown(t *testing.T) {
	res := &QueryResult{
		Columns: []string{"id", "Name", "note"},
		Rows: [][]any{
			{int64(1), "ada", "a|b"},
			{int64(2), nil, "line1\nline2"},
		},
	}

	out, err := Render(res, FormatMarkdown)
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4, out)
	assert.True(t, strings.HasPrefix(lines[0], "|"), "header row is a markdown row")
	assert.Contains(t, lines[0], "Name", "headers keep their case")
	assert.Regexp(t, `^\|-+\|-+\|-+\|$`, lines[1])
	assert.Contains(t, lines[2], `a\|b`)
	assert.Contains(t, lines[3], NullMarker)
	assert.Contains(t, lines[3], "line1 line2")
}

func TestRender_MarkdownNoResultSet(t *testing.T) {
	out, err := Render(&QueryResult{}, FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "Statement executed, no result set returned.", out)
}

func TestRender_JSON(t *testing.T) {
	tests := []struct {
		name string
		res  *QueryResult
		want string
	}{
		{
			name: "single value",
			res:  &QueryResult{Columns: []string{"x"}, Rows: [][]any{{int64(1)}}},
			want: `[{"x":1}]`,
		},
		{
			name: "null and bytes",
			res:  &QueryResult{Columns: []string{"a", "b"}, Rows: [][]any{{nil, []byte("raw")}}},
			want: `[{"a":null,"b":"raw"}]`,
		},
		{
			name: "timestamps",
			res: &QueryResult{
				Columns: []string{"at"},
				Rows:    [][]any{{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}},
			},
			want: `[{"at":"2024-01-02T03:04:05Z"}]`,
		},
		{
			name: "no rows",
			res:  &QueryResult{Columns: []string{"x"}, Rows: [][]any{}},
			want: `[]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Render(tt.res, FormatJSON)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRender_JSONKeepsColumnOrder(t *testing.T) {
	res := &QueryResult{Columns: []string{"zeta", "alpha", "mid"}, Rows: [][]any{{1, 2, 3}}}

	out, err := Render(res, FormatJSON)
	require.NoError(t, err)

	z, a, m := strings.Index(out, `"zeta"`), strings.Index(out, `"alpha"`), strings.Index(out, `"mid"`)
	assert.True(t, z < a && a < m, "keys out of column order: %s", out)
}

func TestRender_UnknownFormat(t *testing.T) {
	_, err := Render(&QueryResult{}, Format("csv"))
	assert.ErrorContains(t, err, `unknown result format "csv"`)
}
