// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/staranto/buildmemo/internal/config"
)

func entries() []map[string]interface{} {
	return []map[string]interface{}{
		{"key": "weather", "size": int64(3), "age": 90 * time.Second, "expired": false},
		{"key": "Github-repos", "size": int64(1), "age": 2 * time.Hour, "expired": true},
		{"key": "blog", "size": int64(2), "age": 30 * time.Second, "expired": false},
	}
}

func TestSortDataset(t *testing.T) {
	tests := []struct {
		name      string
		spec      string
		wantOrder []string
	}{
		{
			name:      "ascending by key ignores case",
			spec:      "key",
			wantOrder: []string{"blog", "Github-repos", "weather"},
		},
		{
			name:      "descending by key",
			spec:      "-key",
			wantOrder: []string{"weather", "Github-repos", "blog"},
		},
		{
			name:      "case sensitive",
			spec:      "!key",
			wantOrder: []string{"Github-repos", "blog", "weather"},
		},
		{
			name:      "ascending by size",
			spec:      "size",
			wantOrder: []string{"Github-repos", "blog", "weather"},
		},
		{
			name:      "descending by age",
			spec:      "-age",
			wantOrder: []string{"Github-repos", "weather", "blog"},
		},
		{
			name:      "multiple fields",
			spec:      "expired, key",
			wantOrder: []string{"blog", "weather", "Github-repos"},
		},
		{
			name:      "empty spec",
			spec:      "",
			wantOrder: []string{"weather", "Github-repos", "blog"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := entries()
			SortDataset(data, tt.spec)
			for i, expected := range tt.wantOrder {
				assert.Equal(t, expected, data[i]["key"], "at index %d", i)
			}
		})
	}
}

func TestParseSortSpec(t *testing.T) {
	assert.Equal(t, []sortKey{
		{name: "a"},
		{name: "b", descending: true},
		{name: "c", descending: true, caseSensitive: true},
	}, parseSortSpec("a,-b,!-c"))
	assert.Empty(t, parseSortSpec(" , -"))
}

func TestCompareValues(t *testing.T) {
	now := time.Now()
	assert.Equal(t, -1, compareValues(nil, "a", false))
	assert.Equal(t, 1, compareValues("a", nil, false))
	assert.Equal(t, 0, compareValues(nil, nil, false))
	assert.Equal(t, -1, compareValues(2, 10, false))
	assert.Equal(t, 1, compareValues(now, now.Add(-time.Hour), false))
	assert.Equal(t, 0, compareValues("ABC", "abc", false))
	assert.NotEqual(t, 0, compareValues("ABC", "abc", true))
}

func TestInterfaceToString(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		emptyVal string
		want     string
	}{
		{name: "string", value: "hello", want: "hello"},
		{name: "int", value: 42, want: "42"},
		{name: "int64", value: int64(1024), want: "1024"},
		{name: "float64", value: 42.7, want: "43"},
		{name: "bool true", value: true, want: "true"},
		{name: "bool false is zero value", value: false, want: ""},
		{name: "duration stringer", value: 90 * time.Second, want: "1m30s"},
		{name: "nil default", value: nil, want: ""},
		{name: "nil custom", value: nil, emptyVal: "-", want: "-"},
		{name: "slice", value: []string{"a", "b"}, want: `["a","b"]`},
		{name: "map", value: map[string]int{"x": 1}, want: `{"x":1}`},
		{name: "zero value with custom empty", value: 0, emptyVal: "N/A", want: "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			if tt.emptyVal != "" {
				got = InterfaceToString(tt.value, tt.emptyVal)
			} else {
				got = InterfaceToString(tt.value)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

var columns = []Column{
	{Key: "key", Title: "KEY"},
	{Key: "size", Title: "SIZE", Format: func(v interface{}) string { return InterfaceToString(v) + "B" }},
}

func TestSpit_JSON(t *testing.T) {
	var buf bytes.Buffer
	err := Spit(&buf, entries(), columns, Options{Format: "json", Sort: "key", Filter: "size>1"})
	require.NoError(t, err)

	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "blog", got[0]["key"])
	assert.Equal(t, float64(2), got[0]["size"], "json keeps the raw value")
	assert.NotContains(t, got[0], "age", "only requested columns are emitted")
}

func TestSpit_YAML(t *testing.T) {
	var buf bytes.Buffer
	err := Spit(&buf, entries(), columns, Options{Format: "yaml", Sort: "-size"})
	require.NoError(t, err)

	var got []map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 3)
	assert.Equal(t, "weather", got[0]["key"])
}

func TestSpit_Text(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		want    []string
		notWant []string
	}{
		{
			name:    "no titles",
			opts:    Options{Format: "text", Sort: "key"},
			want:    []string{"blog", "2B", "weather", "3B"},
			notWant: []string{"KEY"},
		},
		{
			name: "titles",
			opts: Options{Format: "text", Titles: true},
			want: []string{"KEY", "SIZE", "Github-repos"},
		},
		{
			name:    "filtered",
			opts:    Options{Format: "text", Filter: "key=blog"},
			want:    []string{"blog"},
			notWant: []string{"weather"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Spit(&buf, entries(), columns, tt.opts))
			out := buf.String()
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, out, w)
			}
		})
	}
}

func TestSpit_TextSortOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Spit(&buf, entries(), columns, Options{Sort: "-key"}))
	out := buf.String()
	assert.Less(t, strings.Index(out, "weather"), strings.Index(out, "blog"))
}

func TestTableWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	TableWriter(&buf, nil, columns, Options{Titles: true})
	assert.Empty(t, buf.String())
}

func TestGetColors(t *testing.T) {
	cfg := &config.Type{Data: map[string]interface{}{
		"colors": map[string]interface{}{"title": "#000000"},
	}}
	got := GetColors(cfg)
	assert.Equal(t, "#000000", got.Title)
	assert.Equal(t, DefaultColors.Even, got.Even)
	assert.Equal(t, DefaultColors.Odd, got.Odd)
}
