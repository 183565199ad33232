// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"gopkg.in/yaml.v2"

	"github.com/staranto/buildmemo/internal/config"
	"github.com/staranto/buildmemo/internal/filters"
)

// Column is one field of a row as shown in text output. Format, if set,
// renders the raw value for the table only; json and yaml output and sorting
// always use the raw value.
type Column struct {
	Key    string
	Title  string
	Format func(interface{}) string
}

// Options controls how a dataset is filtered, sorted and rendered.
type Options struct {
	// Format is one of text, json or yaml.
	Format string
	Titles bool
	Color  bool
	Sort   string
	Filter string
	// Padding is the left padding between table columns.
	Padding int
	Colors  Colors
}

// Colors are the table foreground colors used when Options.Color is set.
type Colors struct {
	Title string
	Even  string
	Odd   string
}

// DefaultColors are used for any color not set in the config file.
var DefaultColors = Colors{Title: "#f6be00", Even: "#ffffff", Odd: "#00c8f0"}

// GetColors returns configured color values for table rendering.
func GetColors(cfg *config.Type) Colors {
	c := DefaultColors
	c.Title, _ = cfg.GetString("colors.title", c.Title)
	c.Even, _ = cfg.GetString("colors.even", c.Even)
	c.Odd, _ = cfg.GetString("colors.odd", c.Odd)
	return c
}

// Spit filters, sorts and renders rows to w.
func Spit(w io.Writer, rows []map[string]interface{}, columns []Column, opts Options) error {
	if w == nil {
		w = os.Stdout
	}

	// Filter first so sorting works on a smaller dataset.
	rows = filters.FilterRows(rows, opts.Filter)
	SortDataset(rows, opts.Sort)

	switch opts.Format {
	case "json":
		// Keep only the requested columns so json and text agree.
		out, err := json.Marshal(project(rows, columns))
		if err != nil {
			return fmt.Errorf("failed to marshal json output: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case "yaml":
		out, err := yaml.Marshal(project(rows, columns))
		if err != nil {
			return fmt.Errorf("failed to marshal yaml output: %w", err)
		}
		_, err = w.Write(out)
		return err
	default:
		TableWriter(w, rows, columns, opts)
		return nil
	}
}

func project(rows []map[string]interface{}, columns []Column) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		m := make(map[string]interface{}, len(columns))
		for _, c := range columns {
			m[c.Key] = row[c.Key]
		}
		out = append(out, m)
	}
	return out
}

// TableWriter renders the result set in a tabular form honoring color,
// titles and padding options.
func TableWriter(w io.Writer, resultSet []map[string]interface{}, columns []Column, opts Options) {
	if len(resultSet) == 0 {
		return
	}

	var (
		headerStyle  = lipgloss.NewStyle().Align(lipgloss.Left)
		cellStyle    = lipgloss.NewStyle().Padding(0, 0).Align(lipgloss.Left)
		evenRowStyle = cellStyle
		oddRowStyle  = cellStyle
	)

	if opts.Color {
		colors := opts.Colors
		if colors == (Colors{}) {
			colors = DefaultColors
		}
		headerStyle = headerStyle.Foreground(lipgloss.Color(colors.Title))
		evenRowStyle = evenRowStyle.Foreground(lipgloss.Color(colors.Even))
		oddRowStyle = oddRowStyle.Foreground(lipgloss.Color(colors.Odd))
	}

	rows := make([][]string, 0, len(resultSet))
	for _, result := range resultSet {
		row := make([]string, 0, len(columns))
		for _, c := range columns {
			if c.Format != nil {
				row = append(row, c.Format(result[c.Key]))
				continue
			}
			row = append(row, InterfaceToString(result[c.Key], "-"))
		}
		rows = append(rows, row)
	}

	pad := opts.Padding
	if pad == 0 {
		pad = 2
	}
	log.Debugf("padding: %v", pad)

	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			var style lipgloss.Style
			switch {
			case row == table.HeaderRow:
				style = headerStyle
			case row%2 == 0:
				style = evenRowStyle
			default:
				style = oddRowStyle
			}

			if col > 0 {
				style = style.PaddingLeft(pad)
			}

			return style
		}).
		Headers().
		Rows(rows...)

	if opts.Titles {
		headers := make([]string, 0, len(columns))
		for _, c := range columns {
			title := c.Title
			if title == "" {
				title = c.Key
			}
			headers = append(headers, title)
		}

		// https://github.com/charmbracelet/lipgloss/issues/261
		t = t.Headers(headers...).BorderHeader(false)
	}
	fmt.Fprintln(w, t)
}

// InterfaceToString converts supported primitive or composite values to a
// string. A custom empty value may be provided.
func InterfaceToString(value interface{}, emptyValue ...string) string {
	if len(emptyValue) == 0 {
		emptyValue = []string{""}
	}

	if value == nil || reflect.ValueOf(value).IsZero() {
		return emptyValue[0]
	}

	switch value := value.(type) {
	case string:
		return value
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		// Sizes and counts are whole numbers.
		return fmt.Sprintf("%.0f", value)
	case bool:
		return strconv.FormatBool(value)
	case fmt.Stringer:
		return value.String()
	default:
		jsonBytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(jsonBytes)
	}
}
