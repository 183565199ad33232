// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package filters

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
)

// exprRegex splits an expression into key, operand and target. The operand is
// one of = ^ ~ < > @ or /, optionally prefixed with '!'.
var exprRegex = regexp.MustCompile(`^(.*?)(!?[=^~<>@/])(.*)$`)

// Filter is one parsed --filter expression.
type Filter struct {
	Key     string
	Negate  bool
	Operand string
	Target  string
}

// Delimiter separates expressions in a filter spec. BUILDMEMO_FILTER_DELIM
// overrides the default ",".
func Delimiter() string {
	if d, ok := os.LookupEnv("BUILDMEMO_FILTER_DELIM"); ok && d != "" {
		return d
	}
	return ","
}

// BuildFilters parses spec into filters. Malformed expressions are logged and
// skipped.
func BuildFilters(spec string) []Filter {
	if spec == "" {
		return nil
	}

	var out []Filter
	for _, expr := range strings.Split(spec, Delimiter()) {
		m := exprRegex.FindStringSubmatch(expr)
		if m == nil || m[1] == "" {
			log.Errorf("invalid filter: %s", expr)
			continue
		}
		op, negate := strings.CutPrefix(m[2], "!")
		out = append(out, Filter{Key: m[1], Negate: negate, Operand: op, Target: m[3]})
	}
	return out
}

// FilterRows returns the rows matching every filter in spec. Filter keys are
// row keys. A key that no row carries is reported and ignored.
func FilterRows(rows []map[string]interface{}, spec string) []map[string]interface{} {
	filters := BuildFilters(spec)
	if len(filters) == 0 {
		return rows
	}

	known := make(map[string]bool)
	for _, row := range rows {
		for k := range row {
			known[k] = true
		}
	}

	active := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if !known[f.Key] {
			log.Errorf("filter key not found: %s", f.Key)
			fmt.Fprintf(os.Stderr, "warning: filter key not found: %s\n", f.Key)
			continue
		}
		active = append(active, f)
	}

	var kept []map[string]interface{}
	for _, row := range rows {
		if matchesAll(row, active) {
			kept = append(kept, row)
		}
	}
	return kept
}

func matchesAll(row map[string]interface{}, filters []Filter) bool {
	for _, f := range filters {
		if !f.Match(row[f.Key]) {
			return false
		}
	}
	return true
}

// Match reports whether value satisfies f. A nil value never matches.
func (f Filter) Match(value interface{}) bool {
	var ok bool
	switch v := value.(type) {
	case nil:
		return false
	case string:
		ok = checkStringOperand(v, f)
	case bool:
		ok = checkStringOperand(strconv.FormatBool(v), f)
	case time.Time:
		ok = checkTimeOperand(v, f)
	case []any, map[string]any:
		ok = checkContainsOperand(v, f)
	default:
		n, isNum := toFloat64(value)
		if !isNum {
			log.Errorf("unsupported type for filtering: %T", value)
			return false
		}
		ok = checkNumericOperand(n, f)
	}
	return ok
}

// checkContainsOperand handles '@' against lists and maps.
func checkContainsOperand(value interface{}, f Filter) bool {
	if f.Operand != "@" {
		log.Errorf("unsupported operand for %T: %s", value, f.Operand)
		return false
	}
	var found bool
	switch v := value.(type) {
	case []any:
		for _, item := range v {
			if fmt.Sprint(item) == f.Target {
				found = true
				break
			}
		}
	case map[string]any:
		_, found = v[f.Target]
	}
	return found != f.Negate
}

// numericTarget parses a plain number, a duration (in seconds, matching the
// age column) or a byte size such as 10KB.
func numericTarget(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n, true
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d.Seconds(), true
	}
	if b, err := humanize.ParseBytes(s); err == nil {
		return float64(b), true
	}
	return 0, false
}

func checkNumericOperand(value float64, f Filter) bool {
	tgt, ok := numericTarget(f.Target)
	if !ok {
		log.Errorf("invalid numeric target: %s", f.Target)
		return false
	}

	var res bool
	switch f.Operand {
	case "=":
		res = value == tgt
	case ">":
		res = value > tgt
	case "<":
		res = value < tgt
	default:
		log.Errorf("unsupported numeric operand: %s", f.Operand)
		return false
	}
	return res != f.Negate
}

// timeLayouts are tried in order for time targets.
var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

func checkTimeOperand(value time.Time, f Filter) bool {
	if f.Operand != "=" && f.Operand != "<" && f.Operand != ">" {
		return checkStringOperand(value.UTC().Format(time.RFC3339), f)
	}

	var tgt time.Time
	var err error
	for _, layout := range timeLayouts {
		if tgt, err = time.Parse(layout, strings.TrimSpace(f.Target)); err == nil {
			break
		}
	}
	if err != nil {
		log.Errorf("invalid time target: %s", f.Target)
		return false
	}

	var res bool
	switch f.Operand {
	case "=":
		res = value.Equal(tgt)
	case ">":
		res = value.After(tgt)
	case "<":
		res = value.Before(tgt)
	}
	return res != f.Negate
}

var stringOps = map[string]func(value, target string) (bool, error){
	"=": func(v, t string) (bool, error) { return v == t, nil },
	"~": func(v, t string) (bool, error) { return strings.EqualFold(v, t), nil },
	"^": func(v, t string) (bool, error) { return strings.HasPrefix(v, t), nil },
	">": func(v, t string) (bool, error) { return v > t, nil },
	"<": func(v, t string) (bool, error) { return v < t, nil },
	"@": func(v, t string) (bool, error) { return strings.Contains(v, t), nil },
	"/": func(v, t string) (bool, error) { return regexp.MatchString(t, v) },
}

func checkStringOperand(value string, f Filter) bool {
	op, ok := stringOps[f.Operand]
	if !ok {
		log.Errorf("unsupported filtering operand: %s", f.Operand)
		return false
	}
	res, err := op(value, f.Target)
	if err != nil {
		log.Errorf("invalid regex: %s", f.Target)
		return false
	}
	return res != f.Negate
}

// toFloat64 normalizes the numeric kinds rows carry.
func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case time.Duration:
		return n.Seconds(), true
	default:
		return 0, false
	}
}
