// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"

	"github.com/urfave/cli/v3"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
	"golang.org/x/term"

	"github.com/staranto/buildmemo/internal/meta"
	"github.com/staranto/buildmemo/internal/store"
)

// DiffEntries writes an ASCII diff of two JSON documents to w and reports
// whether they differ. Objects and arrays get a structural diff; anything
// else is shown as a whole-value replacement.
func DiffEntries(w io.Writer, left, right []byte, color bool) (bool, error) {
	var l, r interface{}
	if err := json.Unmarshal(left, &l); err != nil {
		return false, fmt.Errorf("left side is not JSON: %w", err)
	}
	if err := json.Unmarshal(right, &r); err != nil {
		return false, fmt.Errorf("right side is not JSON: %w", err)
	}

	var diff gojsondiff.Diff
	differ := gojsondiff.New()
	switch lv := l.(type) {
	case map[string]interface{}:
		if rv, ok := r.(map[string]interface{}); ok {
			diff = differ.CompareObjects(lv, rv)
		}
	case []interface{}:
		if rv, ok := r.([]interface{}); ok {
			diff = differ.CompareArrays(lv, rv)
		}
	}

	if diff == nil {
		if reflect.DeepEqual(l, r) {
			return false, nil
		}
		_, err := fmt.Fprintf(w, "-%s\n+%s\n", left, right)
		return true, err
	}

	if !diff.Modified() {
		return false, nil
	}

	f := formatter.NewAsciiFormatter(l, formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
		Coloring:       color,
	})
	out, err := f.Format(diff)
	if err != nil {
		return true, fmt.Errorf("failed to format diff: %w", err)
	}
	_, err = io.WriteString(w, out)
	return true, err
}

// DiffCommandAction compares an entry with the same key in another store.
func DiffCommandAction(ctx context.Context, cmd *cli.Command) error {
	key := cmd.Args().First()

	ours, err := OpenStore(cmd).Get(ctx, key)
	if err != nil {
		return err
	}

	against := cmd.String("against")
	if !filepath.IsAbs(against) {
		if sd := GetMeta(cmd).StartingDir; sd != "" {
			against = filepath.Join(sd, against)
		}
	}
	theirs, err := store.NewDirStore(against).Get(ctx, key)
	if err != nil {
		return err
	}

	w := Writer(cmd)
	differs, err := DiffEntries(w, theirs, ours, cmd.Bool("color"))
	if err != nil {
		return err
	}
	if !differs {
		_, err = fmt.Fprintf(w, "%s: no differences\n", key)
	}
	return err
}

// DiffCommandBuilder constructs the cli.Command definition for the "diff"
// command.
func DiffCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "diff",
		Usage:     "diff an entry against another store",
		UsageText: `buildmemo diff KEY --against DIR`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "against",
				Aliases:  []string{"a"},
				Usage:    "root of the store to compare against",
				Required: true,
			},
			&cli.BoolWithInverseFlag{
				Name:    "color",
				Aliases: []string{"c"},
				Usage:   "enable colored diff output",
				Value:   term.IsTerminal(int(os.Stdout.Fd())),
			},
		},
		Args: func(c *cli.Command) error {
			return ArgsValidator(c, 1, 1, 1)
		},
		Action: DiffCommandAction,
		Meta:   meta,
	}).Build()
}
