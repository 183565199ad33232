// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/staranto/buildmemo/internal/meta"
	"github.com/staranto/buildmemo/internal/output"
	"github.com/staranto/buildmemo/internal/store"
)

// entryColumns are the ls columns. age is whole seconds so it sorts and
// filters as a number.
func entryColumns(now time.Time) []output.Column {
	return []output.Column{
		{Key: "key", Title: "KEY"},
		{Key: "size", Title: "SIZE", Format: func(v interface{}) string {
			n, _ := v.(int64)
			return humanize.Bytes(uint64(n))
		}},
		{Key: "age", Title: "AGE", Format: func(v interface{}) string {
			secs, _ := v.(int64)
			return humanize.Time(now.Add(-time.Duration(secs) * time.Second))
		}},
		{Key: "modified", Title: "MODIFIED", Format: func(v interface{}) string {
			t, _ := v.(time.Time)
			return t.Local().Format(time.DateTime)
		}},
		{Key: "expired", Title: "EXPIRED", Format: func(v interface{}) string {
			if b, _ := v.(bool); b {
				return "yes"
			}
			return "-"
		}},
	}
}

// entryRows turns a listing into rows. An entry is expired when its age
// exceeds timeout, matching the lookup in memo.
func entryRows(infos []store.Info, now time.Time, timeout time.Duration) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(infos))
	for _, i := range infos {
		age := now.Sub(i.ModTime)
		rows = append(rows, map[string]interface{}{
			"key":      i.Key,
			"size":     i.Size,
			"age":      int64(age / time.Second),
			"modified": i.ModTime.UTC(),
			"expired":  timeout > 0 && age > timeout,
		})
	}
	return rows
}

// LsCommandAction lists the entries of the store.
func LsCommandAction(ctx context.Context, cmd *cli.Command) error {
	st := OpenStore(cmd)

	infos, err := st.List(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	rows := entryRows(infos, now, cmd.Duration("timeout"))
	return output.Spit(Writer(cmd), rows, entryColumns(now), OutputOptions(cmd))
}

// LsCommandBuilder constructs the cli.Command definition for the "ls" command.
func LsCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "ls",
		Usage:     "list cache entries",
		UsageText: `buildmemo ls [options]`,
		Flags: []cli.Flag{
			NewTimeoutFlag("ls", meta.Config),
		},
		Output: true,
		Args: func(c *cli.Command) error {
			return ArgsValidator(c, 0, 0, 0)
		},
		Action: LsCommandAction,
		Meta:   meta,
	}).Build()
}
