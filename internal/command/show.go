// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/staranto/buildmemo/internal/meta"
	"github.com/staranto/buildmemo/internal/output"
)

var statsColumns = []output.Column{
	{Key: "dir", Title: "DIR"},
	{Key: "entries", Title: "ENTRIES", Format: count},
	{Key: "bytes", Title: "SIZE", Format: func(v interface{}) string {
		n, _ := v.(int64)
		return humanize.Bytes(uint64(n))
	}},
	{Key: "expired", Title: "EXPIRED", Format: count},
}

func count(v interface{}) string {
	return fmt.Sprint(v)
}

// ShowCommandAction prints a one-row summary of the store.
func ShowCommandAction(ctx context.Context, cmd *cli.Command) error {
	st := OpenStore(cmd)

	stats, err := st.Stats(ctx, cmd.Duration("timeout"))
	if err != nil {
		return err
	}

	rows := []map[string]interface{}{{
		"dir":     stats.Dir,
		"entries": stats.Entries,
		"bytes":   stats.TotalBytes,
		"expired": stats.Expired,
	}}
	return output.Spit(Writer(cmd), rows, statsColumns, OutputOptions(cmd))
}

// ShowCommandBuilder constructs the cli.Command definition for the "show"
// command.
func ShowCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "show",
		Usage:     "summarize the store",
		UsageText: `buildmemo show [options]`,
		Flags: []cli.Flag{
			NewTimeoutFlag("show", meta.Config),
		},
		Output: true,
		Args: func(c *cli.Command) error {
			return ArgsValidator(c, 0, 0, 0)
		},
		Action: ShowCommandAction,
		Meta:   meta,
	}).Build()
}
