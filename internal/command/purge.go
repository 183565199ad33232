// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/staranto/buildmemo/internal/meta"
)

// PurgeCommandAction removes entries older than --hours. Zero or less does
// nothing.
func PurgeCommandAction(ctx context.Context, cmd *cli.Command) error {
	st := OpenStore(cmd)

	hours := cmd.Int("hours")
	n, err := st.Purge(ctx, time.Duration(hours)*time.Hour)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(Writer(cmd), "purged %d entries older than %dh from %s\n", n, hours, st.Root())
	return err
}

// PurgeCommandBuilder constructs the cli.Command definition for the "purge"
// command.
func PurgeCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "purge",
		Usage:     "delete entries older than a number of hours",
		UsageText: `buildmemo purge [--hours N]`,
		Flags:     []cli.Flag{NewHoursFlag(meta.Config)},
		Args: func(c *cli.Command) error {
			return ArgsValidator(c, 0, 0, 0)
		},
		Action: PurgeCommandAction,
		Meta:   meta,
	}).Build()
}
