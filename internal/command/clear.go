// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/staranto/buildmemo/internal/meta"
)

// ClearCommandAction deletes every entry in the store.
func ClearCommandAction(ctx context.Context, cmd *cli.Command) error {
	st := OpenStore(cmd)

	n, err := st.Clear(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(Writer(cmd), "removed %d entries from %s\n", n, st.Root())
	return err
}

// ClearCommandBuilder constructs the cli.Command definition for the "clear"
// command.
func ClearCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "clear",
		Usage:     "delete every entry",
		UsageText: `buildmemo clear`,
		Args: func(c *cli.Command) error {
			return ArgsValidator(c, 0, 0, 0)
		},
		Action: ClearCommandAction,
		Meta:   meta,
	}).Build()
}
