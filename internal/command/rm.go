// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/buildmemo/internal/meta"
	"github.com/staranto/buildmemo/internal/store"
)

// RmCommandAction deletes the named entries. Missing keys are reported but do
// not stop the remaining deletes.
func RmCommandAction(ctx context.Context, cmd *cli.Command) error {
	st := OpenStore(cmd)

	var errs []error
	for _, key := range cmd.Args().Slice() {
		ok, err := st.Has(ctx, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", store.ErrNotFound, key))
			continue
		}
		if err := st.Delete(ctx, key); err != nil {
			errs = append(errs, err)
			continue
		}
		log.WithField("key", key).Info("removed")
		fmt.Fprintf(Writer(cmd), "removed %s\n", key)
	}
	return errors.Join(errs...)
}

// RmCommandBuilder constructs the cli.Command definition for the "rm"
// command.
func RmCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "rm",
		Usage:     "delete entries",
		UsageText: `buildmemo rm KEY...`,
		Args: func(c *cli.Command) error {
			return ArgsValidator(c, 1, -1, -1)
		},
		Action: RmCommandAction,
		Meta:   meta,
	}).Build()
}
