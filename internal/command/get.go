// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"context"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"

	"github.com/staranto/buildmemo/internal/meta"
)

// GetCommandAction prints the stored JSON of an entry, or the result of a
// gjson path query against it. Strings print unquoted.
func GetCommandAction(ctx context.Context, cmd *cli.Command) error {
	key := cmd.Args().First()
	st := OpenStore(cmd)

	data, err := st.Get(ctx, key)
	if err != nil {
		return err
	}

	path := cmd.String("path")
	if path == "" {
		w := Writer(cmd)
		if _, err := w.Write(data); err != nil {
			return err
		}
		if !bytes.HasSuffix(data, []byte("\n")) {
			_, err = fmt.Fprintln(w)
		}
		return err
	}

	if !gjson.ValidBytes(data) {
		return fmt.Errorf("entry %q is not valid JSON", key)
	}
	result := gjson.GetBytes(data, path)
	if !result.Exists() {
		return fmt.Errorf("path %q not found in %q", path, key)
	}

	out := result.Raw
	if result.Type == gjson.String {
		out = result.String()
	}
	_, err = fmt.Fprintln(Writer(cmd), out)
	return err
}

// GetCommandBuilder constructs the cli.Command definition for the "get"
// command.
func GetCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "get",
		Usage:     "print an entry",
		UsageText: `buildmemo get KEY [--path gjson.path]`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Aliases: []string{"p"},
				Usage:   "gjson path to extract from the entry",
			},
		},
		Args: func(c *cli.Command) error {
			return ArgsValidator(c, 1, 1, 1)
		},
		Action: GetCommandAction,
		Meta:   meta,
	}).Build()
}
