// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT
package command

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/buildmemo/internal/config"
	mylog "github.com/staranto/buildmemo/internal/log"
	"github.com/staranto/buildmemo/internal/meta"
)

func InitApp(ctx context.Context, args []string) (*cli.Command, error) {
	sd, _ := os.Getwd()

	// The arg[1] immediately following the binary (arg[0]) is the buildmemo
	// subcommand and also represents the namespace key to be used when
	// retrieving config values. arg[1] could be -h/--help, so ignore it if it
	// appears to be a flag.
	var ns string
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		ns = args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Debug("no config file")
	}
	cfg.Namespace = ns

	meta := meta.Meta{
		Args:        args,
		Config:      cfg,
		Context:     ctx,
		StartingDir: sd,
	}

	app := &cli.Command{
		Name:  "buildmemo",
		Usage: "inspect and manage a build memo cache",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log",
				Usage:   "log level (trace, debug, info, warn, error, fatal)",
				Sources: cli.NewValueSourceChain(cli.EnvVar("BUILDMEMO_LOG")),
				Validator: func(s string) error {
					_, err := log.ParseLevel(strings.ToLower(s))
					return err
				},
			},
			&cli.BoolFlag{
				Name:        "version",
				Aliases:     []string{"v"},
				Usage:       "buildmemo version info",
				HideDefault: true,
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.IsSet("log") {
				mylog.InitLogger(cmd.String("log"))
			}
			return ctx, nil
		},
	}

	app.Commands = append(app.Commands,
		ClearCommandBuilder(meta),
		CompletionCommandBuilder(meta),
		DiffCommandBuilder(meta),
		FetchCommandBuilder(meta),
		GetCommandBuilder(meta),
		LsCommandBuilder(meta),
		PullCommandBuilder(meta),
		PurgeCommandBuilder(meta),
		PushCommandBuilder(meta),
		RmCommandBuilder(meta),
		ShowCommandBuilder(meta),
	)

	// Make sure flags are sorted for the --help text.
	for _, cmd := range app.Commands {
		sort.Slice(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
	}

	return app, nil
}
