// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/buildmemo/internal/meta"
	"github.com/staranto/buildmemo/internal/output"
	"github.com/staranto/buildmemo/internal/store"
)

// ShortCircuitTLDR checks the --tldr flag and, if present and available,
// runs `tldr buildmemo <subcmd>` and returns true so the caller can exit early.
func ShortCircuitTLDR(ctx context.Context, cmd *cli.Command, subcmd string) bool {
	if cmd.Bool("tldr") {
		if _, err := exec.LookPath("tldr"); err == nil {
			c := exec.CommandContext(ctx, "tldr", "buildmemo", subcmd)
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			_ = c.Run()
		}
		return true
	}
	return false
}

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// Writer is where command results go: the root command's Writer, or stdout.
func Writer(cmd *cli.Command) io.Writer {
	if root := cmd.Root(); root != nil && root.Writer != nil {
		return root.Writer
	}
	return os.Stdout
}

// OpenStore opens the directory store selected by --root. A relative root is
// taken against the directory buildmemo started in.
func OpenStore(cmd *cli.Command) *store.DirStore {
	root := store.ResolveRoot(cmd.String("root"))
	if !filepath.IsAbs(root) {
		if sd := GetMeta(cmd).StartingDir; sd != "" {
			root = filepath.Join(sd, root)
		}
	}
	log.Debugf("store root: %s", root)
	return store.NewDirStore(root)
}

// OutputOptions collects the output flags of cmd.
func OutputOptions(cmd *cli.Command) output.Options {
	cfg := GetMeta(cmd).Config
	return output.Options{
		Format: cmd.String("output"),
		Titles: cmd.Bool("titles"),
		Color:  cmd.Bool("color"),
		Sort:   cmd.String("sort"),
		Filter: cmd.String("filter"),
		Colors: output.GetColors(&cfg),
	}
}

// CommandBuilder constructs a cli.Command for a subcommand using a consistent
// pattern. Every command gets --root and --tldr; Output adds the dataset
// output flags. Args, if set, validates positional arguments before Action
// runs.
type CommandBuilder struct {
	Name      string
	Usage     string
	UsageText string
	Flags     []cli.Flag
	Output    bool
	Args      func(*cli.Command) error
	Action    func(context.Context, *cli.Command) error
	Meta      meta.Meta
}

// Build returns a configured cli.Command from the builder.
func (cb *CommandBuilder) Build() *cli.Command {
	src := cb.Meta.Config.Source

	flags := make([]cli.Flag, 0, len(cb.Flags)+8)
	flags = append(flags, cb.Flags...)
	flags = append(flags, newTldrFlag(), NewRootFlag(cb.Name, src))
	if cb.Output {
		flags = append(flags, NewOutputFlags(cb.Name, cb.Meta.Config)...)
	}

	return &cli.Command{
		Name:      cb.Name,
		Usage:     cb.Usage,
		UsageText: cb.UsageText,
		Metadata: map[string]any{
			"meta": cb.Meta,
		},
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			log.Debugf("Executing action for %v", c.Args().Slice())
			if ShortCircuitTLDR(ctx, c, cb.Name) {
				return nil
			}
			if cb.Args != nil {
				if err := cb.Args(c); err != nil {
					return err
				}
			}
			return cb.Action(ctx, c)
		},
	}
}
