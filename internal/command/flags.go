// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"os"
	"os/exec"

	"github.com/apex/log"
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/staranto/buildmemo/internal/config"
	"github.com/staranto/buildmemo/internal/store"
)

// Flags hold their parsed value, so each command gets its own instance.
func newTldrFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:        "tldr",
		Usage:       "show tldr page",
		Hidden:      !pathHas("tldr"),
		HideDefault: true,
	}
}

func newDryRunFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:        "dry-run",
		Aliases:     []string{"n"},
		Usage:       "list what would be copied without copying",
		HideDefault: true,
	}
}

// ConfigSources builds a value source chain for a flag. Env vars win, then the
// namespaced config key (ns.name) and then the global one (name). src is the
// config file path and may be empty.
func ConfigSources(ns string, src string, name string, envs ...string) cli.ValueSourceChain {
	chain := cli.NewValueSourceChain()
	for _, e := range envs {
		chain.Chain = append(chain.Chain, cli.EnvVar(e))
	}
	if src == "" {
		return chain
	}
	if ns != "" {
		chain.Chain = append(chain.Chain, yaml.YAML(ns+"."+name, altsrc.StringSourcer(src)))
	}
	chain.Chain = append(chain.Chain, yaml.YAML(name, altsrc.StringSourcer(src)))
	return chain
}

// scoped returns cfg with lookups namespaced to ns.
func scoped(cfg config.Type, ns string) config.Type {
	cfg.Namespace = ns
	return cfg
}

// NewOutputFlags are the flags shared by every command that emits a dataset.
func NewOutputFlags(ns string, cfg config.Type) (flags []cli.Flag) {
	src := cfg.Source
	cfg = scoped(cfg, ns)

	color, err := cfg.GetBool("color", term.IsTerminal(int(os.Stdout.Fd())))
	if err != nil {
		log.WithError(err).Warn("ignoring color from config")
		color = term.IsTerminal(int(os.Stdout.Fd()))
	}

	flags = []cli.Flag{
		&cli.BoolWithInverseFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored text output",
			Value:   color,
		},
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "comma-separated list of filters to apply to results",
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator)
			},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format (text, json, yaml)",
			Sources: ConfigSources(ns, src, "output", "BUILDMEMO_OUTPUT"),
			Value:   "text",
			Validator: func(value string) error {
				return FlagValidators(value, OutputValidator)
			},
		},
		&cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "comma-separated list of attributes to sort the results by",
			Sources: ConfigSources(ns, src, "sort"),
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator)
			},
		},
		&cli.BoolWithInverseFlag{
			Name:    "titles",
			Aliases: []string{"t"},
			Usage:   "show titles with text output",
			Sources: ConfigSources(ns, src, "titles"),
			Value:   false,
		},
	}

	return
}

// NewRootFlag is the store root directory.
func NewRootFlag(ns string, src string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "root",
		Aliases: []string{"r"},
		Usage:   "store root directory",
		Sources: ConfigSources(ns, src, "root", "BUILDMEMO_ROOT"),
		Value:   store.DefaultRoot,
	}
}

// NewTimeoutFlag is the freshness window. Zero means entries never expire.
// The config value may be a duration string or a number of milliseconds.
func NewTimeoutFlag(ns string, cfg config.Type) *cli.DurationFlag {
	cfg = scoped(cfg, ns)
	timeout, err := cfg.GetDuration("timeout", 0)
	if err != nil {
		log.WithError(err).Warn("ignoring timeout from config")
		timeout = 0
	}

	return &cli.DurationFlag{
		Name:    "timeout",
		Usage:   "entries older than this are expired (0 never expires)",
		Sources: cli.NewValueSourceChain(cli.EnvVar("BUILDMEMO_TIMEOUT")),
		Value:   timeout,
	}
}

// NewHoursFlag is the purge age. It reads purge.hours from the config file.
func NewHoursFlag(cfg config.Type) *cli.IntFlag {
	cfg = scoped(cfg, "")
	hours, err := cfg.GetInt("purge.hours", 0)
	if err != nil {
		log.WithError(err).Warn("ignoring purge.hours from config")
		hours = 0
	}

	return &cli.IntFlag{
		Name:    "hours",
		Usage:   "age in hours past which entries are removed",
		Sources: cli.NewValueSourceChain(cli.EnvVar("BUILDMEMO_PURGE_HOURS")),
		Value:   hours,
	}
}

// NewS3Flags locate the snapshot bucket. Values come from the s3 section of
// the config file when not given on the command line.
func NewS3Flags(ns string, src string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "bucket",
			Aliases: []string{"b"},
			Usage:   "S3 bucket holding the snapshot",
			Sources: ConfigSources(ns, src, "s3.bucket", "BUILDMEMO_S3_BUCKET"),
		},
		&cli.StringFlag{
			Name:    "prefix",
			Usage:   "key prefix inside the bucket",
			Sources: ConfigSources(ns, src, "s3.prefix", "BUILDMEMO_S3_PREFIX"),
		},
		&cli.StringFlag{
			Name:    "region",
			Usage:   "AWS region",
			Sources: ConfigSources(ns, src, "s3.region"),
		},
		&cli.StringFlag{
			Name:    "profile",
			Usage:   "AWS shared config profile",
			Sources: ConfigSources(ns, src, "s3.profile"),
		},
		&cli.StringFlag{
			Name:    "endpoint",
			Usage:   "S3 endpoint URL for S3-compatible stores",
			Sources: ConfigSources(ns, src, "s3.endpoint", "BUILDMEMO_S3_ENDPOINT"),
		},
		&cli.IntFlag{
			Name:    "retries",
			Usage:   "maximum attempts per S3 request (0 keeps the SDK default)",
			Sources: ConfigSources(ns, src, "s3.retries", "BUILDMEMO_S3_RETRIES"),
		},
		newDryRunFlag(),
	}
}

// pathHas checks if the given executable is on the PATH.
func pathHas(target string) bool {
	_, err := exec.LookPath(target)
	return err == nil
}
