// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/apex/log"

	"github.com/staranto/buildmemo/internal/command"
	"github.com/staranto/buildmemo/internal/config"
	mylog "github.com/staranto/buildmemo/internal/log"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var ctx = context.Background()

func main() {
	os.Exit(realMain())
}

func realMain() int {
	mylog.InitLogger()

	args := os.Args

	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "No command specified.")
		args = append(args, "--help")
	} else {
		cfg, _ := config.Load()
		args = mangleArguments(args, cfg)
	}

	// Short-circuit --version/-v.
	for _, a := range args {
		if a == "--version" || a == "-v" {
			fmt.Println(version)
			return 0
		}
	}

	app, err := command.InitApp(ctx, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	return 0
}

// mangleArguments expands an argument set from the config file. "@name"
// anywhere after the subcommand inserts the list at <subcommand>.<name> in its
// place; with no "@name", the <subcommand>.defaults list is inserted right
// after the subcommand. Explicit args follow the set so they win.
func mangleArguments(args []string, cfg config.Type) []string {
	// We know the first two args are going to be the executable and command.
	if strings.HasPrefix(args[1], "-") {
		return args
	}

	// Short-circuit for --help/-h. If help is requested, just keep the preamble
	// and add --help flag.
	for _, a := range args[2:] {
		if a == "--help" || a == "-h" {
			return []string{args[0], args[1], "--help"}
		}
	}

	idx := 2
	set := "defaults"
	rest := make([]string, 0, len(args)-2)
	found := false
	for _, a := range args[2:] {
		if !found && strings.HasPrefix(a, "@") && len(a) > 1 {
			set = a[1:]
			idx += len(rest)
			found = true
			continue
		}
		rest = append(rest, a)
	}

	setArgs, _ := cfg.GetStringSlice(args[1] + "." + set)
	var expanded []string
	for _, arg := range setArgs {
		expanded = append(expanded, strings.Fields(arg)...)
	}

	out := make([]string, 0, len(args)+len(expanded))
	out = append(out, args[0], args[1])
	out = append(out, rest[:idx-2]...)
	out = append(out, expanded...)
	out = append(out, rest[idx-2:]...)

	log.Debugf("idx=%d, set=%s, args=%v", idx, set, out)
	return out
}
