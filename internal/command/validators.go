// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/buildmemo/internal/store"
)

type FlagValidatorType func(any) error

func FlagValidators(value any, validators ...FlagValidatorType) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// JammedFlagValidator verifies that the arg following a flag does not begin
// with '--'.  urfave/cli allows this and I don't see how to turn it off.
func JammedFlagValidator(value any) error {
	if strings.HasPrefix(value.(string), "--") {
		return errors.New("must not begin with '--'")
	}
	return nil
}

var validOutputFlagValues = []string{"text", "json", "yaml"}

func OutputValidator(value any) error {
	s, _ := value.(string)
	if !slices.Contains(validOutputFlagValues, s) {
		return fmt.Errorf("must be one of %v", validOutputFlagValues)
	}
	return nil
}

// HeaderValidator accepts "Name=Value" request headers.
func HeaderValidator(value any) error {
	name, _, ok := strings.Cut(value.(string), "=")
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf("header %q must be NAME=VALUE", value)
	}
	return nil
}

// ArgsValidator checks the positional args of cmd: at least minArgs of them,
// and at most maxArgs unless maxArgs is negative. The first nKeys args must be
// valid store keys; a negative nKeys means all of them.
func ArgsValidator(cmd *cli.Command, minArgs, maxArgs, nKeys int) error {
	args := cmd.Args().Slice()
	if len(args) < minArgs || (maxArgs >= 0 && len(args) > maxArgs) {
		return fmt.Errorf("usage: %s", cmd.UsageText)
	}
	for i, a := range args {
		if nKeys >= 0 && i >= nKeys {
			break
		}
		if err := store.ValidateKey(a); err != nil {
			return err
		}
	}
	return nil
}
