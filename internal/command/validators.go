// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/kvcache/internal/codec"
	"github.com/staranto/kvcache/internal/config"
	"github.com/staranto/kvcache/internal/output"
)

// GlobalFlagsValidator checks that a non-flag key argument was supplied when
// the command needs one.
func GlobalFlagsValidator(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() > 0 {
		return JammedFlagValidator(c.Args().First())
	}
	return nil
}

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

func OutputValidator(value any) error {
	if !slices.Contains(output.Formats, value.(string)) {
		return fmt.Errorf("must be one of %v", output.Formats)
	}
	return nil
}

func StoreValidator(value any) error {
	valid := []string{config.StoreDisk, config.StoreMemory}
	if !slices.Contains(valid, strings.ToLower(value.(string))) {
		return fmt.Errorf("must be one of %v", valid)
	}
	return nil
}

func MethodValidator(value any) error {
	_, err := codec.ParseMethod(value.(string))
	return err
}

func LevelValidator(value any) error {
	level := value.(int)
	if level < codec.MinLevel || level > codec.MaxLevel {
		return fmt.Errorf("must be between %d and %d", codec.MinLevel, codec.MaxLevel)
	}
	return nil
}

func SizeValidator(value any) error {
	_, err := config.ParseBytes(value.(string))
	return err
}

func PositiveSizeValidator(value any) error {
	if n, _ := config.ParseBytes(value.(string)); n <= 0 {
		return errors.New("must be positive")
	}
	return nil
}

func IntervalValidator(value any) error {
	_, err := parseDuration(value.(string))
	return err
}

func TTLValidator(value any) error {
	d, err := parseDuration(value.(string))
	if err != nil {
		return err
	}
	if d <= 0 {
		return errors.New("must be positive")
	}
	return nil
}
