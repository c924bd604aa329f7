// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/staranto/kvcache/internal/cache"
	"github.com/staranto/kvcache/internal/config"
	"github.com/staranto/kvcache/internal/meta"
	"github.com/staranto/kvcache/internal/output"
)

// GetCommandAction prints the value stored under a key. A miss returns
// ErrMiss. --query extracts a field from a JSON value.
func GetCommandAction(ctx context.Context, cmd *cli.Command) error {
	key := cmd.Args().Get(0)

	return withEngine(cmd, func(e *cache.Engine, s config.Settings) error {
		value, ok, err := e.Get(ctx, key)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%q: %w", key, ErrMiss)
		}

		if q := cmd.String("query"); q != "" {
			if value, ok, err = output.Query(value, q); err != nil {
				return fmt.Errorf("%q: %w", key, err)
			}
			if !ok {
				return fmt.Errorf("%q: query %q: %w", key, q, ErrMiss)
			}
		}

		return output.Value(stdout(cmd), key, value, s.Output)
	})
}

// GetCommandBuilder constructs the cli.Command for "get".
func GetCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return (&CacheCommandBuilder{
		Name:      "get",
		Usage:     "print a value",
		UsageText: `kvcache get KEY [options]`,
		MinArgs:   1,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "gjson path to extract from a JSON value",
			},
		},
		Action: GetCommandAction,
		Meta:   meta,
	}).Build()
}

// HasCommandAction reports whether a key holds a live entry.
func HasCommandAction(ctx context.Context, cmd *cli.Command) error {
	key := cmd.Args().Get(0)

	return withEngine(cmd, func(e *cache.Engine, s config.Settings) error {
		ok, err := e.Has(ctx, key)
		if err != nil {
			return err
		}

		if s.Output == output.FormatText {
			fmt.Fprintln(stdout(cmd), ok)
		} else {
			ds := output.Dataset{
				Columns: []string{"key", "exists"},
				Rows:    []map[string]interface{}{{"key": key, "exists": ok}},
				Single:  true,
			}
			if err := output.SliceDiceSpit(ds, outputOptions(cmd), stdout(cmd)); err != nil {
				return err
			}
		}

		if !ok {
			return fmt.Errorf("%q: %w", key, ErrMiss)
		}
		return nil
	})
}

// HasCommandBuilder constructs the cli.Command for "has".
func HasCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return (&CacheCommandBuilder{
		Name:      "has",
		Usage:     "check whether a key is live",
		UsageText: `kvcache has KEY [options]`,
		MinArgs:   1,
		Action:    HasCommandAction,
		Meta:      meta,
	}).Build()
}
