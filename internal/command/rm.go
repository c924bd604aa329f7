// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/staranto/kvcache/internal/cache"
	"github.com/staranto/kvcache/internal/config"
	"github.com/staranto/kvcache/internal/meta"
)

// RmCommandAction removes every key given. Missing keys are ignored.
func RmCommandAction(ctx context.Context, cmd *cli.Command) error {
	return withEngine(cmd, func(e *cache.Engine, _ config.Settings) error {
		for _, key := range cmd.Args().Slice() {
			if err := e.Remove(ctx, key); err != nil {
				return err
			}
		}
		return nil
	})
}

// RmCommandBuilder constructs the cli.Command for "rm".
func RmCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return (&CacheCommandBuilder{
		Name:      "rm",
		Usage:     "remove keys",
		UsageText: `kvcache rm KEY... [options]`,
		MinArgs:   1,
		Action:    RmCommandAction,
		Meta:      meta,
	}).Build()
}

// ClearCommandAction removes every entry.
func ClearCommandAction(ctx context.Context, cmd *cli.Command) error {
	return withEngine(cmd, func(e *cache.Engine, _ config.Settings) error {
		return e.Clear(ctx)
	})
}

// ClearCommandBuilder constructs the cli.Command for "clear".
func ClearCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return (&CacheCommandBuilder{
		Name:      "clear",
		Usage:     "remove every entry",
		UsageText: `kvcache clear [options]`,
		Action:    ClearCommandAction,
		Meta:      meta,
	}).Build()
}
