// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/staranto/kvcache/internal/cache"
	"github.com/staranto/kvcache/internal/config"
	"github.com/staranto/kvcache/internal/meta"
	"github.com/staranto/kvcache/internal/output"
)

var (
	statsColumns   = []string{"total", "active", "expired"}
	keysColumns    = []string{"key", "method", "size", "expires", "ttl"}
	inspectColumns = []string{"key", "compressed", "method", "size", "created", "expires", "ttl"}
)

func infoRow(info cache.Info, now time.Time) map[string]interface{} {
	compressed := "no"
	if info.Compressed {
		compressed = "yes"
	}
	return map[string]interface{}{
		"key":        info.Key,
		"compressed": compressed,
		"method":     info.Method.String(),
		"size":       output.Bytes(info.StoredSize),
		"created":    info.CreatedAt,
		"expires":    info.ExpiresAt,
		"ttl":        info.TTL(now),
	}
}

// StatsCommandAction prints entry counts.
func StatsCommandAction(ctx context.Context, cmd *cli.Command) error {
	return withEngine(cmd, func(e *cache.Engine, _ config.Settings) error {
		s, err := e.Stats(ctx)
		if err != nil {
			return err
		}
		ds := output.Dataset{
			Columns: statsColumns,
			Rows: []map[string]interface{}{{
				"total":   output.Count(s.Total),
				"active":  output.Count(s.Active),
				"expired": output.Count(s.Expired()),
			}},
			Single: true,
		}
		return output.SliceDiceSpit(ds, outputOptions(cmd), stdout(cmd))
	})
}

// StatsCommandBuilder constructs the cli.Command for "stats".
func StatsCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return (&CacheCommandBuilder{
		Name:      "stats",
		Usage:     "count total and active entries",
		UsageText: `kvcache stats [options]`,
		Action:    StatsCommandAction,
		Meta:      meta,
	}).Build()
}

// KeysCommandAction lists live entries with their metadata.
func KeysCommandAction(ctx context.Context, cmd *cli.Command) error {
	return withEngine(cmd, func(e *cache.Engine, _ config.Settings) error {
		keys, err := e.Keys(ctx)
		if err != nil {
			return err
		}

		now := time.Now()
		ds := output.Dataset{Columns: keysColumns}
		for _, key := range keys {
			info, ok, err := e.Inspect(ctx, key)
			if err != nil {
				return err
			}
			// Expired or removed since Keys ran.
			if !ok {
				continue
			}
			ds.Rows = append(ds.Rows, infoRow(info, now))
		}

		return output.SliceDiceSpit(ds, outputOptions(cmd), stdout(cmd))
	})
}

// KeysCommandBuilder constructs the cli.Command for "keys".
func KeysCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return (&CacheCommandBuilder{
		Name:      "keys",
		Usage:     "list live keys",
		UsageText: `kvcache keys [options]`,
		Flags:     NewTableFlags("keys", meta),
		Action:    KeysCommandAction,
		Meta:      meta,
	}).Build()
}

// InspectCommandAction prints the metadata of one entry.
func InspectCommandAction(ctx context.Context, cmd *cli.Command) error {
	key := cmd.Args().Get(0)

	return withEngine(cmd, func(e *cache.Engine, _ config.Settings) error {
		info, ok, err := e.Inspect(ctx, key)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%q: %w", key, ErrMiss)
		}

		ds := output.Dataset{
			Columns: inspectColumns,
			Rows:    []map[string]interface{}{infoRow(info, time.Now())},
			Single:  true,
		}
		return output.SliceDiceSpit(ds, outputOptions(cmd), stdout(cmd))
	})
}

// InspectCommandBuilder constructs the cli.Command for "inspect".
func InspectCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return (&CacheCommandBuilder{
		Name:      "inspect",
		Usage:     "show how an entry is stored",
		UsageText: `kvcache inspect KEY [options]`,
		MinArgs:   1,
		Action:    InspectCommandAction,
		Meta:      meta,
	}).Build()
}

// SweepCommandAction purges expired entries now.
func SweepCommandAction(ctx context.Context, cmd *cli.Command) error {
	return withEngine(cmd, func(e *cache.Engine, s config.Settings) error {
		n, err := e.Sweep(ctx)
		if err != nil {
			return err
		}
		if s.Output == output.FormatText {
			fmt.Fprintf(stdout(cmd), "removed %d expired entries\n", n)
			return nil
		}
		ds := output.Dataset{
			Columns: []string{"removed"},
			Rows:    []map[string]interface{}{{"removed": output.Count(n)}},
			Single:  true,
		}
		return output.SliceDiceSpit(ds, outputOptions(cmd), stdout(cmd))
	})
}

// SweepCommandBuilder constructs the cli.Command for "sweep".
func SweepCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return (&CacheCommandBuilder{
		Name:      "sweep",
		Usage:     "remove expired entries now",
		UsageText: `kvcache sweep [options]`,
		Action:    SweepCommandAction,
		Meta:      meta,
	}).Build()
}
