// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/kvcache/internal/config"
	"github.com/staranto/kvcache/internal/meta"
	"github.com/staranto/kvcache/internal/version"
)

func InitApp(ctx context.Context, args []string) (*cli.Command, error) {
	sd, _ := os.Getwd()

	// The arg[1] immediately following the binary (arg[0]) is the kvcache
	// subcommand and also represents the namespace key to be used when
	// retrieving config values. arg[1] could be -h/--help, so ignore it if it
	// appears to be a flag.
	var ns string
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		ns = args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Debugf("no config file: %v", err)
	}
	config.Config.Namespace = ns
	cfg.Namespace = ns

	settings, err := config.Resolve()
	if err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfg.Source, err)
	}

	meta := meta.Meta{
		Args:        args,
		Config:      cfg,
		Context:     ctx,
		Settings:    settings,
		StartingDir: sd,
	}

	app := &cli.Command{
		Name:  "kvcache",
		Usage: "key-value cache with TTLs and transparent compression",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "version",
				Aliases:     []string{"v"},
				Usage:       "kvcache version info",
				HideDefault: true,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Bool("version") {
				fmt.Fprintln(stdout(c), version.Version)
				return nil
			}
			return cli.ShowAppHelp(c)
		},
	}

	app.Commands = append(app.Commands,
		SetCommandBuilder(app, meta),
		GetCommandBuilder(app, meta),
		HasCommandBuilder(app, meta),
		RmCommandBuilder(app, meta),
		ClearCommandBuilder(app, meta),
		StatsCommandBuilder(app, meta),
		KeysCommandBuilder(app, meta),
		InspectCommandBuilder(app, meta),
		SweepCommandBuilder(app, meta),
		ServeCommandBuilder(app, meta),
		CompletionCommandBuilder(app, meta),
	)

	// Make sure flags are sorted for the --help text.
	for _, cmd := range app.Commands {
		sort.Slice(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
	}

	return app, nil
}
