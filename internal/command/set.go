// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/staranto/kvcache/internal/cache"
	"github.com/staranto/kvcache/internal/config"
	"github.com/staranto/kvcache/internal/meta"
)

// SetCommandAction stores a value. The value is the second argument, the
// contents of --file, or stdin. Flag parsing stops after KEY, so VALUE is
// taken verbatim, surrounding whitespace included.
func SetCommandAction(ctx context.Context, cmd *cli.Command) error {
	key := cmd.Args().Get(0)

	value, err := readValue(cmd)
	if err != nil {
		return err
	}

	var opts []cache.SetOption
	if ttl := cmd.String("ttl"); ttl != "" {
		d, err := parseDuration(ttl)
		if err != nil {
			return err
		}
		opts = append(opts, cache.WithTTL(d))
	}

	return withEngine(cmd, func(e *cache.Engine, _ config.Settings) error {
		if err := e.Set(ctx, key, value, opts...); err != nil {
			return err
		}
		log.Debugf("stored %d bytes under %q", len(value), key)
		return nil
	})
}

func readValue(cmd *cli.Command) ([]byte, error) {
	if cmd.Args().Len() > 2 {
		return nil, fmt.Errorf("set: unexpected arguments after VALUE %q; flags go before KEY", cmd.Args().Slice()[2:])
	}
	if file := cmd.String("file"); file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read value: %w", err)
		}
		return b, nil
	}

	if cmd.Args().Len() > 1 && cmd.Args().Get(1) != "-" {
		return []byte(cmd.Args().Get(1)), nil
	}

	// cli stops at a blank argument, so a blank VALUE never reaches Args.
	if raw := GetMeta(cmd).Args; len(raw) > 2 && strings.TrimSpace(raw[len(raw)-1]) == "" {
		return nil, errors.New("set: blank VALUE argument; pipe it on stdin or use --file")
	}

	r := stdin(cmd)
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return nil, errors.New("no value given: pass VALUE, --file or pipe it on stdin")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read value from stdin: %w", err)
	}
	return b, nil
}

// SetCommandBuilder constructs the cli.Command for "set".
func SetCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	c := (&CacheCommandBuilder{
		Name:      "set",
		Usage:     "store a value",
		UsageText: `kvcache set [options] KEY [VALUE|-]`,
		MinArgs:   1,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "ttl",
				Usage: "time to live, seconds or a duration such as 90s or 1h",
				Validator: func(value string) error {
					return FlagValidators(value, TTLValidator)
				},
			},
			&cli.StringFlag{
				Name:  "file",
				Usage: "read the value from a file",
			},
		},
		Action: SetCommandAction,
		Meta:   meta,
	}).Build()

	// cli trims flag-parsed positional args; everything after KEY is passed
	// through untouched.
	afterKey := 1
	c.StopOnNthArg = &afterKey
	return c
}
