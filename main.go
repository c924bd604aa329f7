// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/apex/log"

	"github.com/staranto/kvcache/internal/cacheutil"
	"github.com/staranto/kvcache/internal/command"
	"github.com/staranto/kvcache/internal/config"
	mylog "github.com/staranto/kvcache/internal/log"
	"github.com/staranto/kvcache/internal/version"
)

// Exit codes.
const (
	exitOK   = 0
	exitInit = 1
	exitRun  = 2
	exitMiss = 3
)

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
		if _, err := config.Load(); err != nil {
			log.Debugf("no config file: %v", err)
		}
		args = mangleArguments(args)
	}

	// Short-circuit --version/-v.
	for _, a := range args {
		if a == "--version" || a == "-v" {
			fmt.Println(version.Version)
			return exitOK
		}
	}

	// Best-effort: pre-create cache directory when caching is enabled.
	if _, ok, err := cacheutil.EnsureBaseDir(); err != nil && !ok {
		// Non-fatal: print to stderr and continue.
		fmt.Fprintln(os.Stderr, err)
	}

	app, err := command.InitApp(ctx, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitInit
	}

	if err := app.Run(ctx, args); err != nil {
		if errors.Is(err, command.ErrMiss) {
			log.Debug(err.Error())
			return exitMiss
		}
		fmt.Fprintln(os.Stderr, err)
		return exitRun
	}

	return exitOK
}

// mangleArguments expands a flag preset into the argument list. "@name"
// anywhere after the command is replaced by the config list
// <command>.presets.<name>. Without an @name the "defaults" preset, if any,
// is inserted right after the command so later flags still override it.
func mangleArguments(args []string) []string {
	// We know the first two args are going to be the executable and command.
	preamble := make([]string, 2)
	copy(preamble, args[:2])

	// Short-circuit for --help/-h. If help is requested, just keep the preamble
	// and add --help flag.
	for _, a := range args {
		if a == "--help" || a == "-h" {
			return append(preamble, "--help")
		}
	}

	if strings.HasPrefix(args[1], "-") {
		return args
	}

	out := append(preamble, args[2:]...) //nolint
	idx := 2
	preset := "defaults"

	// See if there is a @preset specified. If so, that becomes the insertion
	// point and the @preset entry is removed from args.
	for i, a := range out[idx:] {
		if strings.HasPrefix(a, "@") && len(a) > 1 {
			preset = a[1:]
			idx += i
			out = append(out[:idx], out[idx+1:]...)
			break
		}
	}

	presetArgs, err := config.GetStringSlice(args[1]+".presets."+preset, nil)
	if err != nil {
		log.WithError(err).Warnf("ignoring preset %s", preset)
	}
	for _, arg := range presetArgs {
		parts := strings.Fields(arg)
		out = append(out[:idx], append(parts, out[idx:]...)...)
		idx += len(parts)
	}

	log.Debugf("idx=%d, preset=%s, args=%v", idx, preset, out)
	return out
}
