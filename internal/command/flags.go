// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"os/exec"
	"strconv"

	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/kvcache/internal/meta"
)

var (
	tldrFlag *cli.BoolFlag = &cli.BoolFlag{
		Name:        "tldr",
		Usage:       "show tldr page",
		Hidden:      !pathHas("tldr"),
		HideDefault: true,
	}
)

// configSources returns the namespaced and bare config file lookups for key.
func configSources(ns, key, path string) []cli.ValueSource {
	var srcs []cli.ValueSource
	if ns != "" {
		srcs = append(srcs, yaml.YAML(ns+"."+key, altsrc.StringSourcer(path)))
	}
	return append(srcs, yaml.YAML(key, altsrc.StringSourcer(path)))
}

// chain builds a value source chain: the env var, when given, and then the
// config file.
func chain(env string, ns, key, path string) cli.ValueSourceChain {
	var srcs []cli.ValueSource
	if env != "" {
		srcs = append(srcs, cli.EnvVar(env))
	}
	return cli.NewValueSourceChain(append(srcs, configSources(ns, key, path)...)...)
}

// NewGlobalFlags returns the presentation flags shared by every command.
func NewGlobalFlags(ns string, m meta.Meta) (flags []cli.Flag) {
	src := m.Config.Source

	flags = []cli.Flag{
		&cli.BoolWithInverseFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored text output",
			Sources: chain("", ns, "color", src),
			Value:   m.Settings.Color,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format",
			Sources: chain("KVCACHE_OUTPUT", ns, "output", src),
			Value:   m.Settings.Output,
			Validator: func(value string) error {
				return FlagValidators(value, OutputValidator)
			},
		},
		tldrFlag,
	}

	return
}

// NewEngineFlags returns the flags that select and tune the cache engine.
func NewEngineFlags(ns string, m meta.Meta) (flags []cli.Flag) {
	src := m.Config.Source
	s := m.Settings

	flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "dir",
			Aliases: []string{"d"},
			Usage:   "cache directory for the disk store",
			Sources: chain("KVCACHE_DIR", ns, "dir", src),
			Value:   s.Dir,
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator)
			},
		},
		&cli.StringFlag{
			Name:    "store",
			Usage:   "store kind (disk, memory)",
			Sources: chain("KVCACHE_STORE", ns, "store", src),
			Value:   s.Store,
			Validator: func(value string) error {
				return FlagValidators(value, StoreValidator)
			},
		},
		&cli.StringFlag{
			Name:    "cleanup-interval",
			Usage:   "janitor period, seconds or a duration; 0 disables it",
			Sources: chain("", ns, "cleanup_interval", src),
			Value:   s.CleanupInterval.String(),
			Validator: func(value string) error {
				return FlagValidators(value, IntervalValidator)
			},
		},
		&cli.BoolWithInverseFlag{
			Name:    "compress",
			Usage:   "compress values above the threshold",
			Sources: chain("", ns, "compression.enabled", src),
			Value:   s.Compression.Enabled,
		},
		&cli.IntFlag{
			Name:    "level",
			Aliases: []string{"l"},
			Usage:   "compression level 0-9",
			Sources: chain("", ns, "compression.level", src),
			Value:   s.Compression.Level,
			Validator: func(value int) error {
				return FlagValidators(value, LevelValidator)
			},
		},
		&cli.StringFlag{
			Name:    "threshold",
			Usage:   "smallest value size that is not compressed, e.g. 1KiB",
			Sources: chain("", ns, "compression.threshold", src),
			Value:   strconv.Itoa(s.Compression.Threshold),
			Validator: func(value string) error {
				return FlagValidators(value, SizeValidator)
			},
		},
		&cli.StringFlag{
			Name:    "method",
			Aliases: []string{"m"},
			Usage:   "compression method (none, zlib, lzma2)",
			Sources: chain("", ns, "compression.method", src),
			Value:   s.Compression.Method.String(),
			Validator: func(value string) error {
				return FlagValidators(value, MethodValidator)
			},
		},
		&cli.StringFlag{
			Name:    "lzma2-limit",
			Usage:   "largest value compressed with lzma2, e.g. 10MiB",
			Sources: chain("", ns, "lzma2_limit", src),
			Value:   strconv.Itoa(s.Lzma2Limit),
			Validator: func(value string) error {
				return FlagValidators(value, SizeValidator, PositiveSizeValidator)
			},
		},
	}

	return
}

// NewTableFlags returns the flags of commands that emit a table of entries.
func NewTableFlags(ns string, m meta.Meta) []cli.Flag {
	src := m.Config.Source
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "comma-separated list of filters to apply to results",
		},
		&cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "comma-separated list of attributes to sort the results by",
			Sources: chain("", ns, "sort", src),
		},
		&cli.BoolWithInverseFlag{
			Name:    "titles",
			Aliases: []string{"t"},
			Usage:   "show titles with text output",
			Sources: chain("", ns, "titles", src),
			Value:   true,
		},
	}
}

// pathHas checks if the given executable is on PATH.
func pathHas(target string) bool {
	_, err := exec.LookPath(target)
	return err == nil
}
