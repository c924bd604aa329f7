// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/kvcache/internal/cache"
	"github.com/staranto/kvcache/internal/codec"
	"github.com/staranto/kvcache/internal/config"
	"github.com/staranto/kvcache/internal/meta"
	"github.com/staranto/kvcache/internal/output"
	"github.com/staranto/kvcache/internal/store"
)

// ErrMiss is returned by get and has when the key holds no live entry.
var ErrMiss = errors.New("miss")

// ShortCircuitTLDR checks the --tldr flag and, if present and available,
// runs `tldr kvcache <subcmd>` and returns true so the caller can exit early.
func ShortCircuitTLDR(ctx context.Context, cmd *cli.Command, subcmd string) bool {
	if cmd.Bool("tldr") {
		if _, err := exec.LookPath("tldr"); err == nil {
			c := exec.CommandContext(ctx, "tldr", "kvcache", subcmd)
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			_ = c.Run()
		}
		return true
	}
	return false
}

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// CacheCommandBuilder constructs a cli.Command for cache subcommands using a
// consistent pattern. The builder wires metadata, adds the engine and global
// flags, and sets up validators.
type CacheCommandBuilder struct {
	Name      string
	Usage     string
	UsageText string
	Flags     []cli.Flag
	// MinArgs is the number of positional arguments the command requires.
	MinArgs int
	Action  func(context.Context, *cli.Command) error
	Meta    meta.Meta
}

// Build returns a configured cli.Command from the builder.
func (b *CacheCommandBuilder) Build() *cli.Command {
	flags := append([]cli.Flag{}, b.Flags...)
	flags = append(flags, NewEngineFlags(b.Name, b.Meta)...)
	flags = append(flags, NewGlobalFlags(b.Name, b.Meta)...)

	return &cli.Command{
		Name:      b.Name,
		Usage:     b.Usage,
		UsageText: b.UsageText,
		Metadata: map[string]any{
			"meta": b.Meta,
		},
		Flags: flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			return ctx, GlobalFlagsValidator(ctx, c)
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			m := GetMeta(c)
			log.Debugf("Executing action for %v", m.Args)

			if ShortCircuitTLDR(ctx, c, b.Name) {
				return nil
			}
			if c.Args().Len() < b.MinArgs {
				return fmt.Errorf("%s: expected at least %d argument(s), usage: %s", b.Name, b.MinArgs, b.UsageText)
			}
			return b.Action(ctx, c)
		},
	}
}

// parseDuration accepts a whole number of seconds or a Go duration string.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: want seconds or a duration like 90s", s)
	}
	return d, nil
}

// EngineSettings reads the engine flags of cmd into Settings.
func EngineSettings(cmd *cli.Command) (config.Settings, error) {
	s := GetMeta(cmd).Settings
	var err error

	s.Dir = cmd.String("dir")
	s.Store = strings.ToLower(cmd.String("store"))
	if s.CleanupInterval, err = parseDuration(cmd.String("cleanup-interval")); err != nil {
		return s, err
	}
	s.Compression.Enabled = cmd.Bool("compress")
	s.Compression.Level = cmd.Int("level")
	if s.Compression.Threshold, err = config.ParseBytes(cmd.String("threshold")); err != nil {
		return s, err
	}
	if s.Compression.Method, err = codec.ParseMethod(cmd.String("method")); err != nil {
		return s, err
	}
	if s.Lzma2Limit, err = config.ParseBytes(cmd.String("lzma2-limit")); err != nil {
		return s, err
	}
	s.Output = cmd.String("output")
	s.Color = cmd.Bool("color")

	return s, s.Validate()
}

// OpenStore builds the store selected by s.
func OpenStore(s config.Settings) (store.Store, error) {
	if s.Store == config.StoreMemory {
		log.Debug("using memory store")
		return store.NewMemory(), nil
	}
	log.Debugf("using disk store at %s", s.Dir)
	return store.NewDisk(s.Dir)
}

// OpenEngine builds an engine from the command's flags. The janitor only
// runs when janitor is true; one-shot commands rely on lazy expiry.
func OpenEngine(cmd *cli.Command, janitor bool, opts ...cache.Option) (*cache.Engine, config.Settings, error) {
	s, err := EngineSettings(cmd)
	if err != nil {
		return nil, s, err
	}

	st, err := OpenStore(s)
	if err != nil {
		return nil, s, err
	}

	interval := time.Duration(0)
	if janitor {
		interval = s.CleanupInterval
	}

	opts = append([]cache.Option{
		cache.WithCompression(cache.Compression{
			Enabled:   s.Compression.Enabled,
			Level:     s.Compression.Level,
			Threshold: s.Compression.Threshold,
			Method:    s.Compression.Method,
		}),
		cache.WithLzma2Limit(s.Lzma2Limit),
		cache.WithCleanupInterval(interval),
	}, opts...)

	e, err := cache.New(st, opts...)
	if err != nil {
		_ = st.Close()
		return nil, s, err
	}
	return e, s, nil
}

// withEngine opens the engine, runs fn and closes the engine.
func withEngine(cmd *cli.Command, fn func(*cache.Engine, config.Settings) error) error {
	e, s, err := OpenEngine(cmd, false)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.Close(); cerr != nil {
			log.WithError(cerr).Warn("close failed")
		}
	}()
	return fn(e, s)
}

// stdout is where command results are written.
func stdout(cmd *cli.Command) io.Writer {
	if root := cmd.Root(); root != nil && root.Writer != nil {
		return root.Writer
	}
	return os.Stdout
}

// stdin is where set reads a value from when none is given.
func stdin(cmd *cli.Command) io.Reader {
	if root := cmd.Root(); root != nil && root.Reader != nil {
		return root.Reader
	}
	return os.Stdin
}

// outputOptions collects the presentation flags.
func outputOptions(cmd *cli.Command) output.Options {
	opts := output.Options{
		Format: cmd.String("output"),
		Color:  cmd.Bool("color"),
		Titles: true,
	}
	if hasFlag(cmd, "titles") {
		opts.Titles = cmd.Bool("titles")
		opts.Filter = cmd.String("filter")
		opts.Sort = cmd.String("sort")
	}
	return opts
}

func hasFlag(cmd *cli.Command, name string) bool {
	for _, f := range cmd.Flags {
		for _, n := range f.Names() {
			if n == name {
				return true
			}
		}
	}
	return false
}
