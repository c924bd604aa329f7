// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/staranto/kvcache/internal/cache"
	"github.com/staranto/kvcache/internal/meta"
	"github.com/staranto/kvcache/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

// ServeCommandAction keeps an engine open with its janitor running until
// SIGINT or SIGTERM, exporting metrics over HTTP when --metrics-addr is set.
func ServeCommandAction(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pm := metrics.New()
	e, s, err := OpenEngine(cmd, true, cache.WithMetrics(pm))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.Close(); cerr != nil {
			log.WithError(cerr).Warn("close failed")
		}
	}()

	refresh, err := parseDuration(cmd.String("stats-interval"))
	if err != nil {
		return err
	}

	var ln net.Listener
	if addr := cmd.String("metrics-addr"); addr != "" {
		if ln, err = net.Listen("tcp", addr); err != nil {
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
	}

	log.WithFields(log.Fields{
		"store":    s.Store,
		"dir":      s.Dir,
		"interval": s.CleanupInterval,
	}).Info("serving")

	return Serve(ctx, e, pm, ln, refresh)
}

// Serve runs until ctx is done. It refreshes the entry gauges every refresh
// and, when ln is not nil, serves /metrics and /health on it.
func Serve(ctx context.Context, e *cache.Engine, pm *metrics.Prometheus, ln net.Listener, refresh time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	if refresh > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(refresh)
			defer ticker.Stop()
			for {
				if _, err := e.Stats(gctx); err != nil && gctx.Err() == nil {
					log.WithError(err).Warn("stats refresh failed")
				}
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		})
	}

	if ln != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", pm.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok","service":"kvcache"}`))
		})
		srv := &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			log.Infof("metrics endpoint listening on %s", ln.Addr())
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	<-gctx.Done()
	log.Info("shutting down")
	return g.Wait()
}

// ServeCommandBuilder constructs the cli.Command for "serve".
func ServeCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return (&CacheCommandBuilder{
		Name:      "serve",
		Usage:     "run the janitor and export metrics",
		UsageText: `kvcache serve [options]`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "listen address for /metrics and /health; empty disables",
				Sources: chain("KVCACHE_METRICS_ADDR", "serve", "metrics_addr", meta.Config.Source),
				Value:   "127.0.0.1:9464",
			},
			&cli.StringFlag{
				Name:  "stats-interval",
				Usage: "how often the entry gauges are refreshed",
				Value: "15s",
				Validator: func(value string) error {
					return FlagValidators(value, IntervalValidator)
				},
			},
		},
		Action: ServeCommandAction,
		Meta:   meta,
	}).Build()
}
