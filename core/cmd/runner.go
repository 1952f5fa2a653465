package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/reportbot/core/logger"
	"github.com/m3rciful/reportbot/core/metrics"
	coretelegram "github.com/m3rciful/reportbot/core/telegram"
)

// Options describe the processes started by Run.
type Options struct {
	Telegram coretelegram.RunOptions

	// MetricsListen enables the metrics/health server when not empty.
	MetricsListen  string
	MetricsHandler http.Handler

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
	ServeMetrics   func(ctx context.Context, addr string, h http.Handler) error
	// Signals default to SIGINT and SIGTERM.
	Signals []os.Signal
}

// Run starts the Telegram runtime and the optional metrics server and blocks
// until a signal arrives, ctx is cancelled or either of them fails.
func Run(ctx context.Context, opts Options) error {
	if opts.Telegram.Config == nil {
		return errors.New("cmd: telegram config is required")
	}
	if opts.MetricsListen != "" && opts.MetricsHandler == nil {
		return errors.New("cmd: metrics handler is required when metrics listen is set")
	}

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	serve := opts.ServeMetrics
	if serve == nil {
		serve = metrics.Serve
	}
	signals := opts.Signals
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}

	startedAt := time.Now()
	runOpts := opts.Telegram
	prevStart := runOpts.OnStart
	runOpts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if prevStart != nil {
			if err := prevStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.Info(ctx, logger.CompApp, "ready",
			slog.String("status", "ok"),
			slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
		)
		return nil
	}
	prevStop := runOpts.OnStop
	runOpts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.Info(ctx, logger.CompApp, "shutdown")
		if prevStop != nil {
			return prevStop(ctx, rt)
		}
		return nil
	}

	ctx, cancel := signal.NotifyContext(ctx, signals...)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := run(gctx, runOpts); err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		// A clean return means the bot stopped; take the metrics server down with it.
		cancel()
		return nil
	})
	if opts.MetricsListen != "" {
		g.Go(func() error {
			if err := serve(gctx, opts.MetricsListen, opts.MetricsHandler); err != nil {
				return fmt.Errorf("metrics: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}
