package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/m3rciful/reportbot/archive"
	reportbot "github.com/m3rciful/reportbot/bot"
	"github.com/m3rciful/reportbot/core/bootstrap"
	corecmd "github.com/m3rciful/reportbot/core/cmd"
	coreconfig "github.com/m3rciful/reportbot/core/config"
	"github.com/m3rciful/reportbot/core/logger"
	"github.com/m3rciful/reportbot/core/metrics"
	coretelegram "github.com/m3rciful/reportbot/core/telegram"
	"github.com/m3rciful/reportbot/core/telegram/router"
	tgsender "github.com/m3rciful/reportbot/core/telegram/sender"
	"github.com/m3rciful/reportbot/delivery"
	"github.com/m3rciful/reportbot/survey"
)

const configEnvVar = "CONFIG_PATH"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			path = os.Getenv(configEnvVar)
		}
		return runBot(cmd.Context(), path)
	},
}

func init() {
	runCmd.Flags().StringP("config", "c", "", "path to config.yaml (defaults to $"+configEnvVar+")")
	rootCmd.AddCommand(runCmd)
}

func runBot(ctx context.Context, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := coreconfig.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	boot, err := bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Shutdown() }()
	defer func() { _ = boot.Close() }()

	catalog, err := catalogFrom(cfg.Survey)
	if err != nil {
		return err
	}

	teleBot, err := coretelegram.NewBot(cfg, false)
	if err != nil {
		return err
	}
	channel, err := delivery.NewChannel(teleBot, cfg.Report.ChannelID)
	if err != nil {
		return err
	}

	rec := metrics.NewRecorder()
	dispatcher := tgsender.NewDispatcher(replyDispatcherOptions())
	rec.ObserveCounter("reportbot_replies_sent_total", "Replies delivered to users.", dispatcher.SentCount)
	rec.ObserveCounter("reportbot_reply_errors_total", "Replies that failed after retries.", dispatcher.ErrorCount)

	convOpts := reportbot.Options{
		Machine:   survey.NewMachine(catalog),
		Deliverer: channel,
		Metrics:   rec,
	}
	if boot.DB != nil {
		convOpts.Archive = archive.NewStore(boot.DB)
	}
	conv, err := reportbot.New(convOpts)
	if err != nil {
		return err
	}

	reg := coretelegram.NewRegistry()
	conv.Register(reg)
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{AdminID: cfg.Telegram.AdminID})
	routes = append(routes, router.MessageRoutes(conv, reg, router.MessageOptions{UnknownMedia: conv.Hint})...)

	return corecmd.Run(ctx, corecmd.Options{
		Telegram: coretelegram.RunOptions{
			Config:      cfg,
			Registry:    reg,
			Bot:         teleBot,
			Dispatcher:  dispatcher,
			Middlewares: coretelegram.DefaultMiddlewares(cfg, nil),
			Routes:      routes,
		},
		MetricsListen:  cfg.Metrics.Listen,
		MetricsHandler: metrics.NewHandler(rec),
	})
}

// replyDispatcherOptions retries replies that failed in transit a couple of times.
func replyDispatcherOptions() tgsender.Options {
	return tgsender.Options{
		Workers:      4,
		MaxRetries:   2,
		RetryBackoff: time.Second,
	}
}

// catalogFrom applies survey overrides from config. A missing list keeps the built-in one.
func catalogFrom(sc coreconfig.SurveyConfig) (*survey.Catalog, error) {
	def := survey.DefaultCatalog()
	if len(sc.Prompts) == 0 && len(sc.Locations) == 0 {
		return def, nil
	}
	prompts, locations := sc.Prompts, sc.Locations
	if len(prompts) == 0 {
		prompts = def.Prompts()
	}
	if len(locations) == 0 {
		locations = def.Locations()
	}
	c, err := survey.NewCatalog(prompts, locations)
	if err != nil {
		return nil, fmt.Errorf("survey config: %w", err)
	}
	return c, nil
}
