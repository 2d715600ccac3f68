// Command raidwatch watches a Discord raid-logs channel for WarcraftLogs report
// links, correlates them to raid records in the Temple web backend, and keeps a
// companion discussion thread per raid in sync. It:
//   - Loads configuration and initializes structured logging.
//   - Connects to the Discord gateway and feeds events into the correlator.
//   - Runs the periodic companion-thread cleanup job.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/templeashkandi/raidwatch/config"
	"github.com/templeashkandi/raidwatch/correlator"
	"github.com/templeashkandi/raidwatch/dedup"
	"github.com/templeashkandi/raidwatch/discord"
	"github.com/templeashkandi/raidwatch/server"
	"github.com/templeashkandi/raidwatch/telemetry"
	"github.com/templeashkandi/raidwatch/templeapi"
)

func main() {
	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("config invalid", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()
	shutdown, err := telemetry.InitTracing("raidwatch", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Processed-event memory; sized by policy constants from config.
	seen := dedup.New(cfg.DedupTTL, cfg.DedupSweepInterval)
	defer seen.Stop()

	api := templeapi.NewClient(cfg.APIBaseURL, cfg.APIToken)

	bot, err := discord.NewBot(cfg)
	if err != nil {
		slog.Error("failed to create discord bot", slog.Any("err", err))
		os.Exit(1)
	}

	corr := correlator.New(correlator.Config{
		ChannelID:  cfg.RaidLogsChannelID,
		EditWindow: cfg.EditWindow,
		BaseURL:    cfg.APIBaseURL,
	}, seen, api, api, bot)

	go bot.StartThreadCleanupJob(ctx)

	// HTTP server (health/readiness/status/metrics)
	started := time.Now()
	go func() {
		err := server.Start(ctx, cfg.HTTPAddr, func() server.Status {
			return server.Status{
				Uptime:           time.Since(started).Truncate(time.Second).String(),
				Channel:          cfg.RaidLogsChannelID,
				GatewayConnected: bot.Connected(),
				DedupEntries:     seen.Len(),
			}
		})
		if err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	slog.Info("starting discord bot")
	if err := bot.Start(ctx, corr); err != nil {
		slog.Error("failed to start bot", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("shutting down")
}
