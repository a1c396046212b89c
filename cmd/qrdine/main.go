package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/text/language"

	"github.com/qrdine/qrdine/cmd/qrdine/cli"
	"github.com/qrdine/qrdine/internal/analytics"
	"github.com/qrdine/qrdine/internal/analytics/export"
	analytichttp "github.com/qrdine/qrdine/internal/analytics/http"
	"github.com/qrdine/qrdine/internal/app"
	"github.com/qrdine/qrdine/internal/auth"
	"github.com/qrdine/qrdine/internal/observability"
	"github.com/qrdine/qrdine/internal/platform/cache"
	"github.com/qrdine/qrdine/jobs"
	"github.com/qrdine/qrdine/report"
)

const usage = `usage: qrdine [command]

commands:
  serve                               run the HTTP API (default)
  report [--period P] [--format F]    print analytics for today|week|month as json|csv
  jobs trigger <task> [args...]       enqueue analytics:dashboard_warmup or analytics:cache_bump
  jobs stats                          print default queue statistics
  token hash <token>                  print the bcrypt hash for API_TOKEN_HASH
`

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	if cmd == "token" {
		os.Exit(runToken(args))
	}
	if cmd == "serve" && app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	switch cmd {
	case "serve":
		if err := serve(ctx, stop, cfg, logger); err != nil {
			logger.Error("serve", slog.Any("error", err))
			os.Exit(1)
		}
	case "report":
		os.Exit(runReport(ctx, cfg, logger, args))
	case "jobs":
		os.Exit(runJobs(ctx, cfg, args))
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	source, closeSource, err := app.OpenOrderSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	metrics := observability.NewMetrics()

	var redisClient *redis.Client
	redisClient, err = cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, analytics cache disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	analyticsService, analyticsCache := app.NewAnalyticsService(cfg, source, redisClient, metrics)
	if analyticsCache != nil {
		if err := analyticsCache.ListenForInvalidation(ctx, analytics.BumpChannel); err != nil {
			logger.Warn("cache invalidation listener", slog.Any("error", err))
		}
	}

	reportClient := report.NewClient(cfg.GotenbergURL)
	pdfExporter := &export.PDFExporter{Renderer: reportClient, Tag: language.English}
	analyticsHandler := analytichttp.NewHandler(logger, analyticsService, pdfExporter)
	analyticsHandler.WithTimeout(cfg.AppRequestTimeout)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		TokenVerifier:    auth.NewTokenVerifier(cfg.APITokenHash),
		AnalyticsHandler: analyticsHandler,
		ReportHandler:    report.NewHandler(reportClient, logger),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("order_source", cfg.OrderSource))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runReport(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	period := fs.String("period", "today", "today, week or month")
	format := fs.String("format", cli.FormatJSON, "json or csv")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	source, closeSource, err := app.OpenOrderSource(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "report: %v\n", err)
		return 1
	}
	defer closeSource()

	svc, _ := app.NewAnalyticsService(cfg, source, nil, nil)
	return cli.ReportCommand(ctx, svc, cli.ReportOptions{Period: *period, Format: *format})
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
	defer func() {
		_ = jobsCLI.Close()
	}()

	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "jobs trigger: task name required")
			return 2
		}
		info, err := jobsCLI.Trigger(ctx, args[1], args[2:]...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs trigger: %v\n", err)
			return 1
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs stats: %v\n", err)
			return 1
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d failed=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Failed)
	default:
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	return 0
}

func runToken(args []string) int {
	if len(args) != 2 || args[0] != "hash" {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	hash, err := auth.HashToken(args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "token hash: %v\n", err)
		return 1
	}
	fmt.Println(hash)
	return 0
}
