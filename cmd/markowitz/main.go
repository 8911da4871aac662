// Package main is the entry point for the Markowitz portfolio analysis tool.
// It fetches daily closing prices, estimates annualized log-return statistics,
// samples random long-only portfolios, finds the maximum Sharpe ratio
// allocation and prints a report.
//
// With SCHEDULE unset the analysis runs once and the process exits non-zero
// on failure. With SCHEDULE set it keeps running and repeats the analysis on
// that cron spec until interrupted.
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/aristath/markowitz/internal/clientdata"
	"github.com/aristath/markowitz/internal/clients/csvfile"
	"github.com/aristath/markowitz/internal/clients/yahoo"
	"github.com/aristath/markowitz/internal/config"
	"github.com/aristath/markowitz/internal/database"
	"github.com/aristath/markowitz/internal/domain"
	"github.com/aristath/markowitz/internal/modules/analysis"
	"github.com/aristath/markowitz/internal/modules/optimization"
	"github.com/aristath/markowitz/internal/modules/reporting"
	"github.com/aristath/markowitz/internal/scheduler"
	"github.com/aristath/markowitz/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		event := log.Error().Err(err)
		if stage, ok := analysis.FailedStage(err); ok {
			event = event.Str("stage", string(stage))
		}
		event.Msg("Markowitz analysis failed")
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	provider, cache, closeCache, err := buildProvider(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	var src rand.Source
	if cfg.RandomSeed != 0 {
		src = rand.NewPCG(cfg.RandomSeed, cfg.RandomSeed^0x9e3779b97f4a7c15)
	}
	sampler := optimization.NewSampler(src, log)
	sampler.SetSkipDegenerate(cfg.SkipDegenerateSamples)

	reporter := reporting.NewReporter(reporting.Config{
		Dir:          cfg.ReportDir,
		RenderCharts: cfg.RenderCharts,
	}, os.Stdout, log)

	service := analysis.NewService(analysis.Config{
		Symbols:              cfg.Symbols,
		Start:                cfg.StartDate,
		End:                  cfg.EndDate,
		TradingDays:          cfg.TradingDays,
		NumSamples:           cfg.NumSamples,
		CorrelationThreshold: cfg.CorrelationThreshold,
	}, provider, sampler, optimization.NewMVOptimizer(log), reporter, log)

	if cfg.Schedule == "" {
		_, err := service.Run(ctx)
		return err
	}

	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.Schedule, analysis.NewJob(ctx, service)); err != nil {
		return fmt.Errorf("invalid SCHEDULE %q: %w", cfg.Schedule, err)
	}
	if cache != nil {
		if err := sched.AddJob("@daily", clientdata.NewCleanupJob(cache, log)); err != nil {
			return fmt.Errorf("failed to register cache cleanup: %w", err)
		}
	}

	sched.Start()
	log.Info().Str("schedule", cfg.Schedule).Msg("Waiting for scheduled runs")

	<-ctx.Done()
	log.Info().Msg("Shutting down...")
	sched.Stop()
	return nil
}

// buildProvider selects the price source and wraps it with the SQLite cache when enabled.
func buildProvider(ctx context.Context, cfg *config.Config, log zerolog.Logger) (domain.PriceHistoryProvider, *clientdata.Repository, func(), error) {
	var upstream domain.PriceHistoryProvider
	switch cfg.PriceSource {
	case config.SourceCSV:
		upstream = csvfile.NewProvider(cfg.PriceCSVPath, log)
	default:
		upstream = yahoo.NewNativeClient(cfg.FetchRetries, log)
	}

	// A local file needs no cache
	if !cfg.PriceCache || cfg.PriceSource == config.SourceCSV {
		return upstream, nil, func() {}, nil
	}

	db, err := database.New(database.Config{
		Path:    cfg.CacheDBPath(),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open price cache: %w", err)
	}

	// Fetch uncached when the cache file is damaged
	if err := db.HealthCheck(ctx); err != nil {
		log.Warn().Err(err).Str("path", db.Path()).Msg("Price cache failed health check, fetching without cache")
		_ = db.Close()
		return upstream, nil, func() {}, nil
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, nil, nil, fmt.Errorf("failed to migrate price cache: %w", err)
	}

	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close price cache")
		}
	}

	repo := clientdata.NewRepository(db.Conn())
	log.Info().Str("path", db.Path()).Msg("Price cache enabled")
	return clientdata.NewCachingProvider(upstream, repo, cfg.PriceSource, cfg.PriceCacheTTL, log), repo, closeDB, nil
}
