package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/edgerank/edgerank/internal/config"
	"github.com/edgerank/edgerank/internal/data"
	httpiface "github.com/edgerank/edgerank/internal/interfaces/http"
	"github.com/edgerank/edgerank/internal/persistence"
	"github.com/edgerank/edgerank/internal/persistence/postgres"
	"github.com/edgerank/edgerank/internal/report"
	"github.com/edgerank/edgerank/internal/rules"
	"github.com/edgerank/edgerank/internal/scan"
)

func runScan(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	symbols, _ := cmd.Flags().GetStringSlice("symbols")
	indexSymbol, _ := cmd.Flags().GetString("index-symbol")
	cutoffStr, _ := cmd.Flags().GetString("cutoff")
	providerURL, _ := cmd.Flags().GetString("provider-url")
	redisAddr, _ := cmd.Flags().GetString("redis-addr")
	dbURL, _ := cmd.Flags().GetString("db-url")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	registry := rules.NewRegistry()
	if err := checkRuleTypes(registry, cfg); err != nil {
		return err
	}

	var cutoff time.Time
	if cutoffStr != "" {
		cutoff, err = time.Parse("2006-01-02", cutoffStr)
		if err != nil {
			return fmt.Errorf("bad cutoff date %q: %w", cutoffStr, err)
		}
	}

	loader := buildLoader(dataDir, providerURL, redisAddr)

	tables := make([]*data.PriceTable, 0, len(symbols))
	for _, symbol := range symbols {
		table, err := loader(ctx, symbol, cutoff)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("failed to load bars, skipping instrument")
			continue
		}
		tables = append(tables, table)
	}
	if len(tables) == 0 {
		return fmt.Errorf("no price data loaded for any symbol")
	}

	var index *data.PriceTable
	if indexSymbol != "" {
		index, err = loader(ctx, indexSymbol, cutoff)
		if err != nil {
			log.Warn().Err(err).Str("symbol", indexSymbol).Msg("failed to load index data, context filters degrade to all-false")
		}
	}

	runID := uuid.NewString()
	runTS := time.Now().UTC()
	logger := log.With().Str("run_id", runID).Logger()

	scanner := scan.New(registry, cfg, logger)

	var metrics *httpiface.MetricsRegistry
	if metricsAddr != "" {
		metrics = httpiface.NewMetricsRegistry()
		scanner.SetObserver(metrics)

		server := httpiface.NewServer(metricsAddr, metrics, logger)
		go func() {
			if err := server.ListenAndServe(); err != nil {
				logger.Warn().Err(err).Msg("metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()

		metrics.ActiveScans.Inc()
		defer metrics.ActiveScans.Dec()
	}

	start := time.Now()
	results := scanner.FindOptimalStrategies(ctx, tables, index)
	if metrics != nil {
		metrics.ScanDuration.Observe(time.Since(start).Seconds())
	}
	logger.Info().
		Int("instruments", len(tables)).
		Int("results", len(results)).
		Dur("elapsed", time.Since(start)).
		Msg("scan complete")

	fmt.Print(report.Markdown(runID, runTS, results))

	if dbURL != "" {
		db, err := sqlx.ConnectContext(ctx, "postgres", dbURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		repo := postgres.NewResultsRepo(db, 10*time.Second)
		run := persistence.Run{ID: runID, Timestamp: runTS}
		if err := repo.SaveRun(ctx, run, results); err != nil {
			return fmt.Errorf("failed to persist results: %w", err)
		}
		logger.Info().Int("results", len(results)).Msg("results persisted")
	}
	return nil
}

// checkRuleTypes fails fast on a predicate type the library does not
// know, instead of skipping every combination mid-run. Exit types are
// compiled separately per combination and validated there.
func checkRuleTypes(registry *rules.Registry, cfg *config.Config) error {
	for _, set := range [][]rules.Definition{
		cfg.Rules.Baseline, cfg.Rules.Layers, cfg.Rules.ContextFilters, cfg.Rules.Preconditions,
	} {
		for _, def := range set {
			if !registry.Known(def.Type) {
				return fmt.Errorf("rule %q has unknown type %q", def.Name, def.Type)
			}
		}
	}
	return nil
}

// loaderFunc hides whether bars come from local csv fixtures or from the
// HTTP provider (optionally behind the Redis cache)
type loaderFunc func(ctx context.Context, symbol string, cutoff time.Time) (*data.PriceTable, error)

func buildLoader(dataDir, providerURL, redisAddr string) loaderFunc {
	if providerURL == "" {
		return func(_ context.Context, symbol string, cutoff time.Time) (*data.PriceTable, error) {
			table, err := data.LoadCSVFile(symbol, filepath.Join(dataDir, symbol+".csv"))
			if err != nil {
				return nil, err
			}
			return table.Truncate(cutoff), nil
		}
	}

	providerCfg := data.DefaultProviderConfig()
	providerCfg.BaseURL = providerURL
	var provider data.Provider = data.NewHTTPProvider(providerCfg, log.Logger)

	if redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		provider = data.NewCachedProvider(provider, client, 24*time.Hour, log.Logger)
	}
	return provider.DailyBars
}
