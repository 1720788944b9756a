package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/edgerank/edgerank/internal/config"
	"github.com/edgerank/edgerank/internal/data"
	"github.com/edgerank/edgerank/internal/persistence/postgres"
	"github.com/edgerank/edgerank/internal/report"
	"github.com/edgerank/edgerank/internal/rules"
)

func runReport(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	symbols, _ := cmd.Flags().GetStringSlice("symbols")
	dbURL, _ := cmd.Flags().GetString("db-url")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", dbURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	repo := postgres.NewResultsRepo(db, 10*time.Second)
	registry := rules.NewRegistry()

	// Every entry rule the config knows about, for resolving stored stacks.
	allRules := append([]rules.Definition{}, cfg.Rules.Baseline...)
	allRules = append(allRules, cfg.Rules.Layers...)

	buys := 0
	for _, symbol := range symbols {
		stored, err := repo.LatestBySymbol(ctx, symbol)
		if err != nil {
			return err
		}
		if stored == nil {
			log.Info().Str("symbol", symbol).Msg("no stored strategy, skipping")
			continue
		}

		table, err := data.LoadCSVFile(symbol, filepath.Join(dataDir, symbol+".csv"))
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("failed to load bars, skipping")
			continue
		}

		rec, err := report.CheckNewBuy(log.Logger, registry, table, stored.RuleStack, allRules)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("new-buy check failed")
			continue
		}
		if rec.BuyToday {
			buys++
			fmt.Printf("BUY  %-8s %s (as of %s)\n", rec.Symbol, strings.Join(rec.RuleStack, " + "), rec.AsOf)
		} else {
			fmt.Printf("hold %-8s (as of %s)\n", rec.Symbol, rec.AsOf)
		}
	}

	fmt.Printf("\n%d new buy signal(s) across %d symbol(s)\n", buys, len(symbols))
	return nil
}
