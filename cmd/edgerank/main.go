package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "edgerank"
	version = "v1.2.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Discover and rank technical-rule trading strategies per instrument",
		Version: version,
		Long: `EdgeRank enumerates combinations of entry rules for each instrument,
backtests every combination against daily price history, and ranks them by
a weighted edge score of win percentage and Sharpe.`,
	}

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace|debug|info|warn|error)")
	cobra.OnInitialize(func() {
		level, err := zerolog.ParseLevel(mustString(rootCmd.PersistentFlags().GetString("log-level")))
		if err == nil {
			zerolog.SetGlobalLevel(level)
		}
	})

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Run strategy discovery over a universe of instruments",
		Long:  "Evaluates the baseline stack and every baseline+layer combination per instrument and prints the ranked results",
		RunE:  runScan,
	}
	scanCmd.Flags().String("config", "config/rules.yaml", "Rules configuration file")
	scanCmd.Flags().String("data-dir", "data", "Directory holding <symbol>.csv daily bars")
	scanCmd.Flags().StringSlice("symbols", nil, "Symbols to scan (required)")
	scanCmd.Flags().String("index-symbol", "", "Market index symbol for context filters")
	scanCmd.Flags().String("cutoff", "", "Historical cutoff date YYYY-MM-DD (no bars after it are used)")
	scanCmd.Flags().String("provider-url", "", "Fetch bars from this HTTP provider instead of data-dir")
	scanCmd.Flags().String("redis-addr", "", "Redis address for the bars cache (requires provider-url)")
	scanCmd.Flags().String("db-url", "", "Postgres URL; when set, results are persisted")
	scanCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address for the duration of the scan")
	_ = scanCmd.MarkFlagRequired("symbols")

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Check stored winners against today's data",
		Long:  "Re-applies each symbol's latest winning rule stack to the most recent session and reports new-buy recommendations",
		RunE:  runReport,
	}
	reportCmd.Flags().String("config", "config/rules.yaml", "Rules configuration file")
	reportCmd.Flags().String("data-dir", "data", "Directory holding <symbol>.csv daily bars")
	reportCmd.Flags().StringSlice("symbols", nil, "Symbols to check (required)")
	reportCmd.Flags().String("db-url", "", "Postgres URL with stored results (required)")
	_ = reportCmd.MarkFlagRequired("symbols")
	_ = reportCmd.MarkFlagRequired("db-url")

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Start the monitoring HTTP server",
		Long:  "Serves /health and Prometheus /metrics for scan processes",
		RunE:  runMonitor,
	}
	monitorCmd.Flags().String("addr", ":8090", "Listen address")

	rootCmd.AddCommand(scanCmd, reportCmd, monitorCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func mustString(s string, err error) string {
	if err != nil {
		return ""
	}
	return s
}
