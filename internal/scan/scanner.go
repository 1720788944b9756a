package scan

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/edgerank/edgerank/internal/config"
	"github.com/edgerank/edgerank/internal/data"
	"github.com/edgerank/edgerank/internal/exits"
	"github.com/edgerank/edgerank/internal/gates"
	"github.com/edgerank/edgerank/internal/rules"
	"github.com/edgerank/edgerank/internal/signal"
	"github.com/edgerank/edgerank/internal/sim"
)

// Scanner is the engine's public entry point: it enumerates rule
// combinations per instrument, runs the gate/signal/simulation pipeline
// for each, and ranks the survivors by edge score.
type Scanner struct {
	registry *rules.Registry
	combiner *signal.Combiner
	precond  *gates.PreconditionGate
	context  *gates.ContextFilter
	rules    config.RulesConfig
	cfg      config.ScanConfig
	observer Observer
	logger   zerolog.Logger
}

// New creates a scanner from validated configuration
func New(registry *rules.Registry, cfg *config.Config, logger zerolog.Logger) *Scanner {
	return &Scanner{
		registry: registry,
		combiner: signal.NewCombiner(registry),
		precond:  gates.NewPreconditionGate(registry, cfg.Scan.PreconditionWindow),
		context:  gates.NewContextFilter(registry),
		rules:    cfg.Rules,
		cfg:      cfg.Scan,
		observer: NopObserver{},
		logger:   logger,
	}
}

// SetObserver attaches a progress observer (metrics)
func (s *Scanner) SetObserver(obs Observer) {
	if obs != nil {
		s.observer = obs
	}
}

// FindOptimalStrategies evaluates every instrument against the configured
// combination space and returns the top-scoring results per instrument.
// Instruments are independent, so they run on a bounded worker pool; the
// output order follows the input order, keeping ranked output bit-for-bit
// reproducible for identical inputs.
func (s *Scanner) FindOptimalStrategies(ctx context.Context, tables []*data.PriceTable, index *data.PriceTable) []Result {
	// The index-calendar context series is shared read-only across all
	// instrument workers.
	indexContext := s.context.Series(s.logger, index, s.rules.ContextFilters)

	perInstrument := make([][]Result, len(tables))
	sem := make(chan struct{}, s.cfg.Workers)
	var wg sync.WaitGroup

	for i, table := range tables {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, table *data.PriceTable) {
			defer wg.Done()
			defer func() { <-sem }()
			perInstrument[i] = s.scanInstrument(table, index, indexContext)
		}(i, table)
	}
	wg.Wait()

	var results []Result
	for _, rs := range perInstrument {
		results = append(results, rs...)
	}
	return results
}

// scanInstrument runs the full pipeline for one instrument and returns its
// top combinations. No error at the per-rule or per-combination level may
// leak out: an instrument without valid results contributes nothing.
func (s *Scanner) scanInstrument(table *data.PriceTable, index *data.PriceTable, indexContext []bool) []Result {
	logger := s.logger.With().Str("symbol", table.Symbol).Logger()

	if pre := s.precond.Check(logger, table, s.rules.Preconditions); !pre.Passed {
		logger.Info().
			Str("precondition", pre.FailedRule).
			Str("reason", pre.Reason).
			Msg("instrument excluded by precondition")
		s.observer.InstrumentScanned(table.Symbol, true)
		return nil
	}

	alignedContext := s.context.Align(indexContext, index, table)
	if alignedContext != nil && !signal.AnyTrue(alignedContext) {
		logger.Info().Msg("context filter never true over instrument history, skipping")
		s.observer.InstrumentScanned(table.Symbol, true)
		return nil
	}

	combos := enumerate(s.rules.Baseline, s.rules.Layers)
	outcomes := make([]outcome, 0, len(combos))
	for _, combo := range combos {
		out := s.evaluateCombination(logger, table, combo, alignedContext)
		s.observer.CombinationEvaluated(table.Symbol, out.skip != "")
		if out.skip != "" {
			logger.Warn().
				Str("combination", out.combo).
				Str("reason", out.skip).
				Msg("combination discarded")
			continue
		}
		outcomes = append(outcomes, out)
	}

	results := make([]Result, 0, len(outcomes))
	for _, out := range outcomes {
		results = append(results, *out.result)
	}
	rank(results)

	if len(results) > s.cfg.TopPerSymbol {
		results = results[:s.cfg.TopPerSymbol]
	}
	s.observer.InstrumentScanned(table.Symbol, false)
	return results
}

// evaluateCombination runs signal generation, exit compilation, and the
// trade simulation for one candidate stack
func (s *Scanner) evaluateCombination(logger zerolog.Logger, table *data.PriceTable, combo Combination, context []bool) outcome {
	entries, err := s.combiner.Combine(combo.Stack, table, context)
	if err != nil {
		return outcome{combo: combo.Name, skip: fmt.Sprintf("signal build failed: %v", err)}
	}

	evaluator, err := exits.NewEvaluator(logger, table, s.rules.Exits, s.cfg.HoldPeriod)
	if err != nil {
		return outcome{combo: combo.Name, skip: fmt.Sprintf("exit build failed: %v", err)}
	}

	trades, metrics := sim.Run(table, entries, evaluator)
	if metrics.TotalTrades < s.cfg.MinTradesThreshold {
		return outcome{
			combo: combo.Name,
			skip:  fmt.Sprintf("%d trades below threshold %d", len(trades), s.cfg.MinTradesThreshold),
		}
	}

	return outcome{
		combo: combo.Name,
		result: &Result{
			Symbol:      table.Symbol,
			RuleStack:   rules.Names(combo.Stack),
			EdgeScore:   s.cfg.Weights.WinPct*metrics.WinPct + s.cfg.Weights.Sharpe*metrics.Sharpe,
			WinPct:      metrics.WinPct,
			Sharpe:      metrics.Sharpe,
			TotalTrades: metrics.TotalTrades,
			AvgReturn:   metrics.AvgReturn,
			TotalReturn: metrics.TotalReturn,
			MaxDrawdown: metrics.MaxDrawdown,
		},
	}
}

// rank sorts by edge score descending; ties break toward more trades,
// then lower drawdown. The sort is stable so equal results keep their
// enumeration order and reruns stay identical.
func rank(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].EdgeScore != results[j].EdgeScore {
			return results[i].EdgeScore > results[j].EdgeScore
		}
		if results[i].TotalTrades != results[j].TotalTrades {
			return results[i].TotalTrades > results[j].TotalTrades
		}
		return results[i].MaxDrawdown < results[j].MaxDrawdown
	})
}
