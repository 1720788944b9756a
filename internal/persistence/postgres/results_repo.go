package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/edgerank/edgerank/internal/persistence"
	"github.com/edgerank/edgerank/internal/scan"
)

// Schema for the strategy_results table. Rule stacks are stored as a text
// array so the reporting side can re-apply the winning stack by name.
const Schema = `
CREATE TABLE IF NOT EXISTS strategy_results (
	run_id       TEXT        NOT NULL,
	ts           TIMESTAMPTZ NOT NULL,
	symbol       TEXT        NOT NULL,
	rule_stack   TEXT[]      NOT NULL,
	edge_score   DOUBLE PRECISION NOT NULL,
	win_pct      DOUBLE PRECISION NOT NULL,
	sharpe       DOUBLE PRECISION NOT NULL,
	total_trades INTEGER     NOT NULL,
	avg_return   DOUBLE PRECISION NOT NULL,
	total_return DOUBLE PRECISION NOT NULL,
	max_drawdown DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, symbol, rule_stack)
);
CREATE INDEX IF NOT EXISTS idx_strategy_results_symbol_ts ON strategy_results (symbol, ts DESC);
`

// resultsRepo implements ResultsRepo for PostgreSQL
type resultsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewResultsRepo creates a PostgreSQL results repository
func NewResultsRepo(db *sqlx.DB, timeout time.Duration) persistence.ResultsRepo {
	return &resultsRepo{db: db, timeout: timeout}
}

// SaveRun inserts all results of a run in one transaction
func (r *resultsRepo) SaveRun(ctx context.Context, run persistence.Run, results []scan.Result) error {
	if len(results) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO strategy_results
			(run_id, ts, symbol, rule_stack, edge_score, win_pct, sharpe,
			 total_trades, avg_return, total_return, max_drawdown)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range results {
		_, err = stmt.ExecContext(ctx,
			run.ID, run.Timestamp, res.Symbol, pq.Array(res.RuleStack),
			res.EdgeScore, res.WinPct, res.Sharpe,
			res.TotalTrades, res.AvgReturn, res.TotalReturn, res.MaxDrawdown)
		if err != nil {
			return fmt.Errorf("failed to insert result for %s: %w", res.Symbol, err)
		}
	}

	return tx.Commit()
}

// ListByRun returns a run's results ordered best first
func (r *resultsRepo) ListByRun(ctx context.Context, runID string) ([]persistence.StoredResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT run_id, ts, symbol, rule_stack, edge_score, win_pct, sharpe,
		       total_trades, avg_return, total_return, max_drawdown
		FROM strategy_results
		WHERE run_id = $1
		ORDER BY edge_score DESC, total_trades DESC, max_drawdown ASC, symbol ASC`

	rows, err := r.db.QueryxContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results for run %s: %w", runID, err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// LatestBySymbol returns the newest stored result for a symbol
func (r *resultsRepo) LatestBySymbol(ctx context.Context, symbol string) (*persistence.StoredResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT run_id, ts, symbol, rule_stack, edge_score, win_pct, sharpe,
		       total_trades, avg_return, total_return, max_drawdown
		FROM strategy_results
		WHERE symbol = $1
		ORDER BY ts DESC, edge_score DESC
		LIMIT 1`

	row := r.db.QueryRowxContext(ctx, query, symbol)
	res, err := scanResult(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest result for %s: %w", symbol, err)
	}
	return res, nil
}

func scanResults(rows *sqlx.Rows) ([]persistence.StoredResult, error) {
	var out []persistence.StoredResult
	for rows.Next() {
		var res persistence.StoredResult
		var stack pq.StringArray
		err := rows.Scan(
			&res.RunID, &res.Timestamp, &res.Symbol, &stack,
			&res.EdgeScore, &res.WinPct, &res.Sharpe,
			&res.TotalTrades, &res.AvgReturn, &res.TotalReturn, &res.MaxDrawdown)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		res.RuleStack = stack
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating result rows: %w", err)
	}
	return out, nil
}

func scanResult(row *sqlx.Row) (*persistence.StoredResult, error) {
	var res persistence.StoredResult
	var stack pq.StringArray
	err := row.Scan(
		&res.RunID, &res.Timestamp, &res.Symbol, &stack,
		&res.EdgeScore, &res.WinPct, &res.Sharpe,
		&res.TotalTrades, &res.AvgReturn, &res.TotalReturn, &res.MaxDrawdown)
	if err != nil {
		return nil, err
	}
	res.RuleStack = stack
	return &res, nil
}
