package persistence

import (
	"context"
	"time"

	"github.com/edgerank/edgerank/internal/scan"
)

// Run identifies one engine execution
type Run struct {
	ID        string    `db:"id"`
	Timestamp time.Time `db:"ts"`
}

// StoredResult is a scan result with its run key attached
type StoredResult struct {
	RunID     string    `db:"run_id"`
	Timestamp time.Time `db:"ts"`
	scan.Result
}

// ResultsRepo stores ranked strategy results keyed by run and symbol
type ResultsRepo interface {
	// SaveRun persists all results of one run atomically
	SaveRun(ctx context.Context, run Run, results []scan.Result) error

	// ListByRun returns every stored result for a run, best first
	ListByRun(ctx context.Context, runID string) ([]StoredResult, error)

	// LatestBySymbol returns the newest stored result for a symbol, or
	// nil when the symbol has never produced one
	LatestBySymbol(ctx context.Context, symbol string) (*StoredResult, error)
}
