package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/edgerank/edgerank/internal/scan"
)

// Markdown renders a run's ranked results as a markdown report
func Markdown(runID string, ts time.Time, results []scan.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Strategy Scan %s\n\n", ts.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Run: `%s`\n\n", runID)

	if len(results) == 0 {
		b.WriteString("No combination survived filtering for any instrument.\n")
		return b.String()
	}

	b.WriteString("| Symbol | Rule Stack | Edge Score | Win % | Sharpe | Trades | Total Return | Max DD |\n")
	b.WriteString("|--------|------------|-----------:|------:|-------:|-------:|-------------:|-------:|\n")
	for _, r := range results {
		fmt.Fprintf(&b, "| %s | %s | %.4f | %.1f%% | %.2f | %d | %.1f%% | %.1f%% |\n",
			r.Symbol,
			strings.Join(r.RuleStack, " + "),
			r.EdgeScore,
			r.WinPct*100,
			r.Sharpe,
			r.TotalTrades,
			r.TotalReturn*100,
			r.MaxDrawdown*100,
		)
	}
	return b.String()
}
