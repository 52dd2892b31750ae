package backtest

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/irfndi/neuratrade-eval/internal/models"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by Render.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Render writes result to w as a table, JSON or YAML.
func Render(w io.Writer, result *models.BacktestResult, format string) error {
	switch strings.ToLower(format) {
	case "", FormatTable:
		return renderTable(w, result)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported output format %q", format)
}

func renderTable(out io.Writer, r *models.BacktestResult) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)

	market := r.Market
	if market == "" {
		market = strings.Join(r.Markets, ",")
	}
	fmt.Fprintf(w, "Backtest\t%s\n", market)
	fmt.Fprintf(w, "Window\t%d days\n", r.Days)
	fmt.Fprintf(w, "Events\t%d\n", r.EventCount)
	fmt.Fprintf(w, "Hold mode\t%s\n", r.HoldMode)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "STRATEGY\tTRADES\tWIN RATE\tTOTAL PNL\tRETURN\tAVG PNL\tBEST\tWORST")
	for _, row := range []struct {
		name string
		perf models.StrategyPerformance
	}{
		{"recommended", r.Recommended},
		{"perfect", r.Perfect},
	} {
		fmt.Fprintf(w, "%s\t%d\t%s%%\t$%s\t%s%%\t$%s\t$%s\t$%s\n",
			row.name,
			row.perf.TradeCount,
			fixed(row.perf.WinRate, 1),
			fixed(row.perf.TotalPnLUSD, 2),
			fixed(row.perf.TotalReturnPercent, 2),
			fixed(row.perf.AvgTradeReturnUSD, 2),
			fixed(row.perf.BestTradePnLUSD, 2),
			fixed(row.perf.WorstTradePnLUSD, 2),
		)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "ACTION\tCOUNT\tTRADES\tWIN RATE\tAVG PNL")
	for _, row := range []struct {
		name  string
		stats models.ActionStats
		trade bool
	}{
		{"long", r.Actions.Long, true},
		{"short", r.Actions.Short, true},
		{"hold", r.Actions.Hold, false},
		{"close", r.Actions.Close, false},
	} {
		if !row.trade {
			fmt.Fprintf(w, "%s\t%d\t-\t-\t-\n", row.name, row.stats.Count)
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s%%\t$%s\n",
			row.name, row.stats.Count, row.stats.TradeCount,
			fixed(row.stats.WinRate, 1), fixed(row.stats.AvgPnLUSD, 2))
	}
	fmt.Fprintln(w)

	c := r.Confidence
	fmt.Fprintf(w, "High confidence (>= %s)\t%d trades\t%s%% win\n", fixed(c.Threshold, 2), c.HighConfidenceTrades, fixed(c.HighConfidenceWinRate, 1))
	fmt.Fprintf(w, "Low confidence\t%d trades\t%s%% win\n", c.LowConfidenceTrades, fixed(c.LowConfidenceWinRate, 1))
	fmt.Fprintf(w, "Correlation\t%s\n", fixed(c.Correlation, 3))

	if err := w.Flush(); err != nil {
		return err
	}

	if len(r.Suggestions) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Suggestions:")
		for i, s := range r.Suggestions {
			fmt.Fprintf(out, "  %d. %s\n", i+1, s)
		}
	}
	return nil
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}
