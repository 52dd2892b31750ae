package calibration

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

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

// Render writes calibration records to w as tables, a JSON array or a YAML
// sequence.
func Render(w io.Writer, records []*models.CalibrationData, format string) error {
	switch strings.ToLower(format) {
	case "", FormatTable:
		for i, data := range records {
			if i > 0 {
				fmt.Fprintln(w)
			}
			if err := renderTable(w, data); err != nil {
				return err
			}
		}
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported output format %q", format)
}

func renderTable(out io.Writer, c *models.CalibrationData) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)

	fmt.Fprintf(w, "Calibration\t%s\n", c.Market)
	fmt.Fprintf(w, "ID\t%s\n", c.ID)
	fmt.Fprintf(w, "Created\t%s\n", c.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "Window\t%d days\n", c.WindowDays)
	fmt.Fprintf(w, "Events\t%d\n", c.EventCount)
	fmt.Fprintf(w, "Outcomes\t%d\n", c.SampleSize)
	fmt.Fprintf(w, "Correlation\t%s\n", fixed(c.Correlation, 3))
	fmt.Fprintf(w, "High confidence win rate\t%s%%\n", fixed(c.HighConfWinRate, 1))
	fmt.Fprintf(w, "Low confidence win rate\t%s%%\n", fixed(c.LowConfWinRate, 1))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "RAW\tCALIBRATED")
	for _, p := range c.Points {
		fmt.Fprintf(w, "%s\t%s\n", fixed(p.RawConfidence, 3), fixed(p.CalibratedConfidence, 3))
	}

	if len(c.Buckets) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "BUCKET\tCOUNT\tWIN RATE")
		for _, b := range c.Buckets {
			fmt.Fprintf(w, "%s-%s\t%d\t%s%%\n",
				fixed(b.MinConfidence, 2), fixed(b.MaxConfidence, 2),
				b.Count, fixed(b.WinRate*100, 1))
		}
	}
	return w.Flush()
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}
