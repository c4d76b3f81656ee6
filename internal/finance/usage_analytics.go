package finance

import (
	"fmt"
	"strings"

	"github.com/vicanso/go-charts/v2"

	"capmDashboard/internal/storage"
)

// MakeUsageChart renders a pie chart of how often each symbol was analyzed.
func MakeUsageChart(usage []storage.SymbolUsage, days int) ([]byte, error) {
	if len(usage) == 0 {
		return nil, fmt.Errorf("no usage data available")
	}

	total := 0
	for _, u := range usage {
		total += u.Count
	}
	values := make([]float64, 0, len(usage))
	labels := make([]string, 0, len(usage))
	for _, u := range usage {
		values = append(values, float64(u.Count))
		labels = append(labels, fmt.Sprintf("%s (%.1f%%)", u.Symbol, float64(u.Count)/float64(total)*100))
	}

	p, err := charts.PieRender(
		values,
		charts.TitleTextOptionFunc(fmt.Sprintf("Analyzed Symbols (%d days)", days)),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: labels,
			Top:  charts.PositionBottom,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(800),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, err
	}
	return p.Bytes()
}

// FormatUsageText summarizes symbol usage as plain text.
func FormatUsageText(usage []storage.SymbolUsage, days int) string {
	if len(usage) == 0 {
		return "No usage data available for the specified period."
	}
	total := 0
	for _, u := range usage {
		total += u.Count
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Usage (%d days): %d symbol requests\n", days, total)
	for _, u := range usage {
		fmt.Fprintf(&b, "  • %s: %d\n", u.Symbol, u.Count)
	}
	return b.String()
}
