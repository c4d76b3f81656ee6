package finance

import (
	"errors"
	"fmt"
	"time"

	"github.com/vicanso/go-charts/v2"

	"capmDashboard/internal/capm"
)

// ChartOptions sizes a rendered chart in pixels.
type ChartOptions struct {
	Width  int
	Height int
}

var (
	PriceChart      = ChartOptions{Width: 900, Height: 420}
	CumulativeChart = ChartOptions{Width: 1200, Height: 480}
)

// maxChartPoints caps the rows drawn per line; render cost grows much faster than row count.
const maxChartPoints = 600

// thinRows keeps every k-th row and always the last one so a chart has at most
// about max points. Only drawing uses it; statistics see the full table.
func thinRows(t capm.Table, max int) capm.Table {
	n := t.Len()
	if n <= max || max < 2 {
		return t
	}
	step := (n + max - 2) / (max - 1)
	idx := make([]int, 0, max)
	for i := 0; i < n-1; i += step {
		idx = append(idx, i)
	}
	idx = append(idx, n-1)

	out := capm.Table{
		Dates:   make([]time.Time, len(idx)),
		Columns: append([]string(nil), t.Columns...),
		Values:  make([][]float64, len(t.Values)),
	}
	for j, i := range idx {
		out.Dates[j] = t.Dates[i]
	}
	for c, col := range t.Values {
		v := make([]float64, len(idx))
		for j, i := range idx {
			v[j] = col[i]
		}
		out.Values[c] = v
	}
	return out
}

// MakeLineChart renders one line per table column against the table dates as PNG.
func MakeLineChart(title string, t capm.Table, opt ChartOptions) ([]byte, error) {
	if t.Len() < 2 || len(t.Columns) == 0 {
		return nil, errors.New("not enough data points")
	}
	cacheKey := tableKey(title, t)
	if img, ok := cacheGet(cacheKey); ok {
		return img, nil
	}
	t = thinRows(t, maxChartPoints)

	xLabels := make([]string, t.Len())
	for i, d := range t.Dates {
		if t.Len() <= 60 {
			xLabels[i] = d.Format("Jan 02")
		} else {
			xLabels[i] = d.Format("Jan '06")
		}
	}

	yMin, yMax := t.Values[0][0], t.Values[0][0]
	for _, col := range t.Values {
		for _, v := range col {
			if v < yMin {
				yMin = v
			}
			if v > yMax {
				yMax = v
			}
		}
	}
	pad := (yMax - yMin) * 0.05
	if pad == 0 {
		pad = 1
	}
	yMin -= pad
	yMax += pad

	split := 8
	if t.Len() <= 30 {
		split = t.Len() / 3
		if split < 2 {
			split = 2
		}
	}

	painter, err := charts.LineRender(t.Values,
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: xLabels, BoundaryGap: charts.FalseFlag(), SplitNumber: split}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: t.Columns, Left: charts.PositionRight}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(opt.Width),
		charts.HeightOptionFunc(opt.Height),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	img, err := painter.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	cacheSet(cacheKey, img)
	return img, nil
}
