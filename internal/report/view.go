package report

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"capmDashboard/internal/capm"
)

const previewRows = 5

// Grid is a printable table: a date column followed by one column per instrument.
type Grid struct {
	Columns []string
	Rows    [][]string
}

// Row is one "Stock / value" line of a statistics table.
type Row struct {
	Stock string
	Value string
}

// View is a finished report, formatted for display.
type View struct {
	Report *capm.Report

	Head Grid
	Tail Grid

	Beta           []Row
	ExpectedReturn []Row
	Sharpe         []Row
	Volatility     []Row

	PriceChart      []byte
	NormalizedChart []byte
	CumulativeChart []byte

	Commentary string // markdown, empty when disabled or failed
}

// round2 formats like the dashboard always has: two decimals, trailing zeros trimmed.
func round2(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}
	return decimal.NewFromFloat(v).Round(2).String()
}

func grid(t capm.Table) Grid {
	g := Grid{Columns: append([]string{"Date"}, t.Columns...)}
	for r, d := range t.Dates {
		row := make([]string, 0, len(t.Columns)+1)
		row = append(row, d.Format(time.DateOnly))
		for c := range t.Columns {
			row = append(row, round2(t.Values[c][r]))
		}
		g.Rows = append(g.Rows, row)
	}
	return g
}

func newView(rep *capm.Report) *View {
	v := &View{
		Report: rep,
		Head:   grid(rep.Prices.Head(previewRows)),
		Tail:   grid(rep.Prices.Tail(previewRows)),
	}
	all := make([]capm.Result, 0, len(rep.Order)+1)
	for _, sym := range rep.Order {
		res := rep.Results[sym]
		all = append(all, res)
		v.Beta = append(v.Beta, Row{Stock: sym, Value: round2(res.Beta)})
		v.ExpectedReturn = append(v.ExpectedReturn, Row{Stock: sym, Value: round2(res.ExpectedReturn)})
	}
	all = append(all, rep.Market)
	for _, res := range all {
		sharpe := "undefined"
		if res.SharpeDefined {
			sharpe = round2(res.Sharpe)
		}
		v.Sharpe = append(v.Sharpe, Row{Stock: res.Symbol, Value: sharpe})
		v.Volatility = append(v.Volatility, Row{Stock: res.Symbol, Value: round2(res.Volatility)})
	}
	return v
}
