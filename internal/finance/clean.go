package finance

import (
	"sort"
	"time"

	"capmDashboard/internal/capm"
)

// filterPositive removes points where close <= 0, keeping timestamp and value arrays aligned.
// Yahoo reports missing bars as null, which decode to 0.
func filterPositive(ts []int64, cl []float64) ([]int64, []float64) {
	if len(ts) != len(cl) {
		n := len(ts)
		if len(cl) < n {
			n = len(cl)
		}
		ts = ts[:n]
		cl = cl[:n]
	}
	outTs := make([]int64, 0, len(ts))
	outCl := make([]float64, 0, len(cl))
	for i := 0; i < len(ts); i++ {
		if cl[i] <= 0 {
			continue
		}
		outTs = append(outTs, ts[i])
		outCl = append(outCl, cl[i])
	}
	return outTs, outCl
}

// tradingDate maps a bar timestamp to its calendar date at the exchange.
func tradingDate(ts, gmtOffset int64) time.Time {
	t := time.Unix(ts+gmtOffset, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// toSeries builds an ascending, one-point-per-date series. When a date repeats
// (Yahoo appends a live bar for the current session) the later bar wins.
func toSeries(symbol string, ts []int64, cl []float64, gmtOffset int64) capm.Series {
	ts, cl = filterPositive(ts, cl)
	byDate := make(map[time.Time]float64, len(ts))
	for i, t := range ts {
		byDate[tradingDate(t, gmtOffset)] = cl[i]
	}
	s := capm.Series{Symbol: symbol, Points: make([]capm.Point, 0, len(byDate))}
	for d, v := range byDate {
		s.Points = append(s.Points, capm.Point{Date: d, Value: v})
	}
	sort.Slice(s.Points, func(i, j int) bool { return s.Points[i].Date.Before(s.Points[j].Date) })
	return s
}
