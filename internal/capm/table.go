package capm

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrEmptySeries    = errors.New("empty price series")
	ErrUnsortedSeries = errors.New("price series dates must be unique and ascending")
	ErrNoCommonDates  = errors.New("no common dates across series")
	ErrEmptyTable     = errors.New("empty table")
	ErrZeroPrice      = errors.New("zero price")
)

// Point is one closing value on a trading date.
type Point struct {
	Date  time.Time
	Value float64
}

// Series is the price history of one instrument, dates ascending and unique.
type Series struct {
	Symbol string
	Points []Point
}

// Table holds one row per date and one column per instrument.
// Values is column-major: Values[col][row].
type Table struct {
	Dates   []time.Time
	Columns []string
	Values  [][]float64
}

func (t Table) Len() int { return len(t.Dates) }

// Column returns the values of the named column.
func (t Table) Column(name string) ([]float64, bool) {
	for i, c := range t.Columns {
		if c == name {
			return t.Values[i], true
		}
	}
	return nil, false
}

// Head returns the first n rows.
func (t Table) Head(n int) Table {
	if n > t.Len() {
		n = t.Len()
	}
	return t.slice(0, n)
}

// Tail returns the last n rows.
func (t Table) Tail(n int) Table {
	if n > t.Len() {
		n = t.Len()
	}
	return t.slice(t.Len()-n, t.Len())
}

func (t Table) slice(from, to int) Table {
	out := Table{
		Dates:   append([]time.Time(nil), t.Dates[from:to]...),
		Columns: append([]string(nil), t.Columns...),
		Values:  make([][]float64, len(t.Values)),
	}
	for i, col := range t.Values {
		out.Values[i] = append([]float64(nil), col[from:to]...)
	}
	return out
}

// mapColumns builds a table of the same shape whose columns are produced by fn.
func (t Table) mapColumns(fn func(name string, col []float64) ([]float64, error)) (Table, error) {
	out := Table{
		Dates:   append([]time.Time(nil), t.Dates...),
		Columns: append([]string(nil), t.Columns...),
		Values:  make([][]float64, len(t.Values)),
	}
	for i, col := range t.Values {
		v, err := fn(t.Columns[i], col)
		if err != nil {
			return Table{}, err
		}
		out.Values[i] = v
	}
	return out, nil
}

func dateKey(d time.Time) string { return d.Format(time.DateOnly) }

// Align inner-joins the instrument series and the market series on date.
// Columns keep the order of instruments and the market column is appended last.
func Align(instruments []Series, market Series, marketColumn string) (Table, error) {
	all := make([]Series, 0, len(instruments)+1)
	all = append(all, instruments...)
	all = append(all, Series{Symbol: marketColumn, Points: market.Points})

	lookup := make([]map[string]float64, len(all))
	for i, s := range all {
		if len(s.Points) == 0 {
			return Table{}, fmt.Errorf("%s: %w", s.Symbol, ErrEmptySeries)
		}
		m := make(map[string]float64, len(s.Points))
		for j, p := range s.Points {
			if j > 0 && !p.Date.After(s.Points[j-1].Date) {
				return Table{}, fmt.Errorf("%s: %w", s.Symbol, ErrUnsortedSeries)
			}
			m[dateKey(p.Date)] = p.Value
		}
		lookup[i] = m
	}

	// the first series drives row order; a date survives only if every series has it
	var t Table
	for _, s := range all {
		t.Columns = append(t.Columns, s.Symbol)
	}
	t.Values = make([][]float64, len(all))
	for _, p := range all[0].Points {
		key := dateKey(p.Date)
		row := make([]float64, len(all))
		ok := true
		for i, m := range lookup {
			v, found := m[key]
			if !found {
				ok = false
				break
			}
			row[i] = v
		}
		if !ok {
			continue
		}
		t.Dates = append(t.Dates, p.Date)
		for i, v := range row {
			t.Values[i] = append(t.Values[i], v)
		}
	}
	if t.Len() == 0 {
		return Table{}, ErrNoCommonDates
	}
	return t, nil
}

// Normalize divides every column by its first value.
func Normalize(t Table) (Table, error) {
	if t.Len() == 0 {
		return Table{}, ErrEmptyTable
	}
	return t.mapColumns(func(name string, col []float64) ([]float64, error) {
		if col[0] == 0 {
			return nil, fmt.Errorf("%s: normalize: %w", name, ErrZeroPrice)
		}
		out := make([]float64, len(col))
		for i, v := range col {
			out[i] = v / col[0]
		}
		return out, nil
	})
}

// CumulativeReturn computes v[i]/v[0]-1 per column on a price table.
func CumulativeReturn(t Table) (Table, error) {
	n, err := Normalize(t)
	if err != nil {
		return Table{}, err
	}
	for _, col := range n.Values {
		for i := range col {
			col[i]--
		}
	}
	return n, nil
}
