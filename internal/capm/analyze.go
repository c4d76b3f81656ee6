package capm

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Result is the per-instrument statistics record.
type Result struct {
	Symbol         string
	Beta           float64
	Alpha          float64
	ExpectedReturn float64
	Sharpe         float64
	SharpeDefined  bool // false when the return series has zero variance
	Volatility     float64
}

// Report is everything derived from one aligned price table.
type Report struct {
	Prices     Table
	Normalized Table
	Returns    Table
	Cumulative Table

	MarketColumn string
	MarketReturn float64 // annualized
	Market       Result  // Sharpe and volatility of the index; beta is 1 by definition

	Order   []string // instrument symbols in selection order
	Results map[string]Result
}

// Analyze derives every table and statistic from an aligned price table whose
// last column is the market index.
func Analyze(ctx context.Context, prices Table, marketColumn string) (*Report, error) {
	if prices.Len() < 2 {
		return nil, ErrInsufficientRows
	}
	if _, ok := prices.Column(marketColumn); !ok {
		return nil, fmt.Errorf("market column %q not found", marketColumn)
	}

	normalized, err := Normalize(prices)
	if err != nil {
		return nil, err
	}
	cumulative, err := CumulativeReturn(prices)
	if err != nil {
		return nil, err
	}
	returns, err := DailyReturn(prices)
	if err != nil {
		return nil, err
	}
	marketReturns, _ := returns.Column(marketColumn)
	rm := AnnualizedMarketReturn(marketReturns)

	var order []string
	for _, c := range returns.Columns {
		if c != marketColumn {
			order = append(order, c)
		}
	}

	// one independent task per instrument; each writes only its own slot
	slots := make([]Result, len(order))
	g, ctx := errgroup.WithContext(ctx)
	for i, sym := range order {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			col, _ := returns.Column(sym)
			res, err := instrumentResult(sym, marketReturns, col, rm)
			if err != nil {
				return err
			}
			slots[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make(map[string]Result, len(order))
	for _, r := range slots {
		results[r.Symbol] = r
	}

	mkt := Result{Symbol: marketColumn, Beta: 1, ExpectedReturn: rm, Volatility: Volatility(marketReturns)}
	mkt.Sharpe, mkt.SharpeDefined, err = sharpeFlag(marketReturns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", marketColumn, err)
	}

	return &Report{
		Prices:       prices,
		Normalized:   normalized,
		Returns:      returns,
		Cumulative:   cumulative,
		MarketColumn: marketColumn,
		MarketReturn: rm,
		Market:       mkt,
		Order:        order,
		Results:      results,
	}, nil
}

func instrumentResult(sym string, market, returns []float64, rm float64) (Result, error) {
	beta, alpha, err := BetaAlpha(market, returns)
	if err != nil {
		return Result{}, fmt.Errorf("%s: beta: %w", sym, err)
	}
	res := Result{
		Symbol:         sym,
		Beta:           beta,
		Alpha:          alpha,
		ExpectedReturn: ExpectedReturn(beta, rm),
		Volatility:     Volatility(returns),
	}
	res.Sharpe, res.SharpeDefined, err = sharpeFlag(returns)
	if err != nil {
		return Result{}, fmt.Errorf("%s: sharpe: %w", sym, err)
	}
	return res, nil
}

// sharpeFlag maps zero variance to an undefined flag instead of a fault.
func sharpeFlag(returns []float64) (float64, bool, error) {
	s, err := Sharpe(returns, RiskFree)
	switch {
	case errors.Is(err, ErrZeroVariance):
		return 0, false, nil
	case err != nil:
		return 0, false, err
	}
	return s, true, nil
}
