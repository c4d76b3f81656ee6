package capm

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	TradingDays = 252
	RiskFree    = 0.0
)

var (
	ErrInsufficientRows = errors.New("at least 2 rows are required")
	ErrZeroVariance     = errors.New("zero variance")
	ErrLengthMismatch   = errors.New("series length mismatch")
)

// DailyReturn computes the percent change between consecutive rows per column.
// Row 0 is 0 in every column. A zero prior value is a fault.
func DailyReturn(t Table) (Table, error) {
	if t.Len() == 0 {
		return Table{}, ErrEmptyTable
	}
	return t.mapColumns(func(name string, col []float64) ([]float64, error) {
		out := make([]float64, len(col))
		for i := 1; i < len(col); i++ {
			if col[i-1] == 0 {
				return nil, fmt.Errorf("%s: daily return on %d: %w", name, i, ErrZeroPrice)
			}
			out[i] = (col[i] - col[i-1]) / col[i-1] * 100
		}
		return out, nil
	})
}

// BetaAlpha fits instrument = alpha + beta*market by ordinary least squares.
func BetaAlpha(market, instrument []float64) (beta, alpha float64, err error) {
	if len(market) != len(instrument) {
		return 0, 0, ErrLengthMismatch
	}
	if len(market) < 2 {
		return 0, 0, ErrInsufficientRows
	}
	if stat.Variance(market, nil) == 0 {
		return 0, 0, fmt.Errorf("market returns: %w", ErrZeroVariance)
	}
	alpha, beta = stat.LinearRegression(market, instrument, nil, false)
	return beta, alpha, nil
}

// AnnualizedMarketReturn is the mean daily market return scaled to a year.
func AnnualizedMarketReturn(marketReturns []float64) float64 {
	return stat.Mean(marketReturns, nil) * TradingDays
}

// ExpectedReturn applies CAPM: rf + beta*(rm-rf).
func ExpectedReturn(beta, marketReturn float64) float64 {
	return RiskFree + beta*(marketReturn-RiskFree)
}

// Sharpe is the annualized mean excess return over its sample standard deviation.
func Sharpe(returns []float64, riskFree float64) (float64, error) {
	if len(returns) < 2 {
		return 0, ErrInsufficientRows
	}
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - riskFree
	}
	mean, std := stat.MeanStdDev(excess, nil)
	if std == 0 {
		return 0, ErrZeroVariance
	}
	return mean / std * math.Sqrt(TradingDays), nil
}

// Volatility is the annualized sample standard deviation of daily returns.
func Volatility(returns []float64) float64 {
	return stat.StdDev(returns, nil) * math.Sqrt(TradingDays)
}
