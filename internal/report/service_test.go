package report

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capmDashboard/internal/capm"
	"capmDashboard/internal/config"
	"capmDashboard/internal/finance"
	"capmDashboard/internal/storage"
)

var day0 = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func series(sym string, offset int, values ...float64) capm.Series {
	s := capm.Series{Symbol: sym}
	for i, v := range values {
		s.Points = append(s.Points, capm.Point{Date: day0.AddDate(0, 0, offset+i), Value: v})
	}
	return s
}

type fakeProvider map[string]capm.Series

func (f fakeProvider) History(_ context.Context, symbol string, _, _ time.Time) (capm.Series, error) {
	s, ok := f[symbol]
	if !ok {
		return capm.Series{}, finance.ErrNoData
	}
	return s, nil
}

type memRecorder struct{ runs []storage.Run }

func (m *memRecorder) SaveRun(r storage.Run) error {
	m.runs = append(m.runs, r)
	return nil
}

type stubCommentator struct {
	text string
	err  error
}

func (c stubCommentator) Explain(context.Context, *capm.Report) (string, error) { return c.text, c.err }

type panicCommentator struct{}

func (panicCommentator) Explain(context.Context, *capm.Report) (string, error) { panic("boom") }

func scenarioProvider() fakeProvider {
	return fakeProvider{
		"TSLA":  series("TSLA", 0, 100, 110, 121),
		"AAPL":  series("AAPL", 0, 100, 100, 100),
		"^GSPC": series("^GSPC", 0, 100, 105, 110),
	}
}

func newTestService(p finance.Provider, opts ...Option) *Service {
	opts = append(opts, WithClock(func() time.Time { return day0.AddDate(0, 0, 10) }))
	return NewService(p, config.DefaultAnalysis(), opts...)
}

func TestRun_Success(t *testing.T) {
	rec := &memRecorder{}
	svc := newTestService(scenarioProvider(), WithRecorder(rec), WithCommentator(stubCommentator{text: "**fine**"}))

	out := svc.Run(context.Background(), Request{Symbols: []string{"tsla", " AAPL "}, Years: 1})
	require.False(t, out.Failed(), "%v", out.Err)
	assert.Empty(t, out.Message())
	require.NotNil(t, out.View)

	v := out.View
	assert.Equal(t, []string{"Date", "TSLA", "AAPL", "sp500"}, v.Head.Columns)
	assert.Equal(t, []string{"2024-03-04", "100", "100", "100"}, v.Head.Rows[0])
	assert.Len(t, v.Tail.Rows, 3)

	assert.Equal(t, []Row{{"TSLA", v.Beta[0].Value}, {"AAPL", "0"}}, v.Beta)
	assert.Len(t, v.ExpectedReturn, 2)
	require.Len(t, v.Sharpe, 3)
	assert.Equal(t, Row{Stock: "AAPL", Value: "undefined"}, v.Sharpe[1])
	assert.Equal(t, "sp500", v.Sharpe[2].Stock)
	assert.Equal(t, Row{Stock: "AAPL", Value: "0"}, v.Volatility[1])

	for _, img := range [][]byte{v.PriceChart, v.NormalizedChart, v.CumulativeChart} {
		assert.True(t, bytes.HasPrefix(img, []byte("\x89PNG")))
	}
	assert.Equal(t, "**fine**", v.Commentary)

	require.Len(t, rec.runs, 1)
	assert.True(t, rec.runs[0].OK)
	assert.Equal(t, out.ID, rec.runs[0].ID)
	assert.Equal(t, []string{"TSLA", "AAPL"}, rec.runs[0].Symbols)
}

func TestRun_CommentaryFailureIsNotFatal(t *testing.T) {
	svc := newTestService(scenarioProvider(), WithCommentator(stubCommentator{err: errors.New("quota")}))
	out := svc.Run(context.Background(), Request{Symbols: []string{"TSLA"}, Years: 1})
	require.False(t, out.Failed())
	assert.Empty(t, out.View.Commentary)
}

func TestRun_FailuresShareOneMessage(t *testing.T) {
	disjoint := scenarioProvider()
	disjoint["^GSPC"] = series("^GSPC", 30, 100, 105, 110)

	cases := map[string]struct {
		p    finance.Provider
		req  Request
		want error
	}{
		"not a candidate": {scenarioProvider(), Request{Symbols: []string{"IBM"}, Years: 1}, ErrInvalidRequest},
		"no symbols":      {scenarioProvider(), Request{Years: 1}, ErrInvalidRequest},
		"duplicate":       {scenarioProvider(), Request{Symbols: []string{"TSLA", "tsla"}, Years: 1}, ErrInvalidRequest},
		"years too low":   {scenarioProvider(), Request{Symbols: []string{"TSLA"}, Years: 0}, ErrInvalidRequest},
		"years too high":  {scenarioProvider(), Request{Symbols: []string{"TSLA"}, Years: 501}, ErrInvalidRequest},
		"fetch fault":     {scenarioProvider(), Request{Symbols: []string{"NFLX"}, Years: 1}, finance.ErrNoData},
		"no common dates": {disjoint, Request{Symbols: []string{"TSLA", "AAPL"}, Years: 1}, capm.ErrNoCommonDates},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := &memRecorder{}
			out := newTestService(tc.p, WithRecorder(rec)).Run(context.Background(), tc.req)
			require.True(t, out.Failed())
			assert.Nil(t, out.View)
			assert.Equal(t, FailureMessage, out.Message())
			if tc.want != nil {
				assert.ErrorIs(t, out.Err, tc.want)
			}
			require.Len(t, rec.runs, 1)
			assert.False(t, rec.runs[0].OK)
			assert.NotEmpty(t, rec.runs[0].Reason)
		})
	}
}

func TestRun_RejectedRequestRecordsNoSymbols(t *testing.T) {
	rec := &memRecorder{}
	svc := newTestService(scenarioProvider(), WithRecorder(rec))

	svc.Run(context.Background(), Request{Symbols: []string{"IBM", "XYZ"}, Years: 1})
	svc.Run(context.Background(), Request{Symbols: []string{"NFLX"}, Years: 1}) // valid, fetch fails

	require.Len(t, rec.runs, 2)
	assert.Empty(t, rec.runs[0].Symbols)
	assert.Contains(t, rec.runs[0].Reason, "invalid request")
	assert.Equal(t, []string{"NFLX"}, rec.runs[1].Symbols)
}

func TestRun_PanicBecomesFailure(t *testing.T) {
	out := newTestService(scenarioProvider(), WithCommentator(panicCommentator{})).Run(context.Background(), Request{Symbols: []string{"TSLA"}, Years: 1})
	require.True(t, out.Failed())
	assert.Nil(t, out.View)
	assert.Contains(t, out.Err.Error(), "boom")
}

func TestRound2(t *testing.T) {
	assert.Equal(t, "1.23", round2(1.23456))
	assert.Equal(t, "-0.5", round2(-0.5))
	assert.Equal(t, "NaN", round2(math.NaN()))
}
