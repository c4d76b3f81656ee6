package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capmDashboard/internal/config"
	"capmDashboard/internal/report"
	"capmDashboard/internal/storage"
)

var pngStub = []byte("\x89PNG\r\n\x1a\nstub")

type fakeRunner struct {
	got  []report.Request
	fail bool
}

func (f *fakeRunner) Analysis() config.AnalysisConfig { return config.DefaultAnalysis() }

func (f *fakeRunner) Run(_ context.Context, req report.Request) report.Outcome {
	req = req.Normalized()
	f.got = append(f.got, req)
	if f.fail {
		return report.Outcome{ID: "r1", Request: req, Err: errors.New("no data")}
	}
	return report.Outcome{ID: "r1", Request: req, View: &report.View{
		Head:            report.Grid{Columns: []string{"Date", "TSLA", "sp500"}, Rows: [][]string{{"2024-03-04", "100", "100"}}},
		Tail:            report.Grid{Columns: []string{"Date", "TSLA", "sp500"}, Rows: [][]string{{"2024-03-06", "121", "110"}}},
		Beta:            []report.Row{{Stock: "TSLA", Value: "1.95"}},
		ExpectedReturn:  []report.Row{{Stock: "TSLA", Value: "1203.3"}},
		Sharpe:          []report.Row{{Stock: "TSLA", Value: "12.1"}, {Stock: "sp500", Value: "undefined"}},
		Volatility:      []report.Row{{Stock: "TSLA", Value: "90.5"}, {Stock: "sp500", Value: "44.2"}},
		PriceChart:      pngStub,
		NormalizedChart: pngStub,
		CumulativeChart: pngStub,
		Commentary:      "TSLA is **aggressive**.",
	}}
}

type fakeUsage struct {
	rows []storage.SymbolUsage
	err  error
}

func (f fakeUsage) SymbolUsage(time.Time) ([]storage.SymbolUsage, error) { return f.rows, f.err }

func get(t *testing.T, h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestIndex_DefaultsWithoutQuery(t *testing.T) {
	run := &fakeRunner{}
	rec := get(t, New(run, nil).Index, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, run.got, 1)
	assert.Equal(t, []string{"TSLA", "AAPL", "AMZN", "GOOGL"}, run.got[0].Symbols)
	assert.Equal(t, 1, run.got[0].Years)

	body := rec.Body.String()
	assert.Contains(t, body, `<option value="TSLA" selected>`)
	assert.Contains(t, body, `<option value="NFLX">`)
	assert.Contains(t, body, "Calculated Beta Value")
	assert.Contains(t, body, "data:image/png;base64,")
	assert.Contains(t, body, "<strong>aggressive</strong>")
	assert.NotContains(t, body, report.FailureMessage)
}

func TestIndex_QueryParams(t *testing.T) {
	run := &fakeRunner{}
	rec := get(t, New(run, nil).Index, "/?stocks=nflx&stocks=MSFT&years=3")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, run.got, 1)
	assert.Equal(t, []string{"NFLX", "MSFT"}, run.got[0].Symbols)
	assert.Equal(t, 3, run.got[0].Years)
	assert.Contains(t, rec.Body.String(), `value="3"`)
}

func TestIndex_BadYearsIsRejectedByRun(t *testing.T) {
	run := &fakeRunner{}
	get(t, New(run, nil).Index, "/?stocks=TSLA&years=abc")
	require.Len(t, run.got, 1)
	assert.Equal(t, 0, run.got[0].Years)
}

func TestIndex_FailureShowsOnlyTheMessage(t *testing.T) {
	rec := get(t, New(&fakeRunner{fail: true}, nil).Index, "/?stocks=TSLA&years=1")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<h1 class="error">`+report.FailureMessage+`</h1>`)
	assert.NotContains(t, body, "Calculated Beta Value")
	assert.NotContains(t, body, "no data")
}

func TestUsageChart(t *testing.T) {
	h := New(&fakeRunner{}, fakeUsage{rows: []storage.SymbolUsage{{Symbol: "TSLA", Count: 3}, {Symbol: "AAPL", Count: 1}}})
	rec := get(t, h.UsageChart, "/usage.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))

	rec = get(t, New(&fakeRunner{}, fakeUsage{err: errors.New("db closed")}).UsageChart, "/usage.png")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = get(t, New(&fakeRunner{}, nil).UsageChart, "/usage.png")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDict(t *testing.T) {
	m, err := dict("a", 1, "b", "x")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1, "b": "x"}, m)

	_, err = dict("a")
	assert.Error(t, err)
}
