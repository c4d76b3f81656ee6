package finance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"capmDashboard/internal/capm"
)

var ErrNoData = errors.New("no data")

// Provider returns the daily closing prices of one symbol between start and end.
type Provider interface {
	History(ctx context.Context, symbol string, start, end time.Time) (capm.Series, error)
}

// Yahoo fetches daily bars from the Yahoo v8 chart endpoint.
type Yahoo struct {
	hosts    []string
	scheme   string
	client   *http.Client
	limiter  *rate.Limiter
	backoffs []time.Duration
}

type YahooOption func(*Yahoo)

// WithHosts replaces the query1/query2 host rotation.
func WithHosts(hosts ...string) YahooOption {
	return func(y *Yahoo) { y.hosts = hosts }
}

// WithScheme sets the URL scheme (tests use plain http).
func WithScheme(scheme string) YahooOption {
	return func(y *Yahoo) { y.scheme = scheme }
}

func WithHTTPClient(c *http.Client) YahooOption {
	return func(y *Yahoo) { y.client = c }
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(perSecond float64, burst int) YahooOption {
	return func(y *Yahoo) { y.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithBackoffs sets the pauses between retry rounds.
func WithBackoffs(b ...time.Duration) YahooOption {
	return func(y *Yahoo) { y.backoffs = b }
}

func NewYahoo(opts ...YahooOption) *Yahoo {
	y := &Yahoo{
		hosts:    []string{"query1.finance.yahoo.com", "query2.finance.yahoo.com"},
		scheme:   "https",
		client:   &http.Client{Timeout: 20 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(8), 4),
		backoffs: []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second},
	}
	for _, o := range opts {
		o(y)
	}
	return y
}

// errTerminal marks responses that retrying cannot fix.
type errTerminal struct{ err error }

func (e errTerminal) Error() string { return e.err.Error() }
func (e errTerminal) Unwrap() error { return e.err }

// History fetches daily closes for [start, end).
func (y *Yahoo) History(ctx context.Context, symbol string, start, end time.Time) (capm.Series, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return capm.Series{}, errors.New("empty symbol")
	}
	var yc yahooChartResp
	var lastErr error
	for attempt := 0; attempt < len(y.backoffs)+1; attempt++ {
		for _, host := range y.hosts {
			lastErr = y.fetchChart(ctx, host, symbol, start, end, &yc)
			if lastErr == nil {
				break
			}
			var term errTerminal
			if errors.As(lastErr, &term) || ctx.Err() != nil {
				return capm.Series{}, fmt.Errorf("%s: %w", symbol, lastErr)
			}
			log.Debug().Str("symbol", symbol).Str("host", host).Int("attempt", attempt).Err(lastErr).Msg("yahoo fetch failed")
		}
		if lastErr == nil {
			break
		}
		if attempt < len(y.backoffs) {
			select {
			case <-ctx.Done():
				return capm.Series{}, ctx.Err()
			case <-time.After(y.backoffs[attempt]):
			}
		}
	}
	if lastErr != nil {
		return capm.Series{}, fmt.Errorf("%s: %w", symbol, lastErr)
	}
	if len(yc.Chart.Result) == 0 || len(yc.Chart.Result[0].Indicators.Quote) == 0 {
		return capm.Series{}, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}
	r := yc.Chart.Result[0]
	s := toSeries(symbol, r.Timestamp, r.Indicators.Quote[0].Close, r.Meta.GmtOffset)
	if len(s.Points) == 0 {
		return capm.Series{}, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}
	log.Debug().Str("symbol", symbol).Str("exchange", r.Meta.ExchangeName).Str("currency", r.Meta.Currency).
		Int("points", len(s.Points)).Msg("yahoo history fetched")
	return s, nil
}

func (y *Yahoo) fetchChart(ctx context.Context, host, symbol string, start, end time.Time, out *yahooChartResp) error {
	if err := y.limiter.Wait(ctx); err != nil {
		return err
	}
	q := url.Values{}
	q.Set("period1", fmt.Sprint(start.Unix()))
	q.Set("period2", fmt.Sprint(end.Unix()))
	q.Set("interval", "1d")
	q.Set("events", "div,splits")
	u := url.URL{Scheme: y.scheme, Host: host, Path: "/v8/finance/chart/" + symbol, RawQuery: q.Encode()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errTerminal{err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", fmt.Sprintf("https://finance.yahoo.com/quote/%s/history", symbol))
	resp, err := y.client.Do(req)
	if err != nil {
		return err
	}
	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("failed to read yahoo response: %w", readErr)
	}
	if resp.StatusCode == http.StatusTooManyRequests || strings.HasPrefix(string(body), "Edge: Too Many Requests") {
		return fmt.Errorf("yahoo %s returned 429: Edge: Too Many Requests", host)
	}
	if resp.StatusCode == http.StatusNotFound {
		// unknown or delisted symbol
		return errTerminal{fmt.Errorf("yahoo %s returned 404: %w", host, ErrNoData)}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("yahoo %s returned %d: %s", host, resp.StatusCode, preview(body))
	}
	if strings.HasPrefix(string(body), "<") || strings.HasPrefix(string(body), "Edge:") {
		return fmt.Errorf("yahoo returned non-json body: %s", preview(body))
	}
	var yc yahooChartResp
	if err := json.Unmarshal(body, &yc); err != nil {
		return fmt.Errorf("failed to parse yahoo json: %v; body: %s", err, preview(body))
	}
	if yc.Chart.Error != nil {
		return errTerminal{fmt.Errorf("yahoo error %s: %s", yc.Chart.Error.Code, yc.Chart.Error.Description)}
	}
	*out = yc
	return nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}

// FetchAll fetches every symbol concurrently. Results keep the order of symbols.
func FetchAll(ctx context.Context, p Provider, symbols []string, start, end time.Time) ([]capm.Series, error) {
	out := make([]capm.Series, len(symbols))
	g, ctx := errgroup.WithContext(ctx)
	for i, sym := range symbols {
		g.Go(func() error {
			s, err := p.History(ctx, sym, start, end)
			if err != nil {
				return fmt.Errorf("failed to fetch %s: %w", sym, err)
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
