package dashboard

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"errors"
	"html/template"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/phuslu/log"
	"github.com/yuin/goldmark"

	"capmDashboard/internal/config"
	"capmDashboard/internal/finance"
	"capmDashboard/internal/report"
	"capmDashboard/internal/storage"
)

//go:embed templates/index.html
var templatesFS embed.FS

const usageDays = 30

// Runner runs one analysis.
type Runner interface {
	Run(ctx context.Context, req report.Request) report.Outcome
	Analysis() config.AnalysisConfig
}

// UsageSource reports how often symbols were analyzed.
type UsageSource interface {
	SymbolUsage(since time.Time) ([]storage.SymbolUsage, error)
}

type Handler struct {
	runner Runner
	usage  UsageSource
	tmpl   *template.Template
	md     goldmark.Markdown
}

type option struct {
	Symbol   string
	Selected bool
}

type chartURLs struct {
	Price      template.URL
	Normalized template.URL
	Cumulative template.URL
}

type page struct {
	Candidates []option
	Years      int
	MaxYears   int
	Message    string
	View       *report.View
	Charts     chartURLs
	Commentary template.HTML
}

func New(runner Runner, usage UsageSource) *Handler {
	tmpl := template.Must(template.New("index.html").Funcs(template.FuncMap{"dict": dict}).ParseFS(templatesFS, "templates/index.html"))
	return &Handler{runner: runner, usage: usage, tmpl: tmpl, md: goldmark.New()}
}

func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, errors.New("dict: keys must be strings")
		}
		m[k] = kv[i+1]
	}
	return m, nil
}

// parseRequest reads ?stocks=..&stocks=..&years=N. Without a query the
// default selection and one year are analyzed.
func parseRequest(r *http.Request, a config.AnalysisConfig) report.Request {
	q := r.URL.Query()
	if !q.Has("stocks") && !q.Has("years") {
		return report.Request{Symbols: append([]string(nil), a.Defaults...), Years: 1}
	}
	years, err := strconv.Atoi(q.Get("years"))
	if err != nil {
		years = 0 // rejected by validation
	}
	return report.Request{Symbols: q["stocks"], Years: years}
}

// Index renders the selection form and, below it, the analysis or the failure message.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	a := h.runner.Analysis()
	req := parseRequest(r, a)
	out := h.runner.Run(r.Context(), req)

	p := page{Years: req.Years, MaxYears: a.MaxYears, Message: out.Message(), View: out.View}
	if p.Years < 1 {
		p.Years = 1
	}
	for _, c := range a.Candidates {
		p.Candidates = append(p.Candidates, option{Symbol: c, Selected: slices.Contains(out.Request.Symbols, c)})
	}
	if out.Failed() {
		log.Warn().Str("run", out.ID).Err(out.Err).Msg("dashboard: analysis failed")
	} else {
		p.Charts = chartURLs{
			Price:      pngURL(out.View.PriceChart),
			Normalized: pngURL(out.View.NormalizedChart),
			Cumulative: pngURL(out.View.CumulativeChart),
		}
		if out.View.Commentary != "" {
			var buf bytes.Buffer
			if err := h.md.Convert([]byte(out.View.Commentary), &buf); err == nil {
				p.Commentary = template.HTML(buf.String())
			}
		}
	}

	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, p); err != nil {
		log.Error().Err(err).Msg("dashboard: template")
		http.Error(w, report.FailureMessage, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func pngURL(img []byte) template.URL {
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(img))
}

// UsageChart serves the symbol usage pie chart for the last 30 days.
func (h *Handler) UsageChart(w http.ResponseWriter, r *http.Request) {
	if h.usage == nil {
		http.NotFound(w, r)
		return
	}
	usage, err := h.usage.SymbolUsage(time.Now().AddDate(0, 0, -usageDays))
	if err != nil {
		log.Error().Err(err).Msg("dashboard: usage query")
		http.Error(w, "usage unavailable", http.StatusInternalServerError)
		return
	}
	img, err := finance.MakeUsageChart(usage, usageDays)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(img)
}
