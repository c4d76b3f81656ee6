package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phuslu/log"

	"capmDashboard/internal/capm"
	"capmDashboard/internal/config"
	"capmDashboard/internal/finance"
	"capmDashboard/internal/storage"
)

// FailureMessage is shown for every fault, whatever its kind.
const FailureMessage = "Cannot show further. Give a valid input."

// ErrInvalidRequest marks requests rejected before any fetch.
var ErrInvalidRequest = errors.New("invalid request")

// Commentator narrates a finished report.
type Commentator interface {
	Explain(ctx context.Context, rep *capm.Report) (string, error)
}

// Recorder keeps the audit log of runs.
type Recorder interface {
	SaveRun(r storage.Run) error
}

// Outcome is the single result of a run: a view, or a failure with its reason.
type Outcome struct {
	ID      string
	Request Request
	View    *View
	Err     error
}

func (o Outcome) Failed() bool { return o.Err != nil }

// Message is the user-visible status; failures never reveal their kind.
func (o Outcome) Message() string {
	if o.Err != nil {
		return FailureMessage
	}
	return ""
}

type Service struct {
	provider    finance.Provider
	analysis    config.AnalysisConfig
	validate    *validator.Validate
	commentator Commentator
	recorder    Recorder
	now         func() time.Time
}

type Option func(*Service)

func WithCommentator(c Commentator) Option { return func(s *Service) { s.commentator = c } }
func WithRecorder(r Recorder) Option       { return func(s *Service) { s.recorder = r } }
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(p finance.Provider, a config.AnalysisConfig, opts ...Option) *Service {
	s := &Service{
		provider: p,
		analysis: a,
		validate: newValidator(a),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Analysis exposes the candidate set and defaults to the UIs.
func (s *Service) Analysis() config.AnalysisConfig { return s.analysis }

// Run executes the whole pipeline. Any fault, including a panic, becomes a
// failed Outcome; nothing partial is returned.
func (s *Service) Run(ctx context.Context, req Request) (out Outcome) {
	req = req.Normalized()
	out = Outcome{ID: uuid.NewString(), Request: req}
	started := s.now()

	defer func() {
		if r := recover(); r != nil {
			out.View = nil
			out.Err = fmt.Errorf("panic: %v", r)
		}
		s.record(out, started)
	}()

	view, err := s.build(ctx, req)
	if err != nil {
		out.Err = err
		return out
	}
	out.View = view
	return out
}

func (s *Service) build(ctx context.Context, req Request) (*View, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	start, end := finance.LookbackRange(s.now(), req.Years)
	symbols := append(append([]string(nil), req.Symbols...), s.analysis.IndexSymbol)
	series, err := finance.FetchAll(ctx, s.provider, symbols, start, end)
	if err != nil {
		return nil, err
	}
	n := len(req.Symbols)
	prices, err := capm.Align(series[:n], series[n], s.analysis.IndexColumn)
	if err != nil {
		return nil, fmt.Errorf("align: %w", err)
	}
	rep, err := capm.Analyze(ctx, prices, s.analysis.IndexColumn)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	view := newView(rep)
	if view.PriceChart, err = finance.MakeLineChart("Price of all the Stocks", rep.Prices, finance.PriceChart); err != nil {
		return nil, err
	}
	if view.NormalizedChart, err = finance.MakeLineChart("Price of all the Stocks After Normalization", rep.Normalized, finance.PriceChart); err != nil {
		return nil, err
	}
	if view.CumulativeChart, err = finance.MakeLineChart("Cumulative Returns", rep.Cumulative, finance.CumulativeChart); err != nil {
		return nil, err
	}

	if s.commentator != nil {
		text, err := s.commentator.Explain(ctx, rep)
		if err != nil {
			log.Warn().Err(err).Msg("commentary unavailable")
		} else {
			view.Commentary = text
		}
	}
	return view, nil
}

func (s *Service) record(out Outcome, started time.Time) {
	ev := log.Info()
	if out.Failed() {
		ev = log.Warn().Err(out.Err)
	}
	ev.Str("run", out.ID).Strs("symbols", out.Request.Symbols).Int("years", out.Request.Years).
		Dur("took", s.now().Sub(started)).Msg("analysis finished")

	if s.recorder == nil {
		return
	}
	run := storage.Run{ID: out.ID, Symbols: out.Request.Symbols, Years: out.Request.Years, OK: !out.Failed(), At: started}
	if out.Failed() {
		run.Reason = out.Err.Error()
	}
	// rejected input is not a symbol anyone analyzed
	if errors.Is(out.Err, ErrInvalidRequest) {
		run.Symbols = nil
	}
	if err := s.recorder.SaveRun(run); err != nil {
		log.Error().Err(err).Str("run", out.ID).Msg("failed to record run")
	}
}
