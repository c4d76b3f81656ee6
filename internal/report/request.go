package report

import (
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"capmDashboard/internal/config"
)

// Request is one user selection: instruments and a lookback in years.
type Request struct {
	Symbols []string `validate:"required,min=1,unique,dive,candidate"`
	Years   int      `validate:"lookback"`
}

// Normalized upper-cases and trims symbols, dropping blanks.
func (r Request) Normalized() Request {
	out := Request{Years: r.Years, Symbols: make([]string, 0, len(r.Symbols))}
	for _, s := range r.Symbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out.Symbols = append(out.Symbols, s)
		}
	}
	return out
}

func newValidator(a config.AnalysisConfig) *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("candidate", func(fl validator.FieldLevel) bool {
		return slices.Contains(a.Candidates, fl.Field().String())
	})
	_ = v.RegisterValidation("lookback", func(fl validator.FieldLevel) bool {
		y := fl.Field().Int()
		return y >= 1 && y <= int64(a.MaxYears)
	})
	return v
}
