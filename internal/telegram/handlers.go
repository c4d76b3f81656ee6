package telegram

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/phuslu/log"

	"capmDashboard/internal/config"
	"capmDashboard/internal/finance"
	"capmDashboard/internal/report"
	"capmDashboard/internal/storage"
)

const (
	usageDays  = 30
	recentRuns = 10
	runTimeout = 2 * time.Minute
)

var (
	// /capm [S1 S2 ...] [years]
	reCapm  = regexp.MustCompile(`^/capm(?:@[\w_]+)?(?:\s+([A-Za-z0-9\.^_=+\-\s]*))?$`)
	reUsage = regexp.MustCompile(`^/usage(?:@[\w_]+)?$`)
	reRuns  = regexp.MustCompile(`^/runs(?:@[\w_]+)?$`)
	reHelp  = regexp.MustCompile(`^/(help|start)(?:@[\w_]+)?$`)
	reYears = regexp.MustCompile(`^\d+$`)
)

// Sender is the part of the Bot API the handlers use.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Runner interface {
	Run(ctx context.Context, req report.Request) report.Outcome
	Analysis() config.AnalysisConfig
}

// UsageSource is the run audit log.
type UsageSource interface {
	SymbolUsage(since time.Time) ([]storage.SymbolUsage, error)
	RecentRuns(limit int) ([]storage.Run, error)
}

type Handlers struct {
	api    Sender
	runner Runner
	usage  UsageSource
}

func NewHandlers(api Sender, runner Runner, usage UsageSource) *Handlers {
	return &Handlers{api: api, runner: runner, usage: usage}
}

// parseCapmCommand reads "/capm S1 S2 ... [years]". Missing symbols fall back
// to defaults and a missing year count to one; range checks are left to the run.
func parseCapmCommand(txt string, defaults []string) (report.Request, bool) {
	g := reCapm.FindStringSubmatch(txt)
	if g == nil {
		return report.Request{}, false
	}
	fields := strings.Fields(g[1])
	req := report.Request{Years: 1}
	if n := len(fields); n > 0 && reYears.MatchString(fields[n-1]) {
		y, err := strconv.Atoi(fields[n-1])
		if err != nil {
			y = 0
		}
		req.Years = y
		fields = fields[:n-1]
	}
	if len(fields) == 0 {
		req.Symbols = append([]string(nil), defaults...)
	} else {
		req.Symbols = fields
	}
	return req, true
}

func (h *Handlers) HandleMessage(m *tgbotapi.Message) {
	if m == nil || m.Chat == nil {
		return
	}
	txt := strings.TrimSpace(m.Text)
	switch {
	case reHelp.MatchString(txt):
		h.handleHelp(m.Chat.ID)
	case reUsage.MatchString(txt):
		h.handleUsage(m.Chat.ID)
	case reRuns.MatchString(txt):
		h.handleRuns(m.Chat.ID)
	default:
		if req, ok := parseCapmCommand(txt, h.runner.Analysis().Defaults); ok {
			h.handleCapm(m.Chat.ID, req)
		}
	}
}

func (h *Handlers) handleCapm(chatID int64, req report.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	out := h.runner.Run(ctx, req)
	if out.Failed() {
		log.Warn().Int64("chat", chatID).Str("run", out.ID).Err(out.Err).Msg("telegram: analysis failed")
		h.reply(chatID, out.Message())
		return
	}
	v := out.View

	msg := tgbotapi.NewMessage(chatID, formatView(v))
	msg.ParseMode = tgbotapi.ModeMarkdown
	h.send(msg)

	name := strings.Join(out.Request.Symbols, "_")
	for _, p := range []struct {
		suffix, caption string
		img             []byte
	}{
		{"prices", "Price of all the Stocks", v.PriceChart},
		{"normalized", "Price of all the Stocks After Normalization", v.NormalizedChart},
		{"cumulative", "Cumulative Returns", v.CumulativeChart},
	} {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name + "_" + p.suffix + ".png", Bytes: p.img})
		photo.Caption = p.caption
		h.send(photo)
	}

	if v.Commentary != "" {
		// plain text; legacy Markdown rejects unbalanced ** and _
		h.reply(chatID, v.Commentary)
	}
}

// formatView lays the tables out in one monospace block.
func formatView(v *report.View) string {
	var b strings.Builder
	b.WriteString("```\n")
	writeGrid(&b, "DataFrame head", v.Head)
	writeGrid(&b, "DataFrame tail", v.Tail)
	writeRows(&b, "Beta Value", v.Beta)
	writeRows(&b, "Return Value", v.ExpectedReturn)
	writeRows(&b, "Sharpe Ratio", v.Sharpe)
	writeRows(&b, "Volatility", v.Volatility)
	b.WriteString("```")
	return b.String()
}

func writeGrid(b *strings.Builder, title string, g report.Grid) {
	b.WriteString(title + "\n")
	tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, strings.Join(g.Columns, "\t")+"\t")
	for _, r := range g.Rows {
		fmt.Fprintln(tw, strings.Join(r, "\t")+"\t")
	}
	tw.Flush()
	b.WriteString("\n")
}

func writeRows(b *strings.Builder, label string, rows []report.Row) {
	tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Stock\t%s\n", label)
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r.Stock, r.Value)
	}
	tw.Flush()
	b.WriteString("\n")
}

func (h *Handlers) handleUsage(chatID int64) {
	if h.usage == nil {
		h.reply(chatID, "Usage statistics are not available.")
		return
	}
	usage, err := h.usage.SymbolUsage(time.Now().AddDate(0, 0, -usageDays))
	if err != nil {
		log.Error().Err(err).Msg("telegram: usage query")
		h.reply(chatID, "Usage statistics are not available.")
		return
	}
	text := finance.FormatUsageText(usage, usageDays)
	img, err := finance.MakeUsageChart(usage, usageDays)
	if err != nil {
		h.reply(chatID, text)
		return
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "usage.png", Bytes: img})
	photo.Caption = text
	h.send(photo)
}

func (h *Handlers) handleRuns(chatID int64) {
	if h.usage == nil {
		h.reply(chatID, "Usage statistics are not available.")
		return
	}
	runs, err := h.usage.RecentRuns(recentRuns)
	if err != nil {
		log.Error().Err(err).Msg("telegram: recent runs query")
		h.reply(chatID, "Usage statistics are not available.")
		return
	}
	if len(runs) == 0 {
		h.reply(chatID, "No analyses yet.")
		return
	}
	var b strings.Builder
	b.WriteString("Recent analyses\n")
	for _, r := range runs {
		status := "ok"
		if !r.OK {
			status = "failed"
		}
		fmt.Fprintf(&b, "%s  %s  %dy  %s\n", r.At.UTC().Format("2006-01-02 15:04"), strings.Join(r.Symbols, " "), r.Years, status)
	}
	h.reply(chatID, b.String())
}

func (h *Handlers) handleHelp(chatID int64) {
	a := h.runner.Analysis()
	help := "Commands\n\n" +
		"- /capm [S1 S2 ...] [years] - CAPM beta, expected return, Sharpe ratio and volatility against the S&P 500\n" +
		"- /usage - Most analyzed symbols over the last 30 days\n" +
		"- /runs - The last 10 analyses\n" +
		"- /help - This message\n" +
		fmt.Sprintf("\nSymbols: %s. Default: %s, 1 year (max %d).",
			strings.Join(a.Candidates, " "), strings.Join(a.Defaults, " "), a.MaxYears)
	h.reply(chatID, help)
}

func (h *Handlers) reply(chatID int64, text string) {
	h.send(tgbotapi.NewMessage(chatID, text))
}

func (h *Handlers) send(c tgbotapi.Chattable) {
	if _, err := h.api.Send(c); err != nil {
		log.Error().Err(err).Msg("telegram: send failed")
	}
}
