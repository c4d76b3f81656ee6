package openai

import (
	"context"
	"fmt"
	"strings"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"capmDashboard/internal/capm"
)

const systemPrompt = `You are a concise equity analyst. You receive CAPM statistics computed from daily closing prices against the S&P 500.
Explain in plain language, in at most 6 bullet points:
- which stocks move more or less than the market (beta above or below 1)
- how the CAPM expected returns compare
- which stock had the best risk-adjusted return (Sharpe) and which was most volatile
Do not give investment advice. Do not invent numbers that are not in the input. Use markdown bullets only.`

type Commentator struct {
	cli oa.Client
}

func NewCommentator(apiKey string) *Commentator {
	client := oa.NewClient(option.WithAPIKey(apiKey))
	return &Commentator{cli: client}
}

// Explain asks the model to narrate the report.
func (c *Commentator) Explain(ctx context.Context, rep *capm.Report) (string, error) {
	resp, err := c.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: "gpt-4",
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(systemPrompt),
			oa.UserMessage(describeReport(rep)),
		},
		MaxTokens: oa.Int(600),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// describeReport renders the statistics the model is allowed to talk about.
func describeReport(rep *capm.Report) string {
	var b strings.Builder
	first, last := rep.Prices.Dates[0], rep.Prices.Dates[rep.Prices.Len()-1]
	fmt.Fprintf(&b, "Period: %s to %s (%d trading days)\n", first.Format("2006-01-02"), last.Format("2006-01-02"), rep.Prices.Len())
	fmt.Fprintf(&b, "Annualized market return (%s): %.2f%%\n", rep.MarketColumn, rep.MarketReturn)
	b.WriteString("symbol | beta | alpha | expected return % | sharpe | volatility %\n")
	rows := make([]capm.Result, 0, len(rep.Order)+1)
	for _, sym := range rep.Order {
		rows = append(rows, rep.Results[sym])
	}
	rows = append(rows, rep.Market)
	for _, r := range rows {
		sharpe := "undefined"
		if r.SharpeDefined {
			sharpe = fmt.Sprintf("%.2f", r.Sharpe)
		}
		fmt.Fprintf(&b, "%s | %.2f | %.4f | %.2f | %s | %.2f\n", r.Symbol, r.Beta, r.Alpha, r.ExpectedReturn, sharpe, r.Volatility)
	}
	return b.String()
}
