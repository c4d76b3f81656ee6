package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Port      string
	DBPath    string
	LogLevel  string
	LogFormat string

	// Telegram is enabled only when both are set.
	TelegramToken    string
	WebhookPublicURL string
	// Commentary is enabled only when set.
	OpenAIKey string

	Analysis AnalysisConfig
}

// AnalysisConfig is the optional TOML file named by CAPM_CONFIG.
type AnalysisConfig struct {
	Candidates  []string `toml:"candidates"`   // symbols offered for selection
	Defaults    []string `toml:"defaults"`     // preselected symbols
	IndexSymbol string   `toml:"index_symbol"` // market index fetched alongside
	IndexColumn string   `toml:"index_column"` // column name of the index in tables
	MaxYears    int      `toml:"max_years"`
}

func DefaultAnalysis() AnalysisConfig {
	return AnalysisConfig{
		Candidates:  []string{"TSLA", "AAPL", "NFLX", "MSFT", "MGM", "AMZN", "NVDA", "GOOGL"},
		Defaults:    []string{"TSLA", "AAPL", "AMZN", "GOOGL"},
		IndexSymbol: "^GSPC",
		IndexColumn: "sp500",
		MaxYears:    500,
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Load reads .env (if present), the environment and the optional CAPM_CONFIG file.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:             envOr("PORT", "9095"),
		DBPath:           envOr("DB_PATH", "./data/capm.db"),
		LogLevel:         envOr("LOG_LEVEL", "info"),
		LogFormat:        envOr("LOG_FORMAT", "console"),
		TelegramToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		WebhookPublicURL: os.Getenv("WEBHOOK_PUBLIC_URL"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		Analysis:         DefaultAnalysis(),
	}
	if (cfg.TelegramToken == "") != (cfg.WebhookPublicURL == "") {
		return Config{}, errors.New("TELEGRAM_BOT_TOKEN and WEBHOOK_PUBLIC_URL must be set together")
	}
	if path := os.Getenv("CAPM_CONFIG"); path != "" {
		if err := loadAnalysis(path, &cfg.Analysis); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// loadAnalysis overlays the TOML file onto the defaults; absent keys keep their default.
func loadAnalysis(path string, a *AnalysisConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, a); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	a.Candidates = upperSymbols(a.Candidates)
	a.Defaults = upperSymbols(a.Defaults)
	a.IndexSymbol = strings.ToUpper(strings.TrimSpace(a.IndexSymbol))
	if len(a.Candidates) == 0 || a.IndexSymbol == "" || a.IndexColumn == "" {
		return fmt.Errorf("config %s: candidates, index_symbol and index_column must not be empty", path)
	}
	if a.MaxYears < 1 {
		return fmt.Errorf("config %s: max_years must be at least 1", path)
	}
	in := map[string]bool{}
	for _, c := range a.Candidates {
		in[c] = true
	}
	for _, d := range a.Defaults {
		if !in[d] {
			return fmt.Errorf("config %s: default %s is not a candidate", path, d)
		}
	}
	return nil
}

// upperSymbols trims and upper-cases symbols the way requests are normalized, dropping blanks.
func upperSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c Config) TelegramEnabled() bool { return c.TelegramToken != "" }
