package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"PORT", "DB_PATH", "LOG_LEVEL", "LOG_FORMAT", "TELEGRAM_BOT_TOKEN", "WEBHOOK_PUBLIC_URL", "OPENAI_API_KEY", "CAPM_CONFIG"} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9095", cfg.Port)
	assert.Equal(t, "./data/capm.db", cfg.DBPath)
	assert.False(t, cfg.TelegramEnabled())
	assert.Equal(t, DefaultAnalysis(), cfg.Analysis)
	assert.Equal(t, "sp500", cfg.Analysis.IndexColumn)
}

func TestLoad_TelegramPair(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "x")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("WEBHOOK_PUBLIC_URL", "https://example.org/telegram/webhook")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.TelegramEnabled())
}

func TestLoad_AnalysisFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "capm.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
candidates = ["SPY", "QQQ"]
defaults = ["QQQ"]
`), 0o644))
	t.Setenv("CAPM_CONFIG", path)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"SPY", "QQQ"}, cfg.Analysis.Candidates)
	assert.Equal(t, []string{"QQQ"}, cfg.Analysis.Defaults)
	assert.Equal(t, "^GSPC", cfg.Analysis.IndexSymbol)

	require.NoError(t, os.WriteFile(path, []byte(`candidates = ["SPY"]
defaults = ["AAPL"]
`), 0o644))
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_AnalysisFileNormalizesSymbols(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "capm.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
candidates = [" spy", "qqq ", ""]
defaults = ["spy"]
index_symbol = "^gspc"
`), 0o644))
	t.Setenv("CAPM_CONFIG", path)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"SPY", "QQQ"}, cfg.Analysis.Candidates)
	assert.Equal(t, []string{"SPY"}, cfg.Analysis.Defaults)
	assert.Equal(t, "^GSPC", cfg.Analysis.IndexSymbol)
}
