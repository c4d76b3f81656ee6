package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/phuslu/log"

	"capmDashboard/internal/config"
	"capmDashboard/internal/dashboard"
	"capmDashboard/internal/finance"
	"capmDashboard/internal/openai"
	"capmDashboard/internal/report"
	"capmDashboard/internal/server"
	"capmDashboard/internal/storage"
	"capmDashboard/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	config.InitLogger(cfg)

	// Ensure parent directory for the DB exists
	_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755)
	db, err := storage.OpenSQLite("file:" + cfg.DBPath + "?_fk=1")
	if err != nil {
		log.Fatal().Err(err).Msg("db: open")
	}
	defer db.Close()
	if err := storage.InitSchema(db); err != nil {
		log.Fatal().Err(err).Msg("db: schema")
	}
	log.Info().Str("path", cfg.DBPath).Msg("db: sqlite ready")
	store := storage.NewStore(db)

	opts := []report.Option{report.WithRecorder(store)}
	if cfg.OpenAIKey != "" {
		opts = append(opts, report.WithCommentator(openai.NewCommentator(cfg.OpenAIKey)))
		log.Info().Msg("commentary enabled")
	}
	svc := report.NewService(finance.NewYahoo(), cfg.Analysis, opts...)

	var webhook http.HandlerFunc
	if cfg.TelegramEnabled() {
		tg, err := telegram.NewBot(cfg.TelegramToken, cfg.WebhookPublicURL, svc, store)
		if err != nil {
			log.Fatal().Err(err).Msg("telegram: init")
		}
		webhook = tg.WebhookHandler
	}

	router := server.NewRouter(dashboard.New(svc, store), webhook)
	if err := server.ListenAndServe(ctx, ":"+cfg.Port, router); err != nil {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
}
