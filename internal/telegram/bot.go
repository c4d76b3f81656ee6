package telegram

import (
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/phuslu/log"
)

type Bot struct {
	api *tgbotapi.BotAPI
	h   *Handlers
}

// NewBot connects to Telegram and points its webhook at webhookURL.
func NewBot(token, webhookURL string, runner Runner, usage UsageSource) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	webhook, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, err
	}
	if _, err := api.Request(webhook); err != nil {
		return nil, err
	}
	log.Info().Str("url", webhookURL).Str("bot", api.Self.UserName).Msg("telegram: webhook set")

	return &Bot{api: api, h: NewHandlers(api, runner, usage)}, nil
}

// WebhookHandler decodes one update and handles it in the background.
func (b *Bot) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	if update.Message == nil || update.Message.Chat == nil {
		log.Debug().Int("update", update.UpdateID).Msg("telegram: non-message update ignored")
		w.WriteHeader(http.StatusOK)
		return
	}
	log.Debug().Int64("chat", update.Message.Chat.ID).Str("text", update.Message.Text).Msg("telegram: message received")
	go b.h.HandleMessage(update.Message)
	w.WriteHeader(http.StatusOK)
}
