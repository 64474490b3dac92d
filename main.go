package main

import (
	"context"
	"log/slog"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mail-reminder-bot/internal/config"
	"mail-reminder-bot/internal/dispatch"
	"mail-reminder-bot/internal/engine"
	"mail-reminder-bot/internal/gateway"
	"mail-reminder-bot/internal/gmail"
	"mail-reminder-bot/internal/mailsync"
	"mail-reminder-bot/internal/scheduler"
	"mail-reminder-bot/internal/server"
	"mail-reminder-bot/internal/storage"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(log)
	if err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Error("telegram init", "err", err)
		os.Exit(1)
	}

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Error("storage init", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	gw := gateway.NewTelegram(bot)

	// The Gmail provider is optional: without a token the bot still does
	// manual reminders, and mail endpoints answer "not configured".
	var provider mailsync.MailProvider
	if cfg.GmailTokenJSON != "" {
		client, err := gmail.New(context.Background(), cfg.GmailTokenJSON, cfg.GmailUserID)
		if err != nil {
			log.Error("gmail init", "err", err)
			os.Exit(1)
		}
		provider = client
	} else {
		log.Warn("GMAIL_OAUTH_TOKEN_JSON not set, mail sync disabled")
	}

	syncer := mailsync.New(db, provider, cfg.TrackedLabels, cfg.AllowedSenders, log)
	eng := engine.New(db, gw, syncer, cfg.Timezone, log)
	dispatcher := dispatch.New(db, gw, cfg.Timezone, log)

	sched, err := scheduler.Start(dispatcher, log)
	if err != nil {
		log.Error("scheduler init", "err", err)
		os.Exit(1)
	}
	defer func() { _ = sched.Shutdown() }()

	srv := server.New(syncer, dispatcher, gw, cfg.AllowedUserID, cfg.Timezone.String(), log)
	go func() {
		if err := srv.Router().Run(cfg.ListenAddr); err != nil {
			log.Error("http server", "err", err)
			os.Exit(1)
		}
	}()

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	log.Info("bot started", "listen", cfg.ListenAddr, "tz", cfg.Timezone.String())

	for upd := range bot.GetUpdatesChan(updateConfig) {
		switch {
		case upd.Message != nil:
			if !allowed(cfg.AllowedUserID, upd.Message.From) {
				continue // silently accepted and ignored
			}
			eng.HandleText(engine.TextMessage{
				ChatID:   upd.Message.Chat.ID,
				Text:     upd.Message.Text,
				SenderID: upd.Message.From.ID,
			})

		case upd.CallbackQuery != nil:
			cq := upd.CallbackQuery
			if !allowed(cfg.AllowedUserID, cq.From) {
				continue
			}
			ev := engine.ButtonPress{
				Token:         cq.Data,
				SenderID:      cq.From.ID,
				InteractionID: cq.ID,
			}
			if cq.Message != nil {
				ev.ChatID = cq.Message.Chat.ID
				ev.MessageID = cq.Message.MessageID
				ev.MessageText = cq.Message.Text
			}
			eng.HandleButton(ev)
		}
	}
}

func allowed(allowedID int64, from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	return allowedID == 0 || from.ID == allowedID
}
