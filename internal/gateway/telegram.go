package gateway

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram implements NotificationGateway over the Bot API.
type Telegram struct {
	Bot *tgbotapi.BotAPI
}

var _ NotificationGateway = (*Telegram)(nil)

func NewTelegram(bot *tgbotapi.BotAPI) *Telegram {
	return &Telegram{Bot: bot}
}

func (t *Telegram) Send(chatID int64, text string, controls Controls) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if kb, ok := inlineKeyboard(controls); ok {
		msg.ReplyMarkup = kb
	}
	sent, err := t.Bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (t *Telegram) Edit(chatID int64, messageID int, text string, controls Controls) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if kb, ok := inlineKeyboard(controls); ok {
		edit.ReplyMarkup = &kb
	}
	// Editing without reply_markup drops the old keyboard, which is what
	// terminal card states rely on.
	_, err := t.Bot.Send(edit)
	return err
}

func (t *Telegram) AcknowledgeInteraction(interactionID, text string, prominent bool) error {
	cb := tgbotapi.NewCallback(interactionID, text)
	cb.ShowAlert = prominent
	_, err := t.Bot.Request(cb)
	return err
}

func inlineKeyboard(controls Controls) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(controls) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, row := range controls {
		var btns []tgbotapi.InlineKeyboardButton
		for _, b := range row {
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Token))
		}
		rows = append(rows, btns)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}
