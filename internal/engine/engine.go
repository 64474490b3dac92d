// Package engine is the per-chat state machine that turns chat messages
// and button presses into reminder store writes.
package engine

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"mail-reminder-bot/internal/action"
	"mail-reminder-bot/internal/cards"
	"mail-reminder-bot/internal/gateway"
	"mail-reminder-bot/internal/models"
	"mail-reminder-bot/internal/offsets"
	"mail-reminder-bot/internal/storage"
)

// customLayout is the only accepted custom datetime format:
// DD/MM/YYYY HH:MM, 24-hour clock, in the configured timezone.
const customLayout = "02/01/2006 15:04"

// MailLookup re-fetches message metadata when an email reminder is
// created from a card pressed long after the original sync pass.
type MailLookup interface {
	MessageMeta(id string) (models.MailMessage, error)
}

// TextMessage is an inbound chat text event.
type TextMessage struct {
	ChatID   int64
	Text     string
	SenderID int64
}

// ButtonPress is an inbound callback event. MessageText carries the
// current text of the message the button sits on, so edits can append
// to it without a re-fetch.
type ButtonPress struct {
	ChatID        int64
	MessageID     int
	MessageText   string
	Token         string
	SenderID      int64
	InteractionID string
}

type Engine struct {
	store  storage.ReminderStore
	gw     gateway.NotificationGateway
	mail   MailLookup
	states *stateStore
	loc    *time.Location
	log    *slog.Logger

	now func() time.Time // overridable in tests
}

func New(store storage.ReminderStore, gw gateway.NotificationGateway, mail MailLookup, loc *time.Location, log *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		gw:     gw,
		mail:   mail,
		states: newStateStore(),
		loc:    loc,
		log:    log,
		now:    time.Now,
	}
}

// ---------- text events -----------------------------------------------------

func (e *Engine) HandleText(ev TextMessage) {
	if ev.ChatID == 0 {
		return
	}
	text := strings.TrimSpace(ev.Text)

	switch text {
	case "/start":
		e.send(ev.ChatID, textGreeting, nil)
		return
	case "/new":
		e.states.withChat(ev.ChatID, func(st *models.ConversationState) {
			*st = models.ConversationState{Kind: models.StateAwaitingDescription}
		})
		e.send(ev.ChatID, textAskDescription, nil)
		return
	}

	e.states.withChat(ev.ChatID, func(st *models.ConversationState) {
		switch st.Kind {
		case models.StateAwaitingDescription:
			if text == "" {
				e.send(ev.ChatID, textAskDescAgain, nil)
				return
			}
			*st = models.ConversationState{
				Kind:        models.StateAwaitingOffset,
				Description: text,
			}
			e.send(ev.ChatID, textAskOffset, cards.ManualOffsetControls())

		case models.StateAwaitingCustomDatetime:
			e.handleCustomDatetime(ev.ChatID, text, st)
		}
		// Idle and awaitingOffset ignore free text.
	})
}

func (e *Engine) handleCustomDatetime(chatID int64, text string, st *models.ConversationState) {
	due, err := time.ParseInLocation(customLayout, text, e.loc)
	if err != nil {
		e.send(chatID, textBadCustomFormat, nil)
		return // stay in state, let the user retry
	}

	switch st.Mode {
	case models.CustomManual:
		r := e.newManualReminder(chatID, st.Description, due)
		if err := e.store.CreateReminder(r); err != nil {
			e.log.Error("create reminder failed", "err", err, "chat_id", chatID)
			e.send(chatID, textStoreFailure, nil)
			*st = models.ConversationState{}
			return
		}
		e.edit(chatID, st.CardMessageID, e.confirmText(st.Description, due), nil)
		e.edit(chatID, st.PromptMsgID, textCustomAccepted, nil)
		*st = models.ConversationState{}

	case models.CustomEmail:
		meta, err := e.mail.MessageMeta(st.MailMessageID)
		if err != nil {
			e.log.Error("mail lookup failed", "err", err, "mail_message_id", st.MailMessageID)
			e.send(chatID, textStoreFailure, nil)
			*st = models.ConversationState{}
			return
		}
		r := e.newEmailReminder(chatID, meta, due)
		if err := e.store.CreateReminder(r); err != nil {
			e.log.Error("create reminder failed", "err", err, "chat_id", chatID)
			e.send(chatID, textStoreFailure, nil)
			*st = models.ConversationState{}
			return
		}
		e.edit(chatID, st.CardMessageID,
			st.CardText+"\n\n"+e.confirmText("", due), nil)
		e.edit(chatID, st.PromptMsgID, textCustomAccepted, nil)
		*st = models.ConversationState{}

	case models.CustomSnooze:
		ok, err := e.store.UpdateDueAt(st.ReminderID, due)
		if err != nil {
			e.log.Error("snooze update failed", "err", err, "reminder_id", st.ReminderID)
			e.send(chatID, textStoreFailure, nil)
			*st = models.ConversationState{}
			return
		}
		if !ok {
			e.send(chatID, textReminderGone, nil)
			*st = models.ConversationState{}
			return
		}
		e.edit(chatID, st.CardMessageID,
			st.CardText+"\n\n😴 Snoozed until "+due.In(e.loc).Format(customLayout), nil)
		e.edit(chatID, st.PromptMsgID, textCustomAccepted, nil)
		*st = models.ConversationState{}
	}
}

// ---------- button events ---------------------------------------------------

// HandleButton processes one callback. The interaction is always
// acknowledged exactly once, whatever the outcome, so the client never
// sticks on its loading indicator.
func (e *Engine) HandleButton(ev ButtonPress) {
	ack, prominent := "", false
	defer func() {
		if ev.InteractionID == "" {
			return
		}
		if err := e.gw.AcknowledgeInteraction(ev.InteractionID, ack, prominent); err != nil {
			e.log.Warn("ack failed", "err", err)
		}
	}()

	if ev.ChatID == 0 || ev.MessageID == 0 {
		return
	}

	act := action.Decode(ev.Token)
	switch act.Kind {
	case action.ManualOffset:
		ack = e.onManualOffset(ev, act)
	case action.EmailAction:
		ack = e.onEmailAction(ev, act)
	case action.EmailOffset:
		ack = e.onEmailOffset(ev, act)
	case action.ReminderExtend:
		ack = e.onReminderExtend(ev, act)
	case action.ReminderComplete:
		ack = e.onReminderComplete(ev, act)
	case action.CustomCancel:
		ack = e.onCustomCancel(ev)
	default:
		ack = textInvalidAction
	}
}

func (e *Engine) onManualOffset(ev ButtonPress, act action.Action) string {
	var ack string
	e.states.withChat(ev.ChatID, func(st *models.ConversationState) {
		if st.Kind != models.StateAwaitingOffset {
			ack = textNothingToDo
			return
		}
		if act.OffsetKey == offsets.KeyCustom {
			desc := st.Description
			promptID, err := e.gw.Send(ev.ChatID, textAskCustom, cancelControls())
			if err != nil {
				e.log.Error("send custom prompt failed", "err", err)
				ack = textTransientFailure
				return // keep awaitingOffset so the buttons still work
			}
			*st = models.ConversationState{
				Kind:          models.StateAwaitingCustomDatetime,
				Mode:          models.CustomManual,
				Description:   desc,
				CardMessageID: ev.MessageID,
				PromptMsgID:   promptID,
			}
			return
		}

		d, ok := offsets.Resolve(act.OffsetKey)
		if !ok {
			ack = textUnknownOption
			return
		}
		due := e.now().Add(d)
		r := e.newManualReminder(ev.ChatID, st.Description, due)
		if err := e.store.CreateReminder(r); err != nil {
			e.log.Error("create reminder failed", "err", err, "chat_id", ev.ChatID)
			ack = textTransientFailure
			return // state stays, the user may retry
		}
		e.edit(ev.ChatID, ev.MessageID, e.confirmText(st.Description, due), nil)
		*st = models.ConversationState{}
	})
	return ack
}

func (e *Engine) onEmailAction(ev ButtonPress, act action.Action) string {
	switch act.Verb {
	case action.VerbSet:
		e.edit(ev.ChatID, ev.MessageID, ev.MessageText,
			cards.EmailOffsetControls(act.MailMessageID))
	case action.VerbDone:
		e.edit(ev.ChatID, ev.MessageID, ev.MessageText+"\n\n"+textNoEmailReminder, nil)
	}
	return ""
}

func (e *Engine) onEmailOffset(ev ButtonPress, act action.Action) string {
	if act.OffsetKey == offsets.KeyCustom {
		var ack string
		e.states.withChat(ev.ChatID, func(st *models.ConversationState) {
			promptID, err := e.gw.Send(ev.ChatID, textAskCustom, cancelControls())
			if err != nil {
				e.log.Error("send custom prompt failed", "err", err)
				ack = textTransientFailure
				return
			}
			*st = models.ConversationState{
				Kind:          models.StateAwaitingCustomDatetime,
				Mode:          models.CustomEmail,
				MailMessageID: act.MailMessageID,
				CardText:      ev.MessageText,
				CardMessageID: ev.MessageID,
				PromptMsgID:   promptID,
			}
		})
		return ack
	}

	d, ok := offsets.Resolve(act.OffsetKey)
	if !ok {
		return textUnknownOption
	}
	meta, err := e.mail.MessageMeta(act.MailMessageID)
	if err != nil {
		e.log.Error("mail lookup failed", "err", err, "mail_message_id", act.MailMessageID)
		return textTransientFailure
	}
	due := e.now().Add(d)
	if err := e.store.CreateReminder(e.newEmailReminder(ev.ChatID, meta, due)); err != nil {
		e.log.Error("create reminder failed", "err", err, "chat_id", ev.ChatID)
		return textTransientFailure
	}
	e.edit(ev.ChatID, ev.MessageID, ev.MessageText+"\n\n"+e.confirmText("", due), nil)
	return ""
}

func (e *Engine) onReminderExtend(ev ButtonPress, act action.Action) string {
	if act.OffsetKey == offsets.KeyCustom {
		var ack string
		e.states.withChat(ev.ChatID, func(st *models.ConversationState) {
			promptID, err := e.gw.Send(ev.ChatID, textAskCustom, cancelControls())
			if err != nil {
				e.log.Error("send custom prompt failed", "err", err)
				ack = textTransientFailure
				return
			}
			*st = models.ConversationState{
				Kind:          models.StateAwaitingCustomDatetime,
				Mode:          models.CustomSnooze,
				ReminderID:    act.ReminderID,
				CardText:      ev.MessageText,
				CardMessageID: ev.MessageID,
				PromptMsgID:   promptID,
			}
		})
		return ack
	}

	d, ok := offsets.Resolve(act.OffsetKey)
	if !ok {
		return textUnknownOption
	}
	due := e.now().Add(d)
	updated, err := e.store.UpdateDueAt(act.ReminderID, due)
	if err != nil {
		e.log.Error("snooze update failed", "err", err, "reminder_id", act.ReminderID)
		return textTransientFailure
	}
	if !updated {
		return textReminderGone
	}
	e.edit(ev.ChatID, ev.MessageID,
		ev.MessageText+"\n\n😴 Snoozed until "+due.In(e.loc).Format(customLayout), nil)
	return ""
}

func (e *Engine) onReminderComplete(ev ButtonPress, act action.Action) string {
	deleted, err := e.store.DeleteReminder(act.ReminderID)
	if err != nil {
		e.log.Error("delete reminder failed", "err", err, "reminder_id", act.ReminderID)
		return textTransientFailure
	}
	if !deleted {
		// Already gone: acknowledge without touching the card.
		return textReminderGone
	}
	e.edit(ev.ChatID, ev.MessageID, ev.MessageText+"\n\n✅ Completed", nil)
	return ""
}

func (e *Engine) onCustomCancel(ev ButtonPress) string {
	var ack string
	e.states.withChat(ev.ChatID, func(st *models.ConversationState) {
		if st.Kind != models.StateAwaitingCustomDatetime {
			ack = textNothingToDo
			return
		}
		e.edit(ev.ChatID, ev.MessageID, textCustomCancelled, nil)
		if st.Mode == models.CustomManual {
			// The original offset keyboard is still on screen; make its
			// buttons work again.
			*st = models.ConversationState{
				Kind:        models.StateAwaitingOffset,
				Description: st.Description,
			}
			return
		}
		*st = models.ConversationState{}
	})
	return ack
}

// ---------- helpers ---------------------------------------------------------

func (e *Engine) newManualReminder(chatID int64, description string, due time.Time) models.Reminder {
	return models.Reminder{
		ID:          uuid.NewString(),
		SourceType:  models.SourceManual,
		Description: description,
		ChatID:      chatID,
		DueAt:       due,
		Status:      models.StatusPending,
	}
}

func (e *Engine) newEmailReminder(chatID int64, m models.MailMessage, due time.Time) models.Reminder {
	recipient := m.Recipient
	if m.OriginalRecipient != "" {
		recipient = m.OriginalRecipient
	}
	return models.Reminder{
		ID:            uuid.NewString(),
		SourceType:    models.SourceEmail,
		MailMessageID: m.ID,
		Subject:       m.Subject,
		Sender:        m.Sender,
		Recipient:     recipient,
		ChatID:        chatID,
		DueAt:         due,
		Status:        models.StatusPending,
	}
}

func (e *Engine) confirmText(what string, due time.Time) string {
	s := fmt.Sprintf("✅ Reminder set for %s", due.In(e.loc).Format(customLayout))
	if what != "" {
		s += "\n" + what
	}
	return s
}

func cancelControls() gateway.Controls {
	return gateway.Row(gateway.Button{Label: "Cancel", Token: action.CustomCancelToken()})
}

func (e *Engine) send(chatID int64, text string, controls gateway.Controls) {
	if _, err := e.gw.Send(chatID, text, controls); err != nil {
		e.log.Error("send failed", "err", err, "chat_id", chatID)
	}
}

func (e *Engine) edit(chatID int64, messageID int, text string, controls gateway.Controls) {
	if messageID == 0 {
		return
	}
	if err := e.gw.Edit(chatID, messageID, text, controls); err != nil {
		e.log.Warn("edit failed", "err", err, "chat_id", chatID, "message_id", messageID)
	}
}
