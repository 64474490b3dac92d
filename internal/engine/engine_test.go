package engine

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mail-reminder-bot/internal/action"
	"mail-reminder-bot/internal/gateway"
	"mail-reminder-bot/internal/models"
)

// ---------- fakes -----------------------------------------------------------

type fakeStore struct {
	reminders  map[string]models.Reminder
	createErr  error
	updateErr  error
	deleteErr  error
	lastStatus models.Status
}

func newFakeStore() *fakeStore {
	return &fakeStore{reminders: make(map[string]models.Reminder)}
}

func (f *fakeStore) CreateReminder(r models.Reminder) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.reminders[r.ID] = r
	return nil
}

func (f *fakeStore) ListReminders() ([]models.Reminder, error) {
	var out []models.Reminder
	for _, r := range f.reminders {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStore) ListDue(now time.Time) ([]models.Reminder, error) {
	var out []models.Reminder
	for _, r := range f.reminders {
		if r.Status == models.StatusPending && !r.DueAt.After(now) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateDueAt(id string, due time.Time) (bool, error) {
	if f.updateErr != nil {
		return false, f.updateErr
	}
	r, ok := f.reminders[id]
	if !ok {
		return false, nil
	}
	r.DueAt = due
	r.Status = models.StatusPending
	f.reminders[id] = r
	return true, nil
}

func (f *fakeStore) UpdateStatus(id string, status models.Status) (bool, error) {
	r, ok := f.reminders[id]
	if !ok {
		return false, nil
	}
	r.Status = status
	f.reminders[id] = r
	f.lastStatus = status
	return true, nil
}

func (f *fakeStore) DeleteReminder(id string) (bool, error) {
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	if _, ok := f.reminders[id]; !ok {
		return false, nil
	}
	delete(f.reminders, id)
	return true, nil
}

func (f *fakeStore) ReadConfigValue(string) (string, bool, error) { return "", false, nil }
func (f *fakeStore) WriteConfigValue(string, string) error        { return nil }

func (f *fakeStore) only(t *testing.T) models.Reminder {
	t.Helper()
	require.Len(t, f.reminders, 1)
	for _, r := range f.reminders {
		return r
	}
	panic("unreachable")
}

type sentMsg struct {
	chatID   int64
	text     string
	controls gateway.Controls
}

type editMsg struct {
	chatID    int64
	messageID int
	text      string
	controls  gateway.Controls
}

type fakeGateway struct {
	sent    []sentMsg
	edits   []editMsg
	acks    []string
	sendErr error
	nextID  int
}

func (f *fakeGateway) Send(chatID int64, text string, controls gateway.Controls) (int, error) {
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.nextID++
	f.sent = append(f.sent, sentMsg{chatID, text, controls})
	return f.nextID, nil
}

func (f *fakeGateway) Edit(chatID int64, messageID int, text string, controls gateway.Controls) error {
	f.edits = append(f.edits, editMsg{chatID, messageID, text, controls})
	return nil
}

func (f *fakeGateway) AcknowledgeInteraction(_, text string, _ bool) error {
	f.acks = append(f.acks, text)
	return nil
}

type fakeMail struct {
	meta models.MailMessage
	err  error
}

func (f *fakeMail) MessageMeta(id string) (models.MailMessage, error) {
	if f.err != nil {
		return models.MailMessage{}, f.err
	}
	m := f.meta
	m.ID = id
	return m, nil
}

// ---------- harness ---------------------------------------------------------

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestEngine(store *fakeStore, gw *fakeGateway, mail *fakeMail) *Engine {
	if mail == nil {
		mail = &fakeMail{}
	}
	e := New(store, gw, mail, time.UTC, slog.New(slog.DiscardHandler))
	e.now = func() time.Time { return t0 }
	return e
}

const chat = int64(42)

func press(e *Engine, token string, messageID int, text string) {
	e.HandleButton(ButtonPress{
		ChatID:        chat,
		MessageID:     messageID,
		MessageText:   text,
		Token:         token,
		SenderID:      chat,
		InteractionID: "cb1",
	})
}

// runs /new → description, leaving the chat in awaitingOffset.
func startManualFlow(e *Engine, description string) {
	e.HandleText(TextMessage{ChatID: chat, Text: "/new", SenderID: chat})
	e.HandleText(TextMessage{ChatID: chat, Text: description, SenderID: chat})
}

// ---------- tests -----------------------------------------------------------

func TestStartGreetsWithoutStateChange(t *testing.T) {
	store, gw := newFakeStore(), &fakeGateway{}
	e := newTestEngine(store, gw, nil)

	e.HandleText(TextMessage{ChatID: chat, Text: "/start", SenderID: chat})

	require.Len(t, gw.sent, 1)
	assert.Equal(t, models.StateIdle, e.states.peek(chat).Kind)
}

func TestManualFlowFixedOffset(t *testing.T) {
	store, gw := newFakeStore(), &fakeGateway{}
	e := newTestEngine(store, gw, nil)

	startManualFlow(e, "pay rent")
	require.Equal(t, models.StateAwaitingOffset, e.states.peek(chat).Kind)
	require.Equal(t, "pay rent", e.states.peek(chat).Description)

	press(e, action.ManualOffsetToken("1d"), 10, "When should I remind you?")

	r := store.only(t)
	assert.Equal(t, models.SourceManual, r.SourceType)
	assert.Equal(t, "pay rent", r.Description)
	assert.Equal(t, t0.Add(24*time.Hour), r.DueAt)
	assert.Equal(t, models.StatusPending, r.Status)
	assert.Equal(t, chat, r.ChatID)

	assert.Equal(t, models.StateIdle, e.states.peek(chat).Kind)
	require.Len(t, gw.edits, 1)
	assert.Nil(t, gw.edits[0].controls)
}

func TestEmptyDescriptionReprompts(t *testing.T) {
	store, gw := newFakeStore(), &fakeGateway{}
	e := newTestEngine(store, gw, nil)

	e.HandleText(TextMessage{ChatID: chat, Text: "/new", SenderID: chat})
	e.HandleText(TextMessage{ChatID: chat, Text: "   ", SenderID: chat})

	assert.Equal(t, models.StateAwaitingDescription, e.states.peek(chat).Kind)
}

func TestManualOffsetStoreFailureKeepsState(t *testing.T) {
	store, gw := newFakeStore(), &fakeGateway{}
	store.createErr = errors.New("sheet unavailable")
	e := newTestEngine(store, gw, nil)

	startManualFlow(e, "pay rent")
	press(e, action.ManualOffsetToken("1h"), 10, "")

	// State survives so the user can press again.
	assert.Equal(t, models.StateAwaitingOffset, e.states.peek(chat).Kind)
	assert.Empty(t, store.reminders)
	require.NotEmpty(t, gw.acks)
	assert.Equal(t, textTransientFailure, gw.acks[len(gw.acks)-1])

	store.createErr = nil
	press(e, action.ManualOffsetToken("1h"), 10, "")
	assert.Len(t, store.reminders, 1)
}

func TestCustomDatetimeParsing(t *testing.T) {
	store, gw := newFakeStore(), &fakeGateway{}
	e := newTestEngine(store, gw, nil)

	startManualFlow(e, "renew passport")
	press(e, action.ManualOffsetToken("custom"), 10, "")
	require.Equal(t, models.StateAwaitingCustomDatetime, e.states.peek(chat).Kind)

	for _, bad := range []string{"2025-12-25 14:30", "25/12/2025", "32/01/2025 10:00"} {
		e.HandleText(TextMessage{ChatID: chat, Text: bad, SenderID: chat})
		assert.Equal(t, models.StateAwaitingCustomDatetime, e.states.peek(chat).Kind, "input %q", bad)
		assert.Empty(t, store.reminders, "input %q", bad)
	}

	e.HandleText(TextMessage{ChatID: chat, Text: "25/12/2025 14:30", SenderID: chat})

	r := store.only(t)
	assert.Equal(t, time.Date(2025, 12, 25, 14, 30, 0, 0, time.UTC), r.DueAt)
	assert.Equal(t, models.StateIdle, e.states.peek(chat).Kind)
}

func TestCustomCancelRestoresOffsetChoice(t *testing.T) {
	store, gw := newFakeStore(), &fakeGateway{}
	e := newTestEngine(store, gw, nil)

	startManualFlow(e, "water plants")
	press(e, action.ManualOffsetToken("custom"), 10, "")
	press(e, action.CustomCancelToken(), 11, "")

	st := e.states.peek(chat)
	require.Equal(t, models.StateAwaitingOffset, st.Kind)
	assert.Equal(t, "water plants", st.Description)

	// The original choice set works again.
	press(e, action.ManualOffsetToken("3d"), 10, "")
	r := store.only(t)
	assert.Equal(t, "water plants", r.Description)
	assert.Equal(t, t0.Add(3*24*time.Hour), r.DueAt)
}

func TestEmailCardSetAndDone(t *testing.T) {
	store, gw := newFakeStore(), &fakeGateway{}
	e := newTestEngine(store, gw, nil)

	press(e, action.EmailActionToken(action.VerbSet, "m1"), 20, "📧 New email")
	require.Len(t, gw.edits, 1)
	assert.NotNil(t, gw.edits[0].controls) // offset keyboard swapped in
	assert.Equal(t, models.StateIdle, e.states.peek(chat).Kind)

	press(e, action.EmailActionToken(action.VerbDone, "m1"), 20, "📧 New email")
	require.Len(t, gw.edits, 2)
	assert.Nil(t, gw.edits[1].controls)
	assert.Contains(t, gw.edits[1].text, textNoEmailReminder)
	assert.Empty(t, store.reminders)
}

func TestEmailFixedOffsetCreatesReminder(t *testing.T) {
	store, gw := newFakeStore(), &fakeGateway{}
	mail := &fakeMail{meta: models.MailMessage{
		Subject:           "Invoice",
		Sender:            "Alice <alice@example.com>",
		Recipient:         "bot@example.com",
		OriginalRecipient: "me@example.com",
	}}
	e := newTestEngine(store, gw, mail)

	press(e, action.EmailOffsetToken("1w", "m1"), 20, "📧 New email")

	r := store.only(t)
	assert.Equal(t, models.SourceEmail, r.SourceType)
	assert.Equal(t, "m1", r.MailMessageID)
	assert.Equal(t, "Invoice", r.Subject)
	assert.Equal(t, "me@example.com", r.Recipient) // original recipient wins
	assert.Equal(t, t0.Add(7*24*time.Hour), r.DueAt)
}

func TestEmailCustomDatetimeFlow(t *testing.T) {
	store, gw := newFakeStore(), &fakeGateway{}
	mail := &fakeMail{meta: models.MailMessage{Subject: "Invoice", Sender: "a@b.c"}}
	e := newTestEngine(store, gw, mail)

	press(e, action.EmailOffsetToken("custom", "m1"), 20, "📧 New email")
	require.Equal(t, models.StateAwaitingCustomDatetime, e.states.peek(chat).Kind)
	require.Equal(t, models.CustomEmail, e.states.peek(chat).Mode)

	e.HandleText(TextMessage{ChatID: chat, Text: "01/07/2025 08:00", SenderID: chat})

	r := store.only(t)
	assert.Equal(t, "m1", r.MailMessageID)
	assert.Equal(t, models.StateIdle, e.states.peek(chat).Kind)
	// Original card got the confirmation appended, prompt got the notice.
	require.Len(t, gw.edits, 2)
	assert.Contains(t, gw.edits[0].text, "📧 New email")
	assert.Contains(t, gw.edits[0].text, "Reminder set")
}

func TestSnoozeCustomDatetime(t *testing.T) {
	store, gw := newFakeStore(), &fakeGateway{}
	e := newTestEngine(store, gw, nil)
	store.reminders["r1"] = models.Reminder{
		ID: "r1", SourceType: models.SourceManual, Status: models.StatusNotified, ChatID: chat,
	}

	press(e, action.ReminderExtendToken("custom", "r1"), 30, "⏰ Reminder")
	e.HandleText(TextMessage{ChatID: chat, Text: "02/06/2025 10:00", SenderID: chat})

	r := store.reminders["r1"]
	assert.Equal(t, models.StatusPending, r.Status)
	assert.Equal(t, time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC), r.DueAt)
	assert.Equal(t, models.StateIdle, e.states.peek(chat).Kind)
}

func TestReminderExtendFixed(t *testing.T) {
	store, gw := newFakeStore(), &fakeGateway{}
	e := newTestEngine(store, gw, nil)
	store.reminders["r1"] = models.Reminder{
		ID: "r1", Status: models.StatusNotified, ChatID: chat,
	}

	press(e, action.ReminderExtendToken("1h", "r1"), 30, "⏰ Reminder")

	r := store.reminders["r1"]
	assert.Equal(t, models.StatusPending, r.Status)
	assert.Equal(t, t0.Add(time.Hour), r.DueAt)
	require.Len(t, gw.edits, 1)
	assert.Contains(t, gw.edits[0].text, "Snoozed")
}

func TestCompleteDeletesReminder(t *testing.T) {
	store, gw := newFakeStore(), &fakeGateway{}
	e := newTestEngine(store, gw, nil)
	store.reminders["r1"] = models.Reminder{ID: "r1", ChatID: chat}

	press(e, action.ReminderCompleteToken("r1"), 30, "⏰ Reminder")

	assert.Empty(t, store.reminders)
	require.Len(t, gw.edits, 1)
	assert.Contains(t, gw.edits[0].text, "Completed")
}

func TestCompleteNotFoundAcknowledgesWithoutEdit(t *testing.T) {
	store, gw := newFakeStore(), &fakeGateway{}
	e := newTestEngine(store, gw, nil)

	press(e, action.ReminderCompleteToken("ghost"), 30, "⏰ Reminder")

	assert.Empty(t, gw.edits)
	require.NotEmpty(t, gw.acks)
	assert.Equal(t, textReminderGone, gw.acks[len(gw.acks)-1])
}

func TestMalformedTokenRejected(t *testing.T) {
	store, gw := newFakeStore(), &fakeGateway{}
	e := newTestEngine(store, gw, nil)

	for _, token := range []string{"reminder_complete", "manual_offset:1h:extra", "bogus:x", ""} {
		press(e, token, 30, "")
	}

	assert.Empty(t, store.reminders)
	assert.Empty(t, gw.edits)
	for _, ack := range gw.acks {
		assert.Equal(t, textInvalidAction, ack)
	}
}

func TestMissingChatOrMessageNoops(t *testing.T) {
	store, gw := newFakeStore(), &fakeGateway{}
	e := newTestEngine(store, gw, nil)

	e.HandleButton(ButtonPress{Token: action.ReminderCompleteToken("r1"), InteractionID: "cb9"})

	assert.Empty(t, store.reminders)
	assert.Empty(t, gw.edits)
	// Still acknowledged so the client doesn't spin.
	assert.Len(t, gw.acks, 1)
}

func TestNewOverwritesPriorState(t *testing.T) {
	store, gw := newFakeStore(), &fakeGateway{}
	e := newTestEngine(store, gw, nil)

	startManualFlow(e, "first thing")
	e.HandleText(TextMessage{ChatID: chat, Text: "/new", SenderID: chat})

	st := e.states.peek(chat)
	assert.Equal(t, models.StateAwaitingDescription, st.Kind)
	assert.Empty(t, st.Description)
}
