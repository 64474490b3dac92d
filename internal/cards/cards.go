// Package cards renders the notification texts and button layouts shared
// by the conversation engine and the due-reminder dispatcher.
package cards

import (
	"fmt"
	"time"

	"mail-reminder-bot/internal/action"
	"mail-reminder-bot/internal/gateway"
	"mail-reminder-bot/internal/models"
	"mail-reminder-bot/internal/offsets"
)

// ManualOffsetControls is the four fixed durations plus Custom, shown
// after the user supplies a description.
func ManualOffsetControls() gateway.Controls {
	var row []gateway.Button
	for _, key := range offsets.Keys() {
		row = append(row, gateway.Button{
			Label: offsets.Label(key),
			Token: action.ManualOffsetToken(key),
		})
	}
	return gateway.Controls{
		row,
		{{Label: offsets.Label(offsets.KeyCustom), Token: action.ManualOffsetToken(offsets.KeyCustom)}},
	}
}

// EmailOffsetControls is the same choice set scoped to one mail message.
func EmailOffsetControls(mailMessageID string) gateway.Controls {
	var row []gateway.Button
	for _, key := range offsets.Keys() {
		row = append(row, gateway.Button{
			Label: offsets.Label(key),
			Token: action.EmailOffsetToken(key, mailMessageID),
		})
	}
	return gateway.Controls{
		row,
		{{Label: offsets.Label(offsets.KeyCustom), Token: action.EmailOffsetToken(offsets.KeyCustom, mailMessageID)}},
	}
}

// EmailActionControls is the initial "set reminder / done" pair on a
// freshly matched email card.
func EmailActionControls(mailMessageID string) gateway.Controls {
	return gateway.Row(
		gateway.Button{Label: "Set reminder", Token: action.EmailActionToken(action.VerbSet, mailMessageID)},
		gateway.Button{Label: "Done, no reminder", Token: action.EmailActionToken(action.VerbDone, mailMessageID)},
	)
}

// ReminderControls is the snooze/complete set attached to a due
// notification.
func ReminderControls(reminderID string) gateway.Controls {
	var row []gateway.Button
	for _, key := range offsets.Keys() {
		row = append(row, gateway.Button{
			Label: "+" + offsets.Label(key),
			Token: action.ReminderExtendToken(key, reminderID),
		})
	}
	return gateway.Controls{
		row,
		{
			{Label: offsets.Label(offsets.KeyCustom), Token: action.ReminderExtendToken(offsets.KeyCustom, reminderID)},
			{Label: "Complete ✅", Token: action.ReminderCompleteToken(reminderID)},
		},
	}
}

// EmailCard renders the notification text for a matched incoming email.
func EmailCard(m models.MailMessage) string {
	recipient := m.Recipient
	if m.OriginalRecipient != "" {
		recipient = m.OriginalRecipient
	}
	return fmt.Sprintf("📧 New email\nFrom: %s\nTo: %s\nSubject: %s",
		m.Sender, recipient, m.Subject)
}

// DueCard renders the text of a due-reminder notification.
func DueCard(r models.Reminder, loc *time.Location) string {
	when := r.DueAt.In(loc).Format("02/01/2006 15:04")
	if r.SourceType == models.SourceEmail {
		return fmt.Sprintf("⏰ Reminder (%s)\nFrom: %s\nTo: %s\nSubject: %s",
			when, r.Sender, r.Recipient, r.Subject)
	}
	return fmt.Sprintf("⏰ Reminder (%s)\n%s", when, r.Description)
}
