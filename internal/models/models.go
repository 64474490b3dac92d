package models

import "time"

// SourceType says where a reminder came from.
type SourceType string

const (
	SourceManual SourceType = "manual"
	SourceEmail  SourceType = "email"
)

// Status is the reminder lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusNotified Status = "notified"
)

// Reminder is a persisted obligation to notify the user at DueAt.
// Exactly one of Description (manual) or Subject/Sender/MailMessageID
// (email) is populated, keyed by SourceType.
type Reminder struct {
	ID            string     `db:"reminder_id"`
	SourceType    SourceType `db:"source_type"`
	MailMessageID string     `db:"mail_message_id"` // email reminders only
	Subject       string     `db:"subject"`
	Sender        string     `db:"sender"`
	Recipient     string     `db:"recipient"`
	Description   string     `db:"description"` // manual reminders only
	ChatID        int64      `db:"chat_id"`
	DueAt         time.Time  `db:"due_at"`
	Status        Status     `db:"status"`
}

// MailMessage is the minimal metadata fetched for a matched email.
// OriginalRecipient is best-effort, pulled from a forwarded-header block
// in the plain-text body when one exists.
type MailMessage struct {
	ID                string
	Subject           string
	Sender            string
	Recipient         string
	OriginalRecipient string
}
