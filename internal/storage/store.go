// Package storage defines the persistence contract for reminders and a
// sqlite implementation of it. Multi-step flows elsewhere treat every
// call as its own transaction: a row may vanish between a list and an
// update, and that surfaces as not-found, never as a failure.
package storage

import (
	"time"

	"mail-reminder-bot/internal/models"
)

// ReminderStore is the durable home of reminders plus a small config
// key/value area (used for the mail-sync checkpoint). Mutations are
// idempotent-safe: re-applying the same update is harmless.
type ReminderStore interface {
	CreateReminder(r models.Reminder) error
	ListReminders() ([]models.Reminder, error)
	// ListDue returns reminders with status=pending and due_at <= now,
	// in the store's native insertion order.
	ListDue(now time.Time) ([]models.Reminder, error)
	// UpdateDueAt sets a new due time and resets status to pending.
	// Returns false when no such reminder exists.
	UpdateDueAt(id string, due time.Time) (bool, error)
	UpdateStatus(id string, status models.Status) (bool, error)
	DeleteReminder(id string) (bool, error)

	ReadConfigValue(key string) (string, bool, error)
	WriteConfigValue(key, value string) error
}
