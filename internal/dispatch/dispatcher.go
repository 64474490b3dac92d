// Package dispatch delivers due reminders. It is driven entirely by an
// external trigger (the gocron tick or the maintenance endpoint) and
// never schedules itself.
package dispatch

import (
	"log/slog"
	"time"

	"mail-reminder-bot/internal/cards"
	"mail-reminder-bot/internal/gateway"
	"mail-reminder-bot/internal/models"
	"mail-reminder-bot/internal/storage"
)

type Dispatcher struct {
	store storage.ReminderStore
	gw    gateway.NotificationGateway
	loc   *time.Location
	log   *slog.Logger

	now func() time.Time
}

func New(store storage.ReminderStore, gw gateway.NotificationGateway, loc *time.Location, log *slog.Logger) *Dispatcher {
	return &Dispatcher{store: store, gw: gw, loc: loc, log: log, now: time.Now}
}

// Run performs one dispatch pass and returns how many reminders were
// notified. A reminder flips to notified only after its send succeeds;
// a failed send leaves it pending for the next pass, and a failed status
// write after a successful send is logged and skipped (the reminder may
// be re-notified next pass, but is never dropped).
func (d *Dispatcher) Run() (int, error) {
	due, err := d.store.ListDue(d.now())
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, r := range due {
		controls := cards.ReminderControls(r.ID)
		if _, err := d.gw.Send(r.ChatID, cards.DueCard(r, d.loc), controls); err != nil {
			d.log.Error("reminder send failed", "err", err, "reminder_id", r.ID)
			continue // stays pending, retried next trigger
		}
		dispatched++

		updated, err := d.store.UpdateStatus(r.ID, models.StatusNotified)
		if err != nil {
			d.log.Error("status update failed after send", "err", err, "reminder_id", r.ID)
			continue
		}
		if !updated {
			// Row vanished between list and update; nothing to do.
			d.log.Warn("reminder gone before status update", "reminder_id", r.ID)
		}
	}
	return dispatched, nil
}
