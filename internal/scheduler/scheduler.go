// Package scheduler runs the minute tick that triggers due-reminder
// dispatch. The dispatcher itself never self-schedules.
package scheduler

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

type Runner interface {
	Run() (int, error)
}

// Start registers a one-minute job invoking the dispatcher and starts
// the scheduler. The returned scheduler should be shut down by main.
func Start(d Runner, log *slog.Logger) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = s.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			n, err := d.Run()
			if err != nil {
				log.Error("dispatch tick failed", "err", err)
				return
			}
			if n > 0 {
				log.Info("dispatched reminders", "count", n)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	s.Start()
	return s, nil
}
