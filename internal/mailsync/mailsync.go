// Package mailsync turns an opaque "mailbox changed" signal into a
// deduplicated, checkpointed list of newly matching messages.
package mailsync

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"mail-reminder-bot/internal/models"
	"mail-reminder-bot/internal/storage"
)

// CheckpointKey is where the last processed history id lives in the
// store's config area.
const CheckpointKey = "gmail_last_history_id"

// ErrNotConfigured signals a missing mail provider; maintenance callers
// surface this as a hard failure, webhook callers as a no-op.
var ErrNotConfigured = errors.New("mail provider not configured")

type Engine struct {
	store          storage.ReminderStore
	provider       MailProvider
	trackedLabels  map[string]struct{}
	allowedSenders []string
	log            *slog.Logger

	// One sync pass at a time: the checkpoint is read-modify-written.
	mu sync.Mutex
}

func New(store storage.ReminderStore, provider MailProvider, trackedLabels, allowedSenders []string, log *slog.Logger) *Engine {
	labels := make(map[string]struct{}, len(trackedLabels))
	for _, l := range trackedLabels {
		labels[l] = struct{}{}
	}
	senders := make([]string, 0, len(allowedSenders))
	for _, s := range allowedSenders {
		senders = append(senders, strings.ToLower(s))
	}
	return &Engine{
		store:          store,
		provider:       provider,
		trackedLabels:  labels,
		allowedSenders: senders,
		log:            log,
	}
}

// Sync processes one change signal carrying the mailbox's current
// history id. It returns the metadata of new messages whose sender
// matches the allowlist.
//
// With no prior checkpoint the signal's id is adopted as the baseline
// and nothing is reported: there is no known starting point to diff
// against. Otherwise the provider's change log is paginated from the
// stored checkpoint; any provider error aborts without advancing it, so
// the next signal resumes from the same position. After a clean
// pagination pass the checkpoint advances even when nothing matched.
func (e *Engine) Sync(newCheckpoint uint64) ([]models.MailMessage, error) {
	if e.provider == nil {
		return nil, ErrNotConfigured
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	last, found, err := e.readCheckpoint()
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	if !found {
		e.log.Info("bootstrapping mail checkpoint", "history_id", newCheckpoint)
		return nil, e.writeCheckpoint(newCheckpoint)
	}

	ids, maxSeen, err := e.collectNewMessageIDs(last)
	if err != nil {
		// Checkpoint untouched: the failed attempt's ids are discarded
		// and the next signal retries the same range.
		return nil, fmt.Errorf("list history from %d: %w", last, err)
	}
	if newCheckpoint > maxSeen {
		maxSeen = newCheckpoint
	}
	if err := e.writeCheckpoint(maxSeen); err != nil {
		return nil, fmt.Errorf("write checkpoint: %w", err)
	}

	var matched []models.MailMessage
	for _, id := range ids {
		raw, err := e.provider.FetchMessage(id)
		if err != nil {
			e.log.Error("fetch message failed", "err", err, "message_id", id)
			continue
		}
		if !e.matchesSender(raw.Sender) {
			continue
		}
		matched = append(matched, raw.meta())
	}
	return matched, nil
}

// collectNewMessageIDs paginates the change log from startID and
// returns the sorted, deduplicated ids of added messages carrying at
// least one tracked label, plus the highest history id observed.
func (e *Engine) collectNewMessageIDs(startID uint64) ([]string, uint64, error) {
	seen := make(map[string]struct{})
	maxSeen := startID
	pageToken := ""

	for {
		page, err := e.provider.ListHistory(startID, pageToken)
		if err != nil {
			return nil, 0, err
		}
		if page.HistoryID > maxSeen {
			maxSeen = page.HistoryID
		}
		for _, rec := range page.Records {
			if rec.ID > maxSeen {
				maxSeen = rec.ID
			}
			for _, added := range rec.AddedMessages {
				if e.hasTrackedLabel(added.LabelIDs) {
					seen[added.ID] = struct{}{}
				}
			}
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, maxSeen, nil
}

func (e *Engine) hasTrackedLabel(labels []string) bool {
	for _, l := range labels {
		if _, ok := e.trackedLabels[l]; ok {
			return true
		}
	}
	return false
}

func (e *Engine) matchesSender(sender string) bool {
	s := strings.ToLower(sender)
	for _, allowed := range e.allowedSenders {
		if strings.Contains(s, allowed) {
			return true
		}
	}
	return false
}

// MessageMeta implements engine.MailLookup for the email reminder flow.
func (e *Engine) MessageMeta(id string) (models.MailMessage, error) {
	if e.provider == nil {
		return models.MailMessage{}, ErrNotConfigured
	}
	raw, err := e.provider.FetchMessage(id)
	if err != nil {
		return models.MailMessage{}, err
	}
	return raw.meta(), nil
}

func (e *Engine) readCheckpoint() (uint64, bool, error) {
	raw, found, err := e.store.ReadConfigValue(CheckpointKey)
	if err != nil || !found {
		return 0, found, err
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		// A corrupt value is indistinguishable from "not bootstrapped".
		e.log.Warn("invalid stored checkpoint, re-bootstrapping", "value", raw)
		return 0, false, nil
	}
	return v, true, nil
}

func (e *Engine) writeCheckpoint(v uint64) error {
	return e.store.WriteConfigValue(CheckpointKey, strconv.FormatUint(v, 10))
}
