// Package action encodes and decodes the callback-button tokens carried
// in Telegram inline keyboards. Tokens are colon-delimited ASCII; the
// first segment names the action family, the rest are fixed-arity
// payload segments. Decoding is exhaustive: anything outside the closed
// set comes back as an explicit Invalid value instead of falling through.
package action

import "strings"

type Kind int

const (
	Invalid Kind = iota
	ManualOffset
	EmailAction
	EmailOffset
	ReminderExtend
	ReminderComplete
	CustomCancel
)

const (
	famManualOffset     = "manual_offset"
	famEmailAction      = "email_action"
	famEmailOffset      = "email_offset"
	famReminderExtend   = "reminder_extend"
	famReminderComplete = "reminder_complete"
	famCustomCancel     = "custom_cancel"

	// EmailAction verbs.
	VerbSet  = "set"
	VerbDone = "done"
)

// Action is the decoded form of a button token. Fields beyond Kind are
// populated per family: OffsetKey for the offset/extend families, Verb
// and MailMessageID for email actions, ReminderID for extend/complete.
type Action struct {
	Kind          Kind
	OffsetKey     string
	Verb          string
	MailMessageID string
	ReminderID    string
}

// Decode parses a raw callback token. A family mismatch or wrong arity
// yields Kind == Invalid; callers acknowledge and drop those.
func Decode(token string) Action {
	parts := strings.Split(token, ":")
	switch parts[0] {
	case famManualOffset:
		if len(parts) == 2 {
			return Action{Kind: ManualOffset, OffsetKey: parts[1]}
		}
	case famEmailAction:
		if len(parts) == 3 && (parts[1] == VerbSet || parts[1] == VerbDone) {
			return Action{Kind: EmailAction, Verb: parts[1], MailMessageID: parts[2]}
		}
	case famEmailOffset:
		if len(parts) == 3 {
			return Action{Kind: EmailOffset, OffsetKey: parts[1], MailMessageID: parts[2]}
		}
	case famReminderExtend:
		if len(parts) == 3 {
			return Action{Kind: ReminderExtend, OffsetKey: parts[1], ReminderID: parts[2]}
		}
	case famReminderComplete:
		if len(parts) == 2 {
			return Action{Kind: ReminderComplete, ReminderID: parts[1]}
		}
	case famCustomCancel:
		if len(parts) == 1 {
			return Action{Kind: CustomCancel}
		}
	}
	return Action{Kind: Invalid}
}

func ManualOffsetToken(key string) string { return famManualOffset + ":" + key }

func EmailActionToken(verb, mailMessageID string) string {
	return famEmailAction + ":" + verb + ":" + mailMessageID
}

func EmailOffsetToken(key, mailMessageID string) string {
	return famEmailOffset + ":" + key + ":" + mailMessageID
}

func ReminderExtendToken(key, reminderID string) string {
	return famReminderExtend + ":" + key + ":" + reminderID
}

func ReminderCompleteToken(reminderID string) string {
	return famReminderComplete + ":" + reminderID
}

func CustomCancelToken() string { return famCustomCancel }
