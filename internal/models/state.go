package models

// StateKind identifies where a chat is in the multi-step reminder flow.
type StateKind int

const (
	StateIdle StateKind = iota
	StateAwaitingDescription
	StateAwaitingOffset
	StateAwaitingCustomDatetime
)

// CustomMode says what a custom-datetime answer applies to.
type CustomMode string

const (
	CustomManual CustomMode = "manual"
	CustomEmail  CustomMode = "email"
	CustomSnooze CustomMode = "snooze"
)

// ConversationState is the ephemeral per-chat flow marker. It lives only
// in process memory and is lost on restart by design. At most one state
// exists per chat; a new /new or offset action overwrites it.
type ConversationState struct {
	Kind StateKind

	// Manual flow: the free-text description collected after /new.
	Description string

	// Custom-datetime flow.
	Mode          CustomMode
	MailMessageID string // Mode == CustomEmail
	ReminderID    string // Mode == CustomSnooze
	CardText      string // cached text of the card being completed
	CardMessageID int    // message holding the offset / snooze keyboard
	PromptMsgID   int    // the "send me a date" prompt, edited on finish/cancel
}
