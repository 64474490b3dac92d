package engine

// User-visible strings, kept in one place.
const (
	textGreeting = "👋 Hi! I turn emails and quick notes into reminders.\n" +
		"Use /new to create a reminder."
	textAskDescription   = "What should I remind you about?"
	textAskDescAgain     = "I need a short description. What should I remind you about?"
	textAskOffset        = "When should I remind you?"
	textAskCustom        = "Send me the date and time as DD/MM/YYYY HH:MM (24h)."
	textBadCustomFormat  = "That doesn't look right. Please use DD/MM/YYYY HH:MM (24h)."
	textCustomAccepted   = "Date accepted. ✔️"
	textCustomCancelled  = "Cancelled."
	textNoEmailReminder  = "Done — no reminder for this email."
	textInvalidAction    = "Invalid action"
	textUnknownOption    = "Unknown option"
	textNothingToDo      = "This action has expired"
	textTransientFailure = "Something went wrong, please try again"
	textReminderGone     = "Reminder not found"
	textStoreFailure     = "⚠️ I couldn't save that. Nothing was created."
)
