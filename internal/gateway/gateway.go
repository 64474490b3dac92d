// Package gateway is the outbound chat boundary: sending, editing and
// acknowledging messages with optional button controls attached.
package gateway

// Button is one pressable control. Token is the opaque callback token
// delivered back when the user presses it (see internal/action).
type Button struct {
	Label string
	Token string
}

// Controls is rows of buttons. nil means "no keyboard"; editing a
// message with nil controls removes any keyboard it had.
type Controls [][]Button

// Row is a convenience constructor for a single-row keyboard.
func Row(buttons ...Button) Controls { return Controls{buttons} }

// NotificationGateway sends and mutates chat messages. Implementations
// must be safe for concurrent use.
type NotificationGateway interface {
	// Send delivers a message and returns its message id.
	Send(chatID int64, text string, controls Controls) (int, error)
	Edit(chatID int64, messageID int, text string, controls Controls) error
	// AcknowledgeInteraction stops the client-side loading indicator for
	// a button press. prominent shows the text as an alert instead of a
	// toast.
	AcknowledgeInteraction(interactionID, text string, prominent bool) error
}
