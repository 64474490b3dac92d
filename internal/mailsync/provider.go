package mailsync

import "mail-reminder-bot/internal/models"

// AddedMessage is one message-added event inside a history record.
type AddedMessage struct {
	ID       string
	LabelIDs []string
}

// HistoryRecord is a single entry in the provider's change log.
type HistoryRecord struct {
	ID            uint64
	AddedMessages []AddedMessage
}

// HistoryPage is one page of the change log. HistoryID is the mailbox
// position reported alongside the page.
type HistoryPage struct {
	Records       []HistoryRecord
	HistoryID     uint64
	NextPageToken string
}

// MailProvider is the mail provider boundary the sync engine drives.
type MailProvider interface {
	// ListHistory returns changes at or after startID. An empty
	// pageToken asks for the first page.
	ListHistory(startID uint64, pageToken string) (HistoryPage, error)
	// FetchMessage returns minimal metadata plus the plain-text body of
	// one message.
	FetchMessage(id string) (RawMessage, error)
}

// RawMessage is what the provider hands back for one message; the body
// only feeds the forwarded-recipient heuristic.
type RawMessage struct {
	ID        string
	Subject   string
	Sender    string
	Recipient string
	Body      string
}

func (r RawMessage) meta() models.MailMessage {
	return models.MailMessage{
		ID:                r.ID,
		Subject:           r.Subject,
		Sender:            r.Sender,
		Recipient:         r.Recipient,
		OriginalRecipient: ExtractOriginalRecipient(r.Body),
	}
}
