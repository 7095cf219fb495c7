package comms

import "time"

// Channel identifies the transport a communication travelled over.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelWhatsApp:
		return true
	}
	return false
}

// Status records the delivery outcome. Rows are immutable: a failure is a
// distinct failed row, never an update of a sent one.
type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Communication is one ledger row: a single inbound or outbound message.
type Communication struct {
	ID         string         `json:"id"`
	CustomerID string         `json:"customer_id"`
	Type       Channel        `json:"type"`
	Content    string         `json:"content"`
	Status     Status         `json:"status"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	SentAt     time.Time      `json:"sent_at"`
	CreatedAt  time.Time      `json:"created_at"`
}

// CreateInput describes a ledger row to append.
type CreateInput struct {
	CustomerID string
	Type       Channel
	Content    string
	Status     Status
	Metadata   map[string]any
	SentAt     time.Time
}
