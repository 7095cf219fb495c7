package gateway

import (
	"fmt"

	"github.com/leadloop/leadloop/internal/comms"
)

// SendRequest is one outbound message over any channel. CustomerID may be
// left empty for email: the recipient address is reconciled into a
// customer record before the ledger row is written. SMS and WhatsApp
// always need one.
type SendRequest struct {
	CustomerID  string        `json:"customer_id,omitempty" validate:"omitempty,uuid4"`
	Channel     comms.Channel `json:"channel" validate:"required,oneof=email sms whatsapp"`
	To          string        `json:"to" validate:"required"`
	Subject     string        `json:"subject,omitempty"`
	Body        string        `json:"body" validate:"required"`
	CC          []string      `json:"cc,omitempty"`
	BCC         []string      `json:"bcc,omitempty"`
	Attachments []Attachment  `json:"attachments,omitempty"`
}

// Attachment content is base64, optionally wrapped in a data URL; the
// adapter strips the wrapper before encoding for the wire.
type Attachment struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	ContentType string `json:"content_type,omitempty"`
}

// EmailMessage is the adapter-facing shape of an outbound email.
type EmailMessage struct {
	To          string
	Subject     string
	Body        string
	CC          []string
	BCC         []string
	Attachments []Attachment
}

// EmailResult carries the provider message id plus adapter metadata that
// lands in the ledger row.
type EmailResult struct {
	MessageID string
	Metadata  map[string]any
}

// ProviderError is a rejected email send. Unlike the messaging channels,
// a rejected email produces no ledger row: the caller sees the provider
// status and can retry, and a phantom "sent" email would mislead more
// than a missing SMS row would.
type ProviderError struct {
	Adapter    string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s send rejected: status %d: %s", e.Adapter, e.StatusCode, e.Body)
}
