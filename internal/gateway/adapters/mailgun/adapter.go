package mailgun

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	mg "github.com/mailgun/mailgun-go/v5"

	"github.com/leadloop/leadloop/internal/credentials"
	"github.com/leadloop/leadloop/internal/gateway"
)

const AdapterName = gateway.AdapterMailgun

// Adapter delivers email through the Mailgun messages API. Selected when
// the settings document names mailgun as the email service.
type Adapter struct {
	resolver *credentials.Resolver
	logger   *slog.Logger
}

func New(log *slog.Logger, resolver *credentials.Resolver) *Adapter {
	return &Adapter{
		resolver: resolver,
		logger:   log.With(slog.String("adapter", AdapterName)),
	}
}

func (a *Adapter) Name() string { return AdapterName }

func (a *Adapter) Send(ctx context.Context, msg gateway.EmailMessage) (gateway.EmailResult, error) {
	creds, err := a.resolver.Email(ctx)
	if err != nil {
		return gateway.EmailResult{}, fmt.Errorf("mailgun email: %w", err)
	}
	if creds.MailgunDomain == "" {
		return gateway.EmailResult{}, fmt.Errorf("mailgun email: sending domain not configured")
	}

	from := creds.FromAddress
	if from == "" {
		from = fmt.Sprintf("noreply@%s", creds.MailgunDomain)
	}

	m := mg.NewMessage(creds.MailgunDomain, from, msg.Subject, msg.Body, msg.To)
	for _, cc := range msg.CC {
		m.AddCC(cc)
	}
	for _, bcc := range msg.BCC {
		m.AddBCC(bcc)
	}
	for _, att := range msg.Attachments {
		data, err := decodeAttachment(att.Content)
		if err != nil {
			return gateway.EmailResult{}, fmt.Errorf("decode attachment %s: %w", att.Filename, err)
		}
		m.AddBufferAttachment(att.Filename, data)
	}

	client := mg.NewMailgun(creds.APIKey)
	resp, err := client.Send(ctx, m)
	if err != nil {
		return gateway.EmailResult{}, fmt.Errorf("mailgun send: %w", err)
	}

	a.logger.Info("email sent", slog.String("to", msg.To), slog.String("message_id", resp.ID))
	return gateway.EmailResult{
		MessageID: resp.ID,
		Metadata: map[string]any{
			"provider": "mailgun",
			"domain":   creds.MailgunDomain,
		},
	}, nil
}

func decodeAttachment(content string) ([]byte, error) {
	if strings.HasPrefix(content, "data:") {
		if idx := strings.Index(content, "base64,"); idx >= 0 {
			content = content[idx+len("base64,"):]
		}
	}
	return base64.StdEncoding.DecodeString(content)
}

var _ gateway.EmailSender = (*Adapter)(nil)
