package smtprelay

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	mail "github.com/wneessen/go-mail"

	"github.com/leadloop/leadloop/internal/credentials"
	"github.com/leadloop/leadloop/internal/gateway"
)

const AdapterName = gateway.AdapterSMTP

// Adapter delivers email over an SMTP relay. With no relay configured it
// runs in dry mode: the send is recorded but nothing leaves the process,
// which keeps demo deployments and the ledger consistent.
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
	creds, err := a.resolver.SMTP(ctx)
	if err != nil {
		return gateway.EmailResult{}, err
	}
	if creds.Empty() {
		a.logger.Info("smtp not configured, recording dry send", slog.String("to", msg.To))
		return gateway.EmailResult{
			Metadata: map[string]any{"smtpConfigured": false},
		}, nil
	}

	m, err := buildMessage(creds, msg)
	if err != nil {
		return gateway.EmailResult{}, err
	}

	opts := []mail.Option{
		mail.WithPort(creds.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if creds.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(creds.Username),
			mail.WithPassword(creds.Password))
	}
	client, err := mail.NewClient(creds.Host, opts...)
	if err != nil {
		return gateway.EmailResult{}, fmt.Errorf("smtp client: %w", err)
	}

	metadata := map[string]any{"smtpConfigured": true}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		// Relay trouble is recorded, not fatal: the SMTP path always
		// yields a ledger row.
		a.logger.Warn("smtp send failed", slog.String("to", msg.To), slog.Any("error", err))
		metadata["error"] = err.Error()
	}

	return gateway.EmailResult{
		MessageID: m.GetMessageID(),
		Metadata:  metadata,
	}, nil
}

func buildMessage(creds credentials.SMTPCredentials, msg gateway.EmailMessage) (*mail.Msg, error) {
	from := creds.From
	if from == "" {
		from = creds.Username
	}

	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}
	if len(msg.CC) > 0 {
		if err := m.Cc(msg.CC...); err != nil {
			return nil, fmt.Errorf("set cc: %w", err)
		}
	}
	if len(msg.BCC) > 0 {
		if err := m.Bcc(msg.BCC...); err != nil {
			return nil, fmt.Errorf("set bcc: %w", err)
		}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	m.SetMessageID()

	for _, att := range msg.Attachments {
		data, err := decodeAttachment(att.Content)
		if err != nil {
			return nil, fmt.Errorf("decode attachment %s: %w", att.Filename, err)
		}
		if err := m.AttachReader(att.Filename, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("attach %s: %w", att.Filename, err)
		}
	}
	return m, nil
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
