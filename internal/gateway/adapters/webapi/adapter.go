package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/leadloop/leadloop/internal/credentials"
	"github.com/leadloop/leadloop/internal/gateway"
)

const (
	AdapterName    = gateway.AdapterWebAPI
	defaultBaseURL = "https://api.sendgrid.com"
	sendTimeout    = 15 * time.Second
)

// Adapter delivers email through the SendGrid v3 mail send API. A rejected
// send surfaces as a ProviderError so callers can distinguish provider
// refusal from transport trouble.
type Adapter struct {
	resolver *credentials.Resolver
	client   *http.Client
	baseURL  string
	logger   *slog.Logger
}

func New(log *slog.Logger, resolver *credentials.Resolver) *Adapter {
	return &Adapter{
		resolver: resolver,
		client:   &http.Client{Timeout: sendTimeout},
		baseURL:  defaultBaseURL,
		logger:   log.With(slog.String("adapter", AdapterName)),
	}
}

func (a *Adapter) Name() string { return AdapterName }

type personalization struct {
	To  []address `json:"to"`
	CC  []address `json:"cc,omitempty"`
	BCC []address `json:"bcc,omitempty"`
}

type address struct {
	Email string `json:"email"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type attachment struct {
	Content     string `json:"content"`
	Filename    string `json:"filename"`
	Type        string `json:"type,omitempty"`
	Disposition string `json:"disposition"`
}

type sendPayload struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
	Attachments      []attachment      `json:"attachments,omitempty"`
}

func (a *Adapter) Send(ctx context.Context, msg gateway.EmailMessage) (gateway.EmailResult, error) {
	creds, err := a.resolver.Email(ctx)
	if err != nil {
		return gateway.EmailResult{}, fmt.Errorf("web api email: %w", err)
	}

	payload := sendPayload{
		Personalizations: []personalization{buildPersonalization(msg)},
		From:             address{Email: creds.FromAddress},
		Subject:          msg.Subject,
		Content: []content{{
			Type:  "text/html",
			Value: strings.ReplaceAll(msg.Body, "\n", "<br>"),
		}},
	}
	for _, att := range msg.Attachments {
		payload.Attachments = append(payload.Attachments, attachment{
			Content:     stripDataURL(att.Content),
			Filename:    att.Filename,
			Type:        att.ContentType,
			Disposition: "attachment",
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return gateway.EmailResult{}, fmt.Errorf("encode mail payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return gateway.EmailResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return gateway.EmailResult{}, fmt.Errorf("web api email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		a.logger.Warn("email send rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("to", msg.To))
		return gateway.EmailResult{}, &gateway.ProviderError{
			Adapter:    AdapterName,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	messageID := resp.Header.Get("X-Message-Id")
	a.logger.Info("email sent", slog.String("to", msg.To), slog.String("message_id", messageID))
	return gateway.EmailResult{
		MessageID: messageID,
		Metadata: map[string]any{
			"provider":   "sendgrid",
			"statusCode": resp.StatusCode,
		},
	}, nil
}

func buildPersonalization(msg gateway.EmailMessage) personalization {
	p := personalization{To: []address{{Email: msg.To}}}
	for _, cc := range msg.CC {
		p.CC = append(p.CC, address{Email: cc})
	}
	for _, bcc := range msg.BCC {
		p.BCC = append(p.BCC, address{Email: bcc})
	}
	return p
}

// stripDataURL removes a data URL wrapper, leaving bare base64 as the API
// expects.
func stripDataURL(content string) string {
	if !strings.HasPrefix(content, "data:") {
		return content
	}
	if idx := strings.Index(content, "base64,"); idx >= 0 {
		return content[idx+len("base64,"):]
	}
	return content
}

// SetBaseURL overrides the provider endpoint, used by tests.
func (a *Adapter) SetBaseURL(u string) {
	if u != "" {
		a.baseURL = u
	}
}

var _ gateway.EmailSender = (*Adapter)(nil)
