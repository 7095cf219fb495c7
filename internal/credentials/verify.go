package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultTwilioBaseURL   = "https://api.twilio.com"
	defaultSendGridBaseURL = "https://api.sendgrid.com"
	defaultMailgunBaseURL  = "https://api.mailgun.net"
	verifyTimeout          = 15 * time.Second
)

// Verifier checks resolved credentials against the live provider APIs.
// Rejected credentials come back as an unsuccessful VerifyResult; only a
// transport failure reaching the provider is an error.
type Verifier struct {
	resolver        *Resolver
	client          *http.Client
	twilioBaseURL   string
	sendgridBaseURL string
	mailgunBaseURL  string
	logger          *slog.Logger
}

func NewVerifier(log *slog.Logger, resolver *Resolver) *Verifier {
	return &Verifier{
		resolver:        resolver,
		client:          &http.Client{Timeout: verifyTimeout},
		twilioBaseURL:   defaultTwilioBaseURL,
		sendgridBaseURL: defaultSendGridBaseURL,
		mailgunBaseURL:  defaultMailgunBaseURL,
		logger:          log.With(slog.String("service", "credentials")),
	}
}

// Verify resolves credentials for the channel and probes the matching
// provider endpoint. Channel is a comms channel name; sms and whatsapp
// share the messaging account.
func (v *Verifier) Verify(ctx context.Context, channel string) (VerifyResult, error) {
	switch channel {
	case "sms", "whatsapp":
		creds, err := v.resolver.Messaging(ctx)
		if err != nil {
			return VerifyResult{Message: "messaging credentials not configured"}, nil
		}
		return v.verifyMessaging(ctx, creds)
	case "email":
		creds, err := v.resolver.Email(ctx)
		if err != nil {
			return VerifyResult{Message: "email credentials not configured"}, nil
		}
		return v.verifyEmail(ctx, creds)
	default:
		return VerifyResult{}, fmt.Errorf("unsupported channel: %s", channel)
	}
}

// verifyMessaging probes the account resource for account identifiers and
// the account listing for API keys; an API key cannot read its own account
// document directly.
func (v *Verifier) verifyMessaging(ctx context.Context, creds MessagingCredentials) (VerifyResult, error) {
	url := v.twilioBaseURL + "/2010-04-01/Accounts.json?PageSize=1"
	if creds.Kind == KindAccountSID {
		url = fmt.Sprintf("%s/2010-04-01/Accounts/%s.json", v.twilioBaseURL, creds.Identifier)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return VerifyResult{}, err
	}
	req.SetBasicAuth(creds.Identifier, creds.Secret)

	resp, err := v.client.Do(req)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("messaging verify: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	details := map[string]any{
		"kind":   string(creds.Kind),
		"origin": creds.Origin,
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		v.logger.Warn("messaging credential check rejected",
			slog.Int("status", resp.StatusCode), slog.String("kind", string(creds.Kind)))
		return VerifyResult{
			Message: fmt.Sprintf("provider rejected credentials (status %d)", resp.StatusCode),
			Details: details,
		}, nil
	}

	var account struct {
		FriendlyName string `json:"friendly_name"`
		Status       string `json:"status"`
	}
	if err := json.Unmarshal(body, &account); err == nil && account.FriendlyName != "" {
		details["account_name"] = account.FriendlyName
		details["account_status"] = account.Status
	}
	return VerifyResult{Success: true, Message: "messaging credentials valid", Details: details}, nil
}

// verifyEmail probes the endpoint matching the resolved service: the
// SendGrid scopes listing or the Mailgun domains listing.
func (v *Verifier) verifyEmail(ctx context.Context, creds EmailCredentials) (VerifyResult, error) {
	if creds.Service == "mailgun" {
		return v.verifyMailgun(ctx, creds)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.sendgridBaseURL+"/v3/scopes", nil)
	if err != nil {
		return VerifyResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.APIKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("email verify: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	details := map[string]any{
		"service": creds.Service,
		"origin":  creds.Origin,
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		v.logger.Warn("email credential check rejected", slog.Int("status", resp.StatusCode))
		return VerifyResult{
			Message: fmt.Sprintf("provider rejected credentials (status %d)", resp.StatusCode),
			Details: details,
		}, nil
	}

	var scopes struct {
		Scopes []string `json:"scopes"`
	}
	if err := json.Unmarshal(body, &scopes); err == nil {
		details["scope_count"] = len(scopes.Scopes)
	}
	return VerifyResult{Success: true, Message: "email credentials valid", Details: details}, nil
}

// verifyMailgun lists the account's sending domains; the API key
// authenticates as basic auth with the fixed "api" username.
func (v *Verifier) verifyMailgun(ctx context.Context, creds EmailCredentials) (VerifyResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.mailgunBaseURL+"/v3/domains", nil)
	if err != nil {
		return VerifyResult{}, err
	}
	req.SetBasicAuth("api", creds.APIKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("email verify: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	details := map[string]any{
		"service": creds.Service,
		"origin":  creds.Origin,
	}
	if creds.MailgunDomain != "" {
		details["domain"] = creds.MailgunDomain
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		v.logger.Warn("email credential check rejected", slog.Int("status", resp.StatusCode))
		return VerifyResult{
			Message: fmt.Sprintf("provider rejected credentials (status %d)", resp.StatusCode),
			Details: details,
		}, nil
	}

	var domains struct {
		TotalCount int `json:"total_count"`
	}
	if err := json.Unmarshal(body, &domains); err == nil {
		details["domain_count"] = domains.TotalCount
	}
	return VerifyResult{Success: true, Message: "email credentials valid", Details: details}, nil
}

// SetBaseURLs overrides the provider endpoints, used by tests.
func (v *Verifier) SetBaseURLs(twilio, sendgrid, mailgun string) {
	if twilio != "" {
		v.twilioBaseURL = twilio
	}
	if sendgrid != "" {
		v.sendgridBaseURL = sendgrid
	}
	if mailgun != "" {
		v.mailgunBaseURL = mailgun
	}
}
