package credentials

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leadloop/leadloop/internal/config"
)

func TestVerifyMessagingValid(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2010-04-01/Accounts/ACtest0000000000000000000000000000.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "ACtest0000000000000000000000000000" || pass != "token" {
			t.Errorf("unexpected auth %s:%s", user, pass)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"friendly_name":"Acme","status":"active"}`))
	}))
	defer srv.Close()

	cfg := config.Config{}
	cfg.Twilio.AccountSID = "ACtest0000000000000000000000000000"
	cfg.Twilio.AuthToken = "token"

	v := NewVerifier(slog.Default(), NewResolver(slog.Default(), NewDeploymentSource(cfg)))
	v.SetBaseURLs(srv.URL, "", "")

	res, err := v.Verify(context.Background(), "sms")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Details["account_name"] != "Acme" {
		t.Errorf("details = %+v", res.Details)
	}
}

func TestVerifyMessagingRejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":20003}`))
	}))
	defer srv.Close()

	cfg := config.Config{}
	cfg.Twilio.AccountSID = "ACbad00000000000000000000000000000"
	cfg.Twilio.AuthToken = "wrong"

	v := NewVerifier(slog.Default(), NewResolver(slog.Default(), NewDeploymentSource(cfg)))
	v.SetBaseURLs(srv.URL, "", "")

	res, err := v.Verify(context.Background(), "whatsapp")
	if err != nil {
		t.Fatalf("rejected credentials must not error: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure result")
	}
}

func TestVerifyMessagingAPIKeyEndpoint(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2010-04-01/Accounts.json" {
			t.Errorf("api keys must list accounts, got %s", r.URL.Path)
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg := config.Config{}
	cfg.Twilio.AccountSID = "SKkey00000000000000000000000000000"
	cfg.Twilio.AuthToken = "secret"

	v := NewVerifier(slog.Default(), NewResolver(slog.Default(), NewDeploymentSource(cfg)))
	v.SetBaseURLs(srv.URL, "", "")

	res, err := v.Verify(context.Background(), "sms")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Details["kind"] != string(KindAPIKey) {
		t.Errorf("kind detail = %v", res.Details["kind"])
	}
}

func TestVerifyEmailScopes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer SG.key" {
			t.Errorf("auth header = %q", got)
		}
		w.Write([]byte(`{"scopes":["mail.send","mail.batch"]}`))
	}))
	defer srv.Close()

	cfg := config.Config{}
	cfg.SendGrid.APIKey = "SG.key"

	v := NewVerifier(slog.Default(), NewResolver(slog.Default(), NewDeploymentSource(cfg)))
	v.SetBaseURLs("", srv.URL, "")

	res, err := v.Verify(context.Background(), "email")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Details["scope_count"] != 2 {
		t.Errorf("scope_count = %v", res.Details["scope_count"])
	}
}

type mailgunEmailSource struct{ creds EmailCredentials }

func (s mailgunEmailSource) Name() string { return "test" }

func (s mailgunEmailSource) Messaging(context.Context) (MessagingCredentials, bool) {
	return MessagingCredentials{}, false
}

func (s mailgunEmailSource) Email(context.Context) (EmailCredentials, bool) {
	return s.creds, true
}

func (s mailgunEmailSource) SMTP(context.Context) (SMTPCredentials, bool) {
	return SMTPCredentials{}, false
}

// A mailgun key must be checked against the mailgun domains listing, not
// the SendGrid scopes endpoint.
func TestVerifyEmailMailgunDomains(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/domains" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "api" || pass != "key-mailgun" {
			t.Errorf("unexpected auth %s:%s", user, pass)
		}
		w.Write([]byte(`{"total_count":1,"items":[{"name":"mg.example.com"}]}`))
	}))
	defer srv.Close()

	source := mailgunEmailSource{creds: EmailCredentials{
		APIKey:        "key-mailgun",
		Service:       "mailgun",
		MailgunDomain: "mg.example.com",
	}}
	v := NewVerifier(slog.Default(), NewResolver(slog.Default(), source))
	v.SetBaseURLs("", "", srv.URL)

	res, err := v.Verify(context.Background(), "email")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Details["domain_count"] != 1 {
		t.Errorf("domain_count = %v", res.Details["domain_count"])
	}
	if res.Details["domain"] != "mg.example.com" {
		t.Errorf("domain = %v", res.Details["domain"])
	}
}

func TestVerifyUnconfigured(t *testing.T) {
	t.Parallel()

	v := NewVerifier(slog.Default(), NewResolver(slog.Default()))
	res, err := v.Verify(context.Background(), "email")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure for unconfigured email")
	}
}
