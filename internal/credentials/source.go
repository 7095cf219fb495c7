package credentials

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/leadloop/leadloop/internal/config"
	"github.com/leadloop/leadloop/internal/settings"
)

// ErrMissing is returned when no source in the chain can produce a usable
// credential for the requested channel.
var ErrMissing = errors.New("credentials not configured")

// Source is one layer of the credential chain. A false second return means
// this layer has nothing for the channel and the next layer is consulted.
type Source interface {
	Name() string
	Messaging(ctx context.Context) (MessagingCredentials, bool)
	Email(ctx context.Context) (EmailCredentials, bool)
	SMTP(ctx context.Context) (SMTPCredentials, bool)
}

// Resolver walks an ordered source chain on every operation. Nothing is
// cached: a settings update takes effect on the next send.
type Resolver struct {
	sources []Source
	logger  *slog.Logger
}

func NewResolver(log *slog.Logger, sources ...Source) *Resolver {
	return &Resolver{
		sources: sources,
		logger:  log.With(slog.String("service", "credentials")),
	}
}

// DefaultChain is the deployment ordering: environment first, persisted
// settings second, built-in fallback last.
func DefaultChain(log *slog.Logger, cfg config.Config, store *settings.Service) *Resolver {
	return NewResolver(log,
		NewDeploymentSource(cfg),
		NewSettingsSource(store),
		FallbackSource{},
	)
}

func (r *Resolver) Messaging(ctx context.Context) (MessagingCredentials, error) {
	for _, src := range r.sources {
		if creds, ok := src.Messaging(ctx); ok {
			creds.Origin = src.Name()
			creds.Kind = DetectKind(creds.Identifier)
			if src.Name() == originFallback {
				r.logger.Warn("messaging credentials resolved to insecure fallback")
			}
			return creds, nil
		}
	}
	return MessagingCredentials{}, ErrMissing
}

func (r *Resolver) Email(ctx context.Context) (EmailCredentials, error) {
	for _, src := range r.sources {
		if creds, ok := src.Email(ctx); ok {
			creds.Origin = src.Name()
			if creds.Service == "" {
				creds.Service = serviceFromKey(creds.APIKey)
			}
			return creds, nil
		}
	}
	return EmailCredentials{}, ErrMissing
}

// SMTP never fails: an empty result signals dry mode to the gateway.
func (r *Resolver) SMTP(ctx context.Context) (SMTPCredentials, error) {
	for _, src := range r.sources {
		if creds, ok := src.SMTP(ctx); ok {
			creds.Origin = src.Name()
			return creds, nil
		}
	}
	return SMTPCredentials{}, nil
}

// serviceFromKey guesses the email provider from the key shape when the
// settings document does not name one. SendGrid keys carry a SG. prefix.
func serviceFromKey(key string) string {
	if strings.HasPrefix(key, "SG.") {
		return "sendgrid"
	}
	return "mailgun"
}

const (
	originEnv      = "environment"
	originSettings = "settings"
	originFallback = "fallback"
)

// DeploymentSource surfaces credentials from the deployment environment,
// already layered into the loaded configuration.
type DeploymentSource struct {
	cfg config.Config
}

func NewDeploymentSource(cfg config.Config) DeploymentSource {
	return DeploymentSource{cfg: cfg}
}

func (s DeploymentSource) Name() string { return originEnv }

func (s DeploymentSource) Messaging(context.Context) (MessagingCredentials, bool) {
	t := s.cfg.Twilio
	if t.AccountSID == "" || t.AuthToken == "" {
		return MessagingCredentials{}, false
	}
	return MessagingCredentials{
		Identifier:   t.AccountSID,
		Secret:       t.AuthToken,
		SMSFrom:      t.SMSFrom,
		WhatsAppFrom: t.WhatsAppFrom,
	}, true
}

func (s DeploymentSource) Email(context.Context) (EmailCredentials, bool) {
	sg := s.cfg.SendGrid
	if sg.APIKey == "" {
		return EmailCredentials{}, false
	}
	return EmailCredentials{
		APIKey:      sg.APIKey,
		FromAddress: sg.FromAddress,
	}, true
}

func (s DeploymentSource) SMTP(context.Context) (SMTPCredentials, bool) {
	m := s.cfg.SMTP
	if m.Host == "" {
		return SMTPCredentials{}, false
	}
	return SMTPCredentials{
		Host:     m.Host,
		Port:     m.Port,
		Username: m.Username,
		Password: m.Password,
		From:     m.From,
	}, true
}

// SettingsSource reads the persisted settings document. Read failures are
// treated as a miss so the chain can continue; the gateway surfaces the
// resulting state through send metadata.
type SettingsSource struct {
	store *settings.Service
}

func NewSettingsSource(store *settings.Service) SettingsSource {
	return SettingsSource{store: store}
}

func (s SettingsSource) Name() string { return originSettings }

func (s SettingsSource) document(ctx context.Context) (settings.Document, bool) {
	if s.store == nil {
		return settings.Document{}, false
	}
	doc, err := s.store.Get(ctx)
	if err != nil {
		return settings.Document{}, false
	}
	return doc, true
}

func (s SettingsSource) Messaging(ctx context.Context) (MessagingCredentials, bool) {
	doc, ok := s.document(ctx)
	if !ok || doc.TwilioAccountSID == "" || doc.TwilioAuthToken == "" {
		return MessagingCredentials{}, false
	}
	return MessagingCredentials{
		Identifier:   doc.TwilioAccountSID,
		Secret:       doc.TwilioAuthToken,
		SMSFrom:      doc.TwilioSMSFrom,
		WhatsAppFrom: doc.WhatsAppFrom,
	}, true
}

func (s SettingsSource) Email(ctx context.Context) (EmailCredentials, bool) {
	doc, ok := s.document(ctx)
	if !ok || doc.EmailAPIKey == "" {
		return EmailCredentials{}, false
	}
	return EmailCredentials{
		APIKey:        doc.EmailAPIKey,
		FromAddress:   doc.FromAddress,
		Service:       doc.EmailService,
		MailgunDomain: doc.MailgunDomain,
	}, true
}

func (s SettingsSource) SMTP(ctx context.Context) (SMTPCredentials, bool) {
	doc, ok := s.document(ctx)
	if !ok || doc.SMTPHost == "" {
		return SMTPCredentials{}, false
	}
	return SMTPCredentials{
		Host:     doc.SMTPHost,
		Port:     doc.SMTPPort,
		Username: doc.SMTPUsername,
		Password: doc.SMTPPassword,
		From:     doc.FromAddress,
	}, true
}

// Fallback identifier for demo deployments with nothing configured. Sends
// through it always fail at the provider and are recorded as simulated.
const (
	fallbackAccountSID = "AC00000000000000000000000000000000"
	fallbackAuthToken  = "unconfigured"
)

// FallbackSource keeps the messaging path alive when nothing else is
// configured. It is insecure and exists only so demo deployments still
// produce ledger rows. Email has no fallback: sending from an unowned
// address is worse than failing.
type FallbackSource struct{}

func (FallbackSource) Name() string { return originFallback }

func (FallbackSource) Messaging(context.Context) (MessagingCredentials, bool) {
	return MessagingCredentials{
		Identifier: fallbackAccountSID,
		Secret:     fallbackAuthToken,
	}, true
}

func (FallbackSource) Email(context.Context) (EmailCredentials, bool) {
	return EmailCredentials{}, false
}

func (FallbackSource) SMTP(context.Context) (SMTPCredentials, bool) {
	return SMTPCredentials{}, false
}
