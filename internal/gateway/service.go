package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leadloop/leadloop/internal/comms"
	"github.com/leadloop/leadloop/internal/credentials"
	"github.com/leadloop/leadloop/internal/customer"
	"github.com/leadloop/leadloop/internal/settings"
)

// SettingsReader is the slice of the settings service the gateway needs.
type SettingsReader interface {
	Get(ctx context.Context) (settings.Document, error)
}

// CustomerResolver reconciles an address into a customer record, creating
// one on first contact.
type CustomerResolver interface {
	Resolve(ctx context.Context, email string, patch customer.Patch) (customer.Customer, bool, error)
}

// Service routes outbound sends to the right channel mechanism and appends
// the ledger row. Email and messaging diverge on failure handling: a
// rejected email aborts without a row, a failed SMS or WhatsApp send is
// simulated and always recorded.
type Service struct {
	registry  *Registry
	messaging *MessagingClient
	resolver  *credentials.Resolver
	settings  SettingsReader
	customers CustomerResolver
	ledger    *comms.Service
	logger    *slog.Logger
}

func NewService(log *slog.Logger, registry *Registry, messaging *MessagingClient, resolver *credentials.Resolver, store SettingsReader, customers CustomerResolver, ledger *comms.Service) *Service {
	return &Service{
		registry:  registry,
		messaging: messaging,
		resolver:  resolver,
		settings:  store,
		customers: customers,
		ledger:    ledger,
		logger:    log.With(slog.String("service", "gateway")),
	}
}

func (s *Service) Send(ctx context.Context, req SendRequest) (comms.Communication, error) {
	switch req.Channel {
	case comms.ChannelEmail:
		return s.sendEmail(ctx, req)
	case comms.ChannelSMS, comms.ChannelWhatsApp:
		return s.sendMessage(ctx, req)
	default:
		return comms.Communication{}, fmt.Errorf("unsupported channel: %s", req.Channel)
	}
}

// emailAdapterName picks the delivery mechanism from the settings
// document; absent settings default to the web API path.
func (s *Service) emailAdapterName(ctx context.Context) string {
	doc, err := s.settings.Get(ctx)
	if err != nil {
		s.logger.Warn("settings read failed, defaulting email adapter", slog.Any("error", err))
		return AdapterWebAPI
	}
	if doc.EmailMethod == "smtp" {
		return AdapterSMTP
	}
	if doc.EmailService == "mailgun" {
		return AdapterMailgun
	}
	return AdapterWebAPI
}

func (s *Service) sendEmail(ctx context.Context, req SendRequest) (comms.Communication, error) {
	customerID := req.CustomerID
	if customerID == "" {
		cust, created, err := s.customers.Resolve(ctx, req.To, customer.Patch{Source: "outbound email"})
		if err != nil {
			return comms.Communication{}, fmt.Errorf("resolve recipient: %w", err)
		}
		customerID = cust.ID
		if created {
			s.logger.Info("customer created for outbound email",
				slog.String("customer_id", cust.ID), slog.String("email", req.To))
		}
	}

	sender, err := s.registry.Get(s.emailAdapterName(ctx))
	if err != nil {
		return comms.Communication{}, err
	}

	res, err := sender.Send(ctx, EmailMessage{
		To:          req.To,
		Subject:     req.Subject,
		Body:        req.Body,
		CC:          req.CC,
		BCC:         req.BCC,
		Attachments: req.Attachments,
	})
	if err != nil {
		return comms.Communication{}, err
	}

	metadata := res.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	if res.MessageID != "" {
		metadata["messageId"] = res.MessageID
	}
	metadata["adapter"] = sender.Name()
	if req.Subject != "" {
		metadata["subject"] = req.Subject
	}

	return s.ledger.Log(ctx, comms.CreateInput{
		CustomerID: customerID,
		Type:       comms.ChannelEmail,
		Content:    emailContent(req.Subject, req.Body),
		Status:     comms.StatusSent,
		Metadata:   metadata,
	})
}

// emailContent is the rendered ledger text for an email row: the subject
// line precedes the body when present.
func emailContent(subject, body string) string {
	if subject == "" {
		return body
	}
	return subject + "\n\n" + body
}

func (s *Service) sendMessage(ctx context.Context, req SendRequest) (comms.Communication, error) {
	if req.CustomerID == "" {
		// A phone number alone cannot be reconciled into a customer the
		// way an email address can.
		return comms.Communication{}, fmt.Errorf("customer_id is required for %s sends", req.Channel)
	}

	creds, err := s.resolver.Messaging(ctx)
	if err != nil {
		return comms.Communication{}, err
	}

	outcome := s.messaging.Send(ctx, creds, req.Channel, req.To, req.Body)
	metadata := outcome.Metadata
	metadata["messageSid"] = outcome.SID
	metadata["to"] = NormalizePhone(req.To)

	row, err := s.ledger.Log(ctx, comms.CreateInput{
		CustomerID: req.CustomerID,
		Type:       req.Channel,
		Content:    req.Body,
		Status:     outcome.Status,
		Metadata:   metadata,
	})
	if err != nil {
		// The provider leg already completed; hand callers an in-memory
		// view of the send alongside the persistence error.
		return comms.Communication{
			CustomerID: req.CustomerID,
			Type:       req.Channel,
			Content:    req.Body,
			Status:     outcome.Status,
			Metadata:   metadata,
			SentAt:     time.Now().UTC(),
		}, err
	}
	return row, nil
}
