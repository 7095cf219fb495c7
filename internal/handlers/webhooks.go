package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/leadloop/leadloop/internal/comms"
	"github.com/leadloop/leadloop/internal/customer"
	"github.com/leadloop/leadloop/internal/inbound"
	"github.com/leadloop/leadloop/internal/server"
)

const (
	smsAcknowledgement      = "Thanks for your message! A member of our team will get back to you shortly."
	whatsappAcknowledgement = "Thanks for reaching out on WhatsApp! A member of our team will get back to you shortly."
	errorAcknowledgement    = "Thanks for your message. We are experiencing a temporary issue; please try again later."
)

// twimlResponse is the provider-facing XML acknowledgement.
type twimlResponse struct {
	XMLName struct{} `xml:"Response"`
	Message string   `xml:"Message"`
}

type inboundEmailData struct {
	From        string   `json:"from"`
	To          string   `json:"to"`
	Subject     string   `json:"subject"`
	Attachments []string `json:"attachments"`
}

type inboundEmailResponse struct {
	Success         bool             `json:"success"`
	Message         string           `json:"message"`
	Data            inboundEmailData `json:"data"`
	CustomerCreated bool             `json:"customerCreated"`
}

// WebhooksHandler terminates provider callbacks: the email inbound-parse
// webhook and the SMS/WhatsApp message webhooks.
type WebhooksHandler struct {
	pipeline  *inbound.Pipeline
	customers *customer.Service
	ledger    *comms.Service
	logger    *slog.Logger
}

func NewWebhooksHandler(log *slog.Logger, pipeline *inbound.Pipeline, customers *customer.Service, ledger *comms.Service) *WebhooksHandler {
	return &WebhooksHandler{
		pipeline:  pipeline,
		customers: customers,
		ledger:    ledger,
		logger:    log.With(slog.String("handler", "webhooks")),
	}
}

func (h *WebhooksHandler) Register(e *echo.Echo) {
	e.POST("/api/webhooks/sendgrid/inbound", h.InboundEmail)
	e.POST("/api/webhooks/twilio/sms", h.InboundSMS)
	e.POST("/api/webhooks/twilio/whatsapp", h.InboundWhatsApp)
}

func (h *WebhooksHandler) InboundEmail(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "could not parse inbound email payload",
		})
	}

	email, err := inbound.ParseEmail(form)
	if err != nil {
		h.logger.Error("inbound email parse failed", slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "could not parse inbound email payload",
		})
	}

	result, err := h.pipeline.Process(c.Request().Context(), email)
	if err != nil {
		message := "inbound email processing failed"
		switch {
		case errors.Is(err, inbound.ErrNoAttachment):
			message = "no attachments found in inbound email"
		case errors.Is(err, inbound.ErrNoSupportedAttachment):
			message = "no supported resume attachments found in inbound email"
		}
		h.logger.Error("inbound email processing failed", slog.Any("error", err))
		server.RecordInboundEmail("failed")
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": message,
		})
	}

	server.RecordInboundEmail("processed")
	return c.JSON(http.StatusOK, inboundEmailResponse{
		Success: true,
		Message: "inbound email processed",
		Data: inboundEmailData{
			From:        email.From,
			To:          email.To,
			Subject:     email.Subject,
			Attachments: result.Attachments,
		},
		CustomerCreated: result.Created,
	})
}

func (h *WebhooksHandler) InboundSMS(c echo.Context) error {
	return h.inboundMessage(c, comms.ChannelSMS, smsAcknowledgement)
}

func (h *WebhooksHandler) InboundWhatsApp(c echo.Context) error {
	return h.inboundMessage(c, comms.ChannelWhatsApp, whatsappAcknowledgement)
}

// inboundMessage always answers 200 with an XML acknowledgement; internal
// failures swap the message text but never the status or content type.
// The provider retries non-200 replies, and a retry storm helps nobody.
func (h *WebhooksHandler) inboundMessage(c echo.Context, channel comms.Channel, acknowledgement string) error {
	from := c.FormValue("From")
	body := c.FormValue("Body")
	messageSid := c.FormValue("MessageSid")

	if from == "" {
		return c.XML(http.StatusOK, twimlResponse{Message: errorAcknowledgement})
	}

	h.logMessage(c, channel, from, body, messageSid)
	return c.XML(http.StatusOK, twimlResponse{Message: acknowledgement})
}

// logMessage is best-effort attribution: a failure is logged and swallowed
// so the acknowledgement is never blocked.
func (h *WebhooksHandler) logMessage(c echo.Context, channel comms.Channel, from, body, messageSid string) {
	ctx := c.Request().Context()
	cust, err := h.customers.FindByPhone(ctx, from)
	if err != nil {
		if !errors.Is(err, customer.ErrNotFound) {
			h.logger.Warn("inbound message attribution failed",
				slog.String("channel", string(channel)), slog.Any("error", err))
		}
		return
	}

	if _, err := h.ledger.Log(ctx, comms.CreateInput{
		CustomerID: cust.ID,
		Type:       channel,
		Content:    body,
		Status:     comms.StatusSent,
		Metadata: map[string]any{
			"direction":  "inbound",
			"from":       from,
			"messageSid": messageSid,
		},
	}); err != nil {
		h.logger.Warn("inbound message ledger write failed",
			slog.String("channel", string(channel)), slog.Any("error", err))
	}
}
