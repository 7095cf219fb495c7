package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/leadloop/leadloop/internal/comms"
	"github.com/leadloop/leadloop/internal/config"
	"github.com/leadloop/leadloop/internal/customer"
	"github.com/leadloop/leadloop/internal/extract"
	"github.com/leadloop/leadloop/internal/inbound"
)

type stubUploader struct{}

func (stubUploader) Upload(_ context.Context, filename string, _ []byte, _ string) (string, error) {
	return "https://bucket.example.com/resumes/" + filename, nil
}

type stubCustomerStore struct {
	byEmail map[string]customer.Customer
	byPhone map[string]customer.Customer
}

func (s *stubCustomerStore) GetByEmail(_ context.Context, email string) (customer.Customer, error) {
	if c, ok := s.byEmail[strings.ToLower(email)]; ok {
		return c, nil
	}
	return customer.Customer{}, customer.ErrNotFound
}

func (s *stubCustomerStore) GetByPhone(_ context.Context, phone string) (customer.Customer, error) {
	if c, ok := s.byPhone[phone]; ok {
		return c, nil
	}
	return customer.Customer{}, customer.ErrNotFound
}

func (s *stubCustomerStore) GetByID(context.Context, string) (customer.Customer, error) {
	return customer.Customer{}, customer.ErrNotFound
}

func (s *stubCustomerStore) List(context.Context) ([]customer.Customer, error) { return nil, nil }

func (s *stubCustomerStore) Create(_ context.Context, c customer.Customer) (customer.Customer, error) {
	if s.byEmail == nil {
		s.byEmail = map[string]customer.Customer{}
	}
	c.ID = "cust-1"
	s.byEmail[c.Email] = c
	return c, nil
}

func (s *stubCustomerStore) Update(_ context.Context, c customer.Customer) (customer.Customer, error) {
	s.byEmail[c.Email] = c
	return c, nil
}

type stubLedgerStore struct {
	rows []comms.CreateInput
}

func (s *stubLedgerStore) Insert(_ context.Context, input comms.CreateInput) (comms.Communication, error) {
	s.rows = append(s.rows, input)
	return comms.Communication{ID: "comm-1", CustomerID: input.CustomerID, Type: input.Type}, nil
}

func (s *stubLedgerStore) ListByCustomer(context.Context, string) ([]comms.Communication, error) {
	return nil, nil
}

func newWebhooksHandler(t *testing.T, custStore *stubCustomerStore, ledgerStore *stubLedgerStore) *WebhooksHandler {
	t.Helper()
	log := slog.Default()
	customers := customer.NewService(log, custStore)
	ledger := comms.NewService(log, ledgerStore)
	pipeline := inbound.NewPipeline(log,
		config.OpenAIConfig{}, // no API key: structured extraction degrades to empty
		stubUploader{},
		extract.NewDocumentExtractor(log),
		extract.NewExtractor(log, "http://127.0.0.1:1", "gpt-4o-mini"),
		customers,
		ledger,
	)
	return NewWebhooksHandler(log, pipeline, customers, ledger)
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		w.WriteField(k, v)
	}
	for name, data := range files {
		part, err := w.CreateFormFile(name, name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write(data)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestInboundEmailSuccess(t *testing.T) {
	t.Parallel()

	custStore := &stubCustomerStore{}
	ledgerStore := &stubLedgerStore{}
	h := newWebhooksHandler(t, custStore, ledgerStore)

	body, contentType := multipartBody(t,
		map[string]string{
			"subject":  "Application",
			"text":     "see attached",
			"envelope": `{"from":"jane.doe@example.com","to":["jobs@crm.example.com"]}`,
		},
		map[string][]byte{"resume.txt": []byte("Jane Doe, engineer")},
	)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/sendgrid/inbound", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()

	if err := h.InboundEmail(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp inboundEmailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || !resp.CustomerCreated {
		t.Errorf("response = %+v", resp)
	}
	if resp.Data.From != "jane.doe@example.com" {
		t.Errorf("from = %q", resp.Data.From)
	}
	if len(resp.Data.Attachments) != 1 || resp.Data.Attachments[0] != "resume.txt" {
		t.Errorf("attachments = %v", resp.Data.Attachments)
	}
}

func TestInboundEmailNoAttachment(t *testing.T) {
	t.Parallel()

	custStore := &stubCustomerStore{}
	ledgerStore := &stubLedgerStore{}
	h := newWebhooksHandler(t, custStore, ledgerStore)

	body, contentType := multipartBody(t,
		map[string]string{"from": "jane@example.com", "text": "no files"}, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/sendgrid/inbound", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()

	if err := h.InboundEmail(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]any
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["success"] != false {
		t.Errorf("response = %+v", resp)
	}
	if len(ledgerStore.rows) != 0 {
		t.Error("failed ingestion must not write ledger rows")
	}
}

func postForm(t *testing.T, h echo.HandlerFunc, path string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	return rec
}

// The SMS webhook must answer 200 with XML no matter what happens inside.
func TestInboundSMSAlwaysTwiML(t *testing.T) {
	t.Parallel()

	custStore := &stubCustomerStore{
		byPhone: map[string]customer.Customer{
			"+447123456789": {ID: "cust-9", Phone: "+447123456789"},
		},
	}
	ledgerStore := &stubLedgerStore{}
	h := newWebhooksHandler(t, custStore, ledgerStore)

	rec := postForm(t, h.InboundSMS, "/api/webhooks/twilio/sms", url.Values{
		"From":       {"+447123456789"},
		"Body":       {"hello there"},
		"MessageSid": {"SMabc"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<Response><Message>") {
		t.Errorf("body = %q", rec.Body.String())
	}
	if len(ledgerStore.rows) != 1 {
		t.Fatalf("ledger rows = %d", len(ledgerStore.rows))
	}
	if ledgerStore.rows[0].Type != comms.ChannelSMS {
		t.Errorf("channel = %v", ledgerStore.rows[0].Type)
	}
	if ledgerStore.rows[0].Metadata["direction"] != "inbound" {
		t.Errorf("metadata = %+v", ledgerStore.rows[0].Metadata)
	}
}

func TestInboundSMSUnknownSenderStillAcknowledged(t *testing.T) {
	t.Parallel()

	custStore := &stubCustomerStore{}
	ledgerStore := &stubLedgerStore{}
	h := newWebhooksHandler(t, custStore, ledgerStore)

	rec := postForm(t, h.InboundSMS, "/api/webhooks/twilio/sms", url.Values{
		"From": {"+15551234567"},
		"Body": {"who is this"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<Response><Message>") {
		t.Errorf("body = %q", rec.Body.String())
	}
	if len(ledgerStore.rows) != 0 {
		t.Error("unknown sender must not create ledger rows")
	}
}

func TestInboundWhatsAppGreeting(t *testing.T) {
	t.Parallel()

	h := newWebhooksHandler(t, &stubCustomerStore{}, &stubLedgerStore{})
	rec := postForm(t, h.InboundWhatsApp, "/api/webhooks/twilio/whatsapp", url.Values{
		"From": {"whatsapp:+447123456789"},
		"Body": {"hi"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "WhatsApp") {
		t.Errorf("expected whatsapp-flavored acknowledgement, got %q", rec.Body.String())
	}
}
