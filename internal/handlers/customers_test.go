package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/leadloop/leadloop/internal/comms"
	"github.com/leadloop/leadloop/internal/customer"
)

type failingLedgerStore struct{}

func (failingLedgerStore) Insert(context.Context, comms.CreateInput) (comms.Communication, error) {
	return comms.Communication{}, errors.New("connection reset")
}

func (failingLedgerStore) ListByCustomer(context.Context, string) ([]comms.Communication, error) {
	return nil, errors.New("connection reset")
}

func getCommunications(t *testing.T, h *CustomersHandler, id string) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/customers/"+id+"/communications", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	return h.Communications(c)
}

func TestCommunicationsRejectsMalformedID(t *testing.T) {
	t.Parallel()

	log := slog.Default()
	h := NewCustomersHandler(log,
		customer.NewService(log, &stubCustomerStore{}),
		comms.NewService(log, &stubLedgerStore{}))

	err := getCommunications(t, h, "not-a-uuid")
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("err = %v, want a 400", err)
	}
}

// A ledger read failure is a server problem, not a bad request.
func TestCommunicationsStoreFailureIs500(t *testing.T) {
	t.Parallel()

	log := slog.Default()
	h := NewCustomersHandler(log,
		customer.NewService(log, &stubCustomerStore{}),
		comms.NewService(log, failingLedgerStore{}))

	err := getCommunications(t, h, "7f9c24e5-3b11-4a7e-9a31-54f6c4a1b2c3")
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusInternalServerError {
		t.Fatalf("err = %v, want a 500", err)
	}
}
