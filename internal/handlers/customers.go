package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/leadloop/leadloop/internal/comms"
	"github.com/leadloop/leadloop/internal/customer"
	"github.com/leadloop/leadloop/internal/db"
)

// CustomersHandler serves read access to customers and their ledger.
type CustomersHandler struct {
	customers *customer.Service
	ledger    *comms.Service
	logger    *slog.Logger
}

func NewCustomersHandler(log *slog.Logger, customers *customer.Service, ledger *comms.Service) *CustomersHandler {
	return &CustomersHandler{
		customers: customers,
		ledger:    ledger,
		logger:    log.With(slog.String("handler", "customers")),
	}
}

func (h *CustomersHandler) Register(e *echo.Echo) {
	e.GET("/api/customers", h.List)
	e.GET("/api/customers/:id", h.Get)
	e.GET("/api/customers/:id/communications", h.Communications)
}

func (h *CustomersHandler) List(c echo.Context) error {
	customers, err := h.customers.List(c.Request().Context())
	if err != nil {
		h.logger.Error("list customers failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "could not list customers")
	}
	return c.JSON(http.StatusOK, customers)
}

func (h *CustomersHandler) Get(c echo.Context) error {
	cust, err := h.customers.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, customer.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "customer not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid customer id")
	}
	return c.JSON(http.StatusOK, cust)
}

func (h *CustomersHandler) Communications(c echo.Context) error {
	id := c.Param("id")
	if _, err := db.ParseUUID(id); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid customer id")
	}
	rows, err := h.ledger.ListByCustomer(c.Request().Context(), id)
	if err != nil {
		h.logger.Error("list communications failed",
			slog.String("customer_id", id), slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "could not list communications")
	}
	return c.JSON(http.StatusOK, rows)
}
