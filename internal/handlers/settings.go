package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/leadloop/leadloop/internal/settings"
)

// SettingsHandler reads and replaces the persisted settings document.
type SettingsHandler struct {
	service *settings.Service
	logger  *slog.Logger
}

func NewSettingsHandler(log *slog.Logger, service *settings.Service) *SettingsHandler {
	return &SettingsHandler{
		service: service,
		logger:  log.With(slog.String("handler", "settings")),
	}
}

func (h *SettingsHandler) Register(e *echo.Echo) {
	e.GET("/api/settings", h.Get)
	e.PUT("/api/settings", h.Put)
}

func (h *SettingsHandler) Get(c echo.Context) error {
	doc, err := h.service.Get(c.Request().Context())
	if err != nil {
		h.logger.Error("read settings failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "could not read settings")
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *SettingsHandler) Put(c echo.Context) error {
	var doc settings.Document
	if err := c.Bind(&doc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid settings document")
	}
	saved, err := h.service.Put(c.Request().Context(), doc)
	if err != nil {
		h.logger.Error("write settings failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "could not save settings")
	}
	return c.JSON(http.StatusOK, saved)
}
