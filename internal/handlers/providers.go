package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/leadloop/leadloop/internal/comms"
	"github.com/leadloop/leadloop/internal/credentials"
)

// ProvidersHandler exposes the per-channel credential verification probe.
type ProvidersHandler struct {
	verifier *credentials.Verifier
	logger   *slog.Logger
}

func NewProvidersHandler(log *slog.Logger, verifier *credentials.Verifier) *ProvidersHandler {
	return &ProvidersHandler{
		verifier: verifier,
		logger:   log.With(slog.String("handler", "providers")),
	}
}

func (h *ProvidersHandler) Register(e *echo.Echo) {
	e.GET("/api/providers/:channel/verify", h.Verify)
}

func (h *ProvidersHandler) Verify(c echo.Context) error {
	channel := c.Param("channel")
	if !comms.Channel(channel).Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unsupported channel")
	}
	result, err := h.verifier.Verify(c.Request().Context(), channel)
	if err != nil {
		// Transport trouble reaching the provider, not a credential verdict.
		h.logger.Error("credential verification transport failure",
			slog.String("channel", channel), slog.Any("error", err))
		return echo.NewHTTPError(http.StatusBadGateway, "could not reach provider")
	}
	return c.JSON(http.StatusOK, result)
}
