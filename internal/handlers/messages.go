package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/leadloop/leadloop/internal/credentials"
	"github.com/leadloop/leadloop/internal/gateway"
	"github.com/leadloop/leadloop/internal/server"
)

// MessagesHandler exposes the outbound send operation.
type MessagesHandler struct {
	gateway  *gateway.Service
	validate *validator.Validate
	logger   *slog.Logger
}

func NewMessagesHandler(log *slog.Logger, gw *gateway.Service) *MessagesHandler {
	return &MessagesHandler{
		gateway:  gw,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   log.With(slog.String("handler", "messages")),
	}
}

func (h *MessagesHandler) Register(e *echo.Echo) {
	e.POST("/api/messages/send", h.Send)
}

func (h *MessagesHandler) Send(c echo.Context) error {
	var req gateway.SendRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"message": err.Error(),
		})
	}

	row, err := h.gateway.Send(c.Request().Context(), req)
	if err != nil {
		server.RecordMessageSent(string(req.Channel), "failed")
		status := http.StatusInternalServerError
		message := "send failed"

		var perr *gateway.ProviderError
		switch {
		case errors.As(err, &perr):
			status = http.StatusBadGateway
			message = perr.Error()
		case errors.Is(err, credentials.ErrMissing):
			status = http.StatusBadRequest
			message = "email credentials are not configured"
		}
		h.logger.Error("outbound send failed",
			slog.String("channel", string(req.Channel)), slog.Any("error", err))
		return c.JSON(status, map[string]any{
			"success": false,
			"message": message,
		})
	}

	server.RecordMessageSent(string(req.Channel), string(row.Status))
	return c.JSON(http.StatusOK, map[string]any{
		"success":       true,
		"communication": row,
	})
}
