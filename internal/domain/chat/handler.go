package chat

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careops/careops/internal/platform/agent"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/care-tasks/:id/chat/messages", h.RecordMessage)
	api.GET("/care-tasks/:id/chat/messages", h.ListSessionMessages)
}

func (h *Handler) RecordMessage(c echo.Context) error {
	careTaskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid care task id")
	}
	var in RecordMessageInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m, err := h.svc.RecordMessage(c.Request().Context(), careTaskID, in)
	if err != nil {
		var timeout *agent.LockTimeoutError
		if errors.As(err, &timeout) {
			return echo.NewHTTPError(http.StatusLocked, timeout.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) ListSessionMessages(c echo.Context) error {
	careTaskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid care task id")
	}
	sessionID := strings.TrimSpace(c.QueryParam("session_id"))
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id is required")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	items, err := h.svc.ListSession(c.Request().Context(), careTaskID, sessionID, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*SessionMessage{}
	}
	return c.JSON(http.StatusOK, items)
}
