package quality

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/quality/audits", h.RecordAudit)
	api.GET("/quality/audits", h.ListAudits)
	api.GET("/quality/scorecard", h.GetScorecard)
}

func (h *Handler) RecordAudit(c echo.Context) error {
	var in RecordAuditInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.RecordAudit(c.Request().Context(), in)
	if err != nil {
		if errors.Is(err, ErrDuplicateAudit) {
			return echo.NewHTTPError(http.StatusConflict, ErrDuplicateAudit.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) ListAudits(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	items, total, err := h.svc.ListAudits(c.Request().Context(), limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Audit{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"items": items,
		"total": total,
	})
}

func (h *Handler) GetScorecard(c echo.Context) error {
	card, err := h.svc.Scorecard(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, card)
}
