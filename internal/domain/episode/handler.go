package episode

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/emergency-episodes", h.CreateEpisode)
	api.GET("/emergency-episodes", h.ListEpisodes)
	api.GET("/emergency-episodes/:id", h.GetEpisode)
	api.POST("/emergency-episodes/:id/transition", h.TransitionEpisode)
	api.GET("/emergency-episodes/:id/kpis", h.GetEpisodeKPIs)
}

func (h *Handler) CreateEpisode(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) ListEpisodes(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	items, err := h.svc.List(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Episode{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetEpisode(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return mapEpisodeError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) TransitionEpisode(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in TransitionInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := h.svc.Transition(c.Request().Context(), id, in)
	if err != nil {
		return mapEpisodeError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) GetEpisodeKPIs(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	summary, err := h.svc.KPIs(c.Request().Context(), id)
	if err != nil {
		return mapEpisodeError(err)
	}
	return c.JSON(http.StatusOK, summary)
}

// mapEpisodeError translates domain errors onto HTTP status codes: missing
// episodes are 404, rejected transitions are 400 with the operator-facing
// detail, anything else propagates as 500.
func mapEpisodeError(err error) error {
	var invalid *InvalidTransitionError
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
	case errors.As(err, &invalid):
		return echo.NewHTTPError(http.StatusBadRequest, invalid.Message)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
