package booking

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carepath/carepath/internal/domain"
	"github.com/carepath/carepath/internal/platform/auth"
	"github.com/carepath/carepath/internal/upstream"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the booking endpoints. All of them require a
// signed-in patient.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	authed := api.Group("", auth.RequireAuth())
	authed.POST("/booking/flows", h.StartFlow)
	authed.GET("/booking/flows/:id", h.GetFlow)
	authed.POST("/booking/flows/:id/date", h.SelectDate)
	authed.POST("/booking/flows/:id/slot", h.SelectSlot)
	authed.POST("/booking/flows/:id/confirm", h.Confirm)
	authed.GET("/appointments", h.Appointments)
	authed.DELETE("/appointments/:id", h.Cancel)
}

func httpError(err error) *echo.HTTPError {
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		return echo.NewHTTPError(apiErr.Status, apiErr.Message)
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return echo.NewHTTPError(domain.HTTPStatus(err), de.UserMessage())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}

type startFlowRequest struct {
	DoctorID string `json:"doctor_id"`
}

func (h *Handler) StartFlow(c echo.Context) error {
	var req startFlowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	userID := auth.UserIDFromContext(c.Request().Context())
	flow, err := h.svc.StartFlow(c.Request().Context(), userID, req.DoctorID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, flow)
}

func (h *Handler) GetFlow(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	flow, err := h.svc.GetFlow(userID, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, flow)
}

type selectDateRequest struct {
	Date string `json:"date"`
}

func (h *Handler) SelectDate(c echo.Context) error {
	var req selectDateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	userID := auth.UserIDFromContext(c.Request().Context())
	flow, err := h.svc.SelectDate(userID, c.Param("id"), req.Date)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, flow)
}

type selectSlotRequest struct {
	Slot string `json:"slot"`
}

func (h *Handler) SelectSlot(c echo.Context) error {
	var req selectSlotRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	userID := auth.UserIDFromContext(c.Request().Context())
	flow, err := h.svc.SelectSlot(userID, c.Param("id"), req.Slot)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, flow)
}

func (h *Handler) Confirm(c echo.Context) error {
	token, _ := auth.BearerToken(c)
	userID := auth.UserIDFromContext(c.Request().Context())
	flow, err := h.svc.Confirm(c.Request().Context(), token, userID, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, flow)
}

func (h *Handler) Appointments(c echo.Context) error {
	token, _ := auth.BearerToken(c)
	userID := auth.UserIDFromContext(c.Request().Context())
	appts, err := h.svc.Appointments(c.Request().Context(), token, userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"appointments": appts})
}

func (h *Handler) Cancel(c echo.Context) error {
	token, _ := auth.BearerToken(c)
	userID := auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.Cancel(c.Request().Context(), token, userID, c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
