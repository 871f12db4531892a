package pathway

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/carepath/carepath/internal/domain"
	"github.com/carepath/carepath/internal/platform/auth"
	"github.com/carepath/carepath/internal/upstream"
	"github.com/carepath/carepath/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/predict", h.Predict)
	api.GET("/precautions", h.Precautions)
	api.POST("/pathway/evaluate", h.Evaluate)

	api.GET("/doctors", h.ListDoctors)
	api.GET("/doctors/:id", h.GetDoctor)
	api.GET("/doctors/specialty/:id", h.DoctorsBySpecialty)

	authed := api.Group("", auth.RequireAuth())
	authed.GET("/predictions", h.History)
	authed.DELETE("/predictions/:id", h.DeleteHistoryEntry)
}

// httpError converts a service error into the response the API contract
// promises. Unrecognized upstream statuses pass through unchanged.
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

type predictRequest struct {
	Symptoms []string `json:"symptoms"`
}

func (h *Handler) Predict(c echo.Context) error {
	var req predictRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	userID := auth.UserIDFromContext(c.Request().Context())
	prediction, err := h.svc.Predict(c.Request().Context(), req.Symptoms, userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, prediction)
}

func (h *Handler) Precautions(c echo.Context) error {
	diseases := c.QueryParams()["disease"]
	results, err := h.svc.FetchPrecautions(c.Request().Context(), diseases)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"precautions": results})
}

func (h *Handler) Evaluate(c echo.Context) error {
	var req predictRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, _ := auth.BearerToken(c)
	userID := auth.UserIDFromContext(c.Request().Context())
	eval, err := h.svc.Evaluate(c.Request().Context(), token, userID, req.Symptoms)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, eval)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	doctors, err := h.svc.ListDoctors(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	p := pagination.FromContext(c)
	page := pagination.Page(doctors, p)
	return c.JSON(http.StatusOK, pagination.NewResponse(page, len(doctors), p.Limit, p.Offset))
}

func (h *Handler) GetDoctor(c echo.Context) error {
	doctor, err := h.svc.GetDoctor(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, doctor)
}

func (h *Handler) DoctorsBySpecialty(c echo.Context) error {
	specialtyID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid specialty id")
	}

	token, _ := auth.BearerToken(c)
	doctors, err := h.svc.RecommendDoctors(c.Request().Context(), token, specialtyID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"doctors": doctors})
}

func (h *Handler) History(c echo.Context) error {
	token, _ := auth.BearerToken(c)
	userID := auth.UserIDFromContext(c.Request().Context())
	predictions, err := h.svc.History(c.Request().Context(), token, userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"predictions": predictions})
}

func (h *Handler) DeleteHistoryEntry(c echo.Context) error {
	token, _ := auth.BearerToken(c)
	if err := h.svc.DeleteHistoryEntry(c.Request().Context(), token, c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
