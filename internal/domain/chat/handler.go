package chat

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

// RegisterRoutes mounts the chat endpoints. The assistant is open to
// anonymous patients; a signed-in caller's sessions are scoped to them.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/chat/start", h.Start)
	api.POST("/chat/message", h.SendMessage)
	api.POST("/chat/reset", h.Reset)
	api.GET("/chat/:id", h.Transcript)
	api.GET("/chat/:id/summary", h.Summary)
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

func (h *Handler) Start(c echo.Context) error {
	ownerID := auth.UserIDFromContext(c.Request().Context())
	session, err := h.svc.Start(c.Request().Context(), ownerID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, session)
}

type messageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (h *Handler) SendMessage(c echo.Context) error {
	var req messageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ownerID := auth.UserIDFromContext(c.Request().Context())
	session, err := h.svc.SendMessage(c.Request().Context(), ownerID, req.SessionID, req.Message)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, session)
}

type resetRequest struct {
	SessionID string `json:"session_id"`
}

func (h *Handler) Reset(c echo.Context) error {
	var req resetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ownerID := auth.UserIDFromContext(c.Request().Context())
	session, err := h.svc.Reset(c.Request().Context(), ownerID, req.SessionID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, session)
}

func (h *Handler) Transcript(c echo.Context) error {
	ownerID := auth.UserIDFromContext(c.Request().Context())
	session, err := h.svc.Transcript(c.Request().Context(), ownerID, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, session)
}

func (h *Handler) Summary(c echo.Context) error {
	ownerID := auth.UserIDFromContext(c.Request().Context())
	summary, err := h.svc.Summary(c.Request().Context(), ownerID, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, summary)
}
