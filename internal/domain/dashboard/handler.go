package dashboard

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carepoint/hms/internal/platform/apperr"
	"github.com/carepoint/hms/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard", h.GetSummary)
}

func (h *Handler) GetSummary(c echo.Context) error {
	caller, ok := auth.CallerFromContext(c.Request().Context())
	if !ok {
		return apperr.Unauthorized("authentication required")
	}
	sum, err := h.svc.Summary(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sum)
}
