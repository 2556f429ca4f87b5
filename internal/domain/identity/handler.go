package identity

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carepoint/hms/internal/platform/apperr"
	"github.com/carepoint/hms/internal/platform/auth"
	"github.com/carepoint/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/me", h.GetMe)
	api.PUT("/me", h.UpdateMe)

	api.GET("/doctors", h.ListDoctors)
	api.GET("/doctors/:id", h.GetDoctor)
	api.PUT("/doctors/:id", h.UpdateDoctor, auth.RequireRole(auth.RoleDoctor))

	staff := api.Group("", auth.RequireRole(auth.RoleDoctor))
	staff.GET("/patients", h.ListPatients)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/doctors", h.ProvisionDoctor)
}

func (h *Handler) GetMe(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Me(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateMe(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var in ProfileUpdate
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("body", "malformed JSON")
	}
	p, err := h.svc.UpdateMe(c.Request().Context(), caller, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPatients(c.Request().Context(), caller, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListDoctors(c echo.Context) error {
	var dept *uuid.UUID
	if v := c.QueryParam("department_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.Validation("department_id", "must be a valid id")
		}
		dept = &id
	}
	docs, err := h.svc.ListDoctors(c.Request().Context(), dept)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"data": docs, "total": len(docs)})
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("id", "must be a valid id")
	}
	doc, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) ProvisionDoctor(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var in DoctorInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("body", "malformed JSON")
	}
	doc, err := h.svc.ProvisionDoctor(c.Request().Context(), caller, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, doc)
}

func (h *Handler) UpdateDoctor(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("id", "must be a valid id")
	}
	var in DoctorUpdate
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("body", "malformed JSON")
	}
	doc, err := h.svc.UpdateDoctor(c.Request().Context(), caller, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

func callerFrom(c echo.Context) (auth.Caller, error) {
	caller, ok := auth.CallerFromContext(c.Request().Context())
	if !ok {
		return auth.Caller{}, apperr.Unauthorized("authentication required")
	}
	return caller, nil
}
