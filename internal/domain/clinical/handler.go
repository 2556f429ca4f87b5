package clinical

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
	api.GET("/medical-records", h.ListRecords)
	api.GET("/medical-records/:id", h.GetRecord)
	api.POST("/medical-records", h.CreateRecord, auth.RequireRole(auth.RoleDoctor))
}

func (h *Handler) CreateRecord(c echo.Context) error {
	caller, _ := auth.CallerFromContext(c.Request().Context())
	var in RecordInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("body", "malformed JSON")
	}
	r, err := h.svc.Create(c.Request().Context(), caller, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) ListRecords(c echo.Context) error {
	caller, ok := auth.CallerFromContext(c.Request().Context())
	if !ok {
		return apperr.Unauthorized("authentication required")
	}
	var patientID *uuid.UUID
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.Validation("patient_id", "must be a valid id")
		}
		patientID = &id
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), caller, patientID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetRecord(c echo.Context) error {
	caller, ok := auth.CallerFromContext(c.Request().Context())
	if !ok {
		return apperr.Unauthorized("authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("id", "must be a valid id")
	}
	r, err := h.svc.Get(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}
