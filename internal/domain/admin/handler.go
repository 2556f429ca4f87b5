package admin

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
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
	api.GET("/departments", h.ListDepartments)
	api.GET("/departments/:id", h.GetDepartment)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/departments", h.CreateDepartment)
	admin.PUT("/departments/:id", h.UpdateDepartment)
	admin.DELETE("/departments/:id", h.DeleteDepartment)
}

func (h *Handler) ListDepartments(c echo.Context) error {
	items, err := h.svc.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"data": items, "total": len(items)})
}

func (h *Handler) GetDepartment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("id", "must be a valid id")
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) CreateDepartment(c echo.Context) error {
	caller, _ := auth.CallerFromContext(c.Request().Context())
	var in DepartmentInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("body", "malformed JSON")
	}
	d, err := h.svc.Create(c.Request().Context(), caller, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) UpdateDepartment(c echo.Context) error {
	caller, _ := auth.CallerFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("id", "must be a valid id")
	}
	var in DepartmentInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("body", "malformed JSON")
	}
	d, err := h.svc.Update(c.Request().Context(), caller, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDepartment(c echo.Context) error {
	caller, _ := auth.CallerFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("id", "must be a valid id")
	}
	confirmed, _ := strconv.ParseBool(c.QueryParam("confirm"))
	if err := h.svc.Delete(c.Request().Context(), caller, id, confirmed); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
