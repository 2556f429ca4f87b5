package scheduling

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carepoint/hms/internal/platform/apperr"
	"github.com/carepoint/hms/internal/platform/auth"
	"github.com/carepoint/hms/pkg/civil"
	"github.com/carepoint/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/appointments", h.ListAppointments)
	api.GET("/appointments/:id", h.GetAppointment)
	api.POST("/appointments/:id/status", h.TransitionAppointment)
	api.POST("/appointments", h.BookAppointment, auth.RequireRole(auth.RolePatient))
	api.PUT("/appointments/:id/visit", h.RecordVisit, auth.RequireRole(auth.RoleDoctor))

	api.GET("/doctors/:id/slots", h.DoctorSlots)
}

func (h *Handler) BookAppointment(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req BookRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("body", "malformed JSON")
	}
	appt, err := h.svc.Book(c.Request().Context(), caller, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	f := ListFilter{
		View:   View(c.QueryParam("view")),
		Status: Status(c.QueryParam("status")),
		Limit:  pg.Limit,
		Offset: pg.Offset,
	}
	if f.From, err = dateParam(c, "from"); err != nil {
		return err
	}
	if f.To, err = dateParam(c, "to"); err != nil {
		return err
	}
	items, total, err := h.svc.List(c.Request().Context(), caller, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetAppointment(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	appt, err := h.svc.Get(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) TransitionAppointment(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req TransitionRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("body", "malformed JSON")
	}
	appt, err := h.svc.Transition(c.Request().Context(), caller, id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) RecordVisit(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var in VisitUpdate
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("body", "malformed JSON")
	}
	appt, err := h.svc.RecordVisit(c.Request().Context(), caller, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) DoctorSlots(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	date, err := dateParam(c, "date")
	if err != nil {
		return err
	}
	if date == nil {
		return apperr.Validation("date", "is required")
	}
	av, err := h.svc.Availability(c.Request().Context(), id, *date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, av)
}

func callerFrom(c echo.Context) (auth.Caller, error) {
	caller, ok := auth.CallerFromContext(c.Request().Context())
	if !ok {
		return auth.Caller{}, apperr.Unauthorized("authentication required")
	}
	return caller, nil
}

func idParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.Validation("id", "must be a valid id")
	}
	return id, nil
}

func dateParam(c echo.Context, name string) (*civil.Date, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	d, err := civil.Parse(v)
	if err != nil {
		return nil, apperr.Validation(name, "must be a date (YYYY-MM-DD)")
	}
	return &d, nil
}
